package memrepo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/careward/wardflow/internal/domain"
	"github.com/careward/wardflow/internal/domain/request"
)

// RequestRepository shares the transition log store so audit entries
// commit together with the request, matching the database-backed
// implementation.
type RequestRepository struct {
	mu       sync.RWMutex
	requests map[uuid.UUID]*request.Request
	logs     *TransitionLogRepository
}

func NewRequestRepository(logs *TransitionLogRepository) *RequestRepository {
	return &RequestRepository{
		requests: make(map[uuid.UUID]*request.Request),
		logs:     logs,
	}
}

func (r *RequestRepository) Create(ctx context.Context, req *request.Request, entry *domain.TransitionLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	now := time.Now().UTC()
	req.CreatedAt = now
	req.UpdatedAt = now

	cp := *req
	r.requests[req.ID] = &cp

	if entry != nil && r.logs != nil {
		entry.RequestID = req.ID
		return r.logs.Append(ctx, entry)
	}
	return nil
}

func (r *RequestRepository) GetByID(_ context.Context, id uuid.UUID) (*request.Request, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	req, ok := r.requests[id]
	if !ok {
		return nil, request.ErrRequestNotFound
	}
	cp := *req
	return &cp, nil
}

func (r *RequestRepository) UpdateWithVersion(ctx context.Context, req *request.Request, expectedVersion int64, entry *domain.TransitionLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.requests[req.ID]
	if !ok {
		return request.ErrRequestNotFound
	}
	if current.Version != expectedVersion {
		return request.ErrVersionConflict
	}

	req.Version = expectedVersion + 1
	req.UpdatedAt = time.Now().UTC()
	cp := *req
	r.requests[req.ID] = &cp

	if entry != nil && r.logs != nil {
		return r.logs.Append(ctx, entry)
	}
	return nil
}

func (r *RequestRepository) List(_ context.Context, q *request.ListRequestsQuery) (*request.PagedRequests, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*request.Request
	for _, req := range r.requests {
		if q.PatientID != nil && req.PatientID != *q.PatientID {
			continue
		}
		if q.WardID != "" && req.WardID != q.WardID {
			continue
		}
		if q.OwnerRole != nil && req.OwnerRole != *q.OwnerRole {
			continue
		}
		if q.State != nil && req.State != *q.State {
			continue
		}
		if q.Escalated != nil && req.Escalated != *q.Escalated {
			continue
		}
		cp := *req
		matched = append(matched, &cp)
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Escalated != matched[j].Escalated {
			return matched[i].Escalated
		}
		return matched[i].CreatedAt.Before(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	page := pageSlice(len(matched), q.Page, q.PageSize)
	return &request.PagedRequests{
		Requests:   matched[page.start:page.end],
		TotalCount: total,
		Page:       q.Page,
		PageSize:   q.PageSize,
		TotalPages: totalPages(total, q.PageSize),
	}, nil
}
