package memrepo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/careward/wardflow/internal/domain/handover"
)

type HandoverRepository struct {
	mu        sync.RWMutex
	summaries map[uuid.UUID]*handover.Summary
}

func NewHandoverRepository() *HandoverRepository {
	return &HandoverRepository{summaries: make(map[uuid.UUID]*handover.Summary)}
}

func (r *HandoverRepository) Create(_ context.Context, s *handover.Summary) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	latest := 0
	for _, existing := range r.summaries {
		if existing.PatientID == s.PatientID && existing.Version > latest {
			latest = existing.Version
		}
	}
	s.Version = latest + 1

	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	s.CreatedAt = time.Now().UTC()

	cp := *s
	r.summaries[s.ID] = &cp
	return nil
}

func (r *HandoverRepository) GetByID(_ context.Context, id uuid.UUID) (*handover.Summary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.summaries[id]
	if !ok {
		return nil, handover.ErrHandoverNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *HandoverRepository) LatestForPatient(_ context.Context, patientID uuid.UUID) (*handover.Summary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var latest *handover.Summary
	for _, s := range r.summaries {
		if s.PatientID != patientID {
			continue
		}
		if latest == nil || s.Version > latest.Version {
			latest = s
		}
	}
	if latest == nil {
		return nil, handover.ErrHandoverNotFound
	}
	cp := *latest
	return &cp, nil
}

func (r *HandoverRepository) SetAnnotation(_ context.Context, id uuid.UUID, note string, by uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.summaries[id]
	if !ok {
		return handover.ErrHandoverNotFound
	}
	s.Annotation = note
	s.AnnotatedBy = &by
	s.AnnotatedAt = &at
	return nil
}

func (r *HandoverRepository) ListByPatient(_ context.Context, patientID uuid.UUID, limit int) ([]*handover.Summary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}

	var matched []*handover.Summary
	for _, s := range r.summaries {
		if s.PatientID != patientID {
			continue
		}
		cp := *s
		matched = append(matched, &cp)
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].Version > matched[j].Version
	})
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}
