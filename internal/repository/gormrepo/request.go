package gormrepo

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/careward/wardflow/internal/domain"
	"github.com/careward/wardflow/internal/domain/request"
)

type RequestRepository struct {
	db *gorm.DB
}

func NewRequestRepository(db *gorm.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

func (r *RequestRepository) Create(ctx context.Context, req *request.Request, entry *domain.TransitionLog) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(req).Error; err != nil {
			return err
		}
		if entry != nil {
			entry.RequestID = req.ID
			return tx.Create(entry).Error
		}
		return nil
	})
}

func (r *RequestRepository) GetByID(ctx context.Context, id uuid.UUID) (*request.Request, error) {
	var req request.Request
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&req).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, request.ErrRequestNotFound
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// UpdateWithVersion commits a transition with a compare-and-swap on the
// version column. Zero rows affected means a concurrent commit won. The
// audit entry is inserted in the same transaction, so a lost race leaves
// no row behind.
func (r *RequestRepository) UpdateWithVersion(ctx context.Context, req *request.Request, expectedVersion int64, entry *domain.TransitionLog) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&request.Request{}).
			Where("id = ? AND version = ?", req.ID, expectedVersion).
			Updates(map[string]any{
				"state":                  req.State,
				"owner_role":             req.OwnerRole,
				"prior_owner":            req.PriorOwner,
				"escalated":              req.Escalated,
				"requires_manual_review": req.RequiresManualReview,
				"assessment_id":          req.AssessmentID,
				"handover_id":            req.HandoverID,
				"archived_at":            req.ArchivedAt,
				"version":                expectedVersion + 1,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Distinguish a missing row from a lost race.
			var count int64
			if err := tx.Model(&request.Request{}).Where("id = ?", req.ID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return request.ErrRequestNotFound
			}
			return request.ErrVersionConflict
		}
		if entry != nil {
			return tx.Create(entry).Error
		}
		return nil
	})
	if err != nil {
		return err
	}
	req.Version = expectedVersion + 1
	return nil
}

func (r *RequestRepository) List(ctx context.Context, q *request.ListRequestsQuery) (*request.PagedRequests, error) {
	query := r.db.WithContext(ctx).Model(&request.Request{})
	if q.PatientID != nil {
		query = query.Where("patient_id = ?", *q.PatientID)
	}
	if q.WardID != "" {
		query = query.Where("ward_id = ?", q.WardID)
	}
	if q.OwnerRole != nil {
		query = query.Where("owner_role = ?", *q.OwnerRole)
	}
	if q.State != nil {
		query = query.Where("state = ?", *q.State)
	}
	if q.Escalated != nil {
		query = query.Where("escalated = ?", *q.Escalated)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var requests []*request.Request
	// Escalated requests surface first, then oldest first so nothing
	// starves at the bottom of the inbox.
	err := query.
		Order("escalated DESC, created_at ASC").
		Offset((q.Page - 1) * q.PageSize).
		Limit(q.PageSize).
		Find(&requests).Error
	if err != nil {
		return nil, err
	}

	return &request.PagedRequests{
		Requests:   requests,
		TotalCount: total,
		Page:       q.Page,
		PageSize:   q.PageSize,
		TotalPages: totalPages(total, q.PageSize),
	}, nil
}
