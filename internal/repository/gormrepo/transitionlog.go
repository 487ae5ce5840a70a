package gormrepo

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/careward/wardflow/internal/domain"
)

// TransitionLogRepository is append-only; it exposes no update or delete.
type TransitionLogRepository struct {
	db *gorm.DB
}

func NewTransitionLogRepository(db *gorm.DB) *TransitionLogRepository {
	return &TransitionLogRepository{db: db}
}

func (r *TransitionLogRepository) Append(ctx context.Context, entry *domain.TransitionLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *TransitionLogRepository) ListByRequest(ctx context.Context, requestID uuid.UUID) ([]*domain.TransitionLog, error) {
	var entries []*domain.TransitionLog
	err := r.db.WithContext(ctx).
		Where("request_id = ?", requestID).
		Order("occurred_at ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
