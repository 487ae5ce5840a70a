package memrepo

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/careward/wardflow/internal/domain"
)

type TransitionLogRepository struct {
	mu      sync.RWMutex
	entries []*domain.TransitionLog
}

func NewTransitionLogRepository() *TransitionLogRepository {
	return &TransitionLogRepository{}
}

func (r *TransitionLogRepository) Append(_ context.Context, entry *domain.TransitionLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.OccurredAt.IsZero() {
		entry.OccurredAt = time.Now().UTC()
	}

	cp := *entry
	r.entries = append(r.entries, &cp)
	return nil
}

func (r *TransitionLogRepository) ListByRequest(_ context.Context, requestID uuid.UUID) ([]*domain.TransitionLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*domain.TransitionLog
	for _, entry := range r.entries {
		if entry.RequestID == requestID {
			cp := *entry
			matched = append(matched, &cp)
		}
	}
	return matched, nil
}
