package request

import (
	"context"

	"github.com/google/uuid"

	"github.com/careward/wardflow/internal/domain"
)

type Repository interface {
	// Create persists a new request. A non-nil entry is written as the
	// creation audit row in the same commit.
	Create(ctx context.Context, r *Request, entry *domain.TransitionLog) error

	// GetByID retrieves a request by primary key. Returns ErrRequestNotFound if not found.
	GetByID(ctx context.Context, id uuid.UUID) (*Request, error)

	// UpdateWithVersion persists a transitioned request only if the stored
	// Version still matches expectedVersion; the stored Version is then
	// incremented. A non-nil entry is written in the same commit, so an
	// accepted transition and its audit row land or fail together. Returns
	// ErrVersionConflict when a concurrent commit won.
	UpdateWithVersion(ctx context.Context, r *Request, expectedVersion int64, entry *domain.TransitionLog) error

	// List returns a paginated inbox view.
	List(ctx context.Context, q *ListRequestsQuery) (*PagedRequests, error)
}
