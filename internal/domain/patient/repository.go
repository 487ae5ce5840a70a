package patient

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// Create persists a new admission. Returns ErrBedOccupied if the
	// ward/bed pair is already taken by an admitted patient.
	Create(ctx context.Context, p *Patient) error

	// GetByID retrieves a patient by primary key. Returns ErrPatientNotFound if not found.
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)

	// Update persists mutations made by nurse/doctor actions.
	Update(ctx context.Context, p *Patient) error

	// SoftDelete marks the patient record as deleted (retention requirement).
	SoftDelete(ctx context.Context, id uuid.UUID) error

	// List returns a paginated ward census.
	List(ctx context.Context, q *ListPatientsQuery) (*PagedPatients, error)
}
