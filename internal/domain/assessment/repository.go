package assessment

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, a *Assessment) error

	// GetByID retrieves an assessment by primary key. Returns ErrAssessmentNotFound if not found.
	GetByID(ctx context.Context, id uuid.UUID) (*Assessment, error)

	// MarkSuperseded links an older finalized assessment to its replacement.
	// Implementations must reject any other mutation of finalized rows.
	MarkSuperseded(ctx context.Context, oldID, newID uuid.UUID) error

	// LatestForPatient returns the most recent non-superseded assessment.
	LatestForPatient(ctx context.Context, patientID uuid.UUID) (*Assessment, error)

	List(ctx context.Context, q *ListAssessmentsQuery) (*PagedAssessments, error)
}
