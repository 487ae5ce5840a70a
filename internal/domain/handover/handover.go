package handover

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/careward/wardflow/internal/domain"
)

// Summary is a shift-change handover in SBAR form. Summaries are versioned
// per patient; regenerating produces the next version rather than mutating
// the previous one.
type Summary struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time `gorm:"autoCreateTime;index"`

	PatientID uuid.UUID `gorm:"column:patient_id;type:uuid;not null;index"`
	WardID    string    `gorm:"column:ward_id;type:varchar(50);not null;index"`

	Version int `gorm:"column:version;not null"`

	Situation      string `gorm:"column:situation;type:text;not null"`
	Background     string `gorm:"column:background;type:text;not null"`
	AssessmentText string `gorm:"column:assessment_text;type:text;not null"`
	Recommendation string `gorm:"column:recommendation;type:text;not null"`

	// ModelPolished is set when a language model refined the template
	// skeleton; false means the deterministic template output was kept.
	ModelPolished bool `gorm:"column:model_polished;default:false"`

	SourceAssessmentID *uuid.UUID `gorm:"column:source_assessment_id;type:uuid"`

	// Annotation is the one mutable field: a staff note added before the
	// handover is forwarded. The SBAR sections themselves never change.
	Annotation  string     `gorm:"column:annotation;type:text"`
	AnnotatedBy *uuid.UUID `gorm:"column:annotated_by;type:uuid"`
	AnnotatedAt *time.Time `gorm:"column:annotated_at"`

	GeneratedBy     uuid.UUID   `gorm:"column:generated_by;type:uuid;not null"`
	GeneratedByRole domain.Role `gorm:"column:generated_by_role;type:varchar(20);not null"`
}

func (Summary) TableName() string {
	return "clinical.handovers"
}

type Repository interface {
	// Create persists a new summary with Version set to one past the
	// patient's current latest.
	Create(ctx context.Context, s *Summary) error

	// GetByID retrieves a summary by primary key. Returns ErrHandoverNotFound if not found.
	GetByID(ctx context.Context, id uuid.UUID) (*Summary, error)

	// LatestForPatient returns the highest-version summary, or
	// ErrHandoverNotFound when the patient has none.
	LatestForPatient(ctx context.Context, patientID uuid.UUID) (*Summary, error)

	// ListByPatient returns summaries newest version first.
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit int) ([]*Summary, error)

	// SetAnnotation replaces the summary's annotation. Returns
	// ErrHandoverNotFound if the summary does not exist.
	SetAnnotation(ctx context.Context, id uuid.UUID, note string, by uuid.UUID, at time.Time) error
}
