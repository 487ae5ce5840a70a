package vitals

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/careward/wardflow/internal/domain"
)

// Record is one vitals observation. Records are append-only; corrections
// are recorded as new observations.
type Record struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time `gorm:"autoCreateTime;index"`

	PatientID uuid.UUID `gorm:"column:patient_id;type:uuid;not null;index"`
	WardID    string    `gorm:"column:ward_id;type:varchar(50);not null;index"`

	// ObservedAt is when the measurement was taken, which may lag ingestion.
	ObservedAt time.Time `gorm:"column:observed_at;not null;index"`

	SpO2            *int     `gorm:"column:spo2"`
	TemperatureC    *float64 `gorm:"column:temperature_c"`
	RespiratoryRate *int     `gorm:"column:respiratory_rate"`
	HeartRate       *int     `gorm:"column:heart_rate"`
	SystolicBP      *int     `gorm:"column:systolic_bp"`
	PainScore       *int     `gorm:"column:pain_score"`

	Source string `gorm:"column:source;type:varchar(30);not null;default:'manual'"`

	RecordedBy     uuid.UUID   `gorm:"column:recorded_by;type:uuid;not null"`
	RecordedByRole domain.Role `gorm:"column:recorded_by_role;type:varchar(20);not null"`
}

func (Record) TableName() string {
	return "clinical.vitals"
}

// HasAnyMeasurement reports whether at least one field carries a value.
// Empty observations are rejected at ingestion.
func (r *Record) HasAnyMeasurement() bool {
	return r.SpO2 != nil || r.TemperatureC != nil || r.RespiratoryRate != nil ||
		r.HeartRate != nil || r.SystolicBP != nil || r.PainScore != nil
}

type RecordVitalsCommand struct {
	PatientID       uuid.UUID
	ObservedAt      time.Time
	SpO2            *int
	TemperatureC    *float64
	RespiratoryRate *int
	HeartRate       *int
	SystolicBP      *int
	PainScore       *int
	Source          string
}

type Repository interface {
	// Append persists a new observation. Records are never updated or deleted.
	Append(ctx context.Context, r *Record) error

	// Latest returns the most recent observation for a patient, or
	// ErrNoVitals when none has been recorded.
	Latest(ctx context.Context, patientID uuid.UUID) (*Record, error)

	// ListByPatient returns observations newest first, capped at limit.
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit int) ([]*Record, error)
}
