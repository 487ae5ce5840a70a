package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/careward/wardflow/internal/domain"
	"github.com/careward/wardflow/internal/domain/patient"
	"github.com/careward/wardflow/internal/domain/vitals"
)

// VitalsService ingests vital-sign observations. Records are append-only;
// a wrong reading is corrected by recording a new one.
type VitalsService struct {
	repo     vitals.Repository
	patients patient.Repository
	log      *zap.Logger
}

func NewVitalsService(repo vitals.Repository, patients patient.Repository, log *zap.Logger) *VitalsService {
	return &VitalsService{repo: repo, patients: patients, log: log}
}

func (s *VitalsService) Record(ctx context.Context, cmd *vitals.RecordVitalsCommand, actor domain.Actor) (*vitals.Record, error) {
	// Patients may self-report through their daily check; staff record at
	// the bedside. Either way the observation is attributed to the actor.
	if actor.Role == domain.RolePatient {
		if actor.PatientID == nil || *actor.PatientID != cmd.PatientID {
			return nil, ErrForbidden
		}
	}

	p, err := s.patients.GetByID(ctx, cmd.PatientID)
	if err != nil {
		return nil, fmt.Errorf("verifying patient: %w", err)
	}

	r := &vitals.Record{
		PatientID:       p.ID,
		WardID:          p.WardID,
		ObservedAt:      cmd.ObservedAt,
		SpO2:            cmd.SpO2,
		TemperatureC:    cmd.TemperatureC,
		RespiratoryRate: cmd.RespiratoryRate,
		HeartRate:       cmd.HeartRate,
		SystolicBP:      cmd.SystolicBP,
		PainScore:       cmd.PainScore,
		Source:          cmd.Source,
		RecordedBy:      actor.ID,
		RecordedByRole:  actor.Role,
	}
	if r.Source == "" {
		r.Source = "manual"
	}
	if r.ObservedAt.IsZero() {
		r.ObservedAt = time.Now().UTC()
	}

	if err := validateVitals(r); err != nil {
		return nil, err
	}

	if err := s.repo.Append(ctx, r); err != nil {
		s.log.Error("failed to append vitals", zap.Error(err))
		return nil, fmt.Errorf("recording vitals: %w", err)
	}
	return r, nil
}

func (s *VitalsService) Latest(ctx context.Context, patientID uuid.UUID, actor domain.Actor) (*vitals.Record, error) {
	if actor.Role == domain.RolePatient {
		if actor.PatientID == nil || *actor.PatientID != patientID {
			return nil, ErrForbidden
		}
	}
	return s.repo.Latest(ctx, patientID)
}

func (s *VitalsService) ListByPatient(ctx context.Context, patientID uuid.UUID, actor domain.Actor, limit int) ([]*vitals.Record, error) {
	if actor.Role == domain.RolePatient {
		if actor.PatientID == nil || *actor.PatientID != patientID {
			return nil, ErrForbidden
		}
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.repo.ListByPatient(ctx, patientID, limit)
}

func validateVitals(r *vitals.Record) error {
	if !r.HasAnyMeasurement() {
		return vitals.ErrEmptyObservation
	}
	if r.ObservedAt.After(time.Now().Add(time.Minute)) {
		return vitals.ErrObservedInFuture
	}

	switch {
	case r.SpO2 != nil && (*r.SpO2 < 0 || *r.SpO2 > 100):
		return vitals.ErrMeasurementOutOfRange
	case r.TemperatureC != nil && (*r.TemperatureC < 25 || *r.TemperatureC > 45):
		return vitals.ErrMeasurementOutOfRange
	case r.RespiratoryRate != nil && (*r.RespiratoryRate < 0 || *r.RespiratoryRate > 80):
		return vitals.ErrMeasurementOutOfRange
	case r.HeartRate != nil && (*r.HeartRate < 0 || *r.HeartRate > 300):
		return vitals.ErrMeasurementOutOfRange
	case r.SystolicBP != nil && (*r.SystolicBP < 0 || *r.SystolicBP > 300):
		return vitals.ErrMeasurementOutOfRange
	case r.PainScore != nil && (*r.PainScore < 0 || *r.PainScore > 10):
		return vitals.ErrMeasurementOutOfRange
	}
	return nil
}
