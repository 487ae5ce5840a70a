package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/careward/wardflow/internal/domain"
	"github.com/careward/wardflow/internal/domain/patient"
)

type PatientService struct {
	repo patient.Repository
	log  *zap.Logger
}

func NewPatientService(repo patient.Repository, log *zap.Logger) *PatientService {
	return &PatientService{repo: repo, log: log}
}

func (s *PatientService) AdmitPatient(ctx context.Context, cmd *patient.AdmitPatientCommand, actor domain.Actor) (*patient.Patient, error) {
	if !actor.Role.IsStaff() {
		return nil, ErrForbidden
	}
	if err := validateAdmitCommand(cmd); err != nil {
		return nil, err
	}

	p := &patient.Patient{
		FirstName:         strings.TrimSpace(cmd.FirstName),
		LastName:          strings.TrimSpace(cmd.LastName),
		DateOfBirth:       cmd.DateOfBirth,
		Sex:               cmd.Sex,
		WardID:            cmd.WardID,
		BedID:             cmd.BedID,
		ChiefComplaint:    strings.TrimSpace(cmd.ChiefComplaint),
		History:           cmd.History,
		Allergies:         cmd.Allergies,
		ChronicConditions: cmd.ChronicConditions,
		Status:            patient.StatusAdmitted,
		AdmittedAt:        time.Now().UTC(),
		CreatedBy:         actor.ID,
	}

	if err := s.repo.Create(ctx, p); err != nil {
		s.log.Error("failed to admit patient", zap.Error(err))
		return nil, fmt.Errorf("admitting patient: %w", err)
	}

	s.log.Info("patient admitted",
		zap.String("patient_id", p.ID.String()),
		zap.String("ward_id", p.WardID),
		zap.String("admitted_by", actor.ID.String()),
	)
	return p, nil
}

func (s *PatientService) GetPatient(ctx context.Context, id uuid.UUID, actor domain.Actor) (*patient.Patient, error) {
	// RBAC: patients can only read their own record
	if actor.Role == domain.RolePatient {
		if actor.PatientID == nil || *actor.PatientID != id {
			return nil, ErrForbidden
		}
	}
	return s.repo.GetByID(ctx, id)
}

// DischargePatient closes the admission. Doctors only.
func (s *PatientService) DischargePatient(ctx context.Context, id uuid.UUID, actor domain.Actor) error {
	if actor.Role != domain.RoleDoctor {
		return ErrForbidden
	}

	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := p.Discharge(); err != nil {
		return err
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return fmt.Errorf("updating patient: %w", err)
	}

	s.log.Info("patient discharged",
		zap.String("patient_id", id.String()),
		zap.String("discharged_by", actor.ID.String()),
	)
	return nil
}

func (s *PatientService) ListPatients(ctx context.Context, q *patient.ListPatientsQuery, actor domain.Actor) (*patient.PagedPatients, error) {
	if !actor.Role.IsStaff() {
		return nil, ErrForbidden
	}
	if q.WardID == "" {
		q.WardID = actor.WardID
	}
	if q.PageSize <= 0 || q.PageSize > 100 {
		q.PageSize = 20
	}
	if q.Page <= 0 {
		q.Page = 1
	}
	return s.repo.List(ctx, q)
}

func validateAdmitCommand(cmd *patient.AdmitPatientCommand) error {
	var errs []string

	if strings.TrimSpace(cmd.FirstName) == "" {
		errs = append(errs, "first_name is required")
	}
	if strings.TrimSpace(cmd.LastName) == "" {
		errs = append(errs, "last_name is required")
	}
	if cmd.DateOfBirth.IsZero() {
		errs = append(errs, "date_of_birth is required")
	}
	if cmd.DateOfBirth.After(time.Now()) {
		errs = append(errs, "date_of_birth cannot be in the future")
	}
	if !cmd.Sex.IsValid() {
		errs = append(errs, "sex is invalid")
	}
	if strings.TrimSpace(cmd.WardID) == "" {
		errs = append(errs, "ward_id is required")
	}

	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
