package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/careward/wardflow/internal/domain"
	"github.com/careward/wardflow/internal/domain/assessment"
	"github.com/careward/wardflow/internal/domain/patient"
	"github.com/careward/wardflow/internal/domain/vitals"
	"github.com/careward/wardflow/internal/orchestrator"
)

// AssessmentService runs the orchestration pipeline for a patient and
// manages the resulting immutable records. Only staff may run the
// pipeline; patients can read their own finalized assessments.
type AssessmentService struct {
	assessments assessment.Repository
	patients    patient.Repository
	vitals      vitals.Repository
	orch        *orchestrator.Orchestrator
	workflowSvc *WorkflowService
	log         *zap.Logger

	// lowConfidenceTarget is the role suggested for forwarding when a
	// run finalizes low-confidence. Suggestion only; no auto-forward.
	lowConfidenceTarget domain.Role
}

func NewAssessmentService(
	assessments assessment.Repository,
	patients patient.Repository,
	vitalsRepo vitals.Repository,
	orch *orchestrator.Orchestrator,
	workflowSvc *WorkflowService,
	lowConfidenceTarget domain.Role,
	log *zap.Logger,
) *AssessmentService {
	return &AssessmentService{
		assessments:         assessments,
		patients:            patients,
		vitals:              vitalsRepo,
		orch:                orch,
		workflowSvc:         workflowSvc,
		lowConfidenceTarget: lowConfidenceTarget,
		log:                 log,
	}
}

// RunAssessmentCommand triggers one pipeline run.
type RunAssessmentCommand struct {
	PatientID uuid.UUID
	RequestID *uuid.UUID
	// Text is the typed note; AudioRef/ImageRef reference stored payloads.
	Text     string
	AudioRef string
	ImageRef string
}

// RunResult is what the handler returns to the caller.
type RunResult struct {
	Assessment *assessment.Assessment
	// SuggestedForwardTarget is set when the run finalized low-confidence.
	SuggestedForwardTarget domain.Role
}

// Run executes the pipeline and persists the finalized assessment. A
// degraded pipeline still commits; only cancellation or persistence
// failure aborts the run.
func (s *AssessmentService) Run(ctx context.Context, cmd *RunAssessmentCommand, actor domain.Actor) (*RunResult, error) {
	if !actor.Role.IsStaff() {
		return nil, ErrForbidden
	}

	p, err := s.patients.GetByID(ctx, cmd.PatientID)
	if err != nil {
		return nil, fmt.Errorf("loading patient: %w", err)
	}

	latest, err := s.vitals.Latest(ctx, cmd.PatientID)
	if err != nil && !errors.Is(err, vitals.ErrNoVitals) {
		return nil, fmt.Errorf("loading vitals: %w", err)
	}

	in := &orchestrator.Input{
		PatientID: p.ID,
		RequestID: cmd.RequestID,
		WardID:    p.WardID,
		Age:       p.Age(),
		Sex:       string(p.Sex),
		Chief:     p.ChiefComplaint,
		History:   p.History,
		Text:      cmd.Text,
		AudioRef:  cmd.AudioRef,
		ImageRef:  cmd.ImageRef,
		Vitals:    latest,
		ActorID:   actor.ID,
		ActorRole: actor.Role,
	}

	res, err := s.orch.Run(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("running pipeline: %w", err)
	}

	if err := s.assessments.Create(ctx, res.Assessment); err != nil {
		s.log.Error("failed to persist assessment", zap.Error(err))
		return nil, fmt.Errorf("persisting assessment: %w", err)
	}

	if cmd.RequestID != nil {
		if err := s.workflowSvc.AttachAssessment(ctx, *cmd.RequestID, res.Assessment.ID, res.FullFailure, actor); err != nil {
			// The assessment exists regardless; surface the linkage failure
			// without discarding the result.
			s.log.Error("failed to attach assessment to request",
				zap.String("request_id", cmd.RequestID.String()),
				zap.Error(err))
		}
	}

	out := &RunResult{Assessment: res.Assessment}
	if res.Assessment.Confidence == assessment.ConfidenceLow {
		out.SuggestedForwardTarget = s.lowConfidenceTarget
	}
	return out, nil
}

func (s *AssessmentService) Get(ctx context.Context, id uuid.UUID, actor domain.Actor) (*assessment.Assessment, error) {
	a, err := s.assessments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role == domain.RolePatient {
		if actor.PatientID == nil || *actor.PatientID != a.PatientID {
			return nil, ErrForbidden
		}
	}
	return a, nil
}

func (s *AssessmentService) List(ctx context.Context, q *assessment.ListAssessmentsQuery, actor domain.Actor) (*assessment.PagedAssessments, error) {
	if actor.Role == domain.RolePatient {
		if actor.PatientID == nil {
			return nil, ErrForbidden
		}
		q.PatientID = actor.PatientID
	}
	if q.PageSize <= 0 || q.PageSize > 100 {
		q.PageSize = 20
	}
	if q.Page <= 0 {
		q.Page = 1
	}
	return s.assessments.List(ctx, q)
}

// Supersede re-runs the pipeline for the same patient and links the old
// record to the replacement. The old assessment stays readable.
func (s *AssessmentService) Supersede(ctx context.Context, oldID uuid.UUID, cmd *RunAssessmentCommand, actor domain.Actor) (*RunResult, error) {
	if !actor.Role.IsStaff() {
		return nil, ErrForbidden
	}

	old, err := s.assessments.GetByID(ctx, oldID)
	if err != nil {
		return nil, err
	}
	if old.IsSuperseded() {
		return nil, assessment.ErrAlreadySuperseded
	}
	if old.PatientID != cmd.PatientID {
		return nil, &ValidationError{Fields: []string{"patient_id does not match the assessment being superseded"}}
	}

	res, err := s.Run(ctx, cmd, actor)
	if err != nil {
		return nil, err
	}

	if err := s.assessments.MarkSuperseded(ctx, oldID, res.Assessment.ID); err != nil {
		s.log.Error("failed to mark assessment superseded",
			zap.String("old_id", oldID.String()),
			zap.String("new_id", res.Assessment.ID.String()),
			zap.Error(err))
		return nil, fmt.Errorf("marking superseded: %w", err)
	}
	return res, nil
}
