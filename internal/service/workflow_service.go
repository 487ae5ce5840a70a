package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/careward/wardflow/internal/domain"
	"github.com/careward/wardflow/internal/domain/patient"
	"github.com/careward/wardflow/internal/domain/request"
	"github.com/careward/wardflow/internal/workflow"
	"github.com/careward/wardflow/pkg/metrics"
)

// WorkflowService drives ward requests through their state machine. Every
// commit happens under the patient's advisory lock with an optimistic
// version check, and every accepted transition writes its audit row in
// the same commit.
type WorkflowService struct {
	requests    request.Repository
	patients    patient.Repository
	locks       *workflow.LockManager
	transitions *TransitionLogService
	log         *zap.Logger
	metrics     *metrics.Collector
}

func NewWorkflowService(
	requests request.Repository,
	patients patient.Repository,
	locks *workflow.LockManager,
	transitions *TransitionLogService,
	log *zap.Logger,
	collector *metrics.Collector,
) *WorkflowService {
	return &WorkflowService{
		requests:    requests,
		patients:    patients,
		locks:       locks,
		transitions: transitions,
		log:         log,
		metrics:     collector,
	}
}

func (s *WorkflowService) CreateRequest(ctx context.Context, cmd *request.CreateRequestCommand, actor domain.Actor) (*request.Request, error) {
	if err := validateCreateRequest(cmd, actor); err != nil {
		return nil, err
	}

	p, err := s.patients.GetByID(ctx, cmd.PatientID)
	if err != nil {
		return nil, fmt.Errorf("verifying patient: %w", err)
	}
	if !p.IsAdmitted() {
		return nil, patient.ErrPatientNotAdmitted
	}

	target := cmd.TargetRole
	if target == "" {
		target = domain.RoleNurse
	}

	r := &request.Request{
		PatientID:   cmd.PatientID,
		WardID:      p.WardID,
		OriginRole:  actor.Role,
		TargetRole:  target,
		OwnerRole:   target,
		PriorOwner:  actor.Role,
		State:       request.StateCreated,
		PayloadKind: cmd.PayloadKind,
		PayloadRef:  cmd.PayloadRef,
		Summary:     strings.TrimSpace(cmd.Summary),
		Escalated:   cmd.Escalated,
		CreatedBy:   actor.ID,
	}

	entry := &domain.TransitionLog{
		ActorID:   actor.ID,
		ActorRole: actor.Role,
		FromState: "",
		ToState:   string(request.StateCreated),
		FromOwner: actor.Role,
		ToOwner:   r.OwnerRole,
	}
	if err := s.requests.Create(ctx, r, entry); err != nil {
		s.log.Error("failed to create request", zap.Error(err))
		return nil, fmt.Errorf("creating request: %w", err)
	}

	s.metrics.TransitionLogEntries.Inc()
	s.metrics.TransitionsTotal.WithLabelValues("", string(request.StateCreated)).Inc()

	s.log.Info("request created",
		zap.String("request_id", r.ID.String()),
		zap.String("patient_id", r.PatientID.String()),
		zap.String("origin_role", string(r.OriginRole)),
		zap.Bool("escalated", r.Escalated),
	)
	return r, nil
}

func (s *WorkflowService) GetRequest(ctx context.Context, id uuid.UUID, actor domain.Actor) (*request.Request, error) {
	r, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role == domain.RolePatient {
		if actor.PatientID == nil || *actor.PatientID != r.PatientID {
			return nil, ErrForbidden
		}
	}
	return r, nil
}

// ListInbox returns the requests visible to the actor. Patients see only
// their own; staff default to the requests their role currently owns.
func (s *WorkflowService) ListInbox(ctx context.Context, q *request.ListRequestsQuery, actor domain.Actor) (*request.PagedRequests, error) {
	if actor.Role == domain.RolePatient {
		if actor.PatientID == nil {
			return nil, ErrForbidden
		}
		q.PatientID = actor.PatientID
		q.OwnerRole = nil
	} else if q.OwnerRole == nil && q.PatientID == nil {
		role := actor.Role
		q.OwnerRole = &role
	}
	if q.PageSize <= 0 || q.PageSize > 100 {
		q.PageSize = 20
	}
	if q.Page <= 0 {
		q.Page = 1
	}
	return s.requests.List(ctx, q)
}

// AdvanceOptions carries the optional inputs of a transition.
type AdvanceOptions struct {
	// ForwardTarget is required for the forward action.
	ForwardTarget domain.Role
	Note          string
	// AssessmentID or HandoverID attach the forward payload.
	AssessmentID *uuid.UUID
	HandoverID   *uuid.UUID
}

// Advance applies one action to a request. The read-check-commit window
// runs under the patient's lock; a lost optimistic-version race returns
// request.ErrVersionConflict, which callers may retry.
func (s *WorkflowService) Advance(ctx context.Context, id uuid.UUID, action workflow.Action, actor domain.Actor, opts AdvanceOptions) (*request.Request, error) {
	next, ok := workflow.TargetState(action)
	if !ok {
		return nil, &workflow.InvalidActionError{Action: action}
	}

	r, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Acquire(r.PatientID)
	defer unlock()

	// Reload under the lock; another commit may have advanced it.
	r, err = s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !workflow.Permitted(r, actor, action) {
		return nil, &workflow.InvalidActionError{
			Action:  action,
			State:   r.State,
			Allowed: workflow.AllowedActions(r, actor),
		}
	}

	if action == workflow.ActionForward {
		if opts.AssessmentID != nil {
			r.AssessmentID = opts.AssessmentID
		}
		if opts.HandoverID != nil {
			r.HandoverID = opts.HandoverID
		}
		if r.AssessmentID == nil && r.HandoverID == nil {
			return nil, request.ErrForwardPayloadMissing
		}
		if opts.ForwardTarget == "" || !opts.ForwardTarget.IsStaff() {
			return nil, request.ErrForwardTargetRequired
		}
	}

	fromState := r.State
	fromOwner := r.OwnerRole
	expectedVersion := r.Version

	if err := r.Advance(next, opts.ForwardTarget, time.Now().UTC()); err != nil {
		return nil, err
	}

	entry := &domain.TransitionLog{
		RequestID: r.ID,
		ActorID:   actor.ID,
		ActorRole: actor.Role,
		FromState: string(fromState),
		ToState:   string(r.State),
		FromOwner: fromOwner,
		ToOwner:   r.OwnerRole,
		Note:      opts.Note,
	}
	if err := s.requests.UpdateWithVersion(ctx, r, expectedVersion, entry); err != nil {
		if errors.Is(err, request.ErrVersionConflict) {
			s.metrics.TransitionConflicts.Inc()
			s.log.Warn("transition lost version race",
				zap.String("request_id", id.String()),
				zap.String("action", string(action)),
			)
		}
		return nil, err
	}

	s.metrics.TransitionLogEntries.Inc()
	s.metrics.TransitionsTotal.WithLabelValues(string(fromState), string(r.State)).Inc()

	s.log.Info("request advanced",
		zap.String("request_id", r.ID.String()),
		zap.String("action", string(action)),
		zap.String("from", string(fromState)),
		zap.String("to", string(r.State)),
		zap.String("owner", string(r.OwnerRole)),
	)
	return r, nil
}

// AllowedActions lists what the actor may do with the request right now.
func (s *WorkflowService) AllowedActions(ctx context.Context, id uuid.UUID, actor domain.Actor) ([]workflow.Action, error) {
	r, err := s.GetRequest(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	return workflow.AllowedActions(r, actor), nil
}

// History returns the request's transition log. Patients see only their
// own requests' history.
func (s *WorkflowService) History(ctx context.Context, id uuid.UUID, actor domain.Actor) ([]*domain.TransitionLog, error) {
	if _, err := s.GetRequest(ctx, id, actor); err != nil {
		return nil, err
	}
	return s.transitions.History(ctx, id)
}

// AttachAssessment links a finalized assessment to its request and flags
// the request for manual review when the pipeline fully failed. The flag
// never auto-forwards; routing stays a human decision.
func (s *WorkflowService) AttachAssessment(ctx context.Context, requestID, assessmentID uuid.UUID, fullFailure bool, actor domain.Actor) error {
	r, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return err
	}

	unlock := s.locks.Acquire(r.PatientID)
	defer unlock()

	r, err = s.requests.GetByID(ctx, requestID)
	if err != nil {
		return err
	}

	expectedVersion := r.Version
	r.AssessmentID = &assessmentID
	if fullFailure {
		r.RequiresManualReview = true
	}

	if err := s.requests.UpdateWithVersion(ctx, r, expectedVersion, nil); err != nil {
		if errors.Is(err, request.ErrVersionConflict) {
			s.metrics.TransitionConflicts.Inc()
		}
		return err
	}

	// The linkage is an annotation, not a state change; it is logged off
	// the critical path.
	note := "assessment attached"
	if fullFailure {
		note = "assessment attached; flagged for manual review"
	}
	s.transitions.RecordAsync(&domain.TransitionLog{
		RequestID: r.ID,
		ActorID:   actor.ID,
		ActorRole: actor.Role,
		FromState: string(r.State),
		ToState:   string(r.State),
		FromOwner: r.OwnerRole,
		ToOwner:   r.OwnerRole,
		Note:      note,
	})
	return nil
}

func validateCreateRequest(cmd *request.CreateRequestCommand, actor domain.Actor) error {
	var errs []string

	if cmd.PatientID == uuid.Nil {
		errs = append(errs, "patient_id is required")
	}
	if !cmd.PayloadKind.IsValid() {
		errs = append(errs, "payload_kind must be text, voice, image, or vitals")
	}
	if cmd.PayloadKind != request.PayloadText && cmd.PayloadRef == "" {
		errs = append(errs, "payload_ref is required for non-text payloads")
	}
	if cmd.PayloadKind == request.PayloadText && strings.TrimSpace(cmd.Summary) == "" {
		errs = append(errs, "summary is required for text requests")
	}
	if cmd.TargetRole != "" && !cmd.TargetRole.IsStaff() {
		errs = append(errs, "target_role must be nurse or doctor")
	}
	if actor.Role == domain.RolePatient {
		if actor.PatientID == nil || *actor.PatientID != cmd.PatientID {
			return ErrForbidden
		}
	}

	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
