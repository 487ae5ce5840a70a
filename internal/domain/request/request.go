package request

import (
	"time"

	"github.com/google/uuid"

	"github.com/careward/wardflow/internal/domain"
)

// PayloadKind tags what an inbox item carries.
type PayloadKind string

const (
	PayloadText   PayloadKind = "text"
	PayloadVoice  PayloadKind = "voice"
	PayloadImage  PayloadKind = "image"
	PayloadVitals PayloadKind = "vitals"
)

func (k PayloadKind) IsValid() bool {
	switch k {
	case PayloadText, PayloadVoice, PayloadImage, PayloadVitals:
		return true
	}
	return false
}

// State transition possibilities:
//
//	created → triaged → in_progress → forwarded → resolved → acknowledged
//	in_progress → returned → in_progress   (owner reverts to prior role)
//	forwarded   → returned → in_progress
//	any non-terminal state → archived      (administrative close)
type State string

const (
	StateCreated      State = "created"
	StateTriaged      State = "triaged"
	StateInProgress   State = "in_progress"
	StateForwarded    State = "forwarded"
	StateReturned     State = "returned"
	StateResolved     State = "resolved"
	StateAcknowledged State = "acknowledged"
	StateArchived     State = "archived"
)

// IsTerminal reports whether no further role action can advance the request.
func (s State) IsTerminal() bool {
	return s == StateAcknowledged || s == StateArchived
}

var transitions = map[State][]State{
	StateCreated:      {StateTriaged, StateArchived},
	StateTriaged:      {StateInProgress, StateArchived},
	StateInProgress:   {StateForwarded, StateResolved, StateReturned, StateArchived},
	StateForwarded:    {StateResolved, StateReturned, StateArchived},
	StateReturned:     {StateInProgress, StateArchived},
	StateResolved:     {StateAcknowledged, StateArchived},
	StateAcknowledged: {},
	StateArchived:     {},
}

// Request is one inbox item travelling between roles. Exactly one owner
// role is responsible for it at any time; ownership and state change
// together in a single atomic commit.
type Request struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time `gorm:"autoCreateTime;index"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`

	PatientID uuid.UUID `gorm:"column:patient_id;type:uuid;not null;index"`
	WardID    string    `gorm:"column:ward_id;type:varchar(50);not null;index"`

	OriginRole domain.Role `gorm:"column:origin_role;type:varchar(20);not null"`
	TargetRole domain.Role `gorm:"column:target_role;type:varchar(20);not null"`
	OwnerRole  domain.Role `gorm:"column:owner_role;type:varchar(20);not null;index"`
	// PriorOwner is the role that held the request before the last
	// ownership change; the Returned transition reverts to it.
	PriorOwner domain.Role `gorm:"column:prior_owner;type:varchar(20);not null"`

	State State `gorm:"column:state;type:varchar(30);not null;default:'created';index"`

	PayloadKind PayloadKind `gorm:"column:payload_kind;type:varchar(20);not null"`
	PayloadRef  string      `gorm:"column:payload_ref;type:text"`
	Summary     string      `gorm:"column:summary;type:text"`

	Escalated            bool `gorm:"column:escalated;default:false;index"`
	RequiresManualReview bool `gorm:"column:requires_manual_review;default:false"`

	// Forward payload: the assessment or handover attached at Forwarded.
	AssessmentID *uuid.UUID `gorm:"column:assessment_id;type:uuid;index"`
	HandoverID   *uuid.UUID `gorm:"column:handover_id;type:uuid"`

	ArchivedAt *time.Time `gorm:"column:archived_at"`

	// Version guards against concurrent commits (optimistic locking).
	Version int64 `gorm:"column:version;not null;default:0"`

	CreatedBy uuid.UUID `gorm:"column:created_by;type:uuid;not null"`
}

func (Request) TableName() string {
	return "ward.requests"
}

func (r *Request) CanTransitionTo(next State) bool {
	for _, s := range transitions[r.State] {
		if s == next {
			return true
		}
	}
	return false
}

// ownerAfter computes the owner role resulting from a transition.
// Ownership semantics:
//
//	forwarded    → the forward target takes over
//	returned     → reverts to the prior owner
//	resolved+ack → the originating requester confirms receipt
//	otherwise    → unchanged
func (r *Request) ownerAfter(next State, forwardTarget domain.Role) domain.Role {
	switch next {
	case StateForwarded:
		return forwardTarget
	case StateReturned:
		return r.PriorOwner
	case StateResolved, StateAcknowledged:
		return r.OriginRole
	default:
		return r.OwnerRole
	}
}

// Advance mutates the request in memory for a validated transition.
// Callers must persist the result atomically; on persistence failure the
// in-memory mutation must be discarded.
func (r *Request) Advance(next State, forwardTarget domain.Role, now time.Time) error {
	if r.State.IsTerminal() {
		return ErrRequestTerminal
	}
	if !r.CanTransitionTo(next) {
		return ErrInvalidTransition
	}
	if next == StateForwarded && !forwardTarget.IsValid() {
		return ErrForwardTargetRequired
	}

	newOwner := r.ownerAfter(next, forwardTarget)
	if newOwner != r.OwnerRole {
		r.PriorOwner = r.OwnerRole
	}
	r.OwnerRole = newOwner
	r.State = next
	if next == StateArchived {
		r.ArchivedAt = &now
	}
	return nil
}

type CreateRequestCommand struct {
	PatientID   uuid.UUID
	WardID      string
	OriginRole  domain.Role
	TargetRole  domain.Role
	PayloadKind PayloadKind
	PayloadRef  string
	Summary     string
	Escalated   bool
	CreatedBy   uuid.UUID
}

type ListRequestsQuery struct {
	PatientID *uuid.UUID
	WardID    string
	OwnerRole *domain.Role
	State     *State
	Escalated *bool
	Page      int
	PageSize  int
}

type PagedRequests struct {
	Requests   []*Request
	TotalCount int64
	Page       int
	PageSize   int
	TotalPages int
}
