// Package workflow holds the role-gated action table for ward requests
// and the per-patient commit locks. The state machine itself lives on the
// request entity; this package decides who may drive it.
package workflow

import (
	"fmt"
	"strings"

	"github.com/careward/wardflow/internal/domain"
	"github.com/careward/wardflow/internal/domain/request"
)

// Action is one operation a role can perform on a request.
type Action string

const (
	ActionTriage      Action = "triage"
	ActionStart       Action = "start"
	ActionForward     Action = "forward"
	ActionReturn      Action = "return"
	ActionResolve     Action = "resolve"
	ActionAcknowledge Action = "acknowledge"
	ActionArchive     Action = "archive"
)

// TargetState maps an action to the state it drives the request into.
func TargetState(a Action) (request.State, bool) {
	switch a {
	case ActionTriage:
		return request.StateTriaged, true
	case ActionStart:
		return request.StateInProgress, true
	case ActionForward:
		return request.StateForwarded, true
	case ActionReturn:
		return request.StateReturned, true
	case ActionResolve:
		return request.StateResolved, true
	case ActionAcknowledge:
		return request.StateAcknowledged, true
	case ActionArchive:
		return request.StateArchived, true
	}
	return "", false
}

// AllowedActions returns every action the actor may take on the request
// in its current state. Gating rules:
//
//   - advancing actions belong to the current owner role
//   - acknowledge belongs to the originating role; a doctor may override
//   - archive is staff-only and available in any non-terminal state
//   - patients act only on their own requests
func AllowedActions(r *request.Request, actor domain.Actor) []Action {
	if actor.Role == domain.RolePatient {
		if actor.PatientID == nil || *actor.PatientID != r.PatientID {
			return nil
		}
	}

	var actions []Action
	isOwner := actor.Role == r.OwnerRole

	switch r.State {
	case request.StateCreated:
		if isOwner {
			actions = append(actions, ActionTriage)
		}
	case request.StateTriaged:
		if isOwner {
			actions = append(actions, ActionStart)
		}
	case request.StateInProgress:
		if isOwner {
			actions = append(actions, ActionForward, ActionResolve, ActionReturn)
		}
	case request.StateForwarded:
		if isOwner {
			actions = append(actions, ActionResolve, ActionReturn)
		}
	case request.StateReturned:
		if isOwner {
			actions = append(actions, ActionStart)
		}
	case request.StateResolved:
		if actor.Role == r.OriginRole || actor.Role == domain.RoleDoctor {
			actions = append(actions, ActionAcknowledge)
		}
	}

	if !r.State.IsTerminal() && actor.Role.IsStaff() {
		actions = append(actions, ActionArchive)
	}
	return actions
}

// Permitted reports whether the actor may take the action right now.
func Permitted(r *request.Request, actor domain.Actor, a Action) bool {
	for _, allowed := range AllowedActions(r, actor) {
		if allowed == a {
			return true
		}
	}
	return false
}

// InvalidActionError rejects an action and tells the caller what would
// have been accepted instead.
type InvalidActionError struct {
	Action  Action
	State   request.State
	Allowed []Action
}

func (e *InvalidActionError) Error() string {
	names := make([]string, len(e.Allowed))
	for i, a := range e.Allowed {
		names[i] = string(a)
	}
	allowed := strings.Join(names, ", ")
	if allowed == "" {
		allowed = "none"
	}
	return fmt.Sprintf("action %q not allowed in state %q (allowed: %s)", e.Action, e.State, allowed)
}

func (e *InvalidActionError) Unwrap() error {
	return request.ErrInvalidTransition
}
