package workflow

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careward/wardflow/internal/domain"
	"github.com/careward/wardflow/internal/domain/request"
)

func testRequest(state request.State, owner, origin domain.Role) *request.Request {
	return &request.Request{
		PatientID:  uuid.New(),
		OriginRole: origin,
		OwnerRole:  owner,
		State:      state,
	}
}

func TestAllowedActionsOwnerGating(t *testing.T) {
	nurse := domain.Actor{ID: uuid.New(), Role: domain.RoleNurse}
	doctor := domain.Actor{ID: uuid.New(), Role: domain.RoleDoctor}

	r := testRequest(request.StateInProgress, domain.RoleNurse, domain.RolePatient)

	assert.ElementsMatch(t,
		[]Action{ActionForward, ActionResolve, ActionReturn, ActionArchive},
		AllowedActions(r, nurse))

	// Non-owner staff may only archive.
	assert.ElementsMatch(t, []Action{ActionArchive}, AllowedActions(r, doctor))
}

func TestAllowedActionsAcknowledge(t *testing.T) {
	r := testRequest(request.StateResolved, domain.RolePatient, domain.RolePatient)
	patientActor := domain.Actor{ID: uuid.New(), Role: domain.RolePatient, PatientID: &r.PatientID}
	nurse := domain.Actor{ID: uuid.New(), Role: domain.RoleNurse}
	doctor := domain.Actor{ID: uuid.New(), Role: domain.RoleDoctor}

	assert.ElementsMatch(t, []Action{ActionAcknowledge}, AllowedActions(r, patientActor))
	// Doctor override applies even when the doctor is not the origin.
	assert.Contains(t, AllowedActions(r, doctor), ActionAcknowledge)
	assert.NotContains(t, AllowedActions(r, nurse), ActionAcknowledge)
}

func TestAllowedActionsPatientScope(t *testing.T) {
	r := testRequest(request.StateResolved, domain.RolePatient, domain.RolePatient)

	otherPatient := uuid.New()
	stranger := domain.Actor{ID: uuid.New(), Role: domain.RolePatient, PatientID: &otherPatient}
	assert.Empty(t, AllowedActions(r, stranger))

	noScope := domain.Actor{ID: uuid.New(), Role: domain.RolePatient}
	assert.Empty(t, AllowedActions(r, noScope))
}

func TestAllowedActionsTerminalStates(t *testing.T) {
	nurse := domain.Actor{ID: uuid.New(), Role: domain.RoleNurse}
	for _, state := range []request.State{request.StateAcknowledged, request.StateArchived} {
		r := testRequest(state, domain.RoleNurse, domain.RolePatient)
		assert.Empty(t, AllowedActions(r, nurse), "state %s", state)
	}
}

func TestTargetState(t *testing.T) {
	next, ok := TargetState(ActionForward)
	require.True(t, ok)
	assert.Equal(t, request.StateForwarded, next)

	_, ok = TargetState(Action("escalate"))
	assert.False(t, ok)
}

func TestInvalidActionErrorUnwrap(t *testing.T) {
	err := &InvalidActionError{
		Action:  ActionResolve,
		State:   request.StateCreated,
		Allowed: []Action{ActionTriage, ActionArchive},
	}
	assert.ErrorIs(t, err, request.ErrInvalidTransition)
	assert.Contains(t, err.Error(), "triage")
	assert.Contains(t, err.Error(), "resolve")
}

func TestLockManagerSerializesPerPatient(t *testing.T) {
	m := NewLockManager()
	patientID := uuid.New()

	counter := 0
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := m.Acquire(patientID)
			defer unlock()
			counter++
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
}
