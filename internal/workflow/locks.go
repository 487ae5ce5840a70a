package workflow

import (
	"sync"

	"github.com/google/uuid"
)

// LockManager serializes request commits per patient. Locks are advisory
// and held only around the read-check-commit window, never across model
// calls, so a slow pipeline cannot starve the inbox.
type LockManager struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*patientLock
}

type patientLock struct {
	mu   sync.Mutex
	refs int
}

func NewLockManager() *LockManager {
	return &LockManager{locks: make(map[uuid.UUID]*patientLock)}
}

// Acquire blocks until the patient's lock is held and returns the release
// function. Entries are reference-counted and removed when unused, so the
// map does not grow with patient churn.
func (m *LockManager) Acquire(patientID uuid.UUID) func() {
	m.mu.Lock()
	l, ok := m.locks[patientID]
	if !ok {
		l = &patientLock{}
		m.locks[patientID] = l
	}
	l.refs++
	m.mu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()
		m.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(m.locks, patientID)
		}
		m.mu.Unlock()
	}
}
