package memrepo

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/careward/wardflow/internal/domain"
)

var ErrStaffNotFound = errors.New("staff member not found")

type StaffRepository struct {
	mu      sync.RWMutex
	members map[uuid.UUID]*domain.StaffMember
}

func NewStaffRepository() *StaffRepository {
	return &StaffRepository{members: make(map[uuid.UUID]*domain.StaffMember)}
}

func (r *StaffRepository) Create(_ context.Context, m *domain.StaffMember) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.members {
		if strings.EqualFold(existing.Email, m.Email) {
			return errors.New("email already registered")
		}
	}

	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	now := time.Now().UTC()
	m.CreatedAt = now
	m.UpdatedAt = now

	cp := *m
	r.members[m.ID] = &cp
	return nil
}

func (r *StaffRepository) GetByEmail(_ context.Context, email string) (*domain.StaffMember, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, m := range r.members {
		if strings.EqualFold(m.Email, email) {
			cp := *m
			return &cp, nil
		}
	}
	return nil, ErrStaffNotFound
}

func (r *StaffRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.StaffMember, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.members[id]
	if !ok {
		return nil, ErrStaffNotFound
	}
	cp := *m
	return &cp, nil
}
