package gormrepo

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/careward/wardflow/internal/domain"
)

var ErrStaffNotFound = errors.New("staff member not found")

type StaffRepository struct {
	db *gorm.DB
}

func NewStaffRepository(db *gorm.DB) *StaffRepository {
	return &StaffRepository{db: db}
}

func (r *StaffRepository) Create(ctx context.Context, m *domain.StaffMember) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *StaffRepository) GetByEmail(ctx context.Context, email string) (*domain.StaffMember, error) {
	var m domain.StaffMember
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrStaffNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *StaffRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.StaffMember, error) {
	var m domain.StaffMember
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrStaffNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}
