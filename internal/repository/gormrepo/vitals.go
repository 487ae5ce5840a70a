package gormrepo

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/careward/wardflow/internal/domain/vitals"
)

type VitalsRepository struct {
	db *gorm.DB
}

func NewVitalsRepository(db *gorm.DB) *VitalsRepository {
	return &VitalsRepository{db: db}
}

func (r *VitalsRepository) Append(ctx context.Context, rec *vitals.Record) error {
	return r.db.WithContext(ctx).Create(rec).Error
}

func (r *VitalsRepository) Latest(ctx context.Context, patientID uuid.UUID) (*vitals.Record, error) {
	var rec vitals.Record
	err := r.db.WithContext(ctx).
		Where("patient_id = ?", patientID).
		Order("observed_at DESC").
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, vitals.ErrNoVitals
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *VitalsRepository) ListByPatient(ctx context.Context, patientID uuid.UUID, limit int) ([]*vitals.Record, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var records []*vitals.Record
	err := r.db.WithContext(ctx).
		Where("patient_id = ?", patientID).
		Order("observed_at DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}
