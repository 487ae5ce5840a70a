package gormrepo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/careward/wardflow/internal/domain/handover"
)

type HandoverRepository struct {
	db *gorm.DB
}

func NewHandoverRepository(db *gorm.DB) *HandoverRepository {
	return &HandoverRepository{db: db}
}

// Create assigns the next version for the patient inside a transaction so
// two concurrent regenerations cannot claim the same version.
func (r *HandoverRepository) Create(ctx context.Context, s *handover.Summary) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var latest int
		err := tx.Model(&handover.Summary{}).
			Where("patient_id = ?", s.PatientID).
			Select("COALESCE(MAX(version), 0)").
			Scan(&latest).Error
		if err != nil {
			return err
		}
		s.Version = latest + 1
		return tx.Create(s).Error
	})
}

func (r *HandoverRepository) GetByID(ctx context.Context, id uuid.UUID) (*handover.Summary, error) {
	var s handover.Summary
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, handover.ErrHandoverNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *HandoverRepository) LatestForPatient(ctx context.Context, patientID uuid.UUID) (*handover.Summary, error) {
	var s handover.Summary
	err := r.db.WithContext(ctx).
		Where("patient_id = ?", patientID).
		Order("version DESC").
		First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, handover.ErrHandoverNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *HandoverRepository) SetAnnotation(ctx context.Context, id uuid.UUID, note string, by uuid.UUID, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&handover.Summary{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"annotation":   note,
			"annotated_by": by,
			"annotated_at": at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return handover.ErrHandoverNotFound
	}
	return nil
}

func (r *HandoverRepository) ListByPatient(ctx context.Context, patientID uuid.UUID, limit int) ([]*handover.Summary, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var summaries []*handover.Summary
	err := r.db.WithContext(ctx).
		Where("patient_id = ?", patientID).
		Order("version DESC").
		Limit(limit).
		Find(&summaries).Error
	if err != nil {
		return nil, err
	}
	return summaries, nil
}
