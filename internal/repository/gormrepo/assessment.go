package gormrepo

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/careward/wardflow/internal/domain/assessment"
)

type AssessmentRepository struct {
	db *gorm.DB
}

func NewAssessmentRepository(db *gorm.DB) *AssessmentRepository {
	return &AssessmentRepository{db: db}
}

func (r *AssessmentRepository) Create(ctx context.Context, a *assessment.Assessment) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *AssessmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*assessment.Assessment, error) {
	var a assessment.Assessment
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, assessment.ErrAssessmentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// MarkSuperseded is the only mutation allowed on a finalized assessment.
func (r *AssessmentRepository) MarkSuperseded(ctx context.Context, oldID, newID uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Model(&assessment.Assessment{}).
		Where("id = ? AND finalized_at IS NOT NULL AND superseded_by IS NULL", oldID).
		Update("superseded_by", newID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		old, err := r.GetByID(ctx, oldID)
		if err != nil {
			return err
		}
		if !old.IsFinalized() {
			return assessment.ErrNotFinalized
		}
		return assessment.ErrAlreadySuperseded
	}
	return nil
}

func (r *AssessmentRepository) LatestForPatient(ctx context.Context, patientID uuid.UUID) (*assessment.Assessment, error) {
	var a assessment.Assessment
	err := r.db.WithContext(ctx).
		Where("patient_id = ? AND superseded_by IS NULL", patientID).
		Order("created_at DESC").
		First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, assessment.ErrAssessmentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AssessmentRepository) List(ctx context.Context, q *assessment.ListAssessmentsQuery) (*assessment.PagedAssessments, error) {
	query := r.db.WithContext(ctx).Model(&assessment.Assessment{})
	if q.PatientID != nil {
		query = query.Where("patient_id = ?", *q.PatientID)
	}
	if q.WardID != "" {
		query = query.Where("ward_id = ?", q.WardID)
	}
	if q.Confidence != nil {
		query = query.Where("confidence = ?", *q.Confidence)
	}
	if !q.IncludeSuperseded {
		query = query.Where("superseded_by IS NULL")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var assessments []*assessment.Assessment
	err := query.
		Order("created_at DESC").
		Offset((q.Page - 1) * q.PageSize).
		Limit(q.PageSize).
		Find(&assessments).Error
	if err != nil {
		return nil, err
	}

	return &assessment.PagedAssessments{
		Assessments: assessments,
		TotalCount:  total,
		Page:        q.Page,
		PageSize:    q.PageSize,
		TotalPages:  totalPages(total, q.PageSize),
	}, nil
}
