package memrepo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/careward/wardflow/internal/domain/assessment"
)

type AssessmentRepository struct {
	mu          sync.RWMutex
	assessments map[uuid.UUID]*assessment.Assessment
}

func NewAssessmentRepository() *AssessmentRepository {
	return &AssessmentRepository{assessments: make(map[uuid.UUID]*assessment.Assessment)}
}

func (r *AssessmentRepository) Create(_ context.Context, a *assessment.Assessment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now

	cp := *a
	r.assessments[a.ID] = &cp
	return nil
}

func (r *AssessmentRepository) GetByID(_ context.Context, id uuid.UUID) (*assessment.Assessment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.assessments[id]
	if !ok {
		return nil, assessment.ErrAssessmentNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *AssessmentRepository) MarkSuperseded(_ context.Context, oldID, newID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	old, ok := r.assessments[oldID]
	if !ok {
		return assessment.ErrAssessmentNotFound
	}
	if err := old.Supersede(newID); err != nil {
		return err
	}
	old.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *AssessmentRepository) LatestForPatient(_ context.Context, patientID uuid.UUID) (*assessment.Assessment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var latest *assessment.Assessment
	for _, a := range r.assessments {
		if a.PatientID != patientID || a.IsSuperseded() {
			continue
		}
		if latest == nil || a.CreatedAt.After(latest.CreatedAt) {
			latest = a
		}
	}
	if latest == nil {
		return nil, assessment.ErrAssessmentNotFound
	}
	cp := *latest
	return &cp, nil
}

func (r *AssessmentRepository) List(_ context.Context, q *assessment.ListAssessmentsQuery) (*assessment.PagedAssessments, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*assessment.Assessment
	for _, a := range r.assessments {
		if q.PatientID != nil && a.PatientID != *q.PatientID {
			continue
		}
		if q.WardID != "" && a.WardID != q.WardID {
			continue
		}
		if q.Confidence != nil && a.Confidence != *q.Confidence {
			continue
		}
		if !q.IncludeSuperseded && a.IsSuperseded() {
			continue
		}
		cp := *a
		matched = append(matched, &cp)
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	page := pageSlice(len(matched), q.Page, q.PageSize)
	return &assessment.PagedAssessments{
		Assessments: matched[page.start:page.end],
		TotalCount:  total,
		Page:        q.Page,
		PageSize:    q.PageSize,
		TotalPages:  totalPages(total, q.PageSize),
	}, nil
}
