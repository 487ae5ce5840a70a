// Package memrepo provides in-memory repository implementations backed by
// maps and mutexes. They honor the same error contracts as the PostgreSQL
// implementations and serve tests and database-less development runs.
package memrepo

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/careward/wardflow/internal/domain/patient"
)

type PatientRepository struct {
	mu       sync.RWMutex
	patients map[uuid.UUID]*patient.Patient
}

func NewPatientRepository() *PatientRepository {
	return &PatientRepository{patients: make(map[uuid.UUID]*patient.Patient)}
}

func (r *PatientRepository) Create(_ context.Context, p *patient.Patient) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p.BedID != "" {
		for _, existing := range r.patients {
			if existing.DeletedAt == nil &&
				existing.Status == patient.StatusAdmitted &&
				existing.WardID == p.WardID && existing.BedID == p.BedID {
				return patient.ErrBedOccupied
			}
		}
	}

	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	cp := *p
	r.patients[p.ID] = &cp
	return nil
}

func (r *PatientRepository) GetByID(_ context.Context, id uuid.UUID) (*patient.Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.patients[id]
	if !ok || p.DeletedAt != nil {
		return nil, patient.ErrPatientNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *PatientRepository) Update(_ context.Context, p *patient.Patient) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.patients[p.ID]; !ok {
		return patient.ErrPatientNotFound
	}
	p.UpdatedAt = time.Now().UTC()
	cp := *p
	r.patients[p.ID] = &cp
	return nil
}

func (r *PatientRepository) SoftDelete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.patients[id]
	if !ok || p.DeletedAt != nil {
		return patient.ErrPatientNotFound
	}
	now := time.Now().UTC()
	p.DeletedAt = &now
	return nil
}

func (r *PatientRepository) List(_ context.Context, q *patient.ListPatientsQuery) (*patient.PagedPatients, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*patient.Patient
	for _, p := range r.patients {
		if p.DeletedAt != nil {
			continue
		}
		if q.WardID != "" && p.WardID != q.WardID {
			continue
		}
		if q.Status != nil && p.Status != *q.Status {
			continue
		}
		cp := *p
		matched = append(matched, &cp)
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].AdmittedAt.After(matched[j].AdmittedAt)
	})

	total := int64(len(matched))
	page := pageSlice(len(matched), q.Page, q.PageSize)
	return &patient.PagedPatients{
		Patients:   matched[page.start:page.end],
		TotalCount: total,
		Page:       q.Page,
		PageSize:   q.PageSize,
		TotalPages: totalPages(total, q.PageSize),
	}, nil
}

type window struct {
	start, end int
}

func pageSlice(n, page, pageSize int) window {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = n
	}
	start := (page - 1) * pageSize
	if start > n {
		start = n
	}
	end := start + pageSize
	if end > n {
		end = n
	}
	return window{start: start, end: end}
}

func totalPages(total int64, pageSize int) int {
	if pageSize <= 0 {
		return 0
	}
	return int(math.Ceil(float64(total) / float64(pageSize)))
}
