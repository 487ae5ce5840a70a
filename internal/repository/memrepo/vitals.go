package memrepo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/careward/wardflow/internal/domain/vitals"
)

type VitalsRepository struct {
	mu      sync.RWMutex
	records []*vitals.Record
}

func NewVitalsRepository() *VitalsRepository {
	return &VitalsRepository{}
}

func (r *VitalsRepository) Append(_ context.Context, rec *vitals.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	rec.CreatedAt = time.Now().UTC()

	cp := *rec
	r.records = append(r.records, &cp)
	return nil
}

func (r *VitalsRepository) Latest(_ context.Context, patientID uuid.UUID) (*vitals.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var latest *vitals.Record
	for _, rec := range r.records {
		if rec.PatientID != patientID {
			continue
		}
		if latest == nil || rec.ObservedAt.After(latest.ObservedAt) {
			latest = rec
		}
	}
	if latest == nil {
		return nil, vitals.ErrNoVitals
	}
	cp := *latest
	return &cp, nil
}

func (r *VitalsRepository) ListByPatient(_ context.Context, patientID uuid.UUID, limit int) ([]*vitals.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}

	var matched []*vitals.Record
	for _, rec := range r.records {
		if rec.PatientID != patientID {
			continue
		}
		cp := *rec
		matched = append(matched, &cp)
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].ObservedAt.After(matched[j].ObservedAt)
	})
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}
