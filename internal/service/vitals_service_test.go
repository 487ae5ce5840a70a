package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/careward/wardflow/internal/domain"
	"github.com/careward/wardflow/internal/domain/vitals"
	"github.com/careward/wardflow/internal/repository/memrepo"
)

func iptr(v int) *int { return &v }

func fptr(v float64) *float64 { return &v }

type vitalsFixture struct {
	svc       *VitalsService
	repo      *memrepo.VitalsRepository
	patientID uuid.UUID
}

func newVitalsFixture(t *testing.T) *vitalsFixture {
	t.Helper()
	wf := newWorkflowFixture(t)
	repo := memrepo.NewVitalsRepository()
	return &vitalsFixture{
		svc:       NewVitalsService(repo, wf.patients, zap.NewNop()),
		repo:      repo,
		patientID: wf.patientID,
	}
}

func TestRecordVitals(t *testing.T) {
	f := newVitalsFixture(t)

	r, err := f.svc.Record(context.Background(), &vitals.RecordVitalsCommand{
		PatientID:    f.patientID,
		SpO2:         iptr(95),
		TemperatureC: fptr(37.2),
		HeartRate:    iptr(88),
	}, nurseActor())
	require.NoError(t, err)

	assert.Equal(t, "manual", r.Source)
	assert.False(t, r.ObservedAt.IsZero(), "missing observation time defaults to now")
	assert.Equal(t, domain.RoleNurse, r.RecordedByRole)
	assert.Equal(t, "ward-a", r.WardID)
}

func TestRecordVitalsRejectsEmptyObservation(t *testing.T) {
	f := newVitalsFixture(t)

	_, err := f.svc.Record(context.Background(), &vitals.RecordVitalsCommand{
		PatientID: f.patientID,
	}, nurseActor())
	assert.ErrorIs(t, err, vitals.ErrEmptyObservation)
}

func TestRecordVitalsRejectsOutOfRange(t *testing.T) {
	f := newVitalsFixture(t)
	ctx := context.Background()
	nurse := nurseActor()

	cases := []*vitals.RecordVitalsCommand{
		{PatientID: f.patientID, SpO2: iptr(120)},
		{PatientID: f.patientID, TemperatureC: fptr(50)},
		{PatientID: f.patientID, RespiratoryRate: iptr(-4)},
		{PatientID: f.patientID, HeartRate: iptr(400)},
		{PatientID: f.patientID, PainScore: iptr(11)},
	}
	for _, cmd := range cases {
		_, err := f.svc.Record(ctx, cmd, nurse)
		assert.ErrorIs(t, err, vitals.ErrMeasurementOutOfRange)
	}
}

func TestRecordVitalsRejectsFutureObservation(t *testing.T) {
	f := newVitalsFixture(t)

	_, err := f.svc.Record(context.Background(), &vitals.RecordVitalsCommand{
		PatientID:  f.patientID,
		SpO2:       iptr(97),
		ObservedAt: time.Now().Add(2 * time.Hour),
	}, nurseActor())
	assert.ErrorIs(t, err, vitals.ErrObservedInFuture)
}

func TestPatientSelfReportScope(t *testing.T) {
	f := newVitalsFixture(t)
	ctx := context.Background()

	selfID := f.patientID
	self := domain.Actor{ID: uuid.New(), Role: domain.RolePatient, PatientID: &selfID}
	_, err := f.svc.Record(ctx, &vitals.RecordVitalsCommand{
		PatientID:    f.patientID,
		TemperatureC: fptr(38.1),
		Source:       "patient_daily_check",
	}, self)
	require.NoError(t, err)

	otherID := uuid.New()
	stranger := domain.Actor{ID: uuid.New(), Role: domain.RolePatient, PatientID: &otherID}
	_, err = f.svc.Record(ctx, &vitals.RecordVitalsCommand{
		PatientID: f.patientID,
		SpO2:      iptr(96),
	}, stranger)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.Latest(ctx, f.patientID, stranger)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestLatestVitals(t *testing.T) {
	f := newVitalsFixture(t)
	ctx := context.Background()
	nurse := nurseActor()

	_, err := f.svc.Latest(ctx, f.patientID, nurse)
	assert.ErrorIs(t, err, vitals.ErrNoVitals)

	older := time.Now().UTC().Add(-time.Hour)
	newer := time.Now().UTC().Add(-time.Minute)
	_, err = f.svc.Record(ctx, &vitals.RecordVitalsCommand{
		PatientID: f.patientID, SpO2: iptr(93), ObservedAt: older,
	}, nurse)
	require.NoError(t, err)
	_, err = f.svc.Record(ctx, &vitals.RecordVitalsCommand{
		PatientID: f.patientID, SpO2: iptr(91), ObservedAt: newer,
	}, nurse)
	require.NoError(t, err)

	latest, err := f.svc.Latest(ctx, f.patientID, nurse)
	require.NoError(t, err)
	require.NotNil(t, latest.SpO2)
	assert.Equal(t, 91, *latest.SpO2)

	records, err := f.svc.ListByPatient(ctx, f.patientID, nurse, 10)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 91, *records[0].SpO2, "newest first")
}
