package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/careward/wardflow/internal/adapters"
	"github.com/careward/wardflow/internal/domain"
	"github.com/careward/wardflow/internal/domain/vitals"
	"github.com/careward/wardflow/internal/repository/memrepo"
)

type generatorFunc func(ctx context.Context, req adapters.GenerateRequest) (*adapters.GenerateResult, error)

func (f generatorFunc) Generate(ctx context.Context, req adapters.GenerateRequest) (*adapters.GenerateResult, error) {
	return f(ctx, req)
}

type handoverFixture struct {
	wf        *workflowFixture
	handovers *memrepo.HandoverRepository
	vitals    *memrepo.VitalsRepository
	patientID uuid.UUID
}

func newHandoverFixture(t *testing.T) *handoverFixture {
	t.Helper()
	wf := newWorkflowFixture(t)
	return &handoverFixture{
		wf:        wf,
		handovers: memrepo.NewHandoverRepository(),
		vitals:    memrepo.NewVitalsRepository(),
		patientID: wf.patientID,
	}
}

func (f *handoverFixture) service(gen adapters.Generator, useModel bool) *HandoverService {
	return NewHandoverService(f.handovers, f.wf.patients, memrepo.NewAssessmentRepository(),
		f.vitals, gen, useModel, zap.NewNop())
}

func (f *handoverFixture) recordVitals(t *testing.T) {
	t.Helper()
	require.NoError(t, f.vitals.Append(context.Background(), &vitals.Record{
		PatientID:       f.patientID,
		WardID:          "ward-a",
		ObservedAt:      time.Now().UTC(),
		TemperatureC:    fptr(37.8),
		HeartRate:       iptr(96),
		SpO2:            iptr(95),
		Source:          "manual",
		RecordedBy:      uuid.New(),
		RecordedByRole:  domain.RoleNurse,
		RespiratoryRate: iptr(18),
	}))
}

func TestGenerateHandoverStaffOnly(t *testing.T) {
	f := newHandoverFixture(t)
	svc := f.service(adapters.StaticGenerator{}, false)

	id := f.patientID
	pat := domain.Actor{ID: uuid.New(), Role: domain.RolePatient, PatientID: &id}
	_, err := svc.Generate(context.Background(), f.patientID, pat)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestGenerateHandoverTemplate(t *testing.T) {
	f := newHandoverFixture(t)
	f.recordVitals(t)
	svc := f.service(adapters.StaticGenerator{}, false)

	sum, err := svc.Generate(context.Background(), f.patientID, nurseActor())
	require.NoError(t, err)

	assert.Equal(t, 1, sum.Version)
	assert.False(t, sum.ModelPolished)
	assert.True(t, strings.HasPrefix(sum.Situation, "Risk light "), sum.Situation)
	assert.Contains(t, sum.Background, "Bed a-01")
	assert.Contains(t, sum.AssessmentText, "HR 96 bpm")
	assert.Contains(t, sum.AssessmentText, "No assessment on record")
	assert.NotEmpty(t, sum.Recommendation)

	next, err := svc.Generate(context.Background(), f.patientID, doctorActor())
	require.NoError(t, err)
	assert.Equal(t, 2, next.Version, "each handover gets the next version")
}

func TestGenerateHandoverPolish(t *testing.T) {
	f := newHandoverFixture(t)
	f.recordVitals(t)

	gen := generatorFunc(func(_ context.Context, _ adapters.GenerateRequest) (*adapters.GenerateResult, error) {
		return &adapters.GenerateResult{Text: "S: Polished situation.\n" +
			"B: Polished background.\n" +
			"A: Polished assessment.\n" +
			"R: Polished recommendation.\n"}, nil
	})
	svc := f.service(gen, true)

	sum, err := svc.Generate(context.Background(), f.patientID, nurseActor())
	require.NoError(t, err)
	assert.True(t, sum.ModelPolished)
	assert.Equal(t, "Polished situation.", sum.Situation)
	assert.Equal(t, "Polished recommendation.", sum.Recommendation)
}

func TestGenerateHandoverPolishFailureKeepsTemplate(t *testing.T) {
	f := newHandoverFixture(t)
	f.recordVitals(t)

	t.Run("generator error", func(t *testing.T) {
		gen := generatorFunc(func(_ context.Context, _ adapters.GenerateRequest) (*adapters.GenerateResult, error) {
			return nil, adapters.ErrAdapterUnavailable
		})
		sum, err := f.service(gen, true).Generate(context.Background(), f.patientID, nurseActor())
		require.NoError(t, err, "polish failures never fail the handover")
		assert.False(t, sum.ModelPolished)
		assert.True(t, strings.HasPrefix(sum.Situation, "Risk light "))
	})

	t.Run("malformed output", func(t *testing.T) {
		gen := generatorFunc(func(_ context.Context, _ adapters.GenerateRequest) (*adapters.GenerateResult, error) {
			return &adapters.GenerateResult{Text: "S: only one section came back"}, nil
		})
		sum, err := f.service(gen, true).Generate(context.Background(), f.patientID, nurseActor())
		require.NoError(t, err)
		assert.False(t, sum.ModelPolished)
		assert.True(t, strings.HasPrefix(sum.Situation, "Risk light "))
	})
}

func TestGetHandoverPatientScope(t *testing.T) {
	f := newHandoverFixture(t)
	svc := f.service(adapters.StaticGenerator{}, false)

	sum, err := svc.Generate(context.Background(), f.patientID, nurseActor())
	require.NoError(t, err)

	ownID := f.patientID
	owner := domain.Actor{ID: uuid.New(), Role: domain.RolePatient, PatientID: &ownID}
	got, err := svc.Get(context.Background(), sum.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, sum.ID, got.ID)

	otherID := uuid.New()
	stranger := domain.Actor{ID: uuid.New(), Role: domain.RolePatient, PatientID: &otherID}
	_, err = svc.Get(context.Background(), sum.ID, stranger)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestAnnotateHandover(t *testing.T) {
	f := newHandoverFixture(t)
	svc := f.service(adapters.StaticGenerator{}, false)
	ctx := context.Background()
	doctor := doctorActor()

	sum, err := svc.Generate(ctx, f.patientID, nurseActor())
	require.NoError(t, err)

	annotated, err := svc.Annotate(ctx, sum.ID, "  Family meeting planned for tomorrow.  ", doctor)
	require.NoError(t, err)
	assert.Equal(t, "Family meeting planned for tomorrow.", annotated.Annotation)
	require.NotNil(t, annotated.AnnotatedBy)
	assert.Equal(t, doctor.ID, *annotated.AnnotatedBy)
	assert.Equal(t, sum.Situation, annotated.Situation, "annotation leaves the SBAR body untouched")

	var verr *ValidationError
	_, err = svc.Annotate(ctx, sum.ID, "   ", doctor)
	assert.ErrorAs(t, err, &verr)

	id := f.patientID
	pat := domain.Actor{ID: uuid.New(), Role: domain.RolePatient, PatientID: &id}
	_, err = svc.Annotate(ctx, sum.ID, "note", pat)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestListHandoversNewestVersionFirst(t *testing.T) {
	f := newHandoverFixture(t)
	svc := f.service(adapters.StaticGenerator{}, false)
	ctx := context.Background()
	nurse := nurseActor()

	for range 3 {
		_, err := svc.Generate(ctx, f.patientID, nurse)
		require.NoError(t, err)
	}

	list, err := svc.ListByPatient(ctx, f.patientID, nurse, 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, 3, list[0].Version)
	assert.Equal(t, 2, list[1].Version)
}
