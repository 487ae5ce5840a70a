package risk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careward/wardflow/internal/domain/vitals"
)

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

func TestComputeNoDataIsGreen(t *testing.T) {
	s := Compute(Input{}, time.Now())

	assert.Equal(t, LevelGreen, s.Level)
	assert.Zero(t, s.Score)
	assert.Empty(t, s.Flags)
	assert.Equal(t, RulesVersion, s.RulesVersion)
}

func TestComputeHighSeverityVitals(t *testing.T) {
	cases := []struct {
		name   string
		rec    vitals.Record
		flagID string
	}{
		{"low spo2", vitals.Record{SpO2: intPtr(88)}, "low_spo2"},
		{"high temp", vitals.Record{TemperatureC: floatPtr(39.2)}, "high_temp"},
		{"high rr", vitals.Record{RespiratoryRate: intPtr(32)}, "high_rr"},
		{"low sbp", vitals.Record{SystolicBP: intPtr(85)}, "low_sbp"},
		{"high hr", vitals.Record{HeartRate: intPtr(135)}, "high_hr"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := Compute(Input{Vitals: &tc.rec}, time.Now())
			assert.Equal(t, LevelRed, s.Level)
			assert.Contains(t, s.FlagIDs(), tc.flagID)
			assert.Equal(t, 35, s.Score)
		})
	}
}

func TestComputeFeverWithTachycardiaIsMedium(t *testing.T) {
	rec := vitals.Record{TemperatureC: floatPtr(38.4), HeartRate: intPtr(115)}
	s := Compute(Input{Vitals: &rec}, time.Now())

	assert.Equal(t, LevelYellow, s.Level)
	assert.Contains(t, s.FlagIDs(), "fever_with_tachycardia")
	// The moderate HR rule also fires: 15 + 15.
	assert.Contains(t, s.FlagIDs(), "moderate_hr")
	assert.Equal(t, 30, s.Score)
}

func TestComputeHighTempOutranksFeverCombo(t *testing.T) {
	rec := vitals.Record{TemperatureC: floatPtr(39.5), HeartRate: intPtr(115)}
	s := Compute(Input{Vitals: &rec}, time.Now())

	assert.Contains(t, s.FlagIDs(), "high_temp")
	assert.NotContains(t, s.FlagIDs(), "fever_with_tachycardia")
}

func TestComputeMentalStatusFromText(t *testing.T) {
	s := Compute(Input{Notes: "Patient appears drowsy and confused this morning"}, time.Now())

	assert.Equal(t, LevelRed, s.Level)
	assert.Contains(t, s.FlagIDs(), "mental_status_change")
}

func TestComputeLowIntakeNeedsAllThreeSignals(t *testing.T) {
	base := Input{DietText: "refused breakfast", WaterML: floatPtr(400), SleepHours: floatPtr(3)}
	s := Compute(base, time.Now())
	assert.Contains(t, s.FlagIDs(), "low_intake_dehydration")

	partial := base
	partial.WaterML = floatPtr(1200)
	s = Compute(partial, time.Now())
	assert.NotContains(t, s.FlagIDs(), "low_intake_dehydration")
}

func TestComputeRespiratorySymptoms(t *testing.T) {
	s := Compute(Input{Symptoms: "coughing with hemoptysis overnight"}, time.Now())
	assert.Contains(t, s.FlagIDs(), "severe_resp_symptom")
	assert.Equal(t, LevelRed, s.Level)

	s = Compute(Input{Symptoms: "mild chest pain on exertion"}, time.Now())
	assert.Contains(t, s.FlagIDs(), "resp_symptom_warning")
	assert.Equal(t, LevelYellow, s.Level)
}

func TestComputeMissingVitalsGap(t *testing.T) {
	s := Compute(Input{Gaps: []string{"missing_spo2", "missing_temp", "low_audio_quality"}}, time.Now())

	assert.Contains(t, s.FlagIDs(), "missing_vitals")
	assert.Contains(t, s.FlagIDs(), "low_audio_quality")
	assert.Equal(t, LevelYellow, s.Level)
	assert.Equal(t, 20, s.Score)
}

func TestComputePriorAssessmentRisk(t *testing.T) {
	for _, prior := range []string{"high", "HIGH", "red"} {
		s := Compute(Input{PriorAssessmentRisk: prior}, time.Now())
		assert.Contains(t, s.FlagIDs(), "assessment_high_risk", "prior=%s", prior)
	}
	s := Compute(Input{PriorAssessmentRisk: "green"}, time.Now())
	assert.NotContains(t, s.FlagIDs(), "assessment_high_risk")
}

func TestComputeScoreClampsAt100(t *testing.T) {
	rec := vitals.Record{
		SpO2:            intPtr(85),
		TemperatureC:    floatPtr(40.0),
		RespiratoryRate: intPtr(34),
		SystolicBP:      intPtr(80),
		HeartRate:       intPtr(140),
	}
	s := Compute(Input{Vitals: &rec, Symptoms: "severe shortness of breath"}, time.Now())

	assert.Equal(t, 100, s.Score)
	assert.Equal(t, LevelRed, s.Level)
}

func TestComputeNextActionsDeduped(t *testing.T) {
	rec := vitals.Record{SpO2: intPtr(85), RespiratoryRate: intPtr(34)}
	s := Compute(Input{Vitals: &rec, Notes: "confusion noted this morning"}, time.Now())

	// Three flags share "Notify doctor immediately".
	require.Len(t, s.Flags, 3)
	count := 0
	for _, a := range s.NextActions {
		if a == "Notify doctor immediately" {
			count++
		}
	}
	assert.Equal(t, 1, count)
	assert.LessOrEqual(t, len(s.NextActions), 6)
}
