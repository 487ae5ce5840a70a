// Package risk computes a deterministic, rule-based risk snapshot from the
// latest ward observations. The rules are intentionally simple threshold
// checks so that every flag is explainable to staff.
package risk

import (
	"fmt"
	"strings"
	"time"

	"github.com/careward/wardflow/internal/domain/vitals"
)

const RulesVersion = "r1.0"

type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

func (s Severity) weight() int {
	switch s {
	case SeverityHigh:
		return 35
	case SeverityMedium:
		return 15
	default:
		return 5
	}
}

// Level is the traffic-light summary shown on the ward board.
type Level string

const (
	LevelRed    Level = "red"
	LevelYellow Level = "yellow"
	LevelGreen  Level = "green"
)

type Flag struct {
	ID             string   `json:"id"`
	Severity       Severity `json:"severity"`
	Message        string   `json:"message"`
	Recommendation string   `json:"recommendation,omitempty"`
}

type Snapshot struct {
	Level        Level     `json:"risk_level"`
	Score        int       `json:"risk_score"`
	Flags        []Flag    `json:"flags"`
	NextActions  []string  `json:"next_actions"`
	ComputedAt   time.Time `json:"computed_at"`
	RulesVersion string    `json:"rules_version"`
}

// Input gathers everything the rules read. All fields are optional; absent
// data simply skips the rules that need it.
type Input struct {
	Vitals *vitals.Record

	// Free-text signals from the latest patient check-in and nurse notes.
	Symptoms string
	Notes    string

	// Daily self-report fields.
	DietText   string
	WaterML    *float64
	SleepHours *float64

	// Gap IDs surfaced by the assessment pipeline (missing_spo2, ...).
	Gaps []string

	// PriorAssessmentRisk carries the model's own risk call, if any.
	PriorAssessmentRisk string
}

// Compute evaluates every rule against in and returns the snapshot.
// Scores accumulate per flag (high 35, medium 15, low 5) and clamp to
// [0, 100]; the level is red if any high flag fired, yellow if any medium.
func Compute(in Input, now time.Time) *Snapshot {
	var (
		flags []Flag
		score int
	)
	add := func(f Flag) {
		flags = append(flags, f)
		score += f.Severity.weight()
	}

	var spo2, temp, rr, hr, sbp *float64
	if v := in.Vitals; v != nil {
		spo2 = intAsFloat(v.SpO2)
		temp = v.TemperatureC
		rr = intAsFloat(v.RespiratoryRate)
		hr = intAsFloat(v.HeartRate)
		sbp = intAsFloat(v.SystolicBP)
	}

	if spo2 != nil && *spo2 < 90 {
		add(Flag{
			ID:             "low_spo2",
			Severity:       SeverityHigh,
			Message:        fmt.Sprintf("SpO2 %.0f%% (<90)", *spo2),
			Recommendation: "Notify doctor immediately",
		})
	}

	if temp != nil && *temp >= 39.0 {
		add(Flag{
			ID:             "high_temp",
			Severity:       SeverityHigh,
			Message:        fmt.Sprintf("Temperature %.1f°C (>=39.0)", *temp),
			Recommendation: "Monitor closely and notify doctor if persistent",
		})
	} else if temp != nil && *temp >= 38.0 && hr != nil && *hr > 110 {
		add(Flag{
			ID:             "fever_with_tachycardia",
			Severity:       SeverityMedium,
			Message:        fmt.Sprintf("Temperature %.1f°C with HR %.0f", *temp, *hr),
			Recommendation: "Recheck vitals and consider escalation",
		})
	}

	if rr != nil && *rr >= 30 {
		add(Flag{
			ID:             "high_rr",
			Severity:       SeverityHigh,
			Message:        fmt.Sprintf("RR %.0f (>=30)", *rr),
			Recommendation: "Notify doctor immediately",
		})
	}

	if sbp != nil && *sbp < 90 {
		add(Flag{
			ID:             "low_sbp",
			Severity:       SeverityHigh,
			Message:        fmt.Sprintf("SBP %.0f (<90)", *sbp),
			Recommendation: "Urgent review needed",
		})
	}

	if hr != nil && *hr >= 130 {
		add(Flag{
			ID:             "high_hr",
			Severity:       SeverityHigh,
			Message:        fmt.Sprintf("HR %.0f (>=130)", *hr),
			Recommendation: "Urgent review needed",
		})
	} else if hr != nil && *hr >= 110 {
		add(Flag{
			ID:             "moderate_hr",
			Severity:       SeverityMedium,
			Message:        fmt.Sprintf("HR %.0f (110-129)", *hr),
			Recommendation: "Recheck and monitor",
		})
	}

	textBlob := strings.ToLower(in.Notes + " " + in.Symptoms)
	if containsAny(textBlob, "confusion", "drowsy", "altered") {
		add(Flag{
			ID:             "mental_status_change",
			Severity:       SeverityHigh,
			Message:        "Possible altered mental status",
			Recommendation: "Notify doctor immediately",
		})
	}

	dietLow := containsAny(strings.ToLower(in.DietText), "very little", "low", "refused")
	if dietLow &&
		in.WaterML != nil && *in.WaterML < 600 &&
		in.SleepHours != nil && *in.SleepHours < 4 {
		add(Flag{
			ID:             "low_intake_dehydration",
			Severity:       SeverityMedium,
			Message:        "Low intake + low water + short sleep",
			Recommendation: "Encourage fluids and rest; monitor closely",
		})
	}

	symptomText := strings.ToLower(in.Symptoms)
	if containsAny(symptomText, "hemoptysis", "severe shortness of breath") {
		add(Flag{
			ID:             "severe_resp_symptom",
			Severity:       SeverityHigh,
			Message:        "Severe respiratory symptom reported",
			Recommendation: "Escalate to doctor immediately",
		})
	} else if containsAny(symptomText, "chest pain", "shortness of breath") {
		add(Flag{
			ID:             "resp_symptom_warning",
			Severity:       SeverityMedium,
			Message:        "Respiratory warning symptom reported",
			Recommendation: "Monitor and consider escalation",
		})
	}

	gapSet := make(map[string]bool, len(in.Gaps))
	for _, g := range in.Gaps {
		gapSet[g] = true
	}
	var missingVitals []string
	for _, id := range []string{"missing_hr", "missing_rr", "missing_spo2", "missing_temp"} {
		if gapSet[id] {
			missingVitals = append(missingVitals, id)
		}
	}
	if len(missingVitals) > 0 {
		add(Flag{
			ID:             "missing_vitals",
			Severity:       SeverityMedium,
			Message:        "Missing vital signs data: " + strings.Join(missingVitals, ", "),
			Recommendation: "Measure vital signs",
		})
	}

	if gapSet["low_audio_quality"] {
		add(Flag{
			ID:             "low_audio_quality",
			Severity:       SeverityLow,
			Message:        "Audio quality is low",
			Recommendation: "Use text input or re-record",
		})
	}

	if strings.EqualFold(in.PriorAssessmentRisk, "high") || strings.EqualFold(in.PriorAssessmentRisk, "red") {
		add(Flag{
			ID:             "assessment_high_risk",
			Severity:       SeverityMedium,
			Message:        "Assessment marked the patient high risk",
			Recommendation: "Prioritize monitoring",
		})
	}

	level := LevelGreen
	for _, f := range flags {
		if f.Severity == SeverityHigh {
			level = LevelRed
			break
		}
		if f.Severity == SeverityMedium {
			level = LevelYellow
		}
	}

	if score > 100 {
		score = 100
	}

	return &Snapshot{
		Level:        level,
		Score:        score,
		Flags:        flags,
		NextActions:  dedupeActions(flags, 6),
		ComputedAt:   now.UTC(),
		RulesVersion: RulesVersion,
	}
}

// FlagIDs returns the flag identifiers in firing order, for compact storage.
func (s *Snapshot) FlagIDs() []string {
	ids := make([]string, 0, len(s.Flags))
	for _, f := range s.Flags {
		ids = append(ids, f.ID)
	}
	return ids
}

func dedupeActions(flags []Flag, max int) []string {
	seen := make(map[string]bool, len(flags))
	var actions []string
	for _, f := range flags {
		if f.Recommendation == "" || seen[f.Recommendation] {
			continue
		}
		seen[f.Recommendation] = true
		actions = append(actions, f.Recommendation)
		if len(actions) == max {
			break
		}
	}
	return actions
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func intAsFloat(v *int) *float64 {
	if v == nil {
		return nil
	}
	f := float64(*v)
	return &f
}
