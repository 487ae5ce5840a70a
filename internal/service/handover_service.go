package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/careward/wardflow/internal/adapters"
	"github.com/careward/wardflow/internal/domain"
	"github.com/careward/wardflow/internal/domain/assessment"
	"github.com/careward/wardflow/internal/domain/handover"
	"github.com/careward/wardflow/internal/domain/patient"
	"github.com/careward/wardflow/internal/domain/vitals"
	"github.com/careward/wardflow/internal/risk"
)

// HandoverService builds shift-change SBAR summaries. The skeleton is a
// deterministic template over the patient's latest data; model polish is
// optional and never adds facts. A polish failure falls back to the
// template silently.
type HandoverService struct {
	handovers   handover.Repository
	patients    patient.Repository
	assessments assessment.Repository
	vitals      vitals.Repository
	gen         adapters.Generator
	useModel    bool
	log         *zap.Logger
}

func NewHandoverService(
	handovers handover.Repository,
	patients patient.Repository,
	assessments assessment.Repository,
	vitalsRepo vitals.Repository,
	gen adapters.Generator,
	useModel bool,
	log *zap.Logger,
) *HandoverService {
	return &HandoverService{
		handovers:   handovers,
		patients:    patients,
		assessments: assessments,
		vitals:      vitalsRepo,
		gen:         gen,
		useModel:    useModel,
		log:         log,
	}
}

// Generate builds the next handover version for a patient. Staff only.
func (s *HandoverService) Generate(ctx context.Context, patientID uuid.UUID, actor domain.Actor) (*handover.Summary, error) {
	if !actor.Role.IsStaff() {
		return nil, ErrForbidden
	}

	p, err := s.patients.GetByID(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("loading patient: %w", err)
	}

	latestVitals, err := s.vitals.Latest(ctx, patientID)
	if err != nil && !errors.Is(err, vitals.ErrNoVitals) {
		return nil, fmt.Errorf("loading vitals: %w", err)
	}

	latestAssessment, err := s.assessments.LatestForPatient(ctx, patientID)
	if err != nil && !errors.Is(err, assessment.ErrAssessmentNotFound) {
		return nil, fmt.Errorf("loading assessment: %w", err)
	}

	snapshot := risk.Compute(risk.Input{
		Vitals:              latestVitals,
		Notes:               p.History,
		PriorAssessmentRisk: assessmentRiskLevel(latestAssessment),
	}, time.Now())

	sum := buildSBAR(p, latestVitals, latestAssessment, snapshot)
	sum.GeneratedBy = actor.ID
	sum.GeneratedByRole = actor.Role

	if s.useModel {
		s.polish(ctx, sum)
	}

	if err := s.handovers.Create(ctx, sum); err != nil {
		s.log.Error("failed to persist handover", zap.Error(err))
		return nil, fmt.Errorf("persisting handover: %w", err)
	}

	s.log.Info("handover generated",
		zap.String("patient_id", patientID.String()),
		zap.Int("version", sum.Version),
		zap.Bool("model_polished", sum.ModelPolished),
	)
	return sum, nil
}

func (s *HandoverService) Get(ctx context.Context, id uuid.UUID, actor domain.Actor) (*handover.Summary, error) {
	sum, err := s.handovers.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role == domain.RolePatient {
		if actor.PatientID == nil || *actor.PatientID != sum.PatientID {
			return nil, ErrForbidden
		}
	}
	return sum, nil
}

// Annotate attaches a staff note to an existing handover. The SBAR body
// itself stays immutable; corrections go through a regenerated version.
func (s *HandoverService) Annotate(ctx context.Context, id uuid.UUID, note string, actor domain.Actor) (*handover.Summary, error) {
	if !actor.Role.IsStaff() {
		return nil, ErrForbidden
	}
	note = strings.TrimSpace(note)
	if note == "" {
		return nil, &ValidationError{Fields: []string{"annotation must not be empty"}}
	}

	if err := s.handovers.SetAnnotation(ctx, id, note, actor.ID, time.Now().UTC()); err != nil {
		return nil, err
	}
	return s.handovers.GetByID(ctx, id)
}

func (s *HandoverService) ListByPatient(ctx context.Context, patientID uuid.UUID, actor domain.Actor, limit int) ([]*handover.Summary, error) {
	if actor.Role == domain.RolePatient {
		if actor.PatientID == nil || *actor.PatientID != patientID {
			return nil, ErrForbidden
		}
	}
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	return s.handovers.ListByPatient(ctx, patientID, limit)
}

// polish asks the model to tighten the SBAR wording section by section.
// Any failure keeps the deterministic template.
func (s *HandoverService) polish(ctx context.Context, sum *handover.Summary) {
	prompt := "Polish the following SBAR handover for clarity. Keep the four-section " +
		"structure and do not add new facts. Return the sections in the same order, " +
		"one per line prefixed S:, B:, A:, R:.\n\n" +
		"S: " + sum.Situation + "\n" +
		"B: " + sum.Background + "\n" +
		"A: " + sum.AssessmentText + "\n" +
		"R: " + sum.Recommendation + "\n"

	out, err := s.gen.Generate(ctx, adapters.GenerateRequest{Prompt: prompt, MaxTokens: 256})
	if err != nil {
		s.log.Warn("handover polish failed, keeping template", zap.Error(err))
		return
	}

	polished := map[string]string{}
	for _, line := range strings.Split(out.Text, "\n") {
		line = strings.TrimSpace(line)
		if len(line) < 3 || line[1] != ':' {
			continue
		}
		polished[strings.ToUpper(line[:1])] = strings.TrimSpace(line[2:])
	}
	if len(polished) != 4 {
		return
	}
	sum.Situation = polished["S"]
	sum.Background = polished["B"]
	sum.AssessmentText = polished["A"]
	sum.Recommendation = polished["R"]
	sum.ModelPolished = true
}

func buildSBAR(p *patient.Patient, v *vitals.Record, a *assessment.Assessment, snapshot *risk.Snapshot) *handover.Summary {
	situation := fmt.Sprintf("Risk light %s.", strings.ToUpper(string(snapshot.Level)))
	if len(snapshot.Flags) > 0 {
		situation += " " + snapshot.Flags[0].Message + "."
	} else {
		situation += " No urgent red flags."
	}

	background := fmt.Sprintf("Bed %s, age %d, sex %s. Admitted with: %s.",
		orDash(p.BedID), p.Age(), p.Sex, orDash(p.ChiefComplaint))

	assessmentText := "Latest vitals " + formatVitals(v) + "."
	if a != nil {
		assessmentText += fmt.Sprintf(" Assessment: %s (confidence %s).", a.Impression, a.Confidence)
	} else {
		assessmentText += " No assessment on record."
	}

	recommendation := "Continue monitoring; notify doctor if worsening."
	if len(snapshot.NextActions) > 0 {
		capped := snapshot.NextActions
		if len(capped) > 3 {
			capped = capped[:3]
		}
		recommendation = strings.Join(capped, "; ") + "."
	}

	sum := &handover.Summary{
		PatientID:      p.ID,
		WardID:         p.WardID,
		Situation:      situation,
		Background:     background,
		AssessmentText: assessmentText,
		Recommendation: recommendation,
	}
	if a != nil {
		sum.SourceAssessmentID = &a.ID
	}
	return sum
}

func formatVitals(v *vitals.Record) string {
	if v == nil {
		return "not recorded"
	}
	var parts []string
	if v.TemperatureC != nil {
		parts = append(parts, fmt.Sprintf("Temp %.1f C", *v.TemperatureC))
	}
	if v.HeartRate != nil {
		parts = append(parts, fmt.Sprintf("HR %d bpm", *v.HeartRate))
	}
	if v.RespiratoryRate != nil {
		parts = append(parts, fmt.Sprintf("RR %d/min", *v.RespiratoryRate))
	}
	if v.SystolicBP != nil {
		parts = append(parts, fmt.Sprintf("SBP %d", *v.SystolicBP))
	}
	if v.SpO2 != nil {
		parts = append(parts, fmt.Sprintf("SpO2 %d%%", *v.SpO2))
	}
	if v.PainScore != nil {
		parts = append(parts, fmt.Sprintf("Pain %d/10", *v.PainScore))
	}
	if len(parts) == 0 {
		return "not recorded"
	}
	return strings.Join(parts, ", ")
}

func assessmentRiskLevel(a *assessment.Assessment) string {
	if a == nil || a.Risk == nil {
		return ""
	}
	return a.Risk.Level
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
