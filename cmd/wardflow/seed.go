package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/careward/wardflow/internal/config"
	"github.com/careward/wardflow/internal/domain"
	"github.com/careward/wardflow/internal/domain/patient"
	"github.com/careward/wardflow/internal/retrieval"
	"github.com/careward/wardflow/internal/service"
)

// seedDemoData provisions demo staff accounts, one admitted patient, and a
// small evidence corpus. Safe to run repeatedly: existing accounts are
// kept and evidence upserts are idempotent.
func seedDemoData(
	ctx context.Context,
	cfg *config.Config,
	staffRepo service.StaffRepository,
	patientRepo patient.Repository,
	index *retrieval.Index,
	log *zap.Logger,
) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.Seed.StaffPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing seed password: %w", err)
	}

	staff := []*domain.StaffMember{
		{
			Name:         "Demo Nurse",
			Email:        "nurse@demo.ward",
			PasswordHash: string(hash),
			Role:         domain.RoleNurse,
			WardID:       "ward-a",
			IsActive:     true,
		},
		{
			Name:         "Demo Doctor",
			Email:        "doctor@demo.ward",
			PasswordHash: string(hash),
			Role:         domain.RoleDoctor,
			WardID:       "ward-a",
			IsActive:     true,
		},
	}

	var doctorID uuid.UUID
	for _, m := range staff {
		existing, err := staffRepo.GetByEmail(ctx, m.Email)
		if err == nil {
			if existing.Role == domain.RoleDoctor {
				doctorID = existing.ID
			}
			continue
		}
		if err := staffRepo.Create(ctx, m); err != nil {
			return fmt.Errorf("creating staff %s: %w", m.Email, err)
		}
		if m.Role == domain.RoleDoctor {
			doctorID = m.ID
		}
		log.Info("seeded staff account", zap.String("email", m.Email), zap.String("role", string(m.Role)))
	}

	if doctorID != uuid.Nil {
		if err := seedPatient(ctx, patientRepo, doctorID, log); err != nil {
			log.Warn("patient seed skipped", zap.Error(err))
		}
	}

	if err := index.Upsert(ctx, demoEvidence()...); err != nil {
		return fmt.Errorf("seeding evidence corpus: %w", err)
	}
	log.Info("seeded evidence corpus", zap.Int("documents", index.DocumentCount()))
	return nil
}

func seedPatient(ctx context.Context, repo patient.Repository, createdBy uuid.UUID, log *zap.Logger) error {
	p := &patient.Patient{
		FirstName:      "Ada",
		LastName:       "Example",
		DateOfBirth:    time.Date(1952, time.March, 14, 0, 0, 0, 0, time.UTC),
		Sex:            patient.SexFemale,
		WardID:         "ward-a",
		BedID:          "a-12",
		ChiefComplaint: "Productive cough and fever for three days",
		History:        "Hypertension, type 2 diabetes. Reduced appetite since admission.",
		Allergies:      []string{"penicillin"},
		Status:         patient.StatusAdmitted,
		AdmittedAt:     time.Now().UTC(),
		CreatedBy:      createdBy,
	}

	if err := repo.Create(ctx, p); err != nil {
		return err
	}
	log.Info("seeded demo patient", zap.String("patient_id", p.ID.String()), zap.String("bed", p.BedID))
	return nil
}

func demoEvidence() []retrieval.Document {
	return []retrieval.Document{
		{
			ID:       "clinical-guideline-pneumonia",
			Title:    "Ward Management of Community-Acquired Pneumonia",
			Category: "clinical_guideline",
			Text: "Assess severity using respiratory rate, oxygen saturation, and blood pressure. " +
				"SpO2 below 90 percent on room air warrants immediate escalation and supplemental oxygen. " +
				"Start empiric antibiotics within four hours of diagnosis. Reassess vitals every four hours " +
				"for the first 48 hours. Fever above 39 C with tachycardia suggests inadequate source control.",
		},
		{
			ID:       "clinical-guideline-sepsis-screen",
			Title:    "Early Sepsis Screening on the Ward",
			Category: "clinical_guideline",
			Text: "Screen any patient with two or more of: temperature above 38.3 C or below 36 C, " +
				"heart rate above 90, respiratory rate above 22, altered mentation. A positive screen " +
				"triggers a doctor review within 30 minutes, blood cultures before antibiotics, and " +
				"a fluid balance review. Do not delay escalation for laboratory confirmation.",
		},
		{
			ID:       "reference-hydration",
			Title:    "Hydration and Intake Monitoring Reference",
			Category: "reference",
			Text: "Adults on general wards should maintain an intake of roughly 30 ml per kg per day " +
				"unless fluid restricted. Document intake per shift. Low intake for more than 24 hours " +
				"with reduced urine output should prompt a clinical review and consideration of " +
				"intravenous supplementation.",
		},
	}
}
