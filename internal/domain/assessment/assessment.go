package assessment

import (
	"time"

	"github.com/google/uuid"

	"github.com/careward/wardflow/internal/domain"
)

// Confidence marks how much trust the pipeline places in the result.
type Confidence string

const (
	ConfidenceFull Confidence = "full"
	ConfidenceLow  Confidence = "low"
)

// Verdict is the self-audit outcome over a generated draft.
type Verdict string

const (
	VerdictPass    Verdict = "pass"
	VerdictFlagged Verdict = "flagged"
)

// Modality identifies the primary input channel the assessment was built from.
type Modality string

const (
	ModalityText   Modality = "text"
	ModalityVoice  Modality = "voice"
	ModalityImage  Modality = "image"
	ModalityVitals Modality = "vitals"
)

// Citation points at an evidence chunk that grounded the draft.
type Citation struct {
	DocID       string  `json:"doc_id"`
	ChunkOffset int     `json:"chunk_offset"`
	Score       float64 `json:"score"`
	Excerpt     string  `json:"excerpt,omitempty"`
}

// StageRecord is one entry of the pipeline trace kept with each assessment.
type StageRecord struct {
	Stage      string `json:"stage"`
	Outcome    string `json:"outcome"`
	DurationMs int64  `json:"duration_ms"`
	Detail     string `json:"detail,omitempty"`
}

// RiskSnapshot is the rule-based supplement computed from the latest vitals
// at assessment time. It is frozen with the assessment even if later vitals
// change the picture.
type RiskSnapshot struct {
	Level        string   `json:"level"`
	Score        int      `json:"score"`
	Factors      []string `json:"factors,omitempty"`
	RulesVersion string   `json:"rules_version"`
}

// Assessment is the finalized output of one orchestration run. Finalized
// assessments are immutable; corrections create a new assessment that
// supersedes the old one.
type Assessment struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time `gorm:"autoCreateTime;index"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`

	PatientID uuid.UUID  `gorm:"column:patient_id;type:uuid;not null;index"`
	RequestID *uuid.UUID `gorm:"column:request_id;type:uuid;index"`
	WardID    string     `gorm:"column:ward_id;type:varchar(50);not null;index"`

	Modality   Modality `gorm:"column:modality;type:varchar(20);not null"`
	InputText  string   `gorm:"column:input_text;type:text"`
	Transcript string   `gorm:"column:transcript;type:text"`
	// ImageFindings holds the vision adapter's structured description.
	ImageFindings string `gorm:"column:image_findings;type:text"`

	Impression string   `gorm:"column:impression;type:text;not null"`
	Actions    []string `gorm:"column:actions;type:jsonb;serializer:json"`

	AuditVerdict Verdict  `gorm:"column:audit_verdict;type:varchar(20);not null"`
	AuditReasons []string `gorm:"column:audit_reasons;type:jsonb;serializer:json"`

	Differential []string `gorm:"column:differential;type:jsonb;serializer:json"`

	Citations  []Citation `gorm:"column:citations;type:jsonb;serializer:json"`
	NoEvidence bool       `gorm:"column:no_evidence;default:false"`

	Confidence Confidence `gorm:"column:confidence;type:varchar(10);not null;index"`

	Risk *RiskSnapshot `gorm:"column:risk;type:jsonb;serializer:json"`

	// QualityFlags and Gaps carry modality-quality warnings and missing
	// clinical data points surfaced to the reviewing staff member.
	QualityFlags []string `gorm:"column:quality_flags;type:jsonb;serializer:json"`
	Gaps         []string `gorm:"column:gaps;type:jsonb;serializer:json"`

	StageTrace []StageRecord `gorm:"column:stage_trace;type:jsonb;serializer:json"`

	FinalizedAt  *time.Time `gorm:"column:finalized_at"`
	SupersededBy *uuid.UUID `gorm:"column:superseded_by;type:uuid"`

	CreatedBy     uuid.UUID   `gorm:"column:created_by;type:uuid;not null"`
	CreatedByRole domain.Role `gorm:"column:created_by_role;type:varchar(20);not null"`
}

func (Assessment) TableName() string {
	return "clinical.assessments"
}

func (a *Assessment) IsFinalized() bool {
	return a.FinalizedAt != nil
}

func (a *Assessment) IsSuperseded() bool {
	return a.SupersededBy != nil
}

// Finalize freezes the assessment. Any later correction must go through
// Supersede on a fresh record.
func (a *Assessment) Finalize(now time.Time) error {
	if a.IsFinalized() {
		return ErrAlreadyFinalized
	}
	a.FinalizedAt = &now
	return nil
}

// Supersede marks this assessment as replaced by a newer one.
func (a *Assessment) Supersede(newerID uuid.UUID) error {
	if !a.IsFinalized() {
		return ErrNotFinalized
	}
	if a.IsSuperseded() {
		return ErrAlreadySuperseded
	}
	a.SupersededBy = &newerID
	return nil
}

type ListAssessmentsQuery struct {
	PatientID  *uuid.UUID
	WardID     string
	Confidence *Confidence
	// IncludeSuperseded widens the view beyond the current record chain.
	IncludeSuperseded bool
	Page              int
	PageSize          int
}

type PagedAssessments struct {
	Assessments []*Assessment
	TotalCount  int64
	Page        int
	PageSize    int
	TotalPages  int
}
