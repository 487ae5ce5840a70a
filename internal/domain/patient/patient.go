package patient

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Sex string

const (
	SexMale    Sex = "male"
	SexFemale  Sex = "female"
	SexOther   Sex = "other"
	SexUnknown Sex = "unknown"
)

func (s Sex) IsValid() bool {
	switch s {
	case SexMale, SexFemale, SexOther, SexUnknown:
		return true
	}
	return false
}

// Status represents the lifecycle state of an admission.
type Status string

const (
	StatusAdmitted   Status = "admitted"
	StatusDischarged Status = "discharged"
	StatusDeceased   Status = "deceased"
)

type Patient struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time  `gorm:"autoCreateTime;index"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime"`
	DeletedAt *time.Time `gorm:"index"` // Soft delete, retention requirement

	FirstName   string    `gorm:"column:first_name;type:varchar(100);not null"`
	LastName    string    `gorm:"column:last_name;type:varchar(100);not null"`
	DateOfBirth time.Time `gorm:"column:date_of_birth;not null"`
	Sex         Sex       `gorm:"column:sex;type:varchar(20);not null"`

	WardID string `gorm:"column:ward_id;type:varchar(50);not null;index"`
	BedID  string `gorm:"column:bed_id;type:varchar(50);index"`

	ChiefComplaint    string   `gorm:"column:chief_complaint;type:text"`
	History           string   `gorm:"column:history;type:text"` // PHI
	Allergies         []string `gorm:"column:allergies;serializer:json"`
	ChronicConditions []string `gorm:"column:chronic_conditions;serializer:json"`

	Status     Status    `gorm:"column:status;type:varchar(20);default:'admitted';index"`
	AdmittedAt time.Time `gorm:"column:admitted_at;not null"`

	// Audit: who admitted this patient
	CreatedBy uuid.UUID `gorm:"column:created_by;type:uuid;not null"`
}

func (Patient) TableName() string {
	return "ward.patients"
}

func (p *Patient) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

func (p *Patient) Age() int {
	now := time.Now()
	years := now.Year() - p.DateOfBirth.Year()
	if now.Month() < p.DateOfBirth.Month() ||
		(now.Month() == p.DateOfBirth.Month() && now.Day() < p.DateOfBirth.Day()) {
		years--
	}
	return years
}

func (p *Patient) IsAdmitted() bool {
	return p.Status == StatusAdmitted && p.DeletedAt == nil
}

func (p *Patient) Discharge() error {
	if p.Status == StatusDeceased {
		return ErrPatientDeceased
	}
	p.Status = StatusDischarged
	return nil
}

type AdmitPatientCommand struct {
	FirstName         string
	LastName          string
	DateOfBirth       time.Time
	Sex               Sex
	WardID            string
	BedID             string
	ChiefComplaint    string
	History           string
	Allergies         []string
	ChronicConditions []string
	CreatedBy         uuid.UUID
}

// ListPatientsQuery defines filtering and pagination for ward census queries.
type ListPatientsQuery struct {
	WardID   string
	Status   *Status
	Page     int
	PageSize int
}

type PagedPatients struct {
	Patients   []*Patient
	TotalCount int64
	Page       int
	PageSize   int
	TotalPages int
}
