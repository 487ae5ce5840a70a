package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RolePatient Role = "patient"
	RoleNurse   Role = "nurse"
	RoleDoctor  Role = "doctor"
)

func (r Role) IsValid() bool {
	switch r {
	case RolePatient, RoleNurse, RoleDoctor:
		return true
	}
	return false
}

// IsStaff reports whether the role belongs to ward staff.
func (r Role) IsStaff() bool {
	return r == RoleNurse || r == RoleDoctor
}

// StaffMember is a nurse or doctor assigned to a ward.
// Role is immutable once the record is created.
type StaffMember struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`

	Name         string `gorm:"column:name;type:varchar(100);not null"`
	Email        string `gorm:"column:email;type:varchar(255);uniqueIndex;not null"`
	PasswordHash string `gorm:"column:password_hash;type:varchar(255);not null"`
	Role         Role   `gorm:"column:role;type:varchar(20);not null;index"`
	WardID       string `gorm:"column:ward_id;type:varchar(50);not null;index"`

	IsActive bool `gorm:"column:is_active;default:true;index"`
}

func (StaffMember) TableName() string {
	return "ward.staff_members"
}

// Actor identifies who is performing a workflow action.
type Actor struct {
	ID        uuid.UUID
	Role      Role
	WardID    string
	PatientID *uuid.UUID
}

// TransitionLog is the append-only audit record of a request state
// change. Entries are never updated or deleted.
type TransitionLog struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	OccurredAt time.Time `gorm:"autoCreateTime;index"`

	RequestID uuid.UUID `gorm:"column:request_id;type:uuid;not null;index"`
	ActorID   uuid.UUID `gorm:"column:actor_id;type:uuid;not null;index"`
	ActorRole Role      `gorm:"column:actor_role;type:varchar(20);not null"`

	FromState string `gorm:"column:from_state;type:varchar(30);not null"`
	ToState   string `gorm:"column:to_state;type:varchar(30);not null"`
	FromOwner Role   `gorm:"column:from_owner;type:varchar(20);not null"`
	ToOwner   Role   `gorm:"column:to_owner;type:varchar(20);not null"`

	Note string `gorm:"column:note;type:text"`
}

func (TransitionLog) TableName() string {
	return "audit.transitions"
}

// TransitionLogRepository persists audit entries. Append-only by
// contract: implementations expose no update or delete.
type TransitionLogRepository interface {
	Append(ctx context.Context, entry *TransitionLog) error
	ListByRequest(ctx context.Context, requestID uuid.UUID) ([]*TransitionLog, error)
}

type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	TokenType    string    `json:"token_type"` // Always "Bearer"
}

type Claims struct {
	UserID    uuid.UUID  `json:"sub"`
	Email     string     `json:"email"`
	Role      Role       `json:"role"`
	WardID    string     `json:"ward_id,omitempty"`
	PatientID *uuid.UUID `json:"patient_id,omitempty"`
}
