package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/careward/wardflow/internal/domain"
	"github.com/careward/wardflow/internal/domain/patient"
	"github.com/careward/wardflow/pkg/auth"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountInactive    = errors.New("account is inactive")
)

type StaffRepository interface {
	Create(ctx context.Context, m *domain.StaffMember) error
	GetByEmail(ctx context.Context, email string) (*domain.StaffMember, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.StaffMember, error)
}

// AuthService issues tokens for ward staff and, on staff request, scoped
// access tokens for patients. Patients have no password accounts; their
// tokens are handed out at the bedside.
type AuthService struct {
	staffRepo   StaffRepository
	patientRepo patient.Repository
	jwtManager  *auth.JWTManager
	log         *zap.Logger
}

func NewAuthService(staffRepo StaffRepository, patientRepo patient.Repository, jwtManager *auth.JWTManager, log *zap.Logger) *AuthService {
	return &AuthService{staffRepo: staffRepo, patientRepo: patientRepo, jwtManager: jwtManager, log: log}
}

func (s *AuthService) Login(ctx context.Context, email, password string, ip string) (*domain.TokenPair, error) {
	member, err := s.staffRepo.GetByEmail(ctx, email)
	if err != nil {
		// Use bcrypt dummy hash to prevent timing-based user enumeration.
		// An attacker measuring response time should not be able to determine
		// whether the email exists in the system.
		_, _ = bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		return nil, ErrInvalidCredentials
	}

	if !member.IsActive {
		return nil, ErrAccountInactive
	}

	if err := bcrypt.CompareHashAndPassword([]byte(member.PasswordHash), []byte(password)); err != nil {
		s.log.Warn("failed login attempt",
			zap.String("email", email),
			zap.String("ip", ip),
		)
		return nil, ErrInvalidCredentials
	}

	claims := &domain.Claims{
		UserID: member.ID,
		Email:  member.Email,
		Role:   member.Role,
		WardID: member.WardID,
	}

	pair, err := s.jwtManager.GenerateTokenPair(claims)
	if err != nil {
		s.log.Error("failed to generate token pair", zap.Error(err))
		return nil, fmt.Errorf("generating tokens: %w", err)
	}

	s.log.Info("staff member logged in",
		zap.String("user_id", member.ID.String()),
		zap.String("role", string(member.Role)),
		zap.String("ip", ip),
	)
	return pair, nil
}

// RefreshToken issues a new access token given a valid refresh token.
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	claims, err := s.jwtManager.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	if claims.Role == domain.RolePatient {
		// Patient tokens are re-validated against the admission.
		if claims.PatientID == nil {
			return nil, ErrInvalidCredentials
		}
		p, err := s.patientRepo.GetByID(ctx, *claims.PatientID)
		if err != nil || !p.IsAdmitted() {
			return nil, ErrInvalidCredentials
		}
		return s.jwtManager.GenerateTokenPair(claims)
	}

	member, err := s.staffRepo.GetByID(ctx, claims.UserID)
	if err != nil || !member.IsActive {
		return nil, ErrInvalidCredentials
	}

	return s.jwtManager.GenerateTokenPair(&domain.Claims{
		UserID: member.ID,
		Email:  member.Email,
		Role:   member.Role,
		WardID: member.WardID,
	})
}

// IssuePatientToken mints a scoped token for a patient's bedside device.
// Staff only; the patient must be currently admitted.
func (s *AuthService) IssuePatientToken(ctx context.Context, patientID uuid.UUID, actor domain.Actor) (*domain.TokenPair, error) {
	if !actor.Role.IsStaff() {
		return nil, ErrForbidden
	}

	p, err := s.patientRepo.GetByID(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if !p.IsAdmitted() {
		return nil, patient.ErrPatientNotAdmitted
	}

	pair, err := s.jwtManager.GenerateTokenPair(&domain.Claims{
		UserID:    p.ID,
		Role:      domain.RolePatient,
		WardID:    p.WardID,
		PatientID: &p.ID,
	})
	if err != nil {
		return nil, fmt.Errorf("generating patient tokens: %w", err)
	}

	s.log.Info("patient token issued",
		zap.String("patient_id", p.ID.String()),
		zap.String("issued_by", actor.ID.String()),
	)
	return pair, nil
}
