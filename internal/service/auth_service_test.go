package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/careward/wardflow/internal/config"
	"github.com/careward/wardflow/internal/domain"
	"github.com/careward/wardflow/internal/repository/memrepo"
	"github.com/careward/wardflow/pkg/auth"
)

type authFixture struct {
	svc       *AuthService
	jwt       *auth.JWTManager
	staff     *memrepo.StaffRepository
	patients  *memrepo.PatientRepository
	patientID uuid.UUID
	nurseID   uuid.UUID
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	wf := newWorkflowFixture(t)

	staff := memrepo.NewStaffRepository()
	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	require.NoError(t, err)
	nurse := &domain.StaffMember{
		Name:         "Test Nurse",
		Email:        "nurse@test.ward",
		PasswordHash: string(hash),
		Role:         domain.RoleNurse,
		WardID:       "ward-a",
		IsActive:     true,
	}
	require.NoError(t, staff.Create(context.Background(), nurse))

	jwtManager := auth.NewJWTManager(config.JWTConfig{
		Secret:          "test-secret-test-secret-test-secret",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: time.Hour,
		Issuer:          "wardflow-test",
	})

	return &authFixture{
		svc:       NewAuthService(staff, wf.patients, jwtManager, zap.NewNop()),
		jwt:       jwtManager,
		staff:     staff,
		patients:  wf.patients,
		patientID: wf.patientID,
		nurseID:   nurse.ID,
	}
}

func TestLogin(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	pair, err := f.svc.Login(ctx, "nurse@test.ward", "correct horse", "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, "Bearer", pair.TokenType)

	claims, err := f.jwt.ValidateAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleNurse, claims.Role)
	assert.Equal(t, f.nurseID, claims.UserID)
	assert.Equal(t, "ward-a", claims.WardID)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, err := f.svc.Login(ctx, "nurse@test.ward", "wrong password", "10.0.0.1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.svc.Login(ctx, "nobody@test.ward", "correct horse", "10.0.0.1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginRejectsInactiveAccount(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, f.staff.Create(ctx, &domain.StaffMember{
		Name:         "Former Doctor",
		Email:        "former@test.ward",
		PasswordHash: string(hash),
		Role:         domain.RoleDoctor,
		WardID:       "ward-a",
		IsActive:     false,
	}))

	_, err = f.svc.Login(ctx, "former@test.ward", "correct horse", "10.0.0.1")
	assert.ErrorIs(t, err, ErrAccountInactive)
}

func TestRefreshToken(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	pair, err := f.svc.Login(ctx, "nurse@test.ward", "correct horse", "10.0.0.1")
	require.NoError(t, err)

	refreshed, err := f.svc.RefreshToken(ctx, pair.RefreshToken)
	require.NoError(t, err)
	claims, err := f.jwt.ValidateAccessToken(refreshed.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, f.nurseID, claims.UserID)

	// An access token is not accepted where a refresh token is expected.
	_, err = f.svc.RefreshToken(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestIssuePatientToken(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	pair, err := f.svc.IssuePatientToken(ctx, f.patientID, nurseActor())
	require.NoError(t, err)

	claims, err := f.jwt.ValidateAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, domain.RolePatient, claims.Role)
	require.NotNil(t, claims.PatientID)
	assert.Equal(t, f.patientID, *claims.PatientID)
}

func TestIssuePatientTokenStaffOnly(t *testing.T) {
	f := newAuthFixture(t)

	id := f.patientID
	pat := domain.Actor{ID: uuid.New(), Role: domain.RolePatient, PatientID: &id}
	_, err := f.svc.IssuePatientToken(context.Background(), f.patientID, pat)
	assert.ErrorIs(t, err, ErrForbidden)
}
