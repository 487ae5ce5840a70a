package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setValidEnv(t *testing.T) {
	t.Helper()
	t.Setenv("APP_ENV", "development")
	t.Setenv("JWT_SECRET", "test-secret")
}

func TestLoadDefaults(t *testing.T) {
	setValidEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "wardflow-api", cfg.App.Name)
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Address())
	assert.Equal(t, 3072, cfg.Orchestrator.MaxInputTokens)
	assert.Equal(t, 6, cfg.Retrieval.TopK)
	assert.Equal(t, 800, cfg.Retrieval.ChunkSize)
	assert.Equal(t, "doctor", cfg.Workflow.LowConfidenceTarget)
	assert.False(t, cfg.Workflow.HandoverUseModel)
	assert.False(t, cfg.Seed.Enabled)
	assert.Empty(t, cfg.Adapters.GeneratorBaseURL)
}

func TestLoadOverrides(t *testing.T) {
	setValidEnv(t)
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("ORCH_ADAPTER_TIMEOUT", "45s")
	t.Setenv("WORKFLOW_LOW_CONFIDENCE_TARGET", "nurse")
	t.Setenv("GENERATOR_BASE_URL", "http://model-sidecar:9000")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 45*time.Second, cfg.Orchestrator.AdapterTimeout)
	assert.Equal(t, "nurse", cfg.Workflow.LowConfidenceTarget)
	assert.Equal(t, "http://model-sidecar:9000", cfg.Adapters.GeneratorBaseURL)
}

func TestLoadRequiresJWTSecret(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET is required")
}

func TestLoadProductionHardening(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "short")
	t.Setenv("DB_PASSWORD", "")
	t.Setenv("DB_SSLMODE", "disable")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET must be at least 32 characters in production")
	assert.Contains(t, err.Error(), "DB_PASSWORD is required in non-development environments")
	assert.Contains(t, err.Error(), "DB_SSLMODE=disable is not allowed in production")
}

func TestLoadRetryBudgetMustShrink(t *testing.T) {
	setValidEnv(t)
	t.Setenv("ORCH_MAX_OUTPUT_TOKENS", "128")
	t.Setenv("ORCH_RETRY_OUTPUT_TOKENS", "256")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ORCH_RETRY_OUTPUT_TOKENS must be smaller")
}

func TestLoadSeedRequiresPassword(t *testing.T) {
	setValidEnv(t)
	t.Setenv("SEED_DEMO_DATA", "true")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SEED_STAFF_PASSWORD is required")

	t.Setenv("SEED_STAFF_PASSWORD", "demo-pass")
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.Seed.Enabled)
}

func TestLoadRejectsUnknownForwardTarget(t *testing.T) {
	setValidEnv(t)
	t.Setenv("WORKFLOW_LOW_CONFIDENCE_TARGET", "janitor")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "WORKFLOW_LOW_CONFIDENCE_TARGET must be nurse or doctor")
}

func TestMalformedEnvFallsBackToDefaults(t *testing.T) {
	setValidEnv(t)
	t.Setenv("SERVER_PORT", "not-a-number")
	t.Setenv("TRACING_ENABLED", "maybe")
	t.Setenv("SERVER_READ_TIMEOUT", "soon")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.True(t, cfg.Tracing.Enabled)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
}

func TestDatabaseDSN(t *testing.T) {
	d := DatabaseConfig{
		Host: "db.internal", Port: 5433, Name: "ward", User: "svc",
		Password: "pw", SSLMode: "require",
	}
	assert.Equal(t,
		"host=db.internal user=svc password=pw dbname=ward port=5433 sslmode=require Timezone=UTC",
		d.DSN())
}
