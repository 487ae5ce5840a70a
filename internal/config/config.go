package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	App          AppConfig
	Server       ServerConfig
	Database     DatabaseConfig
	JWT          JWTConfig
	Log          LogConfig
	Tracing      TracingConfig
	Orchestrator OrchestratorConfig
	Adapters     AdaptersConfig
	Retrieval    RetrievalConfig
	Workflow     WorkflowConfig
	Seed         SeedConfig
}

type AppConfig struct {
	Name        string
	Environment string
	Version     string
}

type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type DatabaseConfig struct {
	Host            string
	Port            int
	Name            string
	User            string
	Password        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s Timezone=UTC",
		d.Host, d.User, d.Password, d.Name, d.Port, d.SSLMode,
	)
}

type JWTConfig struct {
	Secret          string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	Issuer          string
}

type LogConfig struct {
	Level      string
	Format     string
	OutputPath string
}

type TracingConfig struct {
	Enabled     bool
	ServiceName string
	EndpointURL string
	SampleRate  float64
}

// OrchestratorConfig bounds the assessment pipeline. Token budgets are
// estimates on the caller side; the generation adapter remains the
// authority on actual limits.
type OrchestratorConfig struct {
	MaxInputTokens    int
	MaxOutputTokens   int
	RetryOutputTokens int
	AdapterTimeout    time.Duration
	TranscribeTimeout time.Duration
	VisionTimeout     time.Duration
}

// AdaptersConfig selects the model backends. An empty GeneratorBaseURL
// falls back to the deterministic static adapters, which keeps the
// pipeline exercisable without an inference sidecar.
type AdaptersConfig struct {
	GeneratorBaseURL string
}

type RetrievalConfig struct {
	TopK               int
	EvidenceCharBudget int
	ChunkSize          int
	ChunkOverlap       int
}

type WorkflowConfig struct {
	// Role suggested as forward target when an assessment finalizes
	// low-confidence. The state machine never auto-forwards.
	LowConfidenceTarget string
	// Use the language model to polish handover summaries instead of the
	// deterministic SBAR template.
	HandoverUseModel bool
}

// SeedConfig carries the demo seed credential, injected at startup
// instead of living as ambient global state.
type SeedConfig struct {
	Enabled       bool
	StaffPassword string
}

func Load() (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			Name:        getEnv("APP_NAME", "wardflow-api"),
			Environment: getEnv("APP_ENV", "development"),
			Version:     getEnv("APP_VERSION", "0.0.0"),
		},
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:     getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvInt("DB_PORT", 5432),
			Name:            getEnv("DB_NAME", "wardflow"),
			User:            getEnv("DB_USER", "wardflow"),
			Password:        getEnv("DB_PASSWORD", ""),
			SSLMode:         getEnv("DB_SSLMODE", "require"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getEnvDuration("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
		},
		JWT: JWTConfig{
			Secret:          getEnv("JWT_SECRET", ""),
			AccessTokenTTL:  getEnvDuration("JWT_ACCESS_TTL", 15*time.Minute),
			RefreshTokenTTL: getEnvDuration("JWT_REFRESH_TTL", 7*24*time.Hour),
			Issuer:          getEnv("JWT_ISSUER", "wardflow-api"),
		},
		Log: LogConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			Format:     getEnv("LOG_FORMAT", "json"),
			OutputPath: getEnv("LOG_OUTPUT", "stdout"),
		},
		Tracing: TracingConfig{
			Enabled:     getEnvBool("TRACING_ENABLED", true),
			ServiceName: getEnv("TRACING_SERVICE_NAME", "wardflow-api"),
			EndpointURL: getEnv("OTLP_ENDPOINT", "http://otel-collector:4318"),
			SampleRate:  getEnvFloat("TRACING_SAMPLE_RATE", 0.1),
		},
		Orchestrator: OrchestratorConfig{
			MaxInputTokens:    getEnvInt("ORCH_MAX_INPUT_TOKENS", 3072),
			MaxOutputTokens:   getEnvInt("ORCH_MAX_OUTPUT_TOKENS", 384),
			RetryOutputTokens: getEnvInt("ORCH_RETRY_OUTPUT_TOKENS", 192),
			AdapterTimeout:    getEnvDuration("ORCH_ADAPTER_TIMEOUT", 90*time.Second),
			TranscribeTimeout: getEnvDuration("ORCH_TRANSCRIBE_TIMEOUT", 60*time.Second),
			VisionTimeout:     getEnvDuration("ORCH_VISION_TIMEOUT", 45*time.Second),
		},
		Adapters: AdaptersConfig{
			GeneratorBaseURL: getEnv("GENERATOR_BASE_URL", ""),
		},
		Retrieval: RetrievalConfig{
			TopK:               getEnvInt("RETRIEVAL_TOP_K", 6),
			EvidenceCharBudget: getEnvInt("RETRIEVAL_EVIDENCE_CHAR_BUDGET", 2200),
			ChunkSize:          getEnvInt("RETRIEVAL_CHUNK_SIZE", 800),
			ChunkOverlap:       getEnvInt("RETRIEVAL_CHUNK_OVERLAP", 150),
		},
		Workflow: WorkflowConfig{
			LowConfidenceTarget: getEnv("WORKFLOW_LOW_CONFIDENCE_TARGET", "doctor"),
			HandoverUseModel:    getEnvBool("HANDOVER_USE_MODEL", false),
		},
		Seed: SeedConfig{
			Enabled:       getEnvBool("SEED_DEMO_DATA", false),
			StaffPassword: getEnv("SEED_STAFF_PASSWORD", ""),
		},
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate enforces production security requirements.
func validate(cfg *Config) error {
	var errs []string

	if cfg.JWT.Secret == "" {
		errs = append(errs, "JWT_SECRET is required")
	} else if len(cfg.JWT.Secret) < 32 && cfg.App.Environment == "production" {
		errs = append(errs, "JWT_SECRET must be at least 32 characters in production")
	}

	if cfg.Database.Password == "" && cfg.App.Environment != "development" {
		errs = append(errs, "DB_PASSWORD is required in non-development environments")
	}

	if cfg.Database.SSLMode == "disable" && cfg.App.Environment == "production" {
		errs = append(errs, "DB_SSLMODE=disable is not allowed in production")
	}

	if cfg.Seed.Enabled && cfg.Seed.StaffPassword == "" {
		errs = append(errs, "SEED_STAFF_PASSWORD is required when SEED_DEMO_DATA is enabled")
	}

	if cfg.Orchestrator.RetryOutputTokens >= cfg.Orchestrator.MaxOutputTokens {
		errs = append(errs, "ORCH_RETRY_OUTPUT_TOKENS must be smaller than ORCH_MAX_OUTPUT_TOKENS")
	}

	if cfg.Workflow.LowConfidenceTarget != "nurse" && cfg.Workflow.LowConfidenceTarget != "doctor" {
		errs = append(errs, "WORKFLOW_LOW_CONFIDENCE_TARGET must be nurse or doctor")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
