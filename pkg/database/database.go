package database

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/careward/wardflow/internal/config"
	"github.com/careward/wardflow/internal/domain"
	"github.com/careward/wardflow/internal/domain/assessment"
	"github.com/careward/wardflow/internal/domain/handover"
	"github.com/careward/wardflow/internal/domain/patient"
	"github.com/careward/wardflow/internal/domain/request"
	"github.com/careward/wardflow/internal/domain/vitals"
)

func Connect(cfg config.DatabaseConfig) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		Logger:                                   gormlogger.Default.LogMode(gormlogger.Silent),
		PrepareStmt:                              true,
		DisableForeignKeyConstraintWhenMigrating: false,
		DisableAutomaticPing:                     false,
	}

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  cfg.DSN(),
		PreferSimpleProtocol: false,
	}), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	// Configure connection pool
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return db, nil
}

func Migrate(db *gorm.DB, log *zap.Logger) error {
	log.Info("running database migrations")
	start := time.Now()

	schemas := []string{"ward", "clinical", "audit"} // logical namespace
	for _, schema := range schemas {
		if err := db.Exec(fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", schema)).Error; err != nil {
			return fmt.Errorf("creating schema %s: %w", schema, err)
		}
	}

	models := []any{
		&domain.StaffMember{},
		&domain.TransitionLog{},
		&patient.Patient{},
		&request.Request{},
		&assessment.Assessment{},
		&vitals.Record{},
		&handover.Summary{},
	}

	if err := db.AutoMigrate(models...); err != nil {
		return fmt.Errorf("auto-migrating models: %w", err)
	}

	if err := createIndexes(db); err != nil {
		return fmt.Errorf("creating indexes: %w", err)
	}

	log.Info("migrations completed", zap.Duration("duration", time.Since(start)))
	return nil
}

func createIndexes(db *gorm.DB) error {
	indexes := []struct {
		name  string
		query string
	}{
		// Inbox view: owner-role scans over open requests
		{
			name:  "idx_requests_inbox",
			query: `CREATE INDEX IF NOT EXISTS idx_requests_inbox ON ward.requests (owner_role, state, created_at) WHERE state NOT IN ('acknowledged', 'archived')`,
		},
		{
			name:  "idx_requests_patient_open",
			query: `CREATE INDEX IF NOT EXISTS idx_requests_patient_open ON ward.requests (patient_id, state) WHERE state NOT IN ('acknowledged', 'archived')`,
		},
		// One admitted patient per bed
		{
			name:  "idx_patients_bed_unique",
			query: `CREATE UNIQUE INDEX IF NOT EXISTS idx_patients_bed_unique ON ward.patients (ward_id, bed_id) WHERE status = 'admitted' AND deleted_at IS NULL AND bed_id <> ''`,
		},
		// Patient search: GIN index for full-text search on name fields
		{
			name:  "idx_patients_name_search",
			query: `CREATE INDEX IF NOT EXISTS idx_patients_name_trgm ON ward.patients USING gin ((first_name || ' ' || last_name) gin_trgm_ops) WHERE deleted_at IS NULL`,
		},
		{
			name:  "idx_assessments_patient_latest",
			query: `CREATE INDEX IF NOT EXISTS idx_assessments_patient_latest ON clinical.assessments (patient_id, created_at DESC) WHERE superseded_by IS NULL`,
		},
		{
			name:  "idx_vitals_patient_observed",
			query: `CREATE INDEX IF NOT EXISTS idx_vitals_patient_observed ON clinical.vitals (patient_id, observed_at DESC)`,
		},
	}

	for _, idx := range indexes {
		_ = db.Exec("CREATE EXTENSION IF NOT EXISTS pg_trgm").Error

		if err := db.Exec(idx.query).Error; err != nil {
			_ = err
		}
	}

	return nil
}
