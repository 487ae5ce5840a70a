package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/careward/wardflow/internal/adapters"
	"github.com/careward/wardflow/internal/config"
	v1 "github.com/careward/wardflow/internal/handler/v1"
	"github.com/careward/wardflow/internal/orchestrator"
	"github.com/careward/wardflow/internal/repository/gormrepo"
	"github.com/careward/wardflow/internal/retrieval"
	"github.com/careward/wardflow/internal/service"
	"github.com/careward/wardflow/internal/workflow"
	"github.com/careward/wardflow/pkg/auth"
	"github.com/careward/wardflow/pkg/database"
	"github.com/careward/wardflow/pkg/logger"
	"github.com/careward/wardflow/pkg/metrics"
	"github.com/careward/wardflow/pkg/tracer"

	"github.com/careward/wardflow/internal/domain"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		os.Stderr.WriteString("failed to build logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("starting wardflow",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	if cfg.Tracing.Enabled {
		tp, err := tracer.Init(cfg.Tracing)
		if err != nil {
			log.Warn("tracing disabled: provider init failed", zap.Error(err))
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
				defer cancel()
				if err := tp.Shutdown(ctx); err != nil {
					log.Warn("tracer shutdown failed", zap.Error(err))
				}
			}()
		}
	}

	collector := metrics.NewCollector("wardflow")

	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	if err := database.Migrate(db, log); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	patientRepo := gormrepo.NewPatientRepository(db)
	requestRepo := gormrepo.NewRequestRepository(db)
	assessmentRepo := gormrepo.NewAssessmentRepository(db)
	vitalsRepo := gormrepo.NewVitalsRepository(db)
	handoverRepo := gormrepo.NewHandoverRepository(db)
	staffRepo := gormrepo.NewStaffRepository(db)
	transitionRepo := gormrepo.NewTransitionLogRepository(db)

	index := retrieval.NewIndex(retrieval.Options{
		ChunkSize:    cfg.Retrieval.ChunkSize,
		ChunkOverlap: cfg.Retrieval.ChunkOverlap,
	})

	gen := buildGenerator(cfg, log)
	stt := adapters.StaticSpeechToText{}
	vision := adapters.StaticVision{}

	orch := orchestrator.New(gen, stt, vision, index, cfg.Orchestrator, cfg.Retrieval, log, collector)

	jwtManager := auth.NewJWTManager(cfg.JWT)
	locks := workflow.NewLockManager()

	transitionSvc := service.NewTransitionLogService(transitionRepo, log, collector)
	defer transitionSvc.Shutdown()

	workflowSvc := service.NewWorkflowService(requestRepo, patientRepo, locks, transitionSvc, log, collector)
	patientSvc := service.NewPatientService(patientRepo, log)
	vitalsSvc := service.NewVitalsService(vitalsRepo, patientRepo, log)
	assessmentSvc := service.NewAssessmentService(
		assessmentRepo, patientRepo, vitalsRepo, orch, workflowSvc,
		domain.Role(cfg.Workflow.LowConfidenceTarget), log,
	)
	handoverSvc := service.NewHandoverService(
		handoverRepo, patientRepo, assessmentRepo, vitalsRepo,
		gen, cfg.Workflow.HandoverUseModel, log,
	)
	authSvc := service.NewAuthService(staffRepo, patientRepo, jwtManager, log)

	if cfg.Seed.Enabled {
		if err := seedDemoData(context.Background(), cfg, staffRepo, patientRepo, index, log); err != nil {
			log.Warn("demo seed failed", zap.Error(err))
		}
	}

	router := v1.NewRouter(v1.RouterDeps{
		Config:     cfg,
		Log:        log,
		Metrics:    collector,
		JWTManager: jwtManager,
		DB:         db,
		Index:      index,

		Auth:        v1.NewAuthHandler(authSvc),
		Patients:    v1.NewPatientHandler(patientSvc),
		Vitals:      v1.NewVitalsHandler(vitalsSvc),
		Requests:    v1.NewRequestHandler(workflowSvc),
		Assessments: v1.NewAssessmentHandler(assessmentSvc),
		Handovers:   v1.NewHandoverHandler(handoverSvc),
		Evidence:    v1.NewEvidenceHandler(index, log),
	})

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("http server listening", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("http server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
	log.Info("shutdown complete")
}

// buildGenerator wires the inference sidecar behind a circuit breaker when
// configured, and falls back to the deterministic static generator.
func buildGenerator(cfg *config.Config, log *zap.Logger) adapters.Generator {
	if cfg.Adapters.GeneratorBaseURL == "" {
		log.Info("no generator backend configured, using static generator")
		return adapters.StaticGenerator{}
	}
	log.Info("using http generator backend", zap.String("base_url", cfg.Adapters.GeneratorBaseURL))
	inner := adapters.NewHTTPGenerator(cfg.Adapters.GeneratorBaseURL, cfg.Orchestrator.AdapterTimeout)
	return adapters.NewBreakerGenerator("generator", inner)
}
