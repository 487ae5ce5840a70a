package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/careward/wardflow/internal/config"
	"github.com/careward/wardflow/internal/retrieval"
	"github.com/careward/wardflow/pkg/auth"
	"github.com/careward/wardflow/pkg/metrics"
)

// RouterDeps carries everything the HTTP surface needs. The db handle may
// be nil when running on in-memory repositories.
type RouterDeps struct {
	Config     *config.Config
	Log        *zap.Logger
	Metrics    *metrics.Collector
	JWTManager *auth.JWTManager
	DB         *gorm.DB
	Index      *retrieval.Index

	Auth        *AuthHandler
	Patients    *PatientHandler
	Vitals      *VitalsHandler
	Requests    *RequestHandler
	Assessments *AssessmentHandler
	Handovers   *HandoverHandler
	Evidence    *EvidenceHandler
}

func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogging(deps.Log))
	router.Use(Metrics(deps.Metrics))

	router.GET("/healthz", healthHandler(deps))
	router.GET("/metrics", gin.WrapH(metrics.MetricsHandler()))

	api := router.Group("/api/v1")

	api.POST("/auth/login", deps.Auth.Login)
	api.POST("/auth/refresh", deps.Auth.Refresh)

	authed := api.Group("")
	authed.Use(Authenticate(deps.JWTManager))

	patients := authed.Group("/patients")
	{
		patients.POST("", RequireStaff(), deps.Patients.Admit)
		patients.GET("", RequireStaff(), deps.Patients.List)
		patients.GET("/:id", deps.Patients.Get)
		patients.POST("/:id/discharge", RequireStaff(), deps.Patients.Discharge)
		patients.POST("/:id/token", RequireStaff(), deps.Auth.IssuePatientToken)

		patients.POST("/:id/vitals", deps.Vitals.Record)
		patients.GET("/:id/vitals/latest", deps.Vitals.Latest)
		patients.GET("/:id/vitals", deps.Vitals.List)

		patients.POST("/:id/handovers", RequireStaff(), deps.Handovers.Generate)
		patients.GET("/:id/handovers", deps.Handovers.ListByPatient)
	}

	requests := authed.Group("/requests")
	{
		requests.POST("", deps.Requests.Create)
		requests.GET("", deps.Requests.ListInbox)
		requests.GET("/:id", deps.Requests.Get)
		requests.GET("/:id/actions", deps.Requests.AllowedActions)
		requests.POST("/:id/actions/:action", deps.Requests.Advance)
		requests.GET("/:id/history", deps.Requests.History)
	}

	assessments := authed.Group("/assessments")
	{
		assessments.POST("", RequireStaff(), deps.Assessments.Run)
		assessments.GET("", deps.Assessments.List)
		assessments.GET("/:id", deps.Assessments.Get)
		assessments.POST("/:id/supersede", RequireStaff(), deps.Assessments.Supersede)
	}

	evidence := authed.Group("/evidence", RequireStaff())
	{
		evidence.POST("/documents", deps.Evidence.Upsert)
		evidence.DELETE("/documents", deps.Evidence.Remove)
		evidence.GET("/search", deps.Evidence.Query)
	}

	authed.GET("/handovers/:id", deps.Handovers.Get)
	authed.POST("/handovers/:id/annotate", RequireStaff(), deps.Handovers.Annotate)

	return router
}

func healthHandler(deps RouterDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := http.StatusOK
		checks := gin.H{
			"evidence_documents": deps.Index.DocumentCount(),
		}

		if deps.DB != nil {
			sqlDB, err := deps.DB.DB()
			if err == nil {
				err = sqlDB.PingContext(c.Request.Context())
			}
			if err != nil {
				status = http.StatusServiceUnavailable
				checks["database"] = "unreachable"
			} else {
				checks["database"] = "ok"
			}
		} else {
			checks["database"] = "in-memory"
		}

		c.JSON(status, gin.H{
			"status":  http.StatusText(status),
			"version": deps.Config.App.Version,
			"checks":  checks,
		})
	}
}
