package v1

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/careward/wardflow/internal/adapters"
	"github.com/careward/wardflow/internal/domain/assessment"
	"github.com/careward/wardflow/internal/domain/handover"
	"github.com/careward/wardflow/internal/domain/patient"
	"github.com/careward/wardflow/internal/domain/request"
	"github.com/careward/wardflow/internal/domain/vitals"
	"github.com/careward/wardflow/internal/retrieval"
	"github.com/careward/wardflow/internal/service"
	"github.com/careward/wardflow/internal/workflow"
)

type APIResponse[T any] struct {
	Data    T      `json:"data"`
	Message string `json:"message,omitempty"`
}

type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

type ValidationErrorResponse struct {
	Error  string   `json:"error"`
	Fields []string `json:"fields"`
}

// InvalidActionResponse tells the caller which actions would have been
// accepted in the request's current state.
type InvalidActionResponse struct {
	Error   string   `json:"error"`
	State   string   `json:"state"`
	Allowed []string `json:"allowed_actions"`
}

func respondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, APIResponse[any]{Data: data})
}

func respondCreated(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, APIResponse[any]{Data: data})
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, ErrorResponse{Error: message})
}

func respondServiceError(c *gin.Context, err error) {
	var validErr *service.ValidationError
	if errors.As(err, &validErr) {
		c.JSON(http.StatusBadRequest, ValidationErrorResponse{
			Error:  "validation failed",
			Fields: validErr.Fields,
		})
		return
	}

	var actionErr *workflow.InvalidActionError
	if errors.As(err, &actionErr) {
		allowed := make([]string, len(actionErr.Allowed))
		for i, a := range actionErr.Allowed {
			allowed[i] = string(a)
		}
		c.JSON(http.StatusConflict, InvalidActionResponse{
			Error:   actionErr.Error(),
			State:   string(actionErr.State),
			Allowed: allowed,
		})
		return
	}

	switch {
	case errors.Is(err, patient.ErrPatientNotFound),
		errors.Is(err, request.ErrRequestNotFound),
		errors.Is(err, assessment.ErrAssessmentNotFound),
		errors.Is(err, handover.ErrHandoverNotFound),
		errors.Is(err, vitals.ErrNoVitals):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})

	case errors.Is(err, request.ErrVersionConflict):
		c.JSON(http.StatusConflict, ErrorResponse{
			Error: "request was modified concurrently, reload and retry",
			Code:  "VERSION_CONFLICT",
		})

	case errors.Is(err, patient.ErrBedOccupied),
		errors.Is(err, assessment.ErrAlreadySuperseded),
		errors.Is(err, request.ErrRequestTerminal):
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})

	case errors.Is(err, request.ErrInvalidTransition),
		errors.Is(err, request.ErrForwardTargetRequired),
		errors.Is(err, request.ErrForwardPayloadMissing),
		errors.Is(err, patient.ErrPatientDeceased),
		errors.Is(err, patient.ErrPatientNotAdmitted),
		errors.Is(err, vitals.ErrEmptyObservation),
		errors.Is(err, vitals.ErrObservedInFuture),
		errors.Is(err, vitals.ErrMeasurementOutOfRange):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})

	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "access denied"})

	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrAccountInactive):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid credentials"})

	case errors.Is(err, adapters.ErrAdapterUnavailable),
		errors.Is(err, retrieval.ErrRetrievalUnavailable):
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error: "a model backend is unavailable, try again later",
			Code:  "BACKEND_UNAVAILABLE",
		})

	default:
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}

func bindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request: " + err.Error()})
		return false
	}

	return true
}

func parseUUID(c *gin.Context, param string) (uuid.UUID, bool) {
	raw := c.Param(param)
	id, err := uuid.Parse(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid " + param + ": must be a valid UUID"})
		return uuid.Nil, false
	}
	return id, true
}

func parseQueryInt(c *gin.Context, key string, defaultVal int) int {
	if raw := c.Query(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			return v
		}
	}
	return defaultVal
}
