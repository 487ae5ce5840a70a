package v1

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/careward/wardflow/internal/domain/vitals"
	"github.com/careward/wardflow/internal/service"
)

type VitalsHandler struct {
	svc *service.VitalsService
}

func NewVitalsHandler(svc *service.VitalsService) *VitalsHandler {
	return &VitalsHandler{svc: svc}
}

type recordVitalsRequest struct {
	ObservedAt      time.Time `json:"observed_at"`
	SpO2            *int      `json:"spo2"`
	TemperatureC    *float64  `json:"temperature_c"`
	RespiratoryRate *int      `json:"respiratory_rate"`
	HeartRate       *int      `json:"heart_rate"`
	SystolicBP      *int      `json:"systolic_bp"`
	PainScore       *int      `json:"pain_score"`
	Source          string    `json:"source"`
}

func (h *VitalsHandler) Record(c *gin.Context) {
	patientID, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	var req recordVitalsRequest
	if !bindJSON(c, &req) {
		return
	}

	rec, err := h.svc.Record(c.Request.Context(), &vitals.RecordVitalsCommand{
		PatientID:       patientID,
		ObservedAt:      req.ObservedAt,
		SpO2:            req.SpO2,
		TemperatureC:    req.TemperatureC,
		RespiratoryRate: req.RespiratoryRate,
		HeartRate:       req.HeartRate,
		SystolicBP:      req.SystolicBP,
		PainScore:       req.PainScore,
		Source:          req.Source,
	}, currentActor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondCreated(c, rec)
}

func (h *VitalsHandler) Latest(c *gin.Context) {
	patientID, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	rec, err := h.svc.Latest(c.Request.Context(), patientID, currentActor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, rec)
}

func (h *VitalsHandler) List(c *gin.Context) {
	patientID, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	records, err := h.svc.ListByPatient(c.Request.Context(), patientID, currentActor(c), parseQueryInt(c, "limit", 50))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, records)
}
