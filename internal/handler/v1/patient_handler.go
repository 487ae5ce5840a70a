package v1

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/careward/wardflow/internal/domain/patient"
	"github.com/careward/wardflow/internal/service"
)

type PatientHandler struct {
	svc *service.PatientService
}

func NewPatientHandler(svc *service.PatientService) *PatientHandler {
	return &PatientHandler{svc: svc}
}

type admitPatientRequest struct {
	FirstName         string    `json:"first_name" binding:"required"`
	LastName          string    `json:"last_name" binding:"required"`
	DateOfBirth       time.Time `json:"date_of_birth" binding:"required"`
	Sex               string    `json:"sex" binding:"required"`
	WardID            string    `json:"ward_id" binding:"required"`
	BedID             string    `json:"bed_id"`
	ChiefComplaint    string    `json:"chief_complaint"`
	History           string    `json:"history"`
	Allergies         []string  `json:"allergies"`
	ChronicConditions []string  `json:"chronic_conditions"`
}

func (h *PatientHandler) Admit(c *gin.Context) {
	var req admitPatientRequest
	if !bindJSON(c, &req) {
		return
	}

	actor := currentActor(c)
	p, err := h.svc.AdmitPatient(c.Request.Context(), &patient.AdmitPatientCommand{
		FirstName:         req.FirstName,
		LastName:          req.LastName,
		DateOfBirth:       req.DateOfBirth,
		Sex:               patient.Sex(req.Sex),
		WardID:            req.WardID,
		BedID:             req.BedID,
		ChiefComplaint:    req.ChiefComplaint,
		History:           req.History,
		Allergies:         req.Allergies,
		ChronicConditions: req.ChronicConditions,
		CreatedBy:         actor.ID,
	}, actor)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondCreated(c, p)
}

func (h *PatientHandler) Get(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	p, err := h.svc.GetPatient(c.Request.Context(), id, currentActor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, p)
}

func (h *PatientHandler) Discharge(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	if err := h.svc.DischargePatient(c.Request.Context(), id, currentActor(c)); err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, gin.H{"discharged": true})
}

func (h *PatientHandler) List(c *gin.Context) {
	q := &patient.ListPatientsQuery{
		WardID:   c.Query("ward_id"),
		Page:     parseQueryInt(c, "page", 1),
		PageSize: parseQueryInt(c, "page_size", 20),
	}
	if raw := c.Query("status"); raw != "" {
		status := patient.Status(raw)
		q.Status = &status
	}

	page, err := h.svc.ListPatients(c.Request.Context(), q, currentActor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, page)
}
