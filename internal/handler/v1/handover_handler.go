package v1

import (
	"github.com/gin-gonic/gin"

	"github.com/careward/wardflow/internal/service"
)

type HandoverHandler struct {
	svc *service.HandoverService
}

func NewHandoverHandler(svc *service.HandoverService) *HandoverHandler {
	return &HandoverHandler{svc: svc}
}

// Generate builds the next SBAR handover version for a patient.
func (h *HandoverHandler) Generate(c *gin.Context) {
	patientID, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	sum, err := h.svc.Generate(c.Request.Context(), patientID, currentActor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondCreated(c, sum)
}

func (h *HandoverHandler) Get(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	sum, err := h.svc.Get(c.Request.Context(), id, currentActor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, sum)
}

type annotateHandoverRequest struct {
	Annotation string `json:"annotation" binding:"required"`
}

// Annotate adds a staff note to a handover before it is forwarded.
func (h *HandoverHandler) Annotate(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	var req annotateHandoverRequest
	if !bindJSON(c, &req) {
		return
	}

	sum, err := h.svc.Annotate(c.Request.Context(), id, req.Annotation, currentActor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, sum)
}

func (h *HandoverHandler) ListByPatient(c *gin.Context) {
	patientID, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	summaries, err := h.svc.ListByPatient(c.Request.Context(), patientID, currentActor(c), parseQueryInt(c, "limit", 10))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, summaries)
}
