package v1

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/careward/wardflow/internal/domain/assessment"
	"github.com/careward/wardflow/internal/service"
)

type AssessmentHandler struct {
	svc *service.AssessmentService
}

func NewAssessmentHandler(svc *service.AssessmentService) *AssessmentHandler {
	return &AssessmentHandler{svc: svc}
}

type runAssessmentRequest struct {
	PatientID uuid.UUID  `json:"patient_id" binding:"required"`
	RequestID *uuid.UUID `json:"request_id"`
	Text      string     `json:"text"`
	AudioRef  string     `json:"audio_ref"`
	ImageRef  string     `json:"image_ref"`
}

type runAssessmentResponse struct {
	Assessment             *assessment.Assessment `json:"assessment"`
	SuggestedForwardTarget string                 `json:"suggested_forward_target,omitempty"`
}

func (h *AssessmentHandler) Run(c *gin.Context) {
	var req runAssessmentRequest
	if !bindJSON(c, &req) {
		return
	}

	res, err := h.svc.Run(c.Request.Context(), &service.RunAssessmentCommand{
		PatientID: req.PatientID,
		RequestID: req.RequestID,
		Text:      req.Text,
		AudioRef:  req.AudioRef,
		ImageRef:  req.ImageRef,
	}, currentActor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondCreated(c, runAssessmentResponse{
		Assessment:             res.Assessment,
		SuggestedForwardTarget: string(res.SuggestedForwardTarget),
	})
}

func (h *AssessmentHandler) Get(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	a, err := h.svc.Get(c.Request.Context(), id, currentActor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, a)
}

func (h *AssessmentHandler) List(c *gin.Context) {
	q := &assessment.ListAssessmentsQuery{
		WardID:            c.Query("ward_id"),
		IncludeSuperseded: c.Query("include_superseded") == "true",
		Page:              parseQueryInt(c, "page", 1),
		PageSize:          parseQueryInt(c, "page_size", 20),
	}
	if raw := c.Query("patient_id"); raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			q.PatientID = &id
		}
	}
	if raw := c.Query("confidence"); raw != "" {
		conf := assessment.Confidence(raw)
		q.Confidence = &conf
	}

	page, err := h.svc.List(c.Request.Context(), q, currentActor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, page)
}

// Supersede re-runs the pipeline and links the old record to the new one.
func (h *AssessmentHandler) Supersede(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	var req runAssessmentRequest
	if !bindJSON(c, &req) {
		return
	}

	res, err := h.svc.Supersede(c.Request.Context(), id, &service.RunAssessmentCommand{
		PatientID: req.PatientID,
		RequestID: req.RequestID,
		Text:      req.Text,
		AudioRef:  req.AudioRef,
		ImageRef:  req.ImageRef,
	}, currentActor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondCreated(c, runAssessmentResponse{
		Assessment:             res.Assessment,
		SuggestedForwardTarget: string(res.SuggestedForwardTarget),
	})
}
