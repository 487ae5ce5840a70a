package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/careward/wardflow/internal/domain"
	"github.com/careward/wardflow/internal/domain/request"
	"github.com/careward/wardflow/internal/service"
	"github.com/careward/wardflow/internal/workflow"
)

type RequestHandler struct {
	svc *service.WorkflowService
}

func NewRequestHandler(svc *service.WorkflowService) *RequestHandler {
	return &RequestHandler{svc: svc}
}

type createRequestRequest struct {
	PatientID   uuid.UUID `json:"patient_id" binding:"required"`
	TargetRole  string    `json:"target_role"`
	PayloadKind string    `json:"payload_kind" binding:"required"`
	PayloadRef  string    `json:"payload_ref"`
	Summary     string    `json:"summary"`
	Escalated   bool      `json:"escalated"`
}

func (h *RequestHandler) Create(c *gin.Context) {
	var req createRequestRequest
	if !bindJSON(c, &req) {
		return
	}

	actor := currentActor(c)
	r, err := h.svc.CreateRequest(c.Request.Context(), &request.CreateRequestCommand{
		PatientID:   req.PatientID,
		TargetRole:  domain.Role(req.TargetRole),
		PayloadKind: request.PayloadKind(req.PayloadKind),
		PayloadRef:  req.PayloadRef,
		Summary:     req.Summary,
		Escalated:   req.Escalated,
		CreatedBy:   actor.ID,
	}, actor)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondCreated(c, r)
}

func (h *RequestHandler) Get(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	r, err := h.svc.GetRequest(c.Request.Context(), id, currentActor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, r)
}

func (h *RequestHandler) ListInbox(c *gin.Context) {
	q := &request.ListRequestsQuery{
		WardID:   c.Query("ward_id"),
		Page:     parseQueryInt(c, "page", 1),
		PageSize: parseQueryInt(c, "page_size", 20),
	}
	if raw := c.Query("patient_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			respondError(c, http.StatusBadRequest, "invalid patient_id: must be a valid UUID")
			return
		}
		q.PatientID = &id
	}
	if raw := c.Query("owner_role"); raw != "" {
		role := domain.Role(raw)
		q.OwnerRole = &role
	}
	if raw := c.Query("state"); raw != "" {
		state := request.State(raw)
		q.State = &state
	}
	if raw := c.Query("escalated"); raw != "" {
		escalated := raw == "true"
		q.Escalated = &escalated
	}

	page, err := h.svc.ListInbox(c.Request.Context(), q, currentActor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, page)
}

type advanceRequestRequest struct {
	ForwardTarget string     `json:"forward_target"`
	Note          string     `json:"note"`
	AssessmentID  *uuid.UUID `json:"assessment_id"`
	HandoverID    *uuid.UUID `json:"handover_id"`
}

type advanceRequestResponse struct {
	Request *request.Request `json:"request"`
	// AllowedNext lists the actions the same actor may take now.
	AllowedNext []string `json:"allowed_next"`
}

// Advance applies one state-machine action, named in the URL, to a request.
func (h *RequestHandler) Advance(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	action := workflow.Action(c.Param("action"))
	if _, known := workflow.TargetState(action); !known {
		respondError(c, http.StatusBadRequest, "unknown action: "+string(action))
		return
	}

	var req advanceRequestRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}

	actor := currentActor(c)
	r, err := h.svc.Advance(c.Request.Context(), id, action, actor, service.AdvanceOptions{
		ForwardTarget: domain.Role(req.ForwardTarget),
		Note:          req.Note,
		AssessmentID:  req.AssessmentID,
		HandoverID:    req.HandoverID,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	next := workflow.AllowedActions(r, actor)
	names := make([]string, len(next))
	for i, a := range next {
		names[i] = string(a)
	}
	respondOK(c, advanceRequestResponse{Request: r, AllowedNext: names})
}

func (h *RequestHandler) AllowedActions(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	actions, err := h.svc.AllowedActions(c.Request.Context(), id, currentActor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	names := make([]string, len(actions))
	for i, a := range actions {
		names[i] = string(a)
	}
	respondOK(c, gin.H{"allowed_actions": names})
}

func (h *RequestHandler) History(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	entries, err := h.svc.History(c.Request.Context(), id, currentActor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, entries)
}
