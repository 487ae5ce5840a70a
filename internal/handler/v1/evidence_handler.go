package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/careward/wardflow/internal/retrieval"
)

// EvidenceHandler administers the evidence corpus behind the assessment
// pipeline. Staff only; patients never touch the index.
type EvidenceHandler struct {
	index *retrieval.Index
	log   *zap.Logger
}

func NewEvidenceHandler(index *retrieval.Index, log *zap.Logger) *EvidenceHandler {
	return &EvidenceHandler{index: index, log: log}
}

type evidenceDocument struct {
	ID       string `json:"id" binding:"required"`
	Title    string `json:"title"`
	Category string `json:"category"`
	Text     string `json:"text" binding:"required"`
}

type upsertEvidenceRequest struct {
	Documents []evidenceDocument `json:"documents" binding:"required,min=1"`
}

func (h *EvidenceHandler) Upsert(c *gin.Context) {
	var req upsertEvidenceRequest
	if !bindJSON(c, &req) {
		return
	}

	docs := make([]retrieval.Document, len(req.Documents))
	for i, d := range req.Documents {
		docs[i] = retrieval.Document{ID: d.ID, Title: d.Title, Category: d.Category, Text: d.Text}
	}

	if err := h.index.Upsert(c.Request.Context(), docs...); err != nil {
		respondServiceError(c, err)
		return
	}

	h.log.Info("evidence documents indexed",
		zap.Int("count", len(docs)),
		zap.Int("total_documents", h.index.DocumentCount()),
	)
	respondOK(c, gin.H{"indexed": len(docs), "total_documents": h.index.DocumentCount()})
}

type removeEvidenceRequest struct {
	DocumentIDs []string `json:"document_ids" binding:"required,min=1"`
}

func (h *EvidenceHandler) Remove(c *gin.Context) {
	var req removeEvidenceRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.index.Remove(c.Request.Context(), req.DocumentIDs...); err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, gin.H{"removed": len(req.DocumentIDs), "total_documents": h.index.DocumentCount()})
}

// Query previews what the pipeline would cite for a given text.
func (h *EvidenceHandler) Query(c *gin.Context) {
	text := c.Query("q")
	if text == "" {
		respondError(c, http.StatusBadRequest, "q parameter is required")
		return
	}

	results, err := h.index.Query(c.Request.Context(), text, retrieval.QueryParams{
		TopK: parseQueryInt(c, "top_k", 6),
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, results)
}
