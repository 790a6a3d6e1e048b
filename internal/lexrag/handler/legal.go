// Package handler provides the HTTP handlers of the legal QA service.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/lexrag/internal/model"
	"github.com/kart-io/lexrag/internal/lexrag/biz"
	"github.com/kart-io/lexrag/internal/lexrag/metrics"
)

// queryTimeout bounds one end-to-end query, generation included.
const queryTimeout = 60 * time.Second

// LegalHandler handles the legal QA HTTP API.
type LegalHandler struct {
	service biz.Service
	metrics *metrics.EngineMetrics
}

// NewLegalHandler creates a LegalHandler.
func NewLegalHandler(service biz.Service, engineMetrics *metrics.EngineMetrics) *LegalHandler {
	return &LegalHandler{
		service: service,
		metrics: engineMetrics,
	}
}

// SuccessResponse is the standard success envelope.
type SuccessResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ErrorResponse is the standard error envelope.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// QueryRequest is the body of POST /v1/legal/query.
type QueryRequest struct {
	Question string `json:"question" binding:"required"`
}

// Query answers a legal question end to end.
func (h *LegalHandler) Query(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: 400, Message: err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), queryTimeout)
	defer cancel()

	result, err := h.service.Ask(ctx, req.Question)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			c.JSON(http.StatusRequestTimeout, ErrorResponse{
				Code:    408,
				Message: "Query timeout: the request took too long to process. Please try again or simplify your question.",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{Code: 500, Message: err.Error()})
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Code: 0, Message: "success", Data: result})
}

// RetrieveRequest is the body of POST /v1/legal/retrieve.
type RetrieveRequest struct {
	Query string `json:"query" binding:"required"`
}

// Retrieve runs the retrieval pipeline without generation.
func (h *LegalHandler) Retrieve(c *gin.Context) {
	var req RetrieveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: 400, Message: err.Error()})
		return
	}

	result, err := h.service.Retrieve(c.Request.Context(), req.Query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Code: 500, Message: err.Error()})
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Code: 0, Message: "success", Data: result})
}

// AttributeRequest is the body of POST /v1/legal/attribute.
type AttributeRequest struct {
	Units  []model.AnswerUnit       `json:"units" binding:"required"`
	Chunks []model.ChunkWithOffsets `json:"chunks" binding:"required"`
}

// Attribute resolves answer units against a caller-provided chunk set.
func (h *LegalHandler) Attribute(c *gin.Context) {
	var req AttributeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: 400, Message: err.Error()})
		return
	}

	units := h.service.Attribute(req.Units, req.Chunks)
	c.JSON(http.StatusOK, SuccessResponse{Code: 0, Message: "success", Data: units})
}

// Stats returns index, cache and runtime statistics.
func (h *LegalHandler) Stats(c *gin.Context) {
	stats, err := h.service.GetStats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Code: 500, Message: err.Error()})
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Code: 0, Message: "success", Data: stats})
}

// Metrics serves the Prometheus text exposition.
func (h *LegalHandler) Metrics(c *gin.Context) {
	c.String(http.StatusOK, h.metrics.Export("lexrag", "engine"))
}

// Healthz reports liveness.
func (h *LegalHandler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
