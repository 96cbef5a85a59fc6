package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/formaudit/backend/internal/domain"
	"github.com/formaudit/backend/internal/infrastructure/snapshot"
	"github.com/formaudit/backend/internal/usecase"
)

// maxSnapshotBytes bounds the size of an uploaded snapshot
const maxSnapshotBytes = 8 << 20

// Handler holds dependencies for HTTP handlers
type Handler struct {
	audits *usecase.AuditService
	loops  *usecase.LoopGuardService
	logger *zap.Logger
}

// NewHandler creates a new HTTP handler. Either service may be nil, in which
// case its endpoints answer 503.
func NewHandler(audits *usecase.AuditService, loops *usecase.LoopGuardService, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		audits: audits,
		loops:  loops,
		logger: logger,
	}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "formaudit-backend",
		"version": "1.0.0",
	})
}

// CreateAudit audits the snapshot in the request body and returns the report
func (h *Handler) CreateAudit(c *gin.Context) {
	if h.audits == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "audit service not configured"})
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxSnapshotBytes))
	if err != nil {
		h.respondError(c, fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err))
		return
	}

	snap, err := snapshot.Decode(body, snapshot.FormatJSON)
	if err != nil {
		h.respondError(c, err)
		return
	}
	fields, signals := snapshot.ToDomain(snap)

	report, err := h.audits.Audit(c.Request.Context(), usecase.AuditRequest{
		Fields:  fields,
		Signals: signals,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// recordStateRequest is the body of POST /api/v1/traversals/:id/states
type recordStateRequest struct {
	StateKey string `json:"state_key" binding:"required"`
}

// RecordTraversalState records one visited state of an external traversal.
// A detected loop answers 409 with the loop check in the body.
func (h *Handler) RecordTraversalState(c *gin.Context) {
	if h.loops == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "loop guard not configured"})
		return
	}

	var req recordStateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err))
		return
	}

	check, err := h.loops.RecordState(c.Request.Context(), c.Param("id"), req.StateKey)
	if errors.Is(err, domain.ErrLoopDetected) {
		c.JSON(http.StatusConflict, check)
		return
	}
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, check)
}

// ResetTraversal forgets the history of a traversal
func (h *Handler) ResetTraversal(c *gin.Context) {
	if h.loops == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "loop guard not configured"})
		return
	}

	if err := h.loops.Reset(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// respondError maps domain errors onto HTTP status codes
func (h *Handler) respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidRequest), errors.Is(err, domain.ErrInvalidSnapshot):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrLoopDetected):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrChecklistUnavailable):
		status = http.StatusServiceUnavailable
	}

	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(status, gin.H{"error": "internal server error"})
		return
	}

	h.logger.Debug("request rejected", zap.String("path", c.FullPath()), zap.Int("status", status), zap.Error(err))
	c.JSON(status, gin.H{"error": err.Error()})
}
