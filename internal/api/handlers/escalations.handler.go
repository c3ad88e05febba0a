package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/vigilops/vigil-core/internal/models"
	"github.com/vigilops/vigil-core/internal/services"
	"github.com/vigilops/vigil-core/internal/storage"
	"github.com/vigilops/vigil-core/pkg/logger"
)

// EscalationHandler exposes escalation instances and the operator verbs
// acting on them.
type EscalationHandler struct {
	lifecycle *services.EscalationService
	logger    logger.Logger
}

func NewEscalationHandler(lifecycle *services.EscalationService, logger logger.Logger) *EscalationHandler {
	return &EscalationHandler{lifecycle: lifecycle, logger: logger}
}

// GET /api/v1/escalations
func (h *EscalationHandler) ListInstances(c *gin.Context) {
	q := models.InstanceQuery{
		AlertID: c.Query("alert_id"),
		RuleID:  c.Query("rule_id"),
		Status:  c.Query("status"),
	}
	if v := c.Query("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": "limit must be a non-negative integer"})
			return
		}
		q.Limit = limit
	}

	instances, err := h.lifecycle.List(c.Request.Context(), q)
	if err != nil {
		h.logger.Error("Instance listing failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": "listing failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data":   gin.H{"escalations": instances, "count": len(instances)},
	})
}

// GET /api/v1/escalations/:id
func (h *EscalationHandler) GetInstance(c *gin.Context) {
	inst, err := h.lifecycle.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": inst})
}

// GET /api/v1/escalations/:id/history
func (h *EscalationHandler) GetHistory(c *gin.Context) {
	inst, err := h.lifecycle.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data":   gin.H{"instance_id": inst.ID, "history": inst.History},
	})
}

type actorRequest struct {
	Actor string `json:"actor" binding:"required"`
	Note  string `json:"note"`
}

// POST /api/v1/escalations/:id/acknowledge
func (h *EscalationHandler) Acknowledge(c *gin.Context) {
	var req actorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": err.Error()})
		return
	}

	inst, err := h.lifecycle.Acknowledge(c.Request.Context(), c.Param("id"), req.Actor)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": inst})
}

// POST /api/v1/escalations/:id/resolve
func (h *EscalationHandler) Resolve(c *gin.Context) {
	var req actorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": err.Error()})
		return
	}

	inst, err := h.lifecycle.Resolve(c.Request.Context(), c.Param("id"), req.Actor, req.Note)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": inst})
}

func (h *EscalationHandler) respondError(c *gin.Context, err error) {
	var terr *services.TransitionError
	switch {
	case errors.Is(err, storage.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"status": "error", "error": "escalation not found"})
	case errors.As(err, &terr):
		c.JSON(http.StatusConflict, gin.H{"status": "error", "error": terr.Error()})
	default:
		h.logger.Error("Escalation operation failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": "operation failed"})
	}
}
