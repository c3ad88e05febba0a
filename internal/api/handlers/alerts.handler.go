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

// AlertHandler exposes alert-event ingestion and listing. External systems
// (document pipeline, payment gateway watchdogs) emit candidates here; the
// detectors use the same pipeline internally.
type AlertHandler struct {
	ingest *services.Ingestor
	alerts storage.AlertStore
	logger logger.Logger
}

func NewAlertHandler(ingest *services.Ingestor, alerts storage.AlertStore, logger logger.Logger) *AlertHandler {
	return &AlertHandler{ingest: ingest, alerts: alerts, logger: logger}
}

type emitAlertRequest struct {
	Type     string                 `json:"type" binding:"required"`
	Scope    string                 `json:"scope"`
	Severity string                 `json:"severity" binding:"required"`
	Message  string                 `json:"message" binding:"required"`
	Metadata map[string]interface{} `json:"metadata"`
}

// POST /api/v1/alerts - emit an alert candidate
func (h *AlertHandler) EmitAlert(c *gin.Context) {
	var req emitAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": err.Error()})
		return
	}

	cand := &models.AlertCandidate{
		Type:     req.Type,
		Scope:    req.Scope,
		Severity: req.Severity,
		Message:  req.Message,
		Metadata: models.MetadataFromAny(req.Metadata),
	}
	event, outcome, err := h.ingest.Ingest(c.Request.Context(), cand)
	if err != nil {
		var cfgErr *models.ConfigError
		if errors.As(err, &cfgErr) {
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": cfgErr.Error()})
			return
		}
		h.logger.Error("Alert ingest failed", "type", req.Type, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": "ingest failed"})
		return
	}

	status := http.StatusOK
	if outcome == services.DedupCreated {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{
		"status": "success",
		"data":   gin.H{"outcome": outcome, "alert": event},
	})
}

// GET /api/v1/alerts - list alert events
func (h *AlertHandler) ListAlerts(c *gin.Context) {
	q := models.AlertQuery{
		Type:     c.Query("type"),
		Scope:    c.Query("scope"),
		Severity: c.Query("severity"),
	}
	if v := c.Query("resolved"); v != "" {
		resolved, err := strconv.ParseBool(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": "resolved must be a boolean"})
			return
		}
		q.Resolved = &resolved
	}
	if v := c.Query("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": "limit must be a non-negative integer"})
			return
		}
		q.Limit = limit
	}

	events, err := h.alerts.ListAlerts(c.Request.Context(), q)
	if err != nil {
		h.logger.Error("Alert listing failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": "listing failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data":   gin.H{"alerts": events, "count": len(events)},
	})
}

// GET /api/v1/alerts/:id
func (h *AlertHandler) GetAlert(c *gin.Context) {
	event, err := h.alerts.GetAlert(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"status": "error", "error": "alert not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": "lookup failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": event})
}

// POST /api/v1/alerts/:id/resolve - mark the underlying condition cleared
func (h *AlertHandler) ResolveAlert(c *gin.Context) {
	ctx := c.Request.Context()
	event, err := h.alerts.GetAlert(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"status": "error", "error": "alert not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": "lookup failed"})
		return
	}
	if event.Resolved {
		c.JSON(http.StatusOK, gin.H{"status": "success", "data": event})
		return
	}

	if _, err := h.ingest.Clear(ctx, event.DedupKey()); err != nil {
		h.logger.Error("Alert resolve failed", "alertId", event.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": "resolve failed"})
		return
	}
	resolved, err := h.alerts.GetAlert(ctx, event.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": "lookup failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": resolved})
}
