package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vigilops/vigil-core/internal/models"
	"github.com/vigilops/vigil-core/internal/services"
	"github.com/vigilops/vigil-core/pkg/logger"
)

// AuditHandler exposes the read side of the audit trail.
type AuditHandler struct {
	audit  *services.AuditService
	logger logger.Logger
}

func NewAuditHandler(audit *services.AuditService, logger logger.Logger) *AuditHandler {
	return &AuditHandler{audit: audit, logger: logger}
}

// GET /api/v1/audit
func (h *AuditHandler) QueryAudit(c *gin.Context) {
	q := models.AuditQuery{
		Category:   c.Query("category"),
		Action:     c.Query("action"),
		AlertID:    c.Query("alert_id"),
		InstanceID: c.Query("instance_id"),
	}
	if v := c.Query("since"); v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": "since must be RFC3339"})
			return
		}
		q.Since = ts
	}
	if v := c.Query("until"); v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": "until must be RFC3339"})
			return
		}
		q.Until = ts
	}
	if v := c.Query("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": "limit must be a non-negative integer"})
			return
		}
		q.Limit = limit
	}

	entries, err := h.audit.Query(c.Request.Context(), q)
	if err != nil {
		h.logger.Error("Audit query failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data":   gin.H{"entries": entries, "count": len(entries)},
	})
}
