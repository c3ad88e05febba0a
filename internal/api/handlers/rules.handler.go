package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vigilops/vigil-core/internal/metrics"
	"github.com/vigilops/vigil-core/internal/models"
	"github.com/vigilops/vigil-core/internal/services"
	"github.com/vigilops/vigil-core/internal/storage"
	"github.com/vigilops/vigil-core/pkg/logger"
)

// RuleHandler manages escalation rules. Rules are deactivated rather than
// deleted so history stays explicable.
type RuleHandler struct {
	rules   storage.RuleStore
	matcher *services.RuleMatcher
	logger  logger.Logger
}

func NewRuleHandler(rules storage.RuleStore, matcher *services.RuleMatcher, logger logger.Logger) *RuleHandler {
	return &RuleHandler{rules: rules, matcher: matcher, logger: logger}
}

// GET /api/v1/rules
func (h *RuleHandler) ListRules(c *gin.Context) {
	activeOnly := c.Query("active") == "true"
	rules, err := h.rules.ListRules(c.Request.Context(), activeOnly)
	if err != nil {
		h.logger.Error("Rule listing failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": "listing failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data":   gin.H{"rules": rules, "count": len(rules)},
	})
}

// GET /api/v1/rules/:id
func (h *RuleHandler) GetRule(c *gin.Context) {
	rule, err := h.rules.GetRule(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"status": "error", "error": "rule not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": "lookup failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": rule})
}

// POST /api/v1/rules
func (h *RuleHandler) CreateRule(c *gin.Context) {
	var rule models.EscalationRule
	if err := c.ShouldBindJSON(&rule); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": err.Error()})
		return
	}
	rule.Active = true
	if err := models.ValidateRule(&rule); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": err.Error()})
		return
	}

	now := time.Now().UTC()
	rule.CreatedAt = now
	rule.UpdatedAt = now
	if err := h.rules.CreateRule(c.Request.Context(), &rule); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			c.JSON(http.StatusConflict, gin.H{"status": "error", "error": "rule id already exists"})
			return
		}
		h.logger.Error("Rule create failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": "create failed"})
		return
	}
	h.logger.Info("Escalation rule created", "ruleId", rule.ID, "name", rule.Name)
	c.JSON(http.StatusCreated, gin.H{"status": "success", "data": rule})
}

// PUT /api/v1/rules/:id
func (h *RuleHandler) UpdateRule(c *gin.Context) {
	var rule models.EscalationRule
	if err := c.ShouldBindJSON(&rule); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": err.Error()})
		return
	}
	rule.ID = c.Param("id")
	if err := models.ValidateRule(&rule); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": err.Error()})
		return
	}

	existing, err := h.rules.GetRule(c.Request.Context(), rule.ID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"status": "error", "error": "rule not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": "lookup failed"})
		return
	}
	rule.CreatedAt = existing.CreatedAt
	rule.UpdatedAt = time.Now().UTC()
	if err := h.rules.UpdateRule(c.Request.Context(), &rule); err != nil {
		h.logger.Error("Rule update failed", "ruleId", rule.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": "update failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": rule})
}

// DELETE /api/v1/rules/:id - deactivates; running instances keep going
func (h *RuleHandler) DeactivateRule(c *gin.Context) {
	rule, err := h.rules.GetRule(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"status": "error", "error": "rule not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": "lookup failed"})
		return
	}
	if rule.Active {
		rule.Active = false
		rule.UpdatedAt = time.Now().UTC()
		if err := h.rules.UpdateRule(c.Request.Context(), rule); err != nil {
			h.logger.Error("Rule deactivation failed", "ruleId", rule.ID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": "update failed"})
			return
		}
		metrics.RulesDeactivatedTotal.WithLabelValues("api").Inc()
		h.logger.Info("Escalation rule deactivated", "ruleId", rule.ID)
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": rule})
}

type ruleTestRequest struct {
	Rule  models.EscalationRule `json:"rule" binding:"required"`
	Event models.AlertEvent     `json:"event" binding:"required"`
}

// POST /api/v1/rules/test - dry-run a rule against a sample event
func (h *RuleHandler) TestRule(c *gin.Context) {
	var req ruleTestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": err.Error()})
		return
	}
	req.Rule.Active = true
	if err := models.ValidateRule(&req.Rule); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": err.Error()})
		return
	}

	matches := h.matcher.Matches(&req.Rule, &req.Event)
	conditions := services.EvaluateConditions(req.Rule.Conditions, &req.Event)
	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data": gin.H{
			"matches":        matches,
			"conditions_met": conditions,
		},
	})
}
