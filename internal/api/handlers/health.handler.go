package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vigilops/vigil-core/pkg/cache"
	"github.com/vigilops/vigil-core/pkg/logger"
)

const serviceVersion = "v1.0.0"

// HealthHandler answers liveness and readiness probes.
type HealthHandler struct {
	cache  cache.Valkey
	logger logger.Logger
}

func NewHealthHandler(c cache.Valkey, logger logger.Logger) *HealthHandler {
	return &HealthHandler{cache: c, logger: logger}
}

// GET /health - Quick health check
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "vigil-core",
		"version":   serviceVersion,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// GET /ready - readiness depends on the cache answering a short probe
func (h *HealthHandler) ReadinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	probeKey := fmt.Sprintf("ready:%d", time.Now().UnixNano())
	err := h.cache.Set(ctx, probeKey, "1", time.Second)

	status := "healthy"
	httpStatus := http.StatusOK
	if err != nil {
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}
	resp := gin.H{
		"status":    status,
		"service":   "vigil-core",
		"version":   serviceVersion,
		"timestamp": time.Now().Format(time.RFC3339),
	}
	if err != nil {
		resp["error"] = err.Error()
	}
	c.JSON(httpStatus, resp)
}
