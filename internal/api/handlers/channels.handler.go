package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vigilops/vigil-core/internal/models"
	"github.com/vigilops/vigil-core/internal/storage"
	"github.com/vigilops/vigil-core/pkg/logger"
)

// ChannelHandler manages notification channel definitions.
type ChannelHandler struct {
	channels storage.ChannelStore
	logger   logger.Logger
}

func NewChannelHandler(channels storage.ChannelStore, logger logger.Logger) *ChannelHandler {
	return &ChannelHandler{channels: channels, logger: logger}
}

// GET /api/v1/channels
func (h *ChannelHandler) ListChannels(c *gin.Context) {
	channels, err := h.channels.ListChannels(c.Request.Context())
	if err != nil {
		h.logger.Error("Channel listing failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": "listing failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data":   gin.H{"channels": channels, "count": len(channels)},
	})
}

// GET /api/v1/channels/:id
func (h *ChannelHandler) GetChannel(c *gin.Context) {
	ch, err := h.channels.GetChannel(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"status": "error", "error": "channel not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": "lookup failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": ch})
}

// PUT /api/v1/channels/:id
func (h *ChannelHandler) UpsertChannel(c *gin.Context) {
	var ch models.NotificationChannel
	if err := c.ShouldBindJSON(&ch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": err.Error()})
		return
	}
	ch.ID = c.Param("id")
	if err := models.ValidateChannel(&ch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": err.Error()})
		return
	}
	if err := h.channels.UpsertChannel(c.Request.Context(), &ch); err != nil {
		h.logger.Error("Channel upsert failed", "channelId", ch.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": "upsert failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": ch})
}
