package handler

import (
	"errors"
	"net/http"

	"vanishly/backend/internal/storage"

	"github.com/gin-gonic/gin"
)

// RecordView handles POST /messages/:id/view. The viewer is the caller.
func (h *Handler) RecordView(c *gin.Context) {
	viewerID, ok := userIDFromRequest(c)
	if !ok {
		return
	}

	if err := h.Facade.RecordView(c.Param("id"), viewerID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type presenceRequest struct {
	IsActive bool `json:"is_active"`
}

// SetPresence handles POST /chats/:id/presence.
func (h *Handler) SetPresence(c *gin.Context) {
	userID, ok := userIDFromRequest(c)
	if !ok {
		return
	}

	var req presenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if err := h.Facade.SetPresence(c.Param("id"), userID, req.IsActive); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// RunCleanup handles POST /cleanup, optionally scoped with ?chat_id=.
func (h *Handler) RunCleanup(c *gin.Context) {
	report, err := h.Facade.RunCleanup(c.Request.Context(), c.Query("chat_id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "report": report})
		return
	}
	c.JSON(http.StatusOK, report)
}

// GetPendingViewers handles GET /messages/:id/pending-viewers.
func (h *Handler) GetPendingViewers(c *gin.Context) {
	pending, err := h.Facade.GetPendingViewers(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pending_viewers": pending})
}

// GetChatStats handles GET /chats/:id/stats.
func (h *Handler) GetChatStats(c *gin.Context) {
	stats, err := h.Facade.GetChatLifecycleStats(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// respondError maps storage sentinels to 404 and everything else to 500.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, storage.ErrMessageNotFound),
		errors.Is(err, storage.ErrChatNotFound),
		errors.Is(err, storage.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
