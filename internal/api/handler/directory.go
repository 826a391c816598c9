package handler

import (
	"net/http"

	"vanishly/backend/internal/models"

	"github.com/gin-gonic/gin"
)

// Stand-in endpoints for the external chat directory and message store.
// A production deployment would integrate those systems directly against
// the storage tables; these routes exist so the whole lifecycle can be
// driven end to end from one service.

type createChatRequest struct {
	ChatType  string   `json:"chat_type"`
	MemberIDs []string `json:"member_ids" binding:"required"`
}

// CreateChat handles POST /chats.
func (h *Handler) CreateChat(c *gin.Context) {
	var req createChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if req.ChatType == "" {
		req.ChatType = models.ChatTypeDirect
	}
	if req.ChatType != models.ChatTypeDirect && req.ChatType != models.ChatTypeGroup {
		c.JSON(http.StatusBadRequest, gin.H{"error": "chat_type must be direct or group"})
		return
	}

	chat := &models.Chat{ChatType: req.ChatType, MemberIDs: req.MemberIDs}
	if err := h.Storage.CreateChat(chat); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, chat)
}

type createMessageRequest struct {
	IsEphemeral *bool `json:"is_ephemeral"`
}

// CreateMessage handles POST /chats/:id/messages. The sender is the caller;
// messages default to ephemeral, matching direct-chat product behavior.
func (h *Handler) CreateMessage(c *gin.Context) {
	senderID, ok := userIDFromRequest(c)
	if !ok {
		return
	}

	chat, err := h.Storage.GetChatByID(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if !chat.HasMember(senderID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "sender is not a participant of the chat"})
		return
	}

	var req createMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	ephemeral := true
	if req.IsEphemeral != nil {
		ephemeral = *req.IsEphemeral
	}

	msg := &models.Message{
		ChatID:      chat.ID,
		SenderID:    senderID,
		IsEphemeral: ephemeral,
	}
	if err := h.Storage.CreateMessage(msg); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// RemoveChatMember handles DELETE /chats/:id/members/:user_id. Views the
// departing member already recorded stay behind; only future completeness
// checks shrink.
func (h *Handler) RemoveChatMember(c *gin.Context) {
	if err := h.Storage.RemoveChatMember(c.Param("id"), c.Param("user_id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
