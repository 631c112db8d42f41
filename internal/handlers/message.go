package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"messenger-service/internal/delivery"
	"messenger-service/internal/repositories"
	"messenger-service/internal/telemetry"
)

const messagesPerPage = 50

// MessageHandler exposes message endpoints on top of the delivery pipeline.
type MessageHandler struct {
	pipeline    *delivery.Pipeline
	chatRepo    repositories.ChatRepository
	reactions   repositories.ReactionRepository
	attachments repositories.AttachmentRepository
	messageRepo repositories.MessageRepository
	audit       *telemetry.AuditEmitter
}

// NewMessageHandler constructs a MessageHandler.
func NewMessageHandler(pipeline *delivery.Pipeline, chatRepo repositories.ChatRepository, reactions repositories.ReactionRepository, attachments repositories.AttachmentRepository, messageRepo repositories.MessageRepository, audit *telemetry.AuditEmitter) *MessageHandler {
	return &MessageHandler{
		pipeline:    pipeline,
		chatRepo:    chatRepo,
		reactions:   reactions,
		attachments: attachments,
		messageRepo: messageRepo,
		audit:       audit,
	}
}

// GetMessages returns one page of chat history, newest page first. Fetching
// marks the caller's unread messages in the chat as read.
func (h *MessageHandler) GetMessages(c *gin.Context) {
	chatID, ok := chatIDParam(c)
	if !ok {
		return
	}
	userID := c.GetInt("userID")

	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}

	msgs, err := h.pipeline.FetchMessages(c.Request.Context(), chatID, userID, page, messagesPerPage)
	if err != nil {
		respondPipelineError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": msgs, "page": page})
}

// SendMessage handles POST /chats/:chat_id/messages.
func (h *MessageHandler) SendMessage(c *gin.Context) {
	chatID, ok := chatIDParam(c)
	if !ok {
		return
	}
	userID := c.GetInt("userID")

	var req struct {
		Content     string `json:"content" binding:"required"`
		ContentType string `json:"content_type"`
		ReplyToID   *int   `json:"reply_to_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.emitAudit(c, "ERROR", "invalid request payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := h.pipeline.SendMessage(c.Request.Context(), chatID, userID, req.Content, req.ContentType, req.ReplyToID)
	if err != nil {
		respondPipelineError(c, err)
		return
	}

	h.emitAudit(c, "INFO", "Message sent")
	c.JSON(http.StatusCreated, msg)
}

// EditMessage handles PUT /chats/:chat_id/messages/:message_id.
func (h *MessageHandler) EditMessage(c *gin.Context) {
	chatID, ok := chatIDParam(c)
	if !ok {
		return
	}
	messageID, ok := messageIDParam(c)
	if !ok {
		return
	}
	userID := c.GetInt("userID")

	var req struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := h.pipeline.EditMessage(c.Request.Context(), chatID, messageID, userID, req.Content)
	if err != nil {
		respondPipelineError(c, err)
		return
	}

	h.emitAudit(c, "INFO", "Message edited")
	c.JSON(http.StatusOK, msg)
}

// DeleteMessage handles DELETE /chats/:chat_id/messages/:message_id. The row
// stays as a tombstone so replies keep a target.
func (h *MessageHandler) DeleteMessage(c *gin.Context) {
	chatID, ok := chatIDParam(c)
	if !ok {
		return
	}
	messageID, ok := messageIDParam(c)
	if !ok {
		return
	}
	userID := c.GetInt("userID")

	if err := h.pipeline.DeleteMessage(c.Request.Context(), chatID, messageID, userID); err != nil {
		respondPipelineError(c, err)
		return
	}

	h.emitAudit(c, "INFO", "Message deleted")
	c.Status(http.StatusNoContent)
}

// PinMessage handles PUT /chats/:chat_id/messages/:message_id/pin.
func (h *MessageHandler) PinMessage(c *gin.Context) {
	chatID, ok := chatIDParam(c)
	if !ok {
		return
	}
	messageID, ok := messageIDParam(c)
	if !ok {
		return
	}
	userID := c.GetInt("userID")

	var req struct {
		Pinned *bool `json:"pinned" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.pipeline.SetPinned(c.Request.Context(), chatID, messageID, userID, *req.Pinned); err != nil {
		respondPipelineError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// React handles POST /chats/:chat_id/messages/:message_id/reactions.
// Repeating the same emoji removes it; a different emoji replaces it.
func (h *MessageHandler) React(c *gin.Context) {
	chatID, ok := chatIDParam(c)
	if !ok {
		return
	}
	messageID, ok := messageIDParam(c)
	if !ok {
		return
	}
	userID := c.GetInt("userID")

	var req struct {
		Emoji string `json:"emoji" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	action, err := h.pipeline.ToggleReaction(c.Request.Context(), chatID, messageID, userID, req.Emoji)
	if err != nil {
		respondPipelineError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"action": action})
}

// ListReactions handles GET /chats/:chat_id/messages/:message_id/reactions.
func (h *MessageHandler) ListReactions(c *gin.Context) {
	chatID, ok := chatIDParam(c)
	if !ok {
		return
	}
	messageID, ok := messageIDParam(c)
	if !ok {
		return
	}
	userID := c.GetInt("userID")

	if !h.authorizeMessageRead(c, chatID, messageID, userID) {
		return
	}

	reactions, err := h.reactions.ListForMessage(c.Request.Context(), messageID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load reactions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"reactions": reactions})
}

// AddAttachment handles POST /chats/:chat_id/messages/:message_id/attachments.
// Metadata only; blobs live elsewhere.
func (h *MessageHandler) AddAttachment(c *gin.Context) {
	chatID, ok := chatIDParam(c)
	if !ok {
		return
	}
	messageID, ok := messageIDParam(c)
	if !ok {
		return
	}
	userID := c.GetInt("userID")

	var req struct {
		FileName string `json:"file_name" binding:"required"`
		FileSize int64  `json:"file_size" binding:"required"`
		MimeType string `json:"mime_type" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := h.messageRepo.GetMessage(c.Request.Context(), messageID)
	if err != nil {
		respondPipelineError(c, err)
		return
	}
	if msg.ChatID != chatID || msg.SenderID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
		return
	}

	att, err := h.attachments.Create(c.Request.Context(), messageID, req.FileName, req.FileSize, req.MimeType, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not save attachment"})
		return
	}

	c.JSON(http.StatusCreated, att)
}

// ListAttachments handles GET /chats/:chat_id/messages/:message_id/attachments.
func (h *MessageHandler) ListAttachments(c *gin.Context) {
	chatID, ok := chatIDParam(c)
	if !ok {
		return
	}
	messageID, ok := messageIDParam(c)
	if !ok {
		return
	}
	userID := c.GetInt("userID")

	if !h.authorizeMessageRead(c, chatID, messageID, userID) {
		return
	}

	atts, err := h.attachments.GetForMessage(c.Request.Context(), messageID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load attachments"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"attachments": atts})
}

// authorizeMessageRead gates the read-only message endpoints: the caller must
// be a member of the chat in the path, and the message must belong to that
// chat. A message from another chat is reported as not found, the same as a
// missing one.
func (h *MessageHandler) authorizeMessageRead(c *gin.Context, chatID, messageID, userID int) bool {
	if _, member, err := h.chatRepo.RoleOf(c.Request.Context(), chatID, userID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return false
	} else if !member {
		c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
		return false
	}

	msg, err := h.messageRepo.GetMessage(c.Request.Context(), messageID)
	if err != nil {
		respondPipelineError(c, err)
		return false
	}
	if msg.ChatID != chatID {
		c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
		return false
	}
	return true
}

func (h *MessageHandler) emitAudit(c *gin.Context, level, text string) {
	if h.audit == nil {
		return
	}
	h.audit.Emit(c.Request.Context(), level, text, requestIDFromContext(c), userIDFromContext(c))
}
