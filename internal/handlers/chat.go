package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"messenger-service/internal/delivery"
	"messenger-service/internal/models"
	"messenger-service/internal/repositories"
	"messenger-service/internal/telemetry"
)

// ChatHandler manages chat lifecycle and membership endpoints.
type ChatHandler struct {
	chatRepo    repositories.ChatRepository
	messageRepo repositories.MessageRepository
	pipeline    *delivery.Pipeline
	identity    identityClient
	audit       *telemetry.AuditEmitter
}

// NewChatHandler constructs a ChatHandler.
func NewChatHandler(chatRepo repositories.ChatRepository, messageRepo repositories.MessageRepository, pipeline *delivery.Pipeline, identity identityClient, audit *telemetry.AuditEmitter) *ChatHandler {
	return &ChatHandler{
		chatRepo:    chatRepo,
		messageRepo: messageRepo,
		pipeline:    pipeline,
		identity:    identity,
		audit:       audit,
	}
}

// ListChats returns the caller's chats with a decrypted last-message preview
// and the unread count per chat. Direct chats carry no stored name, so the
// other member's username is shown instead.
func (h *ChatHandler) ListChats(c *gin.Context) {
	userID := c.GetInt("userID")
	ctx := c.Request.Context()

	summaries, err := h.chatRepo.ListChatSummaries(ctx, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load chats"})
		return
	}

	names := h.directChatNames(c, summaries, userID)

	for i := range summaries {
		s := &summaries[i]
		if !s.IsGroup {
			if name, ok := names[s.ChatID]; ok && name != "" {
				s.Name = name
			}
		}

		msg, err := h.messageRepo.LastMessage(ctx, s.ChatID)
		if err != nil {
			// Empty chats have no preview, and a failed lookup should not
			// take down the whole list.
			if !errors.Is(err, repositories.ErrMessageNotFound) {
				log.Printf("last message lookup failed chat_id=%d: %v", s.ChatID, err)
			}
			continue
		}
		revealed := h.pipeline.Reveal(msg)
		s.LastMessage = &revealed
	}

	c.JSON(http.StatusOK, gin.H{"chats": summaries})
}

// directChatNames resolves, per 1:1 chat, the username of the member that is
// not the caller. Resolution is best effort; chats it cannot resolve keep
// their stored name.
func (h *ChatHandler) directChatNames(c *gin.Context, summaries []models.ChatSummary, userID int) map[int]string {
	otherByChat := make(map[int]int)
	otherIDs := make([]int, 0)
	for _, s := range summaries {
		if s.IsGroup {
			continue
		}
		memberIDs, err := h.chatRepo.ListMemberIDs(c.Request.Context(), s.ChatID)
		if err != nil {
			continue
		}
		for _, id := range memberIDs {
			if id != userID {
				otherByChat[s.ChatID] = id
				otherIDs = append(otherIDs, id)
				break
			}
		}
	}
	if len(otherIDs) == 0 {
		return nil
	}

	users, err := h.identity.BulkUsers(c.Request.Context(), otherIDs)
	if err != nil {
		log.Printf("could not resolve direct chat names: %v", err)
		return nil
	}
	usernames := usernamesByID(users)

	names := make(map[int]string, len(otherByChat))
	for chatID, otherID := range otherByChat {
		names[chatID] = usernames[otherID]
	}
	return names
}

// CreateGroup handles POST /chats. Members are verified against the identity
// service before any row is written; the caller becomes the owner.
func (h *ChatHandler) CreateGroup(c *gin.Context) {
	userID := c.GetInt("userID")

	var req struct {
		Name      string `json:"name" binding:"required"`
		MemberIDs []int  `json:"member_ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.emitAudit(c, "ERROR", "invalid request payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if len(req.MemberIDs) > 0 {
		if _, err := h.identity.BulkUsers(c.Request.Context(), req.MemberIDs); err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": "failed to validate members"})
			return
		}
	}

	chat, err := h.chatRepo.CreateGroupChat(c.Request.Context(), userID, req.Name, req.MemberIDs)
	if err != nil {
		h.emitAudit(c, "ERROR", "internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create chat"})
		return
	}

	h.emitAudit(c, "INFO", "Chat created")
	c.JSON(http.StatusCreated, gin.H{"chat_id": chat.ID})
}

// RenameChat handles PATCH /chats/:chat_id. Admin or owner only.
func (h *ChatHandler) RenameChat(c *gin.Context) {
	chatID, ok := chatIDParam(c)
	if !ok {
		return
	}
	userID := c.GetInt("userID")

	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	role, member, err := h.chatRepo.RoleOf(c.Request.Context(), chatID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if !member || !role.Privileged() {
		c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
		return
	}

	if err := h.chatRepo.RenameChat(c.Request.Context(), chatID, req.Name); err != nil {
		respondPipelineError(c, err)
		return
	}

	h.emitAudit(c, "INFO", "Chat renamed")
	c.Status(http.StatusNoContent)
}

// ListMembers returns a chat's members with usernames resolved.
func (h *ChatHandler) ListMembers(c *gin.Context) {
	chatID, ok := chatIDParam(c)
	if !ok {
		return
	}
	userID := c.GetInt("userID")

	if _, member, err := h.chatRepo.RoleOf(c.Request.Context(), chatID, userID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	} else if !member {
		c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
		return
	}

	memberIDs, err := h.chatRepo.ListMemberIDs(c.Request.Context(), chatID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load members"})
		return
	}

	users, err := h.identity.BulkUsers(c.Request.Context(), memberIDs)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to load user info"})
		return
	}
	usernames := usernamesByID(users)

	type memberResponse struct {
		UserID   int    `json:"user_id"`
		Username string `json:"username,omitempty"`
	}
	responses := make([]memberResponse, 0, len(memberIDs))
	for _, id := range memberIDs {
		responses = append(responses, memberResponse{UserID: id, Username: usernames[id]})
	}

	c.JSON(http.StatusOK, gin.H{"members": responses})
}

// AddMember handles POST /chats/:chat_id/members. Admin or owner only.
func (h *ChatHandler) AddMember(c *gin.Context) {
	chatID, ok := chatIDParam(c)
	if !ok {
		return
	}
	userID := c.GetInt("userID")

	var req struct {
		UserID int `json:"user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	role, member, err := h.chatRepo.RoleOf(c.Request.Context(), chatID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if !member || !role.Privileged() {
		c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
		return
	}

	if _, err := h.identity.GetUser(c.Request.Context(), req.UserID); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to validate user"})
		return
	}

	if err := h.chatRepo.AddMember(c.Request.Context(), chatID, req.UserID, models.RoleMember); err != nil {
		respondPipelineError(c, err)
		return
	}

	h.emitAudit(c, "INFO", "Member added")
	c.Status(http.StatusNoContent)
}

// RemoveMember handles DELETE /chats/:chat_id/members/:user_id. A member may
// leave on their own; removing someone else requires admin or owner. The
// owner cannot be removed.
func (h *ChatHandler) RemoveMember(c *gin.Context) {
	chatID, ok := chatIDParam(c)
	if !ok {
		return
	}
	targetID, err := strconv.Atoi(c.Param("user_id"))
	if err != nil || targetID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}
	userID := c.GetInt("userID")

	role, member, err := h.chatRepo.RoleOf(c.Request.Context(), chatID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if !member {
		c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
		return
	}
	if targetID != userID && !role.Privileged() {
		c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
		return
	}

	targetRole, targetMember, err := h.chatRepo.RoleOf(c.Request.Context(), chatID, targetID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if !targetMember {
		c.JSON(http.StatusNotFound, gin.H{"error": "not a member"})
		return
	}
	if targetRole == models.RoleOwner {
		c.JSON(http.StatusForbidden, gin.H{"error": "owner cannot be removed"})
		return
	}

	if err := h.chatRepo.RemoveMember(c.Request.Context(), chatID, targetID); err != nil {
		respondPipelineError(c, err)
		return
	}

	h.emitAudit(c, "INFO", "Member removed")
	c.Status(http.StatusNoContent)
}

func (h *ChatHandler) emitAudit(c *gin.Context, level, text string) {
	if h.audit == nil {
		return
	}
	h.audit.Emit(c.Request.Context(), level, text, requestIDFromContext(c), userIDFromContext(c))
}
