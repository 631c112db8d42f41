package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"messenger-service/internal/observability"
	"messenger-service/internal/repositories"
	"messenger-service/internal/telemetry"
)

// ContactHandler manages the contact list.
type ContactHandler struct {
	contacts repositories.ContactRepository
	presence repositories.PresenceRepository
	identity identityClient
	audit    *telemetry.AuditEmitter
}

// NewContactHandler constructs a ContactHandler.
func NewContactHandler(contacts repositories.ContactRepository, presence repositories.PresenceRepository, identity identityClient, audit *telemetry.AuditEmitter) *ContactHandler {
	return &ContactHandler{
		contacts: contacts,
		presence: presence,
		identity: identity,
		audit:    audit,
	}
}

// ListContacts returns the caller's contacts with usernames and presence.
func (h *ContactHandler) ListContacts(c *gin.Context) {
	userID := c.GetInt("userID")

	contacts, err := h.contacts.ListContacts(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load contacts"})
		return
	}

	contactIDs := make([]int, 0, len(contacts))
	for _, contact := range contacts {
		contactIDs = append(contactIDs, contact.ContactID)
	}

	usernames := map[int]string{}
	if len(contactIDs) > 0 {
		users, err := h.identity.BulkUsers(c.Request.Context(), contactIDs)
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": "failed to load user info"})
			return
		}
		usernames = usernamesByID(users)
	}

	presenceByID, err := h.presence.GetMany(c.Request.Context(), contactIDs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load presence"})
		return
	}

	type contactResponse struct {
		UserID   int        `json:"user_id"`
		Username string     `json:"username,omitempty"`
		ChatID   int        `json:"chat_id"`
		IsOnline bool       `json:"is_online"`
		LastSeen *time.Time `json:"last_seen,omitempty"`
	}

	responses := make([]contactResponse, 0, len(contacts))
	for _, contact := range contacts {
		resp := contactResponse{
			UserID:   contact.ContactID,
			Username: usernames[contact.ContactID],
			ChatID:   contact.ChatID,
		}
		if p, ok := presenceByID[contact.ContactID]; ok {
			resp.IsOnline = p.IsOnline
			lastSeen := p.LastSeen
			resp.LastSeen = &lastSeen
		}
		responses = append(responses, resp)
	}

	c.JSON(http.StatusOK, gin.H{"contacts": responses})
}

// AddContact handles POST /contacts. Adding a contact also creates the 1:1
// chat between the two users in the same transaction.
func (h *ContactHandler) AddContact(c *gin.Context) {
	userID := c.GetInt("userID")

	var req struct {
		UserID int `json:"user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.UserID == userID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot add yourself"})
		return
	}

	if _, err := h.identity.GetUser(c.Request.Context(), req.UserID); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to validate user"})
		return
	}

	contact, err := h.contacts.AddContact(c.Request.Context(), userID, req.UserID)
	if err != nil {
		if errors.Is(err, repositories.ErrContactExists) {
			c.JSON(http.StatusConflict, gin.H{"error": "contact already exists"})
			return
		}
		h.emitAudit(c, "ERROR", "internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not add contact"})
		return
	}

	h.emitAudit(c, "INFO", "Contact added")
	_ = observability.PublishEvent(c.Request.Context(), "contact.added", observability.EventEnvelope{
		EventType: "contact",
		EventName: "contact_added",
		Payload:   map[string]interface{}{"owner_id": userID, "contact_id": contact.ContactID, "chat_id": contact.ChatID},
	})
	c.JSON(http.StatusCreated, gin.H{"user_id": contact.ContactID, "chat_id": contact.ChatID})
}

func (h *ContactHandler) emitAudit(c *gin.Context, level, text string) {
	if h.audit == nil {
		return
	}
	h.audit.Emit(c.Request.Context(), level, text, requestIDFromContext(c), userIDFromContext(c))
}
