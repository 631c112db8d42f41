package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"messenger-service/internal/repositories"
)

// presenceTracker is the live-connection view the user endpoints need.
type presenceTracker interface {
	Online(userID int) bool
	Logout(ctx context.Context, userID int)
}

// UserHandler serves the user directory merged with presence.
type UserHandler struct {
	identity identityClient
	presence repositories.PresenceRepository
	tracker  presenceTracker
}

// NewUserHandler constructs a UserHandler.
func NewUserHandler(identity identityClient, presence repositories.PresenceRepository, tracker presenceTracker) *UserHandler {
	return &UserHandler{
		identity: identity,
		presence: presence,
		tracker:  tracker,
	}
}

// ListUsers returns every user except the caller, with presence attached.
// Live connections win over the persisted row so a user who just connected
// shows online even before the row is updated.
func (h *UserHandler) ListUsers(c *gin.Context) {
	userID := c.GetInt("userID")

	users, err := h.identity.ListUsers(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to load users"})
		return
	}

	ids := make([]int, 0, len(users))
	for _, u := range users {
		ids = append(ids, int(u.GetId()))
	}

	persisted, err := h.presence.GetMany(c.Request.Context(), ids)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load presence"})
		return
	}

	type userResponse struct {
		UserID    int        `json:"user_id"`
		Username  string     `json:"username"`
		FirstName string     `json:"first_name,omitempty"`
		LastName  string     `json:"last_name,omitempty"`
		IsOnline  bool       `json:"is_online"`
		LastSeen  *time.Time `json:"last_seen,omitempty"`
	}

	responses := make([]userResponse, 0, len(users))
	for _, u := range users {
		id := int(u.GetId())
		resp := userResponse{
			UserID:    id,
			Username:  u.GetUsername(),
			FirstName: u.GetFirstName(),
			LastName:  u.GetLastName(),
			IsOnline:  h.tracker.Online(id),
		}
		if p, ok := persisted[id]; ok {
			if p.IsOnline {
				resp.IsOnline = true
			}
			lastSeen := p.LastSeen
			resp.LastSeen = &lastSeen
		}
		responses = append(responses, resp)
	}

	c.JSON(http.StatusOK, gin.H{"users": responses})
}

// Logout forces the caller offline regardless of open connections, so the
// presence change reaches other users before their sockets drop.
func (h *UserHandler) Logout(c *gin.Context) {
	userID := c.GetInt("userID")
	h.tracker.Logout(c.Request.Context(), userID)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
