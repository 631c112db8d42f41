package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"messenger-service/internal/models"
	"messenger-service/internal/observability"
)

// TokenValidator is the identity-provider slice the handler needs.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (int, error)
}

// MembershipChecker authorizes room joins. The check runs against current
// state on every join request; a user kicked from a chat cannot rejoin its
// room on a live connection.
type MembershipChecker interface {
	RoleOf(ctx context.Context, chatID int, userID int) (models.Role, bool, error)
}

// PresenceTracker is notified about connection lifecycle.
type PresenceTracker interface {
	Connected(ctx context.Context, userID int)
	Disconnected(ctx context.Context, userID int)
}

// Handler upgrades websocket connections and runs their event loops.
type Handler struct {
	hub        *Hub
	membership MembershipChecker
	validator  TokenValidator
	presence   PresenceTracker
}

// NewHandler constructs a Handler.
func NewHandler(hub *Hub, membership MembershipChecker, validator TokenValidator, presence PresenceTracker) *Handler {
	return &Handler{hub: hub, membership: membership, validator: validator, presence: presence}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle authenticates, upgrades and registers the connection. Connections
// without a valid token are rejected before any room admission or presence
// change happens.
func (h *Handler) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("messenger-service/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	token := c.GetHeader("Authorization")
	if token == "" {
		token = c.Query("token")
		if token != "" {
			token = "Bearer " + token
		}
	}

	// Rejected handshakes get a bare status, no error payload.
	userID, err := h.validateToken(c.Request.Context(), token)
	if err != nil {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	info := ConnInfo{
		ConnID:      newConnID(),
		UserID:      userID,
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   observability.RequestIDFromRequest(c.Request),
		TraceID:     span.SpanContext().TraceID().String(),
		ConnectedAt: time.Now(),
	}
	client := NewClient(conn, userID, info)

	h.hub.Register(client)
	h.presence.Connected(context.Background(), userID)

	observability.IncWSActive()
	observability.IncWSEvent("ws_connect")
	h.publishConnEvent(context.Background(), "ws_connect", info, "")

	go client.WritePump()
	go h.readLoop(client)
}

// readLoop processes join/leave/typing requests until the connection drops,
// then tears everything down: room membership first, presence after.
func (h *Handler) readLoop(client *Client) {
	conn := client.conn
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	var closeReason string
	defer func() {
		h.hub.Unregister(client)
		h.presence.Disconnected(context.Background(), client.UserID)
		observability.DecWSActive()
		observability.IncWSEvent("ws_disconnect")
		h.publishConnEvent(context.Background(), "ws_disconnect", client.Info, closeReason)
		conn.Close()
	}()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			closeReason = err.Error()
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				observability.IncWSEvent("ws_error")
			}
			return
		}

		var req models.ClientRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			log.Printf("ws bad frame conn_id=%s: %v", client.Info.ConnID, err)
			continue
		}
		h.handleRequest(client, req)
	}
}

func (h *Handler) handleRequest(client *Client, req models.ClientRequest) {
	ctx := context.Background()
	switch req.Type {
	case models.RequestJoinChat:
		_, member, err := h.membership.RoleOf(ctx, req.ChatID, client.UserID)
		if err != nil {
			log.Printf("ws membership check failed chat_id=%d user_id=%d: %v", req.ChatID, client.UserID, err)
			return
		}
		if !member {
			observability.IncWSEvent("join_denied")
			return
		}
		h.hub.Join(req.ChatID, client)
		observability.IncWSEvent(models.RequestJoinChat)
	case models.RequestLeaveChat:
		h.hub.Leave(req.ChatID, client)
		observability.IncWSEvent(models.RequestLeaveChat)
	case models.RequestTypingStart:
		if h.hub.InRoom(req.ChatID, client) {
			h.hub.BroadcastRoom(req.ChatID, models.Event{Type: models.EventUserTyping, UserID: client.UserID, ChatID: req.ChatID}, client)
		}
	case models.RequestTypingStop:
		if h.hub.InRoom(req.ChatID, client) {
			h.hub.BroadcastRoom(req.ChatID, models.Event{Type: models.EventUserStopTyping, UserID: client.UserID, ChatID: req.ChatID}, client)
		}
	default:
		log.Printf("ws unknown request type %q conn_id=%s", req.Type, client.Info.ConnID)
	}
}

func (h *Handler) publishConnEvent(ctx context.Context, name string, info ConnInfo, reason string) {
	_ = observability.PublishEvent(ctx, "ws_events.connections", observability.EventEnvelope{
		EventType: "ws_events",
		EventName: name,
		Payload: map[string]interface{}{
			"ws": map[string]interface{}{
				"event":       name,
				"conn_id":     info.ConnID,
				"duration_ms": time.Since(info.ConnectedAt).Milliseconds(),
				"reason":      reason,
			},
			"identity": map[string]interface{}{
				"user_id":   info.UserID,
				"device_id": info.DeviceID,
				"ip":        info.IP,
			},
		},
	})
}

func (h *Handler) validateToken(ctx context.Context, header string) (int, error) {
	parts := strings.Split(header, " ")
	if len(parts) == 2 {
		return h.validator.ValidateToken(ctx, parts[1])
	}
	return 0, fmt.Errorf("invalid token")
}
