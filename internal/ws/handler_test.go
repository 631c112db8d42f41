package ws

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"messenger-service/internal/models"
)

type stubValidator struct {
	userID    int
	err       error
	lastToken string
	calls     int
}

func (s *stubValidator) ValidateToken(ctx context.Context, token string) (int, error) {
	s.calls++
	s.lastToken = token
	return s.userID, s.err
}

type stubMembership struct {
	member bool
	err    error
}

func (s *stubMembership) RoleOf(ctx context.Context, chatID int, userID int) (models.Role, bool, error) {
	if s.err != nil {
		return "", false, s.err
	}
	if !s.member {
		return "", false, nil
	}
	return models.RoleMember, true, nil
}

type stubPresence struct {
	connected    int
	disconnected int
}

func (s *stubPresence) Connected(ctx context.Context, userID int)    { s.connected++ }
func (s *stubPresence) Disconnected(ctx context.Context, userID int) { s.disconnected++ }

func setupWSRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ws", h.Handle)
	return r
}

func TestHandshakeRejectsInvalidToken(t *testing.T) {
	validator := &stubValidator{err: errors.New("token expired")}
	tracker := &stubPresence{}
	h := NewHandler(NewHub(), &stubMembership{}, validator, tracker)
	router := setupWSRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/ws?token=stale", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, rec.Body.String(), "rejection carries no payload")
	assert.Equal(t, "stale", validator.lastToken)
	assert.Zero(t, tracker.connected, "rejected handshake must not touch presence")
}

func TestHandshakeRejectsMissingToken(t *testing.T) {
	validator := &stubValidator{userID: 1}
	tracker := &stubPresence{}
	h := NewHandler(NewHub(), &stubMembership{}, validator, tracker)
	router := setupWSRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Zero(t, validator.calls, "no token means no validation round trip")
	assert.Zero(t, tracker.connected)
}

func TestHandshakeTakesTokenFromAuthorizationHeader(t *testing.T) {
	validator := &stubValidator{userID: 7}
	h := NewHandler(NewHub(), &stubMembership{}, validator, &stubPresence{})
	router := setupWSRouter(h)

	// Not a real websocket request, so the upgrade fails after auth. That is
	// enough to observe which token reached the validator.
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("Authorization", "Bearer header-token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, "header-token", validator.lastToken)
	assert.Equal(t, 1, validator.calls)
}

func TestJoinDeniedForNonMember(t *testing.T) {
	hub := NewHub()
	h := NewHandler(hub, &stubMembership{member: false}, &stubValidator{}, &stubPresence{})

	witness := newTestClient(2)
	hub.Register(witness)
	hub.Join(5, witness)
	drainEvents(t, witness)

	outsider := newTestClient(1)
	hub.Register(outsider)

	h.handleRequest(outsider, models.ClientRequest{Type: models.RequestJoinChat, ChatID: 5})

	assert.False(t, hub.InRoom(5, outsider))
	assert.Empty(t, drainEvents(t, witness), "denied join must not announce")
}

func TestJoinAdmitsMember(t *testing.T) {
	hub := NewHub()
	h := NewHandler(hub, &stubMembership{member: true}, &stubValidator{}, &stubPresence{})

	client := newTestClient(1)
	hub.Register(client)

	h.handleRequest(client, models.ClientRequest{Type: models.RequestJoinChat, ChatID: 5})

	assert.True(t, hub.InRoom(5, client))
}

func TestJoinSkippedWhenMembershipCheckFails(t *testing.T) {
	hub := NewHub()
	h := NewHandler(hub, &stubMembership{err: errors.New("db down")}, &stubValidator{}, &stubPresence{})

	client := newTestClient(1)
	hub.Register(client)

	h.handleRequest(client, models.ClientRequest{Type: models.RequestJoinChat, ChatID: 5})

	assert.False(t, hub.InRoom(5, client))
}
