package ws

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"messenger-service/internal/models"
)

func newTestClient(userID int) *Client {
	return NewClient(nil, userID, ConnInfo{ConnID: newConnID()})
}

func drainEvents(t *testing.T, c *Client) []models.Event {
	t.Helper()
	var events []models.Event
	for {
		select {
		case payload := <-c.send:
			var ev models.Event
			require.NoError(t, json.Unmarshal(payload, &ev))
			events = append(events, ev)
		default:
			return events
		}
	}
}

func TestJoinIsIdempotent(t *testing.T) {
	hub := NewHub()
	c := newTestClient(1)
	hub.Register(c)

	hub.Join(5, c)
	hub.Join(5, c)

	events := drainEvents(t, c)
	require.Len(t, events, 1, "second join must not re-announce")
	assert.Equal(t, models.EventUserJoined, events[0].Type)
	assert.Equal(t, 1, events[0].UserID)
	assert.True(t, hub.InRoom(5, c))
}

func TestBroadcastRoomIsScopedAndOrdered(t *testing.T) {
	hub := NewHub()
	a := newTestClient(1)
	b := newTestClient(2)
	other := newTestClient(3)
	hub.Register(a)
	hub.Register(b)
	hub.Register(other)
	hub.Join(5, a)
	hub.Join(5, b)
	hub.Join(6, other)
	drainEvents(t, a)
	drainEvents(t, b)
	drainEvents(t, other)

	hub.BroadcastRoom(5, models.Event{Type: models.EventNewMessage, ID: 1, ChatID: 5}, nil)
	hub.BroadcastRoom(5, models.Event{Type: models.EventNewMessage, ID: 2, ChatID: 5}, nil)
	hub.BroadcastRoom(5, models.Event{Type: models.EventMessageDeleted, MessageID: 1, ChatID: 5}, nil)

	for _, c := range []*Client{a, b} {
		events := drainEvents(t, c)
		require.Len(t, events, 3)
		assert.Equal(t, 1, events[0].ID)
		assert.Equal(t, 2, events[1].ID)
		assert.Equal(t, models.EventMessageDeleted, events[2].Type)
	}
	assert.Empty(t, drainEvents(t, other), "rooms must not leak into each other")
}

func TestBroadcastRoomExcludesSender(t *testing.T) {
	hub := NewHub()
	typer := newTestClient(1)
	listener := newTestClient(2)
	hub.Register(typer)
	hub.Register(listener)
	hub.Join(5, typer)
	hub.Join(5, listener)
	drainEvents(t, typer)
	drainEvents(t, listener)

	hub.BroadcastRoom(5, models.Event{Type: models.EventUserTyping, UserID: 1, ChatID: 5}, typer)

	assert.Empty(t, drainEvents(t, typer))
	events := drainEvents(t, listener)
	require.Len(t, events, 1)
	assert.Equal(t, models.EventUserTyping, events[0].Type)
}

func TestLeaveAnnouncesToRemaining(t *testing.T) {
	hub := NewHub()
	leaver := newTestClient(1)
	stayer := newTestClient(2)
	hub.Register(leaver)
	hub.Register(stayer)
	hub.Join(5, leaver)
	hub.Join(5, stayer)
	drainEvents(t, leaver)
	drainEvents(t, stayer)

	hub.Leave(5, leaver)

	assert.False(t, hub.InRoom(5, leaver))
	events := drainEvents(t, stayer)
	require.Len(t, events, 1)
	assert.Equal(t, models.EventUserLeft, events[0].Type)
	assert.Equal(t, 1, events[0].UserID)
}

func TestUnregisterRemovesFromAllRooms(t *testing.T) {
	hub := NewHub()
	c := newTestClient(1)
	witness := newTestClient(2)
	hub.Register(c)
	hub.Register(witness)
	hub.Join(5, c)
	hub.Join(6, c)
	hub.Join(5, witness)
	drainEvents(t, witness)
	drainEvents(t, c)

	hub.Unregister(c)

	assert.False(t, hub.InRoom(5, c))
	assert.False(t, hub.InRoom(6, c))

	hub.BroadcastRoom(5, models.Event{Type: models.EventNewMessage, ID: 1, ChatID: 5}, nil)
	require.Len(t, drainEvents(t, witness), 1)

	_, open := <-c.send
	assert.False(t, open, "send channel must be closed after unregister")
}

func TestBroadcastAllReachesEveryConnection(t *testing.T) {
	hub := NewHub()
	a := newTestClient(1)
	b := newTestClient(2)
	hub.Register(a)
	hub.Register(b)
	hub.Join(5, a)
	drainEvents(t, a)

	hub.BroadcastAll(models.Event{Type: models.EventUserOnline, UserID: 9})

	for _, c := range []*Client{a, b} {
		events := drainEvents(t, c)
		require.Len(t, events, 1)
		assert.Equal(t, models.EventUserOnline, events[0].Type)
		assert.Equal(t, 9, events[0].UserID)
	}
}
