package presence

import (
	"context"
	"log"
	"sync"
	"time"

	"messenger-service/internal/models"
	"messenger-service/internal/observability"
	"messenger-service/internal/repositories"
)

// Broadcaster is the slice of the fan-out engine presence needs: presence
// changes go to every connected client, not to a room.
type Broadcaster interface {
	BroadcastAll(event models.Event)
}

// Tracker maintains the process-wide online state. A user with several open
// connections stays online until the last one closes, so two disconnect
// handlers firing back to back flip the user offline exactly once.
type Tracker struct {
	mu    sync.Mutex
	conns map[int]int

	repo        repositories.PresenceRepository
	broadcaster Broadcaster
}

// NewTracker constructs a Tracker.
func NewTracker(repo repositories.PresenceRepository, broadcaster Broadcaster) *Tracker {
	return &Tracker{
		conns:       make(map[int]int),
		repo:        repo,
		broadcaster: broadcaster,
	}
}

// Connected records one more live connection for the user. The first
// connection marks the user online, persists the flag and announces
// user_online globally. Broadcasts are at-least-once; a duplicate
// announcement never corrupts the counter state.
func (t *Tracker) Connected(ctx context.Context, userID int) {
	t.mu.Lock()
	t.conns[userID]++
	first := t.conns[userID] == 1
	t.mu.Unlock()

	if !first {
		return
	}
	t.transition(ctx, userID, true)
}

// Disconnected records one closed connection. The last connection marks the
// user offline and stamps last-seen.
func (t *Tracker) Disconnected(ctx context.Context, userID int) {
	t.mu.Lock()
	count, ok := t.conns[userID]
	if !ok {
		t.mu.Unlock()
		return
	}
	count--
	if count <= 0 {
		delete(t.conns, userID)
	} else {
		t.conns[userID] = count
	}
	last := count <= 0
	t.mu.Unlock()

	if !last {
		return
	}
	t.transition(ctx, userID, false)
}

// Logout forces the user offline regardless of open connections, stamping
// last-seen. Explicit logout behaves like the last disconnect.
func (t *Tracker) Logout(ctx context.Context, userID int) {
	t.mu.Lock()
	delete(t.conns, userID)
	t.mu.Unlock()

	t.transition(ctx, userID, false)
}

// Online reports the in-memory state for a user.
func (t *Tracker) Online(userID int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conns[userID] > 0
}

func (t *Tracker) transition(ctx context.Context, userID int, online bool) {
	now := time.Now().UTC()
	if err := t.repo.SetOnline(ctx, userID, online, now); err != nil {
		log.Printf("presence persist failed user_id=%d online=%t: %v", userID, online, err)
	}

	eventType := models.EventUserOnline
	if !online {
		eventType = models.EventUserOffline
	}
	t.broadcaster.BroadcastAll(models.Event{Type: eventType, UserID: userID})

	_ = observability.PublishEvent(ctx, "presence.changed", observability.EventEnvelope{
		EventType: "presence",
		EventName: eventType,
		Payload: map[string]interface{}{
			"user_id":   userID,
			"is_online": online,
			"last_seen": now.Format(time.RFC3339Nano),
		},
	})
}
