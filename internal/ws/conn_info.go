package ws

import (
	"time"

	"github.com/google/uuid"
)

// ConnInfo is the identity snapshot taken at handshake time. It travels with
// the client so disconnect events can be attributed after the request context
// is gone.
type ConnInfo struct {
	ConnID      string
	UserID      int
	DeviceID    string
	IP          string
	RequestID   string
	TraceID     string
	ConnectedAt time.Time
}

func newConnID() string {
	return uuid.NewString()
}
