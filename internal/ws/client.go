package ws

import (
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBufferSize = 64
)

// Client is one live websocket connection of an authenticated user. A user
// may hold several connections at once. Outbound events are enqueued into
// send and drained by a single writer goroutine, which keeps per-connection
// delivery ordered and keeps broadcasts off socket I/O.
type Client struct {
	UserID int
	Info   ConnInfo

	conn      *websocket.Conn
	send      chan []byte
	closeOnce sync.Once
}

// NewClient wraps an upgraded connection.
func NewClient(conn *websocket.Conn, userID int, info ConnInfo) *Client {
	return &Client{
		UserID: userID,
		Info:   info,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
	}
}

// enqueue hands a payload to the writer without blocking. Only the hub calls
// this, under its lock, so enqueue never races with close. A connection that
// cannot keep up is dropped rather than allowed to stall the room.
func (c *Client) enqueue(payload []byte) {
	select {
	case c.send <- payload:
	default:
		log.Printf("ws send buffer full, dropping connection conn_id=%s user_id=%d", c.Info.ConnID, c.UserID)
		c.conn.Close()
	}
}

// close releases the send channel exactly once. Called by the hub after the
// connection has been removed from all registries.
func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.send)
	})
}

// WritePump drains the send buffer onto the socket and keeps the connection
// alive with pings. It exits when the hub closes the send channel or a write
// fails.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				log.Printf("websocket write error: %v", err)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
