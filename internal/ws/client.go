// ABOUTME: Per-connection read and write pumps for the websocket hub
// ABOUTME: A single writer goroutine per connection keeps delivery ordered

package ws

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// writeWait is the deadline for a single outbound write.
	writeWait = 10 * time.Second

	// pongWait is how long a connection may stay silent before it is
	// considered dead; pings go out at pingPeriod to keep it alive.
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 64 * 1024
	sendQueueSize  = 64
)

// client is one websocket connection with its ordered outbound queue.
type client struct {
	id   string
	conn *websocket.Conn
	send chan outboundFrame
	once sync.Once
}

func newClient(id string, conn *websocket.Conn) *client {
	return &client{
		id:   id,
		conn: conn,
		send: make(chan outboundFrame, sendQueueSize),
	}
}

// shutdown closes the outbound queue exactly once; the write pump drains it
// and closes the underlying connection.
func (c *client) shutdown() {
	c.once.Do(func() {
		close(c.send)
	})
}

// readPump consumes inbound frames until the connection fails or closes.
// Runs on the handler goroutine.
func (c *client) readPump(h *Hub) {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("read failed", "client_id", c.id, "error", err)
			}
			return
		}
		h.dispatch(c.id, data)
	}
}

// writePump is the connection's only writer. It drains the send queue in
// order and keeps the connection alive with pings.
func (c *client) writePump(logger *slog.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(frame); err != nil {
				logger.Debug("write failed", "client_id", c.id, "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
