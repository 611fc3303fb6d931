// ABOUTME: Websocket hub implementing the client-facing message channel
// ABOUTME: Routes inbound frames to the session lifecycle entry points

package ws

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/versecraft/verse-gateway/internal/channel"
)

// SessionEvents is the slice of the session registry the transport is
// allowed to call. These four entry points are the only way into the core.
type SessionEvents interface {
	OnConnect(clientID string)
	OnDisconnect(clientID string)
	OnStartRequested(clientID, topic string)
	OnReplyReceived(clientID, text string)
}

// inboundFrame is a client -> server message. Message is a pointer so a
// missing field can be told apart from an explicitly empty reply.
type inboundFrame struct {
	Type    string  `json:"type"`
	Topic   string  `json:"topic,omitempty"`
	Message *string `json:"message,omitempty"`
}

// outboundFrame is a server -> client message.
type outboundFrame struct {
	Sender  string `json:"sender"`
	Content string `json:"content"`
}

// Hub upgrades websocket connections, assigns each one a client identifier,
// and delivers addressed outbound messages. It implements channel.Channel;
// per-client delivery order equals send order because every connection is
// drained by a single writer goroutine.
type Hub struct {
	events   SessionEvents
	upgrader websocket.Upgrader
	logger   *slog.Logger

	mu      sync.RWMutex
	clients map[string]*client
	closed  bool
}

// NewHub creates a hub routing inbound traffic to events.
func NewHub(events SessionEvents, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		events: events,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The gateway is origin-agnostic; any auth story lives outside it.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger:  logger.With("component", "ws"),
		clients: make(map[string]*client),
	}
}

// ServeWS upgrades the request and serves the connection until it closes.
// The connection's lifetime brackets the session: OnConnect after upgrade,
// OnDisconnect after the read loop exits.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	c := newClient(uuid.New().String(), conn)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()
		return
	}
	h.clients[c.id] = c
	h.mu.Unlock()

	h.logger.Info("client connected", "client_id", c.id, "remote", r.RemoteAddr)
	h.events.OnConnect(c.id)

	go c.writePump(h.logger)
	c.readPump(h)

	// Detach the channel before tearing the session down so cleanup never
	// races a send against a dead connection.
	h.remove(c.id)
	h.events.OnDisconnect(c.id)
	h.logger.Info("client disconnected", "client_id", c.id)
}

// Send implements channel.Channel. Delivery is best-effort: messages to a
// slow client are dropped rather than blocking the conversation loop, which
// preserves the order of everything that is delivered.
func (h *Hub) Send(clientID, sender, content string) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.clients[clientID]
	if !ok {
		return channel.ErrClientNotFound
	}
	select {
	case c.send <- outboundFrame{Sender: sender, Content: content}:
		return nil
	default:
		h.logger.Warn("dropping message for slow client", "client_id", clientID, "sender", sender)
		return nil
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close shuts down every connection. Safe to call once during server
// shutdown, after the registry has torn its sessions down.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*client, 0, len(h.clients))
	for id, c := range h.clients {
		clients = append(clients, c)
		delete(h.clients, id)
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.shutdown()
	}
}

// dispatch routes one inbound frame. Malformed frames are logged and
// dropped; they never fault the connection.
func (h *Hub) dispatch(clientID string, data []byte) {
	var f inboundFrame
	if err := json.Unmarshal(data, &f); err != nil {
		h.logger.Warn("dropping malformed frame", "client_id", clientID, "error", err)
		return
	}
	switch f.Type {
	case "start_chat":
		h.events.OnStartRequested(clientID, f.Topic)
	case "user_response":
		if f.Message == nil {
			h.logger.Warn("user_response frame without message", "client_id", clientID)
			return
		}
		h.events.OnReplyReceived(clientID, *f.Message)
	default:
		h.logger.Warn("dropping frame with unknown type", "client_id", clientID, "type", f.Type)
	}
}

func (h *Hub) remove(id string) {
	h.mu.Lock()
	c, ok := h.clients[id]
	if ok {
		delete(h.clients, id)
	}
	h.mu.Unlock()
	if ok {
		c.shutdown()
	}
}
