// ABOUTME: Registry mapping client identifiers to sessions
// ABOUTME: Exposes the four lifecycle entry points the transport layer calls

package session

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/versecraft/verse-gateway/internal/channel"
	"github.com/versecraft/verse-gateway/internal/conversation"
	"github.com/versecraft/verse-gateway/internal/persona"
)

const (
	noticeSessionNotFound = "Error: Session not found. Please refresh and reconnect."
	noticeNoSession       = "Error: No active chat session. Please start a new chat."
)

// Registry owns the client -> Session map. Only the registry creates and
// removes entries; sessions mutate their own state. One registry per
// process, living as long as the server.
type Registry struct {
	gen    conversation.Generator
	roster *persona.Roster
	opts   Options
	logger *slog.Logger

	mu       sync.Mutex
	ch       channel.Channel
	sessions map[string]*Session
}

// NewRegistry creates a registry. Zero-valued options get the defaults of
// the original deployment: 15 rounds, a 5 minute input timeout, and "a
// beautiful sunset" as the fallback topic.
func NewRegistry(gen conversation.Generator, roster *persona.Roster, opts Options, logger *slog.Logger) *Registry {
	if opts.MaxRounds <= 0 {
		opts.MaxRounds = 15
	}
	if opts.InputTimeout <= 0 {
		opts.InputTimeout = 5 * time.Minute
	}
	if opts.DefaultTopic == "" {
		opts.DefaultTopic = "a beautiful sunset"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		gen:      gen,
		roster:   roster,
		opts:     opts,
		logger:   logger.With("component", "registry"),
		sessions: make(map[string]*Session),
	}
}

// SetChannel wires the outbound message channel. Must be called before any
// client connects; the transport and the registry reference each other, so
// the channel arrives after construction.
func (r *Registry) SetChannel(ch channel.Channel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ch = ch
}

// OnConnect creates a fresh idle session for clientID, tearing down any
// prior session under the same identifier first, and greets the client.
func (r *Registry) OnConnect(clientID string) {
	r.mu.Lock()
	ch := r.ch
	old := r.sessions[clientID]
	delete(r.sessions, clientID)
	r.mu.Unlock()

	if old != nil {
		r.logger.Warn("existing session found on new connect, cleaning up old one", "client_id", clientID)
		old.Cleanup()
	}

	s := newSession(clientID, ch, r.gen, r.roster, r.opts, r.logger)
	r.mu.Lock()
	r.sessions[clientID] = s
	total := len(r.sessions)
	r.mu.Unlock()

	r.logger.Info("client connected", "client_id", clientID, "total_sessions", total)
	r.send(clientID, noticeWelcome)
}

// OnDisconnect removes and tears down the client's session. A disconnect
// with no session is logged and otherwise a no-op.
func (r *Registry) OnDisconnect(clientID string) {
	r.mu.Lock()
	s := r.sessions[clientID]
	delete(r.sessions, clientID)
	remaining := len(r.sessions)
	r.mu.Unlock()

	if s == nil {
		r.logger.Warn("no active session found to cleanup on disconnect", "client_id", clientID)
		return
	}
	s.Cleanup()
	r.logger.Info("client disconnected", "client_id", clientID, "remaining_sessions", remaining)
}

// OnStartRequested starts a conversation for the client. Empty or blank
// topics fall back to the default topic.
func (r *Registry) OnStartRequested(clientID, topic string) {
	s, ok := r.Get(clientID)
	if !ok {
		r.logger.Error("start requested for unknown client", "client_id", clientID)
		r.send(clientID, noticeSessionNotFound)
		return
	}
	topic = strings.TrimSpace(topic)
	if topic == "" {
		topic = r.opts.DefaultTopic
		r.logger.Warn("empty topic received, using default", "client_id", clientID, "topic", topic)
	}
	s.Start(topic)
}

// OnReplyReceived routes a client reply to its session's pending input wait.
func (r *Registry) OnReplyReceived(clientID, text string) {
	s, ok := r.Get(clientID)
	if !ok {
		r.logger.Error("reply received for unknown client", "client_id", clientID)
		r.send(clientID, noticeNoSession)
		return
	}
	s.Respond(text)
}

// Get returns the session for clientID, if any.
func (r *Registry) Get(clientID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[clientID]
	return s, ok
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// CloseAll tears down every session. Called on server shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.sessions))
	for id, s := range r.sessions {
		sessions = append(sessions, s)
		delete(r.sessions, id)
	}
	r.mu.Unlock()

	for _, s := range sessions {
		s.Cleanup()
	}
	if len(sessions) > 0 {
		r.logger.Info("all sessions closed", "count", len(sessions))
	}
}

func (r *Registry) send(clientID, content string) {
	r.mu.Lock()
	ch := r.ch
	r.mu.Unlock()
	if ch == nil {
		return
	}
	if err := ch.Send(clientID, channel.SystemSender, content); err != nil {
		r.logger.Warn("failed to deliver notice", "client_id", clientID, "error", err)
	}
}
