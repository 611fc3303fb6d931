// ABOUTME: Per-client chat session owning one cancellable conversation task
// ABOUTME: Serializes start/respond/cleanup and guards the Idle/Running lifecycle

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/versecraft/verse-gateway/internal/channel"
	"github.com/versecraft/verse-gateway/internal/conversation"
	"github.com/versecraft/verse-gateway/internal/input"
	"github.com/versecraft/verse-gateway/internal/persona"
)

// settleTimeout bounds how long Cleanup waits for a cancelled chat task.
const settleTimeout = 5 * time.Second

// Client-facing notices. Wording matters: tests and clients rely on it.
const (
	noticeWelcome        = "Welcome! Enter a topic to start."
	noticeAlreadyRunning = "A chat is already in progress. Please wait or refresh."
	noticeNoActiveChat   = "Error: No active chat session to respond to. Please start a new chat."
	noticeNoPendingWait  = "Error: No prompt is awaiting your reply right now."
	noticeChatEnded      = "Chat ended. You can start a new one by entering a topic."
	noticeCancelled      = "Chat cancelled by client disconnection or server shutdown."
	noticeServerError    = "An unexpected server error occurred. Chat ended."
)

// Options carries per-conversation settings shared by all sessions.
type Options struct {
	MaxRounds    int
	InputTimeout time.Duration
	DefaultTopic string
}

// Session owns at most one running conversation for a single client. Only
// the session mutates its own status; the one background task it launches is
// the only other writer of its state.
type Session struct {
	id     string
	ch     channel.Channel
	bound  *channel.Bound
	gen    conversation.Generator
	roster *persona.Roster
	opts   Options
	logger *slog.Logger

	mu             sync.Mutex
	running        bool
	tornDown       bool
	cancel         context.CancelFunc
	done           chan struct{}
	gateway        *input.Gateway
	teardownCancel bool // set when Cleanup cancelled the task; suppresses the final notice
}

func newSession(id string, ch channel.Channel, gen conversation.Generator, roster *persona.Roster, opts Options, logger *slog.Logger) *Session {
	return &Session{
		id:     id,
		ch:     ch,
		bound:  channel.Bind(ch, id),
		gen:    gen,
		roster: roster,
		opts:   opts,
		logger: logger.With("component", "session", "client_id", id),
	}
}

// ID returns the owning client identifier.
func (s *Session) ID() string {
	return s.id
}

// Running reports whether a conversation task is active.
func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Start launches a new conversation about topic as a cancellable background
// task. A start while another conversation is running is rejected with a
// user notice and no state change.
func (s *Session) Start(topic string) {
	s.mu.Lock()
	if s.tornDown {
		s.mu.Unlock()
		s.logger.Warn("start requested on torn-down session")
		return
	}
	if s.running {
		s.mu.Unlock()
		s.logger.Warn("attempted to start a chat while one is already running")
		s.notify(noticeAlreadyRunning)
		return
	}

	// Each conversation run gets its own id so interleaved log lines from
	// consecutive chats on one session stay distinguishable.
	runID := uuid.New().String()
	runLogger := s.logger.With("run_id", runID)

	human := s.roster.Human()
	gw := input.New(human.Name, human.EndToken, s.opts.InputTimeout, s.bound, runLogger)
	loop, err := conversation.NewLoop(conversation.Config{
		Participants: s.roster.Build(),
		MaxRounds:    s.opts.MaxRounds,
		Initial:      fmt.Sprintf("Write a poem about: %s", topic),
		Sink:         s.bound,
		Input:        gw,
		Generator:    s.gen,
		Logger:       runLogger,
	})
	if err != nil {
		s.mu.Unlock()
		s.logger.Error("failed to assemble conversation loop", "error", err)
		s.notify(noticeServerError)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.running = true
	s.cancel = cancel
	s.done = done
	s.gateway = gw
	s.teardownCancel = false
	s.mu.Unlock()

	runLogger.Info("starting new chat", "topic", topic)
	s.notify(fmt.Sprintf("Starting poem about: '%s'...", topic))
	go s.run(ctx, loop, done)
}

// Respond forwards a client reply to the pending input wait. Replies with no
// running conversation or no pending wait produce an error notice and
// nothing else; empty replies are logged and dropped, leaving the wait
// pending.
func (s *Session) Respond(text string) {
	s.mu.Lock()
	running := s.running
	gw := s.gateway
	s.mu.Unlock()

	if !running || gw == nil {
		s.logger.Warn("received reply with no active chat")
		s.notify(noticeNoActiveChat)
		return
	}
	if text == "" {
		s.logger.Info("dropping empty reply; input request stays pending")
		return
	}
	if err := gw.Resolve(text); err != nil {
		s.logger.Warn("received reply with no pending input request", "error", err)
		s.notify(noticeNoPendingWait)
	}
}

// Cleanup tears the session down: the running task is cancelled and awaited
// (bounded), and any pending input wait is resolved so it cannot leak.
// Idempotent; the final notice is suppressed since the client's channel may
// already be gone.
func (s *Session) Cleanup() {
	s.mu.Lock()
	s.tornDown = true
	cancel := s.cancel
	done := s.done
	gw := s.gateway
	if cancel != nil {
		s.teardownCancel = true
	}
	s.mu.Unlock()

	if cancel != nil {
		s.logger.Info("cancelling active chat task")
		cancel()
	}
	if done != nil {
		select {
		case <-done:
		case <-time.After(settleTimeout):
			s.logger.Error("chat task did not settle within timeout")
		}
	}
	if gw != nil {
		gw.Cancel()
	}
	s.logger.Info("session cleanup complete")
}

// run executes the loop and reports exactly one terminal status. Nothing
// escapes this boundary: errors and panics become a single notice, never a
// crash of the registry.
func (s *Session) run(ctx context.Context, loop *conversation.Loop, done chan struct{}) {
	defer close(done)

	final := noticeChatEnded
	err := s.runLoop(ctx, loop)
	switch {
	case err == nil:
		s.logger.Info("chat interaction completed", "rounds", loop.Round())
	case errors.Is(err, context.Canceled):
		s.logger.Info("chat task was cancelled")
		final = noticeCancelled
	default:
		s.logger.Error("unexpected error during chat", "error", err)
		final = noticeServerError
	}

	s.mu.Lock()
	s.running = false
	s.cancel = nil
	s.gateway = nil
	suppress := s.teardownCancel
	s.mu.Unlock()

	if suppress {
		// Teardown already detached the channel; do not attempt delivery.
		s.logger.Info("suppressing final notice after teardown")
		return
	}
	s.notify(final)
}

func (s *Session) runLoop(ctx context.Context, loop *conversation.Loop) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("conversation panicked: %v", r)
		}
	}()
	return loop.Run(ctx)
}

func (s *Session) notify(content string) {
	if err := s.bound.Send(channel.SystemSender, content); err != nil {
		s.logger.Warn("failed to deliver notice", "error", err)
	}
}
