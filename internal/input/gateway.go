// ABOUTME: Human input gateway bridging async client replies into the turn loop
// ABOUTME: One pending single-resolution wait per session, raced against a deadline

package input

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/versecraft/verse-gateway/internal/channel"
)

// ErrNoPendingRequest indicates a reply arrived while no input wait was
// outstanding.
var ErrNoPendingRequest = errors.New("no pending input request")

// TimeoutNotice is sent to the client when an input wait expires.
const TimeoutNotice = `Timeout waiting for user input. Interaction will proceed as if you typed "exit".`

// Notifier delivers prompts and notices to the owning client.
type Notifier interface {
	Send(sender, content string) error
}

// Gateway converts "ask the human for the next message" into a cancellable,
// deadline-bound wait. At most one wait is outstanding at a time; the loop's
// strictly sequential turns guarantee RequestInput is never re-entered.
type Gateway struct {
	name     string // participant name prompts are attributed to
	endToken string // substituted on timeout and cancellation
	timeout  time.Duration
	notifier Notifier
	logger   *slog.Logger

	mu      sync.Mutex
	pending chan string // buffered(1); nil when no wait is outstanding
}

// New creates a gateway for one session. name is the human participant the
// prompts are attributed to; endToken is returned in place of a reply when
// the wait times out or is cancelled.
func New(name, endToken string, timeout time.Duration, notifier Notifier, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		name:     name,
		endToken: endToken,
		timeout:  timeout,
		notifier: notifier,
		logger:   logger.With("component", "input-gateway"),
	}
}

// RequestInput prompts the client and suspends until a reply is delivered via
// Resolve, the deadline elapses, or ctx is cancelled. On timeout the client
// is notified and the end token is returned as if the human had asked to
// exit; on cancellation the end token is returned without further
// notification, since teardown may already have detached the channel. The
// pending wait is cleared on every exit path.
func (g *Gateway) RequestInput(ctx context.Context, prompt string) (string, error) {
	rewritten := RewritePrompt(prompt)
	if err := g.notifier.Send(g.name, rewritten); err != nil {
		g.logger.Warn("failed to deliver prompt", "error", err)
	}

	ch := make(chan string, 1)
	g.mu.Lock()
	if g.pending != nil {
		// The loop never issues overlapping requests; a stale entry here
		// means a previous exit path failed to clear it.
		g.logger.Error("replacing orphaned pending input request")
	}
	g.pending = ch
	g.mu.Unlock()

	timer := time.NewTimer(g.timeout)
	defer timer.Stop()

	select {
	case text := <-ch:
		g.clear()
		g.logger.Info("received human input", "content", truncate(text, 100))
		return text, nil

	case <-timer.C:
		g.clear()
		// A reply may have won the race just before the deadline; prefer it.
		select {
		case text := <-ch:
			g.logger.Info("received human input at deadline", "content", truncate(text, 100))
			return text, nil
		default:
		}
		g.logger.Warn("timeout waiting for user input", "timeout", g.timeout)
		if err := g.notifier.Send(channel.SystemSender, TimeoutNotice); err != nil {
			g.logger.Warn("failed to deliver timeout notice", "error", err)
		}
		return g.endToken, nil

	case <-ctx.Done():
		g.clear()
		g.logger.Info("input request cancelled")
		return g.endToken, nil
	}
}

// Resolve delivers text to the outstanding wait. Resolution is exactly-once:
// the first call wins and clears the pending request; later calls return
// ErrNoPendingRequest and are inert.
func (g *Gateway) Resolve(text string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.pending == nil {
		return ErrNoPendingRequest
	}
	g.pending <- text // buffered; cannot block, pending is cleared below
	g.pending = nil
	return nil
}

// Cancel resolves any outstanding wait with the end token. Used during
// session teardown so a suspended wait can never leak; safe to call when
// nothing is pending, and safe to call repeatedly.
func (g *Gateway) Cancel() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.pending == nil {
		return
	}
	g.pending <- g.endToken
	g.pending = nil
}

// HasPending reports whether an input wait is currently outstanding.
func (g *Gateway) HasPending() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pending != nil
}

// clear drops the pending request so later Resolve calls are rejected.
func (g *Gateway) clear() {
	g.mu.Lock()
	g.pending = nil
	g.mu.Unlock()
}

// RewritePrompt converts framework-side prompt phrasing into the wording
// shown to the client. This is cosmetic and deliberately independent of the
// termination predicates.
func RewritePrompt(prompt string) string {
	if strings.Contains(prompt, "Provide feedback to the writer.") ||
		strings.Contains(prompt, "What's next?") ||
		strings.Contains(prompt, "Waiting for your response...") {
		return "The Poet has responded. What would you like to do next?\n" +
			"(e.g., 'Revise the first line', 'Change the theme to X', 'Looks good!', or 'exit')"
	}
	return prompt + "\n(Type your response and press Send, or type 'exit' to end the current interaction.)"
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
