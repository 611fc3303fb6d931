// ABOUTME: Turn-taking conversation loop with round-robin speaker selection
// ABOUTME: Owns ordered history, enforces the round limit, and detects termination

package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ErrNoHumanParticipant indicates the participant list has no HumanInput member.
var ErrNoHumanParticipant = errors.New("participant list has no human participant")

// Sink receives every broadcast-worthy message the loop produces, in history
// order. The session binds this to the owning client's message channel.
type Sink interface {
	Send(sender, content string) error
}

// InputSource supplies the content of a human participant's turn. It blocks
// until a reply arrives, a deadline elapses, or ctx is cancelled.
type InputSource interface {
	RequestInput(ctx context.Context, prompt string) (string, error)
}

// Generator produces the content of an auto-generating participant's turn
// from the full ordered history.
type Generator interface {
	Generate(ctx context.Context, p Participant, history []Message) (string, error)
}

// Config assembles a Loop. All collaborators are explicit; the loop never
// reaches outside of them.
type Config struct {
	Participants []Participant
	MaxRounds    int
	Initial      string
	Sink         Sink
	Input        InputSource
	Generator    Generator
	Logger       *slog.Logger
}

// Loop drives a single conversation from the initiating message to
// termination. It is not safe for concurrent use; a session runs exactly one
// loop at a time.
type Loop struct {
	participants []Participant
	maxRounds    int
	initial      string
	humanIdx     int

	history []Message
	round   int
	speaker int

	sink   Sink
	input  InputSource
	gen    Generator
	logger *slog.Logger
}

// NewLoop validates cfg and returns a ready-to-run loop.
func NewLoop(cfg Config) (*Loop, error) {
	if len(cfg.Participants) < 2 {
		return nil, fmt.Errorf("need at least 2 participants, got %d", len(cfg.Participants))
	}
	if cfg.MaxRounds < 1 {
		return nil, fmt.Errorf("max rounds must be positive, got %d", cfg.MaxRounds)
	}
	seen := make(map[string]bool, len(cfg.Participants))
	humanIdx := -1
	for i, p := range cfg.Participants {
		if seen[p.Name] {
			return nil, fmt.Errorf("duplicate participant name %q", p.Name)
		}
		seen[p.Name] = true
		if p.Capability == HumanInput && humanIdx < 0 {
			humanIdx = i
		}
	}
	if humanIdx < 0 {
		return nil, ErrNoHumanParticipant
	}
	if cfg.Input == nil {
		return nil, errors.New("input source is required")
	}
	if cfg.Generator == nil {
		return nil, errors.New("generator is required")
	}
	if cfg.Sink == nil {
		return nil, errors.New("sink is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		participants: cfg.Participants,
		maxRounds:    cfg.MaxRounds,
		initial:      cfg.Initial,
		humanIdx:     humanIdx,
		sink:         cfg.Sink,
		input:        cfg.Input,
		gen:          cfg.Generator,
		logger:       logger.With("component", "loop"),
	}, nil
}

// Run executes turns until termination, the round limit, or ctx cancellation.
// Hitting the round limit is normal completion, not an error. Every message
// is appended to history before the next turn begins; broadcast order equals
// append order.
func (l *Loop) Run(ctx context.Context) error {
	// The initiating message counts as the human participant's first turn.
	initiator := l.participants[l.humanIdx]
	l.append(initiator, l.initial, false)
	l.speaker = l.humanIdx

	for l.round < l.maxRounds {
		if err := ctx.Err(); err != nil {
			return err
		}

		l.speaker = (l.speaker + 1) % len(l.participants)
		p := l.participants[l.speaker]

		content, err := l.takeTurn(ctx, p)
		if err != nil {
			return fmt.Errorf("turn for %s: %w", p.Name, err)
		}

		if p.IsTermination(content) {
			// Terminal tokens are recorded but never shown to the client.
			l.append(p, content, true)
			l.logger.Info("conversation terminated by participant",
				"participant", p.Name, "round", l.round)
			return nil
		}

		skip := content == "" && p.Capability == HumanInput
		l.append(p, content, skip)
	}

	l.logger.Info("conversation reached round limit", "max_rounds", l.maxRounds)
	return nil
}

// History returns a copy of the ordered message history.
func (l *Loop) History() []Message {
	out := make([]Message, len(l.history))
	copy(out, l.history)
	return out
}

// Round returns the number of completed turns.
func (l *Loop) Round() int {
	return l.round
}

func (l *Loop) takeTurn(ctx context.Context, p Participant) (string, error) {
	switch p.Capability {
	case HumanInput:
		return l.input.RequestInput(ctx, l.promptFor())
	case AutoGenerate:
		return l.gen.Generate(ctx, p, l.History())
	default:
		return "", fmt.Errorf("unknown capability %d", p.Capability)
	}
}

// promptFor produces the framework-side prompt for a human turn. The input
// gateway rewrites it into client-facing phrasing; the two policies are
// independent.
func (l *Loop) promptFor() string {
	if len(l.history) > 1 {
		return "Provide feedback to the writer."
	}
	return "What's next?"
}

// append records a message in history and, unless skipBroadcast is set,
// delivers it through the sink. Each append completes one turn.
func (l *Loop) append(p Participant, content string, skipBroadcast bool) {
	msg := Message{Sender: p.Name, Content: content, Ordinal: len(l.history)}
	l.history = append(l.history, msg)
	l.round++

	if skipBroadcast {
		l.logger.Debug("skipping broadcast", "participant", p.Name, "round", l.round)
		return
	}

	l.logger.Info("broadcasting message",
		"participant", p.Name,
		"round", l.round,
		"content", truncate(content, 100),
	)
	if err := l.sink.Send(p.Name, content); err != nil {
		// Delivery is best-effort; the message stays in history either way.
		l.logger.Warn("broadcast failed", "participant", p.Name, "error", err)
	}
}

// truncate shortens s to at most n runes for diagnostics.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
