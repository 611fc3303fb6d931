// ABOUTME: Scripted generator producing canned replies without any LLM backend
// ABOUTME: Used for offline operation and in tests

package agent

import (
	"context"
	"strings"
	"sync"

	"github.com/versecraft/verse-gateway/internal/conversation"
)

// Scripted cycles through a fixed list of replies. When the list is
// exhausted it keeps returning the last entry, so a conversation always has
// something to say until the round limit or a termination token ends it.
type Scripted struct {
	mu      sync.Mutex
	replies []string
	next    int
}

// NewScripted creates a generator returning the given replies in order.
func NewScripted(replies ...string) *Scripted {
	return &Scripted{replies: replies}
}

// OfflinePoet returns a scripted stand-in for the poet used when no API key
// is configured. Its replies ask for feedback so the human turn cycle still
// exercises the full loop.
func OfflinePoet() *Scripted {
	return NewScripted(
		"Roses are red, the gateway is up,\nno model is wired, so I improvise.\n\nWhat do you think of this draft?",
		"I have revised the poem as requested.\n\nHow would you like to revise it further?",
	)
}

// Generate returns the next canned reply, honoring ctx cancellation.
func (s *Scripted) Generate(ctx context.Context, p conversation.Participant, history []conversation.Message) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	// A satisfied user ends the scripted exchange the same way the real
	// model would.
	if len(history) > 0 {
		last := strings.ToLower(history[len(history)-1].Content)
		if strings.Contains(last, "looks good") || strings.Contains(last, "perfect") {
			return p.EndToken, nil
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.replies) == 0 {
		return "", nil
	}
	reply := s.replies[s.next]
	if s.next < len(s.replies)-1 {
		s.next++
	}
	return reply, nil
}
