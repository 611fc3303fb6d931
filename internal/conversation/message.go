// ABOUTME: Message and participant types for multi-party conversations
// ABOUTME: Messages are append-only; participants are immutable once a loop starts

package conversation

import "strings"

// Message is one contribution to a conversation. Messages are never mutated
// after they are appended to a loop's history.
type Message struct {
	Sender  string
	Content string
	Ordinal int
}

// Capability describes how a participant produces its turns.
type Capability int

const (
	// HumanInput participants delegate their turns to the human input gateway.
	HumanInput Capability = iota
	// AutoGenerate participants delegate their turns to a Generator.
	AutoGenerate
)

// Participant is one member of a conversation. Name is unique within a loop.
// EndToken is the content that, when produced by this participant (after
// trimming and case-folding), ends the conversation.
type Participant struct {
	Name         string
	Capability   Capability
	SystemPrompt string
	EndToken     string
}

// IsTermination reports whether content is this participant's
// end-of-conversation signal.
func (p Participant) IsTermination(content string) bool {
	if p.EndToken == "" {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(content), p.EndToken)
}
