// ABOUTME: Participant roster definitions loaded from a TOML file
// ABOUTME: Falls back to the built-in UserProxy + Poet pair when unconfigured

package persona

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/versecraft/verse-gateway/internal/conversation"
)

// poetSystemPrompt is the default assistant persona.
const poetSystemPrompt = "You are a creative poet. Your primary goal is to write a poem based on the user's topic. " +
	"After presenting the first draft of the poem, or any subsequent revision, ALWAYS ask the user for feedback " +
	"by saying something like 'What do you think of this draft?' or 'How would you like to revise it?'. " +
	"Carefully consider any feedback provided by the user and revise the poem accordingly. " +
	"Only use the word 'TERMINATE' (and nothing else in that message) if the user explicitly indicates they are " +
	"satisfied with the poem (e.g., they say 'it's perfect', 'looks good', 'no more changes') or if they ask to " +
	"end the session. Do not use 'TERMINATE' after just one draft unless the user explicitly approves it."

// Roster is the fixed participant set every conversation is built from.
type Roster struct {
	Participants []Entry `toml:"participants"`
}

// Entry describes one participant in the roster file.
type Entry struct {
	Name         string `toml:"name"`
	Role         string `toml:"role"` // "human" or "assistant"
	EndToken     string `toml:"end_token"`
	SystemPrompt string `toml:"system_prompt"`
}

// Default returns the built-in two-participant roster: a human proxy that
// exits on "exit" and a poet assistant that terminates on "terminate".
func Default() *Roster {
	return &Roster{
		Participants: []Entry{
			{Name: "UserProxy", Role: "human", EndToken: "exit"},
			{Name: "Poet", Role: "assistant", EndToken: "terminate", SystemPrompt: poetSystemPrompt},
		},
	}
}

// Load reads a roster from a TOML file and validates it.
func Load(path string) (*Roster, error) {
	var r Roster
	if _, err := toml.DecodeFile(path, &r); err != nil {
		return nil, fmt.Errorf("reading roster file: %w", err)
	}
	if err := r.Validate(); err != nil {
		return nil, fmt.Errorf("validating roster: %w", err)
	}
	return &r, nil
}

// Validate checks the roster invariants: at least two participants, unique
// names, known roles, and exactly one human.
func (r *Roster) Validate() error {
	if len(r.Participants) < 2 {
		return fmt.Errorf("roster needs at least 2 participants, got %d", len(r.Participants))
	}
	seen := make(map[string]bool, len(r.Participants))
	humans := 0
	for _, e := range r.Participants {
		if e.Name == "" {
			return fmt.Errorf("participant with empty name")
		}
		if seen[e.Name] {
			return fmt.Errorf("duplicate participant name %q", e.Name)
		}
		seen[e.Name] = true
		switch e.Role {
		case "human":
			humans++
		case "assistant":
		default:
			return fmt.Errorf("participant %q has unknown role %q", e.Name, e.Role)
		}
	}
	if humans != 1 {
		return fmt.Errorf("roster needs exactly one human participant, got %d", humans)
	}
	return nil
}

// Build converts the roster into the loop's participant list.
func (r *Roster) Build() []conversation.Participant {
	out := make([]conversation.Participant, 0, len(r.Participants))
	for _, e := range r.Participants {
		capability := conversation.AutoGenerate
		if e.Role == "human" {
			capability = conversation.HumanInput
		}
		out = append(out, conversation.Participant{
			Name:         e.Name,
			Capability:   capability,
			SystemPrompt: e.SystemPrompt,
			EndToken:     e.EndToken,
		})
	}
	return out
}

// Human returns the roster's human entry. Validate guarantees there is
// exactly one.
func (r *Roster) Human() Entry {
	for _, e := range r.Participants {
		if e.Role == "human" {
			return e
		}
	}
	return Entry{}
}
