// ABOUTME: Tests for roster loading and validation
// ABOUTME: Covers the built-in roster, TOML files, and invariant checks

package persona

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/versecraft/verse-gateway/internal/conversation"
)

func writeRoster(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "roster.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefault(t *testing.T) {
	r := Default()
	require.NoError(t, r.Validate())

	require.Len(t, r.Participants, 2)
	assert.Equal(t, "UserProxy", r.Participants[0].Name)
	assert.Equal(t, "exit", r.Participants[0].EndToken)
	assert.Equal(t, "Poet", r.Participants[1].Name)
	assert.Equal(t, "terminate", r.Participants[1].EndToken)
	assert.NotEmpty(t, r.Participants[1].SystemPrompt)
}

func TestLoad_ValidFile(t *testing.T) {
	path := writeRoster(t, `
[[participants]]
name = "Editor"
role = "human"
end_token = "done"

[[participants]]
name = "Novelist"
role = "assistant"
end_token = "fin"
system_prompt = "You write short fiction."
`)

	r, err := Load(path)
	require.NoError(t, err)

	require.Len(t, r.Participants, 2)
	assert.Equal(t, "Editor", r.Human().Name)
	assert.Equal(t, "done", r.Human().EndToken)
	assert.Equal(t, "You write short fiction.", r.Participants[1].SystemPrompt)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestLoad_InvalidRoster(t *testing.T) {
	path := writeRoster(t, `
[[participants]]
name = "Loner"
role = "assistant"
`)

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		roster  Roster
		wantErr string
	}{
		{
			name: "too few participants",
			roster: Roster{Participants: []Entry{
				{Name: "Solo", Role: "human"},
			}},
			wantErr: "at least 2",
		},
		{
			name: "empty name",
			roster: Roster{Participants: []Entry{
				{Name: "", Role: "human"},
				{Name: "Poet", Role: "assistant"},
			}},
			wantErr: "empty name",
		},
		{
			name: "duplicate names",
			roster: Roster{Participants: []Entry{
				{Name: "Poet", Role: "human"},
				{Name: "Poet", Role: "assistant"},
			}},
			wantErr: "duplicate",
		},
		{
			name: "unknown role",
			roster: Roster{Participants: []Entry{
				{Name: "User", Role: "human"},
				{Name: "Poet", Role: "wizard"},
			}},
			wantErr: "unknown role",
		},
		{
			name: "no human",
			roster: Roster{Participants: []Entry{
				{Name: "Poet", Role: "assistant"},
				{Name: "Critic", Role: "assistant"},
			}},
			wantErr: "exactly one human",
		},
		{
			name: "two humans",
			roster: Roster{Participants: []Entry{
				{Name: "User1", Role: "human"},
				{Name: "User2", Role: "human"},
			}},
			wantErr: "exactly one human",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.roster.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestBuild(t *testing.T) {
	ps := Default().Build()

	require.Len(t, ps, 2)
	assert.Equal(t, conversation.HumanInput, ps[0].Capability)
	assert.Equal(t, conversation.AutoGenerate, ps[1].Capability)
	assert.Equal(t, "exit", ps[0].EndToken)
	assert.Equal(t, "terminate", ps[1].EndToken)
}
