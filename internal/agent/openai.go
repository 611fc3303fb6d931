// ABOUTME: OpenAI-backed conversational agent generating participant turns
// ABOUTME: Maps loop history onto chat completion messages per participant

package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	openai "github.com/sashabaranov/go-openai"

	"github.com/versecraft/verse-gateway/internal/conversation"
)

// ErrEmptyCompletion indicates the model returned no choices.
var ErrEmptyCompletion = errors.New("completion returned no choices")

// OpenAI generates participant turns with the OpenAI chat completion API.
// It is polymorphic over participants: each call frames the history from the
// requesting participant's point of view using its system prompt.
type OpenAI struct {
	client *openai.Client
	model  string
	logger *slog.Logger
}

// Options configures the OpenAI generator.
type Options struct {
	APIKey  string
	BaseURL string // optional, for OpenAI-compatible endpoints
	Model   string
}

// NewOpenAI creates a generator. Model defaults to gpt-4o-mini.
func NewOpenAI(opts Options, logger *slog.Logger) (*OpenAI, error) {
	if opts.APIKey == "" {
		return nil, errors.New("api key is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	model := opts.Model
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAI{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		logger: logger.With("component", "openai-agent"),
	}, nil
}

// Generate produces p's next message from the ordered history. The call
// blocks on network I/O and honors ctx cancellation; failures surface as a
// wrapped error for the session boundary to handle.
func (o *OpenAI) Generate(ctx context.Context, p conversation.Participant, history []conversation.Message) (string, error) {
	msgs := buildMessages(p, history)

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    o.model,
		Messages: msgs,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion for %s: %w", p.Name, err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}

	content := resp.Choices[0].Message.Content
	o.logger.Debug("generated reply",
		"participant", p.Name,
		"model", o.model,
		"history_len", len(history),
		"tokens", resp.Usage.TotalTokens,
	)
	return content, nil
}

// buildMessages frames the history from p's point of view: p's own messages
// become assistant turns, everyone else's become user turns carrying the
// sender name.
func buildMessages(p conversation.Participant, history []conversation.Message) []openai.ChatCompletionMessage {
	msgs := make([]openai.ChatCompletionMessage, 0, len(history)+1)
	if p.SystemPrompt != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: p.SystemPrompt,
		})
	}
	for _, m := range history {
		role := openai.ChatMessageRoleUser
		if m.Sender == p.Name {
			role = openai.ChatMessageRoleAssistant
		}
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    role,
			Name:    m.Sender,
			Content: m.Content,
		})
	}
	return msgs
}
