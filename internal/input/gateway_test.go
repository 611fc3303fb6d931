// ABOUTME: Tests for the human input gateway
// ABOUTME: Covers resolution, timeout, cancellation, and exactly-once semantics

package input

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/versecraft/verse-gateway/internal/channel"
)

func newTestGateway(timeout time.Duration) (*Gateway, *channel.MockChannel) {
	mock := channel.NewMockChannel()
	g := New("UserProxy", "exit", timeout, channel.Bind(mock, "client-1"), nil)
	return g, mock
}

func TestRequestInput_ResolvedVerbatim(t *testing.T) {
	g, mock := newTestGateway(time.Minute)

	results := make(chan string, 1)
	go func() {
		text, err := g.RequestInput(context.Background(), "Provide feedback to the writer.")
		require.NoError(t, err)
		results <- text
	}()

	// Wait for the prompt to go out before resolving.
	require.Eventually(t, g.HasPending, time.Second, time.Millisecond)
	require.NoError(t, g.Resolve("  Make it rhyme  "))

	select {
	case text := <-results:
		assert.Equal(t, "  Make it rhyme  ", text, "reply must be delivered verbatim")
	case <-time.After(time.Second):
		t.Fatal("RequestInput did not return after Resolve")
	}

	assert.False(t, g.HasPending())

	// The client saw the rewritten prompt attributed to the human participant.
	prompts := mock.BySender("UserProxy")
	require.Len(t, prompts, 1)
	assert.Contains(t, prompts[0], "The Poet has responded")
}

func TestRequestInput_TimeoutReturnsEndToken(t *testing.T) {
	g, mock := newTestGateway(10 * time.Millisecond)

	text, err := g.RequestInput(context.Background(), "What's next?")
	require.NoError(t, err)
	assert.Equal(t, "exit", text)
	assert.False(t, g.HasPending())

	// Exactly one timeout notice, attributed to the system.
	notices := mock.BySender(channel.SystemSender)
	require.Len(t, notices, 1)
	assert.Equal(t, TimeoutNotice, notices[0])

	// Once the wait expired, late replies are rejected.
	assert.ErrorIs(t, g.Resolve("too late"), ErrNoPendingRequest)
}

func TestRequestInput_ContextCancelledSilently(t *testing.T) {
	g, mock := newTestGateway(time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	results := make(chan string, 1)
	go func() {
		text, err := g.RequestInput(ctx, "What's next?")
		require.NoError(t, err)
		results <- text
	}()

	require.Eventually(t, g.HasPending, time.Second, time.Millisecond)
	cancel()

	select {
	case text := <-results:
		assert.Equal(t, "exit", text)
	case <-time.After(time.Second):
		t.Fatal("RequestInput did not return after cancellation")
	}

	// Cancellation produces no client-visible notice.
	assert.Empty(t, mock.BySender(channel.SystemSender))
}

func TestResolve_ExactlyOnce(t *testing.T) {
	g, _ := newTestGateway(time.Minute)

	results := make(chan string, 1)
	go func() {
		text, _ := g.RequestInput(context.Background(), "What's next?")
		results <- text
	}()

	require.Eventually(t, g.HasPending, time.Second, time.Millisecond)
	require.NoError(t, g.Resolve("first"))
	assert.ErrorIs(t, g.Resolve("second"), ErrNoPendingRequest)

	assert.Equal(t, "first", <-results)
}

func TestResolve_NoPendingRequest(t *testing.T) {
	g, _ := newTestGateway(time.Minute)
	assert.ErrorIs(t, g.Resolve("hello"), ErrNoPendingRequest)
}

func TestCancel_ResolvesWithEndToken(t *testing.T) {
	g, _ := newTestGateway(time.Minute)

	results := make(chan string, 1)
	go func() {
		text, _ := g.RequestInput(context.Background(), "What's next?")
		results <- text
	}()

	require.Eventually(t, g.HasPending, time.Second, time.Millisecond)
	g.Cancel()

	assert.Equal(t, "exit", <-results)
	assert.False(t, g.HasPending())
}

func TestCancel_IdempotentWhenNothingPending(t *testing.T) {
	g, _ := newTestGateway(time.Minute)
	g.Cancel()
	g.Cancel()
	assert.False(t, g.HasPending())
}

func TestRequestInput_PromptDeliveredDespiteChannelError(t *testing.T) {
	mock := channel.NewMockChannel()
	mock.Detach()
	g := New("UserProxy", "exit", time.Minute, channel.Bind(mock, "client-1"), nil)

	// Delivery failure must not abort the wait; the reply path still works.
	results := make(chan string, 1)
	go func() {
		text, err := g.RequestInput(context.Background(), "What's next?")
		require.NoError(t, err)
		results <- text
	}()

	require.Eventually(t, g.HasPending, time.Second, time.Millisecond)
	require.NoError(t, g.Resolve("still here"))
	assert.Equal(t, "still here", <-results)
}

func TestRewritePrompt(t *testing.T) {
	tests := []struct {
		name   string
		prompt string
		want   string
	}{
		{
			name:   "feedback phrasing is rewritten",
			prompt: "Provide feedback to the writer.",
			want:   "The Poet has responded. What would you like to do next?",
		},
		{
			name:   "first-turn phrasing is rewritten",
			prompt: "What's next?",
			want:   "The Poet has responded. What would you like to do next?",
		},
		{
			name:   "other prompts get the send hint appended",
			prompt: "Please describe the mood.",
			want:   "Please describe the mood.\n(Type your response and press Send",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, RewritePrompt(tt.prompt), tt.want)
		})
	}
}

func TestTimeoutError_NotConfusedWithResolveError(t *testing.T) {
	g, _ := newTestGateway(time.Minute)
	err := g.Resolve("x")
	require.Error(t, err)
	assert.False(t, errors.Is(err, context.DeadlineExceeded))
}
