// ABOUTME: Tests for the message channel abstraction
// ABOUTME: Covers per-client binding and the detached-client error

package channel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBind(t *testing.T) {
	mock := NewMockChannel()
	b := Bind(mock, "client-1")

	require.NoError(t, b.Send("Poet", "a draft"))
	require.NoError(t, b.Send(SystemSender, "a notice"))

	msgs := mock.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, SentMessage{ClientID: "client-1", Sender: "Poet", Content: "a draft"}, msgs[0])
	assert.Equal(t, SentMessage{ClientID: "client-1", Sender: SystemSender, Content: "a notice"}, msgs[1])
}

func TestMockChannel_Detach(t *testing.T) {
	mock := NewMockChannel()
	require.NoError(t, mock.Send("client-1", "Poet", "before"))

	mock.Detach()
	assert.ErrorIs(t, mock.Send("client-1", "Poet", "after"), ErrClientNotFound)
	assert.Len(t, mock.Messages(), 1)
}

func TestMockChannel_BySender(t *testing.T) {
	mock := NewMockChannel()
	_ = mock.Send("client-1", "Poet", "one")
	_ = mock.Send("client-1", SystemSender, "notice")
	_ = mock.Send("client-1", "Poet", "two")

	assert.Equal(t, []string{"one", "two"}, mock.BySender("Poet"))
	assert.Nil(t, mock.BySender("nobody"))
}
