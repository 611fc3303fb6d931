// ABOUTME: Recording mock implementation of Channel for tests
// ABOUTME: Captures sent messages in order and can simulate a detached client

package channel

import "sync"

// SentMessage records one Send call on the mock.
type SentMessage struct {
	ClientID string
	Sender   string
	Content  string
}

// MockChannel records every message sent through it, in order.
// Safe for concurrent use.
type MockChannel struct {
	mu       sync.Mutex
	messages []SentMessage
	detached bool
}

// NewMockChannel creates an empty recording channel.
func NewMockChannel() *MockChannel {
	return &MockChannel{}
}

// Send records the message, or returns ErrClientNotFound when detached.
func (m *MockChannel) Send(clientID, sender, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.detached {
		return ErrClientNotFound
	}
	m.messages = append(m.messages, SentMessage{ClientID: clientID, Sender: sender, Content: content})
	return nil
}

// Detach makes all subsequent sends fail, simulating a disconnected client.
func (m *MockChannel) Detach() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.detached = true
}

// Messages returns a copy of everything sent so far.
func (m *MockChannel) Messages() []SentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SentMessage, len(m.messages))
	copy(out, m.messages)
	return out
}

// BySender returns the contents of all messages attributed to sender.
func (m *MockChannel) BySender(sender string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, msg := range m.messages {
		if msg.Sender == sender {
			out = append(out, msg.Content)
		}
	}
	return out
}
