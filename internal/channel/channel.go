// ABOUTME: Message channel abstraction for addressed delivery to connected clients
// ABOUTME: Implemented by the websocket hub; bound per-client for the conversation core

package channel

import "errors"

// SystemSender is the sender name used for server-originated notices.
const SystemSender = "System"

// ErrClientNotFound indicates no connected client matches the given ID.
var ErrClientNotFound = errors.New("client not found")

// Channel delivers addressed messages to connected clients.
// Delivery is best-effort; within one client, messages arrive in send order.
type Channel interface {
	Send(clientID, sender, content string) error
}

// Bound wraps a Channel with a fixed client ID so the conversation core can
// broadcast without knowing which client it belongs to.
type Bound struct {
	ch       Channel
	clientID string
}

// Bind returns a Bound channel addressing all sends to clientID.
func Bind(ch Channel, clientID string) *Bound {
	return &Bound{ch: ch, clientID: clientID}
}

// Send delivers content attributed to sender to the bound client.
func (b *Bound) Send(sender, content string) error {
	return b.ch.Send(b.clientID, sender, content)
}
