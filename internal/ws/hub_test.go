// ABOUTME: Tests for the websocket hub
// ABOUTME: Covers frame dispatch, addressed delivery, and the connection lifecycle

package ws

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/versecraft/verse-gateway/internal/channel"
)

// fakeEvents records lifecycle calls (thread-safe).
type fakeEvents struct {
	mu          sync.Mutex
	connects    []string
	disconnects []string
	starts      []string // "clientID|topic"
	replies     []string // "clientID|text"
}

func (f *fakeEvents) OnConnect(clientID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connects = append(f.connects, clientID)
}

func (f *fakeEvents) OnDisconnect(clientID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnects = append(f.disconnects, clientID)
}

func (f *fakeEvents) OnStartRequested(clientID, topic string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts = append(f.starts, clientID+"|"+topic)
}

func (f *fakeEvents) OnReplyReceived(clientID, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies = append(f.replies, clientID+"|"+text)
}

func (f *fakeEvents) connected() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.connects))
	copy(out, f.connects)
	return out
}

func (f *fakeEvents) snapshot(field *[]string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(*field))
	copy(out, *field)
	return out
}

func TestDispatch(t *testing.T) {
	events := &fakeEvents{}
	hub := NewHub(events, nil)

	t.Run("start_chat", func(t *testing.T) {
		hub.dispatch("c1", []byte(`{"type":"start_chat","topic":"the sea"}`))
		assert.Equal(t, []string{"c1|the sea"}, events.snapshot(&events.starts))
	})

	t.Run("user_response", func(t *testing.T) {
		hub.dispatch("c1", []byte(`{"type":"user_response","message":"shorter please"}`))
		assert.Equal(t, []string{"c1|shorter please"}, events.snapshot(&events.replies))
	})

	t.Run("explicitly empty reply is forwarded", func(t *testing.T) {
		hub.dispatch("c1", []byte(`{"type":"user_response","message":""}`))
		assert.Equal(t, []string{"c1|shorter please", "c1|"}, events.snapshot(&events.replies))
	})

	t.Run("user_response without message is dropped", func(t *testing.T) {
		before := len(events.snapshot(&events.replies))
		hub.dispatch("c1", []byte(`{"type":"user_response"}`))
		assert.Len(t, events.snapshot(&events.replies), before)
	})

	t.Run("unknown type is dropped", func(t *testing.T) {
		hub.dispatch("c1", []byte(`{"type":"reboot"}`))
		assert.Empty(t, events.snapshot(&events.disconnects))
	})

	t.Run("malformed json is dropped", func(t *testing.T) {
		hub.dispatch("c1", []byte(`{nope`))
	})
}

func TestSend_UnknownClient(t *testing.T) {
	hub := NewHub(&fakeEvents{}, nil)
	err := hub.Send("nobody", "System", "hello")
	assert.ErrorIs(t, err, channel.ErrClientNotFound)
}

func dialTestHub(t *testing.T, hub *Hub) (*httptest.Server, *websocket.Conn) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return srv, conn
}

func TestServeWS_Lifecycle(t *testing.T) {
	events := &fakeEvents{}
	hub := NewHub(events, nil)

	_, conn := dialTestHub(t, hub)

	// Each connection gets a fresh client identifier and an OnConnect call.
	require.Eventually(t, func() bool { return len(events.connected()) == 1 }, 2*time.Second, time.Millisecond)
	clientID := events.connected()[0]
	assert.NotEmpty(t, clientID)
	assert.Equal(t, 1, hub.ClientCount())

	// Outbound messages arrive as sender/content frames.
	require.NoError(t, hub.Send(clientID, "System", "Welcome! Enter a topic to start."))
	var f outboundFrame
	require.NoError(t, conn.ReadJSON(&f))
	assert.Equal(t, "System", f.Sender)
	assert.Equal(t, "Welcome! Enter a topic to start.", f.Content)

	// Inbound frames are routed to the lifecycle entry points.
	require.NoError(t, conn.WriteJSON(map[string]string{"type": "start_chat", "topic": "rain"}))
	require.Eventually(t, func() bool {
		return len(events.snapshot(&events.starts)) == 1
	}, 2*time.Second, time.Millisecond)
	assert.Equal(t, clientID+"|rain", events.snapshot(&events.starts)[0])

	// Closing the connection detaches the channel and fires OnDisconnect.
	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool {
		return len(events.snapshot(&events.disconnects)) == 1
	}, 2*time.Second, time.Millisecond)
	assert.Equal(t, 0, hub.ClientCount())
	assert.ErrorIs(t, hub.Send(clientID, "System", "gone"), channel.ErrClientNotFound)
}

func TestServeWS_TwoClientsAreIsolated(t *testing.T) {
	events := &fakeEvents{}
	hub := NewHub(events, nil)

	_, conn1 := dialTestHub(t, hub)
	_, conn2 := dialTestHub(t, hub)

	require.Eventually(t, func() bool { return len(events.connected()) == 2 }, 2*time.Second, time.Millisecond)
	ids := events.connected()
	require.NotEqual(t, ids[0], ids[1])

	require.NoError(t, hub.Send(ids[0], "Poet", "a poem for the first client"))

	var f outboundFrame
	require.NoError(t, conn1.ReadJSON(&f))
	assert.Equal(t, "a poem for the first client", f.Content)

	// The second client sees nothing.
	_ = conn2.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	var stray outboundFrame
	assert.Error(t, conn2.ReadJSON(&stray))
}

func TestClose_RejectsLateSends(t *testing.T) {
	events := &fakeEvents{}
	hub := NewHub(events, nil)

	_, _ = dialTestHub(t, hub)
	require.Eventually(t, func() bool { return len(events.connected()) == 1 }, 2*time.Second, time.Millisecond)
	clientID := events.connected()[0]

	hub.Close()

	assert.Equal(t, 0, hub.ClientCount())
	assert.ErrorIs(t, hub.Send(clientID, "System", "late"), channel.ErrClientNotFound)
}
