package api

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
)

// Event types broadcast on the status stream.
const (
	EventSessionStarted = "session_started"
	EventColumnsChanged = "columns_changed"
	EventCueAppended    = "cue_appended"
)

// StatusEvent describes websocket payloads emitted while a display session
// is being driven through the gateway.
type StatusEvent struct {
	Type      string    `json:"type"`
	SessionID string    `json:"session_id,omitempty"`
	Columns   int       `json:"columns,omitempty"`
	Text      string    `json:"text,omitempty"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// wsClient wraps a websocket connection with write locking.
type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// StatusNotifier keeps track of active websocket clients and broadcasts
// gateway events. New clients receive the last event immediately so a UI
// can show the current session without waiting for the next change.
type StatusNotifier struct {
	clock clockwork.Clock

	mu         sync.Mutex
	clients    map[*wsClient]struct{}
	lastStatus *StatusEvent
}

// NewStatusNotifier constructs a notifier stamping events from the
// supplied clock.
func NewStatusNotifier(clock clockwork.Clock) *StatusNotifier {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &StatusNotifier{clock: clock, clients: make(map[*wsClient]struct{})}
}

// Register attaches a websocket connection and returns a client handle.
func (n *StatusNotifier) Register(conn *websocket.Conn) *wsClient {
	client := &wsClient{conn: conn}
	n.mu.Lock()
	n.clients[client] = struct{}{}
	status := n.lastStatus
	n.mu.Unlock()

	if status != nil {
		_ = client.writeJSON(*status)
	}
	return client
}

// Unregister removes the websocket client from the notifier and closes the
// socket.
func (n *StatusNotifier) Unregister(client *wsClient) {
	if client == nil {
		return
	}
	n.mu.Lock()
	delete(n.clients, client)
	n.mu.Unlock()
	_ = client.conn.Close()
}

// Broadcast sends the supplied event to all registered websocket clients.
func (n *StatusNotifier) Broadcast(event StatusEvent) {
	event.Timestamp = n.clock.Now().UTC()

	n.mu.Lock()
	snapshot := event
	n.lastStatus = &snapshot

	for client := range n.clients {
		if err := client.writeJSON(event); err != nil {
			delete(n.clients, client)
			_ = client.conn.Close()
		}
	}
	n.mu.Unlock()
}

func (c *wsClient) writeJSON(payload interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.conn.WriteJSON(payload)
}

func (n *StatusNotifier) LastStatus() *StatusEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.lastStatus == nil {
		return nil
	}
	copy := *n.lastStatus
	return &copy
}
