package ws

import (
	"log"
	"sync"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"timedquiz/internal/quiz"
)

// MessageType defines the type of WebSocket message
type MessageType string

// Server message types
const (
	MsgState   MessageType = "state"
	MsgHistory MessageType = "history"
	MsgError   MessageType = "error"
)

// Message is the WebSocket envelope format
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Close frame reasons
const (
	CloseReasonTakenOver = "session taken over"
	CloseReasonShutdown  = "server shutting down"
)

// ErrorPayload is the payload of MsgError
type ErrorPayload struct {
	Message string `json:"message"`
}

// Hub tracks the live play session of every profile. A profile owns one snapshot
// slot, so a second connection for the same profile takes over and the first is
// closed.
type Hub struct {
	conns map[string]*Connection // profile -> conn
	mu    sync.Mutex
}

// Connection is one play session: a socket, its outbound queue and the engine
// that owns the profile's attempt
type Connection struct {
	Profile string
	Engine  *quiz.Engine

	send   chan []byte
	mu     sync.Mutex
	closed bool

	// close frame sent once send is drained
	closeCode   int
	closeReason string
}

func newConnection(profile string) *Connection {
	return &Connection{Profile: profile, send: make(chan []byte, 256)}
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	return &Hub{conns: make(map[string]*Connection)}
}

// Register makes conn the live session of its profile, closing any previous one
func (h *Hub) Register(conn *Connection) {
	h.mu.Lock()
	prev := h.conns[conn.Profile]
	h.conns[conn.Profile] = conn
	h.mu.Unlock()

	if prev != nil {
		prev.Push(MsgError, ErrorPayload{Message: "session taken over by another connection"})
		prev.closeWith(websocket.ClosePolicyViolation, CloseReasonTakenOver)
		log.Printf("Profile %s reconnected, closed previous session", conn.Profile)
		return
	}
	log.Printf("Profile %s connected", conn.Profile)
}

// Unregister removes conn if it is still the live session of its profile
func (h *Hub) Unregister(conn *Connection) {
	h.mu.Lock()
	if existing, ok := h.conns[conn.Profile]; ok && existing == conn {
		delete(h.conns, conn.Profile)
		log.Printf("Profile %s disconnected", conn.Profile)
	}
	h.mu.Unlock()
	conn.Close()
}

// Active reports whether profile has a live session
func (h *Hub) Active(profile string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.conns[profile]
	return ok
}

// Shutdown closes every live session
func (h *Hub) Shutdown() {
	h.mu.Lock()
	conns := make([]*Connection, 0, len(h.conns))
	for profile, conn := range h.conns {
		conns = append(conns, conn)
		delete(h.conns, profile)
	}
	h.mu.Unlock()

	for _, conn := range conns {
		conn.closeWith(websocket.CloseGoingAway, CloseReasonShutdown)
	}
}

// Push queues a message for the client. Messages to a closed connection, or
// beyond a full buffer, are dropped.
func (c *Connection) Push(msgType MessageType, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Failed to encode %s message: %v", msgType, err)
		return
	}
	msg, _ := json.Marshal(&Message{Type: msgType, Payload: data})

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- msg:
	default:
		log.Printf("Dropping %s message for profile %s: buffer full", msgType, c.Profile)
	}
}

// PushState sends the current view; it is the engine observer of the session
func (c *Connection) PushState(v quiz.View) {
	c.Push(MsgState, v)
}

// Close stops the engine and ends the outbound queue. Safe to call more than once.
func (c *Connection) Close() {
	c.closeWith(websocket.CloseNormalClosure, "")
}

// closeWith stops the engine before ending the queue, so the profile's storage
// slots are free by the time the close frame reaches the client. Only the first
// call has an effect.
func (c *Connection) closeWith(code int, reason string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.closeCode, c.closeReason = code, reason
	c.mu.Unlock()

	if c.Engine != nil {
		c.Engine.Close()
	}

	c.mu.Lock()
	close(c.send)
	c.mu.Unlock()
}

// closeMessage is the close frame for the reason the queue ended
func (c *Connection) closeMessage() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return websocket.FormatCloseMessage(c.closeCode, c.closeReason)
}
