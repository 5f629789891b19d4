package ws

import (
	"context"
	"log"
	"net/http"
	"regexp"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"timedquiz/internal/quiz"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10

	// commands are small JSON objects
	maxCommandSize = 512

	defaultProfile = "default"
)

var profilePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// Any origin may connect; the CORS settings apply to the REST routes only.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  maxCommandSize * 2,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Client actions
const (
	ActionState     = "state"
	ActionConfigure = "configure"
	ActionStart     = "start"
	ActionRetry     = "retry"
	ActionSelect    = "select"
	ActionNext      = "next"
	ActionPrev      = "prev"
	ActionReveal    = "reveal"
	ActionSubmit    = "submit"
	ActionRestart   = "restart"
	ActionResume    = "resume"
	ActionDiscard   = "discard"
	ActionHistory   = "history"
)

// Command is a client message. Key is optional for select: an empty key targets
// the current question.
type Command struct {
	Action        string `json:"action"`
	Key           string `json:"key,omitempty"`
	Option        string `json:"option,omitempty"`
	SingleCount   int    `json:"singleCount,omitempty"`
	MultipleCount int    `json:"multipleCount,omitempty"`
}

// Handler handles WebSocket play sessions
type Handler struct {
	hub        *Hub
	fetcher    quiz.Fetcher
	storage    quiz.Storage
	engineOpts []quiz.Option
}

// NewHandler creates a new WebSocket handler. Every session gets its own engine
// built from fetcher, storage and engineOpts.
func NewHandler(hub *Hub, fetcher quiz.Fetcher, storage quiz.Storage, engineOpts ...quiz.Option) *Handler {
	return &Handler{
		hub:        hub,
		fetcher:    fetcher,
		storage:    storage,
		engineOpts: engineOpts,
	}
}

// QuizWS handles GET /api/ws/quiz?profile=<name>
func (h *Handler) QuizWS(w http.ResponseWriter, r *http.Request) {
	profile := r.URL.Query().Get("profile")
	if profile == "" {
		profile = defaultProfile
	}
	if !profilePattern.MatchString(profile) {
		http.Error(w, "invalid profile", http.StatusBadRequest)
		return
	}

	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	conn := newConnection(profile)
	opts := append([]quiz.Option{quiz.WithObserver(conn.PushState)}, h.engineOpts...)
	conn.Engine = quiz.NewEngine(h.fetcher, quiz.NewPersister(h.storage, profile, nil), opts...)

	// Register first so a previous session for the profile stops writing before
	// this one reads the snapshot.
	h.hub.Register(conn)

	found, err := conn.Engine.Boot(context.Background())
	if err != nil {
		log.Printf("Failed to boot session for profile %s: %v", profile, err)
	}
	if !found {
		conn.PushState(conn.Engine.View())
	}

	go h.writePump(wsConn, conn)
	go h.readPump(wsConn, conn)
}

func (h *Handler) readPump(wsConn *websocket.Conn, conn *Connection) {
	defer func() {
		h.hub.Unregister(conn)
		wsConn.Close()
	}()

	wsConn.SetReadLimit(maxCommandSize)
	wsConn.SetReadDeadline(time.Now().Add(pongWait))
	wsConn.SetPongHandler(func(string) error {
		wsConn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := wsConn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		var cmd Command
		if err := json.Unmarshal(data, &cmd); err != nil {
			conn.Push(MsgError, ErrorPayload{Message: "invalid command"})
			continue
		}
		if err := h.dispatch(conn, cmd); err != nil {
			conn.Push(MsgError, ErrorPayload{Message: err.Error()})
		}
	}
}

// dispatch maps a command onto an engine transition. Loads run in the background
// so a restart can abandon them.
func (h *Handler) dispatch(conn *Connection, cmd Command) error {
	ctx := context.Background()
	e := conn.Engine

	switch cmd.Action {
	case ActionState:
		conn.PushState(e.View())
		return nil
	case ActionConfigure:
		return e.Configure(cmd.SingleCount, cmd.MultipleCount)
	case ActionStart, ActionRetry:
		load := e.Start
		if cmd.Action == ActionRetry {
			load = e.Retry
		}
		go func() {
			if err := load(ctx); err != nil {
				conn.Push(MsgError, ErrorPayload{Message: err.Error()})
			}
		}()
		return nil
	case ActionSelect:
		if cmd.Key == "" {
			return e.SelectCurrent(ctx, cmd.Option)
		}
		return e.Select(ctx, cmd.Key, cmd.Option)
	case ActionNext:
		return e.Next(ctx)
	case ActionPrev:
		return e.Prev(ctx)
	case ActionReveal:
		return e.ToggleReveal(ctx)
	case ActionSubmit:
		return e.Submit(ctx)
	case ActionRestart:
		return e.Restart(ctx)
	case ActionResume:
		return e.Resume(ctx)
	case ActionDiscard:
		return e.Discard(ctx)
	case ActionHistory:
		conn.Push(MsgHistory, quiz.WrongViews(e.WrongHistory(ctx)))
		return nil
	default:
		return errors.Errorf("unknown action %q", cmd.Action)
	}
}

// writePump drains the session queue onto the socket and pings between
// messages. When the queue ends it sends the session's close frame.
func (h *Handler) writePump(wsConn *websocket.Conn, conn *Connection) {
	ping := time.NewTicker(pingPeriod)
	defer func() {
		ping.Stop()
		wsConn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.send:
			deadline := time.Now().Add(writeWait)
			if !ok {
				wsConn.WriteControl(websocket.CloseMessage, conn.closeMessage(), deadline)
				return
			}
			wsConn.SetWriteDeadline(deadline)
			if err := wsConn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("Write to profile %s failed: %v", conn.Profile, err)
				return
			}

		case <-ping.C:
			if err := wsConn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
