// handlers/ws.go - Live thread and message states over WebSocket
package handlers

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"gfgchapter/models"
	"gfgchapter/services"
	"gfgchapter/viewmodel"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
)

const (
	// WebSocket timeouts
	writeWait  = 10 * time.Second // Time allowed to write a message
	pongWait   = 60 * time.Second // Time allowed to read the next pong
	pingPeriod = 15 * time.Second // Send pings at this interval

	// Send channel buffer size
	sendBufferSize = 64
)

// wsRequest is a client command.
type wsRequest struct {
	Action   string `json:"action"`
	TeamID   string `json:"team_id"`
	ThreadID string `json:"thread_id"`
	Title    string `json:"title,omitempty"`
	Text     string `json:"text,omitempty"`
}

// wsPush is a server frame.
type wsPush struct {
	Type    string      `json:"type"`
	State   interface{} `json:"state,omitempty"`
	Message string      `json:"message,omitempty"`
}

// liveClient owns one connection and one view model per screen, so a screen
// never has two live listeners.
type liveClient struct {
	conn    *websocket.Conn
	actor   models.Actor
	send    chan wsPush
	ctx     context.Context
	cancel  context.CancelFunc
	log     *logrus.Entry
	threads *viewmodel.MentorshipViewModel
	thread  *viewmodel.ThreadViewModel

	threadsPumping  bool
	messagesPumping bool

	// latest unsent state per kind; older ones are superseded, never dropped
	stateMu sync.Mutex
	pending map[string]wsPush
	wake    chan struct{}
}

// WebSocketUpgrade rejects plain HTTP requests to /ws
func WebSocketUpgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// LiveWebSocket serves /ws for an authenticated caller
// GET /ws?token=...
var LiveWebSocket = websocket.New(func(conn *websocket.Conn) {
	actor, ok := conn.Locals("actor").(models.Actor)
	if !ok {
		_ = conn.WriteJSON(wsPush{Type: "error", Message: "User not authenticated"})
		_ = conn.Close()
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := &liveClient{
		conn:    conn,
		actor:   actor,
		send:    make(chan wsPush, sendBufferSize),
		pending: map[string]wsPush{},
		wake:    make(chan struct{}, 1),
		ctx:     ctx,
		cancel:  cancel,
		log:     logrus.WithFields(logrus.Fields{"component": "ws", "user_id": actor.ID}),
		threads: viewmodel.NewMentorshipViewModel(ctx, threadService, lifecycle, actor),
		thread:  viewmodel.NewThreadViewModel(ctx, messageService, actor),
	}
	defer client.threads.Close()
	defer client.thread.Close()

	client.log.Info("Live connection opened")
	writerDone := make(chan struct{})
	go func() {
		client.writePump()
		close(writerDone)
	}()
	client.readPump()
	<-writerDone
	client.log.Info("Live connection closed")
})

// readPump handles incoming commands until the connection drops
func (lc *liveClient) readPump() {
	defer lc.cancel()

	lc.conn.SetReadLimit(4096)
	_ = lc.conn.SetReadDeadline(time.Now().Add(pongWait))
	lc.conn.SetPongHandler(func(string) error {
		return lc.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var req wsRequest
		if err := lc.conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				lc.log.WithError(err).Warn("WebSocket read error")
			}
			return
		}
		lc.handle(req)
	}
}

func (lc *liveClient) handle(req wsRequest) {
	switch req.Action {
	case "watch_threads":
		if req.TeamID == "" {
			lc.enqueue(wsPush{Type: "error", Message: "team_id is required"})
			return
		}
		lc.threads.SelectTeam(req.TeamID)
		if !lc.threadsPumping {
			lc.threadsPumping = true
			go pumpState(lc, "threads", lc.threads.Threads())
		}

	case "watch_messages":
		if req.TeamID == "" || req.ThreadID == "" {
			lc.enqueue(wsPush{Type: "error", Message: "team_id and thread_id are required"})
			return
		}
		lc.thread.OpenThread(req.TeamID, req.ThreadID)
		if !lc.messagesPumping {
			lc.messagesPumping = true
			go pumpState(lc, "messages", lc.thread.Messages())
		}

	case "create_thread":
		if _, err := lc.threads.CreateThread(lc.ctx, services.NewThread{
			TeamID:  req.TeamID,
			Title:   req.Title,
			Message: req.Text,
		}); err != nil {
			lc.enqueue(wsPush{Type: "action_error", Message: lc.threads.ActionError.Value()})
		}

	case "enable_thread":
		if err := lc.threads.EnableThread(lc.ctx, req.TeamID, req.ThreadID); err != nil {
			lc.enqueue(wsPush{Type: "action_error", Message: lc.threads.ActionError.Value()})
		}

	case "send_message":
		// replies go to the thread opened by watch_messages
		if _, err := lc.thread.SendMessage(lc.ctx, req.Text); err != nil {
			lc.enqueue(wsPush{Type: "action_error", Message: lc.thread.ActionError.Value()})
		}

	case "unwatch":
		lc.threads.Close()
		lc.thread.Close()

	default:
		lc.enqueue(wsPush{Type: "error", Message: "unknown action " + req.Action})
	}
}

// pumpState forwards every state change of obs to the client.
func pumpState[T any](lc *liveClient, kind string, obs *viewmodel.Observable[viewmodel.UIState[T]]) {
	for {
		changed := obs.Changes()
		lc.offerState(wsPush{Type: kind, State: obs.Value()})
		select {
		case <-changed:
		case <-lc.ctx.Done():
			return
		}
	}
}

// writePump is the only writer on the connection
func (lc *liveClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = lc.conn.Close()
	}()

	for {
		select {
		case msg := <-lc.send:
			if !lc.write(msg) {
				return
			}

		case <-lc.wake:
			for _, msg := range lc.takeStates() {
				if !lc.write(msg) {
					return
				}
			}

		case <-ticker.C:
			_ = lc.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := lc.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				lc.cancel()
				return
			}

		case <-lc.ctx.Done():
			return
		}
	}
}

func (lc *liveClient) write(msg wsPush) bool {
	_ = lc.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := lc.conn.WriteJSON(msg); err != nil {
		lc.log.WithError(err).Warn("WebSocket write error")
		lc.cancel()
		return false
	}
	return true
}

// offerState replaces any unsent state of the same kind and wakes the writer.
func (lc *liveClient) offerState(msg wsPush) {
	lc.stateMu.Lock()
	lc.pending[msg.Type] = msg
	lc.stateMu.Unlock()

	select {
	case lc.wake <- struct{}{}:
	default:
	}
}

// takeStates empties the pending states, ordered by kind.
func (lc *liveClient) takeStates() []wsPush {
	lc.stateMu.Lock()
	defer lc.stateMu.Unlock()

	out := make([]wsPush, 0, len(lc.pending))
	for _, kind := range slices.Sorted(maps.Keys(lc.pending)) {
		out = append(out, lc.pending[kind])
	}
	clear(lc.pending)
	return out
}

// enqueue queues a one-off frame such as an error (non-blocking with bounded queue)
func (lc *liveClient) enqueue(msg wsPush) {
	select {
	case lc.send <- msg:
	case <-lc.ctx.Done():
	default:
		lc.log.WithField("type", msg.Type).Warn("Send buffer full, dropping frame")
	}
}
