package handlers

import (
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testPush struct {
	Type  string `json:"type"`
	State struct {
		Status  string          `json:"status"`
		Data    json.RawMessage `json:"data"`
		Message string          `json:"message"`
	} `json:"state"`
	Message string `json:"message"`
}

func dialLive(t *testing.T, ts *testServer, as string) *websocket.Conn {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = ts.app.Listener(ln) }()
	t.Cleanup(func() { _ = ts.app.ShutdownWithTimeout(2 * time.Second) })

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+ln.Addr().String()+"/ws?token="+ts.token[as], nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// readUntil reads frames until match accepts one.
func readUntil(t *testing.T, conn *websocket.Conn, match func(p testPush) bool) testPush {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var p testPush
		require.NoError(t, conn.ReadJSON(&p))
		if match(p) {
			return p
		}
	}
}

func successWith(kind string, n int) func(p testPush) bool {
	return func(p testPush) bool {
		if p.Type != kind || p.State.Status != "success" {
			return false
		}
		if len(p.State.Data) == 0 {
			return n == 0
		}
		var items []json.RawMessage
		return json.Unmarshal(p.State.Data, &items) == nil && len(items) == n
	}
}

func TestLiveWebSocket(t *testing.T) {
	ts := newTestServer(t)
	conn := dialLive(t, ts, "lead")

	require.NoError(t, conn.WriteJSON(wsRequest{Action: "watch_threads", TeamID: "app-development"}))
	readUntil(t, conn, successWith("threads", 0))

	require.NoError(t, conn.WriteJSON(wsRequest{Action: "create_thread", TeamID: "app-development", Title: "Live question", Text: "hello"}))
	p := readUntil(t, conn, successWith("threads", 1))

	var threads []struct {
		ID        string `json:"id"`
		IsEnabled bool   `json:"is_enabled"`
	}
	require.NoError(t, json.Unmarshal(p.State.Data, &threads))
	threadID := threads[0].ID
	assert.False(t, threads[0].IsEnabled)

	// pending thread rejects replies
	require.NoError(t, conn.WriteJSON(wsRequest{Action: "watch_messages", TeamID: "app-development", ThreadID: threadID}))
	readUntil(t, conn, successWith("messages", 0))
	require.NoError(t, conn.WriteJSON(wsRequest{Action: "send_message", Text: "too early"}))
	p = readUntil(t, conn, func(p testPush) bool { return p.Type == "action_error" })
	assert.Equal(t, "thread is pending approval", p.Message)

	require.NoError(t, conn.WriteJSON(wsRequest{Action: "enable_thread", TeamID: "app-development", ThreadID: threadID}))
	require.NoError(t, conn.WriteJSON(wsRequest{Action: "send_message", Text: "welcome"}))
	p = readUntil(t, conn, successWith("messages", 1))
	assert.Contains(t, string(p.State.Data), "welcome")

	require.NoError(t, conn.WriteJSON(wsRequest{Action: "bogus"}))
	p = readUntil(t, conn, func(p testPush) bool { return p.Type == "error" })
	assert.Contains(t, p.Message, "unknown action")

	// replies stop with the subscription
	require.NoError(t, conn.WriteJSON(wsRequest{Action: "unwatch"}))
	require.NoError(t, conn.WriteJSON(wsRequest{Action: "send_message", Text: "after unwatch"}))
	p = readUntil(t, conn, func(p testPush) bool { return p.Type == "action_error" })
	assert.Equal(t, "no thread is open", p.Message)
}

func TestLiveWebSocketRequiresToken(t *testing.T) {
	ts := newTestServer(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = ts.app.Listener(ln) }()
	t.Cleanup(func() { _ = ts.app.ShutdownWithTimeout(2 * time.Second) })

	_, resp, err := websocket.DefaultDialer.Dial("ws://"+ln.Addr().String()+"/ws", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 401, resp.StatusCode)
}

func TestOfferStateKeepsLatestPerKind(t *testing.T) {
	lc := &liveClient{pending: map[string]wsPush{}, wake: make(chan struct{}, 1)}

	// far more updates than the send buffer holds
	for i := 0; i < sendBufferSize*4; i++ {
		lc.offerState(wsPush{Type: "threads", State: i})
	}
	lc.offerState(wsPush{Type: "messages", State: "only"})

	select {
	case <-lc.wake:
	default:
		t.Fatal("writer was not woken")
	}

	states := lc.takeStates()
	require.Len(t, states, 2)
	assert.Equal(t, wsPush{Type: "messages", State: "only"}, states[0])
	assert.Equal(t, wsPush{Type: "threads", State: sendBufferSize*4 - 1}, states[1])

	assert.Empty(t, lc.takeStates())
}
