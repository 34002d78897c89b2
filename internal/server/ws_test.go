package server

import (
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/deckviz/internal/deck"
	"github.com/ziadkadry99/deckviz/internal/dispatch"
	"github.com/ziadkadry99/deckviz/internal/site"
)

// wsMessage mirrors message for decoding on the client side.
type wsMessage struct {
	Type      string              `json:"type"`
	Slide     string              `json:"slide"`
	Fragments []dispatch.Fragment `json:"fragments"`
	Charts    []dispatch.Binding  `json:"charts"`
	Skipped   []string            `json:"skipped"`
	Content   string              `json:"content"`
}

func dial(t *testing.T, srv *Server) *websocket.Conn {
	t.Helper()
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + site.DefaultSocketPath
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, func() bool { return srv.SessionCount() == 1 }, 2*time.Second, 10*time.Millisecond)
	return conn
}

func roundTrip(t *testing.T, conn *websocket.Conn, v any) wsMessage {
	t.Helper()
	require.NoError(t, conn.WriteJSON(v))
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg wsMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestWebSocketRender(t *testing.T) {
	srv := newTestServer(t, Config{})
	conn := dial(t, srv)

	msg := roundTrip(t, conn, dispatch.Event{Kind: dispatch.KindReady})
	assert.Equal(t, "render", msg.Type)
	assert.Equal(t, "title", msg.Slide)
	assert.Empty(t, msg.Fragments)

	msg = roundTrip(t, conn, dispatch.Event{Kind: dispatch.KindSlideChanged, SlideID: "architecture"})
	require.Equal(t, "render", msg.Type)
	require.Len(t, msg.Fragments, 1)
	frag := msg.Fragments[0]
	assert.Equal(t, "agent-flow-diagram", frag.Container)
	assert.Equal(t, "0 0 1400 600", frag.ViewBox)
	assert.Contains(t, frag.HTML, `data-node="generator"`)
	assert.Equal(t, 12, frag.Result.Nodes)
	assert.Equal(t, 15, frag.Result.Edges)

	msg = roundTrip(t, conn, dispatch.Event{Kind: dispatch.KindSlideChanged, SlideID: "parallel-processing"})
	require.Len(t, msg.Charts, 1)
	assert.Equal(t, "parallel-chart", msg.Charts[0].Canvas)
	assert.Contains(t, string(msg.Charts[0].Config), `"type":"bar"`)
}

func TestWebSocketRenderTwice(t *testing.T) {
	srv := newTestServer(t, Config{})
	conn := dial(t, srv)

	ev := dispatch.Event{Kind: dispatch.KindSlideChanged, SlideID: "scalability"}
	first := roundTrip(t, conn, ev)
	second := roundTrip(t, conn, ev)
	require.Len(t, first.Fragments, 1)
	require.Len(t, second.Fragments, 1)
	assert.Equal(t, first.Fragments[0].HTML, second.Fragments[0].HTML)
}

func TestWebSocketErrors(t *testing.T) {
	srv := newTestServer(t, Config{})
	conn := dial(t, srv)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	var msg wsMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "error", msg.Type)
	assert.Equal(t, "invalid message format", msg.Content)

	msg = roundTrip(t, conn, map[string]string{"type": "keydown"})
	assert.Equal(t, "error", msg.Type)
	assert.Contains(t, msg.Content, "keydown")

	// Unknown slides render nothing rather than fail.
	msg = roundTrip(t, conn, dispatch.Event{Kind: dispatch.KindSlideChanged, SlideID: "missing"})
	assert.Equal(t, "render", msg.Type)
	assert.Empty(t, msg.Fragments)
	assert.Empty(t, msg.Charts)
}

func TestWebSocketRateLimit(t *testing.T) {
	srv := newTestServer(t, Config{EventsPerSecond: 0.001})
	conn := dial(t, srv)

	ev := dispatch.Event{Kind: dispatch.KindSlideChanged, SlideID: "title"}
	assert.Equal(t, "render", roundTrip(t, conn, ev).Type)

	msg := roundTrip(t, conn, ev)
	assert.Equal(t, "error", msg.Type)
	assert.Equal(t, "rate limit exceeded", msg.Content)
}

func TestReloadBroadcasts(t *testing.T) {
	srv := newTestServer(t, Config{})
	conn := dial(t, srv)

	next, err := deck.Parse([]byte(`
title: Next
slides:
  - id: only
    title: Only slide
    diagrams:
      - container: only-viz
        nodes:
          - { id: a, x: 10, y: 10 }
`), deck.FormatYAML)
	require.NoError(t, err)
	require.NoError(t, srv.Reload(next))

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg wsMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "reload", msg.Type)
	assert.Equal(t, "Next", srv.Deck().Title)

	// The open session now renders the new deck.
	msg = roundTrip(t, conn, dispatch.Event{Kind: dispatch.KindReady})
	assert.Equal(t, "only", msg.Slide)
	require.Len(t, msg.Fragments, 1)
	assert.Equal(t, "only-viz", msg.Fragments[0].Container)
}

func TestSessionClosedOnDisconnect(t *testing.T) {
	srv := newTestServer(t, Config{})
	conn := dial(t, srv)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return srv.SessionCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}
