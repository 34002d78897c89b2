package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/ziadkadry99/deckviz/internal/dispatch"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

const writeWait = 10 * time.Second

// Outgoing message types.
const (
	msgRender = "render"
	msgError  = "error"
	msgReload = "reload"
)

// message is the outgoing WebSocket message format. Render messages carry
// the dispatcher's report inline.
type message struct {
	Type string `json:"type"`
	*dispatch.Report
	Content string `json:"content,omitempty"`
}

// session is one websocket connection with its own copy of the page.
type session struct {
	id      string
	conn    *websocket.Conn
	limiter *rate.Limiter
	logger  *zap.Logger

	writeMu sync.Mutex

	mu   sync.Mutex
	disp *dispatch.Dispatcher
}

func (sess *session) dispatcher() *dispatch.Dispatcher {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.disp
}

func (sess *session) rebind(d *dispatch.Dispatcher) {
	sess.mu.Lock()
	old := sess.disp
	sess.disp = d
	sess.mu.Unlock()
	if old != nil {
		old.Registry().DestroyAll()
	}
}

func (sess *session) send(msg message) {
	sess.writeMu.Lock()
	defer sess.writeMu.Unlock()
	sess.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := sess.conn.WriteJSON(msg); err != nil {
		sess.logger.Debug("websocket write", zap.Error(err))
	}
}

func (sess *session) sendError(content string) {
	sess.send(message{Type: msgError, Content: content})
}

func (sess *session) close() {
	sess.writeMu.Lock()
	defer sess.writeMu.Unlock()
	sess.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
		time.Now().Add(time.Second))
	sess.conn.Close()
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade", zap.Error(err))
		return
	}
	defer conn.Close()

	id := uuid.NewString()
	burst := int(s.cfg.EventsPerSecond)
	if burst < 1 {
		burst = 1
	}
	sess := &session{
		id:      id,
		conn:    conn,
		limiter: rate.NewLimiter(rate.Limit(s.cfg.EventsPerSecond), burst),
		logger:  s.logger.With(zap.String("session", id)),
	}
	sess.disp = s.newDispatcher(id)

	s.mu.Lock()
	s.sessions[id] = sess
	s.mu.Unlock()
	sess.logger.Debug("session opened", zap.String("remote", r.RemoteAddr))

	defer func() {
		s.mu.Lock()
		delete(s.sessions, id)
		s.mu.Unlock()
		sess.dispatcher().Registry().DestroyAll()
		sess.logger.Debug("session closed")
	}()

	ctx := r.Context()
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				sess.logger.Info("websocket read", zap.Error(err))
			}
			return
		}

		var ev dispatch.Event
		if err := json.Unmarshal(msg, &ev); err != nil {
			sess.sendError("invalid message format")
			continue
		}
		if !sess.limiter.Allow() {
			sess.sendError("rate limit exceeded")
			continue
		}

		rep, err := sess.dispatcher().Handle(ctx, ev)
		if err != nil {
			sess.sendError(err.Error())
			if ctx.Err() != nil {
				return
			}
			continue
		}
		sess.send(message{Type: msgRender, Report: &rep})
	}
}
