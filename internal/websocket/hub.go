package websocket

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/jeffaf/voxx/domain/entities"
	"github.com/jeffaf/voxx/domain/repositories"
	"github.com/jeffaf/voxx/internal/ratelimit"
	"github.com/jeffaf/voxx/protocol"
	"github.com/jeffaf/voxx/usecase"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// The service runs on an isolated network (Tailscale); origin
		// checking is not part of admission control.
		return true
	},
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

// Hub tracks active voice-command sessions and gates admission through the
// rate limiter. Unlike a broadcast hub, sessions never talk to each other;
// the registry exists for accounting and teardown.
type Hub struct {
	sessions   map[string]*Session
	register   chan *Session
	unregister chan *Session

	mu sync.RWMutex

	service *usecase.CommandService
	limiter *ratelimit.Limiter
	audit   repositories.AuditSink

	maxFrameSize int64

	logger *zap.Logger
}

// NewHub creates the session hub.
func NewHub(
	service *usecase.CommandService,
	limiter *ratelimit.Limiter,
	audit repositories.AuditSink,
	maxFrameSize int64,
	logger *zap.Logger,
) *Hub {
	return &Hub{
		sessions:     make(map[string]*Session),
		register:     make(chan *Session),
		unregister:   make(chan *Session),
		service:      service,
		limiter:      limiter,
		audit:        audit,
		maxFrameSize: maxFrameSize,
		logger:       logger,
	}
}

// Run starts the hub's registration loop.
func (h *Hub) Run() {
	for {
		select {
		case session := <-h.register:
			h.mu.Lock()
			h.sessions[session.state.ID] = session
			h.mu.Unlock()
			h.logger.Info("Session registered",
				zap.String("sessionID", session.state.ID),
				zap.String("source", session.state.RemoteAddr))

		case session := <-h.unregister:
			h.mu.Lock()
			delete(h.sessions, session.state.ID)
			h.mu.Unlock()
			h.logger.Info("Session unregistered",
				zap.String("sessionID", session.state.ID))
		}
	}
}

// ActiveSessions returns the number of sessions currently registered.
func (h *Hub) ActiveSessions() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// HandleSession upgrades the connection and runs one voice-command session
// over it.
func (h *Hub) HandleSession(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Error("WebSocket upgrade failed", zap.Error(err))
		return err
	}

	state := entities.NewSession(c.RealIP())

	if !h.limiter.Allow(state.RemoteAddr) {
		h.reject(conn, state)
		return nil
	}

	state.Transition(entities.PhaseReceivingAudio)

	session := newSession(h, conn, state)
	h.register <- session

	// Queue the admission event before the read pump can hand a frame to
	// the pipeline, so seq 1 is always "connected".
	session.emit(&protocol.ConnectedEvent{
		BaseEvent: protocol.BaseEvent{Type: protocol.EventConnected},
		Message:   "Connected to voxx-server",
	})

	go session.writePump()
	go session.readPump()

	return nil
}

// reject short-circuits an over-limit session: one rejection event, one
// audit record, straight to Closed.
func (h *Hub) reject(conn *websocket.Conn, state *entities.Session) {
	h.logger.Warn("Session rejected by rate limiter",
		zap.String("source", state.RemoteAddr))

	conn.SetWriteDeadline(time.Now().Add(writeWait))
	conn.WriteJSON(&protocol.ErrorEvent{
		BaseEvent: protocol.BaseEvent{Type: protocol.EventError, Seq: state.NextSeq()},
		Code:      entities.FailureAdmissionRejected,
		Message:   "rate limit exceeded, try again later",
	})
	conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "rate limited"))
	conn.Close()

	state.Transition(entities.PhaseClosed)
	h.audit.Append(entities.AuditRecord{
		Timestamp: time.Now().UTC(),
		Source:    state.RemoteAddr,
		Success:   false,
	})
}
