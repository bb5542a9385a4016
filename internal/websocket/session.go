package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/jeffaf/voxx/domain/entities"
	"github.com/jeffaf/voxx/protocol"
	"github.com/jeffaf/voxx/usecase"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
)

// Session couples one websocket connection to one voice-command exchange.
// The readPump only watches for the single audio frame and for disconnects;
// all outbound events flow through the buffered send channel so the caller
// observes them in strict sequence order.
type Session struct {
	hub   *Hub
	conn  *websocket.Conn
	state *entities.Session

	// Buffered channel of outbound frames.
	send chan []byte

	ctx    context.Context
	cancel context.CancelFunc

	frameOnce sync.Once
	closeOnce sync.Once

	logger *zap.Logger
}

func newSession(hub *Hub, conn *websocket.Conn, state *entities.Session) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		hub:    hub,
		conn:   conn,
		state:  state,
		send:   make(chan []byte, 64),
		ctx:    ctx,
		cancel: cancel,
		logger: hub.logger.With(
			zap.String("sessionID", state.ID),
			zap.String("source", state.RemoteAddr)),
	}
}

// emit stamps the next sequence number onto the event and queues it. Events
// are queued from a single goroutine at a time, so the sequence the peer
// sees is strictly increasing with no gaps.
func (s *Session) emit(ev protocol.Event) {
	switch e := ev.(type) {
	case *protocol.ConnectedEvent:
		e.Seq = s.state.NextSeq()
	case *protocol.StatusEvent:
		e.Seq = s.state.NextSeq()
	case *protocol.TranscriptionEvent:
		e.Seq = s.state.NextSeq()
	case *protocol.ComplexityEvent:
		e.Seq = s.state.NextSeq()
	case *protocol.ResponseChunkEvent:
		e.Seq = s.state.NextSeq()
	case *protocol.CompleteEvent:
		e.Seq = s.state.NextSeq()
	case *protocol.ErrorEvent:
		e.Seq = s.state.NextSeq()
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		s.logger.Error("Failed to marshal event", zap.Error(err))
		return
	}

	select {
	case s.send <- payload:
	case <-s.ctx.Done():
	}
}

// readPump waits for the single binary audio frame, then keeps reading so a
// mid-flight disconnect is noticed and propagated as cancellation.
func (s *Session) readPump() {
	defer func() {
		s.cancel()
		s.hub.unregister <- s
		s.conn.Close()
	}()

	s.conn.SetReadLimit(s.hub.maxFrameSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				s.logger.Warn("WebSocket read error", zap.Error(err))
			}
			return
		}

		switch messageType {
		case websocket.BinaryMessage:
			s.frameOnce.Do(func() {
				frame := message
				go s.process(frame)
			})
		case websocket.TextMessage:
			// The protocol has no inbound text messages; ignore them.
		}
	}
}

// writePump drains the send channel to the connection. When the channel is
// closed it flushes whatever is queued, sends a close frame and drops the
// connection, so the terminal event always reaches the peer first.
func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case message, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				s.logger.Error("Failed to write event", zap.Error(err))
				return
			}

		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// process runs the pipeline for the received frame and emits the terminal
// event. It is the only goroutine emitting events after the connected event,
// which keeps sequence numbering single-threaded.
func (s *Session) process(frame []byte) {
	defer s.shutdown()

	start := time.Now()
	result, err := s.hub.service.Process(s.ctx, s.state, frame, "", s.callbacks())
	if err != nil {
		code := entities.CodeOf(err)
		if code == entities.FailureCancelled {
			// Peer is gone; nothing to emit, but the attempt is still
			// audited.
			s.logger.Info("Session cancelled by disconnect")
			s.audit(false, time.Since(start))
			return
		}

		s.logger.Warn("Session failed", zap.String("code", string(code)), zap.Error(err))
		s.emit(&protocol.ErrorEvent{
			BaseEvent: protocol.BaseEvent{Type: protocol.EventError},
			Code:      code,
			Message:   err.Error(),
		})
		s.audit(false, time.Since(start))
		return
	}

	s.emit(&protocol.CompleteEvent{
		BaseEvent:     protocol.BaseEvent{Type: protocol.EventComplete},
		Success:       result.Success,
		AgentCount:    s.state.Level.AgentCount(),
		ExecutionTime: result.Elapsed.Seconds(),
	})
	s.state.Transition(entities.PhaseClosed)
	s.audit(result.Success, result.Elapsed)
}

// callbacks bridges pipeline progress into wire events.
func (s *Session) callbacks() usecase.StageCallbacks {
	return usecase.StageCallbacks{
		OnStatus: func(message string) {
			s.emit(&protocol.StatusEvent{
				BaseEvent: protocol.BaseEvent{Type: protocol.EventStatus},
				Message:   message,
			})
		},
		OnTranscription: func(text string) {
			s.emit(&protocol.TranscriptionEvent{
				BaseEvent: protocol.BaseEvent{Type: protocol.EventTranscription},
				Text:      text,
			})
		},
		OnComplexity: func(level entities.ComplexityLevel) {
			s.emit(&protocol.ComplexityEvent{
				BaseEvent: protocol.BaseEvent{Type: protocol.EventComplexity},
				Level:     level.AgentCount(),
			})
		},
		OnChunk: func(text string) {
			s.emit(&protocol.ResponseChunkEvent{
				BaseEvent: protocol.BaseEvent{Type: protocol.EventResponseChunk},
				Text:      text,
			})
		},
	}
}

// audit appends the single record for this session.
func (s *Session) audit(success bool, elapsed time.Duration) {
	s.hub.audit.Append(entities.AuditRecord{
		Timestamp:  time.Now().UTC(),
		Source:     s.state.RemoteAddr,
		Command:    s.state.Transcript,
		AgentCount: s.state.Level.AgentCount(),
		Success:    success,
		ElapsedMs:  elapsed.Milliseconds(),
	})
}

// shutdown closes the send channel exactly once; writePump flushes and
// closes the connection after the terminal event.
func (s *Session) shutdown() {
	s.closeOnce.Do(func() {
		close(s.send)
	})
}
