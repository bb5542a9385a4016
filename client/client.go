// Package client implements the caller's side of the voice-command session
// protocol, including reconnect and retry behavior.
package client

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/jeffaf/voxx/domain/entities"
	"github.com/jeffaf/voxx/protocol"
)

const (
	defaultMaxAttempts      = 3
	defaultRetryDelay       = time.Second
	defaultHandshakeTimeout = 10 * time.Second
)

// ErrConnectionFailed is surfaced after every attempt ended in a transport
// failure.
var ErrConnectionFailed = errors.New("connection failed after all retry attempts")

// ServerError is an application-level error event reported by the server. It
// terminates the exchange without retrying.
type ServerError struct {
	Code    entities.FailureCode
	Message string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error (%s): %s", e.Code, e.Message)
}

// Config configures one controller. Zero values take the documented
// defaults: 3 attempts with a fixed 1-second delay.
type Config struct {
	// URL is the session endpoint, e.g. ws://host:8080/ws/voice.
	URL string

	MaxAttempts      int
	RetryDelay       time.Duration
	HandshakeTimeout time.Duration
}

// Result is the terminal outcome of a successful exchange.
type Result struct {
	Success       bool
	Transcript    string
	AgentCount    int
	ExecutionTime float64

	// Output is the agent output accumulated from response chunks.
	Output string
}

// Controller governs the full send-audio/receive-events exchange. Transport
// failures restart the exchange from the beginning, re-sending the audio
// frame; a terminal application event always ends the retry loop.
type Controller struct {
	cfg    Config
	dialer *websocket.Dialer
	logger *zap.Logger
}

// New creates a controller for the configured endpoint.
func New(cfg Config, logger *zap.Logger) *Controller {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = defaultRetryDelay
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = defaultHandshakeTimeout
	}

	return &Controller{
		cfg: cfg,
		dialer: &websocket.Dialer{
			HandshakeTimeout: cfg.HandshakeTimeout,
		},
		logger: logger,
	}
}

// Execute sends one audio frame and consumes the event stream to its
// terminal event. Every received event is forwarded to onEvent (may be nil)
// in sequence order. The returned error is a *ServerError for an
// application-level failure, or wraps ErrConnectionFailed when all attempts
// died on transport failures.
func (c *Controller) Execute(ctx context.Context, audio []byte, onEvent func(protocol.Event)) (*Result, error) {
	var lastErr error

	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			c.logger.Info("Retrying exchange",
				zap.Int("attempt", attempt),
				zap.Duration("delay", c.cfg.RetryDelay))
			select {
			case <-time.After(c.cfg.RetryDelay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		result, err := c.exchange(ctx, audio, onEvent)
		if err == nil {
			return result, nil
		}

		var serverErr *ServerError
		if errors.As(err, &serverErr) {
			// Application-level failure: the server had its say, do not
			// retry.
			return nil, serverErr
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		c.logger.Warn("Exchange attempt failed",
			zap.Int("attempt", attempt),
			zap.Error(err))
		lastErr = err
	}

	return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, lastErr)
}

// exchange performs one complete attempt: dial, send the frame, read events
// until a terminal one arrives.
func (c *Controller) exchange(ctx context.Context, audio []byte, onEvent func(protocol.Event)) (*Result, error) {
	conn, _, err := c.dialer.DialContext(ctx, c.cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial failed: %w", err)
	}
	defer conn.Close()

	if err := conn.WriteMessage(websocket.BinaryMessage, audio); err != nil {
		return nil, fmt.Errorf("failed to send audio frame: %w", err)
	}

	result := &Result{}
	var chunks []string

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			return nil, fmt.Errorf("stream dropped: %w", err)
		}

		event, err := protocol.DecodeEvent(frame)
		if err != nil {
			return nil, fmt.Errorf("malformed event: %w", err)
		}
		if onEvent != nil {
			onEvent(event)
		}

		switch ev := event.(type) {
		case *protocol.ConnectedEvent, *protocol.StatusEvent:
			// Progress only.
		case *protocol.TranscriptionEvent:
			result.Transcript = ev.Text
		case *protocol.ComplexityEvent:
			result.AgentCount = ev.Level
		case *protocol.ResponseChunkEvent:
			chunks = append(chunks, ev.Text)
		case *protocol.CompleteEvent:
			result.Success = ev.Success
			result.AgentCount = ev.AgentCount
			result.ExecutionTime = ev.ExecutionTime
			result.Output = strings.Join(chunks, "\n")
			return result, nil
		case *protocol.ErrorEvent:
			if ev.Code == entities.FailureConnectionError {
				// The server classed this as a transport problem; treat it
				// like a mid-stream drop.
				return nil, fmt.Errorf("server reported connection error: %s", ev.Message)
			}
			return nil, &ServerError{Code: ev.Code, Message: ev.Message}
		}
	}
}
