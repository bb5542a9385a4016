package websocket

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/jeffaf/voxx/domain/entities"
	"github.com/jeffaf/voxx/domain/repositories"
	"github.com/jeffaf/voxx/internal/audio"
	"github.com/jeffaf/voxx/internal/ratelimit"
	"github.com/jeffaf/voxx/protocol"
	"github.com/jeffaf/voxx/usecase"
)

// stubTranscriber returns a fixed transcript for any payload.
type stubTranscriber struct {
	text string
}

func (s *stubTranscriber) Transcribe(ctx context.Context, payload entities.AudioPayload) (string, error) {
	return s.text, nil
}

// stubRunner hands out pre-scripted agent output.
type stubRunner struct {
	lines    []string
	waitErr  error
	exitCode int
}

func (r *stubRunner) Run(ctx context.Context, command string, agentCount int) (repositories.AgentStream, error) {
	out := make(chan string, len(r.lines)+1)
	for _, line := range r.lines {
		out <- line
	}
	close(out)
	return &stubStream{out: out, waitErr: r.waitErr, exitCode: r.exitCode}, nil
}

type stubStream struct {
	out      chan string
	waitErr  error
	exitCode int
}

func (s *stubStream) Output() <-chan string { return s.out }
func (s *stubStream) Wait() error           { return s.waitErr }
func (s *stubStream) ExitCode() int         { return s.exitCode }

// captureSink records audit entries for assertions.
type captureSink struct {
	mu      sync.Mutex
	records []entities.AuditRecord
}

func (c *captureSink) Append(record entities.AuditRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = append(c.records, record)
}

func (c *captureSink) snapshot() []entities.AuditRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]entities.AuditRecord(nil), c.records...)
}

func (c *captureSink) waitForRecord(t *testing.T) entities.AuditRecord {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if records := c.snapshot(); len(records) > 0 {
			return records[0]
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("no audit record appeared")
	return entities.AuditRecord{}
}

// newTestServer stands up a full hub on an httptest server. maxAudio is the
// validator ceiling; the read limit sits at twice that, matching production
// wiring.
func newTestServer(t *testing.T, transcriber repositories.Transcriber, runner repositories.AgentRunner, maxAudio int64, ratePerMinute int) (*httptest.Server, *captureSink) {
	t.Helper()
	logger := zap.NewNop()

	classifier := usecase.NewClassifier(
		[]string{"refactor", "analyze", "optimize", "test suite", "full test", "entire"},
		[]string{"fix", "add", "change", "update", "create"},
	)
	orchestrator := usecase.NewExecutionOrchestrator(runner, time.Minute, 2*time.Minute, logger)
	service := usecase.NewCommandService(
		audio.NewValidator(maxAudio, logger), transcriber, classifier, orchestrator, 5*time.Second, logger)

	sink := &captureSink{}
	hub := NewHub(service, ratelimit.NewLimiter(ratePerMinute, time.Minute), sink, maxAudio*2, logger)
	go hub.Run()

	e := echo.New()
	e.GET("/ws/voice", hub.HandleSession)
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return srv, sink
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/voice"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func wavFrame(size int) []byte {
	if size < 16 {
		size = 16
	}
	buf := make([]byte, size)
	copy(buf[0:4], "RIFF")
	copy(buf[8:12], "WAVE")
	return buf
}

// readUntilTerminal consumes the event stream up to and including the
// terminal event.
func readUntilTerminal(t *testing.T, conn *websocket.Conn) []protocol.Event {
	t.Helper()
	var events []protocol.Event
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("stream ended before terminal event: %v", err)
		}
		event, err := protocol.DecodeEvent(frame)
		if err != nil {
			t.Fatalf("undecodable event: %v", err)
		}
		events = append(events, event)
		if protocol.IsTerminal(event) {
			return events
		}
	}
}

func assertSequencing(t *testing.T, events []protocol.Event) {
	t.Helper()
	for i, event := range events {
		if want := uint64(i + 1); event.Sequence() != want {
			t.Errorf("event %d (%s) has seq %d, expected %d",
				i, event.EventType(), event.Sequence(), want)
		}
	}
	for i, event := range events {
		if protocol.IsTerminal(event) && i != len(events)-1 {
			t.Errorf("terminal event %s at position %d is not last", event.EventType(), i)
		}
	}
}

func TestSession_SimpleCommandStream(t *testing.T) {
	srv, sink := newTestServer(t,
		&stubTranscriber{text: "fix the linting error"},
		&stubRunner{lines: []string{"patching", "done"}},
		1<<20, 10)

	conn := dial(t, srv)
	if err := conn.WriteMessage(websocket.BinaryMessage, wavFrame(256)); err != nil {
		t.Fatalf("failed to send frame: %v", err)
	}

	events := readUntilTerminal(t, conn)
	assertSequencing(t, events)

	if _, ok := events[0].(*protocol.ConnectedEvent); !ok {
		t.Fatalf("first event is %s, expected connected", events[0].EventType())
	}

	var transcription *protocol.TranscriptionEvent
	var complexity *protocol.ComplexityEvent
	var chunks []string
	for _, event := range events {
		switch ev := event.(type) {
		case *protocol.TranscriptionEvent:
			transcription = ev
		case *protocol.ComplexityEvent:
			complexity = ev
		case *protocol.ResponseChunkEvent:
			chunks = append(chunks, ev.Text)
		}
	}

	if transcription == nil || transcription.Text != "fix the linting error" {
		t.Errorf("missing or wrong transcription event: %+v", transcription)
	}
	if complexity == nil || complexity.Level != 2 {
		t.Errorf("expected complexity level 2, got %+v", complexity)
	}
	if len(chunks) != 2 || chunks[0] != "patching" || chunks[1] != "done" {
		t.Errorf("unexpected chunks: %v", chunks)
	}

	complete, ok := events[len(events)-1].(*protocol.CompleteEvent)
	if !ok {
		t.Fatalf("terminal event is %s, expected complete", events[len(events)-1].EventType())
	}
	if !complete.Success || complete.AgentCount != 2 {
		t.Errorf("unexpected terminal event: %+v", complete)
	}

	record := sink.waitForRecord(t)
	if !record.Success || record.Command != "fix the linting error" || record.AgentCount != 2 {
		t.Errorf("unexpected audit record: %+v", record)
	}
}

func TestSession_ComplexCommandAgentCount(t *testing.T) {
	srv, _ := newTestServer(t,
		&stubTranscriber{text: "refactor the entire auth module and run the test suite"},
		&stubRunner{lines: []string{"working"}},
		1<<20, 10)

	conn := dial(t, srv)
	if err := conn.WriteMessage(websocket.BinaryMessage, wavFrame(256)); err != nil {
		t.Fatalf("failed to send frame: %v", err)
	}

	events := readUntilTerminal(t, conn)
	assertSequencing(t, events)

	complete, ok := events[len(events)-1].(*protocol.CompleteEvent)
	if !ok {
		t.Fatalf("terminal event is %s, expected complete", events[len(events)-1].EventType())
	}
	if complete.AgentCount != 5 {
		t.Errorf("expected 5 agents, got %d", complete.AgentCount)
	}
}

func TestSession_InvalidAudioYieldsErrorEvent(t *testing.T) {
	srv, sink := newTestServer(t,
		&stubTranscriber{text: "never used"},
		&stubRunner{},
		1<<20, 10)

	conn := dial(t, srv)
	if err := conn.WriteMessage(websocket.BinaryMessage, []byte{0xDE, 0xAD, 0xBE, 0xEF}); err != nil {
		t.Fatalf("failed to send frame: %v", err)
	}

	events := readUntilTerminal(t, conn)
	assertSequencing(t, events)

	errEvent, ok := events[len(events)-1].(*protocol.ErrorEvent)
	if !ok {
		t.Fatalf("terminal event is %s, expected error", events[len(events)-1].EventType())
	}
	if errEvent.Code != entities.FailureInvalidFormat {
		t.Errorf("expected code invalid_format, got %s", errEvent.Code)
	}

	if record := sink.waitForRecord(t); record.Success {
		t.Error("failed session must be audited as unsuccessful")
	}
}

func TestSession_OversizedFrame(t *testing.T) {
	// Validator ceiling of 1 KiB; the read limit of 2 KiB still lets the
	// frame through so the caller gets a proper error event.
	srv, _ := newTestServer(t,
		&stubTranscriber{text: "never used"},
		&stubRunner{},
		1024, 10)

	conn := dial(t, srv)
	if err := conn.WriteMessage(websocket.BinaryMessage, wavFrame(1500)); err != nil {
		t.Fatalf("failed to send frame: %v", err)
	}

	events := readUntilTerminal(t, conn)
	errEvent, ok := events[len(events)-1].(*protocol.ErrorEvent)
	if !ok {
		t.Fatalf("terminal event is %s, expected error", events[len(events)-1].EventType())
	}
	if errEvent.Code != entities.FailureTooLarge {
		t.Errorf("expected code too_large, got %s", errEvent.Code)
	}
}

func TestSession_FailedExecutionStillCompletes(t *testing.T) {
	// A subprocess failure is an execution result, not a protocol error.
	srv, _ := newTestServer(t,
		&stubTranscriber{text: "fix the flaky deploy"},
		&stubRunner{lines: []string{"agent crashed"}, waitErr: errors.New("exit status 1"), exitCode: 1},
		1<<20, 10)

	conn := dial(t, srv)
	if err := conn.WriteMessage(websocket.BinaryMessage, wavFrame(256)); err != nil {
		t.Fatalf("failed to send frame: %v", err)
	}

	events := readUntilTerminal(t, conn)
	assertSequencing(t, events)

	complete, ok := events[len(events)-1].(*protocol.CompleteEvent)
	if !ok {
		t.Fatalf("terminal event is %s, expected complete", events[len(events)-1].EventType())
	}
	if complete.Success {
		t.Error("expected success=false for a failed subprocess")
	}
}

func TestSession_RateLimitRejection(t *testing.T) {
	srv, sink := newTestServer(t,
		&stubTranscriber{text: "never used"},
		&stubRunner{},
		1<<20, 1)

	// First connection consumes the only admission slot.
	first := dial(t, srv)
	first.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := first.ReadMessage(); err != nil {
		t.Fatalf("first session should be admitted: %v", err)
	}

	second := dial(t, srv)
	second.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, frame, err := second.ReadMessage()
	if err != nil {
		t.Fatalf("rejection event not received: %v", err)
	}

	event, err := protocol.DecodeEvent(frame)
	if err != nil {
		t.Fatalf("undecodable rejection event: %v", err)
	}
	errEvent, ok := event.(*protocol.ErrorEvent)
	if !ok {
		t.Fatalf("expected error event, got %s", event.EventType())
	}
	if errEvent.Code != entities.FailureAdmissionRejected {
		t.Errorf("expected code admission_rejected, got %s", errEvent.Code)
	}
	if errEvent.Sequence() != 1 {
		t.Errorf("rejection event seq = %d, expected 1", errEvent.Sequence())
	}

	if record := sink.waitForRecord(t); record.Success {
		t.Error("rejected session must be audited as unsuccessful")
	}
}
