// Package protocol defines the typed JSON events of the voice-command
// session protocol, shared by the server and the client controller.
package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/jeffaf/voxx/domain/entities"
)

// EventType defines the type of an outbound session event. The set is
// closed: every member has its own struct below and DecodeEvent switches
// over all of them.
type EventType string

const (
	EventConnected     EventType = "connected"
	EventStatus        EventType = "status"
	EventTranscription EventType = "transcription"
	EventComplexity    EventType = "complexity"
	EventResponseChunk EventType = "response_chunk"
	EventComplete      EventType = "complete"
	EventError         EventType = "error"
)

// Event is implemented by every session event.
type Event interface {
	EventType() EventType
	Sequence() uint64
}

// BaseEvent carries the fields common to all events. Seq is strictly
// increasing and gap-free within one session.
type BaseEvent struct {
	Type EventType `json:"type"`
	Seq  uint64    `json:"seq"`
}

func (e BaseEvent) EventType() EventType { return e.Type }
func (e BaseEvent) Sequence() uint64     { return e.Seq }

// ConnectedEvent confirms admission of the session.
type ConnectedEvent struct {
	BaseEvent
	Message string `json:"message"`
}

// StatusEvent reports pipeline progress.
type StatusEvent struct {
	BaseEvent
	Message string `json:"message"`
}

// TranscriptionEvent echoes the transcript back to the caller as soon as
// transcription succeeds.
type TranscriptionEvent struct {
	BaseEvent
	Text string `json:"text"`
}

// ComplexityEvent reports the chosen concurrency level.
type ComplexityEvent struct {
	BaseEvent
	Level int `json:"level"`
}

// ResponseChunkEvent carries one chunk of streamed agent output.
type ResponseChunkEvent struct {
	BaseEvent
	Text string `json:"text"`
}

// CompleteEvent terminates a session that produced an execution result.
type CompleteEvent struct {
	BaseEvent
	Success       bool    `json:"success"`
	AgentCount    int     `json:"agent_count"`
	ExecutionTime float64 `json:"execution_time"`
}

// ErrorEvent terminates a failed session. Exactly one is emitted and no
// events follow it.
type ErrorEvent struct {
	BaseEvent
	Code    entities.FailureCode `json:"code,omitempty"`
	Message string               `json:"message"`
}

// DecodeEvent parses a wire frame into its typed event. Unknown types are an
// error: the event set is closed.
func DecodeEvent(data []byte) (Event, error) {
	var base BaseEvent
	if err := json.Unmarshal(data, &base); err != nil {
		return nil, fmt.Errorf("invalid event frame: %w", err)
	}

	switch base.Type {
	case EventConnected:
		var ev ConnectedEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, fmt.Errorf("invalid connected event: %w", err)
		}
		return &ev, nil
	case EventStatus:
		var ev StatusEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, fmt.Errorf("invalid status event: %w", err)
		}
		return &ev, nil
	case EventTranscription:
		var ev TranscriptionEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, fmt.Errorf("invalid transcription event: %w", err)
		}
		return &ev, nil
	case EventComplexity:
		var ev ComplexityEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, fmt.Errorf("invalid complexity event: %w", err)
		}
		return &ev, nil
	case EventResponseChunk:
		var ev ResponseChunkEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, fmt.Errorf("invalid response chunk event: %w", err)
		}
		return &ev, nil
	case EventComplete:
		var ev CompleteEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, fmt.Errorf("invalid complete event: %w", err)
		}
		return &ev, nil
	case EventError:
		var ev ErrorEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, fmt.Errorf("invalid error event: %w", err)
		}
		return &ev, nil
	default:
		return nil, fmt.Errorf("unsupported event type: %s", base.Type)
	}
}

// IsTerminal reports whether the event ends the session's stream.
func IsTerminal(ev Event) bool {
	switch ev.EventType() {
	case EventComplete, EventError:
		return true
	default:
		return false
	}
}
