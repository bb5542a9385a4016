package entities

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// SessionPhase represents where a session is in its lifecycle.
type SessionPhase string

const (
	PhaseIdle           SessionPhase = "idle"
	PhaseReceivingAudio SessionPhase = "receiving_audio"
	PhaseValidating     SessionPhase = "validating"
	PhaseTranscribing   SessionPhase = "transcribing"
	PhaseClassifying    SessionPhase = "classifying"
	PhaseExecuting      SessionPhase = "executing"
	PhaseStreaming      SessionPhase = "streaming"
	PhaseClosed         SessionPhase = "closed"
	PhaseErrored        SessionPhase = "errored"
)

// ErrInvalidTransition is returned when a phase change is not allowed by the
// session lifecycle.
var ErrInvalidTransition = errors.New("invalid session phase transition")

// allowedTransitions maps each phase to the phases reachable from it.
// Errored is reachable from every non-terminal phase and is handled
// separately in Transition.
var allowedTransitions = map[SessionPhase][]SessionPhase{
	PhaseIdle:           {PhaseReceivingAudio, PhaseClosed},
	PhaseReceivingAudio: {PhaseValidating},
	PhaseValidating:     {PhaseTranscribing},
	PhaseTranscribing:   {PhaseClassifying},
	PhaseClassifying:    {PhaseExecuting},
	PhaseExecuting:      {PhaseStreaming},
	PhaseStreaming:      {PhaseClosed},
}

// Session represents one end-to-end voice-command exchange over a single
// connection. It is owned exclusively by the connection handler; none of its
// methods are safe for concurrent use.
type Session struct {
	ID         string
	RemoteAddr string
	Phase      SessionPhase
	CreatedAt  time.Time
	Deadline   time.Time

	Transcript string
	Level      ComplexityLevel

	seq uint64
}

// NewSession creates a session for a newly accepted connection.
func NewSession(remoteAddr string) *Session {
	return &Session{
		ID:         uuid.NewString(),
		RemoteAddr: remoteAddr,
		Phase:      PhaseIdle,
		CreatedAt:  time.Now(),
	}
}

// Transition moves the session to the next phase, enforcing the lifecycle.
// Errored is reachable from any non-terminal phase; Closed and Errored are
// terminal and can never be left.
func (s *Session) Transition(next SessionPhase) error {
	if s.IsTerminal() {
		return ErrInvalidTransition
	}
	if next == PhaseErrored {
		s.Phase = PhaseErrored
		return nil
	}
	for _, allowed := range allowedTransitions[s.Phase] {
		if allowed == next {
			s.Phase = next
			return nil
		}
	}
	return ErrInvalidTransition
}

// IsTerminal reports whether the session has reached a terminal phase.
func (s *Session) IsTerminal() bool {
	return s.Phase == PhaseClosed || s.Phase == PhaseErrored
}

// NextSeq increments and returns the event sequence number. It is incremented
// before every send so the caller observes a strictly ordered, gap-free
// sequence starting at 1.
func (s *Session) NextSeq() uint64 {
	s.seq++
	return s.seq
}

// SetDeadline records when execution must finish.
func (s *Session) SetDeadline(d time.Duration) {
	s.Deadline = time.Now().Add(d)
}
