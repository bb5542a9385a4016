package entities

import (
	"errors"
	"testing"
)

func TestSession_LifecycleHappyPath(t *testing.T) {
	sess := NewSession("10.0.0.1")
	if sess.Phase != PhaseIdle {
		t.Fatalf("new session phase = %s, expected idle", sess.Phase)
	}
	if sess.ID == "" {
		t.Error("session must get an ID")
	}

	path := []SessionPhase{
		PhaseReceivingAudio,
		PhaseValidating,
		PhaseTranscribing,
		PhaseClassifying,
		PhaseExecuting,
		PhaseStreaming,
		PhaseClosed,
	}
	for _, next := range path {
		if err := sess.Transition(next); err != nil {
			t.Fatalf("transition to %s failed: %v", next, err)
		}
	}
	if !sess.IsTerminal() {
		t.Error("closed session must be terminal")
	}
}

func TestSession_RejectsSkippedPhases(t *testing.T) {
	sess := NewSession("10.0.0.1")
	sess.Transition(PhaseReceivingAudio)

	if err := sess.Transition(PhaseExecuting); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("receiving_audio -> executing should be rejected, got %v", err)
	}
	if sess.Phase != PhaseReceivingAudio {
		t.Errorf("failed transition must not change the phase, got %s", sess.Phase)
	}
}

func TestSession_ErroredReachableFromAnyActivePhase(t *testing.T) {
	for _, phase := range []SessionPhase{
		PhaseIdle, PhaseReceivingAudio, PhaseValidating,
		PhaseTranscribing, PhaseClassifying, PhaseExecuting, PhaseStreaming,
	} {
		sess := NewSession("10.0.0.1")
		sess.Phase = phase
		if err := sess.Transition(PhaseErrored); err != nil {
			t.Errorf("%s -> errored failed: %v", phase, err)
		}
		if !sess.IsTerminal() {
			t.Errorf("errored session must be terminal")
		}
	}
}

func TestSession_TerminalPhasesCannotBeLeft(t *testing.T) {
	for _, terminal := range []SessionPhase{PhaseClosed, PhaseErrored} {
		sess := NewSession("10.0.0.1")
		sess.Phase = terminal
		if err := sess.Transition(PhaseReceivingAudio); !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("%s -> receiving_audio should be rejected, got %v", terminal, err)
		}
		if err := sess.Transition(PhaseErrored); !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("%s -> errored should be rejected, got %v", terminal, err)
		}
	}
}

func TestSession_NextSeqStartsAtOneAndIncrements(t *testing.T) {
	sess := NewSession("10.0.0.1")
	for want := uint64(1); want <= 5; want++ {
		if got := sess.NextSeq(); got != want {
			t.Fatalf("NextSeq = %d, expected %d", got, want)
		}
	}
}
