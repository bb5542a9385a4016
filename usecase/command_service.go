package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jeffaf/voxx/domain/entities"
	"github.com/jeffaf/voxx/domain/repositories"
	"github.com/jeffaf/voxx/internal/audio"
)

// StageCallbacks lets the session layer stream per-stage progress to the
// caller while the pipeline runs. Any callback may be nil.
type StageCallbacks struct {
	OnStatus        func(message string)
	OnTranscription func(text string)
	OnComplexity    func(level entities.ComplexityLevel)
	OnChunk         func(text string)
}

func (cb StageCallbacks) status(message string) {
	if cb.OnStatus != nil {
		cb.OnStatus(message)
	}
}

// CommandService sequences one voice command through validation,
// transcription, classification and execution. It drives the session's phase
// transitions; event emission stays with the connection layer via callbacks.
type CommandService struct {
	validator         *audio.Validator
	transcriber       repositories.Transcriber
	classifier        *Classifier
	orchestrator      *ExecutionOrchestrator
	transcribeTimeout time.Duration
	logger            *zap.Logger
}

// NewCommandService wires the pipeline.
func NewCommandService(
	validator *audio.Validator,
	transcriber repositories.Transcriber,
	classifier *Classifier,
	orchestrator *ExecutionOrchestrator,
	transcribeTimeout time.Duration,
	logger *zap.Logger,
) *CommandService {
	return &CommandService{
		validator:         validator,
		transcriber:       transcriber,
		classifier:        classifier,
		orchestrator:      orchestrator,
		transcribeTimeout: transcribeTimeout,
		logger:            logger,
	}
}

// Process runs the full pipeline for one audio frame. A returned error means
// the session failed before producing a result (validation, transcription,
// launch failure) or was cancelled; otherwise the result is terminal — a
// deadline overrun or non-zero exit comes back as a result with
// Success=false, mirroring how the subprocess outcome is reported upstream.
func (s *CommandService) Process(ctx context.Context, sess *entities.Session, frame []byte, declaredType string, cb StageCallbacks) (entities.ExecutionResult, error) {
	if err := sess.Transition(entities.PhaseValidating); err != nil {
		return entities.ExecutionResult{}, err
	}
	cb.status("Validating audio...")

	payload, err := s.validator.Validate(frame, declaredType)
	if err != nil {
		sess.Transition(entities.PhaseErrored)
		return entities.ExecutionResult{}, err
	}

	if err := sess.Transition(entities.PhaseTranscribing); err != nil {
		return entities.ExecutionResult{}, err
	}
	cb.status("Transcribing audio...")

	transcript, err := s.transcribe(ctx, payload)
	if err != nil {
		sess.Transition(entities.PhaseErrored)
		return entities.ExecutionResult{}, err
	}
	sess.Transcript = transcript
	if cb.OnTranscription != nil {
		cb.OnTranscription(transcript)
	}

	// Classification is pure and total; this transition cannot fail the
	// session.
	if err := sess.Transition(entities.PhaseClassifying); err != nil {
		return entities.ExecutionResult{}, err
	}
	level := s.classifier.Classify(transcript)
	sess.Level = level
	if cb.OnComplexity != nil {
		cb.OnComplexity(level)
	}

	if err := sess.Transition(entities.PhaseExecuting); err != nil {
		return entities.ExecutionResult{}, err
	}
	deadline := s.orchestrator.DeadlineFor(level)
	sess.SetDeadline(deadline)
	cb.status(fmt.Sprintf("Executing with %d agents...", level.AgentCount()))

	req := entities.ExecutionRequest{
		Command:    transcript,
		AgentCount: level.AgentCount(),
		Deadline:   deadline,
	}
	result := s.orchestrator.Execute(ctx, req, cb.OnChunk)

	if result.Reason == entities.ReasonCancelled {
		sess.Transition(entities.PhaseErrored)
		return result, entities.NewCommandError(
			entities.FailureCancelled, "caller disconnected before completion")
	}

	if err := sess.Transition(entities.PhaseStreaming); err != nil {
		return result, err
	}
	return result, nil
}

// transcribe bounds the upstream call and maps its failures onto the
// session error taxonomy.
func (s *CommandService) transcribe(ctx context.Context, payload entities.AudioPayload) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.transcribeTimeout)
	defer cancel()

	transcript, err := s.transcriber.Transcribe(callCtx, payload)
	if err != nil {
		switch {
		case errors.Is(ctx.Err(), context.Canceled):
			return "", entities.WrapCommandError(
				entities.FailureCancelled, "session closed during transcription", err)
		case errors.Is(callCtx.Err(), context.DeadlineExceeded):
			return "", entities.WrapCommandError(
				entities.FailureTranscriptionTimeout, "transcription exceeded its deadline", err)
		default:
			return "", entities.WrapCommandError(
				entities.FailureTranscriptionUnavailable, "speech-to-text failed", err)
		}
	}

	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return "", entities.NewCommandError(
			entities.FailureTranscriptionUnavailable, "no speech detected in audio")
	}

	s.logger.Info("Transcription successful", zap.String("transcript", transcript))
	return transcript, nil
}
