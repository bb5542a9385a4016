package stt

import (
	"context"

	"go.uber.org/zap"

	"github.com/jeffaf/voxx/domain/entities"
)

// MockTranscriber is a placeholder transcriber for development and tests.
// It returns a canned command picked by payload size so the downstream
// pipeline sees varied complexity levels.
type MockTranscriber struct {
	logger *zap.Logger
}

// NewMockTranscriber creates a mock transcriber.
func NewMockTranscriber(logger *zap.Logger) *MockTranscriber {
	return &MockTranscriber{logger: logger}
}

func (m *MockTranscriber) Transcribe(ctx context.Context, payload entities.AudioPayload) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var transcript string
	switch {
	case payload.Size > 100*1024:
		transcript = "refactor the entire auth module and run the test suite"
	case payload.Size > 10*1024:
		transcript = "summarize the open pull requests"
	default:
		transcript = "fix the linting error"
	}

	m.logger.Info("Mock transcription",
		zap.Int("audioBytes", payload.Size),
		zap.String("transcript", transcript))

	return transcript, nil
}
