package stt

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/jeffaf/voxx/domain/entities"
)

const transcribePrompt = "Transcribe this spoken command verbatim. " +
	"Reply with the transcript only, no commentary."

// GeminiTranscriber implements the Transcriber port by sending the audio as
// an inline part to a Gemini model.
type GeminiTranscriber struct {
	client *genai.Client
	logger *zap.Logger
	model  string
}

// NewGeminiTranscriber creates a Gemini-backed transcriber.
func NewGeminiTranscriber(ctx context.Context, apiKey string, logger *zap.Logger) (*GeminiTranscriber, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiTranscriber{
		client: client,
		logger: logger,
		model:  "gemini-2.0-flash",
	}, nil
}

func (g *GeminiTranscriber) Transcribe(ctx context.Context, payload entities.AudioPayload) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(transcribePrompt),
			genai.NewPartFromBytes(payload.Data, mimeTypeFor(payload.Format)),
		}, genai.RoleUser),
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("gemini transcription failed: %w", err)
	}

	transcript := strings.TrimSpace(resp.Text())

	g.logger.Info("Transcription completed",
		zap.String("model", g.model),
		zap.Int("audioBytes", payload.Size),
		zap.Int("transcriptLength", len(transcript)))

	return transcript, nil
}

func mimeTypeFor(format entities.AudioFormat) string {
	switch format {
	case entities.AudioFormatWAV:
		return "audio/wav"
	case entities.AudioFormatMP3:
		return "audio/mp3"
	default:
		return "audio/mp4"
	}
}
