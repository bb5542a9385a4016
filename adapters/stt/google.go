package stt

import (
	"context"
	"fmt"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"go.uber.org/zap"

	"github.com/jeffaf/voxx/domain/entities"
)

// GoogleTranscriber implements the Transcriber port with Google Cloud
// Speech-to-Text, using a single synchronous Recognize call per command.
type GoogleTranscriber struct {
	client *speech.Client
	logger *zap.Logger
}

// NewGoogleTranscriber creates the client using ambient Google Cloud
// credentials.
func NewGoogleTranscriber(ctx context.Context, logger *zap.Logger) (*GoogleTranscriber, error) {
	client, err := speech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create speech client: %w", err)
	}

	return &GoogleTranscriber{
		client: client,
		logger: logger,
	}, nil
}

// Transcribe sends the whole payload in one request and returns the best
// alternative of the first result.
func (g *GoogleTranscriber) Transcribe(ctx context.Context, payload entities.AudioPayload) (string, error) {
	req := &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:     encodingFor(payload.Format),
			LanguageCode: "en-US",
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{
				Content: payload.Data,
			},
		},
	}

	resp, err := g.client.Recognize(ctx, req)
	if err != nil {
		return "", fmt.Errorf("recognize request failed: %w", err)
	}

	var transcript string
	for _, result := range resp.Results {
		if len(result.Alternatives) > 0 {
			transcript += result.Alternatives[0].Transcript
		}
	}

	g.logger.Info("Transcription completed",
		zap.String("format", string(payload.Format)),
		zap.Int("audioBytes", payload.Size),
		zap.Int("transcriptLength", len(transcript)))

	return transcript, nil
}

// Close releases the underlying gRPC connection.
func (g *GoogleTranscriber) Close() error {
	return g.client.Close()
}

// encodingFor maps a detected container format to the Speech API encoding.
// M4A has no dedicated encoding; the service detects it from the header.
func encodingFor(format entities.AudioFormat) speechpb.RecognitionConfig_AudioEncoding {
	switch format {
	case entities.AudioFormatWAV:
		return speechpb.RecognitionConfig_LINEAR16
	case entities.AudioFormatMP3:
		return speechpb.RecognitionConfig_MP3
	default:
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED
	}
}
