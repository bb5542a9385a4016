package audio

import (
	"bytes"
	"fmt"

	"go.uber.org/zap"

	"github.com/jeffaf/voxx/domain/entities"
)

// Validator checks inbound audio frames against size and format constraints.
// The format decision is made from the buffer's leading bytes; any declared
// content type supplied by the caller is advisory only.
type Validator struct {
	maxSize int64
	logger  *zap.Logger
}

// NewValidator creates a validator with the given size ceiling in bytes.
func NewValidator(maxSize int64, logger *zap.Logger) *Validator {
	return &Validator{
		maxSize: maxSize,
		logger:  logger,
	}
}

// Validate classifies the buffer and returns an immutable AudioPayload, or
// a CommandError with code Empty, TooLarge or InvalidFormat.
func (v *Validator) Validate(data []byte, declaredType string) (entities.AudioPayload, error) {
	if len(data) == 0 {
		return entities.AudioPayload{}, entities.NewCommandError(
			entities.FailureEmpty, "audio buffer is empty")
	}

	if int64(len(data)) > v.maxSize {
		return entities.AudioPayload{}, entities.NewCommandError(
			entities.FailureTooLarge,
			fmt.Sprintf("audio buffer is %d bytes, maximum is %d", len(data), v.maxSize))
	}

	format, ok := sniffFormat(data)
	if !ok {
		return entities.AudioPayload{}, entities.NewCommandError(
			entities.FailureInvalidFormat,
			"audio signature does not match an allowed format (wav, mp3, m4a)")
	}

	if declaredType != "" && declaredType != string(format) {
		v.logger.Debug("Declared content type disagrees with detected format",
			zap.String("declared", declaredType),
			zap.String("detected", string(format)))
	}

	v.logger.Info("Audio frame validated",
		zap.String("format", string(format)),
		zap.Int("size", len(data)))

	return entities.AudioPayload{
		Data:   data,
		Format: format,
		Size:   len(data),
	}, nil
}

// sniffFormat inspects the leading bytes of the buffer for the signatures of
// the allowed audio containers.
func sniffFormat(data []byte) (entities.AudioFormat, bool) {
	// WAV: "RIFF" chunk with "WAVE" form type at offset 8.
	if len(data) >= 12 &&
		bytes.HasPrefix(data, []byte("RIFF")) &&
		bytes.Equal(data[8:12], []byte("WAVE")) {
		return entities.AudioFormatWAV, true
	}

	// MP3: ID3v2 tag, or a bare MPEG audio frame sync (11 set bits).
	if bytes.HasPrefix(data, []byte("ID3")) {
		return entities.AudioFormatMP3, true
	}
	if len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0 {
		return entities.AudioFormatMP3, true
	}

	// M4A/MP4: ISO base media file, "ftyp" box at offset 4.
	if len(data) >= 12 && bytes.Equal(data[4:8], []byte("ftyp")) {
		return entities.AudioFormatM4A, true
	}

	return "", false
}
