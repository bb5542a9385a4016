package repositories

import (
	"context"

	"github.com/jeffaf/voxx/domain/entities"
)

// Transcriber abstracts the external speech-to-text service. Implementations
// must honor context cancellation: the call is torn down when the owning
// session's connection closes.
type Transcriber interface {
	// Transcribe converts one validated audio payload to text.
	Transcribe(ctx context.Context, payload entities.AudioPayload) (string, error)
}
