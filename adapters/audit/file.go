package audit

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jeffaf/voxx/domain/entities"
)

// FileSink appends one JSON line per terminal session to a dedicated audit
// file. It is backed by its own zap logger, so concurrent appenders are safe
// and the record format matches the rest of the service's logs.
type FileSink struct {
	logger *zap.Logger
}

// NewFileSink opens (or creates) the audit log at path.
func NewFileSink(path string) (*FileSink, error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{path}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.DisableCaller = true
	cfg.DisableStacktrace = true

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}

	return &FileSink{logger: logger}, nil
}

// Append writes one audit record. Records from different sessions may
// interleave in any order; records are never rewritten.
func (s *FileSink) Append(record entities.AuditRecord) {
	s.logger.Info("audit",
		zap.Time("at", record.Timestamp),
		zap.String("source", record.Source),
		zap.String("command", record.Command),
		zap.Int("agent_count", record.AgentCount),
		zap.Bool("success", record.Success),
		zap.Duration("elapsed", time.Duration(record.ElapsedMs)*time.Millisecond))
}

// Close flushes buffered records.
func (s *FileSink) Close() error {
	return s.logger.Sync()
}
