package agent

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jeffaf/voxx/domain/repositories"
)

// MockRunner is a placeholder agent for development and demos. It echoes the
// command back as a short stream of chunks without spawning anything.
type MockRunner struct {
	logger *zap.Logger
}

// NewMockRunner creates a mock agent runner.
func NewMockRunner(logger *zap.Logger) *MockRunner {
	return &MockRunner{logger: logger}
}

func (r *MockRunner) Run(ctx context.Context, command string, agentCount int) (repositories.AgentStream, error) {
	r.logger.Info("Mock agent run",
		zap.String("command", command),
		zap.Int("agentCount", agentCount))

	stream := &mockStream{
		out:  make(chan string, 4),
		done: make(chan struct{}),
	}

	go func() {
		defer close(stream.done)
		defer close(stream.out)
		lines := []string{
			fmt.Sprintf("Running %d agents on: %s", agentCount, command),
			"All agents completed.",
		}
		for _, line := range lines {
			select {
			case stream.out <- line:
			case <-ctx.Done():
				stream.waitErr = ctx.Err()
				return
			}
		}
	}()

	return stream, nil
}

type mockStream struct {
	out     chan string
	done    chan struct{}
	waitErr error
}

func (s *mockStream) Output() <-chan string {
	return s.out
}

func (s *mockStream) Wait() error {
	<-s.done
	return s.waitErr
}

func (s *mockStream) ExitCode() int {
	<-s.done
	if s.waitErr != nil {
		return -1
	}
	return 0
}
