package agent

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/jeffaf/voxx/domain/repositories"
)

// CLIRunner launches the coding-agent CLI. The command text travels as a
// single argv element, never through a shell, so it cannot be interpreted as
// shell syntax. Cancelling the run context kills the subprocess.
type CLIRunner struct {
	binary string
	logger *zap.Logger
}

// NewCLIRunner creates a runner for the given executable name or path.
func NewCLIRunner(binary string, logger *zap.Logger) *CLIRunner {
	return &CLIRunner{
		binary: binary,
		logger: logger,
	}
}

// Run starts `<binary> code <command> --agent-count N` and returns a stream
// over its output.
func (r *CLIRunner) Run(ctx context.Context, command string, agentCount int) (repositories.AgentStream, error) {
	cmd := exec.CommandContext(ctx, r.binary, "code", command, "--agent-count", strconv.Itoa(agentCount))

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open stdout pipe: %w", err)
	}

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start agent process: %w", err)
	}

	r.logger.Info("Agent process started",
		zap.String("binary", r.binary),
		zap.Int("agentCount", agentCount),
		zap.Int("pid", cmd.Process.Pid))

	stream := &cliStream{
		out:  make(chan string, 16),
		done: make(chan struct{}),
	}
	go stream.pump(cmd, stdout, &stderr)

	return stream, nil
}

type cliStream struct {
	out  chan string
	done chan struct{}

	waitErr  error
	exitCode int
}

// pump copies stdout lines to the output channel, then reaps the process.
// When the process produced nothing on stdout, its stderr is surfaced as a
// single chunk so diagnostics are never lost.
func (s *cliStream) pump(cmd *exec.Cmd, stdout interface{ Read([]byte) (int, error) }, stderr *bytes.Buffer) {
	emitted := false
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		s.out <- scanner.Text()
		emitted = true
	}

	s.waitErr = cmd.Wait()
	if state := cmd.ProcessState; state != nil {
		s.exitCode = state.ExitCode()
	} else {
		s.exitCode = -1
	}

	if !emitted {
		if errText := strings.TrimSpace(stderr.String()); errText != "" {
			s.out <- errText
		}
	}

	close(s.out)
	close(s.done)
}

func (s *cliStream) Output() <-chan string {
	return s.out
}

func (s *cliStream) Wait() error {
	<-s.done
	return s.waitErr
}

func (s *cliStream) ExitCode() int {
	<-s.done
	return s.exitCode
}
