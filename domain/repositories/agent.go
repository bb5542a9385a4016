package repositories

import "context"

// AgentStream is a handle on one running agent invocation. Output yields
// chunks of the process's standard output as they are produced; the channel
// is closed when the process exits or is killed. Wait must be called after
// Output is drained and returns the process's exit error, if any.
type AgentStream interface {
	Output() <-chan string
	Wait() error
	// ExitCode reports the process exit code after Wait has returned.
	ExitCode() int
}

// AgentRunner abstracts the external coding-agent executable. The command is
// passed as an opaque argument, never through a shell. Cancelling the context
// terminates the subprocess.
type AgentRunner interface {
	Run(ctx context.Context, command string, agentCount int) (AgentStream, error)
}
