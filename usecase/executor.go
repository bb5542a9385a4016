package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jeffaf/voxx/domain/entities"
	"github.com/jeffaf/voxx/domain/repositories"
)

const maxCommandLength = 1000

// ExecutionOrchestrator runs one deadline-bounded agent invocation per
// request. Exactly one ExecutionResult comes back for every request, and the
// subprocess is terminated on every exit path: the run context is cancelled
// when the deadline fires or the caller goes away, which kills the process.
type ExecutionOrchestrator struct {
	runner         repositories.AgentRunner
	execTimeout    time.Duration
	complexTimeout time.Duration
	logger         *zap.Logger
}

// NewExecutionOrchestrator creates the orchestrator with the standard and
// complex deadlines.
func NewExecutionOrchestrator(
	runner repositories.AgentRunner,
	execTimeout time.Duration,
	complexTimeout time.Duration,
	logger *zap.Logger,
) *ExecutionOrchestrator {
	return &ExecutionOrchestrator{
		runner:         runner,
		execTimeout:    execTimeout,
		complexTimeout: complexTimeout,
		logger:         logger,
	}
}

// DeadlineFor returns the execution deadline for a complexity level.
func (o *ExecutionOrchestrator) DeadlineFor(level entities.ComplexityLevel) time.Duration {
	if level == entities.ComplexityComplex {
		return o.complexTimeout
	}
	return o.execTimeout
}

// Execute runs the request, forwarding output chunks to onChunk as they are
// produced. Partial output captured before a timeout or cancellation is
// preserved in the result.
func (o *ExecutionOrchestrator) Execute(ctx context.Context, req entities.ExecutionRequest, onChunk func(string)) entities.ExecutionResult {
	if req.Command == "" || len(req.Command) > maxCommandLength {
		return entities.ExecutionResult{
			Success:  false,
			Output:   "invalid command length",
			Reason:   entities.ReasonProcessError,
			ExitCode: -1,
		}
	}

	runCtx, cancel := context.WithTimeout(ctx, req.Deadline)
	defer cancel()

	start := time.Now()
	o.logger.Info("Executing command",
		zap.String("command", req.Command),
		zap.Int("agentCount", req.AgentCount),
		zap.Duration("deadline", req.Deadline))

	stream, err := o.runner.Run(runCtx, req.Command, req.AgentCount)
	if err != nil {
		o.logger.Error("Agent launch failed", zap.Error(err))
		return entities.ExecutionResult{
			Success:  false,
			Output:   err.Error(),
			Elapsed:  time.Since(start),
			Reason:   entities.ReasonProcessError,
			ExitCode: -1,
		}
	}

	var output strings.Builder
	for chunk := range stream.Output() {
		if output.Len() > 0 {
			output.WriteByte('\n')
		}
		output.WriteString(chunk)
		if onChunk != nil {
			onChunk(chunk)
		}
	}

	waitErr := stream.Wait()
	elapsed := time.Since(start)

	result := entities.ExecutionResult{
		Output:   strings.TrimSpace(output.String()),
		Elapsed:  elapsed,
		ExitCode: stream.ExitCode(),
	}

	switch {
	case ctx.Err() != nil && errors.Is(ctx.Err(), context.Canceled):
		result.Reason = entities.ReasonCancelled
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		result.Reason = entities.ReasonTimeout
	case waitErr != nil:
		result.Reason = entities.ReasonProcessError
	default:
		result.Reason = entities.ReasonCompleted
		result.Success = true
	}

	if result.Output == "" {
		if result.Success {
			result.Output = "Command executed successfully"
		} else {
			result.Output = "Command failed with no output"
		}
	}

	o.logger.Info("Execution finished",
		zap.String("reason", string(result.Reason)),
		zap.Bool("success", result.Success),
		zap.Duration("elapsed", elapsed),
		zap.Int("exitCode", result.ExitCode))

	return result
}
