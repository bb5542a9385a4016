package entities

import (
	"errors"
	"fmt"
)

// FailureCode classifies every way a session can fail. The same taxonomy is
// used on the wire, in logs, and in the audit trail.
type FailureCode string

const (
	FailureAdmissionRejected        FailureCode = "admission_rejected"
	FailureInvalidFormat            FailureCode = "invalid_format"
	FailureTooLarge                 FailureCode = "too_large"
	FailureEmpty                    FailureCode = "empty"
	FailureTranscriptionUnavailable FailureCode = "transcription_unavailable"
	FailureTranscriptionTimeout     FailureCode = "transcription_timeout"
	FailureProcessTimeout           FailureCode = "process_timeout"
	FailureProcessError             FailureCode = "process_error"
	FailureCancelled                FailureCode = "cancelled"

	// Transport-layer classes, produced only on the client side. An error
	// event carrying FailureConnectionError is retried like any other
	// transport failure; FailureConnectionFailed is the terminal outcome
	// after retries are exhausted.
	FailureConnectionError  FailureCode = "connection_error"
	FailureConnectionFailed FailureCode = "connection_failed"
)

// CommandError carries a failure code alongside a human-readable message.
type CommandError struct {
	Code    FailureCode
	Message string
	Err     error
}

func (e *CommandError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// NewCommandError builds a CommandError without an underlying cause.
func NewCommandError(code FailureCode, message string) *CommandError {
	return &CommandError{Code: code, Message: message}
}

// WrapCommandError builds a CommandError around an underlying cause.
func WrapCommandError(code FailureCode, message string, err error) *CommandError {
	return &CommandError{Code: code, Message: message, Err: err}
}

// CodeOf extracts the failure code from an error chain, or returns
// FailureProcessError when the error carries no code.
func CodeOf(err error) FailureCode {
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.Code
	}
	return FailureProcessError
}
