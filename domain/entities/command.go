package entities

import "time"

// AudioFormat identifies a detected audio container format.
type AudioFormat string

const (
	AudioFormatWAV AudioFormat = "wav"
	AudioFormatMP3 AudioFormat = "mp3"
	AudioFormatM4A AudioFormat = "m4a"
)

// AudioPayload is one validated audio frame. Immutable once built by the
// validator; discarded after transcription.
type AudioPayload struct {
	Data   []byte
	Format AudioFormat
	Size   int
}

// ComplexityLevel is the number of concurrent agents to request for a
// command. Derived deterministically from the transcript.
type ComplexityLevel int

const (
	ComplexitySimple   ComplexityLevel = 2
	ComplexityStandard ComplexityLevel = 3
	ComplexityComplex  ComplexityLevel = 5
)

// String returns the protocol name of the level.
func (l ComplexityLevel) String() string {
	switch l {
	case ComplexitySimple:
		return "simple"
	case ComplexityComplex:
		return "complex"
	default:
		return "standard"
	}
}

// AgentCount returns the level as a plain agent count.
func (l ComplexityLevel) AgentCount() int {
	return int(l)
}

// ExecutionRequest describes one agent invocation. Constructed once per
// session and consumed exactly once by the execution orchestrator.
type ExecutionRequest struct {
	Command    string
	AgentCount int
	Deadline   time.Duration
}

// TerminalReason records how an execution ended.
type TerminalReason string

const (
	ReasonCompleted    TerminalReason = "completed"
	ReasonTimeout      TerminalReason = "timeout"
	ReasonCancelled    TerminalReason = "cancelled"
	ReasonProcessError TerminalReason = "process_error"
)

// ExecutionResult is the single terminal outcome of an ExecutionRequest.
// Output holds whatever the subprocess produced, including partial output
// captured before a timeout or cancellation.
type ExecutionResult struct {
	Success  bool
	Output   string
	Elapsed  time.Duration
	Reason   TerminalReason
	ExitCode int
}

// AuditRecord is the append-only log entry for one completed or failed
// session. Retention and rotation are external concerns.
type AuditRecord struct {
	Timestamp  time.Time `json:"timestamp"`
	Source     string    `json:"source"`
	Command    string    `json:"command"`
	AgentCount int       `json:"agent_count"`
	Success    bool      `json:"success"`
	ElapsedMs  int64     `json:"elapsed_ms"`
}
