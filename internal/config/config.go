package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Defaults mirror the documented configuration surface.
const (
	DefaultPort              = "8080"
	DefaultMaxAudioSizeMB    = 25
	DefaultAgentCount        = 3
	DefaultRatePerWindow     = 10
	DefaultRateWindow        = time.Minute
	DefaultExecTimeout       = 60 * time.Second
	DefaultComplexTimeout    = 120 * time.Second
	DefaultTranscribeTimeout = 15 * time.Second
	DefaultAgentBinary       = "claude"
	DefaultSTTProvider       = "mock"
)

// Config is the full configuration surface consumed by the core. It is built
// once at startup and handed to each component at construction; nothing reads
// the environment after Load returns.
type Config struct {
	Port string

	// MaxAudioSize is the inbound audio ceiling in bytes.
	MaxAudioSize int64

	DefaultAgentCount int

	// Rate limiting: RatePerWindow admitted sessions per source identity
	// per RateWindow.
	RatePerWindow int
	RateWindow    time.Duration

	ExecTimeout        time.Duration
	ComplexExecTimeout time.Duration
	TranscribeTimeout  time.Duration

	ComplexKeywords []string
	SimpleKeywords  []string

	// AgentBinary is the coding-agent executable looked up on PATH.
	AgentBinary string

	// STTProvider selects the transcription adapter: mock, google or gemini.
	STTProvider  string
	GeminiAPIKey string

	// AuditLogPath is where the append-only audit trail is written.
	AuditLogPath string
}

// Load reads configuration from the environment, after loading .env if one
// is present. Missing values fall back to defaults.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Port:               envString("PORT", DefaultPort),
		MaxAudioSize:       int64(envInt("MAX_AUDIO_SIZE_MB", DefaultMaxAudioSizeMB)) * 1024 * 1024,
		DefaultAgentCount:  envInt("DEFAULT_AGENT_COUNT", DefaultAgentCount),
		RatePerWindow:      envInt("RATE_LIMIT_PER_MINUTE", DefaultRatePerWindow),
		RateWindow:         DefaultRateWindow,
		ExecTimeout:        envDuration("EXEC_TIMEOUT", DefaultExecTimeout),
		ComplexExecTimeout: envDuration("COMPLEX_EXEC_TIMEOUT", DefaultComplexTimeout),
		TranscribeTimeout:  envDuration("TRANSCRIBE_TIMEOUT", DefaultTranscribeTimeout),
		ComplexKeywords:    envList("COMPLEX_KEYWORDS", []string{"refactor", "analyze", "optimize", "test suite", "full test", "entire"}),
		SimpleKeywords:     envList("SIMPLE_KEYWORDS", []string{"fix", "add", "change", "update", "create"}),
		AgentBinary:        envString("AGENT_BIN", DefaultAgentBinary),
		STTProvider:        envString("STT_PROVIDER", DefaultSTTProvider),
		GeminiAPIKey:       os.Getenv("GEMINI_API_KEY"),
		AuditLogPath:       envString("AUDIT_LOG_PATH", "voxx_audit.log"),
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return fallback
}
