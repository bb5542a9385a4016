package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/jeffaf/voxx/adapters/agent"
	"github.com/jeffaf/voxx/adapters/audit"
	"github.com/jeffaf/voxx/adapters/stt"
	"github.com/jeffaf/voxx/domain/repositories"
	"github.com/jeffaf/voxx/internal/api"
	"github.com/jeffaf/voxx/internal/audio"
	"github.com/jeffaf/voxx/internal/config"
	"github.com/jeffaf/voxx/internal/ratelimit"
	"github.com/jeffaf/voxx/internal/websocket"
	"github.com/jeffaf/voxx/usecase"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg := config.Load()

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Initialize adapters
	transcriber := buildTranscriber(cfg, logger)
	runner := buildRunner(cfg, logger)

	auditSink, err := audit.NewFileSink(cfg.AuditLogPath)
	if err != nil {
		logger.Fatal("Failed to open audit log", zap.Error(err))
	}
	defer auditSink.Close()

	// Initialize usecase services
	validator := audio.NewValidator(cfg.MaxAudioSize, logger)
	classifier := usecase.NewClassifier(cfg.ComplexKeywords, cfg.SimpleKeywords)
	orchestrator := usecase.NewExecutionOrchestrator(runner, cfg.ExecTimeout, cfg.ComplexExecTimeout, logger)
	commandService := usecase.NewCommandService(validator, transcriber, classifier, orchestrator, cfg.TranscribeTimeout, logger)

	// Initialize session hub with admission control
	limiter := ratelimit.NewLimiter(cfg.RatePerWindow, cfg.RateWindow)
	// Read limit sits above the validator ceiling so an oversized frame is
	// rejected with a proper error event instead of a dropped connection.
	hub := websocket.NewHub(commandService, limiter, auditSink, cfg.MaxAudioSize*2, logger)
	go hub.Run()

	// Initialize API routes
	api.InitRoutes(e, hub, logger)

	logger.Info("Starting voxx-server",
		zap.String("port", cfg.Port),
		zap.String("sttProvider", cfg.STTProvider),
		zap.String("agentBinary", cfg.AgentBinary),
		zap.Int("defaultAgentCount", cfg.DefaultAgentCount),
		zap.Int64("maxAudioBytes", cfg.MaxAudioSize),
		zap.Int("ratePerMinute", cfg.RatePerWindow))

	// Graceful shutdown
	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("shutting down the server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

// buildTranscriber selects the speech-to-text adapter from config.
func buildTranscriber(cfg config.Config, logger *zap.Logger) repositories.Transcriber {
	ctx := context.Background()

	switch cfg.STTProvider {
	case "google":
		transcriber, err := stt.NewGoogleTranscriber(ctx, logger)
		if err != nil {
			logger.Fatal("Failed to create Google transcriber", zap.Error(err))
		}
		return transcriber
	case "gemini":
		transcriber, err := stt.NewGeminiTranscriber(ctx, cfg.GeminiAPIKey, logger)
		if err != nil {
			logger.Fatal("Failed to create Gemini transcriber", zap.Error(err))
		}
		return transcriber
	default:
		logger.Warn("Using mock transcriber; set STT_PROVIDER=google or gemini for real speech-to-text")
		return stt.NewMockTranscriber(logger)
	}
}

// buildRunner selects the agent adapter from config.
func buildRunner(cfg config.Config, logger *zap.Logger) repositories.AgentRunner {
	if cfg.AgentBinary == "mock" {
		logger.Warn("Using mock agent runner")
		return agent.NewMockRunner(logger)
	}
	return agent.NewCLIRunner(cfg.AgentBinary, logger)
}
