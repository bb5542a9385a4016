package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/jeffaf/voxx/internal/websocket"
)

const (
	ServiceName    = "voxx-server"
	ServiceVersion = "1.0.0"
)

// InitRoutes initializes all API routes.
func InitRoutes(e *echo.Echo, hub *websocket.Hub, logger *zap.Logger) {
	// Health check
	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, HealthResponse{
			Status:    "online",
			Service:   ServiceName,
			Version:   ServiceVersion,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
	})

	// Voice command session endpoint
	e.GET("/ws/voice", hub.HandleSession)
}
