// Package api provides the HTTP surface over the agent engine.
package api

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/taskpilot-dev/taskpilot/agent"
	"github.com/taskpilot-dev/taskpilot/config"
	"github.com/taskpilot-dev/taskpilot/store"
)

// Handler handles HTTP requests.
type Handler struct {
	store  store.Store
	engine *agent.Engine
	config *config.Config
	logger *slog.Logger
}

// NewHandler creates a new handler.
func NewHandler(s store.Store, engine *agent.Engine, cfg *config.Config, logger *slog.Logger) *Handler {
	return &Handler{
		store:  s,
		engine: engine,
		config: cfg,
		logger: logger,
	}
}

// RegisterRoutes registers routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.POST("/v1/agent/run", h.RunAgent)

	e.GET("/v1/runs/:run_id", h.GetRun)
	e.GET("/v1/runs/:run_id/actions", h.GetRunActions)

	e.GET("/health", h.Health)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": "0.1.0",
	})
}
