package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/taskpilot-dev/taskpilot/domain"
)

// RunRequest is the request body for an agent run.
type RunRequest struct {
	Prompt string `json:"prompt"`
}

// principal builds the acting identity from request headers. Real
// authentication sits in front of this service; absent headers degrade to
// an anonymous guest.
func principal(c echo.Context) domain.Principal {
	p := domain.Principal{
		ID:   c.Request().Header.Get("X-User-ID"),
		Role: c.Request().Header.Get("X-User-Role"),
	}
	if p.ID == "" {
		p.ID = "anonymous"
	}
	if p.Role == "" {
		p.Role = "guest"
	}
	return p
}

// RunAgent executes one prompt through the agent engine.
// POST /v1/agent/run
func (h *Handler) RunAgent(c echo.Context) error {
	ctx := c.Request().Context()

	var req RunRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.Prompt == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "prompt is required"})
	}

	outcome := h.engine.Run(ctx, principal(c), req.Prompt)

	status := http.StatusOK
	if outcome.Failed() {
		status = http.StatusInternalServerError
		if outcome.Status != 0 {
			status = outcome.Status
		}
	}
	return c.JSON(status, outcome)
}

// GetRun returns one run with its persisted plan.
// GET /v1/runs/:run_id
func (h *Handler) GetRun(c echo.Context) error {
	ctx := c.Request().Context()
	runID := c.Param("run_id")

	run, err := h.store.GetRun(ctx, runID)
	if err != nil {
		h.logger.Error("failed to get run", "run_id", runID, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to get run"})
	}
	if run == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "run not found"})
	}

	steps, err := h.store.ListPlannerSteps(ctx, runID)
	if err != nil {
		h.logger.Error("failed to list planner steps", "run_id", runID, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to list planner steps"})
	}

	return c.JSON(http.StatusOK, map[string]any{
		"run":   run,
		"steps": steps,
	})
}

// GetRunActions returns the audit trail of a run in execution order.
// GET /v1/runs/:run_id/actions
func (h *Handler) GetRunActions(c echo.Context) error {
	ctx := c.Request().Context()
	runID := c.Param("run_id")

	run, err := h.store.GetRun(ctx, runID)
	if err != nil {
		h.logger.Error("failed to get run", "run_id", runID, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to get run"})
	}
	if run == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "run not found"})
	}

	actions, err := h.store.ListActions(ctx, runID)
	if err != nil {
		h.logger.Error("failed to list actions", "run_id", runID, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to list actions"})
	}

	return c.JSON(http.StatusOK, map[string]any{
		"run_id":  runID,
		"actions": actions,
	})
}
