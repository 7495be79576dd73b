package api_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskpilot-dev/taskpilot/agent"
	"github.com/taskpilot-dev/taskpilot/api"
	"github.com/taskpilot-dev/taskpilot/config"
	"github.com/taskpilot-dev/taskpilot/domain"
	"github.com/taskpilot-dev/taskpilot/llm"
	"github.com/taskpilot-dev/taskpilot/policy"
	"github.com/taskpilot-dev/taskpilot/retrieval"
	"github.com/taskpilot-dev/taskpilot/store"
	"github.com/taskpilot-dev/taskpilot/tests/helpers"
)

func newTestHandler(t *testing.T, cfg *config.Config) (*api.Handler, *store.SQLiteStore) {
	t.Helper()

	db := helpers.NewTestSQLiteStore(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := llm.NewMockClient()

	policyEngine, err := policy.NewEngine(context.Background(), policy.DefaultPolicy)
	require.NoError(t, err)

	generator := agent.NewAnswerGenerator(client, cfg.LLMModel)
	registry := agent.NewToolset(db, retrieval.NewMemoryRetriever(), generator)
	classifier := agent.NewClassifier(client, cfg.LLMModel, logger)
	planner := agent.NewPlanner(client, cfg.LLMModel, logger)
	engine := agent.NewEngine(cfg, db, registry, policyEngine, classifier, planner, generator, logger)

	return api.NewHandler(db, engine, cfg, logger), db
}

func testConfig() *config.Config {
	return &config.Config{
		AgentEnabled:     true,
		LLMModel:         "test-model",
		MaxTokensPerRun:  2000,
		MaxPromptChars:   3000,
		ToolTimeout:      time.Second,
		RateLimitMaxRuns: 20,
		RateLimitWindow:  10 * time.Minute,
	}
}

func doRun(t *testing.T, h *api.Handler, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/agent/run", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	require.NoError(t, h.RunAgent(c))
	return rec
}

func TestRunAgentSuccess(t *testing.T) {
	h, db := newTestHandler(t, testConfig())

	rec := doRun(t, h, `{"prompt": "what is the capital of France?"}`,
		map[string]string{"X-User-ID": "u1", "X-User-Role": "member"})

	assert.Equal(t, http.StatusOK, rec.Code)

	var outcome domain.RunOutcome
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &outcome))
	assert.Empty(t, outcome.Error)
	assert.NotEmpty(t, outcome.Result)
	assert.Greater(t, outcome.EstimatedTokens, 0)

	runID, err := db.LatestRunID(context.Background(), "u1")
	require.NoError(t, err)
	assert.NotEmpty(t, runID, "the run must be persisted")
}

func TestRunAgentMissingPrompt(t *testing.T) {
	h, _ := newTestHandler(t, testConfig())

	rec := doRun(t, h, `{}`, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRunAgentRateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimitMaxRuns = 0
	h, _ := newTestHandler(t, cfg)

	rec := doRun(t, h, `{"prompt": "hello"}`, map[string]string{"X-User-ID": "u1"})

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestRunAgentKillSwitch(t *testing.T) {
	cfg := testConfig()
	cfg.AgentEnabled = false
	h, _ := newTestHandler(t, cfg)

	rec := doRun(t, h, `{"prompt": "hello"}`, nil)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var outcome domain.RunOutcome
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &outcome))
	assert.Equal(t, "Agent disabled by ops", outcome.Error)
}

func TestRunAgentAnonymousDefaults(t *testing.T) {
	h, db := newTestHandler(t, testConfig())

	rec := doRun(t, h, `{"prompt": "hi there"}`, nil)

	assert.Equal(t, http.StatusOK, rec.Code)

	runID, err := db.LatestRunID(context.Background(), "anonymous")
	require.NoError(t, err)
	assert.NotEmpty(t, runID, "headerless requests run as anonymous")
}

func TestGetRun(t *testing.T) {
	h, db := newTestHandler(t, testConfig())
	ctx := context.Background()

	require.NoError(t, db.CreateRun(ctx, &domain.Run{
		RunID: "run_1", UserID: "u1", Input: "hello", CreatedAt: time.Now(),
	}))
	require.NoError(t, db.CreatePlannerSteps(ctx, []domain.PlannerStep{
		{StepID: "s1", RunID: "run_1", StepIndex: 0, ToolName: "generate_answer",
			Args: json.RawMessage(`{}`), Status: domain.StepStatusExecuted},
	}))

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/runs/run_1", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/v1/runs/:run_id")
	c.SetParamNames("run_id")
	c.SetParamValues("run_1")

	require.NoError(t, h.GetRun(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Run   *domain.Run          `json:"run"`
		Steps []domain.PlannerStep `json:"steps"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Run)
	assert.Equal(t, "run_1", resp.Run.RunID)
	require.Len(t, resp.Steps, 1)
	assert.Equal(t, domain.StepStatusExecuted, resp.Steps[0].Status)
}

func TestGetRunNotFound(t *testing.T) {
	h, _ := newTestHandler(t, testConfig())

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/runs/nope", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/v1/runs/:run_id")
	c.SetParamNames("run_id")
	c.SetParamValues("nope")

	require.NoError(t, h.GetRun(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetRunActions(t *testing.T) {
	h, db := newTestHandler(t, testConfig())
	ctx := context.Background()

	require.NoError(t, db.CreateRun(ctx, &domain.Run{
		RunID: "run_1", UserID: "u1", Input: "hello", CreatedAt: time.Now(),
	}))
	for _, name := range []string{"intent_classifier", "planner"} {
		require.NoError(t, db.AppendAction(ctx, &domain.Action{
			ActionID: "act_" + name, RunID: "run_1", ToolName: name,
			Status: domain.ActionStatusSuccess, CreatedAt: time.Now(),
		}))
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/runs/run_1/actions", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/v1/runs/:run_id/actions")
	c.SetParamNames("run_id")
	c.SetParamValues("run_1")

	require.NoError(t, h.GetRunActions(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		RunID   string          `json:"run_id"`
		Actions []domain.Action `json:"actions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Actions, 2)
	assert.Equal(t, "intent_classifier", resp.Actions[0].ToolName)
}

func TestHealth(t *testing.T) {
	h, _ := newTestHandler(t, testConfig())

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, h.Health(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}
