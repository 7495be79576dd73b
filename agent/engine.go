package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/taskpilot-dev/taskpilot/config"
	"github.com/taskpilot-dev/taskpilot/domain"
	"github.com/taskpilot-dev/taskpilot/policy"
	"github.com/taskpilot-dev/taskpilot/retrieval"
	"github.com/taskpilot-dev/taskpilot/store"
)

// avgTokensPerChar is the character-based token estimate applied to every
// cost-bearing string.
const avgTokensPerChar = 0.25

// estimateTokens estimates the token cost of a string.
func estimateTokens(text string) int {
	if text == "" {
		return 0
	}
	return int(float64(len(text)) * avgTokensPerChar)
}

// Engine is the run-time authority. It owns the state machine
// CREATED -> CLASSIFIED -> PLANNED -> EXECUTING -> FINALIZED and guarantees
// that every input produces a RunOutcome: no unhandled error, no unbounded
// loop, no runaway spend.
type Engine struct {
	cfg        *config.Config
	store      store.Store
	registry   *Registry
	policy     *policy.Engine
	classifier *Classifier
	planner    *Planner
	generator  *AnswerGenerator
	limiter    *RunLimiter
	logger     *slog.Logger
}

// NewEngine wires the execution core together.
func NewEngine(cfg *config.Config, s store.Store, registry *Registry, policyEngine *policy.Engine,
	classifier *Classifier, planner *Planner, generator *AnswerGenerator, logger *slog.Logger) *Engine {
	return &Engine{
		cfg:        cfg,
		store:      s,
		registry:   registry,
		policy:     policyEngine,
		classifier: classifier,
		planner:    planner,
		generator:  generator,
		limiter:    NewRunLimiter(s, cfg.RateLimitMaxRuns, cfg.RateLimitWindow),
		logger:     logger,
	}
}

// Run processes one prompt end to end and always returns an outcome.
func (e *Engine) Run(ctx context.Context, principal domain.Principal, prompt string) *domain.RunOutcome {
	// Ops kill switch: reject before any state exists.
	if !e.cfg.AgentEnabled {
		return &domain.RunOutcome{Error: msgAgentDisabled}
	}

	// Hard input limit: reject before any state exists.
	if len(prompt) > e.cfg.MaxPromptChars {
		return &domain.RunOutcome{Error: ErrInputTooLong.Error(), Status: http.StatusBadRequest, BudgetExceeded: true}
	}

	// Rate limit: a rejected attempt must leave no run row behind.
	if err := e.limiter.Enforce(ctx, principal.ID); err != nil {
		if errors.Is(err, ErrRateLimited) {
			return &domain.RunOutcome{Error: err.Error(), Status: http.StatusTooManyRequests}
		}
		e.logger.Error("rate limit check failed", "user_id", principal.ID, "error", err)
		return &domain.RunOutcome{Error: "rate limit check failed"}
	}

	run := &domain.Run{
		RunID:     "run_" + uuid.New().String()[:8],
		UserID:    principal.ID,
		Input:     prompt,
		CreatedAt: time.Now(),
	}
	if err := e.store.CreateRun(ctx, run); err != nil {
		e.logger.Error("failed to create run", "error", err)
		return &domain.RunOutcome{Error: "failed to create run"}
	}
	e.logger.Info("run started", "run_id", run.RunID, "user_id", principal.ID)

	tokens := estimateTokens(prompt)
	if tokens > e.cfg.MaxTokensPerRun {
		return e.abortBudget(ctx, run, tokens)
	}

	// Intent classification, logged as a pseudo-step. The extracted task
	// draft is advisory; the normalizer owns create_task arguments.
	classification := e.classifier.Classify(ctx, prompt)
	e.recordAction(ctx, run.RunID, "intent_classifier", prompt, jsonString(classification), domain.ActionStatusSuccess)

	// Fast rejection for the sensitive intent before planning cost is spent.
	if classification.Intent == domain.IntentCreateTask {
		if outcome := e.authorize(ctx, run, principal, ToolCreateTask, tokens); outcome != nil {
			return outcome
		}
	}

	// Planning. GeneratePlan is total; only validation can fail from here.
	plan := e.planner.GeneratePlan(ctx, prompt)
	if err := ValidatePlan(plan, e.registry); err != nil {
		output := "ERROR: Planning failed: " + err.Error()
		e.finalize(ctx, run, output, tokens, false)
		return &domain.RunOutcome{Error: output, EstimatedTokens: tokens}
	}

	planJSON := jsonString(plan)
	e.recordAction(ctx, run.RunID, "planner", prompt, planJSON, domain.ActionStatusSuccess)
	tokens += estimateTokens(planJSON)
	if tokens > e.cfg.MaxTokensPerRun {
		return e.abortBudget(ctx, run, tokens)
	}

	// Persist planned intent before executing anything, so the plan
	// survives a mid-plan failure or timeout.
	steps := make([]domain.PlannerStep, len(plan))
	for i, planStep := range plan {
		steps[i] = domain.PlannerStep{
			StepID:    "step_" + uuid.New().String()[:8],
			RunID:     run.RunID,
			StepIndex: i,
			ToolName:  planStep.Tool,
			Args:      json.RawMessage(jsonString(planStep.Args)),
			Status:    domain.StepStatusPending,
		}
	}
	if err := e.store.CreatePlannerSteps(ctx, steps); err != nil {
		e.logger.Error("failed to persist planner steps", "run_id", run.RunID, "error", err)
		output := "ERROR: Planning failed: could not persist plan"
		e.finalize(ctx, run, output, tokens, false)
		return &domain.RunOutcome{Error: output, EstimatedTokens: tokens}
	}

	// Execution loop.
	var result any
	var docContext *string

	for i := range steps {
		step := &steps[i]
		toolName := step.ToolName

		// Defense in depth: the per-step check catches routes to a
		// sensitive tool the intent pre-check did not anticipate.
		if outcome := e.authorize(ctx, run, principal, toolName, tokens); outcome != nil {
			e.markStep(ctx, step, domain.StepStatusError)
			return outcome
		}

		tool, ok := e.registry.Lookup(toolName)
		if !ok {
			result = fmt.Sprintf("ERROR: Tool '%s' not registered", toolName)
			e.markStep(ctx, step, domain.StepStatusError)
			e.recordAction(ctx, run.RunID, toolName, string(step.Args), result.(string), domain.ActionStatusError)
			break
		}

		args := e.injectArgs(toolName, step, principal, prompt, docContext)
		argsJSON := jsonString(args)

		value, err := callWithTimeout(ctx, e.cfg.ToolTimeout, func(callCtx context.Context) (any, error) {
			return tool.Run(callCtx, args)
		})

		if errors.Is(err, ErrToolTimeout) {
			result = fmt.Sprintf("ERROR: Tool '%s' timed out", toolName)
			e.markStep(ctx, step, domain.StepStatusError)
			e.recordAction(ctx, run.RunID, toolName, argsJSON, result.(string), domain.ActionStatusError)
			break
		}

		// Absence of a document store is a policy signal, not a failure.
		if toolName == ToolRetrieveContext && errors.Is(err, retrieval.ErrNoDocuments) {
			e.markStep(ctx, step, domain.StepStatusExecuted)
			e.recordAction(ctx, run.RunID, toolName, argsJSON, msgNoDocument, domain.ActionStatusSuccess)
			e.finalize(ctx, run, msgNoDocument, tokens, false)
			return &domain.RunOutcome{Result: msgNoDocument, RAGUsed: true, EstimatedTokens: tokens}
		}

		if err != nil {
			result = fmt.Sprintf("ERROR: Tool '%s' failed: %v", toolName, err)
			e.markStep(ctx, step, domain.StepStatusError)
			e.recordAction(ctx, run.RunID, toolName, argsJSON, result.(string), domain.ActionStatusError)
			break
		}

		e.markStep(ctx, step, domain.StepStatusExecuted)
		result = value

		switch toolName {
		case ToolCreateTask:
			// Task creation is terminal: it must not be followed by
			// answer generation.
			e.recordAction(ctx, run.RunID, toolName, argsJSON, jsonString(value), domain.ActionStatusSuccess)
			e.finalize(ctx, run, jsonString(value), tokens, false)
			return &domain.RunOutcome{Result: value, EstimatedTokens: tokens}

		case ToolRetrieveContext:
			// Empty-but-present context continues the loop: the answer
			// must then say the document lacks the information.
			text, _ := value.(string)
			docContext = &text
			e.recordAction(ctx, run.RunID, toolName, argsJSON, text, domain.ActionStatusSuccess)

		case ToolGenerateAnswer:
			answer, _ := value.(string)
			tokens += estimateTokens(answer)
			e.recordAction(ctx, run.RunID, toolName, argsJSON, answer, domain.ActionStatusSuccess)
			// The call already completed, so its cost is recorded even
			// when it crosses the ceiling.
			if tokens > e.cfg.MaxTokensPerRun {
				return e.abortBudget(ctx, run, tokens)
			}

		default:
			e.recordAction(ctx, run.RunID, toolName, argsJSON, jsonString(value), domain.ActionStatusSuccess)
		}
	}

	// Guaranteed fallback: no path may end without a result. Document
	// questions never fall back to open-domain generation.
	if result == nil {
		if classification.Intent == domain.IntentAskDoc && ContainsDocKeyword(prompt) {
			e.finalize(ctx, run, msgNoRelevantDoc, tokens, false)
			return &domain.RunOutcome{Result: msgNoRelevantDoc, RAGUsed: true, EstimatedTokens: tokens}
		}

		answer, err := e.generator.Generate(ctx, prompt, nil)
		if err != nil {
			result = fmt.Sprintf("ERROR: Tool '%s' failed: %v", ToolGenerateAnswer, err)
			e.recordAction(ctx, run.RunID, "fallback_answer", prompt, result.(string), domain.ActionStatusError)
		} else {
			result = answer
			tokens += estimateTokens(answer)
			e.recordAction(ctx, run.RunID, "fallback_answer", prompt, answer, domain.ActionStatusSuccess)
			if tokens > e.cfg.MaxTokensPerRun {
				return e.abortBudget(ctx, run, tokens)
			}
		}
	}

	output := stringify(result)
	e.finalize(ctx, run, output, tokens, false)

	if s, ok := result.(string); ok && strings.HasPrefix(s, "ERROR") {
		return &domain.RunOutcome{Error: s, EstimatedTokens: tokens}
	}
	return &domain.RunOutcome{Result: result, EstimatedTokens: tokens}
}

// authorize checks the policy gate for one tool. A denial finalizes the run
// and returns the forbidden outcome; nil means allowed.
func (e *Engine) authorize(ctx context.Context, run *domain.Run, principal domain.Principal, toolName string, tokens int) *domain.RunOutcome {
	allowed, err := e.policy.Allowed(ctx, principal.ID, principal.Role, toolName)
	if err != nil {
		e.logger.Error("policy evaluation failed", "run_id", run.RunID, "tool", toolName, "error", err)
		output := "ERROR: authorization check failed"
		e.finalize(ctx, run, output, tokens, false)
		return &domain.RunOutcome{Error: output, EstimatedTokens: tokens}
	}
	if !allowed {
		output := fmt.Sprintf("Tool '%s' is not permitted for this user", toolName)
		e.finalize(ctx, run, output, tokens, false)
		return &domain.RunOutcome{Error: output, Status: http.StatusForbidden, EstimatedTokens: tokens}
	}
	return nil
}

// injectArgs builds the arguments a tool actually receives. Security and
// context-bearing fields always come from the engine, never from the
// planner, so a hostile plan cannot redirect retrieval or answer
// generation.
func (e *Engine) injectArgs(toolName string, step *domain.PlannerStep, principal domain.Principal, prompt string, docContext *string) map[string]any {
	switch toolName {
	case ToolRetrieveContext:
		return map[string]any{"query": prompt, "user_id": principal.ID}

	case ToolGenerateAnswer:
		args := map[string]any{"question": prompt}
		if docContext != nil {
			args["context"] = *docContext
		}
		return args

	case ToolGetTasks:
		return map[string]any{"user_id": principal.ID}

	case ToolCreateTask:
		// Title and description come from the normalized plan, not from
		// raw planner output.
		planned := decodeArgs(step.Args)
		args := map[string]any{"user_id": principal.ID, "title": planned["title"]}
		if description, ok := planned["description"]; ok {
			args["description"] = description
		}
		return args

	default:
		return decodeArgs(step.Args)
	}
}

func (e *Engine) abortBudget(ctx context.Context, run *domain.Run, tokens int) *domain.RunOutcome {
	e.logger.Warn("run aborted: token budget exceeded", "run_id", run.RunID, "tokens", tokens)
	e.finalize(ctx, run, ErrBudgetExceeded.Error(), tokens, true)
	return &domain.RunOutcome{Error: ErrBudgetExceeded.Error(), BudgetExceeded: true, EstimatedTokens: tokens}
}

// finalize writes the run's output exactly once; every exit path funnels
// through here after the run row exists.
func (e *Engine) finalize(ctx context.Context, run *domain.Run, output string, tokens int, budgetExceeded bool) {
	if err := e.store.FinalizeRun(ctx, run.RunID, output, tokens, budgetExceeded); err != nil {
		e.logger.Error("failed to finalize run", "run_id", run.RunID, "error", err)
	}
}

func (e *Engine) recordAction(ctx context.Context, runID, toolName, input, output string, status domain.ActionStatus) {
	action := &domain.Action{
		ActionID:  "act_" + uuid.New().String()[:8],
		RunID:     runID,
		ToolName:  toolName,
		Input:     input,
		Output:    output,
		Status:    status,
		CreatedAt: time.Now(),
	}
	if err := e.store.AppendAction(ctx, action); err != nil {
		e.logger.Error("failed to record action", "run_id", runID, "tool", toolName, "error", err)
	}
}

func (e *Engine) markStep(ctx context.Context, step *domain.PlannerStep, status domain.StepStatus) {
	step.Status = status
	if err := e.store.UpdatePlannerStepStatus(ctx, step.StepID, status); err != nil {
		e.logger.Error("failed to update planner step", "step_id", step.StepID, "error", err)
	}
}

func decodeArgs(raw json.RawMessage) map[string]any {
	args := map[string]any{}
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &args)
	}
	return args
}

func jsonString(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return jsonString(v)
}
