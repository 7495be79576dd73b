package agent

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/taskpilot-dev/taskpilot/domain"
	"github.com/taskpilot-dev/taskpilot/llm"
)

const plannerPrompt = `You are a STRICT planning engine.

Your ONLY job is to decide WHICH tool(s) to call.

Rules:
- Output ONLY valid JSON
- Output a LIST
- Each step MUST be: { "tool": "<tool_name>", "args": {} }
- DO NOT explain
- DO NOT invent tools
- DO NOT add runtime arguments

Allowed tools:
- generate_answer
- retrieve_context
- get_tasks
- create_task`

// Planner proposes a tool-call sequence with a single LLM call. Its raw
// output is never executed directly: everything passes through
// NormalizePlan, so even a planner outage yields a correct, keyword-aware
// plan.
type Planner struct {
	client llm.ChatClient
	model  string
	logger *slog.Logger
}

// NewPlanner creates a planner.
func NewPlanner(client llm.ChatClient, model string, logger *slog.Logger) *Planner {
	return &Planner{client: client, model: model, logger: logger}
}

// GeneratePlan returns a normalized plan for the input. It cannot fail;
// the result still has to pass ValidatePlan before execution.
func (p *Planner) GeneratePlan(ctx context.Context, userInput string) domain.Plan {
	raw := p.planWithLLM(ctx, userInput)
	return NormalizePlan(raw, userInput)
}

// planWithLLM returns the planner's raw steps, or nil on any failure.
func (p *Planner) planWithLLM(ctx context.Context, userInput string) domain.Plan {
	temperature := 0.0
	resp, err := p.client.CreateChatCompletion(ctx, &llm.ChatCompletionRequest{
		Model:       p.model,
		Temperature: &temperature,
		Messages: []llm.ChatMessage{
			{Role: "system", Content: plannerPrompt},
			{Role: "user", Content: userInput},
		},
	})
	if err != nil {
		p.logger.Warn("planner LLM call failed, normalizing an empty plan", "error", err)
		return nil
	}

	var raw domain.Plan
	if err := json.Unmarshal([]byte(resp.Text()), &raw); err != nil {
		p.logger.Warn("planner returned non-JSON, normalizing an empty plan", "content", truncate(resp.Text(), 120))
		return nil
	}
	return raw
}
