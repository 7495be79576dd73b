package agent

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/taskpilot-dev/taskpilot/domain"
	"github.com/taskpilot-dev/taskpilot/llm"
)

const classifierPrompt = `You are an intent classifier.

Classify the user input into ONE intent:

- CREATE_TASK -> user explicitly asks to create/add a task
- LIST_TASKS -> user asks to list/show tasks
- ASK_DOC -> user asks about resume, documents, skills, qualification
- ANSWER -> everything else

Rules:
- Do NOT guess.
- Do NOT hallucinate.
- CREATE_TASK only if explicit.

If intent is CREATE_TASK, extract:
{
  "intent": "CREATE_TASK",
  "task": {
    "title": "...",
    "description": "..."
  }
}

Return ONLY valid JSON.`

// Classifier maps free text to one of the closed intents with a single
// LLM call.
type Classifier struct {
	client llm.ChatClient
	model  string
	logger *slog.Logger
}

// NewClassifier creates an intent classifier.
func NewClassifier(client llm.ChatClient, model string, logger *slog.Logger) *Classifier {
	return &Classifier{client: client, model: model, logger: logger}
}

// Classify never fails: any LLM error, parse failure, or out-of-enum
// intent collapses to ANSWER. Downstream authorization and fallback logic
// depend on a valid intent always existing.
func (c *Classifier) Classify(ctx context.Context, userInput string) domain.Classification {
	fallback := domain.Classification{Intent: domain.IntentAnswer}

	temperature := 0.0
	resp, err := c.client.CreateChatCompletion(ctx, &llm.ChatCompletionRequest{
		Model:       c.model,
		Temperature: &temperature,
		Messages: []llm.ChatMessage{
			{Role: "system", Content: classifierPrompt},
			{Role: "user", Content: userInput},
		},
	})
	if err != nil {
		c.logger.Warn("intent classification failed, defaulting to ANSWER", "error", err)
		return fallback
	}

	content := resp.Text()
	if content == "" {
		return fallback
	}

	var parsed struct {
		Intent string `json:"intent"`
		Task   *struct {
			Title       string `json:"title"`
			Description string `json:"description"`
		} `json:"task"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		c.logger.Warn("intent classifier returned non-JSON, defaulting to ANSWER", "content", truncate(content, 120))
		return fallback
	}

	intent := domain.Intent(strings.TrimSpace(parsed.Intent))
	if !domain.ValidIntents[intent] {
		return fallback
	}

	result := domain.Classification{Intent: intent}
	if intent == domain.IntentCreateTask && parsed.Task != nil {
		result.Task = &domain.TaskDraft{
			Title:       parsed.Task.Title,
			Description: parsed.Task.Description,
		}
	}
	return result
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
