package domain

import (
	"encoding/json"
	"time"
)

// Principal identifies who is invoking the agent.
type Principal struct {
	ID   string `json:"id"`
	Role string `json:"role"`
}

// Run is one end-to-end processing of a single user prompt.
type Run struct {
	RunID           string    `json:"run_id"`
	UserID          string    `json:"user_id"`
	Input           string    `json:"input"`
	Output          *string   `json:"output,omitempty"`
	EstimatedTokens int       `json:"estimated_tokens_used"`
	BudgetExceeded  bool      `json:"budget_exceeded"`
	CreatedAt       time.Time `json:"created_at"`
}

// Action is one audit record of an executed step, including the
// intent-classification and fallback pseudo-steps. Append-only;
// insertion order is significant for replay.
type Action struct {
	ActionID  string       `json:"action_id"`
	RunID     string       `json:"run_id"`
	ToolName  string       `json:"tool_name"`
	Input     string       `json:"tool_input"`
	Output    string       `json:"tool_output"`
	Status    ActionStatus `json:"status"`
	CreatedAt time.Time    `json:"created_at"`
}

// PlannerStep is one planned tool call, persisted in plan order before
// execution begins so the planned intent survives a mid-plan failure.
type PlannerStep struct {
	StepID    string          `json:"step_id"`
	RunID     string          `json:"run_id"`
	StepIndex int             `json:"step_index"`
	ToolName  string          `json:"tool_name"`
	Args      json.RawMessage `json:"tool_args"`
	Status    StepStatus      `json:"status"`
}

// Task is a user task managed by the task tools.
type Task struct {
	TaskID      string     `json:"id"`
	UserID      string     `json:"-"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      TaskStatus `json:"status"`
	CreatedAt   time.Time  `json:"-"`
}

// TaskSummary is the shape returned by the get_tasks tool.
type TaskSummary struct {
	ID     string     `json:"id"`
	Title  string     `json:"title"`
	Status TaskStatus `json:"status"`
}

// TaskDetail is the shape returned by the create_task tool.
type TaskDetail struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      TaskStatus `json:"status"`
}
