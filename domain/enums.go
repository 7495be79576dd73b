// Package domain defines the core domain models for the agent runtime.
package domain

// Intent is the coarse classification of a user prompt.
type Intent string

const (
	IntentCreateTask Intent = "CREATE_TASK"
	IntentListTasks  Intent = "LIST_TASKS"
	IntentAskDoc     Intent = "ASK_DOC"
	IntentAnswer     Intent = "ANSWER"
)

// ValidIntents is the closed set the classifier may return.
var ValidIntents = map[Intent]bool{
	IntentCreateTask: true,
	IntentListTasks:  true,
	IntentAskDoc:     true,
	IntentAnswer:     true,
}

// ActionStatus records how an executed step ended.
type ActionStatus string

const (
	ActionStatusSuccess ActionStatus = "success"
	ActionStatusError   ActionStatus = "error"
)

// StepStatus is the lifecycle of a persisted planner step.
// It moves pending -> executed | error and never regresses.
type StepStatus string

const (
	StepStatusPending  StepStatus = "pending"
	StepStatusExecuted StepStatus = "executed"
	StepStatusError    StepStatus = "error"
)

// TaskStatus is the state of a stored task.
type TaskStatus string

const (
	TaskStatusPending TaskStatus = "pending"
	TaskStatusDone    TaskStatus = "done"
)
