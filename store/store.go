// Package store provides persistence for runs, actions, planner steps and tasks.
package store

import (
	"context"
	"time"

	"github.com/taskpilot-dev/taskpilot/domain"
)

// Store is the persistence contract consumed by the agent engine.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, run *domain.Run) error
	GetRun(ctx context.Context, runID string) (*domain.Run, error)
	FinalizeRun(ctx context.Context, runID string, output string, estimatedTokens int, budgetExceeded bool) error
	CountRunsSince(ctx context.Context, userID string, cutoff time.Time) (int, error)
	DeleteRunsBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// Actions (append-only audit log)
	AppendAction(ctx context.Context, action *domain.Action) error
	ListActions(ctx context.Context, runID string) ([]domain.Action, error)

	// Planner steps
	CreatePlannerSteps(ctx context.Context, steps []domain.PlannerStep) error
	UpdatePlannerStepStatus(ctx context.Context, stepID string, status domain.StepStatus) error
	ListPlannerSteps(ctx context.Context, runID string) ([]domain.PlannerStep, error)

	// Tasks
	CreateTask(ctx context.Context, task *domain.Task) error
	ListTasks(ctx context.Context, userID string) ([]domain.TaskSummary, error)

	Close() error
}
