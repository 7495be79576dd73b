package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/taskpilot-dev/taskpilot/domain"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the database, applies migrations, and returns the store.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	// Keep a single connection to avoid schema/data disappearing across goroutines.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

// migrate runs database migrations.
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS agent_runs (
			run_id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			input TEXT NOT NULL,
			output TEXT,
			estimated_tokens_used INTEGER NOT NULL DEFAULT 0,
			budget_exceeded INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_user_created ON agent_runs(user_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS agent_actions (
			action_id TEXT PRIMARY KEY,
			run_id TEXT NOT NULL,
			seq INTEGER,
			tool_name TEXT NOT NULL,
			tool_input TEXT,
			tool_output TEXT,
			status TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (run_id) REFERENCES agent_runs(run_id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_actions_run ON agent_actions(run_id, seq)`,
		`CREATE TABLE IF NOT EXISTS planner_steps (
			step_id TEXT PRIMARY KEY,
			run_id TEXT NOT NULL,
			step_index INTEGER NOT NULL,
			tool_name TEXT NOT NULL,
			tool_args TEXT NOT NULL,
			status TEXT NOT NULL,
			FOREIGN KEY (run_id) REFERENCES agent_runs(run_id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_steps_run ON planner_steps(run_id, step_index)`,
		`CREATE TABLE IF NOT EXISTS tasks (
			task_id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			title TEXT NOT NULL,
			description TEXT,
			status TEXT NOT NULL DEFAULT 'pending',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_user ON tasks(user_id, created_at)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateRun inserts a new run row with no output.
func (s *SQLiteStore) CreateRun(ctx context.Context, run *domain.Run) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO agent_runs (run_id, user_id, input, estimated_tokens_used, budget_exceeded, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		run.RunID, run.UserID, run.Input, run.EstimatedTokens, boolToInt(run.BudgetExceeded), run.CreatedAt)
	return err
}

// GetRun retrieves a run by ID. Returns nil when no row exists.
func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*domain.Run, error) {
	var run domain.Run
	var output sql.NullString
	var budget int
	err := s.db.QueryRowContext(ctx,
		`SELECT run_id, user_id, input, output, estimated_tokens_used, budget_exceeded, created_at
		 FROM agent_runs WHERE run_id = ?`, runID).
		Scan(&run.RunID, &run.UserID, &run.Input, &output, &run.EstimatedTokens, &budget, &run.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if output.Valid {
		run.Output = &output.String
	}
	run.BudgetExceeded = budget != 0
	return &run, nil
}

// FinalizeRun writes the run's final output, token count and budget flag.
// This is the single write point for output on every exit path.
func (s *SQLiteStore) FinalizeRun(ctx context.Context, runID, output string, estimatedTokens int, budgetExceeded bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE agent_runs SET output = ?, estimated_tokens_used = ?, budget_exceeded = ? WHERE run_id = ?`,
		output, estimatedTokens, boolToInt(budgetExceeded), runID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("run %s not found", runID)
	}
	return nil
}

// LatestRunID returns the most recently created run id for a user, or ""
// when the user has none.
func (s *SQLiteStore) LatestRunID(ctx context.Context, userID string) (string, error) {
	var runID string
	err := s.db.QueryRowContext(ctx,
		`SELECT run_id FROM agent_runs WHERE user_id = ? ORDER BY created_at DESC, rowid DESC LIMIT 1`,
		userID).Scan(&runID)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return runID, err
}

// CountRunsSince counts runs created by a user at or after cutoff.
func (s *SQLiteStore) CountRunsSince(ctx context.Context, userID string, cutoff time.Time) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM agent_runs WHERE user_id = ? AND created_at >= ?`,
		userID, cutoff).Scan(&count)
	return count, err
}

// DeleteRunsBefore removes runs older than cutoff. Actions and planner
// steps cascade.
func (s *SQLiteStore) DeleteRunsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM agent_runs WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// AppendAction inserts an audit action. The seq column preserves insertion
// order even when rows share a timestamp.
func (s *SQLiteStore) AppendAction(ctx context.Context, action *domain.Action) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO agent_actions (action_id, run_id, seq, tool_name, tool_input, tool_output, status, created_at)
		 VALUES (?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM agent_actions WHERE run_id = ?), ?, ?, ?, ?, ?)`,
		action.ActionID, action.RunID, action.RunID, action.ToolName, action.Input, action.Output, action.Status, action.CreatedAt)
	return err
}

// ListActions returns a run's actions in insertion order.
func (s *SQLiteStore) ListActions(ctx context.Context, runID string) ([]domain.Action, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT action_id, run_id, tool_name, tool_input, tool_output, status, created_at
		 FROM agent_actions WHERE run_id = ? ORDER BY seq ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var actions []domain.Action
	for rows.Next() {
		var a domain.Action
		var input, output sql.NullString
		if err := rows.Scan(&a.ActionID, &a.RunID, &a.ToolName, &input, &output, &a.Status, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.Input = input.String
		a.Output = output.String
		actions = append(actions, a)
	}
	return actions, rows.Err()
}

// CreatePlannerSteps inserts all planned steps in one transaction.
func (s *SQLiteStore) CreatePlannerSteps(ctx context.Context, steps []domain.PlannerStep) error {
	if len(steps) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, step := range steps {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO planner_steps (step_id, run_id, step_index, tool_name, tool_args, status)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			step.StepID, step.RunID, step.StepIndex, step.ToolName, string(step.Args), step.Status); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// UpdatePlannerStepStatus advances a step's status. Pending is never
// restored once the step has been executed or errored.
func (s *SQLiteStore) UpdatePlannerStepStatus(ctx context.Context, stepID string, status domain.StepStatus) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE planner_steps SET status = ? WHERE step_id = ? AND status = ?`,
		status, stepID, domain.StepStatusPending)
	return err
}

// ListPlannerSteps returns a run's planned steps in plan order.
func (s *SQLiteStore) ListPlannerSteps(ctx context.Context, runID string) ([]domain.PlannerStep, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT step_id, run_id, step_index, tool_name, tool_args, status
		 FROM planner_steps WHERE run_id = ? ORDER BY step_index ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var steps []domain.PlannerStep
	for rows.Next() {
		var step domain.PlannerStep
		var args string
		if err := rows.Scan(&step.StepID, &step.RunID, &step.StepIndex, &step.ToolName, &args, &step.Status); err != nil {
			return nil, err
		}
		step.Args = []byte(args)
		steps = append(steps, step)
	}
	return steps, rows.Err()
}

// CreateTask inserts a task.
func (s *SQLiteStore) CreateTask(ctx context.Context, task *domain.Task) error {
	var description any
	if task.Description != "" {
		description = task.Description
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (task_id, user_id, title, description, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		task.TaskID, task.UserID, task.Title, description, task.Status, task.CreatedAt)
	return err
}

// ListTasks returns a user's tasks, newest first.
func (s *SQLiteStore) ListTasks(ctx context.Context, userID string) ([]domain.TaskSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT task_id, title, status FROM tasks WHERE user_id = ? ORDER BY created_at DESC, task_id DESC`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := []domain.TaskSummary{}
	for rows.Next() {
		var t domain.TaskSummary
		if err := rows.Scan(&t.ID, &t.Title, &t.Status); err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
