package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/taskpilot-dev/taskpilot/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRunLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	run := &domain.Run{
		RunID:     "run_1",
		UserID:    "u1",
		Input:     "hello",
		CreatedAt: time.Now(),
	}
	if err := s.CreateRun(ctx, run); err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}

	got, err := s.GetRun(ctx, "run_1")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got == nil || got.UserID != "u1" || got.Output != nil {
		t.Fatalf("unexpected run: %+v", got)
	}

	if err := s.FinalizeRun(ctx, "run_1", "the answer", 42, true); err != nil {
		t.Fatalf("FinalizeRun failed: %v", err)
	}
	got, err = s.GetRun(ctx, "run_1")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got.Output == nil || *got.Output != "the answer" {
		t.Fatalf("output not persisted: %+v", got)
	}
	if got.EstimatedTokens != 42 || !got.BudgetExceeded {
		t.Fatalf("token accounting not persisted: %+v", got)
	}

	latest, err := s.LatestRunID(ctx, "u1")
	if err != nil || latest != "run_1" {
		t.Fatalf("LatestRunID = %q, %v", latest, err)
	}
}

func TestGetRunMissing(t *testing.T) {
	s := newTestStore(t)

	got, err := s.GetRun(context.Background(), "nope")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for missing run, got %+v", got)
	}
}

func TestFinalizeRunMissing(t *testing.T) {
	s := newTestStore(t)

	if err := s.FinalizeRun(context.Background(), "nope", "x", 0, false); err == nil {
		t.Fatal("expected error finalizing a missing run")
	}
}

func TestCountRunsSince(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	now := time.Now()
	runs := []struct {
		id  string
		age time.Duration
	}{
		{"run_a", 20 * time.Minute},
		{"run_b", 5 * time.Minute},
		{"run_c", time.Minute},
	}
	for _, r := range runs {
		if err := s.CreateRun(ctx, &domain.Run{RunID: r.id, UserID: "u1", Input: "x", CreatedAt: now.Add(-r.age)}); err != nil {
			t.Fatalf("CreateRun failed: %v", err)
		}
	}

	count, err := s.CountRunsSince(ctx, "u1", now.Add(-10*time.Minute))
	if err != nil {
		t.Fatalf("CountRunsSince failed: %v", err)
	}
	if count != 2 {
		t.Fatalf("count = %d, want 2", count)
	}
}

func TestAppendActionOrdering(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if err := s.CreateRun(ctx, &domain.Run{RunID: "run_1", UserID: "u1", Input: "x", CreatedAt: time.Now()}); err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}

	// identical timestamps; order must come from insertion
	ts := time.Now()
	for i, name := range []string{"intent_classifier", "planner", "generate_answer"} {
		action := &domain.Action{
			ActionID:  "act_" + name,
			RunID:     "run_1",
			ToolName:  name,
			Input:     "in",
			Output:    "out",
			Status:    domain.ActionStatusSuccess,
			CreatedAt: ts,
		}
		if err := s.AppendAction(ctx, action); err != nil {
			t.Fatalf("AppendAction %d failed: %v", i, err)
		}
	}

	actions, err := s.ListActions(ctx, "run_1")
	if err != nil {
		t.Fatalf("ListActions failed: %v", err)
	}
	if len(actions) != 3 {
		t.Fatalf("len(actions) = %d, want 3", len(actions))
	}
	want := []string{"intent_classifier", "planner", "generate_answer"}
	for i, a := range actions {
		if a.ToolName != want[i] {
			t.Fatalf("actions out of order: got %v", actions)
		}
	}
}

func TestPlannerSteps(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if err := s.CreateRun(ctx, &domain.Run{RunID: "run_1", UserID: "u1", Input: "x", CreatedAt: time.Now()}); err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}

	steps := []domain.PlannerStep{
		{StepID: "s1", RunID: "run_1", StepIndex: 0, ToolName: "retrieve_context", Args: json.RawMessage(`{}`), Status: domain.StepStatusPending},
		{StepID: "s2", RunID: "run_1", StepIndex: 1, ToolName: "generate_answer", Args: json.RawMessage(`{}`), Status: domain.StepStatusPending},
	}
	if err := s.CreatePlannerSteps(ctx, steps); err != nil {
		t.Fatalf("CreatePlannerSteps failed: %v", err)
	}

	if err := s.UpdatePlannerStepStatus(ctx, "s1", domain.StepStatusExecuted); err != nil {
		t.Fatalf("UpdatePlannerStepStatus failed: %v", err)
	}
	// a settled step never regresses
	if err := s.UpdatePlannerStepStatus(ctx, "s1", domain.StepStatusError); err != nil {
		t.Fatalf("UpdatePlannerStepStatus failed: %v", err)
	}

	got, err := s.ListPlannerSteps(ctx, "run_1")
	if err != nil {
		t.Fatalf("ListPlannerSteps failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len(steps) = %d, want 2", len(got))
	}
	if got[0].Status != domain.StepStatusExecuted {
		t.Fatalf("step s1 status = %s, want executed", got[0].Status)
	}
	if got[1].Status != domain.StepStatusPending {
		t.Fatalf("step s2 status = %s, want pending", got[1].Status)
	}
}

func TestTasks(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	tasks := []domain.Task{
		{TaskID: "t1", UserID: "u1", Title: "first", Status: domain.TaskStatusPending, CreatedAt: time.Now().Add(-time.Minute)},
		{TaskID: "t2", UserID: "u1", Title: "second", Description: "with detail", Status: domain.TaskStatusPending, CreatedAt: time.Now()},
		{TaskID: "t3", UserID: "u2", Title: "other user", Status: domain.TaskStatusPending, CreatedAt: time.Now()},
	}
	for _, task := range tasks {
		if err := s.CreateTask(ctx, &task); err != nil {
			t.Fatalf("CreateTask failed: %v", err)
		}
	}

	got, err := s.ListTasks(ctx, "u1")
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len(tasks) = %d, want 2", len(got))
	}
	if got[0].Title != "second" || got[1].Title != "first" {
		t.Fatalf("tasks not newest-first: %v", got)
	}
}

func TestDeleteRunsBeforeCascades(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	old := time.Now().Add(-48 * time.Hour)
	if err := s.CreateRun(ctx, &domain.Run{RunID: "run_old", UserID: "u1", Input: "x", CreatedAt: old}); err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}
	if err := s.AppendAction(ctx, &domain.Action{
		ActionID: "a1", RunID: "run_old", ToolName: "planner",
		Status: domain.ActionStatusSuccess, CreatedAt: old,
	}); err != nil {
		t.Fatalf("AppendAction failed: %v", err)
	}
	if err := s.CreateRun(ctx, &domain.Run{RunID: "run_new", UserID: "u1", Input: "x", CreatedAt: time.Now()}); err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}

	n, err := s.DeleteRunsBefore(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("DeleteRunsBefore failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("deleted %d runs, want 1", n)
	}

	if run, _ := s.GetRun(ctx, "run_old"); run != nil {
		t.Fatal("old run should be gone")
	}
	actions, err := s.ListActions(ctx, "run_old")
	if err != nil {
		t.Fatalf("ListActions failed: %v", err)
	}
	if len(actions) != 0 {
		t.Fatalf("actions should cascade, got %v", actions)
	}
	if run, _ := s.GetRun(ctx, "run_new"); run == nil {
		t.Fatal("recent run should survive")
	}
}
