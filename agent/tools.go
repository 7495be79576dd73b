package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/taskpilot-dev/taskpilot/domain"
	"github.com/taskpilot-dev/taskpilot/retrieval"
	"github.com/taskpilot-dev/taskpilot/store"
)

// NewToolset registers the four built-in tools over their collaborators.
// The ToolFuncs receive engine-injected arguments only; the store and
// retriever handles stay out of the argument maps entirely.
func NewToolset(s store.Store, retriever retrieval.Retriever, generator *AnswerGenerator) *Registry {
	r := NewRegistry()

	r.MustRegister(Tool{
		Name:     ToolGetTasks,
		Contract: toolContracts[ToolGetTasks],
		Run: func(ctx context.Context, args map[string]any) (any, error) {
			userID, err := stringArg(args, "user_id")
			if err != nil {
				return nil, err
			}
			return s.ListTasks(ctx, userID)
		},
	})

	r.MustRegister(Tool{
		Name:     ToolCreateTask,
		Contract: toolContracts[ToolCreateTask],
		Run: func(ctx context.Context, args map[string]any) (any, error) {
			userID, err := stringArg(args, "user_id")
			if err != nil {
				return nil, err
			}
			title, err := stringArg(args, "title")
			if err != nil {
				return nil, err
			}
			description, _ := args["description"].(string)

			task := &domain.Task{
				TaskID:      "task_" + uuid.New().String()[:8],
				UserID:      userID,
				Title:       title,
				Description: description,
				Status:      domain.TaskStatusPending,
				CreatedAt:   time.Now(),
			}
			if err := s.CreateTask(ctx, task); err != nil {
				return nil, err
			}
			return domain.TaskDetail{
				ID:          task.TaskID,
				Title:       task.Title,
				Description: task.Description,
				Status:      task.Status,
			}, nil
		},
	})

	r.MustRegister(Tool{
		Name:     ToolRetrieveContext,
		Contract: toolContracts[ToolRetrieveContext],
		Run: func(ctx context.Context, args map[string]any) (any, error) {
			query, err := stringArg(args, "query")
			if err != nil {
				return nil, err
			}
			userID, err := stringArg(args, "user_id")
			if err != nil {
				return nil, err
			}
			// retrieval.ErrNoDocuments passes through untouched; the
			// engine's short-circuit policy depends on seeing it.
			return retriever.Retrieve(ctx, query, userID)
		},
	})

	r.MustRegister(Tool{
		Name:     ToolGenerateAnswer,
		Contract: toolContracts[ToolGenerateAnswer],
		Run: func(ctx context.Context, args map[string]any) (any, error) {
			question, err := stringArg(args, "question")
			if err != nil {
				return nil, err
			}
			var docContext *string
			if v, ok := args["context"]; ok {
				if s, ok := v.(string); ok {
					docContext = &s
				}
			}
			return generator.Generate(ctx, question, docContext)
		},
	})

	return r
}

func stringArg(args map[string]any, key string) (string, error) {
	v, ok := args[key]
	if !ok {
		return "", fmt.Errorf("missing argument %q", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("argument %q must be a string", key)
	}
	return s, nil
}
