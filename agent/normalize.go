package agent

import (
	"strings"

	"github.com/taskpilot-dev/taskpilot/domain"
)

// docKeywords mark a prompt as document-referencing. Matching is
// case-insensitive substring search over the whole prompt.
var docKeywords = []string{
	"document",
	"resume",
	"pdf",
	"uploaded",
	"file",
	"this document",
	"my document",
}

// ContainsDocKeyword reports whether the text references a document.
func ContainsDocKeyword(text string) bool {
	lower := strings.ToLower(text)
	for _, k := range docKeywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

// NormalizePlan forces whatever the planner emitted into a safe, executable
// plan. It is total: any raw input, including nil, yields a valid plan.
//
// Guarantees:
//   - a document-referencing prompt always has retrieve_context as its
//     first step (inserted if absent, moved to front if misplaced)
//   - generate_answer, retrieve_context and get_tasks lose all
//     planner-supplied arguments; the engine injects the real ones
//   - create_task always ends up with a non-empty title, falling back to
//     the trimmed prompt
//   - unknown tools pass through unchanged for the validator to reject,
//     preserving what the planner attempted in the audit trail
//   - exactly one generate_answer step exists and it is the final step,
//     so every plan ends able to produce an answer
//
// Running it twice on its own output yields the same plan.
func NormalizePlan(raw domain.Plan, userInput string) domain.Plan {
	normalized := make(domain.Plan, 0, len(raw)+2)

	for _, step := range raw {
		switch step.Tool {
		case ToolGenerateAnswer:
			// dropped here; the single terminal step is appended below

		case ToolRetrieveContext, ToolGetTasks:
			normalized = append(normalized, domain.PlanStep{Tool: step.Tool, Args: map[string]any{}})

		case ToolCreateTask:
			args := step.Args
			title := firstString(args, "title", "task_name", "task")
			if title == "" {
				title = strings.TrimSpace(userInput)
			}
			newArgs := map[string]any{"title": title}
			if description := firstString(args, "description", "task_description"); description != "" {
				newArgs["description"] = description
			}
			normalized = append(normalized, domain.PlanStep{Tool: ToolCreateTask, Args: newArgs})

		default:
			args := step.Args
			if args == nil {
				args = map[string]any{}
			}
			normalized = append(normalized, domain.PlanStep{Tool: step.Tool, Args: args})
		}
	}

	if ContainsDocKeyword(userInput) {
		if idx := indexOfTool(normalized, ToolRetrieveContext); idx < 0 {
			normalized = append(domain.Plan{{Tool: ToolRetrieveContext, Args: map[string]any{}}}, normalized...)
		} else if idx > 0 {
			step := normalized[idx]
			normalized = append(normalized[:idx], normalized[idx+1:]...)
			normalized = append(domain.Plan{step}, normalized...)
		}
	}

	return append(normalized, domain.PlanStep{Tool: ToolGenerateAnswer, Args: map[string]any{}})
}

// indexOfTool returns the first index using the tool, or -1.
func indexOfTool(plan domain.Plan, tool string) int {
	for i, step := range plan {
		if step.Tool == tool {
			return i
		}
	}
	return -1
}

// firstString returns the first non-empty string value among the keys.
func firstString(args map[string]any, keys ...string) string {
	for _, key := range keys {
		if v, ok := args[key]; ok {
			if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
				return s
			}
		}
	}
	return ""
}
