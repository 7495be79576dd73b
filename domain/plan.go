package domain

// PlanStep is one tool-call intention. Before normalization the args are
// whatever the planner emitted; after normalization they are reduced to the
// closed per-tool shape and safe to validate and execute.
type PlanStep struct {
	Tool string         `json:"tool"`
	Args map[string]any `json:"args"`
}

// Plan is an ordered list of tool-call intentions.
type Plan []PlanStep

// Tools returns the tool names in plan order.
func (p Plan) Tools() []string {
	names := make([]string, len(p))
	for i, s := range p {
		names[i] = s.Tool
	}
	return names
}

// Contains reports whether any step uses the given tool.
func (p Plan) Contains(tool string) bool {
	for _, s := range p {
		if s.Tool == tool {
			return true
		}
	}
	return false
}

// Classification is the intent classifier's output. Task is advisory only:
// the plan normalizer, not the classifier, is the authority for create_task
// arguments.
type Classification struct {
	Intent Intent     `json:"intent"`
	Task   *TaskDraft `json:"task,omitempty"`
}

// TaskDraft is a candidate title/description extracted during classification.
type TaskDraft struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}
