package agent

import (
	"context"
	"fmt"
	"sync"
)

// Tool names known to the planner and the registry.
const (
	ToolGenerateAnswer  = "generate_answer"
	ToolRetrieveContext = "retrieve_context"
	ToolGetTasks        = "get_tasks"
	ToolCreateTask      = "create_task"
)

// ToolFunc executes one tool call with engine-injected arguments.
type ToolFunc func(ctx context.Context, args map[string]any) (any, error)

// Contract is the static argument schema for one tool, used only for plan
// validation. It is deliberately separate from the trusted argument
// injection in the engine: the contract describes what a planner may
// declare, the injector decides what the tool actually receives.
type Contract struct {
	Required []string
	Optional []string
}

// AllowsKey reports whether the key is in the required-or-optional set.
func (c Contract) AllowsKey(key string) bool {
	for _, k := range c.Required {
		if k == key {
			return true
		}
	}
	for _, k := range c.Optional {
		if k == key {
			return true
		}
	}
	return false
}

// Tool is a named capability with its validation contract.
type Tool struct {
	Name     string
	Contract Contract
	Run      ToolFunc
}

// Registry stores tools keyed by name.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool. Registering the same name twice is an error.
func (r *Registry) Register(tool Tool) error {
	if tool.Name == "" {
		return fmt.Errorf("tool name is required")
	}
	if tool.Run == nil {
		return fmt.Errorf("tool func is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[tool.Name]; exists {
		return fmt.Errorf("tool already registered: %s", tool.Name)
	}
	r.tools[tool.Name] = tool
	return nil
}

// MustRegister adds a tool or panics.
func (r *Registry) MustRegister(tool Tool) {
	if err := r.Register(tool); err != nil {
		panic(err)
	}
}

// Lookup returns the tool for name.
func (r *Registry) Lookup(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Has reports whether a tool is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.Lookup(name)
	return ok
}
