package agent

import (
	"fmt"

	"github.com/taskpilot-dev/taskpilot/domain"
)

// MaxPlanSteps bounds how many tool calls one plan may contain.
const MaxPlanSteps = 5

// toolContracts is the static argument schema per tool. Tools whose real
// arguments are injected by the engine at execution time declare empty
// contracts so a planner cannot smuggle values through validation.
var toolContracts = map[string]Contract{
	ToolGenerateAnswer:  {},
	ToolRetrieveContext: {},
	ToolGetTasks:        {},
	ToolCreateTask: {
		Required: []string{"title"},
		Optional: []string{"description"},
	},
}

// ValidatePlan statically verifies a normalized plan before anything is
// persisted or executed. It checks structure and argument keys only; it
// never runs a tool and never inspects argument values.
func ValidatePlan(plan domain.Plan, registry *Registry) error {
	if len(plan) == 0 {
		return fmt.Errorf("%w: plan cannot be empty", ErrPlanInvalid)
	}
	if len(plan) > MaxPlanSteps {
		return fmt.Errorf("%w: plan exceeds max allowed steps (%d)", ErrPlanInvalid, MaxPlanSteps)
	}

	for i, step := range plan {
		if step.Tool == "" {
			return fmt.Errorf("%w: step %d missing 'tool'", ErrPlanInvalid, i)
		}
		if step.Args == nil {
			return fmt.Errorf("%w: step %d missing 'args'", ErrPlanInvalid, i)
		}
		if !registry.Has(step.Tool) {
			return fmt.Errorf("%w: '%s'", ErrToolNotRegistered, step.Tool)
		}
		contract, ok := toolContracts[step.Tool]
		if !ok {
			return fmt.Errorf("%w: tool '%s' is not allowed by contract", ErrPlanInvalid, step.Tool)
		}

		for _, required := range contract.Required {
			if _, present := step.Args[required]; !present {
				return fmt.Errorf("%w: missing required args for tool '%s': %s", ErrPlanInvalid, step.Tool, required)
			}
		}
		for key := range step.Args {
			if !contract.AllowsKey(key) {
				return fmt.Errorf("%w: invalid args for tool '%s': %s", ErrPlanInvalid, step.Tool, key)
			}
		}
	}
	return nil
}
