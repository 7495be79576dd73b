// Package policy implements the per-tool authorization gate on OPA.
package policy

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/v1/rego"
)

// Decision values returned by the policy.
const (
	DecisionAllow = "allow"
	DecisionDeny  = "deny"
)

// Engine evaluates tool permissions for a principal.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine creates a policy engine with the given rego policy content.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.agent_authz.decision"),
		rego.Module("agent_authz.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// Input is the evaluation input for one permission check.
type Input struct {
	UserID   string `json:"user_id"`
	Role     string `json:"role"`
	ToolName string `json:"tool_name"`
}

// Evaluate checks whether the principal may invoke the tool.
// Returns the decision (allow or deny). An empty result set means the
// policy defines no default; treat it as allow.
func (e *Engine) Evaluate(ctx context.Context, input Input) (string, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return "", fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return DecisionAllow, nil
	}

	if s, ok := results[0].Expressions[0].Value.(string); ok {
		return s, nil
	}
	return "", fmt.Errorf("policy returned non-string decision")
}

// Allowed is a convenience wrapper around Evaluate.
func (e *Engine) Allowed(ctx context.Context, principalID, role, toolName string) (bool, error) {
	decision, err := e.Evaluate(ctx, Input{UserID: principalID, Role: role, ToolName: toolName})
	if err != nil {
		return false, err
	}
	return decision == DecisionAllow, nil
}

// DefaultPolicy restricts task creation to privileged roles. Read-only
// tools and answer generation are open to everyone.
const DefaultPolicy = `
package agent_authz

default decision := "allow"

decision := "deny" if {
	input.tool_name == "create_task"
	not privileged
}

privileged if input.role == "admin"

privileged if input.role == "member"
`
