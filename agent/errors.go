// Package agent implements the execution core: intent classification,
// planning, plan normalization and validation, authorization, budget and
// timeout enforcement, and the run orchestration loop.
package agent

import "errors"

// Failure taxonomy for a run. Every one of these is caught at the loop
// boundary and converted into a RunOutcome; none escapes Engine.Run.
var (
	// ErrRateLimited: the principal started too many runs in the window.
	ErrRateLimited = errors.New("agent rate limit exceeded, please wait before making more requests")

	// ErrInputTooLong: the prompt exceeds the hard length limit.
	ErrInputTooLong = errors.New("prompt exceeds maximum allowed length")

	// ErrBudgetExceeded: the cumulative token estimate crossed the ceiling.
	ErrBudgetExceeded = errors.New("token budget exceeded for this run")

	// ErrPlanInvalid: the normalized plan failed static validation.
	ErrPlanInvalid = errors.New("invalid plan")

	// ErrToolNotRegistered: a plan step names a tool the registry lacks.
	ErrToolNotRegistered = errors.New("tool is not registered")

	// ErrToolTimeout: a single tool call exceeded its wall-clock bound.
	ErrToolTimeout = errors.New("tool call timed out")

	// ErrForbidden: the principal lacks permission for a tool.
	ErrForbidden = errors.New("tool is not permitted for this user")
)

// User-facing messages with fixed wording the tests and clients rely on.
const (
	msgAgentDisabled = "Agent disabled by ops"
	msgNoDocument    = "No document is available to answer this question."
	msgNoRelevantDoc = "The document does not contain information related to this question."
)
