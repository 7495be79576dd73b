package domain

// RunOutcome is what the run entry point returns for every exit path.
// Callers distinguish success from failure by Result vs Error; Status is an
// optional HTTP-style hint (429 rate limited, 403 forbidden).
type RunOutcome struct {
	Result          any    `json:"result,omitempty"`
	Error           string `json:"error,omitempty"`
	Status          int    `json:"status,omitempty"`
	EstimatedTokens int    `json:"estimated_tokens_used"`
	BudgetExceeded  bool   `json:"budget_exceeded"`
	RAGUsed         bool   `json:"rag_used,omitempty"`
}

// Failed reports whether the outcome carries an error.
func (o *RunOutcome) Failed() bool {
	return o.Error != ""
}
