// Package llm provides an abstraction for LLM API clients.
package llm

import "context"

// ChatClient defines the interface for chat completion calls.
type ChatClient interface {
	// CreateChatCompletion sends a chat completion request.
	CreateChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error)
}

// Ensure Client implements ChatClient interface.
var _ ChatClient = (*Client)(nil)
