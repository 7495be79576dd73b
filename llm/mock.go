package llm

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// MockClient is a canned ChatClient for local development without an API key.
// It keys on the system prompt to decide whether the request is a
// classification, a planning, or an answer call.
type MockClient struct{}

// NewMockClient creates a new mock LLM client.
func NewMockClient() *MockClient {
	return &MockClient{}
}

// Ensure MockClient implements ChatClient interface.
var _ ChatClient = (*MockClient)(nil)

// CreateChatCompletion returns a mock response.
func (m *MockClient) CreateChatCompletion(_ context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error) {
	content := m.generateMockResponse(req)

	return &ChatCompletionResponse{
		ID:      fmt.Sprintf("mock-chatcmpl-%d", time.Now().UnixNano()),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   req.Model,
		Choices: []Choice{
			{
				Index: 0,
				Message: &ChatMessage{
					Role:    "assistant",
					Content: content,
				},
				FinishReason: "stop",
			},
		},
		Usage: &Usage{
			PromptTokens:     promptChars(req) / 4,
			CompletionTokens: len(content) / 4,
			TotalTokens:      (promptChars(req) + len(content)) / 4,
		},
	}, nil
}

func (m *MockClient) generateMockResponse(req *ChatCompletionRequest) string {
	var system, user string
	for _, msg := range req.Messages {
		switch msg.Role {
		case "system":
			if system == "" {
				system = msg.Content
			}
		case "user":
			user = msg.Content
		}
	}

	switch {
	case strings.Contains(system, "intent classifier"):
		if strings.Contains(strings.ToLower(user), "task") {
			return `{"intent": "LIST_TASKS"}`
		}
		return `{"intent": "ANSWER"}`
	case strings.Contains(system, "planning engine"):
		return `[{"tool": "generate_answer", "args": {}}]`
	default:
		return "This is a mock answer. Configure LLM_API_KEY for real responses."
	}
}

func promptChars(req *ChatCompletionRequest) int {
	total := 0
	for _, msg := range req.Messages {
		total += len(msg.Content)
	}
	return total
}
