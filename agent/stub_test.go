package agent

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/taskpilot-dev/taskpilot/llm"
)

// scriptedClient is a ChatClient driven by fixed responses. It routes on
// the system prompt the same way the shipped mock does, but each leg is
// scriptable and every request is captured for assertions.
type scriptedClient struct {
	mu        sync.Mutex
	intent    string
	plan      string
	answer    string
	intentErr error
	planErr   error
	answerErr error
	requests  []*llm.ChatCompletionRequest
}

func (c *scriptedClient) CreateChatCompletion(_ context.Context, req *llm.ChatCompletionRequest) (*llm.ChatCompletionResponse, error) {
	c.mu.Lock()
	c.requests = append(c.requests, req)
	c.mu.Unlock()

	system := ""
	if len(req.Messages) > 0 {
		system = req.Messages[0].Content
	}
	switch {
	case strings.Contains(system, "intent classifier"):
		if c.intentErr != nil {
			return nil, c.intentErr
		}
		return completion(c.intent), nil
	case strings.Contains(system, "planning engine"):
		if c.planErr != nil {
			return nil, c.planErr
		}
		return completion(c.plan), nil
	default:
		if c.answerErr != nil {
			return nil, c.answerErr
		}
		return completion(c.answer), nil
	}
}

// answerRequests returns the captured answer-generation requests.
func (c *scriptedClient) answerRequests() []*llm.ChatCompletionRequest {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []*llm.ChatCompletionRequest
	for _, req := range c.requests {
		if len(req.Messages) > 0 && strings.Contains(req.Messages[0].Content, "honest assistant") {
			out = append(out, req)
		}
	}
	return out
}

func (c *scriptedClient) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.requests)
}

func completion(content string) *llm.ChatCompletionResponse {
	return &llm.ChatCompletionResponse{
		Choices: []llm.Choice{
			{Message: &llm.ChatMessage{Role: "assistant", Content: content}},
		},
	}
}

// stubRetriever returns one fixed retrieval result.
type stubRetriever struct {
	text string
	err  error
}

func (r *stubRetriever) Retrieve(_ context.Context, _, _ string) (string, error) {
	return r.text, r.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
