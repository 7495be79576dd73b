package llm

import (
	"log/slog"
	"time"
)

// ModeMock selects the canned client instead of a real endpoint.
const ModeMock = "MOCK"

// NewChatClient creates a chat client for the configured mode.
// Mode MOCK returns the canned client; anything else returns a real client.
func NewChatClient(mode, baseURL, apiKey string, timeout time.Duration, logger *slog.Logger) ChatClient {
	if mode == ModeMock {
		logger.Info("LLM_MODE=MOCK, using mock LLM client")
		return NewMockClient()
	}
	return NewClient(baseURL, apiKey, timeout)
}
