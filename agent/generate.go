package agent

import (
	"context"
	"fmt"

	"github.com/taskpilot-dev/taskpilot/llm"
)

const answerPrompt = `You are a helpful and honest assistant.

Rules:
- If document context is provided:
  - NEVER say that no document was provided.
  - If the document does not contain enough information to answer the question,
    say this clearly and briefly.
  - Do NOT hallucinate details that are not present in the document.
- If no document context is provided:
  - Answer normally using general knowledge.

Be concise, factual, and clear.`

// AnswerGenerator produces the user-facing answer text.
type AnswerGenerator struct {
	client llm.ChatClient
	model  string
}

// NewAnswerGenerator creates an answer generator.
func NewAnswerGenerator(client llm.ChatClient, model string) *AnswerGenerator {
	return &AnswerGenerator{client: client, model: model}
}

// Generate answers the question. A nil context means no retrieval happened
// and the model may use general knowledge; a non-nil context (even empty)
// means the answer must be grounded in the document block.
func (g *AnswerGenerator) Generate(ctx context.Context, question string, docContext *string) (string, error) {
	if question == "" {
		return "No question provided.", nil
	}

	messages := []llm.ChatMessage{
		{Role: "system", Content: answerPrompt},
	}
	if docContext != nil {
		messages = append(messages, llm.ChatMessage{
			Role:    "system",
			Content: "Document context (may be incomplete):\n" + *docContext,
		})
	}
	messages = append(messages, llm.ChatMessage{Role: "user", Content: question})

	temperature := 0.3
	resp, err := g.client.CreateChatCompletion(ctx, &llm.ChatCompletionRequest{
		Model:       g.model,
		Temperature: &temperature,
		Messages:    messages,
	})
	if err != nil {
		return "", fmt.Errorf("answer generation failed: %w", err)
	}
	return resp.Text(), nil
}
