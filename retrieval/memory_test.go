package retrieval

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMemoryRetrieverThreeValuedContract(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryRetriever()

	// no documents at all
	_, err := m.Retrieve(ctx, "anything", "u1")
	assert.ErrorIs(t, err, ErrNoDocuments)

	m.Add("u1", "Go developer with distributed systems experience.")

	// documents exist, nothing relevant
	text, err := m.Retrieve(ctx, "baking bread", "u1")
	assert.NoError(t, err)
	assert.Empty(t, text)

	// match found
	text, err = m.Retrieve(ctx, "tell me about distributed systems", "u1")
	assert.NoError(t, err)
	assert.Contains(t, text, "distributed systems")
}

func TestMemoryRetrieverScopedByUser(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryRetriever()
	m.Add("u1", "resume content for user one")

	_, err := m.Retrieve(ctx, "resume", "u2")
	assert.ErrorIs(t, err, ErrNoDocuments, "one user's documents must not leak to another")
}
