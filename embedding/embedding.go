// Package embedding turns text into vectors for document retrieval.
//
// The retrieval store treats embeddings as an external capability: given a
// query, return a vector in the collection's space. Ollama is the default
// provider; NoopProvider serves tests and deployments without a model.
package embedding

import (
	"context"
	"hash/fnv"
)

// Provider generates embedding vectors from text.
// Implementations must be safe for concurrent use.
type Provider interface {
	// Embed generates a single embedding vector from text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the provider's vector size.
	Dimensions() int
}

// NoopProvider produces deterministic pseudo-vectors from a text hash.
// Useful in tests and when no embedding backend is configured; similarity
// is meaningless but the pipeline stays exercisable end to end.
type NoopProvider struct {
	dims int
}

// NewNoopProvider creates a provider emitting vectors of the given size.
func NewNoopProvider(dims int) *NoopProvider {
	if dims <= 0 {
		dims = 8
	}
	return &NoopProvider{dims: dims}
}

// Dimensions returns the configured vector size.
func (p *NoopProvider) Dimensions() int { return p.dims }

// Embed hashes the text into a fixed pseudo-vector.
func (p *NoopProvider) Embed(_ context.Context, text string) ([]float32, error) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	seed := h.Sum64()

	vec := make([]float32, p.dims)
	for i := range vec {
		seed = seed*6364136223846793005 + 1442695040888963407
		vec[i] = float32(int64(seed>>33)) / float32(1<<31)
	}
	return vec, nil
}
