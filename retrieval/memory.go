package retrieval

import (
	"context"
	"strings"
	"sync"
)

// MemoryRetriever is an in-memory Retriever for tests and deployments
// without a vector backend. Matching is naive keyword overlap; the
// three-valued contract is what matters, not ranking quality.
type MemoryRetriever struct {
	mu   sync.RWMutex
	docs map[string][]string // userID -> chunks
}

// NewMemoryRetriever creates an empty in-memory retriever.
func NewMemoryRetriever() *MemoryRetriever {
	return &MemoryRetriever{docs: make(map[string][]string)}
}

// Add indexes a chunk for a user.
func (m *MemoryRetriever) Add(userID, chunk string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[userID] = append(m.docs[userID], chunk)
}

// Retrieve returns chunks sharing a word with the query, ErrNoDocuments
// when the user has no chunks at all, or "" when nothing overlaps.
func (m *MemoryRetriever) Retrieve(_ context.Context, query, userID string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	chunks, ok := m.docs[userID]
	if !ok || len(chunks) == 0 {
		return "", ErrNoDocuments
	}

	words := strings.Fields(strings.ToLower(query))
	var matched []string
	for _, chunk := range chunks {
		lower := strings.ToLower(chunk)
		for _, w := range words {
			if len(w) >= 4 && strings.Contains(lower, w) {
				matched = append(matched, chunk)
				break
			}
		}
	}
	return strings.Join(matched, "\n\n"), nil
}
