// Package retrieval provides user-scoped document context retrieval.
//
// The contract is three-valued and the distinction is load-bearing for the
// engine's short-circuit policy:
//   - populated text, nil error: relevant context was found
//   - empty text, nil error: the user has documents but nothing matched
//   - ErrNoDocuments: no document store exists for this user at all
package retrieval

import (
	"context"
	"errors"
)

// ErrNoDocuments signals that the user has no documents indexed at all,
// as opposed to having documents with no relevant match.
var ErrNoDocuments = errors.New("retrieval: no documents for user")

// Retriever returns document context for a query, scoped to one user.
type Retriever interface {
	Retrieve(ctx context.Context, query, userID string) (string, error)
}
