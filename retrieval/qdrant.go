package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/qdrant/go-client/qdrant"
	"golang.org/x/sync/singleflight"

	"github.com/taskpilot-dev/taskpilot/embedding"
)

// QdrantConfig holds configuration for connecting to Qdrant.
type QdrantConfig struct {
	URL        string // e.g. "https://xyz.cloud.qdrant.io:6333" or "http://localhost:6333"
	APIKey     string
	Collection string
}

// QdrantRetriever implements Retriever backed by a Qdrant collection of
// document chunks. Each point carries a user_id payload field for tenant
// isolation and a text payload field with the chunk content.
type QdrantRetriever struct {
	client     *qdrant.Client
	collection string
	embedder   embedding.Provider
	logger     *slog.Logger

	healthGroup singleflight.Group
}

const (
	searchLimit    = 5
	scoreThreshold = float32(0.35)
)

// parseQdrantURL extracts host, port, and TLS flag from a Qdrant URL.
// Accepts forms like "https://host:6333", "http://host:6333", or "host:6334".
func parseQdrantURL(rawURL string) (host string, port int, useTLS bool, err error) {
	u, parseErr := url.Parse(rawURL)
	if parseErr != nil || u.Host == "" {
		return "", 0, false, fmt.Errorf("retrieval: invalid qdrant URL: %q", rawURL)
	}

	useTLS = u.Scheme == "https"
	host = u.Hostname()

	if portStr := u.Port(); portStr != "" {
		p, err := strconv.Atoi(portStr)
		if err != nil {
			return "", 0, false, fmt.Errorf("retrieval: invalid port in qdrant URL: %q", portStr)
		}
		// If the user specified the REST port (6333), use the gRPC port (6334).
		if p == 6333 {
			port = 6334
		} else {
			port = p
		}
	} else {
		port = 6334
	}

	return host, port, useTLS, nil
}

// NewQdrantRetriever connects to the Qdrant server via gRPC.
func NewQdrantRetriever(cfg QdrantConfig, embedder embedding.Provider, logger *slog.Logger) (*QdrantRetriever, error) {
	host, port, useTLS, err := parseQdrantURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: cfg.APIKey,
		UseTLS: useTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("retrieval: connect to qdrant at %s:%d: %w", host, port, err)
	}

	return &QdrantRetriever{
		client:     client,
		collection: cfg.Collection,
		embedder:   embedder,
		logger:     logger,
	}, nil
}

// EnsureCollection creates the collection and the user_id payload index if
// absent. CreateFieldIndex is idempotent on Qdrant, so the index call is
// safe on every startup.
func (q *QdrantRetriever) EnsureCollection(ctx context.Context) error {
	exists, err := q.client.CollectionExists(ctx, q.collection)
	if err != nil {
		return fmt.Errorf("retrieval: check collection exists: %w", err)
	}

	if !exists {
		if err := q.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: q.collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(q.embedder.Dimensions()),
				Distance: qdrant.Distance_Cosine,
			}),
		}); err != nil {
			return fmt.Errorf("retrieval: create collection %q: %w", q.collection, err)
		}
		q.logger.Info("qdrant: created collection", "collection", q.collection, "dims", q.embedder.Dimensions())
	}

	keywordType := qdrant.FieldType_FieldTypeKeyword
	if _, err := q.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: q.collection,
		FieldName:      "user_id",
		FieldType:      &keywordType,
	}); err != nil {
		return fmt.Errorf("retrieval: ensure index on user_id: %w", err)
	}
	return nil
}

// Ping verifies connectivity. Concurrent callers share one in-flight check.
func (q *QdrantRetriever) Ping(ctx context.Context) error {
	_, err, _ := q.healthGroup.Do("health", func() (any, error) {
		checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		_, err := q.client.HealthCheck(checkCtx)
		return nil, err
	})
	if err != nil {
		return fmt.Errorf("retrieval: qdrant health check: %w", err)
	}
	return nil
}

// Retrieve embeds the query and searches the user's document chunks.
// Returns ErrNoDocuments when the user has no points at all, or an empty
// string when points exist but nothing scores above the threshold.
func (q *QdrantRetriever) Retrieve(ctx context.Context, query, userID string) (string, error) {
	userFilter := &qdrant.Filter{
		Must: []*qdrant.Condition{
			qdrant.NewMatch("user_id", userID),
		},
	}

	count, err := q.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: q.collection,
		Filter:         userFilter,
	})
	if err != nil {
		return "", fmt.Errorf("retrieval: count user points: %w", err)
	}
	if count == 0 {
		return "", ErrNoDocuments
	}

	vector, err := q.embedder.Embed(ctx, query)
	if err != nil {
		return "", fmt.Errorf("retrieval: embed query: %w", err)
	}

	limit := uint64(searchLimit)
	threshold := scoreThreshold
	scored, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collection,
		Query:          qdrant.NewQueryDense(vector),
		Filter:         userFilter,
		Limit:          &limit,
		ScoreThreshold: &threshold,
		WithPayload:    qdrant.NewWithPayloadInclude("text"),
	})
	if err != nil {
		return "", fmt.Errorf("retrieval: qdrant query: %w", err)
	}

	chunks := make([]string, 0, len(scored))
	for _, sp := range scored {
		text := sp.Payload["text"].GetStringValue()
		if text == "" {
			q.logger.Warn("qdrant: point missing text payload", "id", sp.Id.String())
			continue
		}
		chunks = append(chunks, text)
	}

	return strings.Join(chunks, "\n\n"), nil
}
