package retrieval

import (
	"context"
	"fmt"

	"github.com/The-Burnes-Center/aiep-app/internal/vectorstore"
)

// Embedder produces the query vector with the same model used at indexing
// time.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Store is the similarity-search side of the vector store.
type Store interface {
	Search(ctx context.Context, collection string, vector []float32, limit int) ([]vectorstore.SearchResult, error)
}

// Retriever answers free-text queries against a job's indexed content.
type Retriever struct {
	embedder         Embedder
	store            Store
	defaultLimit     int
	defaultThreshold float64
}

func NewRetriever(embedder Embedder, store Store, defaultLimit int, defaultThreshold float64) *Retriever {
	if defaultLimit <= 0 {
		defaultLimit = 50
	}
	return &Retriever{
		embedder:         embedder,
		store:            store,
		defaultLimit:     defaultLimit,
		defaultThreshold: defaultThreshold,
	}
}

// Search embeds the query, runs a nearest-neighbor search over the job's
// collection and filters to results at or above the score threshold,
// preserving the store's descending-score order. limit <= 0 and
// threshold < 0 fall back to the configured defaults.
func (r *Retriever) Search(ctx context.Context, jobID, query string, limit int, threshold float64) ([]vectorstore.SearchResult, error) {
	if limit <= 0 {
		limit = r.defaultLimit
	}
	if threshold < 0 {
		threshold = r.defaultThreshold
	}

	collection, err := vectorstore.CollectionName(jobID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", vectorstore.ErrNotFound, err)
	}

	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	results, err := r.store.Search(ctx, collection, vector, limit)
	if err != nil {
		return nil, err
	}

	filtered := make([]vectorstore.SearchResult, 0, len(results))
	for _, result := range results {
		if result.Score >= threshold {
			filtered = append(filtered, result)
		}
	}
	return filtered, nil
}
