package pipeline

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/The-Burnes-Center/aiep-app/internal/vectorstore"
)

// Embedder turns chunk texts into fixed-dimensionality vectors, preserving
// input order.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dim() int
}

// VectorIndex is the write side of the vector store.
type VectorIndex interface {
	CreateCollection(ctx context.Context, name string, dim int) error
	Upsert(ctx context.Context, name string, points []vectorstore.Point) error
}

// Indexer embeds chunks and writes them into a fresh per-job collection.
type Indexer struct {
	embedder Embedder
	store    VectorIndex
}

func NewIndexer(embedder Embedder, store VectorIndex) *Indexer {
	return &Indexer{embedder: embedder, store: store}
}

// Index creates the job's collection and writes one point per chunk.
// Vectors are paired to chunk ids by index over a single snapshot of the
// chunk map, never by assumptions about map ordering between passes.
func (ix *Indexer) Index(ctx context.Context, collection string, chunks map[string]string) error {
	ids := make([]string, 0, len(chunks))
	texts := make([]string, 0, len(chunks))
	for id, text := range chunks {
		ids = append(ids, id)
		texts = append(texts, text)
	}

	vectors, err := ix.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("%w: embed chunks: %v", vectorstore.ErrIndexing, err)
	}

	if err := ix.store.CreateCollection(ctx, collection, ix.embedder.Dim()); err != nil {
		return err
	}

	points := make([]vectorstore.Point, len(ids))
	for i := range ids {
		points[i] = vectorstore.Point{
			ID:     uuid.NewString(),
			Vector: vectors[i],
			Payload: map[string]string{
				"original_id": ids[i],
				"text":        texts[i],
			},
		}
	}
	return ix.store.Upsert(ctx, collection, points)
}
