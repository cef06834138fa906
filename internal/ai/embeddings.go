package ai

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
	"google.golang.org/api/option"

	genai "github.com/google/generative-ai-go/genai"
)

// Embedder generates fixed-dimensionality embedding vectors via the Google
// Generative AI embedding model.
type Embedder struct {
	client *genai.Client
	model  string
	dim    int
}

func NewEmbedder(ctx context.Context, apiKey, model string, dim int) (*Embedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("missing GEMINI_API_KEY for embeddings")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	return &Embedder{client: client, model: model, dim: dim}, nil
}

// Dim returns the vector dimensionality this embedder produces.
func (e *Embedder) Dim() int { return e.dim }

// Embed returns the embedding vector for a single text, truncated to the
// configured dimensionality. The embedding model supports Matryoshka
// truncation, so dropping trailing components preserves ranking quality.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	model := e.client.EmbeddingModel(e.model)
	resp, err := model.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("embedding text: %w", err)
	}
	if resp.Embedding == nil {
		return nil, fmt.Errorf("no embedding returned")
	}
	vec := resp.Embedding.Values
	if len(vec) < e.dim {
		return nil, fmt.Errorf("embedding has %d dims, need %d", len(vec), e.dim)
	}
	return vec[:e.dim], nil
}

// EmbedBatch returns embedding vectors for multiple texts. Results are
// positioned by input index so ordering is preserved regardless of which
// call finishes first. Returns nil for empty input.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	results := make([][]float32, len(texts))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(4) // Bound concurrency to avoid overwhelming the API.

	for i, text := range texts {
		i, text := i, text
		g.Go(func() error {
			vec, err := e.Embed(gCtx, text)
			if err != nil {
				return fmt.Errorf("embedding text %d: %w", i, err)
			}
			results[i] = vec
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Close the underlying client.
func (e *Embedder) Close() error {
	if e.client != nil {
		return e.client.Close()
	}
	return nil
}
