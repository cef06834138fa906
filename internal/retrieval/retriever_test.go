package retrieval

import (
	"context"
	"errors"
	"testing"

	"github.com/The-Burnes-Center/aiep-app/internal/vectorstore"
)

type mockEmbedder struct {
	vec []float32
	err error
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return m.vec, m.err
}

type mockStore struct {
	gotCollection string
	gotLimit      int
	results       []vectorstore.SearchResult
	err           error
}

func (m *mockStore) Search(ctx context.Context, collection string, vector []float32, limit int) ([]vectorstore.SearchResult, error) {
	m.gotCollection = collection
	m.gotLimit = limit
	return m.results, m.err
}

func scored(scores ...float64) []vectorstore.SearchResult {
	out := make([]vectorstore.SearchResult, len(scores))
	for i, s := range scores {
		out[i] = vectorstore.SearchResult{
			Score:   s,
			Payload: map[string]string{"original_id": "AnnualGoalsAndObjectives_1", "text": "t"},
		}
	}
	return out
}

func TestSearchFiltersByThresholdKeepingOrder(t *testing.T) {
	store := &mockStore{results: scored(0.9, 0.7, 0.5, 0.3)}
	r := NewRetriever(&mockEmbedder{vec: []float32{0.1}}, store, 50, 0.5)

	results, err := r.Search(context.Background(), "job1", "reading goals", 0, -1)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	for i := 1; i < len(results); i++ {
		if results[i].Score > results[i-1].Score {
			t.Errorf("results out of order at %d: %v", i, results)
		}
	}
	if store.gotCollection != "job_job1" {
		t.Errorf("collection = %q", store.gotCollection)
	}
	if store.gotLimit != 50 {
		t.Errorf("limit = %d, want default 50", store.gotLimit)
	}
}

func TestSearchHighThresholdReturnsEmptyNotError(t *testing.T) {
	store := &mockStore{results: scored(0.6, 0.5)}
	r := NewRetriever(&mockEmbedder{vec: []float32{0.1}}, store, 50, 0.5)

	results, err := r.Search(context.Background(), "job1", "anything", 10, 0.9)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("got %d results, want 0", len(results))
	}
}

func TestSearchMissingCollection(t *testing.T) {
	store := &mockStore{err: vectorstore.ErrNotFound}
	r := NewRetriever(&mockEmbedder{vec: []float32{0.1}}, store, 50, 0.5)

	_, err := r.Search(context.Background(), "job1", "q", 10, 0.5)
	if !errors.Is(err, vectorstore.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestSearchInvalidJobID(t *testing.T) {
	r := NewRetriever(&mockEmbedder{vec: []float32{0.1}}, &mockStore{}, 50, 0.5)
	_, err := r.Search(context.Background(), "bad job/id", "q", 10, 0.5)
	if !errors.Is(err, vectorstore.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestSearchEmbedFailure(t *testing.T) {
	r := NewRetriever(&mockEmbedder{err: errors.New("api down")}, &mockStore{}, 50, 0.5)
	_, err := r.Search(context.Background(), "job1", "q", 10, 0.5)
	if err == nil {
		t.Fatal("expected embed failure to propagate")
	}
}
