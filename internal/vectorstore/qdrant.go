package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"time"
)

var (
	// ErrNotFound means the requested collection does not exist.
	ErrNotFound = errors.New("collection not found")
	// ErrConflict means the collection already exists; processing the same
	// job twice requires explicit deletion first.
	ErrConflict = errors.New("collection already exists")
	// ErrIndexing marks a collection-creation or point-upsert failure.
	ErrIndexing = errors.New("indexing failed")
)

// collectionNamePattern restricts job ids so the derived collection name is
// safe as a Qdrant identifier.
var collectionNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// CollectionName derives the per-job collection name. It rejects job ids
// carrying characters unsafe for a collection identifier.
func CollectionName(jobID string) (string, error) {
	if jobID == "" || !collectionNamePattern.MatchString(jobID) {
		return "", fmt.Errorf("job id %q is not a valid collection key", jobID)
	}
	return "job_" + jobID, nil
}

// Point is one embedded chunk written to a collection.
type Point struct {
	ID      string            `json:"id"`
	Vector  []float32         `json:"vector"`
	Payload map[string]string `json:"payload"`
}

// SearchResult is a scored payload match from a similarity search.
type SearchResult struct {
	Score   float64           `json:"score"`
	Payload map[string]string `json:"payload"`
}

// Client is a minimal REST client to Qdrant for per-job collections using
// dot-product distance.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// CreateCollection creates a fresh collection with the given dimensionality.
// An existing collection of the same name is a conflict, never silently
// reused.
func (c *Client) CreateCollection(ctx context.Context, name string, dim int) error {
	exists, err := c.Exists(ctx, name)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIndexing, err)
	}
	if exists {
		return fmt.Errorf("%w: %s", ErrConflict, name)
	}

	body := map[string]any{
		"vectors": map[string]any{
			"size":     dim,
			"distance": "Dot",
		},
	}
	if err := c.doJSON(ctx, http.MethodPut, fmt.Sprintf("/collections/%s", name), body, nil); err != nil {
		return fmt.Errorf("%w: create collection %s: %v", ErrIndexing, name, err)
	}
	return nil
}

// Exists reports whether the named collection exists.
func (c *Client) Exists(ctx context.Context, name string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+fmt.Sprintf("/collections/%s/exists", name), nil)
	if err != nil {
		return false, err
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("qdrant exists check failed: %s", resp.Status)
	}

	var out struct {
		Result struct {
			Exists bool `json:"exists"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return false, fmt.Errorf("decode exists response: %w", err)
	}
	return out.Result.Exists, nil
}

// Upsert writes points into the collection, waiting for persistence.
func (c *Client) Upsert(ctx context.Context, name string, points []Point) error {
	if len(points) == 0 {
		return nil
	}
	body := map[string]any{"points": points}
	if err := c.doJSON(ctx, http.MethodPut, fmt.Sprintf("/collections/%s/points?wait=true", name), body, nil); err != nil {
		return fmt.Errorf("%w: upsert into %s: %v", ErrIndexing, name, err)
	}
	return nil
}

// Search runs a nearest-neighbor query and returns up to limit scored
// payloads in descending score order. A missing collection maps to
// ErrNotFound.
func (c *Client) Search(ctx context.Context, name string, vector []float32, limit int) ([]SearchResult, error) {
	req := map[string]any{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
	}
	var resp struct {
		Result []SearchResult `json:"result"`
	}
	if err := c.doJSON(ctx, http.MethodPost, fmt.Sprintf("/collections/%s/points/search", name), req, &resp); err != nil {
		if errors.Is(err, errStatusNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, err
	}
	return resp.Result, nil
}

// DeleteCollection drops the collection. Deleting a missing collection is
// not an error.
func (c *Client) DeleteCollection(ctx context.Context, name string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+fmt.Sprintf("/collections/%s", name), nil)
	if err != nil {
		return err
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("qdrant DELETE %s failed: %s", name, resp.Status)
	}
	return nil
}

var errStatusNotFound = errors.New("http 404")

func (c *Client) doJSON(ctx context.Context, method, path string, body any, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return errStatusNotFound
	}
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("qdrant %s %s failed: %s: %s", method, path, resp.Status, msg)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("api-key", c.apiKey)
	}
}
