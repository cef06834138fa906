package cms

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"github.com/The-Burnes-Center/aiep-app/models"
)

var (
	// ErrAuth means the credential could not be resolved to a user.
	ErrAuth = errors.New("authentication failed")
	// ErrUpload means a file failed to persist to the media store.
	ErrUpload = errors.New("file upload failed")
	// ErrJobCreation means the record store rejected job creation.
	ErrJobCreation = errors.New("job creation failed")
	// ErrStatusUpdate means a job status patch failed.
	ErrStatusUpdate = errors.New("job status update failed")
)

// Client talks to the Payload CMS that owns user identity, media records and
// job records.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Identity is the resolved caller behind a bearer credential.
type Identity struct {
	UserID string
	Email  string
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// ResolveIdentity resolves a bearer credential to the user it belongs to.
func (c *Client) ResolveIdentity(ctx context.Context, token string) (*Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/users/me", nil)
	if err != nil {
		return nil, err
	}
	c.authorize(req, token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuth, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrAuth, resp.StatusCode)
	}

	var out struct {
		User struct {
			ID    string `json:"id"`
			Email string `json:"email"`
		} `json:"user"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode identity: %v", ErrAuth, err)
	}
	if out.User.ID == "" {
		return nil, fmt.Errorf("%w: no user in session", ErrAuth)
	}
	return &Identity{UserID: out.User.ID, Email: out.User.Email}, nil
}

// CreateMedia uploads one file to the CMS media store and returns its record
// id.
func (c *Client) CreateMedia(ctx context.Context, token string, file models.UploadedFile) (string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	fileWriter, err := writer.CreateFormFile("file", file.Filename)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpload, err)
	}
	if _, err := fileWriter.Write(file.Content); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpload, err)
	}
	writer.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/media", &buf)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpload, err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	c.authorize(req, token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrUpload, file.Filename, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("%w: %s: status %d", ErrUpload, file.Filename, resp.StatusCode)
	}

	var out struct {
		Doc struct {
			ID string `json:"id"`
		} `json:"doc"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: decode media response: %v", ErrUpload, err)
	}
	return out.Doc.ID, nil
}

// CreateJob creates a new job record with status started and returns the job
// id.
func (c *Client) CreateJob(ctx context.Context, token, userID string, mediaIDs []string) (string, error) {
	files := make([]models.FileRef, len(mediaIDs))
	for i, id := range mediaIDs {
		files[i] = models.FileRef{File: id}
	}
	payload := map[string]any{
		"user":       userID,
		"files":      files,
		"status":     models.StatusStarted,
		"resultData": nil,
	}

	var out struct {
		Doc struct {
			ID string `json:"id"`
		} `json:"doc"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/jobs", token, payload, &out, http.StatusCreated); err != nil {
		return "", fmt.Errorf("%w: %v", ErrJobCreation, err)
	}
	return out.Doc.ID, nil
}

// AttachTask patches the queue task correlation id onto the job so no job
// can stay silently started with nothing tracking it.
func (c *Client) AttachTask(ctx context.Context, token, jobID, taskID string) error {
	patch := map[string]any{"taskId": taskID}
	if err := c.doJSON(ctx, http.MethodPatch, "/api/jobs/"+url.PathEscape(jobID), token, patch, nil, http.StatusOK); err != nil {
		return fmt.Errorf("%w: attach task: %v", ErrStatusUpdate, err)
	}
	return nil
}

// CompleteJob patches the job to completed with its structured result.
func (c *Client) CompleteJob(ctx context.Context, token, jobID string, result *models.JobResult) error {
	patch := map[string]any{
		"status":     models.StatusCompleted,
		"resultData": result,
	}
	if err := c.doJSON(ctx, http.MethodPatch, "/api/jobs/"+url.PathEscape(jobID), token, patch, nil, http.StatusOK); err != nil {
		return fmt.Errorf("%w: %v", ErrStatusUpdate, err)
	}
	return nil
}

// FailJob patches the job to failed with a reason.
func (c *Client) FailJob(ctx context.Context, token, jobID, reason string) error {
	patch := map[string]any{
		"status":       models.StatusFailed,
		"errorMessage": reason,
	}
	if err := c.doJSON(ctx, http.MethodPatch, "/api/jobs/"+url.PathEscape(jobID), token, patch, nil, http.StatusOK); err != nil {
		return fmt.Errorf("%w: %v", ErrStatusUpdate, err)
	}
	return nil
}

// ListJobs returns all jobs owned by the user, read through from the CMS.
func (c *Client) ListJobs(ctx context.Context, token, userID string) ([]models.Job, error) {
	path := "/api/jobs?where[user][equals]=" + url.QueryEscape(userID)
	var out struct {
		Docs []models.Job `json:"docs"`
	}
	if err := c.doJSON(ctx, http.MethodGet, path, token, nil, &out, http.StatusOK); err != nil {
		return nil, fmt.Errorf("fetch jobs: %w", err)
	}
	return out.Docs, nil
}

// ListJobsByStatus returns every job in the given status, regardless of
// owner. Used by the reconciliation sweep with a service token.
func (c *Client) ListJobsByStatus(ctx context.Context, token, status string) ([]models.Job, error) {
	path := "/api/jobs?where[status][equals]=" + url.QueryEscape(status) + "&limit=0"
	var out struct {
		Docs []models.Job `json:"docs"`
	}
	if err := c.doJSON(ctx, http.MethodGet, path, token, nil, &out, http.StatusOK); err != nil {
		return nil, fmt.Errorf("fetch jobs by status: %w", err)
	}
	return out.Docs, nil
}

func (c *Client) doJSON(ctx context.Context, method, path, token string, body, out any, wantStatus int) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.authorize(req, token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("cms %s %s: status %d: %s", method, path, resp.StatusCode, msg)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) authorize(req *http.Request, token string) {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}
