package cms

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/The-Burnes-Center/aiep-app/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, 5*time.Second)
}

func TestResolveIdentity(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/users/me" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok123" {
			t.Errorf("Authorization = %q", got)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"user": map[string]string{"id": "user-1", "email": "parent@example.com"},
		})
	})

	identity, err := client.ResolveIdentity(context.Background(), "tok123")
	if err != nil {
		t.Fatalf("ResolveIdentity: %v", err)
	}
	if identity.UserID != "user-1" {
		t.Errorf("UserID = %q", identity.UserID)
	}
}

func TestResolveIdentityRejected(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := client.ResolveIdentity(context.Background(), "bad")
	if !errors.Is(err, ErrAuth) {
		t.Errorf("err = %v, want ErrAuth", err)
	}
}

func TestCreateMedia(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/media" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		f, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		defer f.Close()
		if header.Filename != "iep.pdf" {
			t.Errorf("filename = %q", header.Filename)
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{"doc": map[string]string{"id": "media-9"}})
	})

	id, err := client.CreateMedia(context.Background(), "tok", models.UploadedFile{
		Filename: "iep.pdf",
		Content:  []byte("%PDF-1.4 fake"),
		MimeType: "application/pdf",
	})
	if err != nil {
		t.Fatalf("CreateMedia: %v", err)
	}
	if id != "media-9" {
		t.Errorf("media id = %q", id)
	}
}

func TestCreateMediaFailure(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})

	_, err := client.CreateMedia(context.Background(), "tok", models.UploadedFile{Filename: "x.png"})
	if !errors.Is(err, ErrUpload) {
		t.Errorf("err = %v, want ErrUpload", err)
	}
}

func TestCreateJob(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			User   string           `json:"user"`
			Files  []models.FileRef `json:"files"`
			Status string           `json:"status"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if payload.User != "user-1" || payload.Status != models.StatusStarted {
			t.Errorf("payload = %+v", payload)
		}
		if len(payload.Files) != 2 || payload.Files[0].File != "m1" {
			t.Errorf("files = %v", payload.Files)
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{"doc": map[string]string{"id": "job-7"}})
	})

	id, err := client.CreateJob(context.Background(), "tok", "user-1", []string{"m1", "m2"})
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	if id != "job-7" {
		t.Errorf("job id = %q", id)
	}
}

func TestCreateJobRejected(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	_, err := client.CreateJob(context.Background(), "tok", "user-1", []string{"m1"})
	if !errors.Is(err, ErrJobCreation) {
		t.Errorf("err = %v, want ErrJobCreation", err)
	}
}

func TestCompleteAndFailJobPatches(t *testing.T) {
	var patches []map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch || r.URL.Path != "/api/jobs/job-7" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var patch map[string]any
		json.NewDecoder(r.Body).Decode(&patch)
		patches = append(patches, patch)
		w.WriteHeader(http.StatusOK)
	})

	if err := client.CompleteJob(context.Background(), "tok", "job-7", &models.JobResult{}); err != nil {
		t.Fatalf("CompleteJob: %v", err)
	}
	if err := client.FailJob(context.Background(), "tok", "job-7", "indexing failed"); err != nil {
		t.Fatalf("FailJob: %v", err)
	}

	if patches[0]["status"] != models.StatusCompleted {
		t.Errorf("first patch = %v", patches[0])
	}
	if patches[1]["status"] != models.StatusFailed || patches[1]["errorMessage"] != "indexing failed" {
		t.Errorf("second patch = %v", patches[1])
	}
}

func TestListJobs(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("where[user][equals]"); got != "user-1" {
			t.Errorf("user filter = %q", got)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"docs": []map[string]any{
				{"id": "job-1", "user": "user-1", "status": "completed"},
				{"id": "job-2", "user": "user-1", "status": "started"},
			},
		})
	})

	jobs, err := client.ListJobs(context.Background(), "tok", "user-1")
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	if len(jobs) != 2 || jobs[0].ID != "job-1" || jobs[1].Status != models.StatusStarted {
		t.Errorf("jobs = %+v", jobs)
	}
}

func TestListJobsByStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("where[status][equals]"); got != models.StatusStarted {
			t.Errorf("status filter = %q", got)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"docs": []map[string]any{
				{"id": "job-1", "status": "started"},
			},
		})
	})

	jobs, err := client.ListJobsByStatus(context.Background(), "svc-tok", models.StatusStarted)
	if err != nil {
		t.Fatalf("ListJobsByStatus: %v", err)
	}
	if len(jobs) != 1 || jobs[0].ID != "job-1" {
		t.Errorf("jobs = %+v", jobs)
	}
}
