package models

import (
	"time"

	"github.com/The-Burnes-Center/aiep-app/internal/sections"
)

// Job status constants
const (
	StatusStarted   = "started"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Job is one document-processing request as persisted by the CMS, tracked
// from upload through a completed or failed structured result.
type Job struct {
	ID        string     `json:"id"`
	User      string     `json:"user"`
	Status    string     `json:"status"`
	Files     []FileRef  `json:"files"`
	Result    *JobResult `json:"resultData,omitempty"`
	Error     string     `json:"errorMessage,omitempty"`
	TaskID    string     `json:"taskId,omitempty"`
	CreatedAt time.Time  `json:"createdAt,omitempty"`
	UpdatedAt time.Time  `json:"updatedAt,omitempty"`
}

// FileRef points at a media record owned by the CMS.
type FileRef struct {
	File string `json:"file"`
}

// JobResult is the structured-extraction payload attached to a completed
// job: one record per section that had any text.
type JobResult struct {
	Result map[sections.Kind]sections.Record `json:"Result"`
}

// UploadedFile is one client-supplied file, held in memory only for the
// duration of a job's processing.
type UploadedFile struct {
	Filename string `json:"filename"`
	Content  []byte `json:"content"`
	MimeType string `json:"mime_type"`
}
