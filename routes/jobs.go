package routes

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"

	"github.com/The-Burnes-Center/aiep-app/internal/config"
	"github.com/The-Burnes-Center/aiep-app/internal/queue"
	"github.com/The-Burnes-Center/aiep-app/internal/vectorstore"
	"github.com/The-Burnes-Center/aiep-app/middleware"
	"github.com/The-Burnes-Center/aiep-app/models"
	"github.com/The-Burnes-Center/aiep-app/utils"
)

// JobStore covers the record-store operations the job routes need.
type JobStore interface {
	CreateMedia(ctx context.Context, token string, file models.UploadedFile) (string, error)
	CreateJob(ctx context.Context, token, userID string, mediaIDs []string) (string, error)
	AttachTask(ctx context.Context, token, jobID, taskID string) error
	FailJob(ctx context.Context, token, jobID, reason string) error
	ListJobs(ctx context.Context, token, userID string) ([]models.Job, error)
}

// Searcher runs semantic search over an indexed job.
type Searcher interface {
	Search(ctx context.Context, jobID, query string, limit int, threshold float64) ([]vectorstore.SearchResult, error)
}

// Enqueuer submits background tasks. *asynq.Client satisfies it.
type Enqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

func SetupJobRoutes(router *gin.Engine, cfg *config.Config, store JobStore, queueClient Enqueuer, searcher Searcher, authMiddleware *middleware.AuthMiddleware) {
	jobs := router.Group("/jobs")
	jobs.Use(authMiddleware.RequireAuth())

	jobs.POST("/create", CreateJob(cfg, store, queueClient))
	jobs.GET("/get-all", ListJobs(store))
	jobs.POST("/doc-search", DocSearch(searcher))
}

// CreateJob accepts one or more document files, registers them with the
// record store, creates the job record and enqueues the processing task.
// Every file must upload successfully before a job record exists: a
// partial upload aborts the request with no job created.
func CreateJob(cfg *config.Config, store JobStore, queueClient Enqueuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := middleware.GetToken(c)
		userID := middleware.GetUserID(c)

		if err := c.Request.ParseMultipartForm(cfg.MaxFileSize); err != nil {
			utils.RespondWithError(c, http.StatusBadRequest,
				"file_too_large", "Upload exceeds maximum size", nil)
			return
		}

		form := c.Request.MultipartForm
		if form == nil || len(form.File["files"]) == 0 {
			utils.RespondWithBadRequest(c, "No files provided", nil)
			return
		}

		var files []models.UploadedFile
		for _, header := range form.File["files"] {
			if header.Size > cfg.MaxFileSize {
				utils.RespondWithError(c, http.StatusBadRequest,
					"file_too_large", "File exceeds maximum size",
					gin.H{"filename": header.Filename})
				return
			}
			if !supportedFile(header.Filename) {
				utils.RespondWithError(c, http.StatusBadRequest,
					"invalid_file_type", "Only PDF, PNG and JPEG files are supported",
					gin.H{"filename": header.Filename})
				return
			}

			f, err := header.Open()
			if err != nil {
				utils.RespondWithBadRequest(c, "Cannot read uploaded file", gin.H{"filename": header.Filename})
				return
			}
			content, err := io.ReadAll(io.LimitReader(f, cfg.MaxFileSize))
			f.Close()
			if err != nil {
				utils.RespondWithBadRequest(c, "Cannot read uploaded file", gin.H{"filename": header.Filename})
				return
			}

			files = append(files, models.UploadedFile{
				Filename: header.Filename,
				Content:  content,
				MimeType: header.Header.Get("Content-Type"),
			})
		}

		ctx := c.Request.Context()

		mediaIDs := make([]string, 0, len(files))
		for _, file := range files {
			mediaID, err := store.CreateMedia(ctx, token, file)
			if err != nil {
				log.Printf("Media upload failed for %s: %v", file.Filename, err)
				utils.RespondWithError(c, http.StatusBadGateway,
					"upload_failed", "Failed to upload file to the record store",
					gin.H{"filename": file.Filename})
				return
			}
			mediaIDs = append(mediaIDs, mediaID)
		}

		jobID, err := store.CreateJob(ctx, token, userID, mediaIDs)
		if err != nil {
			log.Printf("Job creation failed for user %s: %v", userID, err)
			utils.RespondWithError(c, http.StatusBadGateway,
				"job_creation_failed", "Failed to create job record", nil)
			return
		}

		task, err := queue.NewJobProcessTask(jobID, token, files)
		if err != nil {
			failJob(store, token, jobID, "could not build processing task")
			utils.RespondWithInternalError(c, "Failed to create processing task", nil)
			return
		}

		info, err := queueClient.Enqueue(task)
		if err != nil {
			log.Printf("Enqueue failed for job %s: %v", jobID, err)
			failJob(store, token, jobID, "could not enqueue processing task")
			utils.RespondWithInternalError(c, "Failed to enqueue processing task", nil)
			return
		}

		// Best effort: the task runs fine without the back-reference.
		if err := store.AttachTask(ctx, token, jobID, info.ID); err != nil {
			log.Printf("Failed to attach task %s to job %s: %v", info.ID, jobID, err)
		}

		c.JSON(http.StatusAccepted, gin.H{
			"message": "Job accepted for processing",
			"job_id":  jobID,
			"task_id": info.ID,
			"status":  models.StatusStarted,
			"files":   len(files),
		})
	}
}

// ListJobs returns the caller's jobs with their current status.
func ListJobs(store JobStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := middleware.GetToken(c)
		userID := middleware.GetUserID(c)

		jobs, err := store.ListJobs(c.Request.Context(), token, userID)
		if err != nil {
			log.Printf("Job listing failed for user %s: %v", userID, err)
			utils.RespondWithError(c, http.StatusBadGateway,
				"job_listing_failed", "Failed to list jobs", nil)
			return
		}

		c.JSON(http.StatusOK, gin.H{"jobs": jobs})
	}
}

type docSearchRequest struct {
	JobID          string  `json:"job_id" binding:"required"`
	Query          string  `json:"query" binding:"required"`
	Limit          int     `json:"limit"`
	ScoreThreshold float64 `json:"score_threshold"`
}

// DocSearch runs a semantic query against one job's indexed chunks.
func DocSearch(searcher Searcher) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req docSearchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "job_id and query are required", gin.H{"error": err.Error()})
			return
		}

		threshold := req.ScoreThreshold
		if threshold == 0 {
			threshold = -1 // Let the retriever apply its default.
		}

		results, err := searcher.Search(c.Request.Context(), req.JobID, req.Query, req.Limit, threshold)
		if err != nil {
			if errors.Is(err, vectorstore.ErrNotFound) {
				utils.RespondWithNotFound(c, "No index exists for this job")
				return
			}
			log.Printf("Search failed for job %s: %v", req.JobID, err)
			utils.RespondWithInternalError(c, "Search failed", nil)
			return
		}

		out := make([]gin.H, 0, len(results))
		for _, r := range results {
			out = append(out, gin.H{
				"score":       r.Score,
				"original_id": r.Payload["original_id"],
				"text":        r.Payload["text"],
			})
		}

		c.JSON(http.StatusOK, gin.H{"results": out})
	}
}

func supportedFile(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf", ".png", ".jpg", ".jpeg":
		return true
	}
	return false
}

func failJob(store JobStore, token, jobID, reason string) {
	if err := store.FailJob(context.Background(), token, jobID, reason); err != nil {
		log.Printf("Failed to mark job %s failed: %v", jobID, err)
	}
}
