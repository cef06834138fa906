package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/The-Burnes-Center/aiep-app/models"
)

const TaskProcessJob = "job:process"

// processingTTL bounds how long a duplicate delivery is suppressed. It must
// exceed the worst-case pipeline runtime so retries of a live job are held off.
const processingTTL = 45 * time.Minute

type JobProcessPayload struct {
	JobID string                `json:"job_id"`
	Token string                `json:"token"`
	Files []models.UploadedFile `json:"files"`
}

func NewJobProcessTask(jobID, token string, files []models.UploadedFile) (*asynq.Task, error) {
	payload, err := json.Marshal(JobProcessPayload{
		JobID: jobID,
		Token: token,
		Files: files,
	})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(
		TaskProcessJob,
		payload,
		asynq.MaxRetry(3),
		asynq.Timeout(30*time.Minute),
		asynq.Queue("critical"),
	), nil
}

// Runner executes the document pipeline for one job.
type Runner interface {
	Run(ctx context.Context, jobID, token string, files []models.UploadedFile) error
}

// Locker guards against concurrent processing of the same job.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

type RedisLocker struct {
	rdb *redis.Client
}

func NewRedisLocker(rdb *redis.Client) *RedisLocker {
	return &RedisLocker{rdb: rdb}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return l.rdb.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), ttl).Result()
}

func (l *RedisLocker) Release(ctx context.Context, key string) error {
	return l.rdb.Del(ctx, key).Err()
}

// Task handlers
type TaskProcessor struct {
	runner Runner
	locker Locker
}

func NewTaskProcessor(runner Runner, locker Locker) *TaskProcessor {
	return &TaskProcessor{
		runner: runner,
		locker: locker,
	}
}

func processingKey(jobID string) string {
	return "job:processing:" + jobID
}

func (p *TaskProcessor) ProcessJob(ctx context.Context, t *asynq.Task) error {
	var payload JobProcessPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal failed: %w", asynq.SkipRetry)
	}

	log.Printf("Processing job %s: %d file(s)", payload.JobID, len(payload.Files))

	key := processingKey(payload.JobID)
	acquired, err := p.locker.Acquire(ctx, key, processingTTL)
	if err != nil {
		return fmt.Errorf("acquire processing lock for job %s: %w", payload.JobID, err)
	}
	if !acquired {
		log.Printf("Job %s already being processed, skipping duplicate delivery", payload.JobID)
		return nil
	}
	defer func() {
		if err := p.locker.Release(context.WithoutCancel(ctx), key); err != nil {
			log.Printf("Failed to release processing lock for job %s: %v", payload.JobID, err)
		}
	}()

	return p.runner.Run(ctx, payload.JobID, payload.Token, payload.Files)
}
