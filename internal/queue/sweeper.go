package queue

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/The-Burnes-Center/aiep-app/models"
)

// JobLister covers the record-store calls the reconciliation sweep needs.
type JobLister interface {
	ListJobsByStatus(ctx context.Context, token, status string) ([]models.Job, error)
	FailJob(ctx context.Context, token, jobID, reason string) error
}

// Sweeper marks jobs that have sat in "started" past the stale cutoff as
// failed. A worker crash between picking up a task and patching status
// otherwise leaves the job started forever.
type Sweeper struct {
	store      JobLister
	token      string
	staleAfter time.Duration
}

func NewSweeper(store JobLister, serviceToken string, staleAfter time.Duration) *Sweeper {
	return &Sweeper{
		store:      store,
		token:      serviceToken,
		staleAfter: staleAfter,
	}
}

// Sweep runs one reconciliation pass.
func (s *Sweeper) Sweep(ctx context.Context) error {
	jobs, err := s.store.ListJobsByStatus(ctx, s.token, models.StatusStarted)
	if err != nil {
		return fmt.Errorf("list started jobs: %w", err)
	}

	cutoff := time.Now().Add(-s.staleAfter)
	swept := 0
	for _, job := range jobs {
		// A job with no update timestamp cannot be judged stale.
		if job.UpdatedAt.IsZero() || job.UpdatedAt.After(cutoff) {
			continue
		}
		reason := fmt.Sprintf("processing did not finish within %s", s.staleAfter)
		if err := s.store.FailJob(ctx, s.token, job.ID, reason); err != nil {
			log.Printf("Sweep: failed to mark job %s failed: %v", job.ID, err)
			continue
		}
		swept++
	}

	if swept > 0 {
		log.Printf("Sweep: marked %d stale job(s) failed", swept)
	}
	return nil
}

// Schedule starts the periodic sweep and returns the scheduler so the
// caller can stop it on shutdown.
func (s *Sweeper) Schedule(interval time.Duration) (*gocron.Scheduler, error) {
	scheduler := gocron.NewScheduler(time.UTC)
	_, err := scheduler.Every(interval).Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if err := s.Sweep(ctx); err != nil {
			log.Printf("Sweep failed: %v", err)
		}
	})
	if err != nil {
		return nil, err
	}
	scheduler.StartAsync()
	return scheduler, nil
}
