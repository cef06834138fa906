package ai

import (
	"context"
	"fmt"
	"time"
)

// withRetries runs fn up to maxRetries+1 times with exponential backoff.
// Context cancellation stops the retry loop immediately.
func withRetries(ctx context.Context, maxRetries int, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
		}

		if attempt < maxRetries {
			select {
			case <-time.After(time.Duration(1<<attempt) * time.Second):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return fmt.Errorf("failed after %d attempts: %v", maxRetries+1, lastErr)
}
