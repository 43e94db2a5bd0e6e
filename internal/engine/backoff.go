package engine

import (
	"context"
	"time"
)

const (
	// maxAttempts bounds remote retries. There is no unbounded retry loop
	// anywhere in the engine.
	maxAttempts = 3

	backoffBase = 100 * time.Millisecond
)

// BackoffSchedule returns the pause taken after a failed remote attempt.
// attempt is zero-based: 0 → 100ms, 1 → 200ms, 2 → 400ms. Pure function so
// the retry policy is testable without real delays.
func BackoffSchedule(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	return backoffBase << attempt
}

// sleepFunc pauses for d or returns early with the context's error. The
// engine's default implementation uses a timer; tests inject a no-op.
type sleepFunc func(ctx context.Context, d time.Duration) error

func realSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
