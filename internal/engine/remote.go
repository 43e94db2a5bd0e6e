package engine

import (
	"context"
	"os"
	"sync"

	crerrors "github.com/systmms/confres/internal/errors"
	"github.com/systmms/confres/pkg/store"
)

// remoteOutcome is the tagged result of the remote tier: found, confirmed
// absent, or failed. Modeling absence in the result instead of an error
// keeps "not found" off the exception path; it is a normal outcome in a
// fallback chain.
type remoteOutcome struct {
	param store.Parameter
	found bool
	err   error
}

type flightCall struct {
	done chan struct{}
	out  remoteOutcome
}

// flightGroup collapses concurrent remote fetches for the same path into a
// single call. The first caller fetches; the rest wait on its result.
type flightGroup struct {
	mu    sync.Mutex
	calls map[string]*flightCall
}

func newFlightGroup() *flightGroup {
	return &flightGroup{calls: make(map[string]*flightCall)}
}

// remoteFetch fetches path from the backing store with request collapsing
// and bounded retry.
func (e *Engine) remoteFetch(ctx context.Context, path string) remoteOutcome {
	e.flight.mu.Lock()
	if c, ok := e.flight.calls[path]; ok {
		e.flight.mu.Unlock()
		select {
		case <-c.done:
			return c.out
		case <-ctx.Done():
			// The in-flight fetch continues for its owner; this caller
			// degrades to the local tiers instead of blocking past its
			// deadline.
			return remoteOutcome{err: ctx.Err()}
		}
	}
	c := &flightCall{done: make(chan struct{})}
	e.flight.calls[path] = c
	e.flight.mu.Unlock()

	c.out = e.fetchWithRetry(ctx, path)
	close(c.done)

	e.flight.mu.Lock()
	delete(e.flight.calls, path)
	e.flight.mu.Unlock()

	return c.out
}

func (e *Engine) fetchWithRetry(ctx context.Context, path string) remoteOutcome {
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			if err := e.sleep(ctx, BackoffSchedule(attempt-1)); err != nil {
				break
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, e.storeTimeout)
		param, found, err := e.store.Get(callCtx, path)
		cancel()

		if err == nil {
			return remoteOutcome{param: param, found: found}
		}
		lastErr = err

		if ctx.Err() != nil || !crerrors.IsRetryable(err) {
			break
		}
		e.logger.Debug("retrying store get for %s after attempt %d: %v", path, attempt+1, err)
	}

	return remoteOutcome{err: crerrors.TransientStoreError{
		Op:       "get",
		Attempts: maxAttempts,
		Err:      lastErr,
	}}
}

// listRemote fetches one listing page with the same bounded retry policy as
// single gets.
func (e *Engine) listRemote(ctx context.Context, prefix, pageToken string) ([]store.Parameter, string, error) {
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			if err := e.sleep(ctx, BackoffSchedule(attempt-1)); err != nil {
				break
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, e.storeTimeout)
		page, next, err := e.store.ListByPrefix(callCtx, prefix, pageToken)
		cancel()

		if err == nil {
			return page, next, nil
		}
		lastErr = err

		if ctx.Err() != nil || !crerrors.IsRetryable(err) {
			break
		}
	}

	return nil, "", crerrors.TransientStoreError{
		Op:       "list",
		Attempts: maxAttempts,
		Err:      lastErr,
	}
}

func lookupOSEnv(name string) (string, bool) {
	return os.LookupEnv(name)
}
