// Package fakes provides manual fake implementations for testing.
//
// Fakes are test doubles with working in-memory implementations. They are
// more realistic than mocks but simpler than the real store, which makes
// call-count assertions (negative caching, request collapsing) practical.
package fakes

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/systmms/confres/pkg/store"
)

// FakeStore is an in-memory implementation of store.Store.
//
// Example usage:
//
//	fake := fakes.NewFakeStore().
//	    WithParameter("/dev/billing/db/port", "5432", store.Plain).
//	    WithError("/dev/billing/db/host", errors.New("connection reset"))
type FakeStore struct {
	params   map[string]store.Parameter
	versions map[string]int64

	// Behavior control
	failOn   map[string]error // path -> error returned by Get/Put
	listErr  error
	pageSize int
	getDelay time.Duration

	// Call tracking
	getCalls  map[string]int
	putCalls  map[string]int
	listCalls int

	mu sync.Mutex
}

// NewFakeStore creates an empty FakeStore.
func NewFakeStore() *FakeStore {
	return &FakeStore{
		params:   make(map[string]store.Parameter),
		versions: make(map[string]int64),
		failOn:   make(map[string]error),
		pageSize: 10,
		getCalls: make(map[string]int),
		putCalls: make(map[string]int),
	}
}

// WithParameter seeds a parameter at version 1 (or bumps the version if the
// path already exists). Fluent API for test setup.
func (f *FakeStore) WithParameter(path, value string, class store.Classification) *FakeStore {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.versions[path]++
	f.params[path] = store.Parameter{
		Path:           path,
		Value:          value,
		Classification: class,
		Version:        f.versions[path],
		LastModified:   time.Now(),
	}
	return f
}

// WithVersion pins the version for an already-seeded path.
func (f *FakeStore) WithVersion(path string, version int64) *FakeStore {
	f.mu.Lock()
	defer f.mu.Unlock()

	p := f.params[path]
	p.Version = version
	f.params[path] = p
	f.versions[path] = version
	return f
}

// WithError makes Get and Put fail for a specific path.
func (f *FakeStore) WithError(path string, err error) *FakeStore {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.failOn[path] = err
	return f
}

// WithListError makes ListByPrefix fail.
func (f *FakeStore) WithListError(err error) *FakeStore {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.listErr = err
	return f
}

// WithPageSize sets the ListByPrefix page size, for pagination tests.
func (f *FakeStore) WithPageSize(n int) *FakeStore {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.pageSize = n
	return f
}

// WithGetDelay makes each Get block for d, to widen race windows in
// request-collapsing tests.
func (f *FakeStore) WithGetDelay(d time.Duration) *FakeStore {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.getDelay = d
	return f
}

// ClearError removes a configured failure for path.
func (f *FakeStore) ClearError(path string) *FakeStore {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.failOn, path)
	return f
}

// Get implements store.Store.
func (f *FakeStore) Get(ctx context.Context, path string) (store.Parameter, bool, error) {
	f.mu.Lock()
	f.getCalls[path]++
	err := f.failOn[path]
	p, ok := f.params[path]
	delay := f.getDelay
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return store.Parameter{}, false, ctx.Err()
		case <-time.After(delay):
		}
	}

	if err != nil {
		return store.Parameter{}, false, err
	}
	if ctx.Err() != nil {
		return store.Parameter{}, false, ctx.Err()
	}
	if !ok {
		return store.Parameter{}, false, nil
	}
	return p, true, nil
}

// Put implements store.Store.
func (f *FakeStore) Put(ctx context.Context, path, value string, class store.Classification) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.putCalls[path]++
	if err := f.failOn[path]; err != nil {
		return 0, err
	}

	f.versions[path]++
	f.params[path] = store.Parameter{
		Path:           path,
		Value:          value,
		Classification: class,
		Version:        f.versions[path],
		LastModified:   time.Now(),
	}
	return f.versions[path], nil
}

// ListByPrefix implements store.Store. Results are sorted by path; the page
// token is the path to start after.
func (f *FakeStore) ListByPrefix(ctx context.Context, prefix, pageToken string) ([]store.Parameter, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.listCalls++
	if f.listErr != nil {
		return nil, "", f.listErr
	}

	var matching []store.Parameter
	for path, p := range f.params {
		if strings.HasPrefix(path, prefix) {
			matching = append(matching, p)
		}
	}
	sort.Slice(matching, func(i, j int) bool {
		return matching[i].Path < matching[j].Path
	})

	start := 0
	if pageToken != "" {
		for i, p := range matching {
			if p.Path > pageToken {
				start = i
				break
			}
			start = i + 1
		}
	}

	end := start + f.pageSize
	if end > len(matching) {
		end = len(matching)
	}
	page := matching[start:end]

	next := ""
	if end < len(matching) && len(page) > 0 {
		next = page[len(page)-1].Path
	}
	return page, next, nil
}

// Delete implements store.Store.
func (f *FakeStore) Delete(ctx context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.params[path]; !ok {
		return store.NotFoundError{Path: path}
	}
	delete(f.params, path)
	return nil
}

// GetCallCount returns how many times Get was called for path.
func (f *FakeStore) GetCallCount(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.getCalls[path]
}

// PutCallCount returns how many times Put was called for path.
func (f *FakeStore) PutCallCount(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.putCalls[path]
}

// TotalPutCalls returns the number of Put calls across all paths.
func (f *FakeStore) TotalPutCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := 0
	for _, c := range f.putCalls {
		n += c
	}
	return n
}

// ListCallCount returns how many times ListByPrefix was called.
func (f *FakeStore) ListCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls
}

// Parameter returns the currently stored parameter at path.
func (f *FakeStore) Parameter(path string) (store.Parameter, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.params[path]
	return p, ok
}
