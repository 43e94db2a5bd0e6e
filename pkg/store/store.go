// Package store defines the interface to the backing hierarchical key-value
// store and the parameter model shared across the engine.
//
// confres consumes exactly one authoritative store per process. The engine,
// the validation tooling, and the migration tooling all talk to it through
// the Store interface so that tests can substitute an in-memory fake and so
// the concrete backend (AWS SSM Parameter Store, see internal/storeaws) stays
// behind a narrow seam.
//
// Implementations must be safe for concurrent use: many goroutines resolve
// configuration simultaneously and share one client.
package store

import (
	"context"
	"time"
)

// Classification is the security label attached to a parameter. It decides
// how the value is stored (encrypted or not), and whether the value may ever
// appear in logs, reports, or exported documents.
type Classification int

const (
	// Plain parameters are non-sensitive. Their values may be logged,
	// diffed across environments, and exported verbatim.
	Plain Classification = iota

	// Secret parameters are sensitive. Their values are stored through an
	// encrypting code path and never appear outside the process: logs,
	// drift reports, and exports only ever see the path and version.
	Secret
)

// String returns the label used in logs, reports, and serialized documents.
func (c Classification) String() string {
	if c == Secret {
		return "Secret"
	}
	return "Plain"
}

// ParseClassification maps a serialized label back to its Classification.
func ParseClassification(s string) (Classification, bool) {
	switch s {
	case "Plain":
		return Plain, true
	case "Secret":
		return Secret, true
	}
	return Plain, false
}

// Parameter is a single configuration value as held by the backing store.
//
// The zero-length value is valid and distinct from absence: a store Get that
// finds an empty string reports found=true with Value == "".
type Parameter struct {
	// Path is the fully qualified hierarchical key,
	// /{environment}/{application}/{name}. Immutable once created.
	Path string

	// Value is the payload. Never log this directly for Secret-classified
	// parameters; go through classify.Redact.
	Value string

	// Classification labels the parameter Plain or Secret.
	Classification Classification

	// Version is the store-assigned, monotonically increasing version for
	// this path. Used for optimistic conflict detection during migration.
	Version int64

	// LastModified is the store's modification timestamp, zero if the
	// backend does not report one.
	LastModified time.Time
}

// Store is the narrow client interface onto the backing hierarchical store.
//
// Every method distinguishes "the key does not exist" from "the store could
// not be reached": Get reports absence via found=false with a nil error,
// and a non-nil error always means the outcome is unknown. Callers depend on
// that distinction to decide between negative caching and degraded fallback.
type Store interface {
	// Get fetches the parameter at path. found=false with nil error means
	// confirmed absence.
	Get(ctx context.Context, path string) (Parameter, bool, error)

	// Put writes value at path with the given classification and returns
	// the new store version. Secret-classified writes must go through the
	// store's encrypting code path.
	Put(ctx context.Context, path, value string, class Classification) (int64, error)

	// ListByPrefix returns one page of parameters under prefix plus the
	// token for the next page; an empty next token ends the listing.
	ListByPrefix(ctx context.Context, prefix, pageToken string) ([]Parameter, string, error)

	// Delete removes the parameter at path. Deleting an absent path is an
	// error.
	Delete(ctx context.Context, path string) error
}

// NotFoundError is returned by Store implementations for operations that
// require the key to exist (for example Delete).
type NotFoundError struct {
	Path string
}

func (e NotFoundError) Error() string {
	return "parameter not found: " + e.Path
}

// TransientError wraps a network or availability failure talking to the
// backing store. The engine retries these with bounded backoff and then
// degrades to fallback tiers; it never caches them.
type TransientError struct {
	Op  string
	Err error
}

func (e TransientError) Error() string {
	return "store " + e.Op + " failed: " + e.Err.Error()
}

func (e TransientError) Unwrap() error {
	return e.Err
}
