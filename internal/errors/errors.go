// Package errors defines the typed error taxonomy for confres.
//
// Library callers branch on these types with errors.As; the CLI maps them to
// exit codes and human-readable summaries. None of them ever carry a
// Secret-classified value.
package errors

import (
	"errors"
	"fmt"
	"strings"

	"github.com/systmms/confres/pkg/store"
)

// UserError represents an error that should be shown to the user with helpful context.
type UserError struct {
	Message    string
	Suggestion string
	Details    string
	Err        error
}

func (e UserError) Error() string {
	var parts []string

	if e.Message != "" {
		parts = append(parts, e.Message)
	} else if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}

	if e.Details != "" {
		parts = append(parts, "\n  Details: "+e.Details)
	}

	if e.Suggestion != "" {
		parts = append(parts, "\n  💡 Try: "+e.Suggestion)
	}

	return strings.Join(parts, "")
}

func (e UserError) Unwrap() error {
	return e.Err
}

// ConfigError represents a configuration error with helpful context.
type ConfigError struct {
	Field      string
	Value      interface{}
	Message    string
	Suggestion string
}

func (e ConfigError) Error() string {
	msg := "Configuration error"
	if e.Field != "" {
		msg += fmt.Sprintf(" in field '%s'", e.Field)
	}
	if e.Value != nil {
		msg += fmt.Sprintf(" (value: %v)", e.Value)
	}
	msg += ": " + e.Message

	if e.Suggestion != "" {
		msg += "\n  💡 " + e.Suggestion
	}

	return msg
}

// InvalidPathError means a path component failed validation. This is a
// caller bug, never retried.
type InvalidPathError struct {
	Component string
	Value     string
	Reason    string
}

func (e InvalidPathError) Error() string {
	return fmt.Sprintf("invalid path %s %q: %s", e.Component, e.Value, e.Reason)
}

// NotFoundError means every tier of the fallback chain was exhausted.
// Attempted lists the tiers tried, in order, to aid diagnosis.
type NotFoundError struct {
	Path      string
	Attempted []string
}

func (e NotFoundError) Error() string {
	if len(e.Attempted) == 0 {
		return fmt.Sprintf("parameter not found: %s", e.Path)
	}
	return fmt.Sprintf("parameter not found: %s (tried %s)", e.Path, strings.Join(e.Attempted, ", "))
}

// TransientStoreError means the backing store could not be reached after the
// bounded retry policy. The engine degrades to fallback tiers when it sees
// one; it surfaces only when no fallback tier could satisfy the call either,
// or for operations with no fallback (migration, validation).
type TransientStoreError struct {
	Op       string
	Attempts int
	Err      error
}

func (e TransientStoreError) Error() string {
	return fmt.Sprintf("backing store unreachable during %s after %d attempts: %v", e.Op, e.Attempts, e.Err)
}

func (e TransientStoreError) Unwrap() error {
	return e.Err
}

// ClassificationMismatchError means a caller asserted a parameter was Plain
// but the classifier labels it Secret. Always fatal to the call: proceeding
// would risk logging a sensitive value under the assumption it is safe.
type ClassificationMismatchError struct {
	Path     string
	Asserted string
	Actual   string
}

func (e ClassificationMismatchError) Error() string {
	return fmt.Sprintf("classification mismatch for %s: requested as %s but classified %s", e.Path, e.Asserted, e.Actual)
}

// ImportConflictError means a migration write found a different version in
// the store than the document recorded. Reported per key; the batch
// continues past it.
type ImportConflictError struct {
	Path            string
	DocumentVersion int64
	StoreVersion    int64
}

func (e ImportConflictError) Error() string {
	return fmt.Sprintf("import conflict for %s: document has version %d, store has %d", e.Path, e.DocumentVersion, e.StoreVersion)
}

// IsRetryable reports whether an error looks like a transient availability
// failure worth retrying. Typed transient errors (ours, or the store
// implementation's) match directly; anything else falls back to message
// patterns.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var transient TransientStoreError
	if errors.As(err, &transient) {
		return true
	}

	var storeTransient store.TransientError
	if errors.As(err, &storeTransient) {
		return true
	}

	errStr := strings.ToLower(err.Error())
	retryablePatterns := []string{
		"timeout",
		"temporary failure",
		"connection reset",
		"connection refused",
		"broken pipe",
		"rate limit",
		"throttl",
		"too many requests",
		"service unavailable",
	}

	for _, pattern := range retryablePatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	return false
}
