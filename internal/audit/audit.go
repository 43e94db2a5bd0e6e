// Package audit emits structured events for every resolution and mutation
// the engine performs. Events carry paths, tiers, and outcomes, never
// parameter values.
package audit

import (
	"time"

	"github.com/systmms/confres/internal/logging"
)

// Event is one audit record. Values are deliberately absent: for Secret
// parameters even a redacted value adds nothing, and for Plain parameters
// the resolution result already reaches the caller.
type Event struct {
	Operation  string // resolve, resolve_prefix, import, export, validate, drift
	Path       string
	SourceTier string
	Outcome    string // hit, miss, found, not_found, degraded, error, written, skipped, conflict
	Duration   time.Duration
}

// Sink receives audit events. Implementations must be safe for concurrent
// use; the engine emits from every resolving goroutine.
type Sink interface {
	Record(e Event)
}

// LogSink writes one debug line per event through the shared logger.
type LogSink struct {
	logger *logging.Logger
}

// NewLogSink creates a sink backed by logger.
func NewLogSink(logger *logging.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Record implements Sink.
func (s *LogSink) Record(e Event) {
	s.logger.Debug("audit op=%s path=%s tier=%s outcome=%s duration=%dms",
		e.Operation, e.Path, e.SourceTier, e.Outcome, e.Duration.Milliseconds())
}

// MultiSink fans an event out to several sinks.
type MultiSink []Sink

// Record implements Sink.
func (m MultiSink) Record(e Event) {
	for _, s := range m {
		s.Record(e)
	}
}

// NopSink discards events. Default when no sink is configured.
type NopSink struct{}

// Record implements Sink.
func (NopSink) Record(Event) {}
