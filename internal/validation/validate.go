package validation

import (
	"context"
	"time"

	"github.com/systmms/confres/internal/audit"
	crerrors "github.com/systmms/confres/internal/errors"
	"github.com/systmms/confres/internal/logging"
	"github.com/systmms/confres/internal/paths"
	"github.com/systmms/confres/pkg/store"
)

// Status classifies the outcome for one schema entry.
type Status int

const (
	StatusValid Status = iota
	StatusMissing
	StatusInvalid
)

// String returns the report label for a status.
func (s Status) String() string {
	switch s {
	case StatusValid:
		return "valid"
	case StatusMissing:
		return "missing"
	case StatusInvalid:
		return "invalid"
	}
	return "unknown"
}

// EntryResult records the outcome for one schema entry in one environment.
type EntryResult struct {
	Name   string
	Status Status
	// Detail explains invalid results. For Secret entries it only ever
	// contains schema-violation text, never the value itself; Secret
	// entries are checked for presence only.
	Detail string
}

// Report is the outcome of validating one environment against the schema.
// Results appear in schema declaration order.
type Report struct {
	Environment string
	Results     []EntryResult
}

// HasFindings reports whether anything other than valid entries was found.
func (r *Report) HasFindings() bool {
	for _, res := range r.Results {
		if res.Status != StatusValid {
			return true
		}
	}
	return false
}

// Counts returns the number of valid, missing, and invalid entries.
func (r *Report) Counts() (valid, missing, invalid int) {
	for _, res := range r.Results {
		switch res.Status {
		case StatusValid:
			valid++
		case StatusMissing:
			missing++
		case StatusInvalid:
			invalid++
		}
	}
	return
}

// Engine runs schema validation and drift detection. It reads the store
// directly: unlike resolution it must see exactly what is authoritative,
// with no cache or local fallback in the way. Single-run, sequential by
// design: output ordering is deterministic and store load stays predictable.
type Engine struct {
	store       store.Store
	application string
	logger      *logging.Logger
	sink        audit.Sink
	now         func() time.Time
}

// Option configures a validation Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithAuditSink sets the audit sink.
func WithAuditSink(s audit.Sink) Option {
	return func(e *Engine) { e.sink = s }
}

// WithClock injects the clock used for audit event durations.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New creates a validation engine for one application's namespace.
func New(st store.Store, application string, opts ...Option) *Engine {
	e := &Engine{
		store:       st,
		application: application,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logging.New(false, false)
	}
	if e.sink == nil {
		e.sink = audit.NopSink{}
	}
	return e
}

// ValidateEnvironment checks every schema entry required in environment:
// missing, present-but-failing-predicate, or present-and-valid.
func (e *Engine) ValidateEnvironment(ctx context.Context, environment string, schema *Schema) (*Report, error) {
	start := e.now()
	report := &Report{Environment: environment}

	for i := range schema.Entries {
		entry := &schema.Entries[i]
		if !entry.RequiredInEnvironment(environment) {
			continue
		}

		path, err := paths.Build(environment, e.application, entry.Name)
		if err != nil {
			return nil, err
		}

		param, found, err := e.store.Get(ctx, path)
		if err != nil {
			return nil, crerrors.TransientStoreError{Op: "validate", Attempts: 1, Err: err}
		}

		result := EntryResult{Name: entry.Name}
		switch {
		case !found:
			result.Status = StatusMissing
		case entry.Classify() == store.Secret:
			// Presence is all we check for secrets; running a value
			// predicate would pull the raw value into the report path.
			result.Status = StatusValid
		default:
			if ok, detail := entry.Validate(param.Value); ok {
				result.Status = StatusValid
			} else {
				result.Status = StatusInvalid
				result.Detail = detail
			}
		}
		report.Results = append(report.Results, result)
	}

	e.sink.Record(audit.Event{
		Operation: "validate",
		Path:      "/" + environment + "/" + e.application,
		Outcome:   outcomeFor(report.HasFindings()),
		Duration:  e.now().Sub(start),
	})
	return report, nil
}

func outcomeFor(findings bool) string {
	if findings {
		return "findings"
	}
	return "clean"
}
