package migrate

import (
	"context"
	"sort"
	"time"

	"github.com/systmms/confres/internal/audit"
	"github.com/systmms/confres/internal/classify"
	crerrors "github.com/systmms/confres/internal/errors"
	"github.com/systmms/confres/internal/logging"
	"github.com/systmms/confres/internal/paths"
	"github.com/systmms/confres/pkg/store"
)

// Action classifies what Import did (or would do, under dry-run) for a key.
type Action int

const (
	ActionSkip Action = iota
	ActionCreate
	ActionUpdate
	ActionConflict
	ActionError
)

// String returns the report label for an action.
func (a Action) String() string {
	switch a {
	case ActionSkip:
		return "skip"
	case ActionCreate:
		return "create"
	case ActionUpdate:
		return "update"
	case ActionConflict:
		return "conflict"
	case ActionError:
		return "error"
	}
	return "unknown"
}

// KeyResult records the outcome for one document parameter. Writes are
// independent per key: a failure is recorded here and the batch continues.
type KeyResult struct {
	Name    string
	Path    string
	Action  Action
	Version int64 // store version after a write, for idempotent retry
	Err     error
}

// ImportReport summarizes an import run in document order.
type ImportReport struct {
	Environment string
	DryRun      bool
	Results     []KeyResult
}

// Writes counts creates and updates (planned ones under dry-run).
func (r *ImportReport) Writes() int {
	n := 0
	for _, res := range r.Results {
		if res.Action == ActionCreate || res.Action == ActionUpdate {
			n++
		}
	}
	return n
}

// Failed counts conflicts and errors.
func (r *ImportReport) Failed() int {
	n := 0
	for _, res := range r.Results {
		if res.Action == ActionConflict || res.Action == ActionError {
			n++
		}
	}
	return n
}

// Tool performs bulk export and import against the backing store. Like the
// validation engine it is single-run and sequential: keys are processed in
// deterministic order and store load stays predictable.
type Tool struct {
	store       store.Store
	application string
	classifier  *classify.Classifier
	logger      *logging.Logger
	sink        audit.Sink
	now         func() time.Time
}

// Option configures a Tool.
type Option func(*Tool)

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(t *Tool) { t.logger = l }
}

// WithAuditSink sets the audit sink.
func WithAuditSink(s audit.Sink) Option {
	return func(t *Tool) { t.sink = s }
}

// WithClock injects the clock stamped into exported documents.
func WithClock(now func() time.Time) Option {
	return func(t *Tool) { t.now = now }
}

// New creates a migration tool for one application's namespace.
func New(st store.Store, application string, classifier *classify.Classifier, opts ...Option) *Tool {
	t := &Tool{
		store:       st,
		application: application,
		classifier:  classifier,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.classifier == nil {
		t.classifier = classify.New()
	}
	if t.logger == nil {
		t.logger = logging.New(false, false)
	}
	if t.sink == nil {
		t.sink = audit.NopSink{}
	}
	return t
}

// Export walks the environment's namespace and builds an export document.
// Parameters are sorted by name so repeated exports diff cleanly.
func (t *Tool) Export(ctx context.Context, environment string) (*Document, error) {
	start := t.now()

	prefix, err := paths.Prefix(environment, t.application)
	if err != nil {
		return nil, err
	}

	doc := &Document{
		Environment: environment,
		Application: t.application,
		ExportedAt:  t.now().UTC(),
	}

	pageToken := ""
	for {
		page, next, err := t.store.ListByPrefix(ctx, prefix, pageToken)
		if err != nil {
			return nil, crerrors.TransientStoreError{Op: "export", Attempts: 1, Err: err}
		}

		for _, param := range page {
			name, nameErr := paths.NameFromPath(param.Path, environment, t.application)
			if nameErr != nil {
				t.logger.Warn("skipping parameter outside namespace: %s", param.Path)
				continue
			}

			entry := DocumentParameter{Name: name}
			if t.isSecret(name, param) {
				entry.Classification = store.Secret.String()
				entry.SecretRef = &SecretRef{Path: param.Path, Version: param.Version}
			} else {
				value := param.Value
				entry.Classification = store.Plain.String()
				entry.Value = &value
			}
			doc.Parameters = append(doc.Parameters, entry)
		}

		if next == "" {
			break
		}
		pageToken = next
	}

	sort.Slice(doc.Parameters, func(i, j int) bool {
		return doc.Parameters[i].Name < doc.Parameters[j].Name
	})

	t.sink.Record(audit.Event{
		Operation: "export",
		Path:      prefix,
		Outcome:   "found",
		Duration:  t.now().Sub(start),
	})
	return doc, nil
}

// Import applies a document to environment. Each key is written
// independently: conflicts and errors are recorded per key and the batch
// continues, because the backing store offers no multi-key transaction.
// With dryRun the full classification and comparison pass runs but nothing
// is written.
func (t *Tool) Import(ctx context.Context, doc *Document, environment string, dryRun bool) (*ImportReport, error) {
	start := t.now()

	report := &ImportReport{Environment: environment, DryRun: dryRun}

	for _, entry := range doc.Parameters {
		result := t.importKey(ctx, entry, environment, doc.Environment, dryRun)
		report.Results = append(report.Results, result)

		t.sink.Record(audit.Event{
			Operation: "import",
			Path:      result.Path,
			Outcome:   result.Action.String(),
		})
	}

	t.sink.Record(audit.Event{
		Operation: "import",
		Path:      "/" + environment + "/" + t.application + "/",
		Outcome:   outcomeLabel(report),
		Duration:  t.now().Sub(start),
	})
	return report, nil
}

func (t *Tool) importKey(ctx context.Context, entry DocumentParameter, environment, sourceEnvironment string, dryRun bool) KeyResult {
	result := KeyResult{Name: entry.Name}

	path, err := paths.Build(environment, t.application, entry.Name)
	if err != nil {
		result.Action = ActionError
		result.Err = err
		return result
	}
	result.Path = path

	current, found, err := t.store.Get(ctx, path)
	if err != nil {
		result.Action = ActionError
		result.Err = crerrors.TransientStoreError{Op: "import", Attempts: 1, Err: err}
		return result
	}

	if entry.SecretRef != nil {
		// Placeholders carry no value, so a secret can only be confirmed
		// unchanged, never written.
		switch {
		case environment != sourceEnvironment:
			result.Action = ActionConflict
			result.Err = crerrors.UserError{
				Message:    "secret placeholder cannot be imported into a different environment",
				Suggestion: "Set the secret directly in the target environment's store",
			}
		case !found:
			result.Action = ActionConflict
			result.Err = crerrors.ImportConflictError{
				Path:            path,
				DocumentVersion: entry.SecretRef.Version,
				StoreVersion:    0,
			}
		case current.Version != entry.SecretRef.Version:
			result.Action = ActionConflict
			result.Err = crerrors.ImportConflictError{
				Path:            path,
				DocumentVersion: entry.SecretRef.Version,
				StoreVersion:    current.Version,
			}
		default:
			result.Action = ActionSkip
			result.Version = current.Version
		}
		return result
	}

	value := *entry.Value
	class := t.classifier.Classify(entry.Name)
	if entry.Classification == store.Secret.String() {
		class = store.Secret
	}

	if found && current.Value == value {
		result.Action = ActionSkip
		result.Version = current.Version
		return result
	}

	if found {
		result.Action = ActionUpdate
	} else {
		result.Action = ActionCreate
	}

	if dryRun {
		return result
	}

	version, err := t.store.Put(ctx, path, value, class)
	if err != nil {
		result.Action = ActionError
		result.Err = crerrors.TransientStoreError{Op: "import", Attempts: 1, Err: err}
		return result
	}
	result.Version = version
	return result
}

func (t *Tool) isSecret(name string, param store.Parameter) bool {
	return param.Classification == store.Secret || t.classifier.Classify(name) == store.Secret
}

func outcomeLabel(report *ImportReport) string {
	if report.Failed() > 0 {
		return "conflict"
	}
	if report.Writes() > 0 {
		return "written"
	}
	return "skipped"
}
