// Package engine implements the resolution priority chain:
// Cache → Remote Store → EnvVar → StaticDefault → NotFound.
//
// One Engine is created per process with a fixed environment and
// application; it exclusively owns its cache. Many goroutines may call
// Resolve concurrently. Cold lookups for the same key collapse into a single
// remote call, transient store failures degrade to the local tiers after a
// bounded retry, and Secret-classified parameters never fall through to the
// static defaults tier.
package engine

import (
	"context"
	"time"

	"github.com/systmms/confres/internal/audit"
	"github.com/systmms/confres/internal/cache"
	"github.com/systmms/confres/internal/classify"
	crerrors "github.com/systmms/confres/internal/errors"
	"github.com/systmms/confres/internal/logging"
	"github.com/systmms/confres/internal/paths"
	"github.com/systmms/confres/pkg/store"
)

// ResolutionResult is what callers get back from Resolve. SourceTier is
// always surfaced so operators can tell an authoritative read from a local
// fallback during incident diagnosis.
type ResolutionResult struct {
	Value          string
	SourceTier     cache.Tier
	Path           string
	Classification store.Classification
	Version        int64
	Timestamp      time.Time
}

// Engine orchestrates the priority chain. Construct with New; the zero
// value is not usable.
type Engine struct {
	store       store.Store
	cache       *cache.Cache
	classifier  *classify.Classifier
	logger      *logging.Logger
	sink        audit.Sink
	environment string
	application string
	prefix      string

	defaults map[string]string

	remoteTTL    time.Duration
	negativeTTL  time.Duration
	localTTL     time.Duration
	storeTimeout time.Duration

	lookupEnv func(string) (string, bool)
	sleep     sleepFunc
	now       func() time.Time

	flight *flightGroup
}

// Option configures an Engine.
type Option func(*Engine)

// WithCache substitutes a pre-built cache (tests inject one with a fake
// clock). The engine still owns it exclusively.
func WithCache(c *cache.Cache) Option {
	return func(e *Engine) { e.cache = c }
}

// WithClassifier substitutes the security classifier.
func WithClassifier(c *classify.Classifier) Option {
	return func(e *Engine) { e.classifier = c }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithAuditSink sets the audit sink. Defaults to a no-op sink.
func WithAuditSink(s audit.Sink) Option {
	return func(e *Engine) { e.sink = s }
}

// WithTTLs overrides the cache TTLs per source tier.
func WithTTLs(remote, negative, local time.Duration) Option {
	return func(e *Engine) {
		e.remoteTTL = remote
		e.negativeTTL = negative
		e.localTTL = local
	}
}

// WithStoreTimeout bounds each individual remote call.
func WithStoreTimeout(d time.Duration) Option {
	return func(e *Engine) { e.storeTimeout = d }
}

// WithDefaults provides the static defaults map, normally loaded once at
// startup via LoadDefaultsFile.
func WithDefaults(defaults map[string]string) Option {
	return func(e *Engine) { e.defaults = defaults }
}

// WithLookupEnv substitutes process environment lookup (for tests).
func WithLookupEnv(fn func(string) (string, bool)) Option {
	return func(e *Engine) { e.lookupEnv = fn }
}

// WithSleep substitutes the backoff sleeper so retry tests run without
// real delays.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(e *Engine) { e.sleep = fn }
}

// WithClock injects the engine's clock.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New creates an Engine resolving under /{environment}/{application}/.
func New(st store.Store, environment, application string, opts ...Option) (*Engine, error) {
	prefix, err := paths.Prefix(environment, application)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		store:        st,
		environment:  environment,
		application:  application,
		prefix:       prefix,
		remoteTTL:    60 * time.Second,
		negativeTTL:  30 * time.Second,
		localTTL:     time.Hour,
		storeTimeout: 3 * time.Second,
		flight:       newFlightGroup(),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.cache == nil {
		e.cache = cache.New()
	}
	if e.classifier == nil {
		e.classifier = classify.New()
	}
	if e.logger == nil {
		e.logger = logging.New(false, false)
	}
	if e.sink == nil {
		e.sink = audit.NopSink{}
	}
	if e.lookupEnv == nil {
		e.lookupEnv = lookupOSEnv
	}
	if e.sleep == nil {
		e.sleep = realSleep
	}
	if e.now == nil {
		e.now = time.Now
	}

	return e, nil
}

// Classifier exposes the engine's classifier so the CLI and reports redact
// through the same rules the engine resolves with.
func (e *Engine) Classifier() *classify.Classifier {
	return e.classifier
}

// Environment returns the fixed environment this engine resolves in.
func (e *Engine) Environment() string { return e.environment }

// Application returns the fixed application this engine resolves for.
func (e *Engine) Application() string { return e.application }

// Resolve walks the priority chain for name and returns the first tier that
// has it.
func (e *Engine) Resolve(ctx context.Context, name string) (ResolutionResult, error) {
	return e.resolve(ctx, name, false)
}

// ResolvePlain is Resolve with a caller assertion that the parameter is
// Plain (safe to log or display). If the classifier labels it Secret the
// call fails with ClassificationMismatchError instead of handing back a
// value the caller believes is loggable.
func (e *Engine) ResolvePlain(ctx context.Context, name string) (ResolutionResult, error) {
	if class := e.classifier.Classify(name); class == store.Secret {
		path, _ := paths.Build(e.environment, e.application, name)
		return ResolutionResult{}, crerrors.ClassificationMismatchError{
			Path:     path,
			Asserted: store.Plain.String(),
			Actual:   store.Secret.String(),
		}
	}
	return e.resolve(ctx, name, false)
}

// ResolveSecret resolves a parameter that the caller requires to be present
// and sensitive. Absence is always a hard NotFoundError: a required secret
// is never satisfied from the static defaults tier.
func (e *Engine) ResolveSecret(ctx context.Context, name string) (ResolutionResult, error) {
	return e.resolve(ctx, name, true)
}

func (e *Engine) resolve(ctx context.Context, name string, requireSecret bool) (ResolutionResult, error) {
	start := e.now()

	path, err := paths.Build(e.environment, e.application, name)
	if err != nil {
		return ResolutionResult{}, err
	}

	class := e.classifier.Classify(name)
	// A Secret-classified parameter never falls through to static
	// defaults, whether or not the caller asked for a secret explicitly.
	secretChain := requireSecret || class == store.Secret

	result, err := e.resolveChain(ctx, name, path, class, secretChain)

	outcome := "found"
	tier := ""
	if err != nil {
		outcome = "not_found"
		if _, isNotFound := err.(crerrors.NotFoundError); !isNotFound {
			outcome = "error"
		}
	} else {
		tier = result.SourceTier.String()
	}
	e.sink.Record(audit.Event{
		Operation:  "resolve",
		Path:       path,
		SourceTier: tier,
		Outcome:    outcome,
		Duration:   e.now().Sub(start),
	})

	return result, err
}

func (e *Engine) resolveChain(ctx context.Context, name, path string, class store.Classification, secretChain bool) (ResolutionResult, error) {
	attempted := []string{"Cache"}

	// Tier 1: cache, positive or negative.
	if entry, hit := e.cache.Get(path); hit {
		if entry.Negative {
			// Remote absence is still fresh; local tiers were already
			// exhausted when this marker was written (a local hit would
			// have overwritten it).
			return ResolutionResult{}, crerrors.NotFoundError{Path: path, Attempted: attempted}
		}
		return ResolutionResult{
			Value:          entry.Parameter.Value,
			SourceTier:     cache.TierCache,
			Path:           path,
			Classification: entry.Parameter.Classification,
			Version:        entry.Parameter.Version,
			Timestamp:      e.now(),
		}, nil
	}

	// Tier 2: remote store, with bounded retry and request collapsing.
	attempted = append(attempted, "Remote")
	var remoteErr error
	out := e.remoteFetch(ctx, path)
	switch {
	case out.err == nil && out.found:
		p := out.param
		if p.Classification == store.Secret && class == store.Plain {
			// The store holds this encrypted but our rules would treat it
			// as loggable. Refuse rather than risk leaking it downstream.
			return ResolutionResult{}, crerrors.ClassificationMismatchError{
				Path:     path,
				Asserted: store.Plain.String(),
				Actual:   store.Secret.String(),
			}
		}
		p.Classification = class
		e.cache.Put(path, p, cache.TierRemote, e.remoteTTL)
		return ResolutionResult{
			Value:          p.Value,
			SourceTier:     cache.TierRemote,
			Path:           path,
			Classification: class,
			Version:        p.Version,
			Timestamp:      e.now(),
		}, nil

	case out.err == nil:
		// Confirmed absence is a normal outcome here; remember it so the
		// next resolution inside the TTL skips the remote round trip.
		e.cache.PutNegative(path, e.negativeTTL)

	default:
		// Transient failure: never cached, but recorded as a degradation
		// before we fall back to the local tiers.
		remoteErr = out.err
		e.logger.Warn("remote store degraded for %s: %v", path, out.err)
		e.sink.Record(audit.Event{
			Operation:  "resolve",
			Path:       path,
			SourceTier: cache.TierRemote.String(),
			Outcome:    "degraded",
		})
	}

	// Tier 3: process environment.
	attempted = append(attempted, "EnvVar")
	envName := EnvVarName(e.application, name)
	if value, ok := e.lookupEnv(envName); ok {
		p := store.Parameter{Path: path, Value: value, Classification: class}
		e.cache.Put(path, p, cache.TierEnvVar, e.localTTL)
		return ResolutionResult{
			Value:          value,
			SourceTier:     cache.TierEnvVar,
			Path:           path,
			Classification: class,
			Timestamp:      e.now(),
		}, nil
	}

	// Tier 4: static defaults. Skipped for secrets: a default value for a
	// credential is a misconfiguration, not a fallback.
	if !secretChain {
		attempted = append(attempted, "StaticDefault")
		if value, ok := e.defaults[name]; ok {
			p := store.Parameter{Path: path, Value: value, Classification: class}
			e.cache.Put(path, p, cache.TierStaticDefault, e.localTTL)
			return ResolutionResult{
				Value:          value,
				SourceTier:     cache.TierStaticDefault,
				Path:           path,
				Classification: class,
				Timestamp:      e.now(),
			}, nil
		}
	}

	if remoteErr != nil {
		// The store was down and nothing local could answer. Surfacing the
		// transient error (not a not-found) lets callers distinguish
		// "unreachable" from "genuinely absent".
		return ResolutionResult{}, remoteErr
	}
	return ResolutionResult{}, crerrors.NotFoundError{Path: path, Attempted: attempted}
}

// ResolveByPrefix resolves every parameter discovered under the given name
// prefix: keys listed by the remote store plus names in the static defaults
// file. Each key goes through the full priority chain. Iteration order of
// the returned map carries no meaning.
func (e *Engine) ResolveByPrefix(ctx context.Context, prefix string) (map[string]ResolutionResult, error) {
	start := e.now()

	if prefix != "" {
		if err := paths.ValidateNamePrefix(prefix); err != nil {
			return nil, err
		}
	}

	names := make(map[string]struct{})

	pathPrefix := e.prefix + prefix
	pageToken := ""
	for {
		page, next, err := e.listRemote(ctx, pathPrefix, pageToken)
		if err != nil {
			// Degraded listing: fall back to locally discoverable names.
			e.logger.Warn("remote listing degraded for %s: %v", pathPrefix, err)
			e.sink.Record(audit.Event{
				Operation:  "resolve_prefix",
				Path:       pathPrefix,
				SourceTier: cache.TierRemote.String(),
				Outcome:    "degraded",
			})
			break
		}
		for _, p := range page {
			name, nameErr := paths.NameFromPath(p.Path, e.environment, e.application)
			if nameErr != nil {
				continue
			}
			names[name] = struct{}{}
		}
		if next == "" {
			break
		}
		pageToken = next
	}

	for name := range e.defaults {
		if prefix == "" || hasNamePrefix(name, prefix) {
			names[name] = struct{}{}
		}
	}

	results := make(map[string]ResolutionResult, len(names))
	for name := range names {
		result, err := e.resolve(ctx, name, false)
		if err != nil {
			continue
		}
		results[name] = result
	}

	e.sink.Record(audit.Event{
		Operation: "resolve_prefix",
		Path:      pathPrefix,
		Outcome:   "found",
		Duration:  e.now().Sub(start),
	})
	return results, nil
}

// InvalidateEnvironment drops every cached entry under this engine's
// namespace. Called after migration writes touch the environment.
func (e *Engine) InvalidateEnvironment() {
	e.cache.InvalidatePrefix(e.prefix)
}

func hasNamePrefix(name, prefix string) bool {
	if len(name) < len(prefix) {
		return false
	}
	return name[:len(prefix)] == prefix
}
