// Package classify labels parameters Plain or Secret and owns the only
// sanctioned path for turning a parameter into loggable text.
package classify

import (
	"strings"

	"github.com/systmms/confres/pkg/store"
)

// RedactedPlaceholder is what Redact returns for Secret-classified values.
// It starts with '<' which no valid parameter value path produces, so it is
// distinguishable from any Plain value the engine hands back.
const RedactedPlaceholder = "<redacted:Secret>"

// defaultPatterns are the name substrings that classify a parameter Secret
// when no override says otherwise. Matched case-insensitively against the
// whole parameter name, in declaration order.
var defaultPatterns = []string{
	"password",
	"secret",
	"token",
	"credential",
	"key",
}

// Override pins an exact parameter name to a classification, taking
// precedence over pattern inference.
type Override struct {
	Name           string
	Classification store.Classification
}

// Classifier decides the security label for parameter names. It is immutable
// after construction and safe for concurrent use.
type Classifier struct {
	overrides map[string]store.Classification
	patterns  []string
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithPatterns replaces the default Secret name patterns.
func WithPatterns(patterns []string) Option {
	return func(c *Classifier) {
		c.patterns = patterns
	}
}

// WithOverrides adds explicit name overrides. Later entries for the same
// name win, matching the ordered-list semantics of the configuration file.
func WithOverrides(overrides []Override) Option {
	return func(c *Classifier) {
		for _, o := range overrides {
			c.overrides[o.Name] = o.Classification
		}
	}
}

// New builds a Classifier with the default pattern table.
func New(opts ...Option) *Classifier {
	c := &Classifier{
		overrides: make(map[string]store.Classification),
		patterns:  defaultPatterns,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify returns the label for a parameter name. Overrides are consulted
// first, then patterns in declaration order, else Plain.
func (c *Classifier) Classify(name string) store.Classification {
	if class, ok := c.overrides[name]; ok {
		return class
	}
	lower := strings.ToLower(name)
	for _, pattern := range c.patterns {
		if strings.Contains(lower, pattern) {
			return store.Secret
		}
	}
	return store.Plain
}

// Redact returns the loggable representation of a parameter: the raw value
// for Plain, RedactedPlaceholder for Secret. All log, audit, and report
// formatting must go through here.
func (c *Classifier) Redact(p store.Parameter) string {
	if p.Classification == store.Secret {
		return RedactedPlaceholder
	}
	return p.Value
}
