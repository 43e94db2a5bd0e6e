// Package migrate moves configuration in bulk between the backing store and
// a local YAML document: export for backup or review, import to seed or
// reconcile an environment.
//
// Exported documents are safe to commit to version control: Secret values
// are replaced with a placeholder reference to their path and version, never
// the raw value.
package migrate

import (
	"time"

	crerrors "github.com/systmms/confres/internal/errors"
	"gopkg.in/yaml.v3"
)

// Document is the serialized export format.
type Document struct {
	Environment string              `yaml:"environment"`
	Application string              `yaml:"application"`
	ExportedAt  time.Time           `yaml:"exportedAt"`
	Parameters  []DocumentParameter `yaml:"parameters"`
}

// DocumentParameter is one exported parameter. Exactly one of Value and
// SecretRef is set: Plain entries carry their value (a pointer so an
// explicit empty string survives the round trip), Secret entries carry only
// a placeholder reference.
type DocumentParameter struct {
	Name           string     `yaml:"name"`
	Classification string     `yaml:"classification"`
	Value          *string    `yaml:"value,omitempty"`
	SecretRef      *SecretRef `yaml:"secretRef,omitempty"`
}

// SecretRef is the placeholder written in place of a Secret value.
type SecretRef struct {
	Path    string `yaml:"path"`
	Version int64  `yaml:"version"`
}

// Marshal serializes the document to YAML.
func (d *Document) Marshal() ([]byte, error) {
	return yaml.Marshal(d)
}

// ParseDocument deserializes and sanity-checks an export document.
func ParseDocument(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, crerrors.ConfigError{
			Field:      "document",
			Message:    "invalid YAML in import document",
			Suggestion: "The file must be a confres export document",
		}
	}
	if doc.Environment == "" || doc.Application == "" {
		return nil, crerrors.ConfigError{
			Field:      "document",
			Message:    "import document is missing environment or application",
			Suggestion: "Only documents produced by 'confres export' can be imported",
		}
	}
	for _, p := range doc.Parameters {
		if p.Value == nil && p.SecretRef == nil {
			return nil, crerrors.ConfigError{
				Field:      "parameters",
				Value:      p.Name,
				Message:    "parameter has neither a value nor a secretRef",
				Suggestion: "Re-export the document; it appears hand-edited or truncated",
			}
		}
	}
	return &doc, nil
}
