// Package validation checks environments against a declarative schema and
// detects configuration drift between environments.
package validation

import (
	"encoding/json"
	"fmt"
	"os"

	crerrors "github.com/systmms/confres/internal/errors"
	"github.com/systmms/confres/pkg/store"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// SchemaEntry declares one expected parameter. Schema, when present, is a
// JSON Schema applied to the value; the value is always presented to the
// schema as a JSON string, so constraints use "type": "string" with
// pattern, enum, minLength, and similar keywords.
type SchemaEntry struct {
	Name           string   `yaml:"name"`
	Classification string   `yaml:"classification"` // Plain or Secret
	RequiredIn     []string `yaml:"required_in"`
	Schema         string   `yaml:"schema,omitempty"`

	compiled *gojsonschema.Schema `yaml:"-"`
}

// RequiredInEnvironment reports whether this entry must exist in env.
func (s *SchemaEntry) RequiredInEnvironment(env string) bool {
	for _, e := range s.RequiredIn {
		if e == env {
			return true
		}
	}
	return false
}

// Validate applies the entry's JSON Schema predicate to value. Entries
// without a schema accept every value.
func (s *SchemaEntry) Validate(value string) (bool, string) {
	if s.compiled == nil {
		return true, ""
	}

	encoded, err := json.Marshal(value)
	if err != nil {
		return false, err.Error()
	}
	result, err := s.compiled.Validate(gojsonschema.NewStringLoader(string(encoded)))
	if err != nil {
		return false, err.Error()
	}
	if result.Valid() {
		return true, ""
	}

	detail := ""
	for _, desc := range result.Errors() {
		if detail != "" {
			detail += "; "
		}
		detail += desc.String()
	}
	return false, detail
}

// Classify returns the entry's declared classification.
func (s *SchemaEntry) Classify() store.Classification {
	class, _ := store.ParseClassification(s.Classification)
	return class
}

// Schema is the ordered list of declared entries. Order is preserved from
// the schema file so validation and drift reports are deterministic.
type Schema struct {
	Entries []SchemaEntry `yaml:"entries"`
}

// LoadSchemaFile reads and compiles a schema YAML document.
func LoadSchemaFile(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, crerrors.UserError{
			Message:    fmt.Sprintf("Failed to read schema file %s", path),
			Details:    err.Error(),
			Suggestion: "Check the schema_file path in confres.yaml",
			Err:        err,
		}
	}
	return ParseSchema(data)
}

// ParseSchema parses and compiles schema YAML.
func ParseSchema(data []byte) (*Schema, error) {
	var schema Schema
	if err := yaml.Unmarshal(data, &schema); err != nil {
		return nil, crerrors.ConfigError{
			Field:      "schema",
			Message:    "invalid YAML in schema document",
			Suggestion: "Check for indentation errors and missing quotes",
		}
	}

	for i := range schema.Entries {
		entry := &schema.Entries[i]
		if entry.Name == "" {
			return nil, crerrors.ConfigError{
				Field:   "entries",
				Message: fmt.Sprintf("schema entry %d has no name", i),
			}
		}
		if entry.Classification != "Plain" && entry.Classification != "Secret" {
			return nil, crerrors.ConfigError{
				Field:      "classification",
				Value:      entry.Classification,
				Message:    fmt.Sprintf("invalid classification for schema entry '%s'", entry.Name),
				Suggestion: "Use 'Plain' or 'Secret'",
			}
		}
		if entry.Schema != "" {
			compiled, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(entry.Schema))
			if err != nil {
				return nil, crerrors.ConfigError{
					Field:      "schema",
					Value:      entry.Name,
					Message:    "entry validator is not a valid JSON Schema",
					Suggestion: "Check the inline JSON Schema document for this entry",
				}
			}
			entry.compiled = compiled
		}
	}

	return &schema, nil
}
