// Package config loads the confres.yaml runtime configuration: which
// environment and application this process resolves for, how to reach the
// backing store, cache TTL tunables, and classification rules.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	crerrors "github.com/systmms/confres/internal/errors"
	"github.com/systmms/confres/internal/logging"
	"gopkg.in/yaml.v3"
)

// Config holds the runtime configuration
type Config struct {
	Path           string
	Logger         *logging.Logger
	NonInteractive bool
	Definition     *Definition
}

// Definition represents the confres.yaml structure.
type Definition struct {
	Version     int            `yaml:"version"`
	Environment string         `yaml:"environment"`
	Application string         `yaml:"application"`
	// Environments is the closed set of namespace roots this deployment
	// knows about. validate and drift reject anything outside it.
	Environments []string       `yaml:"environments"`
	Store        StoreConfig    `yaml:"store"`
	Cache        CacheConfig    `yaml:"cache,omitempty"`
	Classify     ClassifyConfig `yaml:"classification,omitempty"`
	DefaultsFile string         `yaml:"defaults_file,omitempty"`
	SchemaFile   string         `yaml:"schema_file,omitempty"`
}

// StoreConfig holds backing-store connection settings.
type StoreConfig struct {
	Type       string `yaml:"type"` // currently aws-ssm
	Region     string `yaml:"region,omitempty"`
	Profile    string `yaml:"profile,omitempty"`
	AssumeRole string `yaml:"assume_role,omitempty"`
	TimeoutMs  int    `yaml:"timeout_ms,omitempty"` // per remote call (default: 3000)
}

// Timeout returns the per-call store timeout.
func (s StoreConfig) Timeout() time.Duration {
	if s.TimeoutMs <= 0 {
		return 3 * time.Second
	}
	return time.Duration(s.TimeoutMs) * time.Millisecond
}

// CacheConfig holds TTL tunables. Zero values fall back to the defaults
// documented on each field.
type CacheConfig struct {
	RemoteTTLSeconds   int `yaml:"remote_ttl_seconds,omitempty"`   // default 60
	NegativeTTLSeconds int `yaml:"negative_ttl_seconds,omitempty"` // default 30
	LocalTTLSeconds    int `yaml:"local_ttl_seconds,omitempty"`    // EnvVar/StaticDefault, default 3600
}

// RemoteTTL favors freshness: remote values can change underneath us.
func (c CacheConfig) RemoteTTL() time.Duration {
	if c.RemoteTTLSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.RemoteTTLSeconds) * time.Second
}

// NegativeTTL bounds how long a confirmed absence is remembered.
func (c CacheConfig) NegativeTTL() time.Duration {
	if c.NegativeTTLSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.NegativeTTLSeconds) * time.Second
}

// LocalTTL covers env-var and static-default sourced entries, which are
// immutable for the process lifetime.
func (c CacheConfig) LocalTTL() time.Duration {
	if c.LocalTTLSeconds <= 0 {
		return time.Hour
	}
	return time.Duration(c.LocalTTLSeconds) * time.Second
}

// ClassifyConfig customizes the security classifier.
type ClassifyConfig struct {
	// Patterns replaces the default Secret name substrings when non-empty.
	Patterns []string `yaml:"patterns,omitempty"`
	// Overrides pin exact names to a classification, taking precedence
	// over pattern inference. Evaluated as an ordered list.
	Overrides []OverrideConfig `yaml:"overrides,omitempty"`
}

// OverrideConfig is one explicit name-to-classification entry.
type OverrideConfig struct {
	Name           string `yaml:"name"`
	Classification string `yaml:"classification"` // Plain or Secret
}

// Load reads and parses the confres.yaml file
func (c *Config) Load() error {
	data, err := os.ReadFile(c.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return crerrors.ConfigError{
				Field:      "path",
				Value:      c.Path,
				Message:    "configuration file not found",
				Suggestion: "Create a confres.yaml or point --config at one",
			}
		}
		return crerrors.UserError{
			Message:    "Failed to read configuration file",
			Details:    err.Error(),
			Suggestion: "Check file permissions and path",
			Err:        err,
		}
	}

	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return crerrors.ConfigError{
			Message:    "invalid YAML syntax in configuration file",
			Suggestion: "Check for indentation errors, missing quotes, or invalid characters. Use a YAML validator",
		}
	}

	if def.Version != 0 {
		return crerrors.ConfigError{
			Field:      "version",
			Value:      def.Version,
			Message:    "unsupported configuration version",
			Suggestion: "Set 'version: 0' at the top of your confres.yaml file",
		}
	}

	if def.Environment == "" {
		return crerrors.ConfigError{
			Field:      "environment",
			Message:    "environment is required",
			Suggestion: "Set 'environment: dev' (or uat, prod) in confres.yaml",
		}
	}
	if def.Application == "" {
		return crerrors.ConfigError{
			Field:      "application",
			Message:    "application is required",
			Suggestion: "Set 'application: <service-name>' in confres.yaml",
		}
	}

	for _, o := range def.Classify.Overrides {
		if o.Classification != "Plain" && o.Classification != "Secret" {
			return crerrors.ConfigError{
				Field:      "classification.overrides",
				Value:      o.Classification,
				Message:    fmt.Sprintf("invalid classification for override '%s'", o.Name),
				Suggestion: "Use 'Plain' or 'Secret'",
			}
		}
	}

	c.Definition = &def
	return nil
}

// KnownEnvironment reports whether name is in the configured closed set of
// environments. An empty set accepts anything.
func (c *Config) KnownEnvironment(name string) bool {
	if c.Definition == nil || len(c.Definition.Environments) == 0 {
		return true
	}
	for _, env := range c.Definition.Environments {
		if env == name {
			return true
		}
	}
	return false
}

// EnvironmentList returns the configured environments joined for messages.
func (c *Config) EnvironmentList() string {
	if c.Definition == nil {
		return ""
	}
	return strings.Join(c.Definition.Environments, ", ")
}
