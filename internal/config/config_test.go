package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "confres.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFullConfig(t *testing.T) {
	t.Parallel()

	cfg := &Config{Path: writeConfig(t, `
version: 0
environment: dev
application: billing
environments: [dev, uat, prod]
store:
  type: aws-ssm
  region: eu-west-1
  timeout_ms: 1500
cache:
  remote_ttl_seconds: 120
classification:
  overrides:
    - name: monitoring/keyspace
      classification: Plain
defaults_file: defaults.yaml
schema_file: schema.yaml
`)}

	require.NoError(t, cfg.Load())

	def := cfg.Definition
	assert.Equal(t, "dev", def.Environment)
	assert.Equal(t, "billing", def.Application)
	assert.Equal(t, []string{"dev", "uat", "prod"}, def.Environments)
	assert.Equal(t, "aws-ssm", def.Store.Type)
	assert.Equal(t, 1500*time.Millisecond, def.Store.Timeout())
	assert.Equal(t, 2*time.Minute, def.Cache.RemoteTTL())
	assert.Equal(t, "defaults.yaml", def.DefaultsFile)
	assert.Equal(t, "schema.yaml", def.SchemaFile)
}

func TestLoadDefaultsApply(t *testing.T) {
	t.Parallel()

	cfg := &Config{Path: writeConfig(t, `
environment: dev
application: billing
`)}
	require.NoError(t, cfg.Load())

	def := cfg.Definition
	assert.Equal(t, 3*time.Second, def.Store.Timeout())
	assert.Equal(t, 60*time.Second, def.Cache.RemoteTTL())
	assert.Equal(t, 30*time.Second, def.Cache.NegativeTTL())
	assert.Equal(t, time.Hour, def.Cache.LocalTTL())
}

func TestLoadRejectsBadConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
	}{
		{"missing environment", "application: billing\n"},
		{"missing application", "environment: dev\n"},
		{"unsupported version", "version: 2\nenvironment: dev\napplication: billing\n"},
		{"invalid yaml", "environment: [\n"},
		{"bad override classification", `
environment: dev
application: billing
classification:
  overrides:
    - name: db/host
      classification: Sensitive
`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := &Config{Path: writeConfig(t, tt.content)}
			assert.Error(t, cfg.Load())
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	cfg := &Config{Path: filepath.Join(t.TempDir(), "absent.yaml")}
	assert.Error(t, cfg.Load())
}

func TestKnownEnvironment(t *testing.T) {
	t.Parallel()

	cfg := &Config{Definition: &Definition{Environments: []string{"dev", "uat"}}}
	assert.True(t, cfg.KnownEnvironment("dev"))
	assert.False(t, cfg.KnownEnvironment("prod"))
	assert.Equal(t, "dev, uat", cfg.EnvironmentList())

	// An empty set accepts anything.
	open := &Config{Definition: &Definition{}}
	assert.True(t, open.KnownEnvironment("prod"))
}
