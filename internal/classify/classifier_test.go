package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/systmms/confres/pkg/store"
)

func TestClassifyDefaults(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		paramName string
		want      store.Classification
	}{
		{"password suffix", "database/password", store.Secret},
		{"api key", "external/api-key", store.Secret},
		{"token", "auth/token", store.Secret},
		{"secret in middle", "my-secret-thing", store.Secret},
		{"credential", "service/credentials", store.Secret},
		{"uppercase matched", "DB/PASSWORD", store.Secret},
		{"plain host", "db/host", store.Plain},
		{"plain port", "db/port", store.Plain},
		{"plain feature flag", "feature/x", store.Plain},
	}

	c := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, c.Classify(tt.paramName))
		})
	}
}

func TestClassifyOverridesTakePrecedence(t *testing.T) {
	t.Parallel()

	c := New(WithOverrides([]Override{
		// monitoring/keyspace matches the "key" pattern but holds a plain
		// metric namespace, not a credential
		{Name: "monitoring/keyspace", Classification: store.Plain},
		{Name: "db/host", Classification: store.Secret},
	}))

	assert.Equal(t, store.Plain, c.Classify("monitoring/keyspace"))
	assert.Equal(t, store.Secret, c.Classify("db/host"))

	// Non-overridden names still follow patterns.
	assert.Equal(t, store.Secret, c.Classify("db/password"))
	assert.Equal(t, store.Plain, c.Classify("db/port"))
}

func TestClassifyCustomPatterns(t *testing.T) {
	t.Parallel()

	c := New(WithPatterns([]string{"private"}))

	assert.Equal(t, store.Secret, c.Classify("tls/private-cert"))
	// default patterns were replaced
	assert.Equal(t, store.Plain, c.Classify("db/password"))
}

func TestRedact(t *testing.T) {
	t.Parallel()

	c := New()

	plain := store.Parameter{Path: "/dev/billing/db/port", Value: "5432", Classification: store.Plain}
	assert.Equal(t, "5432", c.Redact(plain))

	secret := store.Parameter{Path: "/dev/billing/db/password", Value: "hunter2", Classification: store.Secret}
	redacted := c.Redact(secret)
	assert.Equal(t, RedactedPlaceholder, redacted)
	assert.NotContains(t, redacted, "hunter2")
}

func TestRedactedPlaceholderIsStable(t *testing.T) {
	t.Parallel()

	// The placeholder is a contract: operators grep for it, and it must be
	// distinguishable from any value a Plain parameter could hold.
	assert.Equal(t, "<redacted:Secret>", RedactedPlaceholder)
}
