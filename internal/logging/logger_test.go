package logging

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoggerLevels(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := NewWithWriter(false, true, &buf)

	logger.Info("resolved %d keys", 3)
	logger.Warn("store degraded")
	logger.Error("schema invalid")
	logger.Debug("should not appear")

	out := buf.String()
	assert.Contains(t, out, "✓ resolved 3 keys")
	assert.Contains(t, out, "⚠ store degraded")
	assert.Contains(t, out, "✗ schema invalid")
	assert.NotContains(t, out, "should not appear")
}

func TestLoggerDebugEnabled(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := NewWithWriter(true, true, &buf)

	logger.Debug("cache miss for %s", "/dev/billing/db/port")
	assert.Contains(t, buf.String(), "[DEBUG] cache miss for /dev/billing/db/port")
}

func TestLoggerColorToggle(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	NewWithWriter(false, false, &buf).Info("hello")
	assert.Contains(t, buf.String(), "\033[32m")

	buf.Reset()
	NewWithWriter(false, true, &buf).Info("hello")
	assert.NotContains(t, buf.String(), "\033[")
}

func TestSecretFormatting(t *testing.T) {
	t.Parallel()

	s := Secret("hunter2")

	assert.Equal(t, "[REDACTED]", fmt.Sprintf("%s", s))
	assert.Equal(t, "[REDACTED]", fmt.Sprintf("%v", s))
	assert.Equal(t, "[REDACTED]", fmt.Sprintf("%#v", s))
	assert.NotContains(t, fmt.Sprintf("%s %v %#v", s, s, s), "hunter2")
}

func TestRedact(t *testing.T) {
	t.Parallel()

	out := Redact("connecting with password hunter2 to db", []string{"hunter2"})
	assert.Equal(t, "connecting with password [REDACTED] to db", out)

	// Short values are left alone so unrelated text is not mangled.
	out = Redact("a on b", []string{"on"})
	assert.Equal(t, "a on b", out)
}
