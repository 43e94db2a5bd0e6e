package secure

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferRoundTrip(t *testing.T) {
	t.Parallel()

	b := NewBuffer("hunter2")

	value, err := b.Open()
	require.NoError(t, err)
	assert.Equal(t, "hunter2", value)

	// Open decrypts fresh each time.
	value, err = b.Open()
	require.NoError(t, err)
	assert.Equal(t, "hunter2", value)
}

func TestBufferEmptyValue(t *testing.T) {
	t.Parallel()

	b := NewBuffer("")
	value, err := b.Open()
	require.NoError(t, err)
	assert.Equal(t, "", value)
}

func TestBufferDestroyIsIdempotent(t *testing.T) {
	t.Parallel()

	b := NewBuffer("hunter2")
	b.Destroy()
	b.Destroy()

	value, err := b.Open()
	require.NoError(t, err)
	assert.Equal(t, "", value, "a destroyed buffer yields nothing")
}
