package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/systmms/confres/pkg/store"
)

// fakeClock is a manually advanced clock for expiry tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestCachePutGet(t *testing.T) {
	t.Parallel()

	c := New()
	param := store.Parameter{
		Path:           "/dev/billing/db/port",
		Value:          "5432",
		Classification: store.Plain,
		Version:        3,
	}
	c.Put(param.Path, param, TierRemote, time.Minute)

	entry, hit := c.Get(param.Path)
	require.True(t, hit)
	assert.False(t, entry.Negative)
	assert.Equal(t, "5432", entry.Parameter.Value)
	assert.Equal(t, int64(3), entry.Parameter.Version)
	assert.Equal(t, TierRemote, entry.Tier)

	_, hit = c.Get("/dev/billing/db/host")
	assert.False(t, hit)
}

func TestCacheExpiry(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	c := New(WithClock(clock.Now))

	c.Put("/dev/billing/db/port", store.Parameter{Value: "5432"}, TierRemote, time.Minute)

	_, hit := c.Get("/dev/billing/db/port")
	assert.True(t, hit)

	clock.Advance(61 * time.Second)
	_, hit = c.Get("/dev/billing/db/port")
	assert.False(t, hit, "expired entry must be a miss")

	// The expired record was lazily collected.
	assert.Equal(t, 0, c.Len())
}

func TestCacheNegativeEntries(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	c := New(WithClock(clock.Now))

	c.PutNegative("/dev/billing/missing", 30*time.Second)

	entry, hit := c.Get("/dev/billing/missing")
	require.True(t, hit)
	assert.True(t, entry.Negative)

	clock.Advance(31 * time.Second)
	_, hit = c.Get("/dev/billing/missing")
	assert.False(t, hit, "negative entry must expire")
}

func TestCachePositiveOverwritesNegative(t *testing.T) {
	t.Parallel()

	c := New()
	path := "/dev/billing/feature/x"

	c.PutNegative(path, time.Minute)
	c.Put(path, store.Parameter{Path: path, Value: "on"}, TierEnvVar, time.Hour)

	entry, hit := c.Get(path)
	require.True(t, hit)
	assert.False(t, entry.Negative)
	assert.Equal(t, "on", entry.Parameter.Value)
	assert.Equal(t, TierEnvVar, entry.Tier)
}

func TestCacheSecretValuesStayEncrypted(t *testing.T) {
	t.Parallel()

	c := New()
	path := "/dev/billing/db/password"
	c.Put(path, store.Parameter{
		Path:           path,
		Value:          "super-sensitive",
		Classification: store.Secret,
		Version:        7,
	}, TierRemote, time.Minute)

	entry, hit := c.Get(path)
	require.True(t, hit)
	assert.Equal(t, "super-sensitive", entry.Parameter.Value, "Get must decrypt transparently")
	assert.Equal(t, store.Secret, entry.Parameter.Classification)
	assert.Equal(t, int64(7), entry.Parameter.Version)
}

func TestCacheInvalidate(t *testing.T) {
	t.Parallel()

	c := New()
	c.Put("/dev/billing/db/port", store.Parameter{Value: "5432"}, TierRemote, time.Minute)

	c.Invalidate("/dev/billing/db/port")
	_, hit := c.Get("/dev/billing/db/port")
	assert.False(t, hit)

	// Invalidating an absent path is a no-op.
	c.Invalidate("/dev/billing/unknown")
}

func TestCacheInvalidatePrefix(t *testing.T) {
	t.Parallel()

	c := New()
	c.Put("/dev/billing/db/port", store.Parameter{Value: "5432"}, TierRemote, time.Minute)
	c.Put("/dev/billing/db/host", store.Parameter{Value: "a"}, TierRemote, time.Minute)
	c.Put("/uat/billing/db/port", store.Parameter{Value: "5433"}, TierRemote, time.Minute)

	c.InvalidatePrefix("/dev/billing/")

	_, hit := c.Get("/dev/billing/db/port")
	assert.False(t, hit)
	_, hit = c.Get("/dev/billing/db/host")
	assert.False(t, hit)

	// Other namespaces are untouched.
	entry, hit := c.Get("/uat/billing/db/port")
	require.True(t, hit)
	assert.Equal(t, "5433", entry.Parameter.Value)
}

func TestCacheNamespaceIsolation(t *testing.T) {
	t.Parallel()

	c := New()
	c.Put("/dev/billing/db/host", store.Parameter{Value: "dev-host"}, TierRemote, time.Minute)
	c.Put("/uat/billing/db/host", store.Parameter{Value: "uat-host"}, TierRemote, time.Minute)

	dev, hit := c.Get("/dev/billing/db/host")
	require.True(t, hit)
	uat, hit := c.Get("/uat/billing/db/host")
	require.True(t, hit)

	assert.Equal(t, "dev-host", dev.Parameter.Value)
	assert.Equal(t, "uat-host", uat.Parameter.Value)
}

func TestCacheConcurrentAccess(t *testing.T) {
	t.Parallel()

	c := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			path := fmt.Sprintf("/dev/billing/key-%d", n%10)
			c.Put(path, store.Parameter{Path: path, Value: fmt.Sprintf("v%d", n)}, TierRemote, time.Minute)
			c.Get(path)
			if n%7 == 0 {
				c.Invalidate(path)
			}
		}(i)
	}
	wg.Wait()
}

func TestTierString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Cache", TierCache.String())
	assert.Equal(t, "Remote", TierRemote.String())
	assert.Equal(t, "EnvVar", TierEnvVar.String())
	assert.Equal(t, "StaticDefault", TierStaticDefault.String())
}
