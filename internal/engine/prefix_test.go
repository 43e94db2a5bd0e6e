package engine_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/systmms/confres/internal/cache"
	"github.com/systmms/confres/internal/engine"
	"github.com/systmms/confres/pkg/store"
	"github.com/systmms/confres/tests/fakes"
)

func TestResolveByPrefix(t *testing.T) {
	t.Parallel()

	fake := fakes.NewFakeStore().
		WithParameter("/dev/billing/db/host", "db.internal", store.Plain).
		WithParameter("/dev/billing/db/port", "5432", store.Plain).
		WithParameter("/dev/billing/feature/x", "on", store.Plain).
		WithParameter("/dev/payments/db/host", "other-app", store.Plain)
	eng := newTestEngine(t, fake)

	results, err := eng.ResolveByPrefix(context.Background(), "db/")
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, "db.internal", results["db/host"].Value)
	assert.Equal(t, "5432", results["db/port"].Value)
	assert.Equal(t, cache.TierRemote, results["db/host"].SourceTier)
}

func TestResolveByPrefixPaginates(t *testing.T) {
	t.Parallel()

	fake := fakes.NewFakeStore().WithPageSize(2).
		WithParameter("/dev/billing/svc/a", "1", store.Plain).
		WithParameter("/dev/billing/svc/b", "2", store.Plain).
		WithParameter("/dev/billing/svc/c", "3", store.Plain).
		WithParameter("/dev/billing/svc/d", "4", store.Plain).
		WithParameter("/dev/billing/svc/e", "5", store.Plain)
	eng := newTestEngine(t, fake)

	results, err := eng.ResolveByPrefix(context.Background(), "svc/")
	require.NoError(t, err)

	assert.Len(t, results, 5)
	assert.GreaterOrEqual(t, fake.ListCallCount(), 3, "five keys at page size two take at least three pages")
}

func TestResolveByPrefixMergesDefaults(t *testing.T) {
	t.Parallel()

	fake := fakes.NewFakeStore().
		WithParameter("/dev/billing/db/host", "db.internal", store.Plain)
	eng := newTestEngine(t, fake, engine.WithDefaults(map[string]string{
		"db/pool-size": "10",
		"log/level":    "info",
	}))

	results, err := eng.ResolveByPrefix(context.Background(), "db/")
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, cache.TierRemote, results["db/host"].SourceTier)
	assert.Equal(t, cache.TierStaticDefault, results["db/pool-size"].SourceTier)
	assert.Equal(t, "10", results["db/pool-size"].Value)
}

func TestResolveByPrefixDegradedListingFallsBackToDefaults(t *testing.T) {
	t.Parallel()

	fake := fakes.NewFakeStore().
		WithListError(errors.New("service unavailable"))
	eng := newTestEngine(t, fake, engine.WithDefaults(map[string]string{
		"log/level": "info",
	}))

	results, err := eng.ResolveByPrefix(context.Background(), "")
	require.NoError(t, err, "a degraded listing still yields locally discoverable keys")

	require.Len(t, results, 1)
	assert.Equal(t, "info", results["log/level"].Value)
}

func TestResolveByPrefixRejectsInvalidPrefix(t *testing.T) {
	t.Parallel()

	eng := newTestEngine(t, fakes.NewFakeStore())

	_, err := eng.ResolveByPrefix(context.Background(), "../uat/")
	assert.Error(t, err)
}

func TestInvalidateEnvironment(t *testing.T) {
	t.Parallel()

	fake := fakes.NewFakeStore().
		WithParameter("/dev/billing/db/port", "5432", store.Plain)
	eng := newTestEngine(t, fake)
	ctx := context.Background()

	_, err := eng.Resolve(ctx, "db/port")
	require.NoError(t, err)

	eng.InvalidateEnvironment()

	result, err := eng.Resolve(ctx, "db/port")
	require.NoError(t, err)
	assert.Equal(t, cache.TierRemote, result.SourceTier, "invalidation forces a fresh remote read")
	assert.Equal(t, 2, fake.GetCallCount("/dev/billing/db/port"))
}
