package report

import (
	"context"
	"testing"
	"time"

	"pillflow-service/internal/domain/event"
	"pillflow-service/internal/domain/report"
	"pillflow-service/internal/pkg/timewindow"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupCache(t *testing.T, ttl time.Duration) (*miniredis.Miniredis, *RedisSnapshotCache) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, NewRedisSnapshotCache(client, ttl)
}

func TestRedisSnapshotCacheRoundTrip(t *testing.T) {
	mr, cache := setupCache(t, time.Minute)
	ctx := context.Background()

	gen, err := cache.Generation(ctx, "acc-1")
	require.NoError(t, err)
	assert.Zero(t, gen)

	_, ok, err := cache.Get(ctx, "acc-1", gen, "collection:this_month")
	require.NoError(t, err)
	assert.False(t, ok)

	snap := &report.Snapshot{
		AccountID: "acc-1",
		Kind:      event.KindCollection,
		Window:    timewindow.LastNMonths(3),
		Total:     7,
		PerType:   map[event.PackType]int{event.PackTypeSachet: 7},
	}
	require.NoError(t, cache.Set(ctx, "acc-1", gen, "collection:last_n_months:3", snap, time.Hour))

	got, ok, err := cache.Get(ctx, "acc-1", gen, "collection:last_n_months:3")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 7, got.Total)
	assert.Equal(t, 7, got.PerType[event.PackTypeSachet])
	assert.Equal(t, timewindow.LastNMonths(3), got.Window)

	key := entryKey("acc-1", gen, "collection:last_n_months:3")
	assert.True(t, mr.Exists(key))
	assert.Equal(t, time.Minute, mr.TTL(key), "ttl is clamped to the cache limit")
}

func TestRedisSnapshotCacheShorterTTL(t *testing.T) {
	mr, cache := setupCache(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "acc-1", 0, "collection:today", &report.Snapshot{Total: 1}, 90*time.Second))
	assert.Equal(t, 90*time.Second, mr.TTL(entryKey("acc-1", 0, "collection:today")))

	require.NoError(t, cache.Set(ctx, "acc-1", 0, "check:today", &report.Snapshot{Total: 1}, 0))
	assert.False(t, mr.Exists(entryKey("acc-1", 0, "check:today")))
}

func TestRedisSnapshotCacheInvalidateDropsAllWindows(t *testing.T) {
	_, cache := setupCache(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "acc-1", 0, "collection:today", &report.Snapshot{Total: 1}, time.Minute))
	require.NoError(t, cache.Set(ctx, "acc-1", 0, "check:today", &report.Snapshot{Total: 2}, time.Minute))
	require.NoError(t, cache.Set(ctx, "acc-2", 0, "collection:today", &report.Snapshot{Total: 3}, time.Minute))

	require.NoError(t, cache.Invalidate(ctx, "acc-1"))

	gen, err := cache.Generation(ctx, "acc-1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, gen)

	_, ok, err := cache.Get(ctx, "acc-1", gen, "collection:today")
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = cache.Get(ctx, "acc-1", gen, "check:today")
	require.NoError(t, err)
	assert.False(t, ok)

	otherGen, err := cache.Generation(ctx, "acc-2")
	require.NoError(t, err)
	other, ok, err := cache.Get(ctx, "acc-2", otherGen, "collection:today")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 3, other.Total)
}

func TestRedisSnapshotCacheExpires(t *testing.T) {
	mr, cache := setupCache(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "acc-1", 0, "collection:today", &report.Snapshot{Total: 1}, time.Minute))
	mr.FastForward(2 * time.Minute)

	_, ok, err := cache.Get(ctx, "acc-1", 0, "collection:today")
	require.NoError(t, err)
	assert.False(t, ok)
}
