// internal/service/report/cache.go
package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"pillflow-service/internal/domain/report"

	"github.com/redis/go-redis/v9"
)

// SnapshotCache holds computed snapshots per account. Every entry belongs to
// a generation of the account; Invalidate moves the account to a new
// generation, so entries written under an older one are never read again.
type SnapshotCache interface {
	Generation(ctx context.Context, accountID string) (int64, error)
	Get(ctx context.Context, accountID string, gen int64, field string) (*report.Snapshot, bool, error)
	Set(ctx context.Context, accountID string, gen int64, field string, snap *report.Snapshot, ttl time.Duration) error
	Invalidate(ctx context.Context, accountID string) error
}

// RedisSnapshotCache keeps a counter per account and one string key per
// generation and field. ttl is the upper bound on any entry's lifetime.
type RedisSnapshotCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisSnapshotCache(client *redis.Client, ttl time.Duration) *RedisSnapshotCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisSnapshotCache{client: client, ttl: ttl}
}

func (c *RedisSnapshotCache) Generation(ctx context.Context, accountID string) (int64, error) {
	gen, err := c.client.Get(ctx, generationKey(accountID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read aggregate cache generation: %w", err)
	}
	return gen, nil
}

func (c *RedisSnapshotCache) Get(ctx context.Context, accountID string, gen int64, field string) (*report.Snapshot, bool, error) {
	data, err := c.client.Get(ctx, entryKey(accountID, gen, field)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read aggregate cache: %w", err)
	}

	var snap report.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached aggregate: %w", err)
	}

	return &snap, true, nil
}

// Set stores snap for at most ttl, clamped to the cache's own limit. A
// non-positive ttl stores nothing.
func (c *RedisSnapshotCache) Set(ctx context.Context, accountID string, gen int64, field string, snap *report.Snapshot, ttl time.Duration) error {
	if ttl > c.ttl {
		ttl = c.ttl
	}
	if ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode aggregate: %w", err)
	}

	if err := c.client.Set(ctx, entryKey(accountID, gen, field), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write aggregate cache: %w", err)
	}

	return nil
}

func (c *RedisSnapshotCache) Invalidate(ctx context.Context, accountID string) error {
	if err := c.client.Incr(ctx, generationKey(accountID)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate aggregate cache: %w", err)
	}
	return nil
}

func generationKey(accountID string) string {
	return "pillflow:aggregate:" + accountID + ":gen"
}

func entryKey(accountID string, gen int64, field string) string {
	return fmt.Sprintf("pillflow:aggregate:%s:%d:%s", accountID, gen, field)
}

// NoopCache never stores anything. It is used when Redis is not configured.
type NoopCache struct{}

func (NoopCache) Generation(context.Context, string) (int64, error) { return 0, nil }

func (NoopCache) Get(context.Context, string, int64, string) (*report.Snapshot, bool, error) {
	return nil, false, nil
}

func (NoopCache) Set(context.Context, string, int64, string, *report.Snapshot, time.Duration) error {
	return nil
}

func (NoopCache) Invalidate(context.Context, string) error { return nil }
