// Package cache keeps computed snapshots and ingestion dedupe keys in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/okian/gympulse/internal/domain/types"
	"github.com/okian/gympulse/pkg/metrics"
)

// Connect opens a client and checks it answers.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return client, nil
}

// SnapshotCache stores computed snapshots keyed by tenant, window and the
// caller's visibility. Every key embeds the tenant's generation, so bumping
// the generation drops all of the tenant's entries at once.
type SnapshotCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewSnapshotCache wraps client.
func NewSnapshotCache(client *redis.Client, opts ...Option) *SnapshotCache {
	c := &SnapshotCache{
		client: client,
		ttl:    time.Minute,
		prefix: "gympulse",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *SnapshotCache) generationKey(tenantID string) string {
	return c.prefix + ":gen:" + tenantID
}

// Key is the cache key of one snapshot at generation gen.
func (c *SnapshotCache) Key(tenantID string, gen int64, start, end time.Time, visibility string) string {
	return fmt.Sprintf("%s:snapshot:%s:%d:%d:%d:%s",
		c.prefix, tenantID, gen, start.UTC().UnixNano(), end.UTC().UnixNano(), visibility)
}

// Generation is the tenant's current generation. Read it before fetching
// the inputs of a snapshot and pass it to Get and Set, so a snapshot computed
// while an event was stored lands under a generation nobody reads.
func (c *SnapshotCache) Generation(ctx context.Context, tenantID string) (int64, error) {
	v, err := c.client.Get(ctx, c.generationKey(tenantID)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		metrics.RecordSnapshotCacheError()
		return 0, err
	}
	gen, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		metrics.RecordSnapshotCacheError()
		return 0, fmt.Errorf("parse generation of %s: %w", tenantID, err)
	}
	return gen, nil
}

// Get returns the snapshot cached at generation gen. ok is false on a miss.
func (c *SnapshotCache) Get(ctx context.Context, tenantID string, gen int64, start, end time.Time, visibility string) (types.Snapshot, bool, error) {
	raw, err := c.client.Get(ctx, c.Key(tenantID, gen, start, end, visibility)).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.RecordSnapshotCacheMiss()
		return types.Snapshot{}, false, nil
	}
	if err != nil {
		metrics.RecordSnapshotCacheError()
		return types.Snapshot{}, false, err
	}

	var snap types.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		metrics.RecordSnapshotCacheError()
		return types.Snapshot{}, false, fmt.Errorf("decode cached snapshot: %w", err)
	}
	metrics.RecordSnapshotCacheHit()
	return snap, true, nil
}

// Set stores a computed snapshot under generation gen. Anything else is
// ignored.
func (c *SnapshotCache) Set(ctx context.Context, snap types.Snapshot, gen int64, visibility string) error {
	if snap.Status != types.StatusComputed {
		return nil
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := c.client.Set(ctx, c.Key(snap.TenantID, gen, snap.Start, snap.End, visibility), raw, c.ttl).Err(); err != nil {
		metrics.RecordSnapshotCacheError()
		return err
	}
	return nil
}

// Invalidate makes every cached snapshot of the tenant unreachable. Old
// entries expire on their own.
func (c *SnapshotCache) Invalidate(ctx context.Context, tenantID string) error {
	if err := c.client.Incr(ctx, c.generationKey(tenantID)).Err(); err != nil {
		metrics.RecordSnapshotCacheError()
		return err
	}
	return nil
}
