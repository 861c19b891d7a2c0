package cache

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/okian/gympulse/internal/domain/dedupe"
	"github.com/okian/gympulse/pkg/logger"
)

// Deduper shares seen event keys between replicas through Redis. Keys expire
// after the configured TTL. When Redis is unreachable the event is treated
// as new and the store's own id check decides.
type Deduper struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
	log    logger.Logger
	size   atomic.Int64
}

var _ dedupe.Deduper = (*Deduper)(nil)

// NewDeduper wraps client. ttl bounds how long an id is remembered.
func NewDeduper(client *redis.Client, ttl time.Duration, log logger.Logger) *Deduper {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Deduper{client: client, ttl: ttl, prefix: "gympulse:seen:", log: log}
}

// SeenAndRecord implements dedupe.Deduper.
func (d *Deduper) SeenAndRecord(ctx context.Context, key string) bool {
	if ctx == nil {
		ctx = context.Background()
	}
	ok, err := d.client.SetNX(ctx, d.prefix+key, 1, d.ttl).Result()
	if err != nil {
		if d.log != nil {
			d.log.Warn(ctx, "dedupe check failed", logger.String("key", key), logger.Error(err))
		}
		return false
	}
	if ok {
		d.size.Add(1)
	}
	return !ok
}

// Unrecord implements dedupe.Deduper.
func (d *Deduper) Unrecord(ctx context.Context, key string) {
	if ctx == nil {
		ctx = context.Background()
	}
	n, err := d.client.Del(ctx, d.prefix+key).Result()
	if err != nil {
		if d.log != nil {
			d.log.Warn(ctx, "dedupe release failed", logger.String("key", key), logger.Error(err))
		}
		return
	}
	if n > 0 {
		d.size.Add(-n)
	}
}

// Size is the number of keys this replica recorded and still holds.
func (d *Deduper) Size() int64 {
	return d.size.Load()
}
