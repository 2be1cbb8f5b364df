// Package cache holds the Redis-backed submission deduper shared by every
// hrdesk instance.
package cache

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/okian/hrdesk/internal/domain/dedupe"
	"github.com/okian/hrdesk/pkg/logger"
)

const (
	defaultKeyPrefix = "hrdesk:submission:"
	defaultTTL       = 24 * time.Hour
)

// RedisDeduper records submission ids as keys with a TTL so every instance
// behind a load balancer sees the same set.
type RedisDeduper struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	log    logger.Logger

	// recorded counts ids this instance recorded and did not unrecord.
	recorded atomic.Int64
}

var _ dedupe.Deduper = (*RedisDeduper)(nil)

// Option applies a configuration option to the RedisDeduper.
type Option func(*RedisDeduper)

// WithTTL sets how long a submission id is remembered.
func WithTTL(ttl time.Duration) Option {
	return func(d *RedisDeduper) {
		if ttl > 0 {
			d.ttl = ttl
		}
	}
}

// WithKeyPrefix sets the key namespace.
func WithKeyPrefix(prefix string) Option {
	return func(d *RedisDeduper) {
		if prefix != "" {
			d.prefix = prefix
		}
	}
}

// WithLogger sets the logger used to report Redis failures.
func WithLogger(l logger.Logger) Option {
	return func(d *RedisDeduper) {
		if l != nil {
			d.log = l
		}
	}
}

// NewRedisClient creates a client and verifies the server answers PING.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return client, nil
}

// NewRedisDeduper creates a deduper on client.
func NewRedisDeduper(client *redis.Client, opts ...Option) *RedisDeduper {
	d := &RedisDeduper{
		client: client,
		prefix: defaultKeyPrefix,
		ttl:    defaultTTL,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *RedisDeduper) key(id string) string {
	return d.prefix + id
}

// SeenAndRecord sets the id key with SET NX. When Redis is unreachable the
// id is treated as new so submissions keep flowing.
func (d *RedisDeduper) SeenAndRecord(ctx context.Context, id string) bool {
	ok, err := d.client.SetNX(ctx, d.key(id), time.Now().UTC().Format(time.RFC3339), d.ttl).Result()
	if err != nil {
		if d.log != nil {
			d.log.Warn(ctx, "redis dedupe check failed", logger.String("submission_id", id), logger.Error(err))
		}
		return false
	}
	if ok {
		d.recorded.Add(1)
	}
	return !ok
}

// Unrecord deletes the id key.
func (d *RedisDeduper) Unrecord(ctx context.Context, id string) {
	n, err := d.client.Del(ctx, d.key(id)).Result()
	if err != nil {
		if d.log != nil {
			d.log.Warn(ctx, "redis dedupe unrecord failed", logger.String("submission_id", id), logger.Error(err))
		}
		return
	}
	if n > 0 {
		d.recorded.Add(-1)
	}
}

// Size returns the number of ids recorded through this instance. Keys
// expiring by TTL are not subtracted.
func (d *RedisDeduper) Size() int64 {
	return d.recorded.Load()
}

// Close closes the underlying client.
func (d *RedisDeduper) Close() error {
	return d.client.Close()
}
