package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/veridian-labs/veridian/pkg/errx"
)

const counterPrefix = "ratelimit:"

// RedisStore is the shared CounterStore for multi-process deployments.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates the store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Incr counts atomically via a pipelined INCR + EXPIRE NX + PTTL. EXPIRE NX
// arms the window only on the key's first hit, so concurrent increments
// share one reset point.
func (s *RedisStore) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	fullKey := counterPrefix + key

	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, fullKey)
	pipe.ExpireNX(ctx, fullKey, window)
	pttl := pipe.PTTL(ctx, fullKey)

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, 0, errx.Wrap(err, "rate-limit counter increment failed", errx.TypeInternal)
	}

	remaining := pttl.Val()
	if remaining < 0 {
		remaining = window
	}
	return incr.Val(), remaining, nil
}
