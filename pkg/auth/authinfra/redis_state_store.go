package authinfra

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/veridian-labs/veridian/pkg/errx"
)

const statePrefix = "oauth:state:"

// RedisStateStore holds OAuth CSRF nonces in Redis, shared across processes.
type RedisStateStore struct {
	client *redis.Client
}

// NewRedisStateStore creates the store.
func NewRedisStateStore(client *redis.Client) *RedisStateStore {
	return &RedisStateStore{client: client}
}

// Save stores the nonce with its provider for the TTL.
func (s *RedisStateStore) Save(ctx context.Context, state, provider string, ttl time.Duration) error {
	if err := s.client.Set(ctx, statePrefix+state, provider, ttl).Err(); err != nil {
		return errx.Wrap(err, "failed to save oauth state", errx.TypeInternal)
	}
	return nil
}

// Consume atomically fetches and deletes the nonce. ok is false when the
// nonce is unknown or already redeemed.
func (s *RedisStateStore) Consume(ctx context.Context, state string) (string, bool, error) {
	provider, err := s.client.GetDel(ctx, statePrefix+state).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, errx.Wrap(err, "failed to consume oauth state", errx.TypeInternal)
	}
	return provider, true, nil
}
