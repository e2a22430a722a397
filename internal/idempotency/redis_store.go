package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store persists update claims. Expiry is left to the backend's TTL support.
type Store interface {
	// Claim marks key as handled and reports whether this caller won the claim.
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Release frees a claim so the update can be handled again.
	Release(ctx context.Context, key string) error
}

// RedisStore implements Store with SETNX, which is atomic across bot restarts
// and across any future second instance.
type RedisStore struct {
	client *redis.Client
}

var _ Store = (*RedisStore)(nil)

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	claimed, err := s.client.SetNX(ctx, claimKey(key), 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim idempotency key: %w", err)
	}
	return claimed, nil
}

func (s *RedisStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, claimKey(key)).Err(); err != nil {
		return fmt.Errorf("release idempotency key: %w", err)
	}
	return nil
}

func claimKey(key string) string {
	return "idempotency:" + key
}
