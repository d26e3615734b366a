// Package idempotency deduplicates retried write requests carrying an
// Idempotency-Key header.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultTTL is how long a key is remembered.
const DefaultTTL = 24 * time.Hour

const pendingMarker = "__pending__"

// ErrInProgress is returned by Reserve while another request holds the key.
var ErrInProgress = errors.New("idempotency key is already in progress")

// Store remembers the outcome of keyed requests.
type Store interface {
	// Reserve claims key. It returns the stored result when the key already
	// completed, "" when the caller now owns the key, and ErrInProgress
	// while another request holds it.
	Reserve(ctx context.Context, key string) (string, error)

	// Complete stores the result for a reserved key.
	Complete(ctx context.Context, key, result string) error

	// Release forgets a reserved key so the request can be retried.
	Release(ctx context.Context, key string) error
}

// RedisStore is a Store backed by Redis SETNX.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a Redis-backed store. A non-positive ttl uses DefaultTTL.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Reserve(ctx context.Context, key string) (string, error) {
	k := storeKey(key)

	ok, err := s.client.SetNX(ctx, k, pendingMarker, s.ttl).Result()
	if err != nil {
		return "", fmt.Errorf("redis setnx failed: %w", err)
	}
	if ok {
		return "", nil
	}

	val, err := s.client.Get(ctx, k).Result()
	if errors.Is(err, redis.Nil) {
		// Expired between SETNX and GET; try once more.
		ok, err = s.client.SetNX(ctx, k, pendingMarker, s.ttl).Result()
		if err != nil {
			return "", fmt.Errorf("redis setnx failed: %w", err)
		}
		if ok {
			return "", nil
		}
		return "", ErrInProgress
	}
	if err != nil {
		return "", fmt.Errorf("redis get failed: %w", err)
	}
	if val == pendingMarker {
		return "", ErrInProgress
	}
	return val, nil
}

func (s *RedisStore) Complete(ctx context.Context, key, result string) error {
	if err := s.client.Set(ctx, storeKey(key), result, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (s *RedisStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, storeKey(key)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func storeKey(key string) string {
	return fmt.Sprintf("idempotency:%s", key)
}

// NoopStore never remembers anything; every Reserve succeeds.
type NoopStore struct{}

func (NoopStore) Reserve(context.Context, string) (string, error) { return "", nil }
func (NoopStore) Complete(context.Context, string, string) error  { return nil }
func (NoopStore) Release(context.Context, string) error           { return nil }
