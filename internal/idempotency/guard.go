// Package idempotency suppresses duplicate deliveries of the same payment
// notification across instances.
package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const DefaultTTL = 24 * time.Hour

// Guard claims a key for the duration of its TTL. Acquire returns false when
// another delivery already holds the key.
type Guard interface {
	Acquire(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

type RedisGuard struct {
	Redis  *redis.Client
	Prefix string
	TTL    time.Duration
}

func NewRedisGuard(client *redis.Client) *RedisGuard {
	return &RedisGuard{Redis: client, Prefix: "webhook:payment:", TTL: DefaultTTL}
}

func (g *RedisGuard) key(key string) string {
	return g.Prefix + key
}

func (g *RedisGuard) Acquire(ctx context.Context, key string) (bool, error) {
	ok, err := g.Redis.SetNX(ctx, g.key(key), "1", g.TTL).Result()
	if err != nil {
		return false, fmt.Errorf("acquire %s: %w", key, err)
	}
	return ok, nil
}

func (g *RedisGuard) Release(ctx context.Context, key string) error {
	if err := g.Redis.Del(ctx, g.key(key)).Err(); err != nil {
		return fmt.Errorf("release %s: %w", key, err)
	}
	return nil
}

// Nop admits every delivery. Used when redis is not configured; the
// conditional paid transition still keeps fulfillment single-shot.
type Nop struct{}

func (Nop) Acquire(ctx context.Context, key string) (bool, error) { return true, nil }

func (Nop) Release(ctx context.Context, key string) error { return nil }

// New returns a redis-backed guard, or Nop when client is nil.
func New(client *redis.Client) Guard {
	if client == nil {
		return Nop{}
	}
	return NewRedisGuard(client)
}
