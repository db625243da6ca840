// Package redis provides the KV store used by the debounce coordinator
// (spec.md §4.6) and a go-redis client factory shared by the queue
// package.
package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"phototimeline/pkg/config"
)

// KV is the small set of Redis primitives the debounce protocol needs.
// Kept as an interface so the coordinator can be exercised against an
// in-memory fake in tests without a running Redis.
type KV interface {
	// SetNX sets key to value with the given TTL only if key does not
	// already exist, reporting whether the set won.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	// Set unconditionally sets key to value with the given TTL.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Get returns the current value, or ("", false, nil) if absent.
	Get(ctx context.Context, key string) (string, bool, error)
	// Incr atomically increments key (starting from 0) and returns the
	// new value.
	Incr(ctx context.Context, key string) (int64, error)
	// Expire sets key's TTL, overwriting any TTL the key already has.
	Expire(ctx context.Context, key string, ttl time.Duration) error
	// Del removes key if present; absence is not an error.
	Del(ctx context.Context, key string) error
}

// NewClient builds the shared go-redis client for both the KV store
// and the delayed-job queue.
func NewClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Host + ":" + cfg.Port,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

type client struct {
	rdb *redis.Client
}

// NewKV wraps an existing go-redis client as a KV store.
func NewKV(rdb *redis.Client) KV {
	return &client{rdb: rdb}
}

func (c *client) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, key, value, ttl).Result()
}

func (c *client) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.rdb.Set(ctx, key, value, ttl).Err()
}

func (c *client) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := c.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (c *client) Incr(ctx context.Context, key string) (int64, error) {
	return c.rdb.Incr(ctx, key).Result()
}

func (c *client) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return c.rdb.Expire(ctx, key, ttl).Err()
}

func (c *client) Del(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, key).Err()
}
