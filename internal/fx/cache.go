package fx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const DefaultCacheKey = "ledger:fx:snapshot"

// RedisCache keeps the last good snapshot so a restarted process can serve
// fetched rates before its first refresh completes.
type RedisCache struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, key string, ttl time.Duration) *RedisCache {
	if key == "" {
		key = DefaultCacheKey
	}
	return &RedisCache{client: client, key: key, ttl: ttl}
}

// Load returns nil, nil when nothing is cached.
func (c *RedisCache) Load(ctx context.Context) (*Snapshot, error) {
	raw, err := c.client.Get(ctx, c.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("RedisCache.Load: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("RedisCache.Load: decode: %w", err)
	}
	return &snap, nil
}

func (c *RedisCache) Store(ctx context.Context, snap Snapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("RedisCache.Store: encode: %w", err)
	}
	if err := c.client.Set(ctx, c.key, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("RedisCache.Store: %w", err)
	}
	return nil
}
