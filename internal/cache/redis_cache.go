package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"
)

type RedisCache struct {
	client *redisv9.Client
}

func NewRedisCache(client *redisv9.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) GetJSON(ctx context.Context, key string, dst any) (bool, error) {
	raw, err := c.client.Get(ctx, key).Result()
	if err == redisv9.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get %s failed: %w", key, err)
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		// Corrupt entry: drop it and treat as a miss.
		_ = c.client.Del(ctx, key).Err()
		return false, nil
	}
	return true, nil
}

func (c *RedisCache) SetJSON(ctx context.Context, key string, val any, ttl time.Duration) error {
	payload, err := json.Marshal(val)
	if err != nil {
		return fmt.Errorf("marshal cache value failed: %w", err)
	}
	if err := c.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s failed: %w", key, err)
	}
	return nil
}

func (c *RedisCache) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}
