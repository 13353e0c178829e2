package catalog

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache guarda a listagem de partidas abertas
type Cache interface {
	GetOpenMatches(ctx context.Context, dst any) (bool, error)
	SetOpenMatches(ctx context.Context, v any, ttl time.Duration) error
	InvalidateOpenMatches(ctx context.Context) error
}

type RedisCache struct{ R *redis.Client }

func NewRedisCache(r *redis.Client) *RedisCache { return &RedisCache{R: r} }

const keyOpenMatches = "catalog:matches:open"

func (c *RedisCache) GetOpenMatches(ctx context.Context, dst any) (bool, error) {
	b, err := c.R.Get(ctx, keyOpenMatches).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, json.Unmarshal(b, dst)
}

func (c *RedisCache) SetOpenMatches(ctx context.Context, v any, ttl time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.R.Set(ctx, keyOpenMatches, b, ttl).Err()
}

func (c *RedisCache) InvalidateOpenMatches(ctx context.Context) error {
	return c.R.Del(ctx, keyOpenMatches).Err()
}
