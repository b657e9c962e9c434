package storage

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache wraps a Gateway with Redis-backed caching for reads. Saves pass
// through and evict, so the next read refills from the backing store.
type Cache struct {
	base  Gateway
	redis *redis.Client
	ttl   time.Duration
}

// NewCache creates a caching Gateway wrapper using the provided Redis
// client and TTL. A nil client disables caching without changing behavior.
func NewCache(base Gateway, client *redis.Client, ttl time.Duration) *Cache {
	if base == nil {
		panic("storage.NewCache: base gateway is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Cache{base: base, redis: client, ttl: ttl}
}

func (c *Cache) Load(ctx context.Context, userID, key string) ([]byte, bool) {
	if data, ok := c.loadFromCache(ctx, userID, key); ok {
		return data, true
	}
	data, ok := c.base.Load(ctx, userID, key)
	if !ok {
		return nil, false
	}
	c.store(ctx, userID, key, data)
	return data, true
}

func (c *Cache) Save(ctx context.Context, userID, key string, data []byte) {
	c.base.Save(ctx, userID, key, data)
	c.evict(ctx, userID, key)
}

func (c *Cache) loadFromCache(ctx context.Context, userID, key string) ([]byte, bool) {
	if c.redis == nil {
		return nil, false
	}
	data, err := c.redis.Get(ctx, cacheKey(userID, key)).Bytes()
	if err != nil {
		if err != redis.Nil {
			// On redis errors fall back to the backing store without failing.
			_ = c.redis.Del(ctx, cacheKey(userID, key)).Err()
		}
		return nil, false
	}
	return data, true
}

func (c *Cache) store(ctx context.Context, userID, key string, data []byte) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	_ = c.redis.Set(ctx, cacheKey(userID, key), data, c.ttl).Err()
}

func (c *Cache) evict(ctx context.Context, userID, key string) {
	if c.redis == nil {
		return
	}
	_, _ = c.redis.Del(ctx, cacheKey(userID, key)).Result()
}

func cacheKey(userID, key string) string {
	return "blob:" + userID + ":" + key
}
