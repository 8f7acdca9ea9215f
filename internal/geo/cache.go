package geo

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Entry is the cached geolocation payload for one address. Nil fields mean
// the lookup degraded; caching those too keeps a persistently failing
// address from being retried on every request.
type Entry struct {
	Country *string `json:"country"`
	City    *string `json:"city"`
}

// Cache shields the resolver from repeated external lookups. Implementations
// must treat a missing or expired key as a miss, never an error.
type Cache interface {
	Get(ctx context.Context, address string) (Entry, bool, error)
	Set(ctx context.Context, address string, entry Entry, ttl time.Duration) error
}

const redisKeyPrefix = "ipsentry:geo:"

// RedisCache stores entries in Redis so every instance shares one lookup
// budget. Loss of the backing store only costs re-lookups.
type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) Get(ctx context.Context, address string) (Entry, bool, error) {
	payload, err := c.client.Get(ctx, redisKeyPrefix+address).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Entry{}, false, nil
		}
		return Entry{}, false, err
	}

	var entry Entry
	if err := json.Unmarshal([]byte(payload), &entry); err != nil {
		return Entry{}, false, err
	}
	return entry, true, nil
}

func (c *RedisCache) Set(ctx context.Context, address string, entry Entry, ttl time.Duration) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, redisKeyPrefix+address, payload, ttl).Err()
}

type memoryCacheEntry struct {
	entry   Entry
	expires time.Time
}

// MemoryCache is the in-process fallback used when Redis is unavailable
// and in tests. Last write wins on concurrent fills for the same address.
type MemoryCache struct {
	entries sync.Map
	now     func() time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{now: time.Now}
}

func (c *MemoryCache) Get(_ context.Context, address string) (Entry, bool, error) {
	raw, ok := c.entries.Load(address)
	if !ok {
		return Entry{}, false, nil
	}

	cached := raw.(memoryCacheEntry)
	if c.now().After(cached.expires) {
		c.entries.Delete(address)
		return Entry{}, false, nil
	}
	return cached.entry, true, nil
}

func (c *MemoryCache) Set(_ context.Context, address string, entry Entry, ttl time.Duration) error {
	c.entries.Store(address, memoryCacheEntry{
		entry:   entry,
		expires: c.now().Add(ttl),
	})
	return nil
}
