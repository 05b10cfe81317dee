package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/homeinventory/inventory-sync/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.Cache = (*Cache)(nil)

const (
	cachePrefix    = "inventory:cache:"
	cacheScanCount = 500
)

// Cache implements driven.Cache with one Redis string per key.
// Entries carry no TTL: the offline mirror must outlive any outage.
type Cache struct {
	client *redis.Client
}

// NewCache creates a new Redis-backed Cache
func NewCache(client *redis.Client) *Cache {
	return &Cache{client: client}
}

// Save stores value as JSON, overwriting any prior value
func (c *Cache) Save(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value %s: %w", key, err)
	}

	if err := c.client.Set(ctx, cachePrefix+key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save cache value %s: %w", key, err)
	}
	return nil
}

// Load decodes the value under key into dest.
// Bytes that no longer decode (schema drift) are treated as a miss.
func (c *Cache) Load(ctx context.Context, key string, dest any) (bool, error) {
	data, err := c.client.Get(ctx, cachePrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to load cache value %s: %w", key, err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, nil
	}
	return true, nil
}

// Delete removes key
func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, cachePrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to delete cache value %s: %w", key, err)
	}
	return nil
}

// Size sums the byte length of every cached value
func (c *Cache) Size(ctx context.Context) (int64, error) {
	var total int64
	err := c.scan(ctx, func(keys []string) error {
		pipe := c.client.Pipeline()
		lengths := make([]*redis.IntCmd, len(keys))
		for i, key := range keys {
			lengths[i] = pipe.StrLen(ctx, key)
		}
		if _, err := pipe.Exec(ctx); err != nil {
			return err
		}
		for _, l := range lengths {
			total += l.Val()
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to measure cache: %w", err)
	}
	return total, nil
}

// Clear removes every cached value
func (c *Cache) Clear(ctx context.Context) error {
	err := c.scan(ctx, func(keys []string) error {
		return c.client.Del(ctx, keys...).Err()
	})
	if err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	return nil
}

// scan visits every cache key in batches
func (c *Cache) scan(ctx context.Context, visit func(keys []string) error) error {
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, cachePrefix+"*", cacheScanCount).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := visit(keys); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}
