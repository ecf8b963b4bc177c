package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache TTLs
const (
	TTLPage    = 5 * time.Minute  // published page content
	TTLSite    = 10 * time.Minute // site settings (rarely change)
	TTLDefault = 5 * time.Minute
)

// Cache key prefixes
const (
	PrefixPage = "page:"
	PrefixSite = "site:"
)

// Service is the Redis cache abstraction used by services.
// All operations are no-ops when Redis is unavailable so the API
// degrades to DB-only reads instead of failing.
type Service interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error

	GetPage(ctx context.Context, siteID, pageID string) ([]byte, error)
	SetPage(ctx context.Context, siteID, pageID string, data interface{}) error
	InvalidatePage(ctx context.Context, siteID, pageID string) error
	InvalidateSitePages(ctx context.Context, siteID string) error

	IsAvailable() bool
	Ping(ctx context.Context) error
}

type redisCache struct {
	client *redis.Client
}

// NewService creates a new cache service backed by the given Redis client.
// A nil client is allowed and disables caching.
func NewService(client *redis.Client) Service {
	return &redisCache{client: client}
}

func (c *redisCache) IsAvailable() bool {
	return c.client != nil
}

func (c *redisCache) Ping(ctx context.Context) error {
	if c.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	return c.client.Ping(ctx).Err()
}

func (c *redisCache) Get(ctx context.Context, key string, dest interface{}) error {
	if c.client == nil {
		return fmt.Errorf("redis not available")
	}

	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return err
	}

	return json.Unmarshal(data, dest)
}

func (c *redisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if c.client == nil {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	return c.client.Set(ctx, key, data, ttl).Err()
}

func (c *redisCache) Delete(ctx context.Context, keys ...string) error {
	if c.client == nil {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

func (c *redisCache) pageKey(siteID, pageID string) string {
	return PrefixPage + siteID + ":" + pageID
}

func (c *redisCache) GetPage(ctx context.Context, siteID, pageID string) ([]byte, error) {
	if c.client == nil {
		return nil, fmt.Errorf("redis not available")
	}
	return c.client.Get(ctx, c.pageKey(siteID, pageID)).Bytes()
}

func (c *redisCache) SetPage(ctx context.Context, siteID, pageID string, data interface{}) error {
	if c.client == nil {
		return nil
	}
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.pageKey(siteID, pageID), jsonData, TTLPage).Err()
}

func (c *redisCache) InvalidatePage(ctx context.Context, siteID, pageID string) error {
	if c.client == nil {
		return nil
	}
	return c.client.Del(ctx, c.pageKey(siteID, pageID)).Err()
}

func (c *redisCache) InvalidateSitePages(ctx context.Context, siteID string) error {
	if c.client == nil {
		return nil
	}
	return c.deleteByPattern(ctx, PrefixPage+siteID+":*")
}

func (c *redisCache) deleteByPattern(ctx context.Context, pattern string) error {
	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}
