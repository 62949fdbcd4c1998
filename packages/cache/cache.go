// Package cache keeps recently computed diagnosis results in Redis so a
// repeat request for the same site within the TTL skips the crawl.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Ciras-Inc/ciras-site/packages/domain"
)

const keyPrefix = "ciras:diagnosis:"

type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

func New(addr, password string, db int, ttl time.Duration) *Cache {
	return &Cache{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
		ttl: ttl,
	}
}

// Get returns the cached result for a normalized URL, or nil on a miss.
func (c *Cache) Get(ctx context.Context, normalizedURL string) (*domain.CrawlResult, error) {
	raw, err := c.client.Get(ctx, keyPrefix+normalizedURL).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache get: %w", err)
	}

	var result domain.CrawlResult
	if err := json.Unmarshal(raw, &result); err != nil {
		// A corrupt entry is treated as a miss; it will be overwritten.
		return nil, nil
	}
	return &result, nil
}

func (c *Cache) Set(ctx context.Context, normalizedURL string, result *domain.CrawlResult) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("cache marshal: %w", err)
	}
	if err := c.client.Set(ctx, keyPrefix+normalizedURL, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

func (c *Cache) Close() error {
	return c.client.Close()
}
