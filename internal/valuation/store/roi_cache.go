package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"ecovalue/internal/valuation/models"
	"ecovalue/pkg/platform/sentinel"
)

const roiKeyPrefix = "ecovalue:roi:"

// Entries are keyed by models.ROICacheKey. The TTL only bounds memory.

// InMemoryROICache is a TTL map used by the memory driver and when Redis is
// not configured.
type InMemoryROICache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]cachedROI
	now     func() time.Time
}

type cachedROI struct {
	roi       models.ROI
	expiresAt time.Time
}

func NewInMemoryROICache(ttl time.Duration) *InMemoryROICache {
	return &InMemoryROICache{
		ttl:     ttl,
		entries: make(map[string]cachedROI),
		now:     time.Now,
	}
}

func (c *InMemoryROICache) Get(_ context.Context, key string) (*models.ROI, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if c.now().After(entry.expiresAt) {
		c.evictExpired(key)
		return nil, sentinel.ErrNotFound
	}
	roi := entry.roi
	return &roi, nil
}

// evictExpired re-reads the entry under the write lock; a Set that landed
// after the read above is kept.
func (c *InMemoryROICache) evictExpired(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if entry, ok := c.entries[key]; ok && c.now().After(entry.expiresAt) {
		delete(c.entries, key)
	}
}

func (c *InMemoryROICache) Set(_ context.Context, key string, roi *models.ROI) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cachedROI{roi: *roi, expiresAt: c.now().Add(c.ttl)}
	return nil
}

// RedisROICache stores ROI results as JSON strings with a TTL.
type RedisROICache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewRedisROICache(client redis.UniversalClient, ttl time.Duration) *RedisROICache {
	return &RedisROICache{client: client, ttl: ttl}
}

func roiKey(key string) string {
	return roiKeyPrefix + key
}

func (c *RedisROICache) Get(ctx context.Context, key string) (*models.ROI, error) {
	raw, err := c.client.Get(ctx, roiKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get roi: %w: %w", sentinel.ErrUnavailable, err)
	}
	var roi models.ROI
	if err := json.Unmarshal(raw, &roi); err != nil {
		return nil, fmt.Errorf("decode cached roi: %w", err)
	}
	return &roi, nil
}

func (c *RedisROICache) Set(ctx context.Context, key string, roi *models.ROI) error {
	raw, err := json.Marshal(roi)
	if err != nil {
		return fmt.Errorf("encode roi: %w", err)
	}
	if err := c.client.Set(ctx, roiKey(key), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set roi: %w: %w", sentinel.ErrUnavailable, err)
	}
	return nil
}
