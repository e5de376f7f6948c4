package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"credvault/internal/credential/metrics"
	"credvault/internal/credential/models"
	"credvault/pkg/platform/sentinel"
)

const keyPrefix = "credential:"

// RedisCache is a read-through cache for credential records. Records are
// immutable once written, so a cached copy can never go stale in content; the
// TTL only bounds memory, not correctness. Expiry is still evaluated against
// the clock at verification time, never against cached state.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	m      *metrics.Metrics
}

// New constructs a Redis-backed credential cache. metrics may be nil.
func New(client *redis.Client, ttl time.Duration, m *metrics.Metrics) *RedisCache {
	return &RedisCache{
		client: client,
		ttl:    ttl,
		m:      m,
	}
}

// Get loads a cached record by credential id.
//
// Errors: returns sentinel.ErrNotFound on cache miss; wraps Redis or JSON
// decode errors.
func (c *RedisCache) Get(ctx context.Context, credentialID string) (*models.Record, error) {
	data, err := c.client.Get(ctx, keyPrefix+credentialID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			if c.m != nil {
				c.m.IncrementCacheMisses()
			}
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get cached credential: %w", err)
	}

	var record models.Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("decode cached credential: %w", err)
	}
	if c.m != nil {
		c.m.IncrementCacheHits()
	}
	return &record, nil
}

// Set writes a record to Redis with TTL eviction.
func (c *RedisCache) Set(ctx context.Context, record *models.Record) error {
	if record == nil {
		return fmt.Errorf("credential record is required")
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode cached credential: %w", err)
	}
	if err := c.client.Set(ctx, keyPrefix+record.CredentialID, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("set cached credential: %w", err)
	}
	return nil
}
