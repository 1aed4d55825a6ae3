package settlement

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const finalizedKeyPrefix = "settlement:finalized:"

// defaultCacheTTL bounds memory growth; finality never changes, so the TTL
// is purely an eviction policy.
const defaultCacheTTL = 24 * time.Hour

// RedisCache remembers finalized settlement references in Redis so repeated
// notifications for the same settlement skip the ledger round trip.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache creates a finalized-reference cache. Returns nil for a nil
// client so callers can wire it unconditionally.
func NewRedisCache(client *redis.Client) *RedisCache {
	if client == nil {
		return nil
	}
	return &RedisCache{client: client, ttl: defaultCacheTTL}
}

// IsFinalized reports whether reference was previously confirmed final.
func (c *RedisCache) IsFinalized(ctx context.Context, reference string) (bool, error) {
	_, err := c.client.Get(ctx, finalizedKeyPrefix+reference).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// MarkFinalized records reference as finalized.
func (c *RedisCache) MarkFinalized(ctx context.Context, reference string) error {
	return c.client.Set(ctx, finalizedKeyPrefix+reference, "1", c.ttl).Err()
}
