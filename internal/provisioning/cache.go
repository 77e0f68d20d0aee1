package provisioning

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const dedupKeyPrefix = "account:provisioned:"

// DedupCache remembers which records already have an account so redelivered
// events skip the database. It is an optimisation only; the store's unique
// constraint is authoritative.
type DedupCache interface {
	Lookup(ctx context.Context, recordID string) (accountID string, found bool, err error)
	Remember(ctx context.Context, recordID, accountID string) error
}

type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisCache(rdb *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{rdb: rdb, ttl: ttl}
}

func (c *RedisCache) Lookup(ctx context.Context, recordID string) (string, bool, error) {
	id, err := c.rdb.Get(ctx, dedupKeyPrefix+recordID).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read dedup key: %w", err)
	}
	return id, true, nil
}

func (c *RedisCache) Remember(ctx context.Context, recordID, accountID string) error {
	if err := c.rdb.Set(ctx, dedupKeyPrefix+recordID, accountID, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write dedup key: %w", err)
	}
	return nil
}
