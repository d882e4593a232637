package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// usageKeyPrefix is the Redis key prefix for free usage counters.
const usageKeyPrefix = "usage:free:"

func usageKey(userID string) string {
	return usageKeyPrefix + userID
}

// GetFreeUsage returns the free usage counter of a user, 0 when unset.
func (c *Cache) GetFreeUsage(ctx context.Context, userID string) (int, error) {
	val, err := c.client.Get(ctx, usageKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get failed: %w", err)
	}

	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("invalid usage counter %q: %w", val, err)
	}
	return n, nil
}

// IncrFreeUsage atomically increments the counter and returns the new value.
func (c *Cache) IncrFreeUsage(ctx context.Context, userID string) (int, error) {
	n, err := c.client.Incr(ctx, usageKey(userID)).Result()
	if err != nil {
		return 0, fmt.Errorf("redis incr failed: %w", err)
	}
	return int(n), nil
}

// ResetFreeUsage sets the counter back to zero.
func (c *Cache) ResetFreeUsage(ctx context.Context, userID string) error {
	if err := c.client.Set(ctx, usageKey(userID), 0, 0).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}
