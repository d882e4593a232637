package identity

import (
	"context"
	"fmt"

	"github.com/quickai/quickai/internal/model"
)

// CounterStore holds free usage counters with atomic increments.
type CounterStore interface {
	GetFreeUsage(ctx context.Context, userID string) (int, error)
	IncrFreeUsage(ctx context.Context, userID string) (int, error)
	ResetFreeUsage(ctx context.Context, userID string) error
}

// RedisStore reads the plan from a wrapped Store and keeps the free
// usage counter in Redis, where increments are atomic.
type RedisStore struct {
	plans    Store
	counters CounterStore
}

// NewRedisStore creates a RedisStore.
func NewRedisStore(plans Store, counters CounterStore) *RedisStore {
	return &RedisStore{plans: plans, counters: counters}
}

// Get combines the stored plan with the Redis counter.
func (s *RedisStore) Get(ctx context.Context, userID string) (*model.Caller, error) {
	caller, err := s.plans.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	usage, err := s.counters.GetFreeUsage(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to read usage counter: %w", err)
	}
	caller.FreeUsage = usage
	return caller, nil
}

// IncrementUsage atomically increments the counter.
func (s *RedisStore) IncrementUsage(ctx context.Context, userID string) (int, error) {
	return s.counters.IncrFreeUsage(ctx, userID)
}

// ResetUsage sets the counter to zero.
func (s *RedisStore) ResetUsage(ctx context.Context, userID string) error {
	return s.counters.ResetFreeUsage(ctx, userID)
}
