// Package dedup tracks device identifiers that have already produced a
// submission within a reward cycle, so repeat submissions from the same
// device can be rejected before any ledger work happens.
package dedup

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// Store records which devices have submitted during a given cycle.
type Store interface {
	// Seen reports whether the device already submitted in the cycle.
	Seen(ctx context.Context, cycle uint64, deviceID string) (bool, error)
	// Mark records a submission for the device in the cycle.
	Mark(ctx context.Context, cycle uint64, deviceID string) error
}

// MemoryStore keeps dedup state in process memory. Suitable for tests
// and single-instance deployments.
type MemoryStore struct {
	mu   sync.RWMutex
	seen map[string]struct{}
}

// NewMemoryStore creates an empty in-memory dedup store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{seen: make(map[string]struct{})}
}

func dedupKey(cycle uint64, deviceID string) string {
	return fmt.Sprintf("dedup:cycle:%d:device:%s", cycle, deviceID)
}

func (m *MemoryStore) Seen(_ context.Context, cycle uint64, deviceID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.seen[dedupKey(cycle, deviceID)]
	return ok, nil
}

func (m *MemoryStore) Mark(_ context.Context, cycle uint64, deviceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seen[dedupKey(cycle, deviceID)] = struct{}{}
	return nil
}

// RedisStore backs dedup state with Redis so multiple gateway instances
// share it. Keys expire after TTL, which should exceed the cycle length.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// DefaultTTL bounds how long a dedup key survives. Cycles are expected
// to be shorter than this.
const DefaultTTL = 7 * 24 * time.Hour

// NewRedisStore wraps an existing Redis client. A zero ttl falls back
// to DefaultTTL.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{client: client, ttl: ttl}
}

func (r *RedisStore) Seen(ctx context.Context, cycle uint64, deviceID string) (bool, error) {
	n, err := r.client.Exists(ctx, dedupKey(cycle, deviceID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check dedup key: %w", err)
	}
	return n > 0, nil
}

func (r *RedisStore) Mark(ctx context.Context, cycle uint64, deviceID string) error {
	if err := r.client.Set(ctx, dedupKey(cycle, deviceID), "1", r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to mark dedup key: %w", err)
	}
	return nil
}
