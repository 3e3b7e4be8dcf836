// Package drift tracks pools whose occupancy counter is suspected to be out
// of step with their assignments and therefore awaits a recount.
package drift

import (
	"context"
	"sort"
	"sync"

	"github.com/go-redis/redis/v8"
)

// RedisQueue keeps pending pool ids in a Redis set so every replica reports
// into, and heals from, the same place.
type RedisQueue struct {
	c   *redis.Client
	key string
}

// NewRedisQueue returns a queue stored under key.
func NewRedisQueue(c *redis.Client, key string) *RedisQueue {
	return &RedisQueue{c: c, key: key}
}

// Report marks poolID for recount. Reporting twice is harmless.
func (q *RedisQueue) Report(ctx context.Context, poolID string) error {
	return q.c.SAdd(ctx, q.key, poolID).Err()
}

// Pending returns the marked pool ids in sorted order.
func (q *RedisQueue) Pending(ctx context.Context) ([]string, error) {
	ids, err := q.c.SMembers(ctx, q.key).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(ids)
	return ids, nil
}

// Ack clears the mark on poolID.
func (q *RedisQueue) Ack(ctx context.Context, poolID string) error {
	return q.c.SRem(ctx, q.key, poolID).Err()
}

// MemoryQueue is the single-process equivalent used when Redis is disabled.
type MemoryQueue struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

// NewMemoryQueue returns an empty queue.
func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{ids: map[string]struct{}{}}
}

// Report marks poolID for recount.
func (q *MemoryQueue) Report(_ context.Context, poolID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.ids[poolID] = struct{}{}
	return nil
}

// Pending returns the marked pool ids in sorted order.
func (q *MemoryQueue) Pending(_ context.Context) ([]string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]string, 0, len(q.ids))
	for id := range q.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

// Ack clears the mark on poolID.
func (q *MemoryQueue) Ack(_ context.Context, poolID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.ids, poolID)
	return nil
}
