package cache

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

const (
	DirtyCountersKey = "counters:dirty"

	drainBatch = 100
)

// RedisDirtySet tracks post ids whose cached like count may have drifted.
type RedisDirtySet struct {
	client *redis.Client
	key    string
}

func NewRedisDirtySet(client *redis.Client) *RedisDirtySet {
	return &RedisDirtySet{client: client, key: DirtyCountersKey}
}

func (d *RedisDirtySet) Add(ctx context.Context, postIDs ...string) error {
	if len(postIDs) == 0 {
		return nil
	}
	members := make([]interface{}, len(postIDs))
	for i, id := range postIDs {
		members[i] = id
	}
	if err := d.client.SAdd(ctx, d.key, members...).Err(); err != nil {
		return fmt.Errorf("failed to mark counters dirty: %w", err)
	}
	return nil
}

// Drain pops every member. Members added while draining may be returned now
// or on the next call.
func (d *RedisDirtySet) Drain(ctx context.Context) ([]string, error) {
	var ids []string
	for {
		batch, err := d.client.SPopN(ctx, d.key, drainBatch).Result()
		if err != nil && err != redis.Nil {
			return ids, fmt.Errorf("failed to drain dirty counters: %w", err)
		}
		ids = append(ids, batch...)
		if len(batch) < drainBatch {
			return ids, nil
		}
	}
}

// MemoryDirtySet is the single-process fallback used when Redis is not configured.
type MemoryDirtySet struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

func NewMemoryDirtySet() *MemoryDirtySet {
	return &MemoryDirtySet{ids: make(map[string]struct{})}
}

func (d *MemoryDirtySet) Add(ctx context.Context, postIDs ...string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, id := range postIDs {
		d.ids[id] = struct{}{}
	}
	return nil
}

func (d *MemoryDirtySet) Drain(ctx context.Context) ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	ids := make([]string, 0, len(d.ids))
	for id := range d.ids {
		ids = append(ids, id)
	}
	d.ids = make(map[string]struct{})
	return ids, nil
}
