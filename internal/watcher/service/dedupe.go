package service

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"
)

const seenTxKeyPrefix = "whale:seen:"

// Deduper remembers which transactions already triggered a mint so one
// transfer never mints twice across polls.
type Deduper interface {
	// MarkSeen records the transaction and reports whether this was the
	// first sighting.
	MarkSeen(ctx context.Context, tx common.Hash) (bool, error)
}

// RedisDeduper is the production deduper: a TTL-marked key per transaction
// hash, shared across instances. SETNX makes mark-and-check atomic.
type RedisDeduper struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisDeduper(client *redis.Client, ttl time.Duration) *RedisDeduper {
	return &RedisDeduper{client: client, ttl: ttl}
}

func (d *RedisDeduper) MarkSeen(ctx context.Context, tx common.Hash) (bool, error) {
	// Store "1" as a simple marker; the key existence is what matters.
	first, err := d.client.SetNX(ctx, seenTxKeyPrefix+tx.Hex(), "1", d.ttl).Result()
	if err != nil {
		return false, err
	}
	return first, nil
}

// MemoryDeduper backs tests and redis-less dev deployments.
type MemoryDeduper struct {
	mu   sync.Mutex
	seen map[common.Hash]struct{}
}

func NewMemoryDeduper() *MemoryDeduper {
	return &MemoryDeduper{seen: make(map[common.Hash]struct{})}
}

func (d *MemoryDeduper) MarkSeen(_ context.Context, tx common.Hash) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.seen[tx]; ok {
		return false, nil
	}
	d.seen[tx] = struct{}{}
	return true, nil
}
