package cache

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

// MemoryCache is the process-local, in-memory ChunkCache backend: the
// default when no Redis endpoint is configured, and the deterministic
// fake spec.md §4.5 requires for tests. Entries carry their own
// expiration so callers can set a TTL per key despite the underlying LRU
// applying none itself.
type MemoryCache struct {
	mu    sync.Mutex
	store *lru.LRU[string, entry]
}

type entry struct {
	value     []byte
	expiresAt time.Time // zero means no expiry
}

// NewMemoryCache builds a bounded LRU cache holding up to capacity
// entries. capacity <= 0 means unbounded.
func NewMemoryCache(capacity int) *MemoryCache {
	if capacity <= 0 {
		capacity = 0
	}
	return &MemoryCache{store: lru.NewLRU[string, entry](capacity, nil, 0)}
}

func (c *MemoryCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.store.Get(key)
	if !ok {
		return nil, false, nil
	}
	if !e.expiresAt.IsZero() && time.Now().After(e.expiresAt) {
		c.store.Remove(key)
		return nil, false, nil
	}
	return e.value, true, nil
}

func (c *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store.Add(key, makeEntry(value, ttl))
	return nil
}

func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store.Remove(key)
	return nil
}

func (c *MemoryCache) Exists(ctx context.Context, key string) (bool, error) {
	_, ok, err := c.Get(ctx, key)
	return ok, err
}

func (c *MemoryCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store.Purge()
	return nil
}

// GetMany mirrors RedisCache's pipelined contract without a network round
// trip. Each key is looked up through Get, which takes the lock once per
// key, so the batch is not read in a single critical section.
func (c *MemoryCache) GetMany(ctx context.Context, keys []string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(keys))
	for _, key := range keys {
		if val, ok, _ := c.Get(ctx, key); ok {
			out[key] = val
		}
	}
	return out, nil
}

func (c *MemoryCache) SetMany(ctx context.Context, items map[string][]byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, value := range items {
		c.store.Add(key, makeEntry(value, ttl))
	}
	return nil
}

func makeEntry(value []byte, ttl time.Duration) entry {
	e := entry{value: value}
	if ttl > 0 {
		e.expiresAt = time.Now().Add(ttl)
	}
	return e
}

var _ ChunkCache = (*MemoryCache)(nil)
