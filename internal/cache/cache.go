// Package cache implements the chunk cache of spec.md §4.5: a
// process-local key→blob cache with optional TTL and batched
// multi-get/multi-set, advisory only. Grounded on
// original_source/src/cache/cache_layer.py's Redis-pipeline batch
// operations, reimplemented against go-redis/v9 and, for the
// deterministic in-process fake the spec requires, an
// expirable LRU from hashicorp/golang-lru.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/Aman-CERP/memvecgo/internal/errkit"
)

// DefaultTTL is the cache entry lifetime when none is given (spec.md §3: "default one day").
const DefaultTTL = 24 * time.Hour

// Key returns the cache key for a chunk id: "chunk:<chunk_id>" (spec.md §6).
func Key(chunkID uint64) string {
	return fmt.Sprintf("chunk:%d", chunkID)
}

// ChunkCache is the contract every cache backend satisfies. Implementations
// must treat missing, stale, or corrupted entries as ordinary misses: the
// cache is never authoritative for correctness (spec.md §4.5).
type ChunkCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	Clear(ctx context.Context) error

	// GetMany and SetMany MUST be issued as a single pipelined round trip
	// where the backend supports it.
	GetMany(ctx context.Context, keys []string) (map[string][]byte, error)
	SetMany(ctx context.Context, items map[string][]byte, ttl time.Duration) error
}

// wrapCacheErr turns a backend failure into a CacheErr EngineError. Callers
// on the read path downgrade this to a miss per policy.
func wrapCacheErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return errkit.CacheErr(fmt.Sprintf("cache %s failed", op), err)
}
