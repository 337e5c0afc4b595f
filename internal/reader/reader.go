// Package reader implements the query pipeline of spec.md §4.8: embed
// the query, ask the index for candidate ids, group by chunk, resolve
// chunks from cache then store, and materialize results in the
// index-returned order. Chunk resolution runs concurrently
// (spec.md §5: "fetches SHOULD be issued concurrently") via
// golang.org/x/sync/errgroup and deduplicates against concurrent
// identical fetches with golang.org/x/sync/singleflight.
package reader

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/Aman-CERP/memvecgo/internal/cache"
	"github.com/Aman-CERP/memvecgo/internal/chunkcodec"
	"github.com/Aman-CERP/memvecgo/internal/errkit"
	"github.com/Aman-CERP/memvecgo/internal/pointer"
	"github.com/Aman-CERP/memvecgo/internal/telemetry"
)

// Embedder is the narrow slice of internal/embed's Embedder this package
// depends on: turning one query string into one vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Searcher is the subset of annindex.Index the reader depends on.
type Searcher interface {
	Search(query []float32, k int, threshold *float32) ([]uint64, []float32, error)
}

// ChunkFetcher is the subset of objstore.Store the reader depends on.
type ChunkFetcher interface {
	GetChunk(ctx context.Context, chunkID uint64) ([]byte, error)
}

// Dependencies are the injected collaborators for a Reader.
type Dependencies struct {
	Index    Searcher
	Cache    cache.ChunkCache
	Store    ChunkFetcher
	Embedder Embedder

	// Metrics is optional; when set, the four pipeline stages (embed,
	// search, resolve, respond) and the cache/store counters of
	// spec.md §9's Observability note are recorded against it.
	Metrics *telemetry.Recorder
}

// Reader runs the query pipeline.
type Reader struct {
	index    Searcher
	cache    cache.ChunkCache
	store    ChunkFetcher
	embedder Embedder
	metrics  *telemetry.Recorder
	group    singleflight.Group
}

// New builds a Reader from its dependencies.
func New(deps Dependencies) (*Reader, error) {
	if deps.Index == nil {
		return nil, errkit.Internal("reader: index is required", nil)
	}
	if deps.Cache == nil {
		return nil, errkit.Internal("reader: cache is required", nil)
	}
	if deps.Store == nil {
		return nil, errkit.Internal("reader: store is required", nil)
	}
	if deps.Embedder == nil {
		return nil, errkit.Internal("reader: embedder is required", nil)
	}
	return &Reader{
		index:    deps.Index,
		cache:    deps.Cache,
		store:    deps.Store,
		embedder: deps.Embedder,
		metrics:  deps.Metrics,
	}, nil
}

// track starts a named span if metrics are configured; the returned func
// is always safe to call (and defer).
func (r *Reader) track(name string) func() {
	if r.metrics == nil {
		return func() {}
	}
	return r.metrics.Track(name)
}

// Hit is one materialized search result.
type Hit struct {
	VectorValues []float32
	Distance     float32
	DocumentID   uint32
	ChunkID      uint64
	Offset       uint32
	VectorIndex  uint64
}

// Warning reports a non-fatal, per-chunk resolution failure.
type Warning struct {
	ChunkID uint64
	Err     error
}

// Result is the outcome of one query.
type Result struct {
	Hits     []Hit
	Warnings []Warning
}

// Query runs the full pipeline for one query string. A single chunk that
// fails to resolve omits only the ids that map to it; the rest of the
// response is returned with a Warning (spec.md §4.8).
func (r *Reader) Query(ctx context.Context, text string, k int, threshold *float32) (*Result, error) {
	start := time.Now()
	if r.metrics != nil {
		defer func() { r.metrics.RecordQueryLatency(time.Since(start)) }()
	}

	embedDone := r.track("embed")
	embedding, err := r.embedder.Embed(ctx, text)
	embedDone()
	if err != nil {
		return nil, errkit.EmbeddingFailed("embedding query failed", err)
	}

	searchDone := r.track("search")
	ids, distances, err := r.index.Search(embedding, k, threshold)
	searchDone()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return &Result{}, nil
	}

	distanceByID := make(map[uint64]float32, len(ids))
	groups := make(map[uint64][]uint64)
	for i, id := range ids {
		distanceByID[id] = distances[i]
		chunkID, err := pointer.ChunkIDOf(id)
		if err != nil {
			return nil, err
		}
		groups[chunkID] = append(groups[chunkID], id)
	}

	resolveDone := r.track("resolve")
	resolved, warnings := r.resolveChunks(ctx, groups)
	resolveDone()

	defer r.track("respond")()

	hits := make([]Hit, 0, len(ids))
	for _, id := range ids {
		document, chunk, offset, err := pointer.Decode(id)
		if err != nil {
			return nil, err
		}
		chunkID, _ := pointer.ChunkIDOf(id)

		matrix, ok := resolved[chunkID]
		if !ok {
			continue
		}
		if int(offset) >= matrix.Count {
			continue
		}

		hits = append(hits, Hit{
			VectorValues: matrix.Row(int(offset)),
			Distance:     distanceByID[id],
			DocumentID:   document,
			ChunkID:      chunkID,
			Offset:       offset,
			VectorIndex:  id,
		})
	}

	return &Result{Hits: hits, Warnings: warnings}, nil
}

// resolveChunks fetches the chunk matrices for every group key, trying
// the cache first and falling back to the store, concurrently.
func (r *Reader) resolveChunks(ctx context.Context, groups map[uint64][]uint64) (map[uint64]chunkcodec.Matrix, []Warning) {
	chunkIDs := make([]uint64, 0, len(groups))
	keys := make([]string, 0, len(groups))
	for chunkID := range groups {
		chunkIDs = append(chunkIDs, chunkID)
		keys = append(keys, cache.Key(chunkID))
	}

	hits, _ := r.cache.GetMany(ctx, keys)

	resolved := make(map[uint64]chunkcodec.Matrix, len(chunkIDs))
	toCache := make(map[string][]byte)
	var mu sync.Mutex
	var warnings []Warning

	var missing []uint64
	for _, chunkID := range chunkIDs {
		blob, ok := hits[cache.Key(chunkID)]
		if !ok {
			missing = append(missing, chunkID)
			if r.metrics != nil {
				r.metrics.CacheMiss()
			}
			continue
		}
		matrix, err := chunkcodec.Unpack(blob)
		if err != nil {
			// Corrupted cache entry: treat as a miss and retry against the store.
			missing = append(missing, chunkID)
			if r.metrics != nil {
				r.metrics.CacheMiss()
			}
			continue
		}
		resolved[chunkID] = matrix
		if r.metrics != nil {
			r.metrics.CacheHit()
		}
	}

	group, gctx := errgroup.WithContext(ctx)
	for _, chunkID := range missing {
		chunkID := chunkID
		group.Go(func() error {
			matrix, blob, err := r.fetchAndParse(gctx, chunkID)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				warnings = append(warnings, Warning{ChunkID: chunkID, Err: err})
				return nil
			}
			resolved[chunkID] = matrix
			toCache[cache.Key(chunkID)] = blob
			return nil
		})
	}
	_ = group.Wait() // fetchAndParse never returns a non-nil error from Go(), only via warnings

	if len(toCache) > 0 {
		_ = r.cache.SetMany(ctx, toCache, cache.DefaultTTL)
	}

	return resolved, warnings
}

// fetchAndParse downloads a chunk, deduplicating concurrent fetches of
// the same chunk id across queries via singleflight, then unpacks it. A
// corrupted blob is retried once against the store before being treated
// as unresolved (spec.md §4.8).
func (r *Reader) fetchAndParse(ctx context.Context, chunkID uint64) (chunkcodec.Matrix, []byte, error) {
	key := fmt.Sprintf("%d", chunkID)

	blob, err, _ := r.group.Do(key, func() (any, error) {
		return r.store.GetChunk(ctx, chunkID)
	})
	if err != nil {
		r.recordStoreOutcome(err)
		return chunkcodec.Matrix{}, nil, err
	}
	r.recordStoreOutcome(nil)

	raw := blob.([]byte)
	matrix, err := chunkcodec.Unpack(raw)
	if err == nil {
		return matrix, raw, nil
	}

	// Corrupted once; retry directly against the store (bypassing
	// singleflight dedup, since the prior result is known bad).
	raw, err = r.store.GetChunk(ctx, chunkID)
	r.recordStoreOutcome(err)
	if err != nil {
		return chunkcodec.Matrix{}, nil, err
	}
	matrix, err = chunkcodec.Unpack(raw)
	if err != nil {
		return chunkcodec.Matrix{}, nil, err
	}
	return matrix, raw, nil
}

// recordStoreOutcome counts one object-store read, split between
// store_get and store_error per spec.md §9's Observability note.
func (r *Reader) recordStoreOutcome(err error) {
	if r.metrics == nil {
		return
	}
	if err != nil {
		r.metrics.StoreError()
		return
	}
	r.metrics.StoreGet()
}
