package reader

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/memvecgo/internal/annindex"
	"github.com/Aman-CERP/memvecgo/internal/cache"
	"github.com/Aman-CERP/memvecgo/internal/chunkcodec"
	"github.com/Aman-CERP/memvecgo/internal/pointer"
	"github.com/Aman-CERP/memvecgo/internal/vecobj"
)

type fakeEmbedder struct {
	vector []float32
	err    error
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return f.vector, f.err
}

type fakeStore struct {
	mu      sync.Mutex
	chunks  map[uint64][]byte
	fetches int32
	failIDs map[uint64]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{chunks: make(map[uint64][]byte), failIDs: make(map[uint64]bool)}
}

func (f *fakeStore) GetChunk(ctx context.Context, chunkID uint64) ([]byte, error) {
	atomic.AddInt32(&f.fetches, 1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failIDs[chunkID] {
		return nil, errors.New("simulated store failure")
	}
	blob, ok := f.chunks[chunkID]
	if !ok {
		return nil, errors.New("not found")
	}
	return blob, nil
}

func setupIndexAndStore(t *testing.T) (*annindex.Index, *fakeStore, uint64) {
	t.Helper()
	idx, err := annindex.New(annindex.Config{Dim: 3})
	require.NoError(t, err)

	v, err := vecobj.New([]float32{1, 0, 0}, 1, 0, 0, nil)
	require.NoError(t, err)
	require.NoError(t, idx.AddMany([]*vecobj.Vector{v}))

	store := newFakeStore()
	blob, err := chunkcodec.Pack([]*vecobj.Vector{v})
	require.NoError(t, err)
	store.chunks[v.ChunkID()] = blob

	return idx, store, v.ChunkID()
}

func TestQuery_ReturnsHitFromStoreOnCacheMiss(t *testing.T) {
	idx, store, _ := setupIndexAndStore(t)
	r, err := New(Dependencies{
		Index:    idx,
		Cache:    cache.NewMemoryCache(10),
		Store:    store,
		Embedder: &fakeEmbedder{vector: []float32{1, 0, 0}},
	})
	require.NoError(t, err)

	result, err := r.Query(context.Background(), "find me", 5, nil)
	require.NoError(t, err)
	require.Len(t, result.Hits, 1)
	assert.Equal(t, uint32(1), result.Hits[0].DocumentID)
	assert.Equal(t, []float32{1, 0, 0}, result.Hits[0].VectorValues)
	assert.Empty(t, result.Warnings)
}

func TestQuery_PopulatesCacheOnMiss(t *testing.T) {
	idx, store, chunkID := setupIndexAndStore(t)
	c := cache.NewMemoryCache(10)
	r, err := New(Dependencies{Index: idx, Cache: c, Store: store, Embedder: &fakeEmbedder{vector: []float32{1, 0, 0}}})
	require.NoError(t, err)

	_, err = r.Query(context.Background(), "find me", 5, nil)
	require.NoError(t, err)

	_, ok, err := c.Get(context.Background(), cache.Key(chunkID))
	require.NoError(t, err)
	assert.True(t, ok, "chunk should have been populated into the cache after a store fetch")
}

func TestQuery_ServesFromCacheWithoutHittingStore(t *testing.T) {
	idx, store, chunkID := setupIndexAndStore(t)
	c := cache.NewMemoryCache(10)
	blob := store.chunks[chunkID]
	require.NoError(t, c.Set(context.Background(), cache.Key(chunkID), blob, cache.DefaultTTL))

	r, err := New(Dependencies{Index: idx, Cache: c, Store: store, Embedder: &fakeEmbedder{vector: []float32{1, 0, 0}}})
	require.NoError(t, err)

	result, err := r.Query(context.Background(), "find me", 5, nil)
	require.NoError(t, err)
	require.Len(t, result.Hits, 1)
	assert.Equal(t, int32(0), atomic.LoadInt32(&store.fetches), "store should not be hit when the cache has the chunk")
}

func TestQuery_EmbedderFailureIsEmbeddingFailed(t *testing.T) {
	idx, store, _ := setupIndexAndStore(t)
	r, err := New(Dependencies{
		Index:    idx,
		Cache:    cache.NewMemoryCache(10),
		Store:    store,
		Embedder: &fakeEmbedder{err: errors.New("model unavailable")},
	})
	require.NoError(t, err)

	_, err = r.Query(context.Background(), "find me", 5, nil)
	require.Error(t, err)
}

func TestQuery_NoCandidatesReturnsEmptySuccess(t *testing.T) {
	idx, err := annindex.New(annindex.Config{Dim: 3})
	require.NoError(t, err)
	store := newFakeStore()

	r, err := New(Dependencies{
		Index:    idx,
		Cache:    cache.NewMemoryCache(10),
		Store:    store,
		Embedder: &fakeEmbedder{vector: []float32{1, 0, 0}},
	})
	require.NoError(t, err)

	result, err := r.Query(context.Background(), "find me", 5, nil)
	require.NoError(t, err)
	assert.Empty(t, result.Hits)
}

func TestQuery_StoreFailureProducesWarningNotError(t *testing.T) {
	idx, store, chunkID := setupIndexAndStore(t)
	store.failIDs[chunkID] = true

	r, err := New(Dependencies{
		Index:    idx,
		Cache:    cache.NewMemoryCache(10),
		Store:    store,
		Embedder: &fakeEmbedder{vector: []float32{1, 0, 0}},
	})
	require.NoError(t, err)

	result, err := r.Query(context.Background(), "find me", 5, nil)
	require.NoError(t, err)
	assert.Empty(t, result.Hits)
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, chunkID, result.Warnings[0].ChunkID)
}

func TestQuery_CorruptedCacheEntryFallsBackToStore(t *testing.T) {
	idx, store, chunkID := setupIndexAndStore(t)
	c := cache.NewMemoryCache(10)
	require.NoError(t, c.Set(context.Background(), cache.Key(chunkID), []byte("not a valid chunk"), cache.DefaultTTL))

	r, err := New(Dependencies{Index: idx, Cache: c, Store: store, Embedder: &fakeEmbedder{vector: []float32{1, 0, 0}}})
	require.NoError(t, err)

	result, err := r.Query(context.Background(), "find me", 5, nil)
	require.NoError(t, err)
	require.Len(t, result.Hits, 1)
}

func TestQuery_HitsOrderedByIndexDistance(t *testing.T) {
	idx, err := annindex.New(annindex.Config{Dim: 3})
	require.NoError(t, err)

	near, err := vecobj.New([]float32{1, 0, 0}, 1, 0, 0, nil)
	require.NoError(t, err)
	far, err := vecobj.New([]float32{0, 5, 0}, 1, 0, 1, nil)
	require.NoError(t, err)
	require.NoError(t, idx.AddMany([]*vecobj.Vector{far, near}))

	store := newFakeStore()
	blob, err := chunkcodec.Pack([]*vecobj.Vector{near, far})
	require.NoError(t, err)
	store.chunks[near.ChunkID()] = blob

	r, err := New(Dependencies{
		Index:    idx,
		Cache:    cache.NewMemoryCache(10),
		Store:    store,
		Embedder: &fakeEmbedder{vector: []float32{1, 0, 0}},
	})
	require.NoError(t, err)

	result, err := r.Query(context.Background(), "find me", 2, nil)
	require.NoError(t, err)
	require.Len(t, result.Hits, 2)
	assert.True(t, result.Hits[0].Distance <= result.Hits[1].Distance)
	assert.Equal(t, uint32(0), result.Hits[0].Offset)
}

func TestChunkIDOf_MatchesReaderGrouping(t *testing.T) {
	id, err := pointer.Encode(3, 2, 1)
	require.NoError(t, err)
	chunkID, err := pointer.ChunkIDOf(id)
	require.NoError(t, err)
	assert.NotZero(t, chunkID)
}
