package writer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/memvecgo/internal/chunkcodec"
	"github.com/Aman-CERP/memvecgo/internal/docid"
	"github.com/Aman-CERP/memvecgo/internal/pointer"
	"github.com/Aman-CERP/memvecgo/internal/vecobj"
)

func chunkIDFor(document, chunk uint32) (uint64, error) {
	id, err := pointer.Encode(document, chunk, 0)
	if err != nil {
		return 0, err
	}
	return pointer.ChunkIDOf(id)
}

type fakeIndex struct {
	mu    sync.Mutex
	added []*vecobj.Vector
}

func (f *fakeIndex) AddMany(vectors []*vecobj.Vector) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.added = append(f.added, vectors...)
	return nil
}

type fakeStore struct {
	mu      sync.Mutex
	uploads map[uint64][]byte
	failIDs map[uint64]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{uploads: make(map[uint64][]byte), failIDs: make(map[uint64]bool)}
}

func (f *fakeStore) PutChunk(ctx context.Context, chunkID uint64, blob []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failIDs[chunkID] {
		return errors.New("simulated upload failure")
	}
	f.uploads[chunkID] = blob
	return nil
}

func passages(n int) []Passage {
	out := make([]Passage, n)
	for i := range out {
		out[i] = Passage{
			SourceFile: "doc.md",
			Text:       fmt.Sprintf("passage %d", i),
			Embedding:  []float32{float32(i), 1, 2},
		}
	}
	return out
}

func newTestWriter(t *testing.T, index Indexer, store ChunkUploader, maxPerChunk int) *Writer {
	t.Helper()
	w, err := New(Dependencies{
		Index:              index,
		Store:              store,
		DocIDs:             docid.NewMemoryRegistry(),
		Pack:               chunkcodec.Pack,
		MaxVectorsPerChunk: maxPerChunk,
	})
	require.NoError(t, err)
	return w
}

func TestIngest_EmptyIsNoop(t *testing.T) {
	w := newTestWriter(t, &fakeIndex{}, newFakeStore(), 0)
	result, err := w.Ingest(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, result.VectorCount)
}

func TestIngest_SingleChunk(t *testing.T) {
	idx := &fakeIndex{}
	store := newFakeStore()
	w := newTestWriter(t, idx, store, 100)

	result, err := w.Ingest(context.Background(), passages(10))
	require.NoError(t, err)
	assert.Equal(t, 10, result.VectorCount)
	require.Len(t, result.ChunkUploads, 1)
	assert.NoError(t, result.ChunkUploads[0].Err)
	assert.Len(t, idx.added, 10)
	assert.False(t, result.Failed())
}

func TestIngest_SplitsAcrossChunks(t *testing.T) {
	idx := &fakeIndex{}
	store := newFakeStore()
	w := newTestWriter(t, idx, store, 4)

	result, err := w.Ingest(context.Background(), passages(10))
	require.NoError(t, err)
	assert.Equal(t, 10, result.VectorCount)
	assert.Len(t, result.ChunkUploads, 3) // 4 + 4 + 2

	for _, status := range result.ChunkUploads {
		assert.NoError(t, status.Err)
	}
}

func TestIngest_AssignsRunningOffsetsWithinChunk(t *testing.T) {
	idx := &fakeIndex{}
	store := newFakeStore()
	w := newTestWriter(t, idx, store, 3)

	_, err := w.Ingest(context.Background(), passages(7))
	require.NoError(t, err)

	byChunk := make(map[uint32][]uint32)
	for _, v := range idx.added {
		byChunk[v.Chunk()] = append(byChunk[v.Chunk()], v.Offset())
	}
	assert.ElementsMatch(t, []uint32{0, 1, 2}, byChunk[0])
	assert.ElementsMatch(t, []uint32{0, 1, 2}, byChunk[1])
	assert.ElementsMatch(t, []uint32{0}, byChunk[2])
}

func TestIngest_MetadataIncludesPreview(t *testing.T) {
	idx := &fakeIndex{}
	store := newFakeStore()
	w := newTestWriter(t, idx, store, 100)

	long := strings.Repeat("x", 250)
	_, err := w.Ingest(context.Background(), []Passage{
		{SourceFile: "a.md", Text: long, Embedding: []float32{1}},
	})
	require.NoError(t, err)

	require.Len(t, idx.added, 1)
	meta := idx.added[0].Metadata()
	assert.Equal(t, "a.md", meta["source_file"])
	preview, ok := meta["text_preview"].(string)
	require.True(t, ok)
	assert.True(t, strings.HasSuffix(preview, "…"))
	assert.Equal(t, previewLen+1, len([]rune(preview))) // +1 for the ellipsis rune
}

// fixedRegistry always reserves the same document id, making the
// resulting chunk ids predictable for this test.
type fixedRegistry struct{ id uint32 }

func (f fixedRegistry) Reserve(ctx context.Context) (uint32, error) { return f.id, nil }

func TestIngest_ReportsPerChunkUploadFailureWithoutFailingOthers(t *testing.T) {
	idx := &fakeIndex{}
	store := newFakeStore()
	w, err := New(Dependencies{
		Index:              idx,
		Store:              store,
		DocIDs:             fixedRegistry{id: 7},
		Pack:               chunkcodec.Pack,
		MaxVectorsPerChunk: 3,
	})
	require.NoError(t, err)

	// Chunk 0 of document 7 will fail; chunk 1 should still succeed and
	// be reported independently (spec.md §4.7: per-chunk upload status).
	failingChunkID, encErr := chunkIDFor(7, 0)
	require.NoError(t, encErr)
	store.failIDs[failingChunkID] = true

	result, err := w.Ingest(context.Background(), passages(6))
	require.NoError(t, err)
	require.Len(t, result.ChunkUploads, 2)
	assert.True(t, result.Failed())

	var sawFailure, sawSuccess bool
	for _, status := range result.ChunkUploads {
		if status.ChunkID == failingChunkID {
			assert.Error(t, status.Err)
			sawFailure = true
		} else {
			assert.NoError(t, status.Err)
			sawSuccess = true
		}
	}
	assert.True(t, sawFailure)
	assert.True(t, sawSuccess)
}
