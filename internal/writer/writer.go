// Package writer implements the write-side pipeline of spec.md §4.7:
// mint a document id, split an ordered sequence of embedded passages
// into fixed-size chunks, add the vectors to the ANN index, and upload
// each chunk to the object store. Structured as the same phased,
// dependency-injected pipeline pattern used elsewhere in this codebase,
// with file-scanning and chunk-extraction treated as the external
// collaborator spec.md §1 carves out of scope.
package writer

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/memvecgo/internal/annindex"
	"github.com/Aman-CERP/memvecgo/internal/docid"
	"github.com/Aman-CERP/memvecgo/internal/errkit"
	"github.com/Aman-CERP/memvecgo/internal/pointer"
	"github.com/Aman-CERP/memvecgo/internal/telemetry"
	"github.com/Aman-CERP/memvecgo/internal/vecobj"
)

// DefaultMaxVectorsPerChunk matches spec.md §4.7's "default 100", well
// under the 16-bit offset field's 65,536 ceiling.
const DefaultMaxVectorsPerChunk = 100

// previewLen is the number of runes kept in a passage's text preview.
const previewLen = 200

// Passage is one unit of already-extracted, already-embedded text handed
// to the writer by the external chunker/embedder pipeline.
type Passage struct {
	SourceFile string
	Text       string
	Embedding  []float32
}

// Indexer is the subset of annindex.Index the writer depends on.
type Indexer interface {
	AddMany(vectors []*vecobj.Vector) error
}

// ChunkUploader is the subset of objstore.Store the writer depends on.
type ChunkUploader interface {
	PutChunk(ctx context.Context, chunkID uint64, blob []byte) error
}

// ChunkPacker packs vectors belonging to one (document, chunk) into a
// storable blob.
type ChunkPacker func(vectors []*vecobj.Vector) ([]byte, error)

// Dependencies are the injected collaborators for a Writer.
type Dependencies struct {
	Index              Indexer
	Store              ChunkUploader
	DocIDs             docid.Registry
	Pack               ChunkPacker
	MaxVectorsPerChunk int

	// Metrics is optional; when set, chunk uploads are counted as
	// store_put/store_error per spec.md §9's Observability note.
	Metrics *telemetry.Recorder
}

// Writer assigns document ids and ingests embedded passages.
type Writer struct {
	index   Indexer
	store   ChunkUploader
	docIDs  docid.Registry
	pack    ChunkPacker
	maxSize int
	metrics *telemetry.Recorder
}

// New builds a Writer from its dependencies, applying defaults.
func New(deps Dependencies) (*Writer, error) {
	if deps.Index == nil {
		return nil, errkit.Internal("writer: index is required", nil)
	}
	if deps.Store == nil {
		return nil, errkit.Internal("writer: store is required", nil)
	}
	if deps.DocIDs == nil {
		return nil, errkit.Internal("writer: document id registry is required", nil)
	}
	if deps.Pack == nil {
		return nil, errkit.Internal("writer: chunk packer is required", nil)
	}

	maxSize := deps.MaxVectorsPerChunk
	if maxSize <= 0 {
		maxSize = DefaultMaxVectorsPerChunk
	}
	if maxSize > pointer.MaxOffset+1 {
		maxSize = pointer.MaxOffset + 1
	}

	return &Writer{
		index:   deps.Index,
		store:   deps.Store,
		docIDs:  deps.DocIDs,
		pack:    deps.Pack,
		maxSize: maxSize,
		metrics: deps.Metrics,
	}, nil
}

// ChunkUploadStatus reports the outcome of uploading one chunk.
type ChunkUploadStatus struct {
	ChunkID uint64
	Err     error
}

// IngestResult reports what Ingest did.
type IngestResult struct {
	DocumentID   uint32
	VectorCount  int
	ChunkUploads []ChunkUploadStatus
}

// Failed reports whether any chunk upload failed.
func (r *IngestResult) Failed() bool {
	for _, u := range r.ChunkUploads {
		if u.Err != nil {
			return true
		}
	}
	return false
}

// Ingest mints a document id, packs passages into chunks, adds every
// vector to the index in one call, then uploads each chunk. The index
// add happens-before the first upload (spec.md §5): a reader that
// observes any chunk for the document is guaranteed to also observe its
// ids in the index.
//
// If any upload fails permanently, the document is left partially
// ingested; the caller inspects IngestResult.ChunkUploads to compensate
// (spec.md §4.7). The index offers no removal.
func (w *Writer) Ingest(ctx context.Context, passages []Passage) (*IngestResult, error) {
	if len(passages) == 0 {
		return &IngestResult{}, nil
	}

	documentID, err := w.docIDs.Reserve(ctx)
	if err != nil {
		return nil, err
	}

	groups, vectors, err := w.buildChunks(documentID, passages)
	if err != nil {
		return nil, err
	}

	if err := w.index.AddMany(vectors); err != nil {
		return nil, err
	}

	statuses, err := w.uploadChunks(ctx, groups)
	if err != nil {
		return nil, err
	}

	return &IngestResult{
		DocumentID:   documentID,
		VectorCount:  len(vectors),
		ChunkUploads: statuses,
	}, nil
}

func (w *Writer) buildChunks(documentID uint32, passages []Passage) (map[uint64][]*vecobj.Vector, []*vecobj.Vector, error) {
	groups := make(map[uint64][]*vecobj.Vector)
	vectors := make([]*vecobj.Vector, 0, len(passages))

	var chunk, offset uint32
	for i, p := range passages {
		if int(offset) >= w.maxSize {
			chunk++
			offset = 0
		}

		v, err := vecobj.New(p.Embedding, documentID, chunk, offset, map[string]vecobj.MetaValue{
			"source_file":  p.SourceFile,
			"text_index":   i,
			"text_preview": preview(p.Text),
		})
		if err != nil {
			return nil, nil, err
		}

		groups[v.ChunkID()] = append(groups[v.ChunkID()], v)
		vectors = append(vectors, v)
		offset++
	}

	return groups, vectors, nil
}

// uploadChunks packs and uploads chunks concurrently, collecting a
// per-chunk status rather than failing the whole ingest on one error
// (spec.md §4.7: "the writer reports per-chunk upload status").
func (w *Writer) uploadChunks(ctx context.Context, groups map[uint64][]*vecobj.Vector) ([]ChunkUploadStatus, error) {
	chunkIDs := make([]uint64, 0, len(groups))
	for chunkID := range groups {
		chunkIDs = append(chunkIDs, chunkID)
	}

	statuses := make([]ChunkUploadStatus, len(chunkIDs))
	group, gctx := errgroup.WithContext(ctx)
	for i, chunkID := range chunkIDs {
		i, chunkID := i, chunkID
		group.Go(func() error {
			blob, err := w.pack(groups[chunkID])
			if err != nil {
				statuses[i] = ChunkUploadStatus{ChunkID: chunkID, Err: err}
				return nil
			}
			if err := w.store.PutChunk(gctx, chunkID, blob); err != nil {
				statuses[i] = ChunkUploadStatus{ChunkID: chunkID, Err: err}
				if w.metrics != nil {
					w.metrics.StoreError()
				}
				return nil
			}
			if w.metrics != nil {
				w.metrics.StorePut()
			}
			statuses[i] = ChunkUploadStatus{ChunkID: chunkID}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return statuses, nil
}

func preview(text string) string {
	runes := []rune(text)
	if len(runes) <= previewLen {
		return text
	}
	return fmt.Sprintf("%s…", string(runes[:previewLen]))
}
