// Package vecobj defines the Vector value object: an embedding plus the
// pointer components that place it in a document/chunk/offset, and
// optional metadata that never travels to the object store (spec.md §3,
// §4.2).
package vecobj

import (
	"math"

	"github.com/Aman-CERP/memvecgo/internal/errkit"
	"github.com/Aman-CERP/memvecgo/internal/pointer"
)

// MetaValue is a scalar or string metadata value. Metadata never
// participates in the chunk codec (spec.md §3: "not persisted in the
// object store").
type MetaValue any

// Vector is the unit of write and read for the retrieval engine. Once
// constructed it is immutable: no method mutates Values, Document, Chunk,
// Offset, or Metadata.
type Vector struct {
	values   []float32
	document uint32
	chunk    uint32
	offset   uint32
	metadata map[string]MetaValue
}

// New constructs a Vector from explicit (document, chunk, offset)
// components, validating that values contains no NaN/Inf (spec.md §4.6:
// "InvalidVector").
func New(values []float32, document, chunk, offset uint32, metadata map[string]MetaValue) (*Vector, error) {
	if err := validateFinite(values); err != nil {
		return nil, err
	}
	id, err := pointer.Encode(document, chunk, offset)
	if err != nil {
		return nil, err
	}
	_ = id // validates ranges; components are stored directly below

	v := &Vector{
		values:   append([]float32(nil), values...),
		document: document,
		chunk:    chunk,
		offset:   offset,
		metadata: copyMetadata(metadata),
	}
	return v, nil
}

// FromID constructs a Vector by decoding an existing pointer id into its
// (document, chunk, offset) components.
func FromID(values []float32, id uint64, metadata map[string]MetaValue) (*Vector, error) {
	document, chunk, offset, err := pointer.Decode(id)
	if err != nil {
		return nil, err
	}
	return New(values, document, chunk, offset, metadata)
}

// Values returns the embedding. The caller must not mutate the returned slice.
func (v *Vector) Values() []float32 { return v.values }

// Document returns the owning document id.
func (v *Vector) Document() uint32 { return v.document }

// Chunk returns the chunk number within the document.
func (v *Vector) Chunk() uint32 { return v.chunk }

// Offset returns the offset within the chunk.
func (v *Vector) Offset() uint32 { return v.offset }

// Metadata returns the vector's metadata. The caller must not mutate the returned map.
func (v *Vector) Metadata() map[string]MetaValue { return v.metadata }

// ID returns the encoded 63-bit pointer for this vector.
func (v *Vector) ID() uint64 {
	id, _ := pointer.Encode(v.document, v.chunk, v.offset)
	return id
}

// ChunkID returns chunk_id_of(v.ID()).
func (v *Vector) ChunkID() uint64 {
	chunkID, _ := pointer.ChunkIDOf(v.ID())
	return chunkID
}

func validateFinite(values []float32) error {
	if len(values) == 0 {
		return errkit.InvalidVector("vector has zero length")
	}
	for _, f := range values {
		if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
			return errkit.InvalidVector("vector contains NaN or Inf")
		}
	}
	return nil
}

func copyMetadata(m map[string]MetaValue) map[string]MetaValue {
	if m == nil {
		return nil
	}
	out := make(map[string]MetaValue, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
