// Package chunkcodec packs and unpacks the binary layout stored at
// chunks/<chunk_id>.bin (spec.md §4.3, §6). The source project pickled a
// language-native matrix; this is a fixed, self-describing, little-endian
// layout so producer and consumer can be rewritten independently of each
// other.
package chunkcodec

import (
	"encoding/binary"
	"math"

	"github.com/Aman-CERP/memvecgo/internal/errkit"
	"github.com/Aman-CERP/memvecgo/internal/vecobj"
)

const (
	magic         = "MVCK"
	version       = uint8(1)
	headerSize    = 16
	bytesPerFloat = 4
)

// Matrix is a row-major view of the vectors unpacked from a chunk blob.
type Matrix struct {
	Count int
	Dim   int
	Data  []float32 // len == Count*Dim, row i occupies Data[i*Dim:(i+1)*Dim]
}

// Row returns the i-th row without copying.
func (m Matrix) Row(i int) []float32 {
	return m.Data[i*m.Dim : (i+1)*m.Dim]
}

// Pack serializes an ordered, non-empty, same-dimension list of vectors
// into the fixed MVCK binary layout.
func Pack(vectors []*vecobj.Vector) ([]byte, error) {
	if len(vectors) == 0 {
		return nil, errkit.ChunkCorrupt("cannot pack an empty vector list", nil)
	}

	dim := len(vectors[0].Values())
	for _, v := range vectors {
		if len(v.Values()) != dim {
			return nil, errkit.DimensionMismatch(dim, len(v.Values()))
		}
	}
	if len(vectors) > 1<<16 {
		return nil, errkit.ChunkCorrupt("chunk exceeds 65536 vectors", nil)
	}

	count := len(vectors)
	buf := make([]byte, headerSize+count*dim*bytesPerFloat)

	copy(buf[0:4], magic)
	buf[4] = version
	// bytes 5-7 reserved, left zero
	binary.LittleEndian.PutUint32(buf[8:12], uint32(count))
	binary.LittleEndian.PutUint32(buf[12:16], uint32(dim))

	offset := headerSize
	for _, v := range vectors {
		for _, f := range v.Values() {
			binary.LittleEndian.PutUint32(buf[offset:offset+4], math.Float32bits(f))
			offset += 4
		}
	}
	return buf, nil
}

// Unpack validates the MVCK header and returns a row-major Matrix view.
func Unpack(blob []byte) (Matrix, error) {
	if len(blob) < headerSize {
		return Matrix{}, errkit.ChunkCorrupt("chunk blob shorter than header", nil)
	}
	if string(blob[0:4]) != magic {
		return Matrix{}, errkit.ChunkCorrupt("chunk blob has wrong magic", nil)
	}
	if blob[4] != version {
		return Matrix{}, errkit.ChunkCorrupt("chunk blob has unsupported version", nil)
	}

	count := int(binary.LittleEndian.Uint32(blob[8:12]))
	dim := int(binary.LittleEndian.Uint32(blob[12:16]))

	wantLen := headerSize + count*dim*bytesPerFloat
	if len(blob) != wantLen {
		return Matrix{}, errkit.ChunkCorrupt("chunk blob size disagrees with header", nil)
	}

	data := make([]float32, count*dim)
	offset := headerSize
	for i := range data {
		data[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[offset : offset+4]))
		offset += 4
	}

	return Matrix{Count: count, Dim: dim, Data: data}, nil
}
