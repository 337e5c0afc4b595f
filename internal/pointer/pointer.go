// Package pointer implements the 63-bit identifier scheme that threads
// document, chunk, and offset into a single integer (spec.md §3, §4.1).
// It is the shared contract between the in-memory HNSW index and the
// chunked object store: a bare integer locates both a graph node and the
// store object containing its vector.
package pointer

import (
	"fmt"

	"github.com/Aman-CERP/memvecgo/internal/errkit"
)

// Field widths are part of the external interface (spec.md §6): changing
// any of these invalidates every stored chunk key and in-flight id.
const (
	OffsetBits   = 16
	ChunkBits    = 20
	DocumentBits = 27

	chunkShift    = OffsetBits
	documentShift = OffsetBits + ChunkBits

	// MaxOffset is the largest offset value a chunk can hold (exclusive bound is +1).
	MaxOffset = (1 << OffsetBits) - 1
	// MaxChunk is the largest chunk number within a document.
	MaxChunk = (1 << ChunkBits) - 1
	// MaxDocument is the largest document id.
	MaxDocument = (1 << DocumentBits) - 1

	offsetMask = uint64(MaxOffset)
	chunkMask  = uint64(MaxChunk) << chunkShift

	// maxID is the largest legal encoded id: 2^63 - 1.
	maxID = uint64(1)<<63 - 1
)

// Encode packs (document, chunk, offset) into a single 63-bit id:
// (document << 36) | (chunk << 16) | offset.
func Encode(document, chunk, offset uint32) (uint64, error) {
	if document > MaxDocument {
		return 0, errkit.InvalidPointer(
			fmt.Sprintf("document %d exceeds max %d", document, MaxDocument), nil)
	}
	if chunk > MaxChunk {
		return 0, errkit.InvalidPointer(
			fmt.Sprintf("chunk %d exceeds max %d", chunk, MaxChunk), nil)
	}
	if offset > MaxOffset {
		return 0, errkit.InvalidPointer(
			fmt.Sprintf("offset %d exceeds max %d", offset, MaxOffset), nil)
	}
	return uint64(document)<<documentShift | uint64(chunk)<<chunkShift | uint64(offset), nil
}

// Decode is the inverse of Encode: it splits id back into (document, chunk, offset).
// It rejects ids outside [0, 2^63).
func Decode(id uint64) (document, chunk, offset uint32, err error) {
	if id > maxID {
		return 0, 0, 0, errkit.InvalidPointer(
			fmt.Sprintf("id %d exceeds 63-bit range", id), nil)
	}
	offset = uint32(id & offsetMask)
	chunk = uint32((id & chunkMask) >> chunkShift)
	document = uint32(id >> documentShift)
	return document, chunk, offset, nil
}

// ChunkIDOf derives the 47-bit chunk id — (document << 20) | chunk — from a
// full pointer id. Two pointers share a chunk id iff they share document
// and chunk.
func ChunkIDOf(id uint64) (uint64, error) {
	document, chunk, _, err := Decode(id)
	if err != nil {
		return 0, err
	}
	return combineChunkID(document, chunk), nil
}

// DecodeChunkID splits a chunk id back into (document, chunk).
func DecodeChunkID(chunkID uint64) (document, chunk uint32, err error) {
	maxChunkID := uint64(MaxDocument)<<ChunkBits | uint64(MaxChunk)
	if chunkID > maxChunkID {
		return 0, 0, errkit.InvalidPointer(
			fmt.Sprintf("chunk id %d exceeds 47-bit range", chunkID), nil)
	}
	chunk = uint32(chunkID & uint64(MaxChunk))
	document = uint32(chunkID >> ChunkBits)
	return document, chunk, nil
}

func combineChunkID(document, chunk uint32) uint64 {
	return uint64(document)<<ChunkBits | uint64(chunk)
}
