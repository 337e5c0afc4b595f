package vecobj

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_ComputesID(t *testing.T) {
	v, err := New([]float32{1, 2, 3}, 1, 2, 3, nil)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), v.Document())
	assert.Equal(t, uint32(2), v.Chunk())
	assert.Equal(t, uint32(3), v.Offset())
	assert.Equal(t, []float32{1, 2, 3}, v.Values())
}

func TestFromID_DecodesComponents(t *testing.T) {
	base, err := New([]float32{1}, 7, 8, 9, nil)
	require.NoError(t, err)

	v, err := FromID([]float32{1}, base.ID(), nil)
	require.NoError(t, err)
	assert.Equal(t, uint32(7), v.Document())
	assert.Equal(t, uint32(8), v.Chunk())
	assert.Equal(t, uint32(9), v.Offset())
}

func TestNew_RejectsNonFiniteValues(t *testing.T) {
	_, err := New([]float32{1, float32(math.NaN())}, 0, 0, 0, nil)
	assert.Error(t, err)

	_, err = New([]float32{1, float32(math.Inf(1))}, 0, 0, 0, nil)
	assert.Error(t, err)
}

func TestNew_RejectsEmptyValues(t *testing.T) {
	_, err := New(nil, 0, 0, 0, nil)
	assert.Error(t, err)
}

func TestChunkID_SameForVectorsInSameChunk(t *testing.T) {
	v1, err := New([]float32{1}, 4, 5, 0, nil)
	require.NoError(t, err)
	v2, err := New([]float32{1}, 4, 5, 1, nil)
	require.NoError(t, err)

	assert.Equal(t, v1.ChunkID(), v2.ChunkID())
}

func TestMetadata_IsCopiedNotAliased(t *testing.T) {
	meta := map[string]MetaValue{"source_file": "a.txt"}
	v, err := New([]float32{1}, 0, 0, 0, meta)
	require.NoError(t, err)

	meta["source_file"] = "mutated"
	assert.Equal(t, "a.txt", v.Metadata()["source_file"])
}
