package docid

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/memvecgo/internal/pointer"
)

func TestMemoryRegistry_ReservesWithinRange(t *testing.T) {
	r := NewMemoryRegistry()
	id, err := r.Reserve(context.Background())
	require.NoError(t, err)
	assert.LessOrEqual(t, id, uint32(pointer.MaxDocument))
}

func TestMemoryRegistry_NeverRepeats(t *testing.T) {
	r := NewMemoryRegistry()
	ctx := context.Background()
	seen := make(map[uint32]bool)

	for i := 0; i < 500; i++ {
		id, err := r.Reserve(ctx)
		require.NoError(t, err)
		assert.False(t, seen[id], "document id %d reserved twice", id)
		seen[id] = true
	}
}

func TestSQLiteRegistry_ReservesWithinRange(t *testing.T) {
	r, err := NewSQLiteRegistry("")
	require.NoError(t, err)
	defer r.Close()

	id, err := r.Reserve(context.Background())
	require.NoError(t, err)
	assert.LessOrEqual(t, id, uint32(pointer.MaxDocument))
}

func TestSQLiteRegistry_NeverRepeats(t *testing.T) {
	r, err := NewSQLiteRegistry("")
	require.NoError(t, err)
	defer r.Close()

	ctx := context.Background()
	seen := make(map[uint32]bool)
	for i := 0; i < 100; i++ {
		id, err := r.Reserve(ctx)
		require.NoError(t, err)
		assert.False(t, seen[id])
		seen[id] = true
	}
}
