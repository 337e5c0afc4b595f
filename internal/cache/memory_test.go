package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache_SetGet(t *testing.T) {
	c := NewMemoryCache(10)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, Key(1), []byte("blob"), DefaultTTL))

	val, ok, err := c.Get(ctx, Key(1))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("blob"), val)
}

func TestMemoryCache_MissIsNotAnError(t *testing.T) {
	c := NewMemoryCache(10)
	val, ok, err := c.Get(context.Background(), Key(404))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, val)
}

func TestMemoryCache_TTLExpires(t *testing.T) {
	c := NewMemoryCache(10)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, Key(1), []byte("blob"), 1*time.Millisecond))
	time.Sleep(5 * time.Millisecond)

	_, ok, err := c.Get(ctx, Key(1))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryCache_NoTTLNeverExpires(t *testing.T) {
	c := NewMemoryCache(10)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, Key(1), []byte("blob"), 0))
	time.Sleep(5 * time.Millisecond)

	_, ok, err := c.Get(ctx, Key(1))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryCache_DeleteAndExists(t *testing.T) {
	c := NewMemoryCache(10)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, Key(1), []byte("blob"), DefaultTTL))
	exists, err := c.Exists(ctx, Key(1))
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, c.Delete(ctx, Key(1)))
	exists, err = c.Exists(ctx, Key(1))
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestMemoryCache_Clear(t *testing.T) {
	c := NewMemoryCache(10)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, Key(1), []byte("a"), DefaultTTL))
	require.NoError(t, c.Set(ctx, Key(2), []byte("b"), DefaultTTL))
	require.NoError(t, c.Clear(ctx))

	_, ok, _ := c.Get(ctx, Key(1))
	assert.False(t, ok)
	_, ok, _ = c.Get(ctx, Key(2))
	assert.False(t, ok)
}

func TestMemoryCache_GetManySetMany(t *testing.T) {
	c := NewMemoryCache(10)
	ctx := context.Background()

	require.NoError(t, c.SetMany(ctx, map[string][]byte{
		Key(1): []byte("a"),
		Key(2): []byte("b"),
	}, DefaultTTL))

	got, err := c.GetMany(ctx, []string{Key(1), Key(2), Key(3)})
	require.NoError(t, err)
	assert.Equal(t, map[string][]byte{Key(1): []byte("a"), Key(2): []byte("b")}, got)
}

func TestMemoryCache_EvictsBeyondCapacity(t *testing.T) {
	c := NewMemoryCache(2)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, Key(1), []byte("a"), DefaultTTL))
	require.NoError(t, c.Set(ctx, Key(2), []byte("b"), DefaultTTL))
	require.NoError(t, c.Set(ctx, Key(3), []byte("c"), DefaultTTL))

	_, ok, _ := c.Get(ctx, Key(1))
	assert.False(t, ok, "oldest entry should have been evicted")
}
