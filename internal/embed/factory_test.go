package embed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEmbedderStaticProvider(t *testing.T) {
	ctx := context.Background()
	embedder, err := NewEmbedder(ctx, ProviderStatic, "", -1)
	require.NoError(t, err)
	defer embedder.Close()

	assert.Equal(t, "static768", embedder.ModelName())
	assert.True(t, embedder.Available(ctx))
	if _, ok := embedder.(*CachedEmbedder); ok {
		t.Fatal("cacheSize < 0 should not wrap in a CachedEmbedder")
	}
}

func TestNewEmbedderStaticProviderWrappedInCache(t *testing.T) {
	ctx := context.Background()
	embedder, err := NewEmbedder(ctx, ProviderStatic, "", 10)
	require.NoError(t, err)
	defer embedder.Close()

	_, ok := embedder.(*CachedEmbedder)
	assert.True(t, ok, "cacheSize >= 0 should wrap the embedder in a CachedEmbedder")
}

func TestNewEmbedderUnknownProvider(t *testing.T) {
	ctx := context.Background()
	_, err := NewEmbedder(ctx, ProviderType("bogus"), "", -1)
	require.Error(t, err)
}

func TestParseProvider(t *testing.T) {
	assert.Equal(t, ProviderStatic, ParseProvider("static"))
	assert.Equal(t, ProviderOllama, ParseProvider("ollama"))
	assert.Equal(t, ProviderOllama, ParseProvider("anything-else"))
	assert.Equal(t, ProviderOllama, ParseProvider(""))
}

func TestIsValidProvider(t *testing.T) {
	assert.True(t, IsValidProvider("ollama"))
	assert.True(t, IsValidProvider("STATIC"))
	assert.False(t, IsValidProvider("mlx"))
}

func TestGetInfoStatic(t *testing.T) {
	ctx := context.Background()
	embedder, err := NewEmbedder(ctx, ProviderStatic, "", -1)
	require.NoError(t, err)
	defer embedder.Close()

	info := GetInfo(ctx, embedder)
	assert.Equal(t, ProviderStatic, info.Provider)
	assert.Equal(t, "static768", info.Model)
	assert.True(t, info.Available)
}
