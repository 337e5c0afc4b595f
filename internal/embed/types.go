// Package embed treats the embedding model as the external collaborator
// spec.md §1 names: a pure function text -> vector<float32> of known
// dimension. It sits outside THE CORE's scope, but the ambient stack
// still needs a concrete implementation to exercise the writer and
// reader against, so this package provides an embedder hierarchy:
// a deterministic hash-based StaticEmbedder for tests and offline use,
// an HTTP-backed OllamaEmbedder for a real model, and a CachedEmbedder
// that memoizes either.
package embed

import (
	"context"
	"math"
	"time"
)

// DefaultDimensions is the embedding dimension used by StaticEmbedder
// when none is configured.
const DefaultDimensions = 256

const (
	// DefaultBatchSize is the default batch size for embedding requests.
	DefaultBatchSize = 32

	// DefaultWarmTimeout is the timeout for a query once the remote model is loaded.
	DefaultWarmTimeout = 30 * time.Second

	// DefaultColdTimeout is the timeout for the first query against a remote model.
	DefaultColdTimeout = 60 * time.Second

	// DefaultMaxRetries is the default number of retry attempts for a remote embedder.
	DefaultMaxRetries = 3
)

// Embedder generates vector embeddings for text. Every implementation
// must return vectors of a fixed Dimensions() regardless of input.
type Embedder interface {
	// Embed generates the embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts, in order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding dimension.
	Dimensions() int

	// ModelName returns the model identifier.
	ModelName() string

	// Available checks if the embedder is ready to serve requests.
	Available(ctx context.Context) bool

	// Close releases resources.
	Close() error
}

// normalizeVector normalizes a vector to unit length, leaving a zero
// vector untouched.
func normalizeVector(v []float32) []float32 {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}

	magnitude := math.Sqrt(sumSquares)
	if magnitude == 0 {
		return v
	}

	normalized := make([]float32, len(v))
	for i, val := range v {
		normalized[i] = float32(float64(val) / magnitude)
	}
	return normalized
}
