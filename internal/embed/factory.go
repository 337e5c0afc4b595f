package embed

import (
	"context"
	"fmt"
	"strings"
)

// ProviderType selects which Embedder implementation NewEmbedder builds.
type ProviderType string

const (
	// ProviderOllama uses a local Ollama server for embeddings. Default.
	ProviderOllama ProviderType = "ollama"

	// ProviderStatic uses the deterministic hash-based embedder, for
	// tests and offline development.
	ProviderStatic ProviderType = "static"
)

// NewEmbedder builds the requested provider and wraps it with query
// caching unless cacheSize is negative. model, when non-empty, overrides
// the provider's default model name.
func NewEmbedder(ctx context.Context, provider ProviderType, model string, cacheSize int) (Embedder, error) {
	var embedder Embedder
	var err error

	switch provider {
	case ProviderStatic:
		embedder = NewStaticEmbedder768()

	case ProviderOllama, "":
		cfg := DefaultOllamaConfig()
		if model != "" {
			cfg.Model = model
		}
		embedder, err = NewOllamaEmbedder(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("ollama embedder unavailable: %w", err)
		}

	default:
		return nil, fmt.Errorf("embed: unknown provider %q", provider)
	}

	if cacheSize >= 0 {
		embedder = NewCachedEmbedder(embedder, cacheSize)
	}
	return embedder, nil
}

// ParseProvider converts a config string to a ProviderType, defaulting to
// Ollama for anything unrecognized.
func ParseProvider(s string) ProviderType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "static":
		return ProviderStatic
	default:
		return ProviderOllama
	}
}

// String returns the string representation of ProviderType.
func (p ProviderType) String() string {
	return string(p)
}

// ValidProviders returns all valid provider names.
func ValidProviders() []string {
	return []string{string(ProviderOllama), string(ProviderStatic)}
}

// IsValidProvider reports whether s names a known provider.
func IsValidProvider(s string) bool {
	lower := strings.ToLower(s)
	for _, p := range ValidProviders() {
		if lower == p {
			return true
		}
	}
	return false
}

// EmbedderInfo summarizes an embedder for diagnostics.
type EmbedderInfo struct {
	Provider   ProviderType
	Model      string
	Dimensions int
	Available  bool
}

// GetInfo inspects an embedder, unwrapping a CachedEmbedder to classify
// its underlying provider.
func GetInfo(ctx context.Context, embedder Embedder) EmbedderInfo {
	info := EmbedderInfo{
		Model:      embedder.ModelName(),
		Dimensions: embedder.Dimensions(),
		Available:  embedder.Available(ctx),
	}

	inner := embedder
	if cached, ok := embedder.(*CachedEmbedder); ok {
		inner = cached.inner
	}

	switch inner.(type) {
	case *OllamaEmbedder:
		info.Provider = ProviderOllama
	default:
		info.Provider = ProviderStatic
	}

	return info
}
