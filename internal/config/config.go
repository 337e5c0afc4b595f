// Package config loads the process configuration for the retrieval engine:
// defaults, layered with an optional YAML file, then environment variable
// overrides (spec.md §9: "introduce an explicit config structure
// constructed at process start and passed through; eliminate process-wide
// state"), trimmed to the option set SPEC_FULL.md §6 names.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the process configuration passed explicitly to every
// component that needs one; no configuration value is read from the
// environment except by Load itself (the MEMVECGO_* overrides).
type Config struct {
	HNSW  HNSWConfig  `yaml:"hnsw" json:"hnsw"`
	Chunk ChunkConfig `yaml:"chunk" json:"chunk"`
	Query QueryConfig `yaml:"query" json:"query"`
	Store StoreConfig `yaml:"store" json:"store"`
	Cache CacheConfig `yaml:"cache" json:"cache"`
	DocID DocIDConfig `yaml:"docid" json:"docid"`
}

// HNSWConfig configures the in-memory ANN index (spec.md §6: "hnsw_m").
type HNSWConfig struct {
	M int `yaml:"hnsw_m" json:"hnsw_m"`
}

// ChunkConfig configures the writer's packing of passages into chunks and
// the (out-of-core) passage extractor's text windowing (spec.md §6:
// "max_vectors_per_chunk", "text_chunk_size", "text_overlap",
// "metadata_text_preview_length").
type ChunkConfig struct {
	MaxVectorsPerChunk        int `yaml:"max_vectors_per_chunk" json:"max_vectors_per_chunk"`
	TextChunkSize             int `yaml:"text_chunk_size" json:"text_chunk_size"`
	TextOverlap               int `yaml:"text_overlap" json:"text_overlap"`
	MetadataTextPreviewLength int `yaml:"metadata_text_preview_length" json:"metadata_text_preview_length"`
}

// QueryConfig configures the reader (spec.md §6: "default_search_k").
type QueryConfig struct {
	DefaultSearchK int `yaml:"default_search_k" json:"default_search_k"`
}

// StoreConfig configures the object-store adapter (spec.md §6:
// "store_region", "store_bucket", "store_endpoint_override").
type StoreConfig struct {
	Region           string `yaml:"store_region" json:"store_region"`
	Bucket           string `yaml:"store_bucket" json:"store_bucket"`
	EndpointOverride string `yaml:"store_endpoint_override" json:"store_endpoint_override"`
}

// CacheConfig configures the chunk cache (spec.md §6: "cache_ttl_seconds",
// plus the Redis wiring SPEC_FULL.md §6 adds).
type CacheConfig struct {
	TTLSeconds int    `yaml:"cache_ttl_seconds" json:"cache_ttl_seconds"`
	RedisAddr  string `yaml:"redis_addr" json:"redis_addr"`
}

// DocIDConfig configures the document id registry (SPEC_FULL.md §6:
// "docid_registry_path").
type DocIDConfig struct {
	RegistryPath string `yaml:"docid_registry_path" json:"docid_registry_path"`
}

// TTL returns the cache entry lifetime as a time.Duration.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// fileName is the config file looked for in the directory passed to Load.
const fileName = "memvecgo.yaml"

// Default returns the configuration with every spec.md §6 default applied:
// hnsw_m=16, max_vectors_per_chunk=100, default_search_k=5,
// text_chunk_size=300, text_overlap=50, metadata_text_preview_length=200,
// cache_ttl_seconds=86400.
func Default() *Config {
	return &Config{
		HNSW: HNSWConfig{M: 16},
		Chunk: ChunkConfig{
			MaxVectorsPerChunk:        100,
			TextChunkSize:             300,
			TextOverlap:               50,
			MetadataTextPreviewLength: 200,
		},
		Query: QueryConfig{DefaultSearchK: 5},
		Store: StoreConfig{},
		Cache: CacheConfig{TTLSeconds: 86400},
		DocID: DocIDConfig{RegistryPath: "docids.db"},
	}
}

// Load builds a Config by layering defaults, an optional
// <dir>/memvecgo.yaml file, then environment variable overrides, in that
// order (spec.md §9's "explicit config structure constructed at process
// start").
func Load(dir string) (*Config, error) {
	cfg := Default()

	path := filepath.Join(dir, fileName)
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides lets MEMVECGO_* environment variables override the
// file/default config, highest priority per spec.md §9.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("MEMVECGO_HNSW_M"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.HNSW.M = n
		}
	}
	if v := os.Getenv("MEMVECGO_MAX_VECTORS_PER_CHUNK"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Chunk.MaxVectorsPerChunk = n
		}
	}
	if v := os.Getenv("MEMVECGO_DEFAULT_SEARCH_K"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Query.DefaultSearchK = n
		}
	}
	if v := os.Getenv("MEMVECGO_STORE_REGION"); v != "" {
		c.Store.Region = v
	}
	if v := os.Getenv("MEMVECGO_STORE_BUCKET"); v != "" {
		c.Store.Bucket = v
	}
	if v := os.Getenv("MEMVECGO_STORE_ENDPOINT"); v != "" {
		c.Store.EndpointOverride = v
	}
	if v := os.Getenv("MEMVECGO_REDIS_ADDR"); v != "" {
		c.Cache.RedisAddr = v
	}
	if v := os.Getenv("MEMVECGO_CACHE_TTL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Cache.TTLSeconds = n
		}
	}
	if v := os.Getenv("MEMVECGO_DOCID_REGISTRY_PATH"); v != "" {
		c.DocID.RegistryPath = v
	}
}

// Validate rejects a config whose values would violate the pointer
// codec's field widths (spec.md §6: "Pointer field widths are part of
// the interface").
func (c *Config) Validate() error {
	if c.HNSW.M <= 0 {
		return fmt.Errorf("config: hnsw_m must be positive, got %d", c.HNSW.M)
	}
	if c.Chunk.MaxVectorsPerChunk <= 0 || c.Chunk.MaxVectorsPerChunk > 1<<16 {
		return fmt.Errorf("config: max_vectors_per_chunk must be in (0, 65536], got %d", c.Chunk.MaxVectorsPerChunk)
	}
	if c.Query.DefaultSearchK <= 0 {
		return fmt.Errorf("config: default_search_k must be positive, got %d", c.Query.DefaultSearchK)
	}
	if c.Chunk.TextChunkSize <= 0 {
		return fmt.Errorf("config: text_chunk_size must be positive, got %d", c.Chunk.TextChunkSize)
	}
	if c.Chunk.TextOverlap < 0 || c.Chunk.TextOverlap >= c.Chunk.TextChunkSize {
		return fmt.Errorf("config: text_overlap must be in [0, text_chunk_size), got %d", c.Chunk.TextOverlap)
	}
	if c.Cache.TTLSeconds < 0 {
		return fmt.Errorf("config: cache_ttl_seconds must be non-negative, got %d", c.Cache.TTLSeconds)
	}
	return nil
}

// WriteYAML writes the config to path, for `memvecgo config init`.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: marshaling: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
