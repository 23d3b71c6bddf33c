package embedder

import (
	"fmt"
	"strings"

	"github.com/dshills/chatcontext-mcp/internal/config"
)

// Provider configuration
const (
	ProviderOpenAI = config.ProviderOpenAI
	ProviderLocal  = config.ProviderLocal

	// Default models
	DefaultOpenAIModel = config.DefaultEmbeddingModel
	DefaultLocalModel  = "local-hash-embeddings"

	// Dimensions
	OpenAIDimension = config.DefaultEmbeddingDimension
	LocalDimension  = config.DefaultLocalDimension

	// Batch limits
	DefaultBatchSize = config.DefaultBatchSize
	MaxBatchSize     = config.MaxBatchSize

	DefaultCacheSize = config.DefaultCacheSize

	// Retry configuration
	MaxRetries        = 3
	InitialBackoffMs  = 100
	MaxBackoffMs      = 5000
	BackoffMultiplier = 2.0
)

// Config holds embedder configuration
type Config struct {
	Provider  string
	Model     string
	Dimension int
	APIKey    string
	BaseURL   string
	CacheSize int
}

// FromConfig maps the embedding section of the application config
func FromConfig(c config.EmbeddingConfig) Config {
	return Config{
		Provider:  c.Provider,
		Model:     c.Model,
		Dimension: c.Dimension,
		APIKey:    c.APIKey,
		BaseURL:   c.BaseURL,
		CacheSize: c.CacheSize,
	}
}

// New creates an embedder with explicit configuration
func New(cfg Config) (Embedder, error) {
	var cache *Cache
	if cfg.CacheSize > 0 {
		cache = NewCache(cfg.CacheSize)
	}

	switch strings.ToLower(cfg.Provider) {
	case ProviderOpenAI:
		return NewOpenAIProvider(OpenAIOptions{
			APIKey:    cfg.APIKey,
			BaseURL:   cfg.BaseURL,
			Model:     cfg.Model,
			Dimension: cfg.Dimension,
		}, cache)
	case ProviderLocal, "":
		return NewLocalProvider(cfg.Dimension, cache)
	default:
		return nil, fmt.Errorf("%w: unknown provider %s", ErrUnsupportedModel, cfg.Provider)
	}
}
