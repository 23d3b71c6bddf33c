package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"
	"gopkg.in/yaml.v3"

	"github.com/dshills/chatcontext-mcp/internal/logging"
	"github.com/dshills/chatcontext-mcp/internal/normalizer"
	"github.com/dshills/chatcontext-mcp/internal/scanner"
	"github.com/dshills/chatcontext-mcp/pkg/types"
)

// Environments
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Providers
const (
	ProviderOpenAI = "openai"
	ProviderLocal  = "local"
	ProviderMock   = "mock"
)

// Defaults
const (
	DefaultEmbeddingModel     = "text-embedding-3-small"
	DefaultEmbeddingDimension = 1536
	DefaultLocalDimension     = 384
	DefaultCacheSize          = 10000
	DefaultBatchSize          = 50
	MaxBatchSize              = 100
	DefaultWorkers            = 4
	DefaultGenerationModel    = "gpt-4.1-mini"
	DefaultTemperature        = 0.0
	DefaultAnswerTemperature  = 0.3
	DefaultRequestTimeout     = 60 * time.Second
	DefaultCollection         = "overlapped_conversations"
	DefaultK                  = 6
	DefaultOverlapDays        = 2
	DefaultAnswerInterval     = 2 * time.Second
)

// Config is the complete runtime configuration, loaded once at startup
type Config struct {
	Env         string           `yaml:"env"`
	Chunking    ChunkingConfig   `yaml:"chunking"`
	Embedding   EmbeddingConfig  `yaml:"embedding"`
	Generation  GenerationConfig `yaml:"generation"`
	Retrieval   RetrievalConfig  `yaml:"retrieval"`
	Data        DataConfig       `yaml:"data"`
	Samples     SamplesConfig    `yaml:"samples"`
	Log         LogConfig        `yaml:"log"`
	TeamMembers []string         `yaml:"team_members"`
}

// ChunkingConfig controls how chat logs are split into windows
type ChunkingConfig struct {
	TimestampRegex     string                                 `yaml:"timestamp_regex"`
	DateFormat         string                                 `yaml:"date_format"`
	Granularity        string                                 `yaml:"granularity"`
	OverlapDays        int                                    `yaml:"overlap_days"`
	PreviewGranularity string                                 `yaml:"preview_granularity"`
	Normalize          bool                                   `yaml:"normalize"` // apply StripPatterns before embedding
	StripPatterns      *orderedmap.OrderedMap[string, string] `yaml:"strip_patterns"`
}

// EmbeddingConfig selects and tunes the embedding provider
type EmbeddingConfig struct {
	Provider  string `yaml:"provider"`
	Model     string `yaml:"model"`
	Dimension int    `yaml:"dimension"`
	APIKey    string `yaml:"api_key"`
	BaseURL   string `yaml:"base_url"`
	CacheSize int    `yaml:"cache_size"`
	BatchSize int    `yaml:"batch_size"`
	Workers   int    `yaml:"workers"`
}

// GenerationConfig selects and tunes the text generation client
type GenerationConfig struct {
	Provider          string        `yaml:"provider"`
	Model             string        `yaml:"model"`
	APIKey            string        `yaml:"api_key"`
	BaseURL           string        `yaml:"base_url"`
	Temperature       float32       `yaml:"temperature"`
	AnswerTemperature float32       `yaml:"answer_temperature"`
	Timeout           time.Duration `yaml:"timeout"`
}

// RetrievalConfig names the vector collection and how many results to return
type RetrievalConfig struct {
	Collection string `yaml:"collection"`
	K          int    `yaml:"k"`
}

// DataConfig lists the chat logs to load
type DataConfig struct {
	Files []string `yaml:"files"`
}

// SamplesConfig tunes the evaluation sample generator
type SamplesConfig struct {
	AnswerInterval time.Duration `yaml:"answer_interval"`
	Queries        []string      `yaml:"queries"`
}

// LogConfig selects the log level and encoder
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns a configuration that runs fully offline
func Default() *Config {
	return &Config{
		Env: EnvDevelopment,
		Chunking: ChunkingConfig{
			TimestampRegex:     scanner.DefaultTimestampRegex,
			DateFormat:         scanner.DefaultDateFormat,
			Granularity:        string(types.GranularityWeek),
			OverlapDays:        DefaultOverlapDays,
			PreviewGranularity: string(types.GranularityDay),
			StripPatterns:      normalizer.DefaultExprs(),
		},
		Embedding: EmbeddingConfig{
			Provider:  ProviderLocal,
			CacheSize: DefaultCacheSize,
			BatchSize: DefaultBatchSize,
			Workers:   DefaultWorkers,
		},
		Generation: GenerationConfig{
			Provider:          ProviderMock,
			Model:             DefaultGenerationModel,
			Temperature:       DefaultTemperature,
			AnswerTemperature: DefaultAnswerTemperature,
			Timeout:           DefaultRequestTimeout,
		},
		Retrieval: RetrievalConfig{
			Collection: DefaultCollection,
			K:          DefaultK,
		},
		Samples: SamplesConfig{
			AnswerInterval: DefaultAnswerInterval,
		},
		Log: LogConfig{
			Level:  "info",
			Format: logging.FormatConsole,
		},
	}
}

// LookupFunc reads one environment variable
type LookupFunc func(key string) (string, bool)

// Load reads the optional YAML file at path, overlays the process environment
// and validates the result.
func Load(path string) (*Config, error) {
	return LoadWithEnv(path, os.LookupEnv)
}

// LoadWithEnv is Load with an explicit environment lookup
func LoadWithEnv(path string, lookup LookupFunc) (*Config, error) {
	cfg := Default()

	if path != "" {
		// a configured pattern list replaces the defaults rather than extending them
		cfg.Chunking.StripPatterns = nil

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}
	cfg.applyDerivedDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays recognized environment variables
func (c *Config) applyEnv(lookup LookupFunc) error {
	str := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v, ok := lookup(k); ok && v != "" {
				*dst = v
				return
			}
		}
	}
	num := func(dst *int, key string) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
		return nil
	}
	flag := func(dst *bool, key string) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = b
		return nil
	}

	str(&c.Env, "CHATCONTEXT_ENV", "ENV")
	c.Env = strings.ToLower(c.Env)

	str(&c.Chunking.TimestampRegex, "CHATCONTEXT_TIMESTAMP_REGEX")
	str(&c.Chunking.DateFormat, "CHATCONTEXT_DATE_FORMAT")
	str(&c.Chunking.Granularity, "CHATCONTEXT_GRANULARITY")
	if err := num(&c.Chunking.OverlapDays, "CHATCONTEXT_OVERLAP_DAYS"); err != nil {
		return err
	}
	if err := flag(&c.Chunking.Normalize, "CHATCONTEXT_NORMALIZE"); err != nil {
		return err
	}

	str(&c.Embedding.Provider, "CHATCONTEXT_EMBEDDING_PROVIDER")
	str(&c.Embedding.Model, "EMBEDDING_MODEL")
	if err := num(&c.Embedding.Dimension, "EMBEDDING_DIM"); err != nil {
		return err
	}
	str(&c.Embedding.APIKey, "OPENAI_API_KEY")
	str(&c.Embedding.BaseURL, "OPENAI_BASE_URL")

	str(&c.Generation.Provider, "CHATCONTEXT_GENERATION_PROVIDER")
	str(&c.Generation.Model, "ANSWERS_LLM")
	str(&c.Generation.APIKey, "OPENAI_API_KEY")
	str(&c.Generation.BaseURL, "OPENAI_BASE_URL")

	str(&c.Retrieval.Collection, "CHATCONTEXT_COLLECTION")
	if err := num(&c.Retrieval.K, "CHATCONTEXT_K"); err != nil {
		return err
	}

	if v, ok := lookup("CHATCONTEXT_FILES"); ok && v != "" {
		c.Data.Files = splitList(v)
	}

	str(&c.Log.Level, "CHATCONTEXT_LOG_LEVEL")
	str(&c.Log.Format, "CHATCONTEXT_LOG_FORMAT")
	if v, ok := lookup("DEBUG"); ok && strings.EqualFold(v, "true") {
		c.Log.Level = "debug"
	}
	return nil
}

// applyDerivedDefaults fills values that depend on other settings
func (c *Config) applyDerivedDefaults() {
	if c.Chunking.StripPatterns == nil {
		c.Chunking.StripPatterns = normalizer.DefaultExprs()
	}
	if c.Embedding.Dimension == 0 {
		if c.Embedding.Provider == ProviderOpenAI {
			c.Embedding.Dimension = DefaultEmbeddingDimension
		} else {
			c.Embedding.Dimension = DefaultLocalDimension
		}
	}
	if c.Embedding.Model == "" && c.Embedding.Provider == ProviderOpenAI {
		c.Embedding.Model = DefaultEmbeddingModel
	}
	// production talks to a real model unless a provider was chosen explicitly
	if c.Env == EnvProduction && c.Generation.Provider == ProviderMock && c.Generation.APIKey != "" {
		c.Generation.Provider = ProviderOpenAI
	}
}

// Validate checks every option and reports all problems at once
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if c.Env != EnvDevelopment && c.Env != EnvProduction {
		add("env must be %q or %q, got %q", EnvDevelopment, EnvProduction, c.Env)
	}

	if _, err := c.Pattern(); err != nil {
		add("chunking.timestamp_regex: %w", err)
	}
	if _, err := types.ParseGranularity(c.Chunking.Granularity); err != nil {
		add("chunking.granularity: %w", err)
	}
	if _, err := types.ParseGranularity(c.Chunking.PreviewGranularity); err != nil {
		add("chunking.preview_granularity: %w", err)
	}
	if c.Chunking.OverlapDays < 0 {
		add("chunking.overlap_days: %w", types.ErrInvalidOverlap)
	}
	if _, err := normalizer.New(c.Chunking.StripPatterns); err != nil {
		add("chunking.strip_patterns: %w", err)
	}

	switch c.Embedding.Provider {
	case ProviderOpenAI:
		if c.Embedding.APIKey == "" {
			add("embedding.api_key is required for the %s provider", ProviderOpenAI)
		}
	case ProviderLocal:
	default:
		add("embedding.provider must be %q or %q, got %q", ProviderOpenAI, ProviderLocal, c.Embedding.Provider)
	}
	if c.Embedding.Dimension <= 0 {
		add("embedding.dimension must be positive, got %d", c.Embedding.Dimension)
	}
	if c.Embedding.BatchSize < 1 || c.Embedding.BatchSize > MaxBatchSize {
		add("embedding.batch_size must be between 1 and %d, got %d", MaxBatchSize, c.Embedding.BatchSize)
	}
	if c.Embedding.Workers < 1 {
		add("embedding.workers must be at least 1, got %d", c.Embedding.Workers)
	}
	if c.Embedding.CacheSize < 0 {
		add("embedding.cache_size cannot be negative, got %d", c.Embedding.CacheSize)
	}

	switch c.Generation.Provider {
	case ProviderOpenAI:
		if c.Generation.APIKey == "" {
			add("generation.api_key is required for the %s provider", ProviderOpenAI)
		}
		if c.Generation.Model == "" {
			add("generation.model is required for the %s provider", ProviderOpenAI)
		}
	case ProviderMock:
	default:
		add("generation.provider must be %q or %q, got %q", ProviderOpenAI, ProviderMock, c.Generation.Provider)
	}
	if c.Generation.Temperature < 0 || c.Generation.Temperature > 2 {
		add("generation.temperature must be between 0 and 2, got %v", c.Generation.Temperature)
	}
	if c.Generation.AnswerTemperature < 0 || c.Generation.AnswerTemperature > 2 {
		add("generation.answer_temperature must be between 0 and 2, got %v", c.Generation.AnswerTemperature)
	}
	if c.Generation.Timeout <= 0 {
		add("generation.timeout must be positive, got %s", c.Generation.Timeout)
	}

	if c.Retrieval.Collection == "" {
		add("retrieval.collection is required")
	}
	if c.Retrieval.K < 1 {
		add("retrieval.k must be at least 1, got %d", c.Retrieval.K)
	}

	if c.Samples.AnswerInterval < 0 {
		add("samples.answer_interval cannot be negative, got %s", c.Samples.AnswerInterval)
	}

	if !logging.ValidLevel(c.Log.Level) {
		add("log.level %q is not a valid level", c.Log.Level)
	}
	if c.Log.Format != logging.FormatJSON && c.Log.Format != logging.FormatConsole {
		add("log.format must be %q or %q, got %q", logging.FormatJSON, logging.FormatConsole, c.Log.Format)
	}

	return errors.Join(errs...)
}

// Pattern compiles the configured timestamp pattern
func (c *Config) Pattern() (*scanner.Pattern, error) {
	return scanner.Compile(c.Chunking.TimestampRegex, c.Chunking.DateFormat)
}

// Normalizer builds the strip pattern normalizer for indexing. It returns nil
// when chunking.normalize is off, so chunk text is stored as read.
func (c *Config) Normalizer() (*normalizer.Normalizer, error) {
	if !c.Chunking.Normalize {
		return nil, nil
	}
	return normalizer.New(c.Chunking.StripPatterns)
}

// Granularity returns the granularity used for indexing
func (c *Config) Granularity() types.Granularity {
	g, _ := types.ParseGranularity(c.Chunking.Granularity)
	return g
}

// PreviewGranularity returns the granularity used for first-chunk previews
func (c *Config) PreviewGranularity() types.Granularity {
	g, _ := types.ParseGranularity(c.Chunking.PreviewGranularity)
	return g
}

// IsDevelopment reports whether the development environment is selected
func (c *Config) IsDevelopment() bool {
	return c.Env == EnvDevelopment
}

func splitList(v string) []string {
	parts := strings.FieldsFunc(v, func(r rune) bool {
		return r == ',' || r == os.PathListSeparator
	})
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
