// Package config loads and validates application configuration from YAML
// files with environment-variable overrides. It provides typed structs for
// every subsystem (Index, Search, Scoring, Logging, Metrics).
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Index   IndexConfig   `yaml:"index"`
	Search  SearchConfig  `yaml:"search"`
	Scoring ScoringConfig `yaml:"scoring"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// MalformedPolicy decides what a build does with a document that cannot be
// normalized into terms.
type MalformedPolicy string

const (
	MalformedSkip  MalformedPolicy = "skip"
	MalformedAbort MalformedPolicy = "abort"
)

// IndexConfig controls the build pipeline's memory threshold, spill
// behaviour, and on-disk layout.
type IndexConfig struct {
	DataDir string `yaml:"dataDir"`
	// MemoryThreshold is the approximate accumulator size in bytes at which
	// the builder spills a sorted run to disk.
	MemoryThreshold int64           `yaml:"memoryThreshold"`
	OnMalformed     MalformedPolicy `yaml:"onMalformed"`
	// MaxIORetries bounds retries of the final index commit. Zero or
	// negative disables retrying.
	MaxIORetries int `yaml:"maxIORetries"`
	// StoreContent enables the forward document store used by the
	// interactive CLI to show result snippets.
	StoreContent bool `yaml:"storeContent"`
}

// IndexPath returns the location of the index image inside DataDir.
func (c IndexConfig) IndexPath() string {
	return c.DataDir + "/index.skx"
}

// DocStorePath returns the location of the forward document store.
func (c IndexConfig) DocStorePath() string {
	return c.DataDir + "/docs.bolt"
}

// SearchConfig controls query execution limits and the query cache.
type SearchConfig struct {
	DefaultLimit int  `yaml:"defaultLimit"`
	CacheEnabled bool `yaml:"cacheEnabled"`
	CacheSize    int  `yaml:"cacheSize"`
}

// ScoringConfig holds the BM25 parameters. K1 controls term-frequency
// saturation, B controls document-length normalization strength.
type ScoringConfig struct {
	BM25K1 float64 `yaml:"bm25K1"`
	BM25B  float64 `yaml:"bm25B"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with sensible defaults for any
// missing values.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Index: IndexConfig{
			DataDir:         "data",
			MemoryThreshold: 64 * 1024 * 1024,
			OnMalformed:     MalformedSkip,
			MaxIORetries:    3,
			StoreContent:    false,
		},
		Search: SearchConfig{
			DefaultLimit: 10,
			CacheEnabled: true,
			CacheSize:    1024,
		},
		Scoring: ScoringConfig{
			BM25K1: 1.2,
			BM25B:  0.75,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
		},
	}
}

func (c *Config) validate() error {
	switch c.Index.OnMalformed {
	case MalformedSkip, MalformedAbort:
	default:
		return fmt.Errorf("index.onMalformed must be %q or %q, got %q",
			MalformedSkip, MalformedAbort, c.Index.OnMalformed)
	}
	if c.Index.MemoryThreshold <= 0 {
		return fmt.Errorf("index.memoryThreshold must be positive, got %d", c.Index.MemoryThreshold)
	}
	if c.Scoring.BM25K1 < 0 {
		return fmt.Errorf("scoring.bm25K1 must be non-negative, got %g", c.Scoring.BM25K1)
	}
	if c.Scoring.BM25B < 0 || c.Scoring.BM25B > 1 {
		return fmt.Errorf("scoring.bm25B must be in [0,1], got %g", c.Scoring.BM25B)
	}
	return nil
}

// applyEnvOverrides reads SK_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SK_INDEX_DATA_DIR"); v != "" {
		cfg.Index.DataDir = v
	}
	if v := os.Getenv("SK_INDEX_MEMORY_THRESHOLD"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Index.MemoryThreshold = n
		}
	}
	if v := os.Getenv("SK_INDEX_ON_MALFORMED"); v != "" {
		cfg.Index.OnMalformed = MalformedPolicy(v)
	}
	if v := os.Getenv("SK_SEARCH_DEFAULT_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Search.DefaultLimit = n
		}
	}
	if v := os.Getenv("SK_SCORING_BM25_K1"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Scoring.BM25K1 = f
		}
	}
	if v := os.Getenv("SK_SCORING_BM25_B"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Scoring.BM25B = f
		}
	}
	if v := os.Getenv("SK_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("SK_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("SK_METRICS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Metrics.Port = port
		}
	}
}
