package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "data", cfg.Index.DataDir)
	assert.Equal(t, int64(64*1024*1024), cfg.Index.MemoryThreshold)
	assert.Equal(t, MalformedSkip, cfg.Index.OnMalformed)
	assert.Equal(t, 10, cfg.Search.DefaultLimit)
	assert.True(t, cfg.Search.CacheEnabled)
	assert.InDelta(t, 1.2, cfg.Scoring.BM25K1, 1e-9)
	assert.InDelta(t, 0.75, cfg.Scoring.BM25B, 1e-9)
	assert.False(t, cfg.Metrics.Enabled)
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
index:
  dataDir: /var/lib/searchkit
  memoryThreshold: 1048576
  onMalformed: abort
search:
  defaultLimit: 25
scoring:
  bm25K1: 1.6
  bm25B: 0.5
logging:
  level: debug
  format: json
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/searchkit", cfg.Index.DataDir)
	assert.Equal(t, int64(1048576), cfg.Index.MemoryThreshold)
	assert.Equal(t, MalformedAbort, cfg.Index.OnMalformed)
	assert.Equal(t, 25, cfg.Search.DefaultLimit)
	assert.InDelta(t, 1.6, cfg.Scoring.BM25K1, 1e-9)
	assert.InDelta(t, 0.5, cfg.Scoring.BM25B, 1e-9)
	assert.Equal(t, "debug", cfg.Logging.Level)

	// Unset fields keep their defaults.
	assert.True(t, cfg.Search.CacheEnabled)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SK_INDEX_DATA_DIR", "/tmp/override")
	t.Setenv("SK_INDEX_ON_MALFORMED", "abort")
	t.Setenv("SK_SCORING_BM25_K1", "2.0")
	t.Setenv("SK_SEARCH_DEFAULT_LIMIT", "5")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "/tmp/override", cfg.Index.DataDir)
	assert.Equal(t, MalformedAbort, cfg.Index.OnMalformed)
	assert.InDelta(t, 2.0, cfg.Scoring.BM25K1, 1e-9)
	assert.Equal(t, 5, cfg.Search.DefaultLimit)
}

func TestLoadRejectsInvalidPolicy(t *testing.T) {
	t.Setenv("SK_INDEX_ON_MALFORMED", "ignore")

	_, err := Load("")
	assert.ErrorContains(t, err, "onMalformed")
}

func TestLoadRejectsInvalidBM25Params(t *testing.T) {
	t.Setenv("SK_SCORING_BM25_B", "1.5")

	_, err := Load("")
	assert.ErrorContains(t, err, "bm25B")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestIndexPaths(t *testing.T) {
	cfg := IndexConfig{DataDir: "/data"}

	assert.Equal(t, "/data/index.skx", cfg.IndexPath())
	assert.Equal(t, "/data/docs.bolt", cfg.DocStorePath())
}
