package search

import (
	"crypto/sha256"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"searchkit/pkg/logger"
	"searchkit/pkg/metrics"
)

// QueryCache memoizes ranked results in an in-process LRU. Duplicate
// in-flight queries are collapsed through singleflight so the index is
// walked once per distinct key. Caching is sound because the index is
// immutable for the handle's lifetime.
type QueryCache struct {
	lru     *lru.Cache[string, []Hit]
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

func NewQueryCache(size int, m *metrics.Metrics) (*QueryCache, error) {
	cache, err := lru.New[string, []Hit](size)
	if err != nil {
		return nil, fmt.Errorf("creating query cache: %w", err)
	}
	return &QueryCache{
		lru:     cache,
		metrics: m,
		logger:  logger.WithComponent("query-cache"),
	}, nil
}

// GetOrCompute returns the cached result for key or computes and stores
// it. The second return reports whether the result came from the cache.
func (c *QueryCache) GetOrCompute(key string, computeFn func() ([]Hit, error)) ([]Hit, bool, error) {
	if hits, ok := c.lru.Get(key); ok {
		c.recordHit(key)
		return hits, true, nil
	}
	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		if hits, ok := c.lru.Get(key); ok {
			return hits, nil
		}
		hits, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.lru.Add(key, hits)
		return hits, nil
	})
	if err != nil {
		return nil, false, err
	}
	c.recordMiss()
	return val.([]Hit), false, nil
}

func (c *QueryCache) recordHit(key string) {
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
	c.logger.Debug("cache hit", "key", key)
}

func (c *QueryCache) recordMiss() {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}

// Stats returns lifetime hit and miss counts.
func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// buildCacheKey derives a stable key from the query signature. Terms are
// sorted because boolean combination and summed scoring are commutative in
// term order.
func buildCacheKey(terms []string, mode Mode, scorer ScorerKind, k int) string {
	sorted := make([]string, len(terms))
	copy(sorted, terms)
	sort.Strings(sorted)
	raw := fmt.Sprintf("%s|%s|%d|%s", mode, scorer, k, strings.Join(sorted, ","))
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%x", hash[:16])
}
