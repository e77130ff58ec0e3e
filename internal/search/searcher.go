package search

import (
	"context"
	"time"

	"searchkit/internal/index"
	"searchkit/pkg/config"
	"searchkit/pkg/logger"
	"searchkit/pkg/metrics"
)

// Hit is one ranked result, externalized for callers.
type Hit struct {
	DocID string  `json:"doc_id"`
	Score float64 `json:"score"`
}

// Searcher answers ranked queries against one immutable index handle. It
// holds no per-query state; concurrent Search calls are safe.
type Searcher struct {
	ix      *index.Index
	scoring config.ScoringConfig
	cache   *QueryCache
	metrics *metrics.Metrics
}

type SearcherOption func(*Searcher)

// WithCache enables the query-result cache.
func WithCache(cache *QueryCache) SearcherOption {
	return func(s *Searcher) { s.cache = cache }
}

// WithMetrics attaches Prometheus collectors.
func WithMetrics(m *metrics.Metrics) SearcherOption {
	return func(s *Searcher) { s.metrics = m }
}

func NewSearcher(ix *index.Index, scoring config.ScoringConfig, opts ...SearcherOption) *Searcher {
	s := &Searcher{
		ix:      ix,
		scoring: scoring,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Index exposes the underlying handle for collaborators that need corpus
// statistics (the evaluation driver, the CLI status output).
func (s *Searcher) Index() *index.Index {
	return s.ix
}

// Search runs the resolve -> score -> select pipeline and returns the top
// k results as (external document ID, score) pairs, descending by score
// with ascending internal ID breaking ties. k <= 0 returns the full
// ranking. An empty term list yields an empty result, not an error; a
// query-time fault aborts only this query.
func (s *Searcher) Search(ctx context.Context, terms []string, mode Mode, scorer ScorerKind, k int) ([]Hit, error) {
	// The index has not been touched yet: abandoning here has no side
	// effects to unwind.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(dedupe(terms)) == 0 {
		return []Hit{}, nil
	}

	start := time.Now()
	if s.metrics != nil {
		s.metrics.SearchQueriesTotal.WithLabelValues(mode.String(), scorer.String()).Inc()
	}

	cacheStatus := "bypass"
	var hits []Hit
	var err error
	if s.cache != nil {
		key := buildCacheKey(terms, mode, scorer, k)
		var cached bool
		hits, cached, err = s.cache.GetOrCompute(key, func() ([]Hit, error) {
			return s.execute(terms, mode, scorer, k)
		})
		cacheStatus = "miss"
		if cached {
			cacheStatus = "hit"
		}
	} else {
		hits, err = s.execute(terms, mode, scorer, k)
	}
	log := logger.FromContext(ctx).With("component", "searcher")
	if err != nil {
		log.Error("query failed", "terms", terms, "mode", mode.String(), "error", err)
		return nil, err
	}

	elapsed := time.Since(start)
	if s.metrics != nil {
		s.metrics.SearchLatency.WithLabelValues(cacheStatus).Observe(elapsed.Seconds())
		s.metrics.SearchResultsCount.Observe(float64(len(hits)))
	}
	log.Debug("query executed",
		"terms", terms,
		"mode", mode.String(),
		"scorer", scorer.String(),
		"results", len(hits),
		"cache", cacheStatus,
		"elapsed", elapsed,
	)
	return hits, nil
}

func (s *Searcher) execute(terms []string, mode Mode, scorer ScorerKind, k int) ([]Hit, error) {
	cands, err := Resolve(s.ix, terms, mode)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		var bytesRead int64
		for _, term := range cands.Terms {
			if entry, ok := s.ix.Lexicon().Find(term); ok {
				bytesRead += int64(entry.PostLen)
			}
		}
		s.metrics.PostingBytesRead.Add(float64(bytesRead))
	}
	sc := NewScorer(scorer, s.ix, cands, s.scoring)
	scored := make([]ScoredDoc, len(cands.Docs))
	for i, c := range cands.Docs {
		scored[i] = ScoredDoc{Doc: c.Doc, Score: sc.Score(c)}
	}
	top := SelectTop(scored, k)

	hits := make([]Hit, len(top))
	for i, sd := range top {
		entry, _ := s.ix.Docs().Entry(sd.Doc)
		hits[i] = Hit{DocID: entry.ExternalID, Score: sd.Score}
	}
	return hits, nil
}
