package benchmark

import (
	"context"
	"testing"

	"searchkit/internal/analysis"
	"searchkit/internal/index"
	"searchkit/internal/indexer"
	"searchkit/internal/search"
	"searchkit/pkg/config"
)

func benchSearcher(b *testing.B, docs int, withCache bool) *search.Searcher {
	b.Helper()
	cfg := config.IndexConfig{
		DataDir:         b.TempDir(),
		MemoryThreshold: 64 * 1024 * 1024,
		OnMalformed:     config.MalformedSkip,
	}
	builder := indexer.New(cfg, analysis.New(analysis.DefaultOptions()))
	if _, err := builder.Build(context.Background(), indexer.NewSliceSource(syntheticDocs(docs))); err != nil {
		b.Fatal(err)
	}
	ix, err := index.Open(cfg.IndexPath())
	if err != nil {
		b.Fatal(err)
	}
	b.Cleanup(func() { ix.Close() })

	scoring := config.ScoringConfig{BM25K1: 1.2, BM25B: 0.75}
	opts := []search.SearcherOption{}
	if withCache {
		cache, err := search.NewQueryCache(1024, nil)
		if err != nil {
			b.Fatal(err)
		}
		opts = append(opts, search.WithCache(cache))
	}
	return search.NewSearcher(ix, scoring, opts...)
}

// BenchmarkSearchConjunctive measures end-to-end ranked intersection latency
// over a 10 000 document corpus.
func BenchmarkSearchConjunctive(b *testing.B) {
	s := benchSearcher(b, 10000, false)
	terms := []string{"search", "engine", "index"}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		hits, err := s.Search(context.Background(), terms, search.ModeConjunctive, search.ScorerBM25, 10)
		if err != nil {
			b.Fatal(err)
		}
		_ = hits
	}
}

// BenchmarkSearchDisjunctive measures ranked union latency.
func BenchmarkSearchDisjunctive(b *testing.B) {
	s := benchSearcher(b, 10000, false)
	terms := []string{"search", "engine", "index"}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		hits, err := s.Search(context.Background(), terms, search.ModeDisjunctive, search.ScorerBM25, 10)
		if err != nil {
			b.Fatal(err)
		}
		_ = hits
	}
}

// BenchmarkSearchScorers compares TF-IDF and BM25 on the same query.
func BenchmarkSearchScorers(b *testing.B) {
	s := benchSearcher(b, 10000, false)
	terms := []string{"ranking", "score"}

	for _, scorer := range []search.ScorerKind{search.ScorerTFIDF, search.ScorerBM25} {
		b.Run(scorer.String(), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				hits, err := s.Search(context.Background(), terms, search.ModeDisjunctive, scorer, 10)
				if err != nil {
					b.Fatal(err)
				}
				_ = hits
			}
		})
	}
}

// BenchmarkSearchCached measures repeated-query latency with the result
// cache enabled; after the first iteration every hit is served from memory.
func BenchmarkSearchCached(b *testing.B) {
	s := benchSearcher(b, 10000, true)
	terms := []string{"search", "engine"}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		hits, err := s.Search(context.Background(), terms, search.ModeConjunctive, search.ScorerBM25, 10)
		if err != nil {
			b.Fatal(err)
		}
		_ = hits
	}
}

// BenchmarkSearchParallel measures concurrent query throughput against one
// shared handle.
func BenchmarkSearchParallel(b *testing.B) {
	s := benchSearcher(b, 10000, false)
	terms := []string{"search", "engine"}

	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			hits, err := s.Search(context.Background(), terms, search.ModeConjunctive, search.ScorerBM25, 10)
			if err != nil {
				b.Fatal(err)
			}
			_ = hits
		}
	})
}
