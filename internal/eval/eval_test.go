package eval

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"searchkit/internal/analysis"
	"searchkit/internal/index"
	"searchkit/internal/indexer"
	"searchkit/internal/search"
	"searchkit/pkg/config"
)

func TestNDCGPerfectRankingIsOne(t *testing.T) {
	ranked := []search.Hit{{DocID: "a"}, {DocID: "b"}, {DocID: "c"}}
	rels := map[string]int{"a": 3, "b": 2, "c": 1}

	assert.InDelta(t, 1.0, NDCG(ranked, rels), 1e-9)
}

func TestNDCGPenalizesMisplacedRelevantDocs(t *testing.T) {
	// Relevant docs at ranks 1 and 3 with an irrelevant one between.
	ranked := []search.Hit{{DocID: "a"}, {DocID: "b"}, {DocID: "c"}}
	rels := map[string]int{"a": 1, "c": 1}

	got := NDCG(ranked, rels)

	dcg := 1.0/math.Log2(2) + 1.0/math.Log2(4)
	idcg := 1.0/math.Log2(2) + 1.0/math.Log2(3)
	assert.InDelta(t, dcg/idcg, got, 1e-9)
	assert.Greater(t, got, 0.0)
	assert.Less(t, got, 1.0)
}

func TestNDCGWorstOrderStillCountsGains(t *testing.T) {
	best := NDCG([]search.Hit{{DocID: "a"}, {DocID: "b"}}, map[string]int{"a": 2, "b": 1})
	worst := NDCG([]search.Hit{{DocID: "b"}, {DocID: "a"}}, map[string]int{"a": 2, "b": 1})

	assert.Greater(t, best, worst)
	assert.Greater(t, worst, 0.0)
}

func TestNDCGNoJudgedDocs(t *testing.T) {
	assert.Zero(t, NDCG([]search.Hit{{DocID: "a"}}, nil))
	assert.Zero(t, NDCG([]search.Hit{{DocID: "a"}}, map[string]int{"b": 0}))
}

func TestNDCGEmptyRanking(t *testing.T) {
	assert.Zero(t, NDCG(nil, map[string]int{"a": 1}))
}

func TestLoadQueries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queries.tsv")
	content := "1\twhat is a cat\n\nbad line without tab\n2\tdogs and mice\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	queries, err := LoadQueries(path)
	require.NoError(t, err)

	assert.Equal(t, []Query{
		{ID: 1, Text: "what is a cat"},
		{ID: 2, Text: "dogs and mice"},
	}, queries)
}

func TestLoadQrels(t *testing.T) {
	path := filepath.Join(t.TempDir(), "qrels.txt")
	content := "1 0 doc-1 2\n1 0 doc-0 1\n2 0 doc-2 1\nnot a qrel line\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	qrels, err := LoadQrels(path)
	require.NoError(t, err)

	assert.Equal(t, Qrels{
		1: {"doc-1": 2, "doc-0": 1},
		2: {"doc-2": 1},
	}, qrels)
}

func TestEvaluatorRunsAllCombinations(t *testing.T) {
	cfg := config.IndexConfig{
		DataDir:         t.TempDir(),
		MemoryThreshold: 64 * 1024 * 1024,
		OnMalformed:     config.MalformedSkip,
	}
	analyzer := analysis.New(analysis.Options{})
	b := indexer.New(cfg, analyzer)
	_, err := b.Build(context.Background(), indexer.NewSliceSource([]indexer.Document{
		{ExternalID: "doc-0", Text: "cat dog"},
		{ExternalID: "doc-1", Text: "cat cat mouse"},
		{ExternalID: "doc-2", Text: "dog mouse mouse"},
	}))
	require.NoError(t, err)

	ix, err := index.Open(cfg.IndexPath())
	require.NoError(t, err)
	defer ix.Close()
	searcher := search.NewSearcher(ix, config.ScoringConfig{BM25K1: 1.2, BM25B: 0.75})

	queries := []Query{
		{ID: 1, Text: "cat mouse"},
		{ID: 2, Text: "unjudged query"},
	}
	qrels := Qrels{1: {"doc-1": 2, "doc-0": 1}}

	e := NewEvaluator(searcher, analyzer)
	report, err := e.Run(context.Background(), queries, qrels)
	require.NoError(t, err)

	require.Len(t, report, 4)
	for _, name := range []string{
		"conjunctive_tfidf", "conjunctive_bm25",
		"disjunctive_tfidf", "disjunctive_bm25",
	} {
		ndcg, ok := report[name]
		require.True(t, ok, "missing combination %s", name)
		assert.GreaterOrEqual(t, ndcg, 0.0, name)
		assert.LessOrEqual(t, ndcg, 1.0, name)
	}
	// doc-1 matches both terms and is the most relevant, so disjunctive
	// ranking starts with it and scores a positive gain.
	assert.Greater(t, report["disjunctive_bm25"], 0.0)
}
