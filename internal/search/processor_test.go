package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"searchkit/internal/analysis"
	"searchkit/internal/index"
	"searchkit/internal/indexer"
	"searchkit/pkg/config"
)

// buildTestIndex indexes the corpus with a pass-through analyzer so each
// input word is one term. Postings:
//
//	cat:   (0,1) (1,2)
//	dog:   (0,1) (2,1)
//	mouse: (1,1) (2,2)
func buildTestIndex(t *testing.T) *index.Index {
	t.Helper()

	cfg := config.IndexConfig{
		DataDir:         t.TempDir(),
		MemoryThreshold: 64 * 1024 * 1024,
		OnMalformed:     config.MalformedSkip,
	}
	b := indexer.New(cfg, analysis.New(analysis.Options{}))
	_, err := b.Build(context.Background(), indexer.NewSliceSource([]indexer.Document{
		{ExternalID: "doc-0", Text: "cat dog"},
		{ExternalID: "doc-1", Text: "cat cat mouse"},
		{ExternalID: "doc-2", Text: "dog mouse mouse"},
	}))
	require.NoError(t, err)

	ix, err := index.Open(cfg.IndexPath())
	require.NoError(t, err)
	t.Cleanup(func() { ix.Close() })
	return ix
}

func candidateDocs(cands *Candidates) []index.DocID {
	docs := make([]index.DocID, len(cands.Docs))
	for i, c := range cands.Docs {
		docs[i] = c.Doc
	}
	return docs
}

func TestResolveConjunctive(t *testing.T) {
	ix := buildTestIndex(t)

	cands, err := Resolve(ix, []string{"cat", "dog"}, ModeConjunctive)
	require.NoError(t, err)

	assert.Equal(t, []index.DocID{0}, candidateDocs(cands))
	assert.Equal(t, []uint32{1, 1}, cands.Docs[0].Freqs)
}

func TestResolveConjunctiveFrequenciesAligned(t *testing.T) {
	ix := buildTestIndex(t)

	cands, err := Resolve(ix, []string{"cat", "mouse"}, ModeConjunctive)
	require.NoError(t, err)

	require.Equal(t, []index.DocID{1}, candidateDocs(cands))
	assert.Equal(t, []string{"cat", "mouse"}, cands.Terms)
	assert.Equal(t, []uint32{2, 1}, cands.Docs[0].Freqs)
}

func TestResolveDisjunctive(t *testing.T) {
	ix := buildTestIndex(t)

	cands, err := Resolve(ix, []string{"cat", "mouse"}, ModeDisjunctive)
	require.NoError(t, err)

	require.Equal(t, []index.DocID{0, 1, 2}, candidateDocs(cands))
	assert.Equal(t, []uint32{1, 0}, cands.Docs[0].Freqs)
	assert.Equal(t, []uint32{2, 1}, cands.Docs[1].Freqs)
	assert.Equal(t, []uint32{0, 2}, cands.Docs[2].Freqs)
}

func TestConjunctiveIsSubsetOfDisjunctive(t *testing.T) {
	ix := buildTestIndex(t)
	terms := []string{"dog", "mouse"}

	conj, err := Resolve(ix, terms, ModeConjunctive)
	require.NoError(t, err)
	disj, err := Resolve(ix, terms, ModeDisjunctive)
	require.NoError(t, err)

	disjDocs := make(map[index.DocID]bool)
	for _, c := range disj.Docs {
		disjDocs[c.Doc] = true
	}
	for _, c := range conj.Docs {
		assert.True(t, disjDocs[c.Doc], "doc %d in conjunctive but not disjunctive", c.Doc)
	}
}

func TestResolveTermOrderDoesNotChangeDocSet(t *testing.T) {
	ix := buildTestIndex(t)

	forward, err := Resolve(ix, []string{"cat", "dog"}, ModeConjunctive)
	require.NoError(t, err)
	reversed, err := Resolve(ix, []string{"dog", "cat"}, ModeConjunctive)
	require.NoError(t, err)

	assert.Equal(t, candidateDocs(forward), candidateDocs(reversed))
}

func TestResolveUnknownTermConjunctiveIsEmpty(t *testing.T) {
	ix := buildTestIndex(t)

	cands, err := Resolve(ix, []string{"cat", "zebra"}, ModeConjunctive)
	require.NoError(t, err)

	assert.Empty(t, cands.Docs)
	assert.Equal(t, []uint32{2, 0}, cands.DocFreqs)
}

func TestResolveUnknownTermDisjunctiveIsIgnored(t *testing.T) {
	ix := buildTestIndex(t)

	with, err := Resolve(ix, []string{"cat", "zebra"}, ModeDisjunctive)
	require.NoError(t, err)
	without, err := Resolve(ix, []string{"cat"}, ModeDisjunctive)
	require.NoError(t, err)

	assert.Equal(t, candidateDocs(without), candidateDocs(with))
}

func TestResolveDeduplicatesTerms(t *testing.T) {
	ix := buildTestIndex(t)

	cands, err := Resolve(ix, []string{"cat", "cat", "dog"}, ModeConjunctive)
	require.NoError(t, err)

	assert.Equal(t, []string{"cat", "dog"}, cands.Terms)
	assert.Equal(t, []index.DocID{0}, candidateDocs(cands))
}

func TestResolveEmptyQuery(t *testing.T) {
	ix := buildTestIndex(t)

	cands, err := Resolve(ix, nil, ModeDisjunctive)
	require.NoError(t, err)

	assert.Empty(t, cands.Terms)
	assert.Empty(t, cands.Docs)
}

func TestParseModeAndScorer(t *testing.T) {
	mode, err := ParseMode("and")
	require.NoError(t, err)
	assert.Equal(t, ModeConjunctive, mode)

	mode, err = ParseMode("or")
	require.NoError(t, err)
	assert.Equal(t, ModeDisjunctive, mode)

	_, err = ParseMode("maybe")
	assert.Error(t, err)

	scorer, err := ParseScorer("bm25")
	require.NoError(t, err)
	assert.Equal(t, ScorerBM25, scorer)

	_, err = ParseScorer("pagerank")
	assert.Error(t, err)
}
