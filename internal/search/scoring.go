package search

import (
	"math"

	"searchkit/internal/index"
	"searchkit/pkg/config"
)

// ScoredDoc pairs an internal document ID with its relevance score.
type ScoredDoc struct {
	Doc   index.DocID
	Score float64
}

// Scorer computes a candidate's relevance from its term-frequency
// contributions and corpus statistics. Implementations are pure functions
// over the immutable index.
type Scorer interface {
	Score(c Candidate) float64
}

// NewScorer builds the scorer for one resolved query. The inverse document
// frequencies are precomputed per term; a term with zero document frequency
// contributes nothing in either scheme.
func NewScorer(kind ScorerKind, ix *index.Index, cands *Candidates, scoring config.ScoringConfig) Scorer {
	idf := make([]float64, len(cands.Terms))
	n := float64(ix.DocCount())
	for i, df := range cands.DocFreqs {
		if df > 0 {
			idf[i] = math.Log(n / float64(df))
		}
	}
	switch kind {
	case ScorerBM25:
		return &bm25Scorer{
			idf:    idf,
			k1:     scoring.BM25K1,
			b:      scoring.BM25B,
			avgLen: ix.Docs().AvgLength(),
			docs:   ix.Docs(),
		}
	default:
		return &tfidfScorer{idf: idf}
	}
}

// tfidfScorer sums (1 + log tf) * log(N/df) over the query terms present
// in the document.
type tfidfScorer struct {
	idf []float64
}

func (s *tfidfScorer) Score(c Candidate) float64 {
	var score float64
	for i, freq := range c.Freqs {
		if freq == 0 {
			continue
		}
		score += (1 + math.Log(float64(freq))) * s.idf[i]
	}
	return score
}

// bm25Scorer sums idf * tf*(k1+1) / (tf + k1*(1-b+b*len/avg)) over the
// query terms present in the document. k1 controls term-frequency
// saturation, b the strength of document-length normalization.
type bm25Scorer struct {
	idf    []float64
	k1     float64
	b      float64
	avgLen float64
	docs   *index.DocumentTable
}

func (s *bm25Scorer) Score(c Candidate) float64 {
	if s.avgLen == 0 {
		return 0
	}
	docLen := float64(s.docs.Length(c.Doc))
	norm := s.k1 * (1 - s.b + s.b*docLen/s.avgLen)
	var score float64
	for i, freq := range c.Freqs {
		if freq == 0 {
			continue
		}
		tf := float64(freq)
		score += s.idf[i] * (tf * (s.k1 + 1)) / (tf + norm)
	}
	return score
}
