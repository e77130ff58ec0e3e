// Package eval benchmarks ranking quality. It loads TREC-style relevance
// assessments and a query file, runs every (mode, scorer) combination with
// full rankings, and aggregates per-query NDCG into averages.
package eval

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"searchkit/internal/analysis"
	"searchkit/internal/search"
	skerrors "searchkit/pkg/errors"
	"searchkit/pkg/logger"
)

// Query is one benchmark query.
type Query struct {
	ID   int
	Text string
}

// Qrels maps query ID -> external document ID -> graded relevance.
type Qrels map[int]map[string]int

// LoadQueries reads a tab-separated query file: "id<TAB>text" per line.
func LoadQueries(path string) ([]Query, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening queries file: %v", skerrors.ErrStorage, err)
	}
	defer f.Close()

	var queries []Query
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		idStr, text, found := strings.Cut(line, "\t")
		if !found {
			continue
		}
		id, err := strconv.Atoi(strings.TrimSpace(idStr))
		if err != nil {
			continue
		}
		queries = append(queries, Query{ID: id, Text: strings.TrimSpace(text)})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading queries file: %v", skerrors.ErrStorage, err)
	}
	return queries, nil
}

// LoadQrels reads TREC qrels lines: "queryID iteration docID relevance".
func LoadQrels(path string) (Qrels, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening qrels file: %v", skerrors.ErrStorage, err)
	}
	defer f.Close()

	qrels := make(Qrels)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) != 4 {
			continue
		}
		queryID, err := strconv.Atoi(fields[0])
		if err != nil {
			continue
		}
		relevance, err := strconv.Atoi(fields[3])
		if err != nil {
			continue
		}
		if qrels[queryID] == nil {
			qrels[queryID] = make(map[string]int)
		}
		qrels[queryID][fields[2]] = relevance
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading qrels file: %v", skerrors.ErrStorage, err)
	}
	return qrels, nil
}

// NDCG computes the normalized discounted cumulative gain of a ranking
// against graded assessments: DCG = sum(rel_i / log2(i+1)) over ranks
// i=1..k, normalized by the DCG of the assessment-sorted ideal ranking.
// Returns 0 when nothing relevant is judged.
func NDCG(ranked []search.Hit, rels map[string]int) float64 {
	if len(rels) == 0 {
		return 0
	}
	var dcg float64
	for i, hit := range ranked {
		rel := rels[hit.DocID]
		if rel > 0 {
			dcg += float64(rel) / math.Log2(float64(i)+2)
		}
	}

	ideal := make([]int, 0, len(rels))
	for _, rel := range rels {
		ideal = append(ideal, rel)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(ideal)))
	var idcg float64
	for i, rel := range ideal {
		if rel <= 0 {
			break
		}
		idcg += float64(rel) / math.Log2(float64(i)+2)
	}
	if idcg == 0 {
		return 0
	}
	return dcg / idcg
}

// Report maps "<mode>_<scorer>" combination names to average NDCG.
type Report map[string]float64

type combination struct {
	mode   search.Mode
	scorer search.ScorerKind
}

func (c combination) String() string {
	return c.mode.String() + "_" + c.scorer.String()
}

var combinations = []combination{
	{search.ModeConjunctive, search.ScorerTFIDF},
	{search.ModeConjunctive, search.ScorerBM25},
	{search.ModeDisjunctive, search.ScorerTFIDF},
	{search.ModeDisjunctive, search.ScorerBM25},
}

// Evaluator runs the benchmark grid against one searcher.
type Evaluator struct {
	searcher *search.Searcher
	analyzer *analysis.Analyzer
	logger   *slog.Logger
	// Parallelism bounds concurrent query evaluations; <= 0 means serial.
	Parallelism int
}

func NewEvaluator(searcher *search.Searcher, analyzer *analysis.Analyzer) *Evaluator {
	return &Evaluator{
		searcher:    searcher,
		analyzer:    analyzer,
		logger:      logger.WithComponent("evaluator"),
		Parallelism: 4,
	}
}

// Run evaluates every query with judged documents under all four
// combinations, requesting full rankings (k=0) so the discount applies to
// every rank. Queries run in a bounded-parallel group; query order does
// not affect the averages.
func (e *Evaluator) Run(ctx context.Context, queries []Query, qrels Qrels) (Report, error) {
	valid := make([]Query, 0, len(queries))
	for _, q := range queries {
		if len(qrels[q.ID]) > 0 {
			valid = append(valid, q)
		}
	}
	e.logger.Info("starting evaluation",
		"queries", len(valid),
		"skipped_unjudged", len(queries)-len(valid),
		"combinations", len(combinations),
	)

	var mu sync.Mutex
	sums := make(map[string]float64, len(combinations))
	counts := make(map[string]int, len(combinations))

	g, ctx := errgroup.WithContext(ctx)
	if e.Parallelism > 0 {
		g.SetLimit(e.Parallelism)
	} else {
		g.SetLimit(1)
	}
	for _, query := range valid {
		query := query
		g.Go(func() error {
			terms := e.analyzer.Terms(query.Text)
			for _, combo := range combinations {
				ranked, err := e.searcher.Search(ctx, terms, combo.mode, combo.scorer, 0)
				if err != nil {
					return fmt.Errorf("query %d (%s): %w", query.ID, combo, err)
				}
				ndcg := NDCG(ranked, qrels[query.ID])
				mu.Lock()
				sums[combo.String()] += ndcg
				counts[combo.String()]++
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := make(Report, len(combinations))
	for _, combo := range combinations {
		name := combo.String()
		if counts[name] > 0 {
			report[name] = sums[name] / float64(counts[name])
		} else {
			report[name] = 0
		}
	}
	return report, nil
}
