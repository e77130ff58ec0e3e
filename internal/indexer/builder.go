// Package indexer turns a document source into a published index image.
// Construction is a single-writer batch process: accumulate postings in
// memory, spill sorted runs when the memory threshold is reached, then
// k-way merge the runs into the final posting store while the lexicon and
// document table are built alongside.
package indexer

import (
	"container/heap"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"searchkit/internal/analysis"
	"searchkit/internal/docstore"
	"searchkit/internal/index"
	"searchkit/pkg/config"
	skerrors "searchkit/pkg/errors"
	"searchkit/pkg/logger"
	"searchkit/pkg/metrics"
	"searchkit/pkg/resilience"
)

// Builder owns exclusive write access to the structures being built. One
// Build call produces one consistent snapshot; no queries are served
// against a half-built index.
type Builder struct {
	cfg      config.IndexConfig
	analyzer *analysis.Analyzer
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

type Option func(*Builder)

// WithMetrics attaches Prometheus collectors to the build.
func WithMetrics(m *metrics.Metrics) Option {
	return func(b *Builder) { b.metrics = m }
}

func New(cfg config.IndexConfig, analyzer *analysis.Analyzer, opts ...Option) *Builder {
	b := &Builder{
		cfg:      cfg,
		analyzer: analyzer,
		logger:   logger.WithComponent("index-builder"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// DocumentError records one document that construction gave up on.
type DocumentError struct {
	ExternalID string
	Ordinal    int
	Err        error
}

func (e DocumentError) Error() string {
	return fmt.Sprintf("document %q (input #%d): %v", e.ExternalID, e.Ordinal, e.Err)
}

func (e DocumentError) Unwrap() error {
	return e.Err
}

// BuildReport aggregates the outcome of one build: per-document errors are
// collected here instead of aborting the run (unless configured otherwise).
type BuildReport struct {
	Docs      int
	Terms     int
	Postings  int64
	Runs      int
	Skipped   []DocumentError
	Elapsed   time.Duration
	IndexPath string
}

// accumulator is the in-memory (term -> partial posting list) map between
// spills. Lists stay sorted because document IDs only grow.
type accumulator struct {
	postings map[string]index.PostingList
	size     int64
}

func newAccumulator() *accumulator {
	return &accumulator{postings: make(map[string]index.PostingList)}
}

func (a *accumulator) add(doc index.DocID, counts map[string]uint32) {
	for term, freq := range counts {
		list, exists := a.postings[term]
		if !exists {
			a.size += int64(len(term)) + 48
		}
		a.postings[term] = append(list, index.Posting{Doc: doc, Freq: freq})
		a.size += 12
	}
}

// Build consumes the source and writes the index image to the configured
// data directory. Intermediate runs live in a scoped temp directory that is
// removed whether the build succeeds or fails.
func (b *Builder) Build(ctx context.Context, source DocumentSource) (*BuildReport, error) {
	start := time.Now()
	report := &BuildReport{IndexPath: b.cfg.IndexPath()}

	if err := os.MkdirAll(b.cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("%w: creating data directory: %v", skerrors.ErrStorage, err)
	}
	tmpDir, err := os.MkdirTemp(b.cfg.DataDir, "build-")
	if err != nil {
		return nil, fmt.Errorf("%w: creating run directory: %v", skerrors.ErrStorage, err)
	}
	defer os.RemoveAll(tmpDir)

	var store *docstore.Store
	if b.cfg.StoreContent {
		store, err = docstore.Open(b.cfg.DocStorePath())
		if err != nil {
			return nil, err
		}
		defer store.Close()
	}

	docs := index.NewDocumentTable()
	acc := newAccumulator()
	var runPaths []string
	contentBatch := make(map[string]string)

	spill := func() error {
		if len(acc.postings) == 0 {
			return nil
		}
		path := filepath.Join(tmpDir, fmt.Sprintf("run_%05d.run", len(runPaths)))
		if err := writeRun(path, acc.postings); err != nil {
			if b.metrics != nil {
				b.metrics.RunsSpilledTotal.WithLabelValues("error").Inc()
			}
			return err
		}
		if b.metrics != nil {
			b.metrics.RunsSpilledTotal.WithLabelValues("ok").Inc()
		}
		b.logger.Info("run spilled",
			"run", filepath.Base(path),
			"terms", len(acc.postings),
			"mem_size", acc.size,
		)
		runPaths = append(runPaths, path)
		acc = newAccumulator()
		return nil
	}

	ordinal := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("build cancelled: %w", err)
		}
		doc, err := source.Next()
		if err == io.EOF {
			break
		}
		ordinal++
		if err != nil {
			if stderrors.Is(err, skerrors.ErrMalformedDocument) {
				if handleErr := b.handleMalformed(report, DocumentError{Ordinal: ordinal, Err: err}); handleErr != nil {
					return nil, handleErr
				}
				continue
			}
			return nil, fmt.Errorf("reading document source: %w", err)
		}

		terms := b.analyzer.Terms(doc.Text)
		if len(terms) == 0 {
			docErr := DocumentError{
				ExternalID: doc.ExternalID,
				Ordinal:    ordinal,
				Err:        skerrors.New(skerrors.ErrMalformedDocument, "no indexable terms"),
			}
			if handleErr := b.handleMalformed(report, docErr); handleErr != nil {
				return nil, handleErr
			}
			continue
		}

		counts := make(map[string]uint32, len(terms))
		var maxFreq uint32
		for _, term := range terms {
			counts[term]++
			if counts[term] > maxFreq {
				maxFreq = counts[term]
			}
		}
		docID := docs.Append(index.DocEntry{
			ExternalID: doc.ExternalID,
			Length:     uint32(len(terms)),
			MaxFreq:    maxFreq,
		})
		acc.add(docID, counts)
		report.Docs++
		report.Postings += int64(len(counts))
		if b.metrics != nil {
			b.metrics.DocsIndexedTotal.Inc()
		}

		if store != nil {
			contentBatch[doc.ExternalID] = doc.Text
			if len(contentBatch) >= 1024 {
				if err := store.PutAll(contentBatch); err != nil {
					return nil, err
				}
				contentBatch = make(map[string]string)
			}
		}

		if acc.size >= b.cfg.MemoryThreshold {
			if err := spill(); err != nil {
				return nil, err
			}
		}
	}
	if err := spill(); err != nil {
		return nil, err
	}
	if store != nil && len(contentBatch) > 0 {
		if err := store.PutAll(contentBatch); err != nil {
			return nil, err
		}
	}
	report.Runs = len(runPaths)

	writer, err := index.NewWriter(b.cfg.IndexPath())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", skerrors.ErrStorage, err)
	}
	terms, err := b.mergeRuns(writer, runPaths)
	if err != nil {
		writer.Abort()
		return nil, err
	}
	report.Terms = terms

	if err := writer.Commit(docs); err != nil {
		writer.Abort()
		return nil, fmt.Errorf("%w: %v", skerrors.ErrStorage, err)
	}
	if err := resilience.Retry(ctx, "index-publish", resilience.RetryConfig{
		MaxAttempts: b.cfg.MaxIORetries,
	}, writer.Publish); err != nil {
		writer.Abort()
		return nil, err
	}

	report.Elapsed = time.Since(start)
	if b.metrics != nil {
		b.metrics.BuildDuration.Observe(report.Elapsed.Seconds())
		b.metrics.IndexTermCount.Set(float64(report.Terms))
		b.metrics.IndexDocCount.Set(float64(report.Docs))
	}
	b.logger.Info("index build complete",
		"docs", report.Docs,
		"terms", report.Terms,
		"postings", report.Postings,
		"runs", report.Runs,
		"skipped", len(report.Skipped),
		"elapsed", report.Elapsed,
	)
	return report, nil
}

func (b *Builder) handleMalformed(report *BuildReport, docErr DocumentError) error {
	if b.cfg.OnMalformed == config.MalformedAbort {
		return docErr
	}
	report.Skipped = append(report.Skipped, docErr)
	if b.metrics != nil {
		b.metrics.DocsSkippedTotal.Inc()
	}
	b.logger.Warn("skipping malformed document",
		"external_id", docErr.ExternalID,
		"ordinal", docErr.Ordinal,
		"error", docErr.Err,
	)
	return nil
}

// mergeRuns streams all spilled runs through a (term, seq) heap into the
// writer. Blocks for the same term concatenate in spill order, which is
// document-ID order; the concatenation is re-validated before encoding.
func (b *Builder) mergeRuns(writer *index.Writer, runPaths []string) (int, error) {
	readers := make([]*runReader, 0, len(runPaths))
	defer func() {
		for _, rr := range readers {
			rr.close()
		}
	}()

	h := &runHeap{}
	for seq, path := range runPaths {
		rr, err := openRun(path)
		if err != nil {
			return 0, err
		}
		readers = append(readers, rr)
		cursor := &runCursor{rr: rr, seq: seq}
		ok, err := cursor.advance()
		if err != nil {
			return 0, err
		}
		if ok {
			*h = append(*h, cursor)
		}
	}
	heap.Init(h)

	terms := 0
	group := make([]*runCursor, 0, len(runPaths))
	for h.Len() > 0 {
		group = group[:0]
		first := heap.Pop(h).(*runCursor)
		group = append(group, first)
		for h.Len() > 0 && (*h)[0].term == first.term {
			group = append(group, heap.Pop(h).(*runCursor))
		}

		merged := make(index.PostingList, 0)
		var collectionFreq uint64
		for _, cursor := range group {
			list, err := index.DecodePostings(cursor.block)
			if err != nil {
				return 0, fmt.Errorf("run %d term %q: %w", cursor.seq, cursor.term, err)
			}
			if len(merged) > 0 && len(list) > 0 && list[0].Doc <= merged[len(merged)-1].Doc {
				return 0, skerrors.Newf(skerrors.ErrInconsistentIndex,
					"term %q: run %d overlaps previous runs", cursor.term, cursor.seq)
			}
			merged = append(merged, list...)
		}
		for _, p := range merged {
			collectionFreq += uint64(p.Freq)
		}
		if err := writer.AddTerm(first.term, index.EncodePostings(merged), uint32(len(merged)), collectionFreq); err != nil {
			return 0, err
		}
		terms++

		for _, cursor := range group {
			ok, err := cursor.advance()
			if err != nil {
				return 0, err
			}
			if ok {
				heap.Push(h, cursor)
			}
		}
	}
	return terms, nil
}
