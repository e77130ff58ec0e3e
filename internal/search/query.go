// Package search executes ranked keyword queries against a read-only index
// handle. Each query is a pure pipeline: resolve candidates, score, select
// top-k. Nothing here mutates shared state, so arbitrarily many queries may
// run concurrently against the same index.
package search

import (
	skerrors "searchkit/pkg/errors"
)

// Mode selects the boolean combination of posting lists.
type Mode int

const (
	// ModeConjunctive keeps documents containing every query term.
	ModeConjunctive Mode = iota
	// ModeDisjunctive keeps documents containing at least one query term.
	ModeDisjunctive
)

func (m Mode) String() string {
	switch m {
	case ModeConjunctive:
		return "conjunctive"
	case ModeDisjunctive:
		return "disjunctive"
	}
	return "unknown"
}

// ParseMode accepts the mode names used by the CLI and config files.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "conjunctive", "and":
		return ModeConjunctive, nil
	case "disjunctive", "or":
		return ModeDisjunctive, nil
	}
	return 0, skerrors.Newf(skerrors.ErrInvalidInput, "unknown query mode %q", s)
}

// ScorerKind selects the relevance function.
type ScorerKind int

const (
	ScorerTFIDF ScorerKind = iota
	ScorerBM25
)

func (k ScorerKind) String() string {
	switch k {
	case ScorerTFIDF:
		return "tfidf"
	case ScorerBM25:
		return "bm25"
	}
	return "unknown"
}

// ParseScorer accepts the scorer names used by the CLI and config files.
func ParseScorer(s string) (ScorerKind, error) {
	switch s {
	case "tfidf":
		return ScorerTFIDF, nil
	case "bm25":
		return ScorerBM25, nil
	}
	return 0, skerrors.Newf(skerrors.ErrInvalidInput, "unknown scorer %q", s)
}
