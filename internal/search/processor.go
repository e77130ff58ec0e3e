package search

import (
	"container/heap"

	"searchkit/internal/index"
)

// Candidate is one matching document with its per-term frequency
// contributions, aligned with Candidates.Terms. A zero frequency means the
// term does not occur in the document (possible in disjunctive mode only).
type Candidate struct {
	Doc   index.DocID
	Freqs []uint32
}

// Candidates is the resolved document set for one query, ordered ascending
// by document ID regardless of term input order.
type Candidates struct {
	// Terms are the deduplicated query terms in first-occurrence order.
	Terms []string
	// DocFreqs holds each term's document frequency; zero for terms absent
	// from the lexicon.
	DocFreqs []uint32
	Docs     []Candidate
}

// Resolve fetches the query terms' posting lists and combines them under
// the given boolean mode. Terms missing from the lexicon contribute empty
// posting lists: conjunctive queries collapse to the empty set, disjunctive
// queries ignore them.
func Resolve(ix *index.Index, terms []string, mode Mode) (*Candidates, error) {
	deduped := dedupe(terms)
	cands := &Candidates{
		Terms:    deduped,
		DocFreqs: make([]uint32, len(deduped)),
	}
	if len(deduped) == 0 {
		return cands, nil
	}

	lists := make([]index.PostingList, len(deduped))
	for i, term := range deduped {
		list, err := ix.Postings(term)
		if err != nil {
			return nil, err
		}
		lists[i] = list
		cands.DocFreqs[i] = uint32(len(list))
	}

	switch mode {
	case ModeConjunctive:
		cands.Docs = intersect(lists)
	case ModeDisjunctive:
		cands.Docs = unite(lists)
	}
	return cands, nil
}

func dedupe(terms []string) []string {
	seen := make(map[string]struct{}, len(terms))
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// intersect merges document-ID-sorted lists with synchronized cursors,
// document-at-a-time. The shortest list drives; every other cursor is
// advanced with NextGEQ, so the cost is bounded by the sum of list lengths
// and the walk short-circuits as soon as any list is exhausted.
func intersect(lists []index.PostingList) []Candidate {
	for _, list := range lists {
		if len(list) == 0 {
			return nil
		}
	}

	cursors := make([]*index.Cursor, len(lists))
	driver := 0
	for i, list := range lists {
		cursors[i] = index.NewCursor(list)
		if len(list) < len(lists[driver]) {
			driver = i
		}
	}

	var out []Candidate
	current, ok := cursors[driver].Current()
	target := current.Doc
	for ok {
		matched := true
		for i, c := range cursors {
			if i == driver {
				continue
			}
			p, alive := c.NextGEQ(target)
			if !alive {
				return out
			}
			if p.Doc > target {
				// Restart the round from the larger document.
				target = p.Doc
				if _, alive := cursors[driver].NextGEQ(target); !alive {
					return out
				}
				matched = false
				break
			}
		}
		if matched {
			freqs := make([]uint32, len(cursors))
			for i, c := range cursors {
				p, _ := c.Current()
				freqs[i] = p.Freq
			}
			out = append(out, Candidate{Doc: target, Freqs: freqs})
			next, alive := cursors[driver].Next()
			if !alive {
				return out
			}
			target = next.Doc
		}
		current, ok = cursors[driver].Current()
		if ok {
			target = max(target, current.Doc)
		}
	}
	return out
}

// cursorHeap orders posting cursors by their current document ID for the
// disjunctive k-way union.
type cursorHeap struct {
	cursors []*index.Cursor
	termIdx []int
}

func (h cursorHeap) Len() int { return len(h.cursors) }

func (h cursorHeap) Less(i, j int) bool {
	a, _ := h.cursors[i].Current()
	b, _ := h.cursors[j].Current()
	return a.Doc < b.Doc
}

func (h cursorHeap) Swap(i, j int) {
	h.cursors[i], h.cursors[j] = h.cursors[j], h.cursors[i]
	h.termIdx[i], h.termIdx[j] = h.termIdx[j], h.termIdx[i]
}

func (h *cursorHeap) Push(x interface{}) {
	pair := x.([2]interface{})
	h.cursors = append(h.cursors, pair[0].(*index.Cursor))
	h.termIdx = append(h.termIdx, pair[1].(int))
}

func (h *cursorHeap) Pop() interface{} {
	n := len(h.cursors)
	pair := [2]interface{}{h.cursors[n-1], h.termIdx[n-1]}
	h.cursors = h.cursors[:n-1]
	h.termIdx = h.termIdx[:n-1]
	return pair
}

// unite k-way merges the sorted lists, accumulating per-term frequencies
// for every document present in at least one list.
func unite(lists []index.PostingList) []Candidate {
	h := &cursorHeap{}
	for i, list := range lists {
		if len(list) == 0 {
			continue
		}
		h.cursors = append(h.cursors, index.NewCursor(list))
		h.termIdx = append(h.termIdx, i)
	}
	heap.Init(h)

	var out []Candidate
	for h.Len() > 0 {
		first, _ := h.cursors[0].Current()
		doc := first.Doc
		freqs := make([]uint32, len(lists))
		for h.Len() > 0 {
			p, _ := h.cursors[0].Current()
			if p.Doc != doc {
				break
			}
			freqs[h.termIdx[0]] = p.Freq
			if _, alive := h.cursors[0].Next(); alive {
				heap.Fix(h, 0)
			} else {
				heap.Pop(h)
			}
		}
		out = append(out, Candidate{Doc: doc, Freqs: freqs})
	}
	return out
}
