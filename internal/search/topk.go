package search

import (
	"container/heap"
	"sort"
)

// SelectTop orders scored documents descending by score with ascending
// document ID as the tie-break, and returns the best k. k <= 0 means the
// full ranking (evaluation use). The order is total for any input,
// including empty and single-element sets.
func SelectTop(scored []ScoredDoc, k int) []ScoredDoc {
	if k <= 0 || k >= len(scored) {
		out := make([]ScoredDoc, len(scored))
		copy(out, scored)
		sort.Slice(out, func(i, j int) bool {
			if out[i].Score != out[j].Score {
				return out[i].Score > out[j].Score
			}
			return out[i].Doc < out[j].Doc
		})
		return out
	}

	h := make(scoredDocHeap, 0, k+1)
	for _, doc := range scored {
		heap.Push(&h, doc)
		if h.Len() > k {
			heap.Pop(&h)
		}
	}
	out := make([]ScoredDoc, h.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(&h).(ScoredDoc)
	}
	return out
}

// scoredDocHeap is a min-heap on (score asc, doc desc) so the root is the
// weakest result and the final pop order is the desired ranking reversed.
type scoredDocHeap []ScoredDoc

func (h scoredDocHeap) Len() int { return len(h) }

func (h scoredDocHeap) Less(i, j int) bool {
	if h[i].Score != h[j].Score {
		return h[i].Score < h[j].Score
	}
	return h[i].Doc > h[j].Doc
}

func (h scoredDocHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *scoredDocHeap) Push(x interface{}) {
	*h = append(*h, x.(ScoredDoc))
}

func (h *scoredDocHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
