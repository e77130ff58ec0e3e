package index

import "sort"

// TermID is a dense identifier assigned at construction time; it doubles as
// the term's position in the sorted lexicon.
type TermID uint32

// TermEntry maps a term to its corpus statistics and the locator of its
// posting block inside the postings region.
type TermEntry struct {
	Term           string `json:"t"`
	DocFreq        uint32 `json:"d"`
	CollectionFreq uint64 `json:"c"`
	PostOffset     int64  `json:"o"`
	PostLen        int32  `json:"l"`
}

// Lexicon is the immutable term dictionary. Entries are sorted by term and
// indexed by TermID.
type Lexicon struct {
	entries []TermEntry
	byTerm  map[string]TermID
}

// NewLexicon builds a lexicon from entries already sorted ascending by term.
func NewLexicon(entries []TermEntry) *Lexicon {
	byTerm := make(map[string]TermID, len(entries))
	for i, e := range entries {
		byTerm[e.Term] = TermID(i)
	}
	return &Lexicon{entries: entries, byTerm: byTerm}
}

// Lookup resolves a term to its dense ID.
func (l *Lexicon) Lookup(term string) (TermID, bool) {
	id, ok := l.byTerm[term]
	return id, ok
}

// Entry returns the entry for a term ID. The ID must come from Lookup.
func (l *Lexicon) Entry(id TermID) TermEntry {
	return l.entries[id]
}

// Find performs a binary search by term, mirroring Lookup without the map.
func (l *Lexicon) Find(term string) (TermEntry, bool) {
	i := sort.Search(len(l.entries), func(i int) bool {
		return l.entries[i].Term >= term
	})
	if i >= len(l.entries) || l.entries[i].Term != term {
		return TermEntry{}, false
	}
	return l.entries[i], true
}

// Len returns the number of distinct terms.
func (l *Lexicon) Len() int {
	return len(l.entries)
}

// Entries exposes the sorted entry slice for iteration. Callers must not
// mutate it.
func (l *Lexicon) Entries() []TermEntry {
	return l.entries
}
