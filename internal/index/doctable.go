package index

// DocEntry holds per-document metadata. The internal DocID is implicit in
// the entry's position.
type DocEntry struct {
	ExternalID string `json:"id"`
	Length     uint32 `json:"len"`
	MaxFreq    uint32 `json:"max"`
}

// DocumentTable maps dense internal document IDs to metadata. IDs are
// contiguous [0, N) in arrival order; the table is append-only during
// construction and immutable afterwards.
type DocumentTable struct {
	docs       []DocEntry
	totalTerms uint64
}

func NewDocumentTable() *DocumentTable {
	return &DocumentTable{}
}

func newDocumentTable(docs []DocEntry) *DocumentTable {
	t := &DocumentTable{docs: docs}
	for _, d := range docs {
		t.totalTerms += uint64(d.Length)
	}
	return t
}

// Append records the next document and returns its assigned internal ID.
func (t *DocumentTable) Append(e DocEntry) DocID {
	id := DocID(len(t.docs))
	t.docs = append(t.docs, e)
	t.totalTerms += uint64(e.Length)
	return id
}

// Entry returns the metadata for an internal document ID.
func (t *DocumentTable) Entry(id DocID) (DocEntry, bool) {
	if int(id) >= len(t.docs) {
		return DocEntry{}, false
	}
	return t.docs[id], true
}

// Length returns the term count of a document, zero for unknown IDs.
func (t *DocumentTable) Length(id DocID) uint32 {
	if int(id) >= len(t.docs) {
		return 0
	}
	return t.docs[id].Length
}

// Len returns the number of documents.
func (t *DocumentTable) Len() int {
	return len(t.docs)
}

// TotalTerms returns the summed length of all documents.
func (t *DocumentTable) TotalTerms() uint64 {
	return t.totalTerms
}

// AvgLength returns the average document length used by BM25 length
// normalization.
func (t *DocumentTable) AvgLength() float64 {
	if len(t.docs) == 0 {
		return 0
	}
	return float64(t.totalTerms) / float64(len(t.docs))
}

func (t *DocumentTable) entries() []DocEntry {
	return t.docs
}
