package index

// DocID is a dense, zero-based internal document identifier assigned in
// document-arrival order during construction.
type DocID uint32

// Posting records one term occurrence count inside one document.
type Posting struct {
	Doc  DocID
	Freq uint32
}

// PostingList is a term's postings sorted ascending by DocID with no
// duplicate documents.
type PostingList []Posting

// Cursor walks a posting list in DocID order. NextGEQ supports
// document-at-a-time intersection.
type Cursor struct {
	list PostingList
	pos  int
}

func NewCursor(list PostingList) *Cursor {
	return &Cursor{list: list}
}

// Current returns the posting under the cursor, or false when exhausted.
func (c *Cursor) Current() (Posting, bool) {
	if c.pos >= len(c.list) {
		return Posting{}, false
	}
	return c.list[c.pos], true
}

// Next advances one posting and returns the new current posting.
func (c *Cursor) Next() (Posting, bool) {
	c.pos++
	return c.Current()
}

// NextGEQ advances until the current posting's DocID is >= target and
// returns it. The cursor never moves backwards.
func (c *Cursor) NextGEQ(target DocID) (Posting, bool) {
	rest := c.list[min(c.pos, len(c.list)):]
	lo, hi := 0, len(rest)
	for lo < hi {
		mid := (lo + hi) / 2
		if rest[mid].Doc < target {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	c.pos += lo
	return c.Current()
}

// Len returns the number of postings remaining including the current one.
func (c *Cursor) Len() int {
	if c.pos >= len(c.list) {
		return 0
	}
	return len(c.list) - c.pos
}
