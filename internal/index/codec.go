package index

import (
	"encoding/binary"

	"searchkit/pkg/errors"
)

// Posting blocks are stored as a uvarint posting count followed by one
// (gap, freq) uvarint pair per posting. The first gap is the absolute
// DocID; later gaps are the delta to the previous DocID, so sorted lists
// compress well.

// EncodePostings serialises a sorted, deduplicated posting list into a
// delta-encoded block.
func EncodePostings(list PostingList) []byte {
	buf := make([]byte, 0, 2+len(list)*3)
	buf = binary.AppendUvarint(buf, uint64(len(list)))
	var prev DocID
	for i, p := range list {
		gap := uint64(p.Doc)
		if i > 0 {
			gap = uint64(p.Doc - prev)
		}
		buf = binary.AppendUvarint(buf, gap)
		buf = binary.AppendUvarint(buf, uint64(p.Freq))
		prev = p.Doc
	}
	return buf
}

// DecodePostings parses a posting block, validating that documents are
// strictly ascending and frequencies positive. Violations indicate a
// corrupted store and surface as ErrInconsistentIndex.
func DecodePostings(data []byte) (PostingList, error) {
	count, n := binary.Uvarint(data)
	if n <= 0 {
		return nil, errors.New(errors.ErrInconsistentIndex, "posting block missing count")
	}
	data = data[n:]
	list := make(PostingList, 0, count)
	var doc DocID
	for i := uint64(0); i < count; i++ {
		gap, n := binary.Uvarint(data)
		if n <= 0 {
			return nil, errors.Newf(errors.ErrInconsistentIndex, "posting block truncated at entry %d", i)
		}
		data = data[n:]
		freq, n := binary.Uvarint(data)
		if n <= 0 {
			return nil, errors.Newf(errors.ErrInconsistentIndex, "posting block truncated at entry %d", i)
		}
		data = data[n:]
		if freq == 0 {
			return nil, errors.Newf(errors.ErrInconsistentIndex, "zero frequency at entry %d", i)
		}
		if i == 0 {
			doc = DocID(gap)
		} else {
			if gap == 0 {
				return nil, errors.Newf(errors.ErrInconsistentIndex, "duplicate document at entry %d", i)
			}
			doc += DocID(gap)
		}
		list = append(list, Posting{Doc: doc, Freq: uint32(freq)})
	}
	if len(data) != 0 {
		return nil, errors.New(errors.ErrInconsistentIndex, "trailing bytes after posting block")
	}
	return list, nil
}
