// Package index holds the three persisted retrieval structures (lexicon,
// document table, posting store) and the read-only handle that query
// execution works against. The handle is immutable after Open and safe for
// concurrent readers.
package index

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"log/slog"
	"os"

	skerrors "searchkit/pkg/errors"
	"searchkit/pkg/logger"
)

// Index is a read-only handle on a published index image. Posting lists are
// loaded lazily per query via ReadAt; the lexicon and document table live in
// memory.
type Index struct {
	file     *os.File
	path     string
	lexicon  *Lexicon
	docs     *DocumentTable
	postBase int64
	postSize int64
	logger   *slog.Logger
}

// Open maps an index image into a handle. It validates the magic bytes,
// format version, region checksums, and every lexicon locator before
// returning; a locator outside the postings region fails fast with
// ErrInconsistentIndex.
func Open(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening index file: %v", skerrors.ErrStorage, err)
	}
	ix, err := open(f, path)
	if err != nil {
		f.Close()
		return nil, err
	}
	return ix, nil
}

func open(f *os.File, path string) (*Index, error) {
	headerBytes := make([]byte, HeaderSize)
	if _, err := f.ReadAt(headerBytes, 0); err != nil {
		return nil, fmt.Errorf("%w: reading header: %v", skerrors.ErrStorage, err)
	}
	header := unmarshalHeader(headerBytes)
	if header.Magic != MagicBytes {
		return nil, skerrors.Newf(skerrors.ErrInconsistentIndex, "bad magic bytes %x", header.Magic)
	}
	if header.Version != FormatVersion {
		return nil, skerrors.Newf(skerrors.ErrInconsistentIndex, "unsupported format version %d", header.Version)
	}

	footer := make([]byte, FooterSize)
	footerOff := header.DocOffset + header.DocSize
	if _, err := f.ReadAt(footer, footerOff); err != nil {
		return nil, fmt.Errorf("%w: reading footer: %v", skerrors.ErrStorage, err)
	}

	lexData := make([]byte, header.LexSize)
	if _, err := f.ReadAt(lexData, header.LexOffset); err != nil {
		return nil, fmt.Errorf("%w: reading lexicon: %v", skerrors.ErrStorage, err)
	}
	if crc := crc32.ChecksumIEEE(lexData); crc != binary.LittleEndian.Uint32(footer[0:4]) {
		return nil, skerrors.New(skerrors.ErrInconsistentIndex, "lexicon checksum mismatch")
	}
	var entries []TermEntry
	if err := json.Unmarshal(lexData, &entries); err != nil {
		return nil, skerrors.Newf(skerrors.ErrInconsistentIndex, "parsing lexicon: %v", err)
	}
	if uint32(len(entries)) != header.TermCount {
		return nil, skerrors.Newf(skerrors.ErrInconsistentIndex,
			"lexicon has %d terms, header says %d", len(entries), header.TermCount)
	}

	docData := make([]byte, header.DocSize)
	if _, err := f.ReadAt(docData, header.DocOffset); err != nil {
		return nil, fmt.Errorf("%w: reading document table: %v", skerrors.ErrStorage, err)
	}
	if crc := crc32.ChecksumIEEE(docData); crc != binary.LittleEndian.Uint32(footer[4:8]) {
		return nil, skerrors.New(skerrors.ErrInconsistentIndex, "document table checksum mismatch")
	}
	var docEntries []DocEntry
	if err := json.Unmarshal(docData, &docEntries); err != nil {
		return nil, skerrors.Newf(skerrors.ErrInconsistentIndex, "parsing document table: %v", err)
	}
	if uint32(len(docEntries)) != header.DocCount {
		return nil, skerrors.Newf(skerrors.ErrInconsistentIndex,
			"document table has %d docs, header says %d", len(docEntries), header.DocCount)
	}

	for _, e := range entries {
		if e.PostOffset < 0 || e.PostLen < 0 || e.PostOffset+int64(e.PostLen) > header.PostSize {
			return nil, skerrors.Newf(skerrors.ErrInconsistentIndex,
				"term %q locator [%d,%d) outside postings region of %d bytes",
				e.Term, e.PostOffset, e.PostOffset+int64(e.PostLen), header.PostSize)
		}
	}

	ix := &Index{
		file:     f,
		path:     path,
		lexicon:  NewLexicon(entries),
		docs:     newDocumentTable(docEntries),
		postBase: header.PostOffset,
		postSize: header.PostSize,
		logger:   logger.WithComponent("index"),
	}
	ix.logger.Info("index opened",
		"path", path,
		"terms", len(entries),
		"docs", len(docEntries),
		"postings_bytes", header.PostSize,
	)
	return ix, nil
}

// Postings fetches and decodes a term's posting list. A term absent from
// the lexicon yields (nil, nil): unknown terms are defined behaviour, not
// an error. A decoded list that contradicts the recorded document frequency
// is a consistency fault.
func (ix *Index) Postings(term string) (PostingList, error) {
	id, ok := ix.lexicon.Lookup(term)
	if !ok {
		return nil, nil
	}
	return ix.PostingsByID(id)
}

// PostingsByID fetches a posting list by dense term ID.
func (ix *Index) PostingsByID(id TermID) (PostingList, error) {
	entry := ix.lexicon.Entry(id)
	block := make([]byte, entry.PostLen)
	if _, err := ix.file.ReadAt(block, ix.postBase+entry.PostOffset); err != nil {
		return nil, fmt.Errorf("%w: reading postings for term %q: %v", skerrors.ErrStorage, entry.Term, err)
	}
	list, err := DecodePostings(block)
	if err != nil {
		return nil, fmt.Errorf("term %q: %w", entry.Term, err)
	}
	if uint32(len(list)) != entry.DocFreq {
		return nil, skerrors.Newf(skerrors.ErrInconsistentIndex,
			"term %q has %d postings, lexicon says %d", entry.Term, len(list), entry.DocFreq)
	}
	return list, nil
}

// Lexicon returns the term dictionary.
func (ix *Index) Lexicon() *Lexicon {
	return ix.lexicon
}

// Docs returns the document table.
func (ix *Index) Docs() *DocumentTable {
	return ix.docs
}

// DocCount returns the number of indexed documents.
func (ix *Index) DocCount() int {
	return ix.docs.Len()
}

// TermCount returns the number of distinct terms.
func (ix *Index) TermCount() int {
	return ix.lexicon.Len()
}

// Close releases the underlying file. In-flight readers must be done.
func (ix *Index) Close() error {
	return ix.file.Close()
}
