package index

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash"
	"hash/crc32"
	"os"
	"path/filepath"
	"time"

	skerrors "searchkit/pkg/errors"
)

// MagicBytes identifies a valid .skx index file.
const (
	MagicBytes    uint32 = 0x534B4958
	FormatVersion uint32 = 1
	HeaderSize    int    = 64
	FooterSize    int    = 32
)

// fileHeader is the 64-byte header written at the start of every index file.
//
// Layout: magic(4) version(4) termCount(4) docCount(4) postOffset(8)
// postSize(8) lexOffset(8) lexSize(8) docOffset(8) docSize(8).
type fileHeader struct {
	Magic      uint32
	Version    uint32
	TermCount  uint32
	DocCount   uint32
	PostOffset int64
	PostSize   int64
	LexOffset  int64
	LexSize    int64
	DocOffset  int64
	DocSize    int64
}

func (h fileHeader) marshal() []byte {
	buf := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(buf[0:4], h.Magic)
	binary.LittleEndian.PutUint32(buf[4:8], h.Version)
	binary.LittleEndian.PutUint32(buf[8:12], h.TermCount)
	binary.LittleEndian.PutUint32(buf[12:16], h.DocCount)
	binary.LittleEndian.PutUint64(buf[16:24], uint64(h.PostOffset))
	binary.LittleEndian.PutUint64(buf[24:32], uint64(h.PostSize))
	binary.LittleEndian.PutUint64(buf[32:40], uint64(h.LexOffset))
	binary.LittleEndian.PutUint64(buf[40:48], uint64(h.LexSize))
	binary.LittleEndian.PutUint64(buf[48:56], uint64(h.DocOffset))
	binary.LittleEndian.PutUint64(buf[56:64], uint64(h.DocSize))
	return buf
}

func unmarshalHeader(buf []byte) fileHeader {
	return fileHeader{
		Magic:      binary.LittleEndian.Uint32(buf[0:4]),
		Version:    binary.LittleEndian.Uint32(buf[4:8]),
		TermCount:  binary.LittleEndian.Uint32(buf[8:12]),
		DocCount:   binary.LittleEndian.Uint32(buf[12:16]),
		PostOffset: int64(binary.LittleEndian.Uint64(buf[16:24])),
		PostSize:   int64(binary.LittleEndian.Uint64(buf[24:32])),
		LexOffset:  int64(binary.LittleEndian.Uint64(buf[32:40])),
		LexSize:    int64(binary.LittleEndian.Uint64(buf[40:48])),
		DocOffset:  int64(binary.LittleEndian.Uint64(buf[48:56])),
		DocSize:    int64(binary.LittleEndian.Uint64(buf[56:64])),
	}
}

// Writer streams a new index image to disk: postings region first (terms in
// ascending order), then the JSON lexicon and document table regions, a
// crc32 footer, and finally the back-patched header. Everything goes to a
// .tmp file that is renamed on Commit, so a reader never observes a
// half-written index.
type Writer struct {
	file     *os.File
	path     string
	tmpPath  string
	entries  []TermEntry
	postOff  int64
	postCRC  hash.Hash32
	lastTerm string
	done     bool
}

// NewWriter creates the temp file for a new index image at path.
func NewWriter(path string) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("creating temp index file: %w", err)
	}
	// Reserve the header; it is rewritten once region sizes are known.
	if _, err := f.Write(make([]byte, HeaderSize)); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("reserving header: %w", err)
	}
	return &Writer{
		file:    f,
		path:    path,
		tmpPath: tmpPath,
		postCRC: crc32.NewIEEE(),
	}, nil
}

// AddTerm appends an encoded posting block and records its lexicon entry.
// Terms must arrive in strictly ascending order.
func (w *Writer) AddTerm(term string, block []byte, docFreq uint32, collectionFreq uint64) error {
	if len(w.entries) > 0 && term <= w.lastTerm {
		return skerrors.Newf(skerrors.ErrInconsistentIndex, "term %q out of order after %q", term, w.lastTerm)
	}
	if _, err := w.file.Write(block); err != nil {
		return fmt.Errorf("writing postings for term %q: %w", term, err)
	}
	w.postCRC.Write(block)
	w.entries = append(w.entries, TermEntry{
		Term:           term,
		DocFreq:        docFreq,
		CollectionFreq: collectionFreq,
		PostOffset:     w.postOff,
		PostLen:        int32(len(block)),
	})
	w.postOff += int64(len(block))
	w.lastTerm = term
	return nil
}

// Commit writes the lexicon and document table regions, the footer and the
// final header, then syncs and closes the temp file. Publish makes it
// visible to readers.
func (w *Writer) Commit(docs *DocumentTable) error {
	if w.done {
		return fmt.Errorf("index writer already finished")
	}
	w.done = true

	header := fileHeader{
		Magic:      MagicBytes,
		Version:    FormatVersion,
		TermCount:  uint32(len(w.entries)),
		DocCount:   uint32(docs.Len()),
		PostOffset: int64(HeaderSize),
		PostSize:   w.postOff,
	}

	lexData, err := json.Marshal(w.entries)
	if err != nil {
		return fmt.Errorf("marshaling lexicon: %w", err)
	}
	docData, err := json.Marshal(docs.entries())
	if err != nil {
		return fmt.Errorf("marshaling document table: %w", err)
	}

	header.LexOffset = header.PostOffset + header.PostSize
	header.LexSize = int64(len(lexData))
	header.DocOffset = header.LexOffset + header.LexSize
	header.DocSize = int64(len(docData))

	if _, err := w.file.Write(lexData); err != nil {
		return fmt.Errorf("writing lexicon: %w", err)
	}
	if _, err := w.file.Write(docData); err != nil {
		return fmt.Errorf("writing document table: %w", err)
	}

	footer := make([]byte, FooterSize)
	binary.LittleEndian.PutUint32(footer[0:4], crc32.ChecksumIEEE(lexData))
	binary.LittleEndian.PutUint32(footer[4:8], crc32.ChecksumIEEE(docData))
	binary.LittleEndian.PutUint32(footer[8:12], w.postCRC.Sum32())
	binary.LittleEndian.PutUint64(footer[16:24], uint64(time.Now().Unix()))
	if _, err := w.file.Write(footer); err != nil {
		return fmt.Errorf("writing footer: %w", err)
	}
	if _, err := w.file.WriteAt(header.marshal(), 0); err != nil {
		return fmt.Errorf("updating header: %w", err)
	}
	if err := w.file.Sync(); err != nil {
		return fmt.Errorf("syncing index file: %w", err)
	}
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("closing index file: %w", err)
	}
	w.file = nil
	return nil
}

// Publish atomically renames the committed temp file into place. Safe to
// retry: rename either succeeds or leaves the temp file untouched.
func (w *Writer) Publish() error {
	if !w.done {
		return fmt.Errorf("publish before commit")
	}
	if err := os.Rename(w.tmpPath, w.path); err != nil {
		return fmt.Errorf("%w: publishing index file: %v", skerrors.ErrStorage, err)
	}
	return nil
}

// Abort discards the temp file. Safe to call after a failed Commit.
func (w *Writer) Abort() {
	if w.file != nil {
		w.file.Close()
	}
	os.Remove(w.tmpPath)
}
