package indexer

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sort"

	"searchkit/internal/index"
	skerrors "searchkit/pkg/errors"
)

// Intermediate runs hold one sorted (term -> posting block) sequence each.
// Record layout: uvarint term length, term bytes, uvarint block length,
// block bytes. Terms are sorted within a run; document IDs inside a run are
// globally ordered because IDs only grow while a run accumulates.

// writeRun spills an accumulator snapshot to path as a sorted run.
func writeRun(path string, postings map[string]index.PostingList) error {
	terms := make([]string, 0, len(postings))
	for term := range postings {
		terms = append(terms, term)
	}
	sort.Strings(terms)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: creating run file: %v", skerrors.ErrStorage, err)
	}
	w := bufio.NewWriterSize(f, 256*1024)
	var scratch [binary.MaxVarintLen64]byte
	for _, term := range terms {
		block := index.EncodePostings(postings[term])
		n := binary.PutUvarint(scratch[:], uint64(len(term)))
		if _, err := w.Write(scratch[:n]); err != nil {
			f.Close()
			return fmt.Errorf("%w: writing run: %v", skerrors.ErrStorage, err)
		}
		if _, err := w.WriteString(term); err != nil {
			f.Close()
			return fmt.Errorf("%w: writing run: %v", skerrors.ErrStorage, err)
		}
		n = binary.PutUvarint(scratch[:], uint64(len(block)))
		if _, err := w.Write(scratch[:n]); err != nil {
			f.Close()
			return fmt.Errorf("%w: writing run: %v", skerrors.ErrStorage, err)
		}
		if _, err := w.Write(block); err != nil {
			f.Close()
			return fmt.Errorf("%w: writing run: %v", skerrors.ErrStorage, err)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("%w: flushing run: %v", skerrors.ErrStorage, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: closing run: %v", skerrors.ErrStorage, err)
	}
	return nil
}

// runReader streams a run file's records back in term order.
type runReader struct {
	file *os.File
	r    *bufio.Reader
	path string
}

func openRun(path string) (*runReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening run file: %v", skerrors.ErrStorage, err)
	}
	return &runReader{
		file: f,
		r:    bufio.NewReaderSize(f, 256*1024),
		path: path,
	}, nil
}

// next returns the following (term, block) record, or io.EOF.
func (rr *runReader) next() (string, []byte, error) {
	termLen, err := binary.ReadUvarint(rr.r)
	if err == io.EOF {
		return "", nil, io.EOF
	}
	if err != nil {
		return "", nil, fmt.Errorf("%w: reading run %s: %v", skerrors.ErrStorage, rr.path, err)
	}
	term := make([]byte, termLen)
	if _, err := io.ReadFull(rr.r, term); err != nil {
		return "", nil, fmt.Errorf("%w: reading run %s: %v", skerrors.ErrStorage, rr.path, err)
	}
	blockLen, err := binary.ReadUvarint(rr.r)
	if err != nil {
		return "", nil, fmt.Errorf("%w: reading run %s: %v", skerrors.ErrStorage, rr.path, err)
	}
	block := make([]byte, blockLen)
	if _, err := io.ReadFull(rr.r, block); err != nil {
		return "", nil, fmt.Errorf("%w: reading run %s: %v", skerrors.ErrStorage, rr.path, err)
	}
	return string(term), block, nil
}

func (rr *runReader) close() error {
	return rr.file.Close()
}

// runCursor is one leg of the k-way merge: the reader plus its current
// record. seq preserves spill order so posting blocks for the same term
// concatenate in increasing document-ID order.
type runCursor struct {
	rr    *runReader
	seq   int
	term  string
	block []byte
}

func (rc *runCursor) advance() (bool, error) {
	term, block, err := rc.rr.next()
	if err == io.EOF {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	rc.term, rc.block = term, block
	return true, nil
}

// runHeap orders cursors by (term, seq) for the merge.
type runHeap []*runCursor

func (h runHeap) Len() int { return len(h) }

func (h runHeap) Less(i, j int) bool {
	if h[i].term != h[j].term {
		return h[i].term < h[j].term
	}
	return h[i].seq < h[j].seq
}

func (h runHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *runHeap) Push(x interface{}) {
	*h = append(*h, x.(*runCursor))
}

func (h *runHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
