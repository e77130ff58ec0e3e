package indexer

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	skerrors "searchkit/pkg/errors"
)

// Document is one raw unit of input: an external identifier plus the text
// to normalize and index.
type Document struct {
	ExternalID string
	Text       string
}

// DocumentSource yields documents one at a time. Next returns io.EOF when
// the source is exhausted. Sources need not be restartable.
type DocumentSource interface {
	Next() (Document, error)
}

// SliceSource serves documents from memory. Used by tests and small corpora.
type SliceSource struct {
	docs []Document
	pos  int
}

func NewSliceSource(docs []Document) *SliceSource {
	return &SliceSource{docs: docs}
}

func (s *SliceSource) Next() (Document, error) {
	if s.pos >= len(s.docs) {
		return Document{}, io.EOF
	}
	doc := s.docs[s.pos]
	s.pos++
	return doc, nil
}

// TSVSource reads a tab-separated collection file: one document per line,
// external ID before the first tab, text after it. Blank lines are skipped.
type TSVSource struct {
	file    *os.File
	scanner *bufio.Scanner
	line    int
}

func OpenTSV(path string) (*TSVSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening collection %s: %v", skerrors.ErrStorage, path, err)
	}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	return &TSVSource{file: f, scanner: scanner}, nil
}

func (s *TSVSource) Next() (Document, error) {
	for s.scanner.Scan() {
		s.line++
		line := s.scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		id, text, found := strings.Cut(line, "\t")
		if !found || strings.TrimSpace(id) == "" {
			return Document{}, skerrors.Newf(skerrors.ErrMalformedDocument,
				"line %d: missing id/text separator", s.line)
		}
		return Document{ExternalID: strings.TrimSpace(id), Text: text}, nil
	}
	if err := s.scanner.Err(); err != nil {
		return Document{}, fmt.Errorf("%w: reading collection: %v", skerrors.ErrStorage, err)
	}
	return Document{}, io.EOF
}

func (s *TSVSource) Close() error {
	return s.file.Close()
}
