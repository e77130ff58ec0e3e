package index

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	skerrors "searchkit/pkg/errors"
)

func writeTestIndex(t *testing.T, path string) {
	t.Helper()

	docs := NewDocumentTable()
	docs.Append(DocEntry{ExternalID: "doc-a", Length: 2, MaxFreq: 1})
	docs.Append(DocEntry{ExternalID: "doc-b", Length: 3, MaxFreq: 2})

	w, err := NewWriter(path)
	require.NoError(t, err)

	catList := PostingList{{Doc: 0, Freq: 1}, {Doc: 1, Freq: 2}}
	dogList := PostingList{{Doc: 0, Freq: 1}}
	require.NoError(t, w.AddTerm("cat", EncodePostings(catList), 2, 3))
	require.NoError(t, w.AddTerm("dog", EncodePostings(dogList), 1, 1))

	require.NoError(t, w.Commit(docs))
	require.NoError(t, w.Publish())
}

func TestWriteThenOpenRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.skx")
	writeTestIndex(t, path)

	ix, err := Open(path)
	require.NoError(t, err)
	defer ix.Close()

	assert.Equal(t, 2, ix.TermCount())
	assert.Equal(t, 2, ix.DocCount())

	cat, err := ix.Postings("cat")
	require.NoError(t, err)
	assert.Equal(t, PostingList{{Doc: 0, Freq: 1}, {Doc: 1, Freq: 2}}, cat)

	dog, err := ix.Postings("dog")
	require.NoError(t, err)
	assert.Equal(t, PostingList{{Doc: 0, Freq: 1}}, dog)

	entry, ok := ix.Docs().Entry(1)
	require.True(t, ok)
	assert.Equal(t, "doc-b", entry.ExternalID)
	assert.Equal(t, uint32(3), entry.Length)
	assert.InDelta(t, 2.5, ix.Docs().AvgLength(), 1e-9)
}

func TestOpenUnknownTermIsNotAnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.skx")
	writeTestIndex(t, path)

	ix, err := Open(path)
	require.NoError(t, err)
	defer ix.Close()

	list, err := ix.Postings("zebra")
	assert.NoError(t, err)
	assert.Nil(t, list)
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.skx"))

	assert.ErrorIs(t, err, skerrors.ErrStorage)
}

func TestOpenRejectsBadMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.skx")
	writeTestIndex(t, path)

	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	require.NoError(t, err)
	_, err = f.WriteAt([]byte{0xde, 0xad, 0xbe, 0xef}, 0)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	_, err = Open(path)
	assert.ErrorIs(t, err, skerrors.ErrInconsistentIndex)
}

func TestOpenDetectsCorruptedLexicon(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.skx")
	writeTestIndex(t, path)

	headerBytes := make([]byte, HeaderSize)
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	require.NoError(t, err)
	_, err = f.ReadAt(headerBytes, 0)
	require.NoError(t, err)
	header := unmarshalHeader(headerBytes)

	// Flip one byte inside the lexicon region.
	buf := []byte{0}
	_, err = f.ReadAt(buf, header.LexOffset)
	require.NoError(t, err)
	buf[0] ^= 0xff
	_, err = f.WriteAt(buf, header.LexOffset)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	_, err = Open(path)
	assert.ErrorIs(t, err, skerrors.ErrInconsistentIndex)
}

func TestWriterRejectsOutOfOrderTerms(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.skx")
	w, err := NewWriter(path)
	require.NoError(t, err)
	defer w.Abort()

	require.NoError(t, w.AddTerm("dog", EncodePostings(PostingList{{Doc: 0, Freq: 1}}), 1, 1))

	err = w.AddTerm("cat", EncodePostings(PostingList{{Doc: 0, Freq: 1}}), 1, 1)
	assert.Error(t, err)
}

func TestPublishIsAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.skx")

	docs := NewDocumentTable()
	docs.Append(DocEntry{ExternalID: "d", Length: 1, MaxFreq: 1})

	w, err := NewWriter(path)
	require.NoError(t, err)
	require.NoError(t, w.AddTerm("cat", EncodePostings(PostingList{{Doc: 0, Freq: 1}}), 1, 1))
	require.NoError(t, w.Commit(docs))

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "image must not exist before publish")

	require.NoError(t, w.Publish())
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestAbortLeavesNoImage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.skx")

	w, err := NewWriter(path)
	require.NoError(t, err)
	require.NoError(t, w.AddTerm("cat", EncodePostings(PostingList{{Doc: 0, Freq: 1}}), 1, 1))
	w.Abort()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
