package docstore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutAllAndGet(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "docs.bolt"))
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.PutAll(map[string]string{
		"doc-1": "the quick brown fox",
		"doc-2": "jumps over the lazy dog",
	}))

	text, ok, err := store.Get("doc-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "the quick brown fox", text)

	n, err := store.Len()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestGetMissingDocument(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "docs.bolt"))
	require.NoError(t, err)
	defer store.Close()

	text, ok, err := store.Get("nope")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, text)
}

func TestStorePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docs.bolt")

	store, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, store.PutAll(map[string]string{"doc-1": "persisted text"}))
	require.NoError(t, store.Close())

	store, err = Open(path)
	require.NoError(t, err)
	defer store.Close()

	text, ok, err := store.Get("doc-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "persisted text", text)
}

func TestPutAllOverwrites(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "docs.bolt"))
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.PutAll(map[string]string{"doc-1": "old"}))
	require.NoError(t, store.PutAll(map[string]string{"doc-1": "new"}))

	text, _, err := store.Get("doc-1")
	require.NoError(t, err)
	assert.Equal(t, "new", text)

	n, err := store.Len()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
