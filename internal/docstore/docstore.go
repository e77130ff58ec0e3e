// Package docstore is an optional forward store mapping external document
// IDs to their raw text, kept next to the index so the interactive CLI can
// show result snippets. The inverted index never reads it.
package docstore

import (
	"fmt"

	bolt "go.etcd.io/bbolt"

	skerrors "searchkit/pkg/errors"
)

var docsBucket = []byte("docs")

type Store struct {
	db *bolt.DB
}

func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0644, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: opening document store %s: %v", skerrors.ErrStorage, path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(docsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: initializing document store: %v", skerrors.ErrStorage, err)
	}
	return &Store{db: db}, nil
}

// PutAll stores a batch of documents in one transaction.
func (s *Store) PutAll(docs map[string]string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(docsBucket)
		for id, text := range docs {
			if err := b.Put([]byte(id), []byte(text)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: writing documents: %v", skerrors.ErrStorage, err)
	}
	return nil
}

// Get returns a document's raw text by external ID.
func (s *Store) Get(externalID string) (string, bool, error) {
	var text string
	var found bool
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(docsBucket).Get([]byte(externalID))
		if v != nil {
			found = true
			text = string(v)
		}
		return nil
	})
	if err != nil {
		return "", false, fmt.Errorf("%w: reading document %q: %v", skerrors.ErrStorage, externalID, err)
	}
	return text, found, nil
}

// Len returns the number of stored documents.
func (s *Store) Len() (int, error) {
	var n int
	err := s.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(docsBucket).Stats().KeyN
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: reading document store stats: %v", skerrors.ErrStorage, err)
	}
	return n, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
