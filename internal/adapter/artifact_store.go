package adapter

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	m "github.com/mouse-blink/evoprobe/internal/model"
)

var bucketArtifacts = []byte("artifacts")

// ArtifactStore indexes instrumented artifacts by the source they were
// produced from.
type ArtifactStore interface {
	// Get returns the entry for source; ok is false when there is none.
	Get(source m.Path) (entry m.Artifact, ok bool, err error)
	Put(entry m.Artifact) error
	Delete(source m.Path) error
	// All returns every entry, ordered by source path.
	All() ([]m.Artifact, error)
	Close() error
}

// BoltArtifactStore implements ArtifactStore on an embedded bbolt database.
// Entries are stored as JSON under the source path.
type BoltArtifactStore struct {
	db *bolt.DB
}

// OpenArtifactStore opens (or creates) the artifact index at path,
// creating its directory if needed.
func OpenArtifactStore(path m.Path) (*BoltArtifactStore, error) {
	if err := os.MkdirAll(filepath.Dir(string(path)), 0o750); err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}

	db, err := bolt.Open(string(path), 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("bbolt open: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketArtifacts)

		return err
	})
	if err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("create artifacts bucket: %w", err)
	}

	return &BoltArtifactStore{db: db}, nil
}

// Get returns the entry recorded for source.
func (s *BoltArtifactStore) Get(source m.Path) (m.Artifact, bool, error) {
	var raw []byte

	err := s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(bucketArtifacts).Get([]byte(source)); v != nil {
			// bbolt slices are only valid within the transaction.
			raw = make([]byte, len(v))
			copy(raw, v)
		}

		return nil
	})
	if err != nil || raw == nil {
		return m.Artifact{}, false, err
	}

	var entry m.Artifact
	if err := json.Unmarshal(raw, &entry); err != nil {
		return m.Artifact{}, false, fmt.Errorf("unmarshal artifact %s: %w", source, err)
	}

	return entry, true, nil
}

// Put records entry, replacing any previous entry for the same source.
func (s *BoltArtifactStore) Put(entry m.Artifact) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal artifact: %w", err)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketArtifacts).Put([]byte(entry.Source), raw)
	})
}

// Delete removes the entry for source. Deleting a missing entry is a no-op.
func (s *BoltArtifactStore) Delete(source m.Path) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketArtifacts).Delete([]byte(source))
	})
}

// All returns every entry in key order.
func (s *BoltArtifactStore) All() ([]m.Artifact, error) {
	var entries []m.Artifact

	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketArtifacts).ForEach(func(k, v []byte) error {
			var entry m.Artifact
			if err := json.Unmarshal(v, &entry); err != nil {
				return fmt.Errorf("unmarshal artifact %s: %w", k, err)
			}

			entries = append(entries, entry)

			return nil
		})
	})

	return entries, err
}

// Close closes the underlying database.
func (s *BoltArtifactStore) Close() error {
	return s.db.Close()
}
