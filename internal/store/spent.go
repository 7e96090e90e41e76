// Package store persists scanner state between runs.
package store

import (
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/AlexZinkM/record-agent/internal/crypto"
)

var spentBucket = []byte("spent")

// SpentStore is a bbolt-backed set of serial numbers seen spent on chain. Spends
// never revert, so entries are never evicted.
type SpentStore struct {
	db *bolt.DB
}

// OpenSpentStore opens (or creates) the store at path.
func OpenSpentStore(path string) (*SpentStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open spent store: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(spentBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init spent store: %w", err)
	}
	return &SpentStore{db: db}, nil
}

// IsSpent reports whether serial was recorded as spent.
func (s *SpentStore) IsSpent(serial crypto.Field) (bool, error) {
	var found bool
	err := s.db.View(func(tx *bolt.Tx) error {
		found = tx.Bucket(spentBucket).Get(serial[:]) != nil
		return nil
	})
	return found, err
}

// MarkSpent records serial as spent.
func (s *SpentStore) MarkSpent(serial crypto.Field) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(spentBucket).Put(serial[:], []byte{1})
	})
}

// Count returns the number of cached serial numbers.
func (s *SpentStore) Count() (int, error) {
	var n int
	err := s.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(spentBucket).Stats().KeyN
		return nil
	})
	return n, err
}

func (s *SpentStore) Close() error {
	return s.db.Close()
}
