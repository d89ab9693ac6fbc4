// Package store provides the key/value storage behind seller catalogues.
//
// Entries live in an in-memory BadgerDB instance: catalogues are owned by a
// running seller and are rebuilt from configuration on every start.
package store

import (
	stdErrors "errors"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/pkg/errors"
)

// ErrNotFound returned when key does not exist in the store.
var ErrNotFound = errors.New("key not found")

// Store keeps key/value pairs in an in-memory BadgerDB.
type Store struct {
	db *badger.DB
	mu sync.RWMutex
}

// New opens an empty in-memory store.
func New() (*Store, error) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrap(err, "open badger db")
	}

	return &Store{db: db}, nil
}

// Put stores the provided value for the key.
func (s *Store) Put(key string, value []byte) error {
	if key == "" {
		return errors.New("key cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), cloneBytes(value))
	})
}

// Get retrieves value by key. Returns ErrNotFound if key does not exist.
func (s *Store) Get(key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			if stdErrors.Is(err, badger.ErrKeyNotFound) {
				return ErrNotFound
			}
			return err
		}
		result, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// Take reads and deletes the key in one transaction. Returns ErrNotFound if
// key does not exist.
func (s *Store) Take(key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []byte
	err := s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			if stdErrors.Is(err, badger.ErrKeyNotFound) {
				return ErrNotFound
			}
			return err
		}
		if result, err = item.ValueCopy(nil); err != nil {
			return err
		}
		return txn.Delete([]byte(key))
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() (map[string][]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := make(map[string][]byte)
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			key := item.KeyCopy(nil)
			if err := item.Value(func(val []byte) error {
				snapshot[string(key)] = cloneBytes(val)
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "snapshot")
	}

	return snapshot, nil
}

// Close closes the underlying Badger database.
func (s *Store) Close() error {
	return s.db.Close()
}

func cloneBytes(src []byte) []byte {
	if src == nil {
		return nil
	}

	dst := make([]byte, len(src))
	copy(dst, src)
	return dst
}
