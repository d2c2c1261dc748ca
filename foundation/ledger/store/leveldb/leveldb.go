// Package leveldb implements the store interface on top of goleveldb for
// durable contract state.
package leveldb

import (
	"errors"

	"github.com/Michellebuchiokonicha/quest-contract/foundation/ledger/store"
	"github.com/syndtr/goleveldb/leveldb"
)

// LevelDB represents a disk based implementation of the store.Store interface.
type LevelDB struct {
	db *leveldb.DB
}

// New opens or creates the database at the specified path.
func New(dbPath string) (*LevelDB, error) {
	db, err := leveldb.OpenFile(dbPath, nil)
	if err != nil {
		return nil, err
	}

	return &LevelDB{db: db}, nil
}

// Get returns the value stored under the specified key.
func (l *LevelDB) Get(key store.Key) ([]byte, error) {
	value, err := l.db.Get(key.Bytes(), nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	return value, nil
}

// Set stores the value under the specified key.
func (l *LevelDB) Set(key store.Key, value []byte) error {
	return l.db.Put(key.Bytes(), value, nil)
}

// Has reports whether the specified key exists.
func (l *LevelDB) Has(key store.Key) (bool, error) {
	return l.db.Has(key.Bytes(), nil)
}

// Remove deletes the specified key. Removing a missing key is not an error.
func (l *LevelDB) Remove(key store.Key) error {
	return l.db.Delete(key.Bytes(), nil)
}

// Close closes the underlying database.
func (l *LevelDB) Close() error {
	return l.db.Close()
}
