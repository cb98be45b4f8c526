package engine

import (
	"github.com/himakhaitan/memkv/protocol"
	"github.com/himakhaitan/memkv/store"
)

// Storage is the subset of *store.Store the cache engine needs
type Storage interface {
	Get(key []byte) ([]byte, error)
	Put(key, value []byte)
	Stats() store.Stats
}

// DB is the cache facade used by connection sessions. Stored values are
// the four flag bytes of a SET followed by its payload.
type DB struct {
	Store Storage
}

func NewDB(s *store.Store) *DB {
	return &DB{Store: s}
}

// Get returns flags ++ value for key, or store.ErrKeyNotFound
func (db *DB) Get(key []byte) ([]byte, error) {
	return db.Store.Get(key)
}

// Set replaces whatever is stored under key with flags ++ value
func (db *DB) Set(key []byte, flags [protocol.FlagsLen]byte, value []byte) {
	stored := make([]byte, 0, protocol.FlagsLen+len(value))
	stored = append(stored, flags[:]...)
	stored = append(stored, value...)

	db.Store.Put(key, stored)
}

func (db *DB) Stats() store.Stats {
	return db.Store.Stats()
}
