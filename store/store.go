package store

import (
	"sync"
)

// Stats summarises the contents of the store
type Stats struct {
	TotalKeys int   // Number of distinct keys
	TotalSize int64 // Sum of all stored value sizes in bytes
}

// Store is the shared key -> value map of the cache.
// A single mutex guards the map and is held only for one map access.
type Store struct {
	mu    sync.Mutex
	items map[string][]byte
	size  int64
}

// New creates an empty store
func New() *Store {
	return &Store{
		items: make(map[string][]byte),
	}
}

// Get returns an independent copy of the value stored under key
func (s *Store) Get(key []byte) ([]byte, error) {
	s.mu.Lock()
	value, exists := s.items[string(key)]
	if !exists {
		s.mu.Unlock()
		return nil, ErrKeyNotFound
	}
	out := make([]byte, len(value))
	copy(out, value)
	s.mu.Unlock()

	return out, nil
}

// Put inserts or overwrites the value under key. The store takes ownership
// of value; callers must not modify it afterwards.
func (s *Store) Put(key, value []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := string(key)
	if prev, exists := s.items[k]; exists {
		s.size -= int64(len(prev))
	}
	s.items[k] = value
	s.size += int64(len(value))
}

// Stats returns a snapshot of the store statistics
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Stats{
		TotalKeys: len(s.items),
		TotalSize: s.size,
	}
}
