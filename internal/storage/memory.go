package storage

import (
	gocache "github.com/patrickmn/go-cache"
)

// MemoryStore keeps entries in process memory only
type MemoryStore struct {
	cache *gocache.Cache
}

// NewMemoryStore creates an empty memory store. Entries never expire.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		cache: gocache.New(gocache.NoExpiration, 0),
	}
}

// Get retrieves a copy of an entry
func (s *MemoryStore) Get(key string) ([]byte, bool) {
	val, found := s.cache.Get(key)
	if !found {
		return nil, false
	}
	b := val.([]byte)
	return append([]byte(nil), b...), true
}

// Set stores a copy of value
func (s *MemoryStore) Set(key string, value []byte) error {
	s.cache.Set(key, append([]byte(nil), value...), gocache.NoExpiration)
	return nil
}

// Delete removes an entry
func (s *MemoryStore) Delete(key string) error {
	s.cache.Delete(key)
	return nil
}
