package storage

// LayeredStore reads through a memory layer to a persistent layer and writes to both
type LayeredStore struct {
	memory Store
	disk   Store
}

// NewLayeredStore creates a layered store
func NewLayeredStore(memory, disk Store) *LayeredStore {
	return &LayeredStore{
		memory: memory,
		disk:   disk,
	}
}

// Get checks memory first, then disk, promoting disk hits into memory
func (s *LayeredStore) Get(key string) ([]byte, bool) {
	if val, found := s.memory.Get(key); found {
		return val, true
	}

	val, found := s.disk.Get(key)
	if !found {
		return nil, false
	}
	_ = s.memory.Set(key, val)
	return val, true
}

// Set writes the persistent layer first so memory never holds an entry that failed to persist
func (s *LayeredStore) Set(key string, value []byte) error {
	if err := s.disk.Set(key, value); err != nil {
		return err
	}
	return s.memory.Set(key, value)
}

// Delete removes the entry from both layers
func (s *LayeredStore) Delete(key string) error {
	_ = s.memory.Delete(key)
	return s.disk.Delete(key)
}
