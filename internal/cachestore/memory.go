package cachestore

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory Store for tests and single-process setups.
type MemoryStore struct {
	mu          sync.RWMutex
	generations map[string]map[string]Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{generations: make(map[string]map[string]Entry)}
}

func (s *MemoryStore) Get(ctx context.Context, generation, url string) (Entry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	gen, ok := s.generations[generation]
	if !ok {
		return Entry{}, false, nil
	}
	ent, ok := gen[url]
	return ent, ok, nil
}

func (s *MemoryStore) Put(ctx context.Context, generation, url string, ent Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	gen, ok := s.generations[generation]
	if !ok {
		gen = make(map[string]Entry)
		s.generations[generation] = gen
	}
	gen[url] = ent
	return nil
}

func (s *MemoryStore) Generations(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.generations))
	for name := range s.generations {
		names = append(names, name)
	}
	return names, nil
}

func (s *MemoryStore) DropGeneration(ctx context.Context, generation string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.generations, generation)
	return nil
}

// Size reports the number of entries in a generation. Test helper.
func (s *MemoryStore) Size(generation string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.generations[generation])
}
