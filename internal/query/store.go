package query

import (
	"context"
	"strconv"
	"sync"
)

// Store persists cached query results. Entries are addressed by family,
// family generation and parameter; bumping a generation orphans every entry
// written under older generations.
type Store interface {
	Generation(ctx context.Context, family string) (int64, error)
	Get(ctx context.Context, family string, gen int64, param string) ([]byte, bool, error)
	Set(ctx context.Context, family string, gen int64, param string, value []byte) error
	Bump(ctx context.Context, family string) (int64, error)
}

// MemoryStore keeps entries in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	gens    map[string]int64
	entries map[string]map[string][]byte // family -> gen/param -> value
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		gens:    make(map[string]int64),
		entries: make(map[string]map[string][]byte),
	}
}

func (s *MemoryStore) Generation(_ context.Context, family string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gens[family], nil
}

func (s *MemoryStore) Get(_ context.Context, family string, gen int64, param string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.entries[family][entryID(gen, param)]
	return value, ok, nil
}

// Set drops writes for a generation that has already been bumped.
func (s *MemoryStore) Set(_ context.Context, family string, gen int64, param string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gens[family] {
		return nil
	}
	bucket, ok := s.entries[family]
	if !ok {
		bucket = make(map[string][]byte)
		s.entries[family] = bucket
	}
	bucket[entryID(gen, param)] = value
	return nil
}

func (s *MemoryStore) Bump(_ context.Context, family string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gens[family]++
	delete(s.entries, family)
	return s.gens[family], nil
}

// Len reports the number of live entries for a family.
func (s *MemoryStore) Len(family string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries[family])
}

func entryID(gen int64, param string) string {
	return strconv.FormatInt(gen, 10) + "/" + param
}
