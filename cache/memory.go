package cache

import (
	"context"
	"sync"

	"github.com/jonwraymond/evalcache/fingerprint"
)

// MemoryStore is an in-memory Store. Useful for tests and short-lived processes.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[fingerprint.Identity]*Entry
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[fingerprint.Identity]*Entry),
	}
}

// Get returns a copy of the stored entry, or nil on miss.
func (s *MemoryStore) Get(ctx context.Context, id fingerprint.Identity) (*Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	entry, ok := s.entries[id]
	s.mu.RUnlock()

	if !ok {
		return nil, nil
	}
	return entry.Clone(), nil
}

// Put stores a copy of entry, replacing any previous one.
func (s *MemoryStore) Put(ctx context.Context, entry *Entry) error {
	if entry == nil {
		return ErrNilEntry
	}
	if err := ValidateIdentity(entry.Identity); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	s.entries[entry.Identity] = entry.Clone()
	s.mu.Unlock()
	return nil
}

// Delete removes an entry. Idempotent.
func (s *MemoryStore) Delete(_ context.Context, id fingerprint.Identity) error {
	s.mu.Lock()
	delete(s.entries, id)
	s.mu.Unlock()
	return nil
}

// Len returns the number of stored entries.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}

// Ensure MemoryStore implements Store
var _ Store = (*MemoryStore)(nil)
