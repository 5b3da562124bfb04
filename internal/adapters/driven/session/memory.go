// Package session provides stores for per-session encrypted credentials.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/graphmail/internal/core/domain"
	"github.com/custodia-labs/graphmail/internal/core/ports/driven"
)

// Ensure MemoryStore implements the interface.
var _ driven.SessionStore = (*MemoryStore)(nil)

type memoryEntry struct {
	blob      string
	expiresAt time.Time
}

// MemoryStore keeps session blobs in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// Get returns the blob for key, or domain.ErrNotFound if missing or expired.
func (s *MemoryStore) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		return "", domain.ErrNotFound
	}
	if !entry.expiresAt.IsZero() && !s.now().Before(entry.expiresAt) {
		s.mu.Lock()
		// Re-check under the write lock; a Put may have replaced it.
		if current, ok := s.entries[key]; ok && current == entry {
			delete(s.entries, key)
		}
		s.mu.Unlock()
		return "", domain.ErrNotFound
	}
	return entry.blob, nil
}

// Put replaces the blob for key.
func (s *MemoryStore) Put(_ context.Context, key, blob string, ttl time.Duration) error {
	entry := memoryEntry{blob: blob}
	if ttl > 0 {
		entry.expiresAt = s.now().Add(ttl)
	}

	s.mu.Lock()
	s.entries[key] = entry
	s.mu.Unlock()
	return nil
}
