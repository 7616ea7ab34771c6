package memory

import (
	"context"
	"sync"

	"mint-radar/internal/domain"
	"mint-radar/internal/storage"
)

// ClusterStore is an in-memory implementation of storage.ClusterStore.
// Used by tests and --use-memory mode; accumulation does not survive restarts.
type ClusterStore struct {
	mu   sync.RWMutex
	data map[string]*domain.ClusterEntry // keyed by mint_id
}

// NewClusterStore creates a new in-memory cluster store.
func NewClusterStore() *ClusterStore {
	return &ClusterStore{
		data: make(map[string]*domain.ClusterEntry),
	}
}

// Upsert merges the entry snapshot forward into the stored record. Flushes
// for the same mint can arrive out of order; the monotonic merge makes the
// result independent of arrival order.
func (s *ClusterStore) Upsert(_ context.Context, e *domain.ClusterEntry) error {
	if e == nil || e.MintID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if old, exists := s.data[e.MintID]; exists {
		old.MergeFrom(e)
		return nil
	}
	// Store a copy to prevent external mutation
	s.data[e.MintID] = e.Clone()
	return nil
}

// GetByMint retrieves an entry by mint. Returns ErrNotFound if absent.
func (s *ClusterStore) GetByMint(_ context.Context, mintID string) (*domain.ClusterEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, exists := s.data[mintID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return e.Clone(), nil
}

// GetAll retrieves every stored entry.
func (s *ClusterStore) GetAll(_ context.Context) ([]*domain.ClusterEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.ClusterEntry, 0, len(s.data))
	for _, e := range s.data {
		result = append(result, e.Clone())
	}
	return result, nil
}

// DeleteOlderThan removes entries with last_seen_at strictly before cutoffMs.
func (s *ClusterStore) DeleteOlderThan(_ context.Context, cutoffMs int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for mint, e := range s.data {
		if e.LastSeenAt < cutoffMs {
			delete(s.data, mint)
			n++
		}
	}
	return n, nil
}

// Verify interface compliance at compile time.
var _ storage.ClusterStore = (*ClusterStore)(nil)
