package memory

import (
	"context"
	"sync"

	"mint-radar/internal/storage"
)

// WatchlistStore is an in-memory implementation of storage.WatchlistStore.
type WatchlistStore struct {
	mu   sync.RWMutex
	data map[string]string // address -> tag
}

// NewWatchlistStore creates a new in-memory watchlist store.
func NewWatchlistStore() *WatchlistStore {
	return &WatchlistStore{
		data: make(map[string]string),
	}
}

// Put adds or updates a watchlist address with its free-text tag.
func (s *WatchlistStore) Put(_ context.Context, address, tag string) error {
	if address == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[address] = tag
	return nil
}

// Delete removes an address. Returns ErrNotFound if absent.
func (s *WatchlistStore) Delete(_ context.Context, address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[address]; !exists {
		return storage.ErrNotFound
	}
	delete(s.data, address)
	return nil
}

// GetAll returns the full watchlist as address -> tag.
func (s *WatchlistStore) GetAll(_ context.Context) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]string, len(s.data))
	for a, tag := range s.data {
		out[a] = tag
	}
	return out, nil
}

// Verify interface compliance at compile time.
var _ storage.WatchlistStore = (*WatchlistStore)(nil)
