package memory

import (
	"context"
	"sync"

	"mint-radar/internal/domain"
	"mint-radar/internal/storage"
)

// defaultTouchLogCap bounds per-mint history kept in memory.
const defaultTouchLogCap = 100

// TouchLogStore is an in-memory implementation of storage.TouchLogStore.
// It keeps the most recent events per mint, oldest dropped first.
type TouchLogStore struct {
	mu   sync.RWMutex
	data map[string][]*domain.TouchEvent // mint_id -> events, oldest first
	cap  int
}

// NewTouchLogStore creates a new in-memory touch log store.
func NewTouchLogStore() *TouchLogStore {
	return &TouchLogStore{
		data: make(map[string][]*domain.TouchEvent),
		cap:  defaultTouchLogCap,
	}
}

// InsertBulk appends a batch of events.
func (s *TouchLogStore) InsertBulk(_ context.Context, events []*domain.TouchEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range events {
		if e == nil || e.MintID == "" {
			return storage.ErrInvalidInput
		}
		cp := *e
		cp.TouchedAddresses = append([]string(nil), e.TouchedAddresses...)
		log := append(s.data[e.MintID], &cp)
		if len(log) > s.cap {
			log = log[len(log)-s.cap:]
		}
		s.data[e.MintID] = log
	}
	return nil
}

// GetRecentByMint returns up to limit most recent events, newest first.
func (s *TouchLogStore) GetRecentByMint(_ context.Context, mintID string, limit int) ([]*domain.TouchEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	log := s.data[mintID]
	if limit <= 0 || limit > len(log) {
		limit = len(log)
	}

	result := make([]*domain.TouchEvent, 0, limit)
	for i := len(log) - 1; i >= len(log)-limit; i-- {
		cp := *log[i]
		cp.TouchedAddresses = append([]string(nil), log[i].TouchedAddresses...)
		result = append(result, &cp)
	}
	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.TouchLogStore = (*TouchLogStore)(nil)
