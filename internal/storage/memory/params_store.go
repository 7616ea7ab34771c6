package memory

import (
	"context"
	"sync"

	"mint-radar/internal/domain"
	"mint-radar/internal/storage"
)

// ParamsStore is an in-memory implementation of storage.ParamsStore.
type ParamsStore struct {
	mu     sync.RWMutex
	params *domain.ScoringParams
}

// NewParamsStore creates a new in-memory params store.
func NewParamsStore() *ParamsStore {
	return &ParamsStore{}
}

// Load returns the stored params. Returns ErrNotFound if never saved.
func (s *ParamsStore) Load(_ context.Context) (domain.ScoringParams, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.params == nil {
		return domain.ScoringParams{}, storage.ErrNotFound
	}
	return *s.params, nil
}

// Save validates and stores the params.
func (s *ParamsStore) Save(_ context.Context, p domain.ScoringParams) error {
	if err := p.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.params = &p
	return nil
}

// Verify interface compliance at compile time.
var _ storage.ParamsStore = (*ParamsStore)(nil)
