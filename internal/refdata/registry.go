package refdata

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"mint-radar/internal/storage"
)

// ErrNotWallet is returned when an administrative whale add targets an
// address that cannot be a wallet (bad base58 or off-curve, i.e. a PDA).
var ErrNotWallet = errors.New("address is not a wallet")

// Registry owns the current reference snapshot and the administrative
// watchlist operations. The snapshot is replaced atomically; readers grab it
// once per batch and classify lock-free.
type Registry struct {
	mu        sync.RWMutex
	snapshot  *Snapshot
	watchlist storage.WatchlistStore // nil disables persistence
}

// NewRegistry creates a registry around an initial snapshot.
// watchlist may be nil for tests or memory-only mode.
func NewRegistry(snapshot *Snapshot, watchlist storage.WatchlistStore) *Registry {
	if snapshot == nil {
		snapshot = NewSnapshot(nil, nil, DefaultAMMPrograms(), DefaultNoiseMints())
	}
	return &Registry{snapshot: snapshot, watchlist: watchlist}
}

// Snapshot returns the current immutable snapshot.
func (r *Registry) Snapshot() *Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshot
}

// Reload replaces the snapshot wholesale (hot reload of reference data).
func (r *Registry) Reload(s *Snapshot) {
	if s == nil {
		return
	}
	r.mu.Lock()
	r.snapshot = s
	r.mu.Unlock()
}

// AddWhale adds an address to the watchlist and persists it.
// Returns true if the address was newly added.
func (r *Registry) AddWhale(ctx context.Context, address, tag string) (bool, error) {
	if !PlausibleAddress(address) || !IsOnCurve(address) {
		return false, fmt.Errorf("%w: %s", ErrNotWallet, address)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.snapshot.whales[address]; exists {
		return false, nil
	}

	if r.watchlist != nil {
		if err := r.watchlist.Put(ctx, address, tag); err != nil {
			return false, fmt.Errorf("persist whale %s: %w", address, err)
		}
	}

	r.snapshot = r.snapshot.withWhale(address, tag)
	return true, nil
}

// RemoveWhale removes an address from the watchlist and persists the removal.
// Returns true if the address was present.
func (r *Registry) RemoveWhale(ctx context.Context, address string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.snapshot.whales[address]; !exists {
		return false, nil
	}

	if r.watchlist != nil {
		if err := r.watchlist.Delete(ctx, address); err != nil && !errors.Is(err, storage.ErrNotFound) {
			return false, fmt.Errorf("unpersist whale %s: %w", address, err)
		}
	}

	r.snapshot = r.snapshot.withoutWhale(address)
	return true, nil
}

// withWhale returns a copy of the snapshot with one extra whale.
// Copy-on-write keeps handed-out snapshots immutable.
func (s *Snapshot) withWhale(address, tag string) *Snapshot {
	cp := s.copy()
	cp.whales[address] = tag
	return cp
}

// withoutWhale returns a copy of the snapshot with one whale removed.
func (s *Snapshot) withoutWhale(address string) *Snapshot {
	cp := s.copy()
	delete(cp.whales, address)
	return cp
}

func (s *Snapshot) copy() *Snapshot {
	cp := &Snapshot{
		whales:      make(map[string]string, len(s.whales)),
		labels:      s.labels,
		ammPrograms: s.ammPrograms,
		noiseMints:  s.noiseMints,
	}
	for a, tag := range s.whales {
		cp.whales[a] = tag
	}
	return cp
}
