// Package cluster maintains the keyed map from mint to accumulating cluster
// entry. The registry is the only shared mutable state in the process:
// registration is serialized per shard so same-mint updates keep the
// monotonic-counter invariant, while unrelated mints proceed in parallel.
package cluster

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"

	"mint-radar/internal/domain"
	"mint-radar/internal/refdata"
	"mint-radar/internal/storage"
)

// shardCount is a power of two so the hash can be masked.
const shardCount = 32

// ErrNoiseMint marks a registration dropped because the mint is blocklisted
// or implausible. Not a failure: callers count it and move on.
var ErrNoiseMint = errors.New("noise mint")

// RegisterResult reports what a registration did, for notifier callbacks.
type RegisterResult struct {
	Entry     *domain.ClusterEntry // post-registration snapshot
	Created   bool                 // first touch for this mint
	WhaleHit  bool                 // at least one whale-classified toucher
	WhaleTags []string             // tags of the whales that touched
}

// Registry is the sharded in-memory cluster store fronting durable storage.
type Registry struct {
	shards [shardCount]shard
	refs   *refdata.Registry
	store  storage.ClusterStore // nil disables persistence
}

type shard struct {
	mu      sync.Mutex
	entries map[string]*domain.ClusterEntry
}

// NewRegistry creates a registry. store may be nil (memory-only mode).
func NewRegistry(refs *refdata.Registry, store storage.ClusterStore) *Registry {
	r := &Registry{refs: refs, store: store}
	for i := range r.shards {
		r.shards[i].entries = make(map[string]*domain.ClusterEntry)
	}
	return r
}

// WarmUp loads all persisted entries so restart resumes with full history.
func (r *Registry) WarmUp(ctx context.Context) (int, error) {
	if r.store == nil {
		return 0, nil
	}

	entries, err := r.store.GetAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("warm up cluster registry: %w", err)
	}

	for _, e := range entries {
		sh := r.shardFor(e.MintID)
		sh.mu.Lock()
		sh.entries[e.MintID] = e.Clone()
		sh.mu.Unlock()
	}
	return len(entries), nil
}

// Register folds one touch event into the cluster for its mint and flushes
// the updated entry to durable storage. Blocklisted and implausible mints
// never create entries (ErrNoiseMint). A storage flush failure is returned
// wrapped around storage.ErrUnavailable, but the in-memory state is already
// updated: accumulation degrades to best-effort rather than stopping.
func (r *Registry) Register(ctx context.Context, ev *domain.TouchEvent) (*RegisterResult, error) {
	if ev == nil || ev.MintID == "" {
		return nil, storage.ErrInvalidInput
	}

	refs := r.refs.Snapshot()
	if refs.IsNoiseMint(ev.MintID) || !refdata.PlausibleAddress(ev.MintID) {
		return nil, ErrNoiseMint
	}

	sh := r.shardFor(ev.MintID)
	sh.mu.Lock()

	e, exists := sh.entries[ev.MintID]
	if !exists {
		e = domain.NewClusterEntry(ev.MintID, ev.ObservedAt)
		e.TouchTotal = 1
		sh.entries[ev.MintID] = e
	} else {
		e.Touch(ev.ObservedAt)
	}

	result := &RegisterResult{Created: !exists}

	for _, addr := range ev.TouchedAddresses {
		c := refs.Classify(addr)
		if c.Has(domain.RoleWhale) {
			e.Counts.Whale++
			result.WhaleHit = true
			result.WhaleTags = append(result.WhaleTags, c.Tag)
		}
		if c.Has(domain.RoleExchange) {
			e.Counts.Exchange++
		}
		if c.Has(domain.RoleBridge) {
			e.Counts.Bridge++
		}
		if c.Has(domain.RoleAMMProgram) {
			e.Counts.AMM++
		}
	}

	e.MergeTouchers(ev.TouchedAddresses)
	if ev.LiquidityInit {
		e.LiquidityInitialized = true
	}
	if result.WhaleHit && ev.SolMoved > 0 {
		e.SolInflow += ev.SolMoved
	}

	result.Entry = e.Clone()
	sh.mu.Unlock()

	// Flush outside the shard lock: persistence must never block
	// registration of unrelated mints.
	if r.store != nil {
		if err := r.store.Upsert(ctx, result.Entry); err != nil {
			return result, fmt.Errorf("%w: flush cluster %s: %w", storage.ErrUnavailable, ev.MintID, err)
		}
	}

	return result, nil
}

// Get returns a snapshot of one entry, or nil if the mint is not clustered.
func (r *Registry) Get(mintID string) *domain.ClusterEntry {
	sh := r.shardFor(mintID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	e, ok := sh.entries[mintID]
	if !ok {
		return nil
	}
	return e.Clone()
}

// Snapshot returns a copy of every live entry. Registrations landing after
// the per-shard copy are simply not reflected; the ranking reader tolerates
// a slightly stale view.
func (r *Registry) Snapshot() []*domain.ClusterEntry {
	var out []*domain.ClusterEntry
	for i := range r.shards {
		sh := &r.shards[i]
		sh.mu.Lock()
		for _, e := range sh.entries {
			out = append(out, e.Clone())
		}
		sh.mu.Unlock()
	}
	return out
}

// Len returns the number of live entries.
func (r *Registry) Len() int {
	n := 0
	for i := range r.shards {
		sh := &r.shards[i]
		sh.mu.Lock()
		n += len(sh.entries)
		sh.mu.Unlock()
	}
	return n
}

// SweepOlderThan evicts every entry whose last touch predates cutoffMs, in
// memory and in durable storage. Entries being actively touched are never
// candidates, since eviction is last-seen-based. Returns the in-memory
// eviction count; a storage error is reported after memory is swept.
func (r *Registry) SweepOlderThan(ctx context.Context, cutoffMs int64) (int, error) {
	evicted := 0
	for i := range r.shards {
		sh := &r.shards[i]
		sh.mu.Lock()
		for mint, e := range sh.entries {
			if e.LastSeenAt < cutoffMs {
				delete(sh.entries, mint)
				evicted++
			}
		}
		sh.mu.Unlock()
	}

	if r.store != nil {
		if _, err := r.store.DeleteOlderThan(ctx, cutoffMs); err != nil {
			return evicted, fmt.Errorf("%w: sweep store: %w", storage.ErrUnavailable, err)
		}
	}
	return evicted, nil
}

func (r *Registry) shardFor(mintID string) *shard {
	h := fnv.New32a()
	h.Write([]byte(mintID))
	return &r.shards[h.Sum32()&(shardCount-1)]
}
