package storage

import (
	"context"

	"mint-radar/internal/domain"
)

// ClusterStore is the durable system of record for cluster entries.
// One record per mint; every mutation is flushed through Upsert so that a
// process restart does not lose accumulated multi-day evidence.
type ClusterStore interface {
	// Upsert merges the entry snapshot forward into the stored record.
	// Same-mint flushes may arrive out of order; implementations merge
	// monotonically (max counters, set union) so a stale snapshot landing
	// last never regresses persisted history.
	Upsert(ctx context.Context, e *domain.ClusterEntry) error

	// GetByMint retrieves an entry by mint. Returns ErrNotFound if absent.
	GetByMint(ctx context.Context, mintID string) (*domain.ClusterEntry, error)

	// GetAll retrieves every stored entry (used for warm-up on restart).
	GetAll(ctx context.Context) ([]*domain.ClusterEntry, error)

	// DeleteOlderThan removes entries with last_seen_at strictly before
	// cutoffMs. Returns the number of entries removed.
	DeleteOlderThan(ctx context.Context, cutoffMs int64) (int, error)
}

// ParamsStore persists the scoring tunables.
type ParamsStore interface {
	// Load returns the stored params. Returns ErrNotFound if never saved.
	Load(ctx context.Context) (domain.ScoringParams, error)

	// Save validates and stores the params.
	Save(ctx context.Context, p domain.ScoringParams) error
}

// WatchlistStore persists the operator-curated whale watchlist so that
// administrative add/remove operations survive restarts.
type WatchlistStore interface {
	// Put adds or updates a watchlist address with its free-text tag.
	Put(ctx context.Context, address, tag string) error

	// Delete removes an address. Returns ErrNotFound if absent.
	Delete(ctx context.Context, address string) error

	// GetAll returns the full watchlist as address -> tag.
	GetAll(ctx context.Context) (map[string]string, error)
}

// TouchLogStore is an append-only history of normalized touch events, kept
// for the notifier's per-mint detail view. It is never an input to scoring.
type TouchLogStore interface {
	// InsertBulk appends a batch of events.
	InsertBulk(ctx context.Context, events []*domain.TouchEvent) error

	// GetRecentByMint returns up to limit most recent events for a mint,
	// newest first.
	GetRecentByMint(ctx context.Context, mintID string, limit int) ([]*domain.TouchEvent, error)
}
