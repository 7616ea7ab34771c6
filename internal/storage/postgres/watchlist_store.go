package postgres

import (
	"context"
	"fmt"

	"mint-radar/internal/storage"
)

// WatchlistStore implements storage.WatchlistStore using PostgreSQL.
type WatchlistStore struct {
	pool *Pool
}

// NewWatchlistStore creates a new WatchlistStore.
func NewWatchlistStore(pool *Pool) *WatchlistStore {
	return &WatchlistStore{pool: pool}
}

// Compile-time interface check.
var _ storage.WatchlistStore = (*WatchlistStore)(nil)

// Put adds or retags a watched address.
func (s *WatchlistStore) Put(ctx context.Context, address, tag string) error {
	if address == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO whale_watchlist (address, tag)
		VALUES ($1, $2)
		ON CONFLICT (address) DO UPDATE SET tag = EXCLUDED.tag
	`
	if _, err := s.pool.Exec(ctx, query, address, tag); err != nil {
		return fmt.Errorf("put watchlist entry: %w", err)
	}
	return nil
}

// Delete removes a watched address. Returns ErrNotFound if absent.
func (s *WatchlistStore) Delete(ctx context.Context, address string) error {
	if address == "" {
		return storage.ErrInvalidInput
	}

	tag, err := s.pool.Exec(ctx, `DELETE FROM whale_watchlist WHERE address = $1`, address)
	if err != nil {
		return fmt.Errorf("delete watchlist entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// GetAll retrieves the full watchlist as address -> tag.
func (s *WatchlistStore) GetAll(ctx context.Context) (map[string]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT address, tag FROM whale_watchlist`)
	if err != nil {
		return nil, fmt.Errorf("get watchlist: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var address, tag string
		if err := rows.Scan(&address, &tag); err != nil {
			return nil, fmt.Errorf("scan watchlist row: %w", err)
		}
		out[address] = tag
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate watchlist rows: %w", err)
	}
	return out, nil
}
