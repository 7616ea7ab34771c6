package clickhouse

import (
	"context"
	"fmt"

	"mint-radar/internal/domain"
	"mint-radar/internal/storage"
)

// TouchLogStore implements storage.TouchLogStore using ClickHouse. The log
// is append-only; MergeTree handles the write volume and TTL handles decay,
// so the store never deletes explicitly.
type TouchLogStore struct {
	conn *Conn
}

// NewTouchLogStore creates a new TouchLogStore.
func NewTouchLogStore(conn *Conn) *TouchLogStore {
	return &TouchLogStore{conn: conn}
}

// Compile-time interface check.
var _ storage.TouchLogStore = (*TouchLogStore)(nil)

// InsertBulk appends a batch of touch events.
func (s *TouchLogStore) InsertBulk(ctx context.Context, events []*domain.TouchEvent) error {
	if len(events) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO touch_log (
			mint, signature, program_id, kind, touched, liquidity_init, sol_moved, observed_at
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, ev := range events {
		err = batch.Append(
			ev.MintID,
			ev.Signature,
			ev.ProgramID,
			ev.Kind,
			ev.TouchedAddresses,
			ev.LiquidityInit,
			ev.SolMoved,
			uint64(ev.ObservedAt),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetRecentByMint returns up to limit most recent events for a mint, newest
// first.
func (s *TouchLogStore) GetRecentByMint(ctx context.Context, mintID string, limit int) ([]*domain.TouchEvent, error) {
	if mintID == "" {
		return nil, storage.ErrInvalidInput
	}
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT mint, signature, program_id, kind, touched, liquidity_init, sol_moved, observed_at
		FROM touch_log
		WHERE mint = ?
		ORDER BY observed_at DESC
		LIMIT ?
	`

	rows, err := s.conn.Query(ctx, query, mintID, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent touches: %w", err)
	}
	defer rows.Close()

	var events []*domain.TouchEvent
	for rows.Next() {
		var (
			ev         domain.TouchEvent
			observedAt uint64
		)
		err := rows.Scan(
			&ev.MintID,
			&ev.Signature,
			&ev.ProgramID,
			&ev.Kind,
			&ev.TouchedAddresses,
			&ev.LiquidityInit,
			&ev.SolMoved,
			&observedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan touch row: %w", err)
		}
		ev.ObservedAt = int64(observedAt)
		events = append(events, &ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate touch rows: %w", err)
	}
	return events, nil
}
