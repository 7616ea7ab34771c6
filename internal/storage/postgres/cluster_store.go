package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"mint-radar/internal/domain"
	"mint-radar/internal/storage"
)

// ClusterStore implements storage.ClusterStore using PostgreSQL.
type ClusterStore struct {
	pool *Pool
}

// NewClusterStore creates a new ClusterStore.
func NewClusterStore(pool *Pool) *ClusterStore {
	return &ClusterStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ClusterStore = (*ClusterStore)(nil)

// Upsert merges the entry snapshot forward into the stored row. Same-mint
// flushes are not serialized by the registry, so the merge must be monotonic:
// GREATEST on counters and cumulative values, set union on the arrays. A
// stale snapshot landing last then changes nothing instead of regressing the
// persisted history.
func (s *ClusterStore) Upsert(ctx context.Context, e *domain.ClusterEntry) error {
	if e == nil || e.MintID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO token_clusters (
			mint, first_seen_at, last_seen_at,
			whale_touches, exchange_touches, amm_touches, bridge_touches,
			liquidity_initialized, touchers, active_days, sol_inflow, touch_total, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (mint) DO UPDATE SET
			first_seen_at = LEAST(token_clusters.first_seen_at, EXCLUDED.first_seen_at),
			last_seen_at = GREATEST(token_clusters.last_seen_at, EXCLUDED.last_seen_at),
			whale_touches = GREATEST(token_clusters.whale_touches, EXCLUDED.whale_touches),
			exchange_touches = GREATEST(token_clusters.exchange_touches, EXCLUDED.exchange_touches),
			amm_touches = GREATEST(token_clusters.amm_touches, EXCLUDED.amm_touches),
			bridge_touches = GREATEST(token_clusters.bridge_touches, EXCLUDED.bridge_touches),
			liquidity_initialized = token_clusters.liquidity_initialized OR EXCLUDED.liquidity_initialized,
			touchers = ARRAY(SELECT DISTINCT t FROM unnest(token_clusters.touchers || EXCLUDED.touchers) AS t),
			active_days = ARRAY(SELECT DISTINCT d FROM unnest(token_clusters.active_days || EXCLUDED.active_days) AS d),
			sol_inflow = GREATEST(token_clusters.sol_inflow, EXCLUDED.sol_inflow),
			touch_total = GREATEST(token_clusters.touch_total, EXCLUDED.touch_total),
			updated_at = GREATEST(token_clusters.updated_at, EXCLUDED.updated_at)
	`

	_, err := s.pool.Exec(ctx, query,
		e.MintID,
		e.FirstSeenAt,
		e.LastSeenAt,
		e.Counts.Whale,
		e.Counts.Exchange,
		e.Counts.AMM,
		e.Counts.Bridge,
		e.LiquidityInitialized,
		e.Touchers,
		e.ActiveDays,
		e.SolInflow,
		e.TouchTotal,
		time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("upsert cluster: %w", err)
	}
	return nil
}

// GetByMint retrieves one entry. Returns ErrNotFound if the mint is unknown.
func (s *ClusterStore) GetByMint(ctx context.Context, mintID string) (*domain.ClusterEntry, error) {
	if mintID == "" {
		return nil, storage.ErrInvalidInput
	}

	query := clusterSelect + ` WHERE mint = $1`

	row := s.pool.QueryRow(ctx, query, mintID)
	e, err := scanCluster(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get cluster by mint: %w", err)
	}
	return e, nil
}

// GetAll retrieves every persisted entry, for registry warm-up.
func (s *ClusterStore) GetAll(ctx context.Context) ([]*domain.ClusterEntry, error) {
	query := clusterSelect + ` ORDER BY last_seen_at DESC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all clusters: %w", err)
	}
	defer rows.Close()

	return scanClusters(rows)
}

// DeleteOlderThan removes entries whose last touch is strictly before cutoffMs.
func (s *ClusterStore) DeleteOlderThan(ctx context.Context, cutoffMs int64) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM token_clusters WHERE last_seen_at < $1`, cutoffMs)
	if err != nil {
		return 0, fmt.Errorf("delete stale clusters: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

const clusterSelect = `
	SELECT mint, first_seen_at, last_seen_at,
		whale_touches, exchange_touches, amm_touches, bridge_touches,
		liquidity_initialized, touchers, active_days, sol_inflow, touch_total, updated_at
	FROM token_clusters
`

// scanCluster scans a single row into a ClusterEntry.
func scanCluster(row pgx.Row) (*domain.ClusterEntry, error) {
	var e domain.ClusterEntry
	err := row.Scan(
		&e.MintID,
		&e.FirstSeenAt,
		&e.LastSeenAt,
		&e.Counts.Whale,
		&e.Counts.Exchange,
		&e.Counts.AMM,
		&e.Counts.Bridge,
		&e.LiquidityInitialized,
		&e.Touchers,
		&e.ActiveDays,
		&e.SolInflow,
		&e.TouchTotal,
		&e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// scanClusters scans multiple rows.
func scanClusters(rows pgx.Rows) ([]*domain.ClusterEntry, error) {
	var entries []*domain.ClusterEntry
	for rows.Next() {
		e, err := scanCluster(rows)
		if err != nil {
			return nil, fmt.Errorf("scan cluster row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cluster rows: %w", err)
	}
	return entries, nil
}
