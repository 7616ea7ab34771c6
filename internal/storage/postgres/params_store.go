package postgres

import (
	"context"
	"fmt"
	"time"

	"mint-radar/internal/domain"
	"mint-radar/internal/storage"
)

// ParamsStore implements storage.ParamsStore using PostgreSQL. The tunables
// live in a single JSONB row so an operator edit is one UPDATE.
type ParamsStore struct {
	pool *Pool
}

// NewParamsStore creates a new ParamsStore.
func NewParamsStore(pool *Pool) *ParamsStore {
	return &ParamsStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ParamsStore = (*ParamsStore)(nil)

// Load retrieves the persisted tunables. Returns ErrNotFound before the
// first Save, which callers treat as "use defaults".
func (s *ParamsStore) Load(ctx context.Context) (domain.ScoringParams, error) {
	var p domain.ScoringParams

	row := s.pool.QueryRow(ctx, `SELECT params FROM scoring_params WHERE id = 1`)
	if err := row.Scan(&p); err != nil {
		if isNotFoundError(err) {
			return p, storage.ErrNotFound
		}
		return p, fmt.Errorf("load scoring params: %w", err)
	}

	if err := p.Validate(); err != nil {
		return p, fmt.Errorf("persisted params invalid: %w", err)
	}
	return p, nil
}

// Save validates and persists the tunables.
func (s *ParamsStore) Save(ctx context.Context, p domain.ScoringParams) error {
	if err := p.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO scoring_params (id, params, updated_at)
		VALUES (1, $1, $2)
		ON CONFLICT (id) DO UPDATE SET
			params = EXCLUDED.params,
			updated_at = EXCLUDED.updated_at
	`
	if _, err := s.pool.Exec(ctx, query, p, time.Now().UnixMilli()); err != nil {
		return fmt.Errorf("save scoring params: %w", err)
	}
	return nil
}
