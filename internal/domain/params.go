package domain

import (
	"errors"
	"fmt"
)

// ErrInvalidTunable is returned when a scoring parameter update fails
// validation. Invalid values are rejected, never silently clamped.
var ErrInvalidTunable = errors.New("invalid tunable")

// ScoringParams holds every operator-tunable knob of the scoring engine and
// the ranking query. Persisted as a single record so tuning survives restarts.
//
// Observed deployments vary widely on the decay horizon and accumulation
// thresholds; none of the defaults below is authoritative, they are just the
// shipped starting point.
type ScoringParams struct {
	// Linear score weights.
	WhaleWeight     int `json:"whale_weight"`
	AMMWeight       int `json:"amm_weight"`
	BridgeWeight    int `json:"bridge_weight"`
	ExchangeWeight  int `json:"exchange_weight"`
	LiquidityWeight int `json:"liquidity_weight"`

	// Time decay: linear from 1.0 down to DecayFloor over DecayHorizonMinutes.
	DecayFloor          float64 `json:"decay_floor"`
	DecayHorizonMinutes int     `json:"decay_horizon_minutes"`

	// Accumulation bonus: AccumBonus is added when the entry was touched on
	// at least AccumMinDays distinct UTC days within the last AccumWindowDays.
	AccumWindowDays int `json:"accum_window_days"`
	AccumMinDays    int `json:"accum_min_days"`
	AccumBonus      int `json:"accum_bonus"`

	// Ranking query defaults.
	WindowMinutes int `json:"window_minutes"`
	MinScore      int `json:"min_score"`
	Limit         int `json:"limit"`
}

// DefaultScoringParams returns the shipped defaults.
func DefaultScoringParams() ScoringParams {
	return ScoringParams{
		WhaleWeight:         12,
		AMMWeight:           10,
		BridgeWeight:        14,
		ExchangeWeight:      6,
		LiquidityWeight:     8,
		DecayFloor:          0.6,
		DecayHorizonMinutes: 240,
		AccumWindowDays:     14,
		AccumMinDays:        5,
		AccumBonus:          10,
		WindowMinutes:       3 * 24 * 60,
		MinScore:            20,
		Limit:               10,
	}
}

// Validate checks every tunable and reports the first violation.
func (p ScoringParams) Validate() error {
	check := func(name string, v int) error {
		if v <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %d", ErrInvalidTunable, name, v)
		}
		return nil
	}
	for _, c := range []struct {
		name string
		v    int
	}{
		{"whale_weight", p.WhaleWeight},
		{"amm_weight", p.AMMWeight},
		{"bridge_weight", p.BridgeWeight},
		{"exchange_weight", p.ExchangeWeight},
		{"liquidity_weight", p.LiquidityWeight},
		{"decay_horizon_minutes", p.DecayHorizonMinutes},
		{"accum_window_days", p.AccumWindowDays},
		{"accum_min_days", p.AccumMinDays},
		{"accum_bonus", p.AccumBonus},
		{"window_minutes", p.WindowMinutes},
		{"limit", p.Limit},
	} {
		if err := check(c.name, c.v); err != nil {
			return err
		}
	}
	if p.DecayFloor <= 0 || p.DecayFloor > 1 {
		return fmt.Errorf("%w: decay_floor must be in (0, 1], got %g", ErrInvalidTunable, p.DecayFloor)
	}
	if p.MinScore < 0 || p.MinScore > 100 {
		return fmt.Errorf("%w: min_score must be in [0, 100], got %d", ErrInvalidTunable, p.MinScore)
	}
	return nil
}
