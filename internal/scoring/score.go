// Package scoring computes the time-decayed composite score of a cluster
// entry. Score is a pure function of (entry, now, params): deterministic,
// side-effect-free, and bounded to [0, 100]. Scores are never cached because
// decay depends on wall-clock age.
package scoring

import (
	"math"

	"mint-radar/internal/domain"
)

// Score computes the composite score of an entry at the given time.
//
// base    = whale*W_whale + amm*W_amm + bridge*W_bridge + exchange*W_exchange
//           + (liquidityInitialized ? W_lp : 0)
// decayed = base * Decay(ageMinutes)
// bonus   = AccumBonus when the entry was touched on at least AccumMinDays
//           distinct UTC days within the last AccumWindowDays
// score   = round(decayed + bonus), clamped to [0, 100]
//
// The linear weighted sum keeps the score auditable and tunable; the decay
// floor avoids cliff-edge disappearance of slightly stale entries; the
// distinct-day bonus rewards sustained interest over single-day bursts.
func Score(e *domain.ClusterEntry, nowMs int64, p domain.ScoringParams) int {
	base := float64(e.Counts.Whale*p.WhaleWeight +
		e.Counts.AMM*p.AMMWeight +
		e.Counts.Bridge*p.BridgeWeight +
		e.Counts.Exchange*p.ExchangeWeight)
	if e.LiquidityInitialized {
		base += float64(p.LiquidityWeight)
	}

	ageMinutes := float64(nowMs-e.LastSeenAt) / 60_000
	decayed := base * Decay(ageMinutes, p)

	bonus := 0.0
	if e.ActiveDaysWithin(nowMs, p.AccumWindowDays) >= p.AccumMinDays {
		bonus = float64(p.AccumBonus)
	}

	score := int(math.Round(decayed + bonus))
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// Decay returns the staleness multiplier for the given age: linear from 1.0
// down to the floor over the decay horizon, clamped at the floor thereafter.
// Negative ages (clock skew, future-dated events) decay as zero age.
func Decay(ageMinutes float64, p domain.ScoringParams) float64 {
	if ageMinutes < 0 {
		ageMinutes = 0
	}
	d := 1.0 - ageMinutes/float64(p.DecayHorizonMinutes)
	if d < p.DecayFloor {
		return p.DecayFloor
	}
	return d
}
