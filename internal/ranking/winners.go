// Package ranking implements the winners query: filter live clusters by
// recency and score threshold, rank, truncate. The query is read-only and
// idempotent; scores are computed at call time because decay is a function
// of wall-clock age.
package ranking

import (
	"sort"

	"mint-radar/internal/cluster"
	"mint-radar/internal/domain"
	"mint-radar/internal/refdata"
	"mint-radar/internal/scoring"
)

// Winner is one ranked result.
type Winner struct {
	Score  int
	MintID string
	Entry  *domain.ClusterEntry
}

// Winners ranks a cluster snapshot at the given time. Entries outside the
// recency window, below the score threshold, or on the noise blocklist are
// dropped. Ordering is deterministic: score desc, then last-seen desc, then
// mint asc. Returns an empty slice, never an error, when nothing qualifies.
func Winners(entries []*domain.ClusterEntry, refs *refdata.Snapshot, nowMs int64, p domain.ScoringParams) []Winner {
	cutoff := nowMs - int64(p.WindowMinutes)*60_000

	winners := make([]Winner, 0, len(entries))
	for _, e := range entries {
		if e.LastSeenAt < cutoff {
			continue
		}
		if refs != nil && refs.IsNoiseMint(e.MintID) {
			continue
		}
		s := scoring.Score(e, nowMs, p)
		if s < p.MinScore {
			continue
		}
		winners = append(winners, Winner{Score: s, MintID: e.MintID, Entry: e})
	}

	sort.Slice(winners, func(i, j int) bool {
		if winners[i].Score != winners[j].Score {
			return winners[i].Score > winners[j].Score
		}
		if winners[i].Entry.LastSeenAt != winners[j].Entry.LastSeenAt {
			return winners[i].Entry.LastSeenAt > winners[j].Entry.LastSeenAt
		}
		return winners[i].MintID < winners[j].MintID
	})

	if len(winners) > p.Limit {
		winners = winners[:p.Limit]
	}
	return winners
}

// TopWinners ranks the registry's current snapshot. Callers wanting eager
// eviction run a sweep first; entries outside the window are excluded from
// the ranking either way.
func TopWinners(reg *cluster.Registry, refs *refdata.Snapshot, nowMs int64, p domain.ScoringParams) []Winner {
	return Winners(reg.Snapshot(), refs, nowMs, p)
}

// QuickLook scores a single known mint, the notifier's point-lookup case.
// Returns (0, false) when the mint is not clustered.
func QuickLook(reg *cluster.Registry, mintID string, nowMs int64, p domain.ScoringParams) (int, *domain.ClusterEntry, bool) {
	e := reg.Get(mintID)
	if e == nil {
		return 0, nil, false
	}
	return scoring.Score(e, nowMs, p), e, true
}
