package domain

import (
	"math"
	"sort"
	"time"
)

// DayFormat is the calendar-date layout used for ActiveDays (UTC).
const DayFormat = "2006-01-02"

// ClusterEntry is the aggregate root: one per distinct mint, accumulating
// touch evidence across the retention window. Corresponds to the
// token_clusters table in PostgreSQL.
//
// Touchers and ActiveDays are sets in memory; they are persisted as ordered
// arrays for JSON/SQL friendliness, and the order carries no meaning.
type ClusterEntry struct {
	MintID               string      // identity key, immutable
	FirstSeenAt          int64       // ms, set once on creation
	LastSeenAt           int64       // ms, bumped on every touch; >= FirstSeenAt
	Counts               TouchCounts // cumulative per-role touch counts
	LiquidityInitialized bool        // sticky: once true, stays true
	Touchers             []string    // distinct addresses ever seen touching this mint
	ActiveDays           []string    // distinct UTC dates with at least one touch
	SolInflow            float64     // cumulative SOL moved through whale-touched events
	TouchTotal           int         // total touch events folded in
	UpdatedAt            int64       // ms, last persistence write
}

// NewClusterEntry creates an entry for its first touch at the given time.
func NewClusterEntry(mintID string, nowMs int64) *ClusterEntry {
	return &ClusterEntry{
		MintID:      mintID,
		FirstSeenAt: nowMs,
		LastSeenAt:  nowMs,
		ActiveDays:  []string{DayUTC(nowMs)},
	}
}

// DayUTC converts a millisecond timestamp to its UTC calendar date string.
func DayUTC(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(DayFormat)
}

// Touch folds a new observation time into the entry: bumps LastSeenAt
// (monotonic) and records the UTC day.
func (e *ClusterEntry) Touch(nowMs int64) {
	if nowMs > e.LastSeenAt {
		e.LastSeenAt = nowMs
	}
	e.AddActiveDay(DayUTC(nowMs))
	e.TouchTotal++
}

// AddActiveDay adds a calendar date to the active-day set if absent.
func (e *ClusterEntry) AddActiveDay(day string) {
	for _, d := range e.ActiveDays {
		if d == day {
			return
		}
	}
	e.ActiveDays = append(e.ActiveDays, day)
}

// MergeTouchers adds every address not already in the toucher set.
func (e *ClusterEntry) MergeTouchers(addrs []string) {
	if len(addrs) == 0 {
		return
	}
	seen := make(map[string]struct{}, len(e.Touchers))
	for _, t := range e.Touchers {
		seen[t] = struct{}{}
	}
	for _, a := range addrs {
		if _, ok := seen[a]; ok {
			continue
		}
		seen[a] = struct{}{}
		e.Touchers = append(e.Touchers, a)
	}
}

// ActiveDaysWithin counts distinct active days falling within the last
// windowDays days, inclusive of today (UTC), relative to nowMs.
func (e *ClusterEntry) ActiveDaysWithin(nowMs int64, windowDays int) int {
	if windowDays <= 0 {
		return 0
	}
	cutoff := time.UnixMilli(nowMs).UTC().AddDate(0, 0, -windowDays).Format(DayFormat)
	n := 0
	for _, d := range e.ActiveDays {
		if d > cutoff {
			n++
		}
	}
	return n
}

// MergeFrom folds another snapshot of the same mint into e, keeping every
// field at its furthest-forward value. Counters and cumulative floats take
// the maximum of the two sides: both are snapshots of one monotonic series,
// not independent deltas, so max recovers the newer state regardless of
// arrival order.
func (e *ClusterEntry) MergeFrom(o *ClusterEntry) {
	if o.FirstSeenAt < e.FirstSeenAt {
		e.FirstSeenAt = o.FirstSeenAt
	}
	if o.LastSeenAt > e.LastSeenAt {
		e.LastSeenAt = o.LastSeenAt
	}
	e.Counts.Whale = max(e.Counts.Whale, o.Counts.Whale)
	e.Counts.Exchange = max(e.Counts.Exchange, o.Counts.Exchange)
	e.Counts.AMM = max(e.Counts.AMM, o.Counts.AMM)
	e.Counts.Bridge = max(e.Counts.Bridge, o.Counts.Bridge)
	e.LiquidityInitialized = e.LiquidityInitialized || o.LiquidityInitialized
	e.MergeTouchers(o.Touchers)
	for _, d := range o.ActiveDays {
		e.AddActiveDay(d)
	}
	e.SolInflow = math.Max(e.SolInflow, o.SolInflow)
	e.TouchTotal = max(e.TouchTotal, o.TouchTotal)
	e.UpdatedAt = max(e.UpdatedAt, o.UpdatedAt)
}

// Clone returns a deep copy, safe to hand out across goroutines.
func (e *ClusterEntry) Clone() *ClusterEntry {
	cp := *e
	cp.Touchers = append([]string(nil), e.Touchers...)
	cp.ActiveDays = append([]string(nil), e.ActiveDays...)
	return &cp
}

// Normalize sorts the set-typed fields. Persisted order carries no meaning;
// sorting keeps round-trips deterministic for comparison in tests.
func (e *ClusterEntry) Normalize() {
	sort.Strings(e.Touchers)
	sort.Strings(e.ActiveDays)
}
