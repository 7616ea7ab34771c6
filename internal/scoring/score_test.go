package scoring

import (
	"testing"
	"time"

	"mint-radar/internal/domain"
)

func ms(t time.Time) int64 { return t.UnixMilli() }

func entryAt(t0 time.Time) *domain.ClusterEntry {
	return domain.NewClusterEntry("MintA", ms(t0))
}

func TestScore_SingleWhaleScenario(t *testing.T) {
	// Worked example: one whale touch at t0 scores 12 fresh; 300 minutes
	// later the decay floor is reached and the score is round(12*0.6) = 7.
	p := domain.DefaultScoringParams()
	t0 := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	e := entryAt(t0)
	e.Counts.Whale = 1

	if got := Score(e, ms(t0), p); got != 12 {
		t.Errorf("fresh score = %d, want 12", got)
	}
	if got := Score(e, ms(t0.Add(300*time.Minute)), p); got != 7 {
		t.Errorf("floored score = %d, want 7", got)
	}
}

func TestScore_WeightedBase(t *testing.T) {
	p := domain.DefaultScoringParams()
	t0 := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	e := entryAt(t0)
	e.Counts = domain.TouchCounts{Whale: 1, Exchange: 1, AMM: 1, Bridge: 1}
	e.LiquidityInitialized = true

	// 12 + 6 + 10 + 14 + 8 = 50, no decay, no bonus.
	if got := Score(e, ms(t0), p); got != 50 {
		t.Errorf("score = %d, want 50", got)
	}
}

func TestScore_Bounded(t *testing.T) {
	p := domain.DefaultScoringParams()
	t0 := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	e := entryAt(t0)
	e.Counts = domain.TouchCounts{Whale: 500, Exchange: 500, AMM: 500, Bridge: 500}
	e.LiquidityInitialized = true

	if got := Score(e, ms(t0), p); got != 100 {
		t.Errorf("score not clamped to 100: %d", got)
	}

	empty := entryAt(t0)
	if got := Score(empty, ms(t0.Add(48*time.Hour)), p); got < 0 || got > 100 {
		t.Errorf("score out of range: %d", got)
	}
}

func TestScore_DecayMonotonicInAge(t *testing.T) {
	p := domain.DefaultScoringParams()
	t0 := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	e := entryAt(t0)
	e.Counts.Whale = 3

	prev := Score(e, ms(t0), p)
	for _, age := range []time.Duration{30, 60, 120, 180, 240, 300, 600, 1440} {
		got := Score(e, ms(t0.Add(age*time.Minute)), p)
		if got > prev {
			t.Errorf("score increased with age %v: %d > %d", age, got, prev)
		}
		prev = got
	}

	// Within the floor the score never vanishes entirely.
	if final := Score(e, ms(t0.Add(7*24*time.Hour)), p); final == 0 {
		t.Error("decay floor should prevent the score reaching 0")
	}
}

func TestScore_AccumulationBonusThreshold(t *testing.T) {
	p := domain.DefaultScoringParams()
	now := time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC)

	below := entryAt(now)
	below.Counts.Whale = 2
	for i := 1; i < p.AccumMinDays-1; i++ {
		below.AddActiveDay(now.AddDate(0, 0, -i).Format(domain.DayFormat))
	}

	at := below.Clone()
	at.AddActiveDay(now.AddDate(0, 0, -(p.AccumMinDays - 1)).Format(domain.DayFormat))

	sBelow := Score(below, ms(now), p)
	sAt := Score(at, ms(now), p)

	if sAt-sBelow != p.AccumBonus {
		t.Errorf("bonus delta = %d, want %d (below=%d at=%d)", sAt-sBelow, p.AccumBonus, sBelow, sAt)
	}
}

func TestScore_OldActiveDaysExpireFromBonus(t *testing.T) {
	p := domain.DefaultScoringParams()
	now := time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC)

	e := entryAt(now)
	e.Counts.Whale = 2
	// Enough distinct days, but all outside the accumulation window.
	for i := 0; i < p.AccumMinDays; i++ {
		e.AddActiveDay(now.AddDate(0, 0, -(p.AccumWindowDays + 5 + i)).Format(domain.DayFormat))
	}

	withBonusDays := e.Clone()
	withBonusDays.ActiveDays = nil
	for i := 0; i < p.AccumMinDays; i++ {
		withBonusDays.AddActiveDay(now.AddDate(0, 0, -i).Format(domain.DayFormat))
	}

	if Score(e, ms(now), p) >= Score(withBonusDays, ms(now), p) {
		t.Error("stale active days should not earn the accumulation bonus")
	}
}

func TestDecay_FloorAndClockSkew(t *testing.T) {
	p := domain.DefaultScoringParams()

	if d := Decay(0, p); d != 1.0 {
		t.Errorf("zero age decay = %g", d)
	}
	if d := Decay(60, p); d != 0.75 {
		t.Errorf("decay(60) = %g, want 0.75", d)
	}
	// 1 - 120/240 = 0.5 < floor 0.6, so the floor applies.
	if d := Decay(120, p); d != p.DecayFloor {
		t.Errorf("decay(120) = %g, want floor %g", d, p.DecayFloor)
	}
	if d := Decay(100_000, p); d != p.DecayFloor {
		t.Errorf("deep staleness decay = %g, want floor", d)
	}
	// Future-dated entries decay as fresh.
	if d := Decay(-50, p); d != 1.0 {
		t.Errorf("negative age decay = %g, want 1.0", d)
	}
}
