package ranking

import (
	"context"
	"log"
	"time"

	"mint-radar/internal/cluster"
	"mint-radar/internal/observability"
)

// Sweeper periodically evicts clusters whose most recent touch predates the
// retention window. Safe to run concurrently with registrations: eviction is
// last-seen-based, so actively touched entries are never candidates.
type Sweeper struct {
	registry      *cluster.Registry
	windowMinutes func() int // current retention window, read per sweep
	interval      time.Duration
	logger        *log.Logger
}

// NewSweeper creates a sweeper. windowMinutes is read on every pass so that
// tunable updates take effect without restarting the loop.
func NewSweeper(reg *cluster.Registry, windowMinutes func() int, interval time.Duration, logger *log.Logger) *Sweeper {
	if logger == nil {
		logger = log.Default()
	}
	return &Sweeper{
		registry:      reg,
		windowMinutes: windowMinutes,
		interval:      interval,
		logger:        logger,
	}
}

// Sweep runs one eviction pass at the given time.
func (s *Sweeper) Sweep(ctx context.Context, nowMs int64) (int, error) {
	cutoff := nowMs - int64(s.windowMinutes())*60_000
	evicted, err := s.registry.SweepOlderThan(ctx, cutoff)
	if evicted > 0 {
		observability.RecordEvictions(evicted)
	}
	return evicted, err
}

// Run sweeps on the configured interval until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			evicted, err := s.Sweep(ctx, time.Now().UnixMilli())
			if err != nil {
				s.logger.Printf("Sweep error: %v", err)
				continue
			}
			if evicted > 0 {
				s.logger.Printf("Swept %d stale clusters", evicted)
			}
		}
	}
}
