package solana

import (
	"context"
	"errors"
	"log"
	"time"

	"mint-radar/internal/cluster"
	"mint-radar/internal/domain"
	"mint-radar/internal/idhash"
	"mint-radar/internal/observability"
	"mint-radar/internal/refdata"
	"mint-radar/internal/storage"
)

// Feed turns logsSubscribe notifications for watched addresses into cluster
// registrations. It subscribes with mentions of the whale watchlist plus the
// known AMM programs, then resolves each signature over RPC to recover the
// touched accounts and moved mints.
type Feed struct {
	ws       *WSClient
	rpc      *HTTPClient
	registry *cluster.Registry
	refs     *refdata.Registry
	seen     *idhash.SeenCache
	logger   *log.Logger
}

// NewFeed creates the feed. seen is shared with the webhook path so the same
// transaction arriving over both routes registers once.
func NewFeed(ws *WSClient, rpc *HTTPClient, registry *cluster.Registry, refs *refdata.Registry, seen *idhash.SeenCache, logger *log.Logger) *Feed {
	if seen == nil {
		seen = idhash.NewSeenCache(0)
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[feed] ", log.LstdFlags)
	}
	return &Feed{ws: ws, rpc: rpc, registry: registry, refs: refs, seen: seen, logger: logger}
}

// FeedMentions builds the mentions filter for a reference snapshot.
func FeedMentions(refs *refdata.Snapshot) []string {
	var mentions []string
	for addr := range refs.Whales() {
		mentions = append(mentions, addr)
	}
	mentions = append(mentions, refdata.DefaultAMMPrograms()...)
	return mentions
}

// Run consumes notifications until the context is cancelled or the
// notification channel closes.
func (f *Feed) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case n, ok := <-f.ws.Notifications():
			if !ok {
				return nil
			}
			if n.Err != nil {
				// Failed transactions carry no touch signal.
				continue
			}
			f.handle(ctx, n)
		}
	}
}

func (f *Feed) handle(ctx context.Context, n LogNotification) {
	rctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	touch, err := f.rpc.GetTxTouch(rctx, n.Signature)
	if err != nil {
		f.logger.Printf("Resolve %s: %v", n.Signature, err)
		observability.RecordEventRejected("rpc")
		return
	}
	if touch == nil || touch.Failed || len(touch.AccountKeys) == 0 {
		return
	}

	observedAt := time.Now().UnixMilli()
	if touch.BlockTime > 0 {
		observedAt = touch.BlockTime * 1000
	}

	refs := f.refs.Snapshot()
	for _, mint := range touch.Mints {
		if refs.IsNoiseMint(mint) {
			continue
		}
		ev := &domain.TouchEvent{
			MintID:           mint,
			TouchedAddresses: touch.AccountKeys,
			Signature:        touch.Signature,
			Kind:             "LOGS_FEED",
			ObservedAt:       observedAt,
		}
		id := idhash.ComputeEventID(ev.Signature, ev.MintID, ev.ObservedAt)
		if f.seen.Contains(id) {
			observability.RecordEventDeduped()
			continue
		}

		res, err := f.registry.Register(ctx, ev)
		switch {
		case err == nil:
		case errors.Is(err, cluster.ErrNoiseMint):
			continue
		case errors.Is(err, storage.ErrUnavailable):
			// Persistence is degraded, in-memory accumulation continued.
		default:
			// Not marked seen, so the same signature can register later.
			f.logger.Printf("Register %s: %v", mint, err)
			continue
		}
		f.seen.Add(id)
		observability.RecordEventProcessed()
		if res != nil {
			observability.RecordRegistration(res.WhaleHit)
		}
	}
}
