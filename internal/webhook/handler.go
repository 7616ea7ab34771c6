// Package webhook serves the ingestion endpoint that enhanced-transaction
// providers POST batches to. Each batch is normalized, deduplicated, and
// registered; a bad item never fails the batch.
package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"mint-radar/internal/cluster"
	"mint-radar/internal/domain"
	"mint-radar/internal/idhash"
	"mint-radar/internal/normalize"
	"mint-radar/internal/observability"
	"mint-radar/internal/refdata"
	"mint-radar/internal/storage"
)

const (
	// maxBodyBytes caps webhook payloads; Helius batches top out well below this.
	maxBodyBytes = 4 << 20

	// registerConcurrency bounds parallel registrations per batch.
	registerConcurrency = 8

	// batchTimeout bounds total processing time for one batch.
	batchTimeout = 10 * time.Second
)

// SecretHeader is the shared-secret header checked on every request.
const SecretHeader = "X-Radar-Secret"

// Callbacks are invoked after successful registrations. Both are optional
// and must not block: sends happen on the request goroutine pool.
type Callbacks struct {
	// OnWhaleHit fires when a registered event was touched by a watched whale.
	OnWhaleHit func(ev *domain.TouchEvent, res *cluster.RegisterResult)
	// OnNewMint fires the first time a mint clusters.
	OnNewMint func(ev *domain.TouchEvent, res *cluster.RegisterResult)
}

// Handler is the POST /webhook endpoint.
type Handler struct {
	secret    string
	registry  *cluster.Registry
	refs      *refdata.Registry
	seen      *idhash.SeenCache
	touchLog  storage.TouchLogStore // nil disables history writes
	callbacks Callbacks
	logger    *log.Logger
}

// NewHandler creates the webhook handler. An empty secret disables auth,
// which is only acceptable behind a trusted proxy.
func NewHandler(secret string, registry *cluster.Registry, refs *refdata.Registry, seen *idhash.SeenCache, cb Callbacks, logger *log.Logger) *Handler {
	if seen == nil {
		seen = idhash.NewSeenCache(0)
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[webhook] ", log.LstdFlags)
	}
	return &Handler{
		secret:    secret,
		registry:  registry,
		refs:      refs,
		seen:      seen,
		callbacks: cb,
		logger:    logger,
	}
}

// WithTouchLog enables append-only touch history for registered events.
func (h *Handler) WithTouchLog(store storage.TouchLogStore) *Handler {
	h.touchLog = store
	return h
}

// batchResponse is the JSON body returned for every accepted batch.
type batchResponse struct {
	OK        bool `json:"ok"`
	Processed int  `json:"processed"`
	Rejected  int  `json:"rejected"`
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !h.authorized(r) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "read body", http.StatusBadRequest)
		return
	}

	start := time.Now()
	nowMs := start.UnixMilli()

	norm := normalize.New(h.refs.Snapshot())
	events, rejected := norm.ParseBatch(body, nowMs)
	for i := 0; i < rejected; i++ {
		observability.RecordEventRejected("malformed")
	}

	// IDs are marked seen only after a registration sticks; a delivery
	// that fails outright stays retryable.
	fresh := events[:0]
	ids := make([]string, 0, len(events))
	batch := make(map[string]struct{}, len(events))
	for _, ev := range events {
		id := idhash.ComputeEventID(ev.Signature, ev.MintID, ev.ObservedAt)
		if _, dup := batch[id]; dup || h.seen.Contains(id) {
			observability.RecordEventDeduped()
			continue
		}
		batch[id] = struct{}{}
		fresh = append(fresh, ev)
		ids = append(ids, id)
	}

	processed, noise := h.registerAll(r, fresh, ids)
	rejected += noise

	observability.RecordBatch(time.Since(start).Seconds(), time.Now().Unix())
	observability.UpdateClustersLive(h.registry.Len())

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(batchResponse{OK: true, Processed: processed, Rejected: rejected})
}

// registerAll fans registrations out over a bounded worker group. Returns the
// number of registered events and the number dropped as noise. ids holds the
// dedup ID of each event; accepted events are marked seen here.
func (h *Handler) registerAll(r *http.Request, events []*domain.TouchEvent, ids []string) (processed, noise int) {
	if len(events) == 0 {
		return 0, 0
	}

	ctx, cancel := context.WithTimeout(r.Context(), batchTimeout)
	defer cancel()

	var (
		g       errgroup.Group
		results = make([]registerOutcome, len(events))
	)
	g.SetLimit(registerConcurrency)

	for i, ev := range events {
		g.Go(func() error {
			res, err := h.registry.Register(ctx, ev)
			results[i] = registerOutcome{res: res, err: err}
			return nil
		})
	}
	g.Wait()

	degraded := false
	registered := make([]*domain.TouchEvent, 0, len(events))
	for i, out := range results {
		ev := events[i]
		switch {
		case out.err == nil:
			processed++
			registered = append(registered, ev)
			h.seen.Add(ids[i])
			observability.RecordEventProcessed()
			observability.RecordRegistration(out.res.WhaleHit)
			h.fireCallbacks(ev, out.res)
		case errors.Is(out.err, cluster.ErrNoiseMint):
			noise++
			observability.RecordEventRejected("noise")
		case errors.Is(out.err, storage.ErrUnavailable):
			// In-memory state is updated; count it as processed and flag
			// degraded mode once per batch.
			processed++
			registered = append(registered, ev)
			h.seen.Add(ids[i])
			observability.RecordEventProcessed()
			if out.res != nil {
				observability.RecordRegistration(out.res.WhaleHit)
				h.fireCallbacks(ev, out.res)
			}
			if !degraded {
				degraded = true
				h.logger.Printf("Store unavailable, accumulating in memory only: %v", out.err)
				observability.RecordStoreQuery("cluster", "upsert", 0, out.err)
			}
		default:
			noise++
			observability.RecordEventRejected("register")
			h.logger.Printf("Register %s failed: %v", ev.MintID, out.err)
		}
	}

	if h.touchLog != nil && len(registered) > 0 {
		start := time.Now()
		err := h.touchLog.InsertBulk(ctx, registered)
		observability.RecordStoreQuery("clickhouse", "insert_touch_log", time.Since(start).Seconds(), err)
		if err != nil {
			h.logger.Printf("Touch log insert failed for %d events: %v", len(registered), err)
		}
	}
	return processed, noise
}

type registerOutcome struct {
	res *cluster.RegisterResult
	err error
}

func (h *Handler) fireCallbacks(ev *domain.TouchEvent, res *cluster.RegisterResult) {
	if res == nil {
		return
	}
	if res.WhaleHit && h.callbacks.OnWhaleHit != nil {
		h.callbacks.OnWhaleHit(ev, res)
	}
	if res.Created && h.callbacks.OnNewMint != nil {
		h.callbacks.OnNewMint(ev, res)
	}
}

// authorized checks the shared secret, accepted as a header or a query
// parameter for providers that cannot set custom headers.
func (h *Handler) authorized(r *http.Request) bool {
	if h.secret == "" {
		return true
	}
	if r.Header.Get(SecretHeader) == h.secret {
		return true
	}
	return r.URL.Query().Get("secret") == h.secret
}
