package cluster

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"mint-radar/internal/domain"
	"mint-radar/internal/refdata"
	"mint-radar/internal/storage"
	"mint-radar/internal/storage/memory"
)

// Plausible 32-byte base58 mints for tests.
const (
	mintA = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1w"
	mintB = "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYC"
)

func testRefs() *refdata.Registry {
	snap := refdata.NewSnapshot(
		map[string]string{"Whale1": "fund", "Whale2": ""},
		map[string]refdata.Label{
			"Cex1":  {Text: "Gate CEX"},
			"Both1": {Text: "CEX Bridge Router"},
		},
		refdata.DefaultAMMPrograms(),
		refdata.DefaultNoiseMints(),
	)
	return refdata.NewRegistry(snap, nil)
}

func touch(mint string, at int64, addrs ...string) *domain.TouchEvent {
	return &domain.TouchEvent{
		MintID:           mint,
		TouchedAddresses: addrs,
		Signature:        fmt.Sprintf("sig-%d", at),
		ObservedAt:       at,
	}
}

func TestRegister_CreatesAndAccumulates(t *testing.T) {
	reg := NewRegistry(testRefs(), memory.NewClusterStore())
	ctx := context.Background()

	res, err := reg.Register(ctx, touch(mintA, 1000, "Whale1", "Rando1"))
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if !res.Created || !res.WhaleHit {
		t.Errorf("first touch: created=%v whaleHit=%v", res.Created, res.WhaleHit)
	}
	if res.Entry.Counts.Whale != 1 {
		t.Errorf("whale count = %d", res.Entry.Counts.Whale)
	}
	// Unknown addresses still land in touchers.
	if len(res.Entry.Touchers) != 2 {
		t.Errorf("touchers = %v", res.Entry.Touchers)
	}

	res, err = reg.Register(ctx, touch(mintA, 2000, "Whale2", refdata.RaydiumAMMV4))
	if err != nil {
		t.Fatalf("Register (2) failed: %v", err)
	}
	if res.Created {
		t.Error("second touch reported as created")
	}
	if res.Entry.Counts.Whale != 2 || res.Entry.Counts.AMM != 1 {
		t.Errorf("counts = %+v", res.Entry.Counts)
	}
	if res.Entry.LastSeenAt != 2000 || res.Entry.FirstSeenAt != 1000 {
		t.Errorf("timestamps: first=%d last=%d", res.Entry.FirstSeenAt, res.Entry.LastSeenAt)
	}
}

func TestRegister_CountMonotonicity(t *testing.T) {
	reg := NewRegistry(testRefs(), nil)
	ctx := context.Background()

	var prev domain.TouchCounts
	for i := 0; i < 50; i++ {
		addrs := []string{"Rando"}
		if i%3 == 0 {
			addrs = append(addrs, "Whale1")
		}
		if i%5 == 0 {
			addrs = append(addrs, "Cex1", "Both1")
		}
		res, err := reg.Register(ctx, touch(mintA, int64(1000+i), addrs...))
		if err != nil {
			t.Fatalf("Register %d failed: %v", i, err)
		}
		c := res.Entry.Counts
		if c.Whale < prev.Whale || c.Exchange < prev.Exchange || c.Bridge < prev.Bridge || c.AMM < prev.AMM {
			t.Fatalf("counts decreased at step %d: %+v -> %+v", i, prev, c)
		}
		prev = c
	}
}

func TestRegister_MultiRoleLabelCountsBoth(t *testing.T) {
	reg := NewRegistry(testRefs(), nil)

	res, err := reg.Register(context.Background(), touch(mintA, 1000, "Both1"))
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	// Legacy semantics: a label containing both "CEX" and "Bridge"
	// increments both buckets.
	if res.Entry.Counts.Exchange != 1 || res.Entry.Counts.Bridge != 1 {
		t.Errorf("counts = %+v", res.Entry.Counts)
	}
}

func TestRegister_StickyLiquidityFlag(t *testing.T) {
	reg := NewRegistry(testRefs(), nil)
	ctx := context.Background()

	ev := touch(mintA, 1000, "A")
	ev.LiquidityInit = true
	if _, err := reg.Register(ctx, ev); err != nil {
		t.Fatal(err)
	}

	res, err := reg.Register(ctx, touch(mintA, 2000, "B"))
	if err != nil {
		t.Fatal(err)
	}
	if !res.Entry.LiquidityInitialized {
		t.Error("liquidity flag not sticky")
	}
}

func TestRegister_NoiseMintNeverClusters(t *testing.T) {
	store := memory.NewClusterStore()
	reg := NewRegistry(testRefs(), store)
	ctx := context.Background()

	if _, err := reg.Register(ctx, touch(refdata.USDC, 1000, "Whale1")); !errors.Is(err, ErrNoiseMint) {
		t.Fatalf("expected ErrNoiseMint, got %v", err)
	}
	if _, err := reg.Register(ctx, touch("bogus-mint", 1000, "Whale1")); !errors.Is(err, ErrNoiseMint) {
		t.Fatalf("implausible mint: expected ErrNoiseMint, got %v", err)
	}

	if reg.Len() != 0 {
		t.Error("noise mint created an entry")
	}
	if all, _ := store.GetAll(ctx); len(all) != 0 {
		t.Error("noise mint persisted")
	}
}

func TestRegister_PersistsThroughStore(t *testing.T) {
	store := memory.NewClusterStore()
	reg := NewRegistry(testRefs(), store)
	ctx := context.Background()

	if _, err := reg.Register(ctx, touch(mintA, 1000, "Whale1")); err != nil {
		t.Fatal(err)
	}

	persisted, err := store.GetByMint(ctx, mintA)
	if err != nil {
		t.Fatalf("entry not flushed: %v", err)
	}
	if persisted.Counts.Whale != 1 {
		t.Errorf("persisted counts = %+v", persisted.Counts)
	}
}

// failingStore simulates an unavailable backend.
type failingStore struct{}

func (failingStore) Upsert(context.Context, *domain.ClusterEntry) error { return errFail }
func (failingStore) GetByMint(context.Context, string) (*domain.ClusterEntry, error) {
	return nil, errFail
}
func (failingStore) GetAll(context.Context) ([]*domain.ClusterEntry, error) { return nil, errFail }
func (failingStore) DeleteOlderThan(context.Context, int64) (int, error)    { return 0, errFail }

var errFail = errors.New("backend down")

func TestRegister_DegradesWhenStoreUnavailable(t *testing.T) {
	reg := NewRegistry(testRefs(), failingStore{})
	ctx := context.Background()

	res, err := reg.Register(ctx, touch(mintA, 1000, "Whale1"))
	if !errors.Is(err, storage.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	// Accumulation continues in memory despite the flush failure.
	if res == nil || res.Entry.Counts.Whale != 1 {
		t.Fatal("in-memory accumulation lost on store failure")
	}
	if got := reg.Get(mintA); got == nil || got.Counts.Whale != 1 {
		t.Error("entry not retained in memory")
	}
}

// gatedStore parks the first flush until released, forcing same-mint
// flushes to land in the reverse of registration order.
type gatedStore struct {
	storage.ClusterStore
	once    sync.Once
	parked  chan struct{}
	release chan struct{}
}

func (s *gatedStore) Upsert(ctx context.Context, e *domain.ClusterEntry) error {
	first := false
	s.once.Do(func() { first = true })
	if first {
		close(s.parked)
		<-s.release
	}
	return s.ClusterStore.Upsert(ctx, e)
}

func TestRegister_OutOfOrderFlushNeverRegresses(t *testing.T) {
	inner := memory.NewClusterStore()
	store := &gatedStore{
		ClusterStore: inner,
		parked:       make(chan struct{}),
		release:      make(chan struct{}),
	}
	reg := NewRegistry(testRefs(), store)
	ctx := context.Background()

	// First registration's flush parks inside the store.
	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := reg.Register(ctx, touch(mintA, 1000, "Whale1")); err != nil {
			t.Errorf("Register (1) failed: %v", err)
		}
	}()
	<-store.parked

	// Second registration flushes its whale=2 snapshot while the whale=1
	// snapshot is still in flight.
	if _, err := reg.Register(ctx, touch(mintA, 2000, "Whale2")); err != nil {
		t.Fatalf("Register (2) failed: %v", err)
	}

	// Release the stale snapshot so it lands last.
	close(store.release)
	<-done

	persisted, err := inner.GetByMint(ctx, mintA)
	if err != nil {
		t.Fatalf("entry not persisted: %v", err)
	}
	if persisted.Counts.Whale != 2 {
		t.Errorf("durable store regressed: persisted whale=%d, in-memory whale=2", persisted.Counts.Whale)
	}
	if persisted.LastSeenAt != 2000 {
		t.Errorf("persisted last_seen_at = %d, want 2000", persisted.LastSeenAt)
	}
}

func TestWarmUp_RestoresPersistedEntries(t *testing.T) {
	store := memory.NewClusterStore()
	ctx := context.Background()

	first := NewRegistry(testRefs(), store)
	first.Register(ctx, touch(mintA, 1000, "Whale1"))
	first.Register(ctx, touch(mintB, 2000, "Cex1"))

	// Simulated restart: a fresh registry over the same store.
	second := NewRegistry(testRefs(), store)
	n, err := second.WarmUp(ctx)
	if err != nil {
		t.Fatalf("WarmUp failed: %v", err)
	}
	if n != 2 || second.Len() != 2 {
		t.Fatalf("warmed %d entries, registry holds %d", n, second.Len())
	}

	e := second.Get(mintA)
	if e == nil || e.Counts.Whale != 1 {
		t.Error("accumulated evidence lost across restart")
	}
}

func TestSweepOlderThan(t *testing.T) {
	store := memory.NewClusterStore()
	reg := NewRegistry(testRefs(), store)
	ctx := context.Background()

	reg.Register(ctx, touch(mintA, 1000, "A"))
	reg.Register(ctx, touch(mintB, 9000, "B"))

	evicted, err := reg.SweepOlderThan(ctx, 5000)
	if err != nil {
		t.Fatalf("SweepOlderThan failed: %v", err)
	}
	if evicted != 1 {
		t.Errorf("evicted = %d, want 1", evicted)
	}
	if reg.Get(mintA) != nil {
		t.Error("stale entry survived in memory")
	}
	if _, err := store.GetByMint(ctx, mintA); !errors.Is(err, storage.ErrNotFound) {
		t.Error("stale entry survived in store")
	}
	if reg.Get(mintB) == nil {
		t.Error("fresh entry evicted")
	}
}

func TestRegister_ConcurrentMints(t *testing.T) {
	reg := NewRegistry(testRefs(), memory.NewClusterStore())
	ctx := context.Background()

	const perMint = 50
	var wg sync.WaitGroup
	for _, mint := range []string{mintA, mintB} {
		for i := 0; i < perMint; i++ {
			wg.Add(1)
			go func(mint string, i int) {
				defer wg.Done()
				reg.Register(ctx, touch(mint, int64(1000+i), "Whale1"))
			}(mint, i)
		}
	}

	// A concurrent reader must never observe a torn entry.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			for _, e := range reg.Snapshot() {
				if e.LastSeenAt < e.FirstSeenAt {
					t.Error("torn entry observed")
					return
				}
			}
		}
	}()

	wg.Wait()
	<-done

	for _, mint := range []string{mintA, mintB} {
		e := reg.Get(mint)
		if e == nil || e.Counts.Whale != perMint {
			t.Errorf("%s whale count = %v, want %d", mint, e, perMint)
		}
	}
}
