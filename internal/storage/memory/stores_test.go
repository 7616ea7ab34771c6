package memory

import (
	"context"
	"errors"
	"testing"

	"mint-radar/internal/domain"
	"mint-radar/internal/storage"
)

func TestWatchlistStore_PutDeleteGetAll(t *testing.T) {
	store := NewWatchlistStore()
	ctx := context.Background()

	if err := store.Put(ctx, "Addr1", "fund"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := store.Put(ctx, "Addr2", ""); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := store.Put(ctx, "Addr1", "retagged"); err != nil {
		t.Fatalf("retag failed: %v", err)
	}

	all, err := store.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if len(all) != 2 || all["Addr1"] != "retagged" {
		t.Errorf("unexpected watchlist: %v", all)
	}

	if err := store.Delete(ctx, "Addr1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := store.Delete(ctx, "Addr1"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound on double delete, got %v", err)
	}
	if err := store.Put(ctx, "", "tag"); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for empty address, got %v", err)
	}
}

func TestParamsStore_LoadReturnsCopy(t *testing.T) {
	store := NewParamsStore()
	ctx := context.Background()

	p := domain.DefaultScoringParams()
	p.WhaleWeight = 20
	if err := store.Save(ctx, p); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// Mutating the caller's copy must not leak into the store.
	p.WhaleWeight = 99
	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got.WhaleWeight != 20 {
		t.Errorf("stored params aliased caller memory: %+v", got)
	}
}

func TestTouchLogStore_CapDropsOldest(t *testing.T) {
	store := NewTouchLogStore()
	store.cap = 3
	ctx := context.Background()

	for i := int64(0); i < 5; i++ {
		err := store.InsertBulk(ctx, []*domain.TouchEvent{
			{MintID: "M", Signature: "s", ObservedAt: 1000 + i},
		})
		if err != nil {
			t.Fatalf("InsertBulk failed: %v", err)
		}
	}

	got, err := store.GetRecentByMint(ctx, "M", 0)
	if err != nil {
		t.Fatalf("GetRecentByMint failed: %v", err)
	}
	if len(got) != 3 || got[0].ObservedAt != 1004 || got[2].ObservedAt != 1002 {
		t.Errorf("cap eviction wrong: %+v", got)
	}
}

func TestTouchLogStore_RejectsMintlessEvent(t *testing.T) {
	store := NewTouchLogStore()

	err := store.InsertBulk(context.Background(), []*domain.TouchEvent{{Signature: "s"}})
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}
