package refdata

import (
	"context"
	"errors"
	"testing"

	"mint-radar/internal/domain"
	"mint-radar/internal/storage/memory"
)

func testSnapshot() *Snapshot {
	return NewSnapshot(
		map[string]string{"WhaleAddr1": "fund wallet"},
		map[string]Label{
			"CexAddr1":    {Text: "Binance CEX Hot Wallet"},
			"BridgeAddr1": {Text: "Wormhole Bridge"},
			"BothAddr1":   {Text: "CEX Bridge Gateway"},
			"TaggedAddr1": {Text: "OKX", Roles: []domain.Role{domain.RoleExchange}},
		},
		DefaultAMMPrograms(),
		DefaultNoiseMints(),
	)
}

func TestClassify_Roles(t *testing.T) {
	s := testSnapshot()

	tests := []struct {
		addr  string
		roles []domain.Role
	}{
		{"WhaleAddr1", []domain.Role{domain.RoleWhale}},
		{"CexAddr1", []domain.Role{domain.RoleExchange}},
		{"BridgeAddr1", []domain.Role{domain.RoleBridge}},
		// Legacy substring inference: both substrings, both roles.
		{"BothAddr1", []domain.Role{domain.RoleExchange, domain.RoleBridge}},
		// Explicit roles win over substring inference.
		{"TaggedAddr1", []domain.Role{domain.RoleExchange}},
		{RaydiumAMMV4, []domain.Role{domain.RoleAMMProgram}},
		{"SomebodyElse", nil},
	}

	for _, tt := range tests {
		got := s.Classify(tt.addr)
		if len(got.Roles) != len(tt.roles) {
			t.Errorf("Classify(%s): roles %v, want %v", tt.addr, got.Roles, tt.roles)
			continue
		}
		for _, want := range tt.roles {
			if !got.Has(want) {
				t.Errorf("Classify(%s): missing role %s", tt.addr, want)
			}
		}
	}
}

func TestClassify_Deterministic(t *testing.T) {
	s := testSnapshot()
	first := s.Classify("BothAddr1")
	for i := 0; i < 10; i++ {
		again := s.Classify("BothAddr1")
		if len(again.Roles) != len(first.Roles) || again.Tag != first.Tag {
			t.Fatal("classification is not stable for a fixed snapshot")
		}
	}
}

func TestNoiseMints(t *testing.T) {
	s := testSnapshot()
	if !s.IsNoiseMint(USDC) {
		t.Error("USDC should be blocklisted")
	}
	if s.IsNoiseMint("SomeFreshMint") {
		t.Error("unknown mint blocklisted")
	}
}

func TestPlausibleAddress(t *testing.T) {
	if !PlausibleAddress(RaydiumAMMV4) {
		t.Error("known program id rejected")
	}
	if PlausibleAddress("not-base58!!") {
		t.Error("invalid base58 accepted")
	}
	if PlausibleAddress("abc") {
		t.Error("short key accepted")
	}
}

func TestRegistry_AddRemoveWhale(t *testing.T) {
	ctx := context.Background()
	store := memory.NewWatchlistStore()
	reg := NewRegistry(testSnapshot(), store)

	// Mint authorities and program ids are keypair-derived, hence on-curve.
	addr := USDC

	added, err := reg.AddWhale(ctx, addr, "test tag")
	if err != nil {
		t.Fatalf("AddWhale failed: %v", err)
	}
	if !added {
		t.Fatal("expected new whale to be added")
	}

	// Classification picks up the new whale without an explicit reload.
	if !reg.Snapshot().Classify(addr).Has(domain.RoleWhale) {
		t.Error("added whale not classified as whale")
	}

	// Persisted.
	persisted, err := store.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if persisted[addr] != "test tag" {
		t.Errorf("watchlist not persisted: %v", persisted)
	}

	// Second add is a no-op.
	added, err = reg.AddWhale(ctx, addr, "other")
	if err != nil || added {
		t.Errorf("duplicate add: added=%v err=%v", added, err)
	}

	removed, err := reg.RemoveWhale(ctx, addr)
	if err != nil || !removed {
		t.Fatalf("RemoveWhale: removed=%v err=%v", removed, err)
	}
	if reg.Snapshot().Classify(addr).Has(domain.RoleWhale) {
		t.Error("removed whale still classified as whale")
	}
}

func TestRegistry_AddWhaleRejectsNonWallet(t *testing.T) {
	reg := NewRegistry(testSnapshot(), nil)

	if _, err := reg.AddWhale(context.Background(), "not-base58!!", ""); !errors.Is(err, ErrNotWallet) {
		t.Errorf("expected ErrNotWallet, got %v", err)
	}
}

func TestRegistry_SnapshotImmutability(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(testSnapshot(), nil)

	before := reg.Snapshot()
	if _, err := reg.AddWhale(ctx, USDT, "t"); err != nil {
		t.Fatalf("AddWhale failed: %v", err)
	}

	// The snapshot taken before the mutation must be unaffected.
	if before.Classify(USDT).Has(domain.RoleWhale) {
		t.Error("old snapshot saw the mutation")
	}
}
