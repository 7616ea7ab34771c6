package normalize

import (
	"testing"

	"mint-radar/internal/refdata"
)

// Any real 32-byte base58 strings work as test mints; the classifier is not
// involved at normalization time.
const (
	testMint  = refdata.USDC
	testMint2 = refdata.USDT
)

func testNormalizer() *Normalizer {
	return New(refdata.NewSnapshot(nil, nil, refdata.DefaultAMMPrograms(), refdata.DefaultNoiseMints()))
}

func TestParseBatch_BareArrayAndWrapped(t *testing.T) {
	n := testNormalizer()

	bare := []byte(`[{"signature":"s1","type":"SWAP","mint":"` + testMint + `","accountData":[{"account":"A1"}]}]`)
	events, rejected := n.ParseBatch(bare, 1000)
	if len(events) != 1 || rejected != 0 {
		t.Fatalf("bare array: events=%d rejected=%d", len(events), rejected)
	}

	wrapped := []byte(`{"transactions":[{"signature":"s1","type":"SWAP","mint":"` + testMint + `","accountData":[{"account":"A1"}]}]}`)
	events, rejected = n.ParseBatch(wrapped, 1000)
	if len(events) != 1 || rejected != 0 {
		t.Fatalf("wrapped object: events=%d rejected=%d", len(events), rejected)
	}
}

func TestParseBatch_MintPrecedence(t *testing.T) {
	n := testNormalizer()

	// Top-level mint wins over token transfers.
	raw := []byte(`[{"mint":"` + testMint + `","tokenTransfers":[{"mint":"` + testMint2 + `","fromUserAccount":"A1"}]}]`)
	events, _ := n.ParseBatch(raw, 1000)
	if len(events) != 1 || events[0].MintID != testMint {
		t.Fatalf("top-level mint not preferred: %+v", events)
	}

	// Fallback to first token transfer mint.
	raw = []byte(`[{"tokenTransfers":[{"mint":"` + testMint2 + `","fromUserAccount":"A1"}]}]`)
	events, _ = n.ParseBatch(raw, 1000)
	if len(events) != 1 || events[0].MintID != testMint2 {
		t.Fatalf("token transfer mint not used: %+v", events)
	}
}

func TestParseBatch_RejectsWithoutAborting(t *testing.T) {
	n := testNormalizer()

	// Three events; the middle one has no mint. Per spec the batch yields
	// exactly 2 processed and 1 rejected, with no error escaping.
	raw := []byte(`[
		{"signature":"s1","mint":"` + testMint + `","accountData":[{"account":"A1"}]},
		{"signature":"s2","accountData":[{"account":"A2"}]},
		{"signature":"s3","mint":"` + testMint2 + `","accountData":[{"account":"A3"}]}
	]`)

	events, rejected := n.ParseBatch(raw, 1000)
	if len(events) != 2 {
		t.Errorf("expected 2 events, got %d", len(events))
	}
	if rejected != 1 {
		t.Errorf("expected 1 rejected, got %d", rejected)
	}
}

func TestParseBatch_RejectsImplausibleMint(t *testing.T) {
	n := testNormalizer()

	raw := []byte(`[{"mint":"tooShort","accountData":[{"account":"A1"}]}]`)
	events, rejected := n.ParseBatch(raw, 1000)
	if len(events) != 0 || rejected != 1 {
		t.Errorf("implausible mint: events=%d rejected=%d", len(events), rejected)
	}
}

func TestParseBatch_RejectsNoAddresses(t *testing.T) {
	n := testNormalizer()

	raw := []byte(`[{"mint":"` + testMint + `"}]`)
	events, rejected := n.ParseBatch(raw, 1000)
	if len(events) != 0 || rejected != 1 {
		t.Errorf("no addresses: events=%d rejected=%d", len(events), rejected)
	}
}

func TestParseBatch_NotJSON(t *testing.T) {
	n := testNormalizer()

	events, rejected := n.ParseBatch([]byte("definitely not json"), 1000)
	if events != nil || rejected != 0 {
		t.Errorf("non-JSON body: events=%v rejected=%d", events, rejected)
	}
}

func TestNormalize_AddressMergeAndProgram(t *testing.T) {
	n := testNormalizer()

	raw := []byte(`[{
		"signature": "s1",
		"type": "SWAP",
		"mint": "` + testMint + `",
		"accountData": [{"account":"A1"},{"account":"A2"}],
		"instructions": [
			{"programId":"` + refdata.RaydiumAMMV4 + `","accounts":["A2","A3"],"innerInstructions":[{"programId":"Inner1"}]}
		],
		"tokenTransfers": [{"mint":"` + testMint + `","fromUserAccount":"A1","toUserAccount":"A4"}],
		"nativeTransfers": [{"fromUserAccount":"A5","toUserAccount":"A1","amount":2500000000}]
	}]`)

	events, rejected := n.ParseBatch(raw, 1000)
	if len(events) != 1 || rejected != 0 {
		t.Fatalf("events=%d rejected=%d", len(events), rejected)
	}

	ev := events[0]
	// A1, A2, Raydium, A3, Inner1, A4, A5 deduped across fields.
	if len(ev.TouchedAddresses) != 7 {
		t.Errorf("expected 7 distinct addresses, got %d: %v", len(ev.TouchedAddresses), ev.TouchedAddresses)
	}
	if ev.ProgramID != refdata.RaydiumAMMV4 {
		t.Errorf("AMM program not identified: %q", ev.ProgramID)
	}
	if ev.SolMoved != 2.5 {
		t.Errorf("sol moved: %g", ev.SolMoved)
	}
}

func TestNormalize_LiquidityInit(t *testing.T) {
	n := testNormalizer()

	raw := []byte(`[{"type":"CREATE_POOL","mint":"` + testMint + `","accountData":[{"account":"A1"}]}]`)
	events, _ := n.ParseBatch(raw, 1000)
	if len(events) != 1 || !events[0].LiquidityInit {
		t.Error("CREATE_POOL not flagged as liquidity init")
	}

	raw = []byte(`[{"type":"SWAP","mint":"` + testMint + `","accountData":[{"account":"A1"}]}]`)
	events, _ = n.ParseBatch(raw, 1000)
	if len(events) != 1 || events[0].LiquidityInit {
		t.Error("SWAP flagged as liquidity init")
	}
}

func TestNormalize_Timestamps(t *testing.T) {
	n := testNormalizer()
	nowMs := int64(1_704_067_200_000)

	// Seconds are scaled to ms.
	raw := []byte(`[{"timestamp":1704067200,"mint":"` + testMint + `","accountData":[{"account":"A1"}]}]`)
	events, _ := n.ParseBatch(raw, nowMs)
	if events[0].ObservedAt != 1_704_067_200_000 {
		t.Errorf("seconds not scaled: %d", events[0].ObservedAt)
	}

	// Missing timestamp defaults to ingestion time.
	raw = []byte(`[{"mint":"` + testMint + `","accountData":[{"account":"A1"}]}]`)
	events, _ = n.ParseBatch(raw, nowMs)
	if events[0].ObservedAt != nowMs {
		t.Errorf("default not applied: %d", events[0].ObservedAt)
	}
}
