// Package normalize converts heterogeneous webhook payloads into canonical
// touch events. Malformed items are rejected per event, never per batch.
package normalize

import (
	"strings"

	"mint-radar/internal/domain"
	"mint-radar/internal/refdata"
)

// lamportsPerSOL converts native transfer amounts.
const lamportsPerSOL = 1e9

// Transaction types that mark liquidity-pool initialization.
var liquidityInitTypes = map[string]bool{
	"CREATE_POOL":     true,
	"INITIALIZE_POOL": true,
	"ADD_LIQUIDITY":   true,
}

// Normalizer converts raw webhook payloads into TouchEvents.
// It consults the reference snapshot only for the AMM program set; it does
// not classify addresses (that happens at registration time).
type Normalizer struct {
	refs *refdata.Snapshot
}

// New creates a normalizer against a reference snapshot.
func New(refs *refdata.Snapshot) *Normalizer {
	return &Normalizer{refs: refs}
}

// ParseBatch flattens a webhook body into one TouchEvent per usable
// transaction. A body that is not JSON at all yields (nil, 0): carrying no
// information is not an error here, the transport layer logs it.
// rejected counts transactions dropped for missing/implausible mint or for
// having no touched address.
func (n *Normalizer) ParseBatch(raw []byte, nowMs int64) (events []*domain.TouchEvent, rejected int) {
	txs, ok := decodeBatch(raw)
	if !ok {
		return nil, 0
	}

	for i := range txs {
		ev := n.normalizeTx(&txs[i], nowMs)
		if ev == nil {
			rejected++
			continue
		}
		events = append(events, ev)
	}
	return events, rejected
}

// normalizeTx converts one transaction, or returns nil to reject it.
func (n *Normalizer) normalizeTx(tx *Transaction, nowMs int64) *domain.TouchEvent {
	mint := extractMint(tx)
	if mint == "" || !refdata.PlausibleAddress(mint) {
		return nil
	}

	addrs, programID := collectAddresses(tx, n.refs)
	if len(addrs) == 0 {
		// A mint with zero touchers carries no clustering signal.
		return nil
	}

	return &domain.TouchEvent{
		MintID:           mint,
		TouchedAddresses: addrs,
		ProgramID:        programID,
		Signature:        signature(tx),
		Kind:             tx.Type,
		LiquidityInit:    isLiquidityInit(tx, programID),
		SolMoved:         solMoved(tx),
		ObservedAt:       observedAt(tx, nowMs),
	}
}

// extractMint applies the mint precedence: explicit top-level field first,
// then the first token transfer that carries a mint.
func extractMint(tx *Transaction) string {
	if tx.Mint != "" {
		return tx.Mint
	}
	if tx.TokenMint != "" {
		return tx.TokenMint
	}
	for _, tt := range tx.TokenTransfers {
		if tt.Mint != "" {
			return tt.Mint
		}
	}
	return ""
}

// collectAddresses merges every field that can plausibly hold an address
// into one deduped set, and picks the first known AMM program encountered.
func collectAddresses(tx *Transaction, refs *refdata.Snapshot) (addrs []string, programID string) {
	seen := make(map[string]struct{})
	add := func(a string) {
		if a == "" {
			return
		}
		if _, ok := seen[a]; ok {
			return
		}
		seen[a] = struct{}{}
		addrs = append(addrs, a)
	}

	for _, ad := range tx.AccountData {
		add(ad.Account)
	}
	for _, ad := range tx.Accounts {
		add(ad.Account)
	}
	for _, in := range tx.Instructions {
		add(in.ProgramID)
		if programID == "" && refs != nil && refs.IsAMMProgram(in.ProgramID) {
			programID = in.ProgramID
		}
		for _, a := range in.Accounts {
			add(a)
		}
		for _, inner := range in.InnerInstructions {
			add(inner.ProgramID)
			if programID == "" && refs != nil && refs.IsAMMProgram(inner.ProgramID) {
				programID = inner.ProgramID
			}
		}
	}
	for _, tt := range tx.TokenTransfers {
		add(tt.FromUserAccount)
		add(tt.ToUserAccount)
	}
	for _, nt := range tx.NativeTransfers {
		add(nt.FromUserAccount)
		add(nt.ToUserAccount)
	}

	return addrs, programID
}

// isLiquidityInit reports whether the transaction initializes a pool:
// either by declared type, or an AMM-program tx whose type mentions
// pool creation.
func isLiquidityInit(tx *Transaction, programID string) bool {
	typ := strings.ToUpper(tx.Type)
	if liquidityInitTypes[typ] {
		return true
	}
	return programID != "" && strings.Contains(typ, "POOL")
}

// solMoved sums native transfers into SOL.
func solMoved(tx *Transaction) float64 {
	var lamports int64
	for _, nt := range tx.NativeTransfers {
		if nt.Amount > 0 {
			lamports += nt.Amount
		}
	}
	return float64(lamports) / lamportsPerSOL
}

func signature(tx *Transaction) string {
	if tx.Signature != "" {
		return tx.Signature
	}
	return tx.Sig
}

// observedAt returns the event time in ms, defaulting to ingestion time.
// Source timestamps arrive in seconds; anything that small is scaled up.
func observedAt(tx *Transaction, nowMs int64) int64 {
	if tx.Timestamp <= 0 {
		return nowMs
	}
	if tx.Timestamp < 1_000_000_000_000 {
		return tx.Timestamp * 1000
	}
	return tx.Timestamp
}
