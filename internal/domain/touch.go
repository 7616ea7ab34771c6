package domain

// Role is the classification of an address against the reference sets.
type Role string

const (
	RoleWhale      Role = "whale"
	RoleExchange   Role = "exchange"
	RoleBridge     Role = "bridge"
	RoleAMMProgram Role = "amm_program"
	RoleUnknown    Role = "unknown"
)

// TouchEvent is one normalized transaction observation for a single mint.
// It is ephemeral: events are folded into a ClusterEntry and never stored
// standalone (the touch log keeps a flattened copy for history only).
type TouchEvent struct {
	MintID           string   // token mint address, required
	TouchedAddresses []string // every account/program seen in the tx, deduped
	ProgramID        string   // AMM/router program if identified, else empty
	Signature        string   // transaction signature (dedup key component)
	Kind             string   // source tx type, e.g. SWAP, TOKEN_MINT, CREATE_POOL
	LiquidityInit    bool     // tx initialized a liquidity pool for this mint
	SolMoved         float64  // total SOL moved via native transfers
	ObservedAt       int64    // Unix timestamp in milliseconds
}

// TouchCounts accumulates per-role touch evidence for a mint.
// All counters are monotonically non-decreasing; they are never reset
// except by whole-entry eviction.
type TouchCounts struct {
	Whale    int `json:"whale"`
	Exchange int `json:"exchange"`
	AMM      int `json:"amm"`
	Bridge   int `json:"bridge"`
}

// Total returns the sum of all role buckets.
func (c TouchCounts) Total() int {
	return c.Whale + c.Exchange + c.AMM + c.Bridge
}
