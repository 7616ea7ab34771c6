// Package refdata holds the static reference sets used to classify
// addresses: the whale watchlist, the exchange/bridge label map, the known
// AMM program set, and the mint noise blocklist. Classification is pure and
// O(1) so it can run per-address per-event without backpressure concerns.
package refdata

import (
	"strings"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"

	"mint-radar/internal/domain"
)

// Known AMM program IDs.
const (
	// RaydiumAMMV4 is the Raydium AMM v4 program ID.
	RaydiumAMMV4 = "675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8"
	// PumpFun is the pump.fun bonding-curve program ID.
	PumpFun = "6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P"
	// OrcaWhirlpool is the Orca whirlpool program ID.
	OrcaWhirlpool = "whirLbMiicVdio4qvUfM5KAg6Ct8VwpYzGff3uctyCc"
	// JupiterV6 is the Jupiter aggregator v6 program ID.
	JupiterV6 = "JUP6LkbZbjS1jKKwapdHNy74zcZ3tLUZoi5QNyVTaV4"
)

// Well-known noise mints (stablecoins, wrapped native). Touches for these
// never create cluster entries.
const (
	WrappedSOL = "So11111111111111111111111111111111111111112"
	USDC       = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	USDT       = "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB"
)

// Label describes an exchange/bridge address. When Roles is set it is
// authoritative; otherwise roles are inferred from Text substrings
// ("CEX" and "Bridge"), the documented legacy behavior. A label whose text
// contains both substrings yields both roles.
type Label struct {
	Text  string        `json:"text"`
	Roles []domain.Role `json:"roles,omitempty"`
}

// Classification is the result of classifying a single address.
// An address can carry multiple roles (exchange and bridge at once).
type Classification struct {
	Roles []domain.Role
	Tag   string
}

// Unknown reports whether no role matched.
func (c Classification) Unknown() bool {
	return len(c.Roles) == 0
}

// Has reports whether the classification carries the given role.
func (c Classification) Has(role domain.Role) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Snapshot is an immutable view of all reference sets. Snapshots are
// replaced wholesale on reload, never mutated in place, so lookups need
// no locking.
type Snapshot struct {
	whales      map[string]string
	labels      map[string]Label
	ammPrograms map[string]struct{}
	noiseMints  map[string]struct{}
}

// NewSnapshot builds a snapshot from the given sets. Nil maps are allowed.
func NewSnapshot(whales map[string]string, labels map[string]Label, ammPrograms []string, noiseMints []string) *Snapshot {
	s := &Snapshot{
		whales:      make(map[string]string, len(whales)),
		labels:      make(map[string]Label, len(labels)),
		ammPrograms: make(map[string]struct{}, len(ammPrograms)),
		noiseMints:  make(map[string]struct{}, len(noiseMints)),
	}
	for a, tag := range whales {
		s.whales[a] = tag
	}
	for a, l := range labels {
		s.labels[a] = l
	}
	for _, p := range ammPrograms {
		s.ammPrograms[p] = struct{}{}
	}
	for _, m := range noiseMints {
		s.noiseMints[m] = struct{}{}
	}
	return s
}

// DefaultAMMPrograms returns the built-in AMM program set.
func DefaultAMMPrograms() []string {
	return []string{RaydiumAMMV4, PumpFun, OrcaWhirlpool, JupiterV6}
}

// DefaultNoiseMints returns the built-in mint blocklist.
func DefaultNoiseMints() []string {
	return []string{WrappedSOL, USDC, USDT}
}

// Classify maps an address to its roles. Absent addresses classify as
// unknown; they still count as touchers, just not in any bucket.
func (s *Snapshot) Classify(addr string) Classification {
	var c Classification

	if tag, ok := s.whales[addr]; ok {
		c.Roles = append(c.Roles, domain.RoleWhale)
		c.Tag = tag
	}

	if l, ok := s.labels[addr]; ok {
		roles := l.Roles
		if len(roles) == 0 {
			roles = inferRoles(l.Text)
		}
		c.Roles = append(c.Roles, roles...)
		if c.Tag == "" {
			c.Tag = l.Text
		}
	}

	if _, ok := s.ammPrograms[addr]; ok {
		c.Roles = append(c.Roles, domain.RoleAMMProgram)
	}

	return c
}

// IsAMMProgram reports whether the address is a known AMM program.
func (s *Snapshot) IsAMMProgram(addr string) bool {
	_, ok := s.ammPrograms[addr]
	return ok
}

// IsNoiseMint reports whether the mint is on the static blocklist.
func (s *Snapshot) IsNoiseMint(mint string) bool {
	_, ok := s.noiseMints[mint]
	return ok
}

// Whales returns a copy of the watchlist.
func (s *Snapshot) Whales() map[string]string {
	out := make(map[string]string, len(s.whales))
	for a, tag := range s.whales {
		out[a] = tag
	}
	return out
}

// LabelCount returns the number of labeled exchange/bridge addresses.
func (s *Snapshot) LabelCount() int {
	return len(s.labels)
}

// inferRoles derives roles from free label text. Legacy behavior: substring
// matching decided at runtime, multi-role when both substrings appear.
func inferRoles(text string) []domain.Role {
	var roles []domain.Role
	if strings.Contains(text, "CEX") {
		roles = append(roles, domain.RoleExchange)
	}
	if strings.Contains(text, "Bridge") {
		roles = append(roles, domain.RoleBridge)
	}
	return roles
}

// PlausibleAddress reports whether s decodes from base58 to a 32-byte key.
func PlausibleAddress(s string) bool {
	raw, err := base58.Decode(s)
	return err == nil && len(raw) == 32
}

// IsOnCurve reports whether the address is a valid ed25519 point, i.e. a
// wallet keypair rather than a PDA. Program-derived addresses are off-curve.
func IsOnCurve(addr string) bool {
	raw, err := base58.Decode(addr)
	if err != nil || len(raw) != 32 {
		return false
	}
	_, err = new(edwards25519.Point).SetBytes(raw)
	return err == nil
}
