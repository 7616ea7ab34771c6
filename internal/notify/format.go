package notify

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"mint-radar/internal/domain"
	"mint-radar/internal/ranking"
)

// Explorer link templates.
const (
	solscanTokenURL   = "https://solscan.io/token/%s"
	dexScreenerURL    = "https://dexscreener.com/solana/%s"
	solscanAccountURL = "https://solscan.io/account/%s"
)

func mintLinks(mint string) string {
	return fmt.Sprintf("[Solscan]("+solscanTokenURL+") | [DexScreener]("+dexScreenerURL+")", mint, mint)
}

// FormatWhaleHit renders the alert sent when a watched whale touches a mint.
func FormatWhaleHit(ev *domain.TouchEvent, score int, tags []string) string {
	var b strings.Builder
	b.WriteString("🐋 *Whale hit*\n")
	fmt.Fprintf(&b, "Mint: `%s`\n", ev.MintID)
	if tag := firstNonEmpty(tags); tag != "" {
		fmt.Fprintf(&b, "Whale: %s\n", tag)
	}
	if ev.SolMoved > 0 {
		fmt.Fprintf(&b, "Moved: %.2f SOL\n", ev.SolMoved)
	}
	fmt.Fprintf(&b, "Score: *%d*\n", score)
	b.WriteString(mintLinks(ev.MintID))
	return b.String()
}

// FormatNewMint renders the alert sent the first time a mint clusters.
func FormatNewMint(ev *domain.TouchEvent, entry *domain.ClusterEntry) string {
	var b strings.Builder
	b.WriteString("🆕 *New mint clustered*\n")
	fmt.Fprintf(&b, "Mint: `%s`\n", ev.MintID)
	if ev.Kind != "" {
		fmt.Fprintf(&b, "Via: %s\n", ev.Kind)
	}
	if entry != nil && entry.LiquidityInitialized {
		b.WriteString("Liquidity: initialized\n")
	}
	b.WriteString(mintLinks(ev.MintID))
	return b.String()
}

// FormatWinners renders the ranked winners list. Empty input yields an empty
// string so scheduled digests stay silent instead of spamming "no winners".
func FormatWinners(winners []ranking.Winner) string {
	if len(winners) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("🏆 *Top winners*\n")
	for i, w := range winners {
		fmt.Fprintf(&b, "%d. `%s` — *%d*", i+1, w.MintID, w.Score)
		c := w.Entry.Counts
		var parts []string
		if c.Whale > 0 {
			parts = append(parts, fmt.Sprintf("🐋%d", c.Whale))
		}
		if c.AMM > 0 {
			parts = append(parts, fmt.Sprintf("⚙️%d", c.AMM))
		}
		if c.Bridge > 0 {
			parts = append(parts, fmt.Sprintf("🌉%d", c.Bridge))
		}
		if c.Exchange > 0 {
			parts = append(parts, fmt.Sprintf("🏦%d", c.Exchange))
		}
		if len(parts) > 0 {
			fmt.Fprintf(&b, " (%s)", strings.Join(parts, " "))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// FormatWhaleList renders the whale watchlist.
func FormatWhaleList(whales map[string]string) string {
	if len(whales) == 0 {
		return "Watchlist is empty."
	}

	addrs := make([]string, 0, len(whales))
	for a := range whales {
		addrs = append(addrs, a)
	}
	sort.Strings(addrs)

	var b strings.Builder
	fmt.Fprintf(&b, "🐋 *Watched whales* (%d)\n", len(whales))
	for _, addr := range addrs {
		fmt.Fprintf(&b, "• [`%s`]("+solscanAccountURL+")", shortAddr(addr), addr)
		if tag := whales[addr]; tag != "" {
			fmt.Fprintf(&b, " — %s", tag)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// FormatScore renders a single-mint score lookup.
func FormatScore(mint string, score int, entry *domain.ClusterEntry) string {
	if entry == nil {
		return fmt.Sprintf("`%s` is not clustered.", mint)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Mint: `%s`\nScore: *%d*\n", mint, score)
	c := entry.Counts
	fmt.Fprintf(&b, "Touches: %d (🐋%d ⚙️%d 🌉%d 🏦%d)\n", entry.TouchTotal, c.Whale, c.AMM, c.Bridge, c.Exchange)
	fmt.Fprintf(&b, "Active days: %d\n", len(entry.ActiveDays))
	if entry.SolInflow > 0 {
		fmt.Fprintf(&b, "Whale SOL inflow: %.2f\n", entry.SolInflow)
	}
	b.WriteString(mintLinks(mint))
	return b.String()
}

// FormatRecentTouches renders the latest logged touches for a mint,
// newest first.
func FormatRecentTouches(events []*domain.TouchEvent) string {
	var b strings.Builder
	b.WriteString("Recent touches:")
	for _, ev := range events {
		ts := time.UnixMilli(ev.ObservedAt).UTC().Format("01-02 15:04")
		fmt.Fprintf(&b, "\n• %s `%s`", ts, shortAddr(ev.Signature))
		if ev.Kind != "" {
			fmt.Fprintf(&b, " %s", ev.Kind)
		}
		if ev.SolMoved > 0 {
			fmt.Fprintf(&b, " %.2f SOL", ev.SolMoved)
		}
	}
	return b.String()
}

func shortAddr(a string) string {
	if len(a) <= 12 {
		return a
	}
	return a[:6] + "…" + a[len(a)-4:]
}

func firstNonEmpty(ss []string) string {
	for _, s := range ss {
		if s != "" {
			return s
		}
	}
	return ""
}
