package notify

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"mint-radar/internal/cluster"
	"mint-radar/internal/domain"
	"mint-radar/internal/observability"
	"mint-radar/internal/ranking"
	"mint-radar/internal/refdata"
	"mint-radar/internal/storage"
)

const pollTimeoutSec = 30

const helpText = `*mint-radar bot*
/winners — current top winners
/score <mint> — score one mint
/whales — list watched whales
/whale_add <address> [tag] — watch a wallet (admin)
/whale_remove <address> — unwatch a wallet (admin)`

// recentTouchLimit caps the touch-history lines appended to /score replies.
const recentTouchLimit = 5

// Bot routes Telegram commands to the cluster registry and watchlist.
type Bot struct {
	tg       *Telegram
	registry *cluster.Registry
	refs     *refdata.Registry
	params   func() domain.ScoringParams
	touchLog storage.TouchLogStore // nil disables the /score history section
	admins   map[int64]bool
	logger   *log.Logger
	offset   int64
}

// NewBot creates the command router. admins lists the Telegram user IDs
// allowed to mutate the watchlist; read commands are open to any chat the
// bot is in.
func NewBot(tg *Telegram, registry *cluster.Registry, refs *refdata.Registry, params func() domain.ScoringParams, admins []int64, logger *log.Logger) *Bot {
	adminSet := make(map[int64]bool, len(admins))
	for _, id := range admins {
		adminSet[id] = true
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[bot] ", log.LstdFlags)
	}
	return &Bot{
		tg:       tg,
		registry: registry,
		refs:     refs,
		params:   params,
		admins:   adminSet,
		logger:   logger,
	}
}

// WithTouchLog enables the recent-touch section of /score replies.
func (b *Bot) WithTouchLog(store storage.TouchLogStore) *Bot {
	b.touchLog = store
	return b
}

// Run long-polls for updates until the context is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	if !b.tg.Enabled() {
		b.logger.Println("No bot token configured, command polling disabled")
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		updates, err := b.tg.GetUpdates(ctx, b.offset, pollTimeoutSec)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			b.logger.Printf("Poll error: %v", err)
			time.Sleep(5 * time.Second)
			continue
		}

		for _, upd := range updates {
			if upd.UpdateID >= b.offset {
				b.offset = upd.UpdateID + 1
			}
			b.handleUpdate(ctx, upd)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, upd Update) {
	if upd.Message == nil || !strings.HasPrefix(upd.Message.Text, "/") {
		return
	}

	reply := b.HandleCommand(ctx, upd.Message.From.ID, upd.Message.Text)
	if reply == "" {
		return
	}
	if err := b.tg.SendTo(ctx, upd.Message.Chat.ID, reply); err != nil {
		b.logger.Printf("Reply failed: %v", err)
	}
	observability.RecordNotification("command_reply", nil)
}

// HandleCommand executes one command and returns the reply text. An empty
// reply means stay silent.
func (b *Bot) HandleCommand(ctx context.Context, userID int64, text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return ""
	}
	// Group chats address commands as /cmd@BotName.
	cmd := strings.SplitN(strings.ToLower(fields[0]), "@", 2)[0]
	args := fields[1:]

	switch cmd {
	case "/start", "/help":
		return helpText

	case "/winners":
		now := time.Now().UnixMilli()
		winners := ranking.TopWinners(b.registry, b.refs.Snapshot(), now, b.params())
		observability.RecordWinnersQuery()
		if len(winners) == 0 {
			return "No winners in the current window."
		}
		return FormatWinners(winners)

	case "/score":
		if len(args) == 0 {
			return "Usage: /score <mint>"
		}
		mint := args[0]
		score, entry, ok := ranking.QuickLook(b.registry, mint, time.Now().UnixMilli(), b.params())
		if !ok {
			return FormatScore(mint, 0, nil)
		}
		reply := FormatScore(mint, score, entry)
		if b.touchLog != nil {
			recent, err := b.touchLog.GetRecentByMint(ctx, mint, recentTouchLimit)
			if err != nil {
				b.logger.Printf("Touch history for %s: %v", mint, err)
			} else if len(recent) > 0 {
				reply += "\n" + FormatRecentTouches(recent)
			}
		}
		return reply

	case "/whales":
		return FormatWhaleList(b.refs.Snapshot().Whales())

	case "/whale_add":
		if !b.admins[userID] {
			return "Admins only."
		}
		if len(args) == 0 {
			return "Usage: /whale_add <address> [tag]"
		}
		tag := strings.Join(args[1:], " ")
		added, err := b.refs.AddWhale(ctx, args[0], tag)
		if err != nil {
			return fmt.Sprintf("Cannot add: %v", err)
		}
		if !added {
			return "Already watched."
		}
		return fmt.Sprintf("Watching `%s`.", args[0])

	case "/whale_remove":
		if !b.admins[userID] {
			return "Admins only."
		}
		if len(args) == 0 {
			return "Usage: /whale_remove <address>"
		}
		removed, err := b.refs.RemoveWhale(ctx, args[0])
		if err != nil {
			return fmt.Sprintf("Cannot remove: %v", err)
		}
		if !removed {
			return "Not on the watchlist."
		}
		return fmt.Sprintf("Stopped watching `%s`.", args[0])
	}

	return ""
}
