package notify

import (
	"context"
	"log"
	"time"

	"mint-radar/internal/cluster"
	"mint-radar/internal/domain"
	"mint-radar/internal/observability"
	"mint-radar/internal/scoring"
)

// Alerter turns registration outcomes into Telegram alerts. Sends are
// fire-and-forget on their own goroutine so ingestion never waits on the
// Bot API.
type Alerter struct {
	tg     *Telegram
	params func() domain.ScoringParams
	logger *log.Logger

	// minNewMintScore suppresses new-mint alerts below this score; whale
	// hits always alert.
	minNewMintScore int
}

// NewAlerter creates an alerter. minNewMintScore of 0 alerts on every new mint.
func NewAlerter(tg *Telegram, params func() domain.ScoringParams, minNewMintScore int, logger *log.Logger) *Alerter {
	if logger == nil {
		logger = log.New(log.Writer(), "[alert] ", log.LstdFlags)
	}
	return &Alerter{tg: tg, params: params, logger: logger, minNewMintScore: minNewMintScore}
}

// WhaleHit sends the whale-touch alert.
func (a *Alerter) WhaleHit(ev *domain.TouchEvent, res *cluster.RegisterResult) {
	if !a.tg.Enabled() {
		return
	}
	score := scoring.Score(res.Entry, time.Now().UnixMilli(), a.params())
	a.send("whale_hit", FormatWhaleHit(ev, score, res.WhaleTags))
}

// NewMint sends the first-cluster alert when the mint scores high enough.
func (a *Alerter) NewMint(ev *domain.TouchEvent, res *cluster.RegisterResult) {
	if !a.tg.Enabled() {
		return
	}
	score := scoring.Score(res.Entry, time.Now().UnixMilli(), a.params())
	if score < a.minNewMintScore {
		return
	}
	a.send("new_mint", FormatNewMint(ev, res.Entry))
}

func (a *Alerter) send(kind, text string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		err := a.tg.Send(ctx, text)
		observability.RecordNotification(kind, err)
		if err != nil {
			a.logger.Printf("Send %s alert: %v", kind, err)
		}
	}()
}
