// Package notify delivers Telegram alerts and serves the bot commands that
// operators use to inspect clusters and manage the whale watchlist.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultAPIBase = "https://api.telegram.org"

// Telegram is a minimal Bot API client. With an empty token every send is a
// no-op, so the rest of the service never branches on notification config.
type Telegram struct {
	token   string
	chatID  int64
	apiBase string
	client  *http.Client
}

// NewTelegram creates a client sending to chatID by default.
func NewTelegram(token string, chatID int64) *Telegram {
	return &Telegram{
		token:   token,
		chatID:  chatID,
		apiBase: defaultAPIBase,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// WithAPIBase overrides the Bot API base URL, for tests.
func (t *Telegram) WithAPIBase(base string) *Telegram {
	t.apiBase = base
	return t
}

// Enabled reports whether a bot token is configured.
func (t *Telegram) Enabled() bool {
	return t.token != ""
}

// Send posts a Markdown message to the default chat.
func (t *Telegram) Send(ctx context.Context, text string) error {
	return t.SendTo(ctx, t.chatID, text)
}

// SendTo posts a Markdown message to a specific chat.
func (t *Telegram) SendTo(ctx context.Context, chatID int64, text string) error {
	if !t.Enabled() || text == "" {
		return nil
	}

	payload := map[string]any{
		"chat_id":                  chatID,
		"text":                     text,
		"parse_mode":               "Markdown",
		"disable_web_page_preview": true,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.apiBase, t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram API status %d", resp.StatusCode)
	}
	return nil
}

// Update is one incoming bot update from getUpdates.
type Update struct {
	UpdateID int64 `json:"update_id"`
	Message  *struct {
		Text string `json:"text"`
		From struct {
			ID int64 `json:"id"`
		} `json:"from"`
		Chat struct {
			ID int64 `json:"id"`
		} `json:"chat"`
	} `json:"message"`
}

// GetUpdates long-polls the Bot API for updates after offset.
func (t *Telegram) GetUpdates(ctx context.Context, offset int64, timeoutSec int) ([]Update, error) {
	if !t.Enabled() {
		return nil, nil
	}

	url := fmt.Sprintf("%s/bot%s/getUpdates?offset=%d&timeout=%d", t.apiBase, t.token, offset, timeoutSec)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build getUpdates request: %w", err)
	}

	// Long poll: the HTTP timeout must outlast the server-side hold.
	poll := &http.Client{Timeout: time.Duration(timeoutSec+10) * time.Second}
	resp, err := poll.Do(req)
	if err != nil {
		return nil, fmt.Errorf("poll telegram updates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("telegram API status %d", resp.StatusCode)
	}

	var result struct {
		OK     bool     `json:"ok"`
		Result []Update `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode telegram updates: %w", err)
	}
	if !result.OK {
		return nil, fmt.Errorf("telegram API returned ok=false")
	}
	return result.Result, nil
}
