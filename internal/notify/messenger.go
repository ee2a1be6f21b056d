// Package notify delivers deadline notifications: resolving recipients,
// rendering messages, and dispatching them with per-recipient dedup through
// the dispatch log.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"duewatch/internal/config"
	"duewatch/internal/faults"
	"duewatch/internal/logging"
)

// Messenger delivers one message to one channel.
type Messenger interface {
	Send(ctx context.Context, channelID, text string) error
}

// Telegram sends messages through the Telegram Bot API.
type Telegram struct {
	http     *http.Client
	apiBase  string
	botToken string
}

// NewTelegram builds a Telegram messenger.
func NewTelegram(apiBase, botToken string, timeout time.Duration) *Telegram {
	return &Telegram{
		http:     &http.Client{Timeout: timeout},
		apiBase:  apiBase,
		botToken: botToken,
	}
}

// NewFromConfig returns a Telegram messenger when a bot token is configured,
// and a logging no-op otherwise so the rest of the pipeline keeps working.
func NewFromConfig(cfg *config.Config, logger *slog.Logger) Messenger {
	if cfg.Messaging.BotToken == "" {
		return noopMessenger{logger: logging.NewComponentLogger(logger, "notify")}
	}
	return NewTelegram(cfg.Messaging.APIBase, cfg.Messaging.BotToken, time.Duration(cfg.Messaging.RequestTimeout)*time.Second)
}

type sendMessageRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

// Send posts a sendMessage call to the bot API.
func (t *Telegram) Send(ctx context.Context, channelID, text string) error {
	body, err := json.Marshal(sendMessageRequest{ChatID: channelID, Text: text})
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.apiBase, t.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.http.Do(req)
	if err != nil {
		return faults.Wrap(faults.ErrTransient, "notify", "send", "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return faults.Wrap(faults.ErrTransient, "notify", "send",
			fmt.Sprintf("status %d: %s", resp.StatusCode, bytes.TrimSpace(detail)), nil)
	}
	return nil
}

// noopMessenger logs instead of delivering. Used when no bot token is
// configured.
type noopMessenger struct {
	logger *slog.Logger
}

func (m noopMessenger) Send(_ context.Context, channelID, text string) error {
	m.logger.Info("messaging disabled, dropping notification",
		logging.String(logging.FieldChannel, channelID),
		logging.Int("length", len(text)))
	return nil
}
