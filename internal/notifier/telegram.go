package notifier

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"

	"StrategyLab/internal/logger"
)

// Sender delivers chat messages.
type Sender interface {
	Send(text string) error
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// NoopNotifier drops messages when Telegram is not configured.
type NoopNotifier struct{}

func (NoopNotifier) Send(string) error                                 { return nil }
func (NoopNotifier) SendWithRetry(context.Context, string, int) error { return nil }

// TelegramNotifier sends messages via the Telegram Bot API.
type TelegramNotifier struct {
	bot    *tgbot.BotAPI
	chatID int64
}

// NewTelegramNotifier connects the bot with optional proxy support.
func NewTelegramNotifier(botToken, chatID, proxyURL string) (*TelegramNotifier, error) {
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, errors.Wrapf(err, "telegram chat id %q", chatID)
	}
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	client := &http.Client{Timeout: 35 * time.Second, Transport: transport}
	bot, err := tgbot.NewBotAPIWithClient(botToken, tgbot.APIEndpoint, client)
	if err != nil {
		return nil, errors.Wrap(err, "connect telegram bot")
	}
	return &TelegramNotifier{bot: bot, chatID: id}, nil
}

// Send sends an HTML message to the configured chat.
func (t *TelegramNotifier) Send(text string) error {
	msg := tgbot.NewMessage(t.chatID, text)
	msg.ParseMode = tgbot.ModeHTML
	if _, err := t.bot.Send(msg); err != nil {
		return errors.Wrap(err, "send message")
	}
	return nil
}

// SendWithRetry sends a message with exponential backoff retry.
func (t *TelegramNotifier) SendWithRetry(ctx context.Context, text string, maxRetries int) error {
	return withRetry(ctx, maxRetries, time.Second, func() error { return t.Send(text) })
}

func withRetry(ctx context.Context, maxRetries int, base time.Duration, send func() error) error {
	var lastErr error
	for i := 0; i <= maxRetries; i++ {
		if err := send(); err != nil {
			lastErr = err
			if i == maxRetries {
				break
			}
			backoff := base << uint(i)
			logger.Warn("telegram send failed (attempt %d/%d): %v, retrying in %v", i+1, maxRetries+1, err, backoff)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
				continue
			}
		}
		return nil
	}
	return errors.Wrapf(lastErr, "all %d retries exhausted", maxRetries+1)
}
