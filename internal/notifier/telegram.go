package notifier

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"ETFScope/internal/metrics"
)

// Sender is the part of the bot API used to deliver messages.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier sends messages via the Telegram Bot API.
type TelegramNotifier struct {
	Bot       *tgbotapi.BotAPI
	ChatID    int64
	RetryBase time.Duration

	sender Sender
}

// NewTelegramNotifier creates a notifier with optional proxy support.
// It contacts Telegram once to validate the token.
func NewTelegramNotifier(botToken string, chatID int64, proxyURL string) (*TelegramNotifier, error) {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	client := &http.Client{Timeout: 60 * time.Second, Transport: transport}
	bot, err := tgbotapi.NewBotAPIWithClient(botToken, tgbotapi.APIEndpoint, client)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	log.Info().Str("bot", bot.Self.UserName).Msg("telegram bot authorized")
	return &TelegramNotifier{Bot: bot, ChatID: chatID, RetryBase: time.Second, sender: bot}, nil
}

// NewWithSender wraps an arbitrary sender.
func NewWithSender(s Sender, chatID int64) *TelegramNotifier {
	return &TelegramNotifier{ChatID: chatID, RetryBase: time.Second, sender: s}
}

// Send sends an HTML message to the configured chat.
func (t *TelegramNotifier) Send(text string) error {
	return t.SendTo(t.ChatID, text)
}

// SendTo sends an HTML message to the given chat.
func (t *TelegramNotifier) SendTo(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	return t.deliver("text", msg)
}

// SendPhoto sends a PNG with an optional HTML caption.
func (t *TelegramNotifier) SendPhoto(chatID int64, name string, img []byte, caption string) error {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: name, Bytes: img})
	if caption != "" {
		photo.Caption = caption
		photo.ParseMode = tgbotapi.ModeHTML
	}
	return t.deliver("photo", photo)
}

func (t *TelegramNotifier) deliver(kind string, c tgbotapi.Chattable) error {
	if _, err := t.sender.Send(c); err != nil {
		metrics.TelegramMessagesTotal.WithLabelValues(kind, "error").Inc()
		return fmt.Errorf("send %s: %w", kind, err)
	}
	metrics.TelegramMessagesTotal.WithLabelValues(kind, "ok").Inc()
	return nil
}

// SendWithRetry sends a message with exponential backoff retry.
func (t *TelegramNotifier) SendWithRetry(ctx context.Context, text string, maxRetries int) error {
	var lastErr error
	for i := 0; i <= maxRetries; i++ {
		err := t.Send(text)
		if err == nil {
			return nil
		}
		lastErr = err
		if i == maxRetries {
			break
		}
		backoff := t.RetryBase * time.Duration(1<<uint(i))
		log.Warn().Err(err).Int("attempt", i+1).Int("of", maxRetries+1).Dur("backoff", backoff).
			Msg("telegram send failed, retrying")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return fmt.Errorf("all %d retries exhausted: %w", maxRetries+1, lastErr)
}
