package notifier

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
)

// Reply is one outgoing answer to a command. Photo is optional.
type Reply struct {
	Text      string
	Photo     []byte
	PhotoName string
}

// CommandHandler is called when a user command is received.
type CommandHandler func(ctx context.Context, text string) []Reply

// StartPolling begins long-polling for Telegram commands. Blocks until ctx is cancelled.
func (t *TelegramNotifier) StartPolling(ctx context.Context, handler CommandHandler) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := t.Bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			t.Bot.StopReceivingUpdates()
			log.Info().Msg("telegram polling stopped")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message == nil || update.Message.Text == "" {
				continue
			}
			t.Dispatch(ctx, update.Message.Chat.ID, update.Message.Text, handler)
		}
	}
}

// Dispatch runs the handler for one incoming message and sends its replies
// back to the originating chat.
func (t *TelegramNotifier) Dispatch(ctx context.Context, chatID int64, text string, handler CommandHandler) {
	text = strings.TrimSpace(text)
	log.Info().Int64("chat", chatID).Str("command", text).Msg("received command")
	for _, r := range handler(ctx, text) {
		var err error
		if len(r.Photo) > 0 {
			err = t.SendPhoto(chatID, r.PhotoName, r.Photo, r.Text)
		} else if r.Text != "" {
			err = t.SendTo(chatID, r.Text)
		}
		if err != nil {
			log.Error().Err(err).Int64("chat", chatID).Msg("send reply")
		}
	}
}
