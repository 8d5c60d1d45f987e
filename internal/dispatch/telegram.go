package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"

	"github.com/IndrawanLalu/gardu-alerting-service/internal/logging"
)

// TelegramGateway delivers alerts to the operations group chat via the
// Telegram bot API.
type TelegramGateway struct {
	bot    *bot.Bot
	chatID int64
	logger *logging.Logger
}

func NewTelegramGateway(token string, chatID int64, logger *logging.Logger) (*TelegramGateway, error) {
	if token == "" {
		return nil, fmt.Errorf("missing telegram bot token")
	}
	if chatID == 0 {
		return nil, fmt.Errorf("missing telegram chat_id")
	}
	b, err := bot.New(token)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telegram bot: %w", err)
	}
	return &TelegramGateway{bot: b, chatID: chatID, logger: logger}, nil
}

// Send posts the message to the configured chat. A media URL, when present, is
// sent as a photo with the text as its caption.
func (g *TelegramGateway) Send(ctx context.Context, text, mediaURL string) error {
	return retry(g.logger, 3, time.Second, func() error {
		if mediaURL != "" {
			_, err := g.bot.SendPhoto(ctx, &bot.SendPhotoParams{
				ChatID:  g.chatID,
				Photo:   &tgmodels.InputFileString{Data: mediaURL},
				Caption: text,
			})
			if err != nil {
				return fmt.Errorf("failed to send telegram photo to chat_id %d: %w", g.chatID, err)
			}
			return nil
		}
		_, err := g.bot.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:    g.chatID,
			Text:      text,
			ParseMode: "Markdown",
		})
		if err != nil {
			return fmt.Errorf("failed to send telegram message to chat_id %d: %w", g.chatID, err)
		}
		return nil
	})
}
