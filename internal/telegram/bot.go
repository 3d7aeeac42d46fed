package telegram

import (
	"context"
	"fmt"

	"investment-bot/internal/notify"

	"github.com/PaulSonOfLars/gotgbot/v2"
)

// API is the subset of the Bot API this package calls. *gotgbot.Bot
// satisfies it.
type API interface {
	SendMessage(chatId int64, text string, opts *gotgbot.SendMessageOpts) (*gotgbot.Message, error)
	ForwardMessage(chatId int64, fromChatId int64, messageId int64, opts *gotgbot.ForwardMessageOpts) (*gotgbot.Message, error)
	GetUpdates(opts *gotgbot.GetUpdatesOpts) ([]gotgbot.Update, error)
}

type Bot struct {
	Api API
}

func NewBot(token string) (*Bot, error) {
	api, err := gotgbot.NewBot(token, nil)
	if err != nil {
		return nil, err
	}

	return &Bot{
		Api: api,
	}, nil
}

// Username returns the bot's @name, empty when unknown
func (b *Bot) Username() string {
	if bot, ok := b.Api.(*gotgbot.Bot); ok {
		return bot.Username
	}
	return ""
}

// Send posts plain text with an optional reply keyboard
func (b *Bot) Send(chatID int64, text string, markup *gotgbot.ReplyKeyboardMarkup) error {
	opts := &gotgbot.SendMessageOpts{
		LinkPreviewOptions: &gotgbot.LinkPreviewOptions{IsDisabled: true},
	}
	if markup != nil {
		opts.ReplyMarkup = markup
	}
	if _, err := b.Api.SendMessage(chatID, text, opts); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// Deliver renders a notification and sends it. Evidence notifications
// forward the original message first.
func (b *Bot) Deliver(ctx context.Context, userID int64, payload notify.Payload) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if payload.Kind == notify.KindEvidenceForward && payload.ForwardMessageID != 0 {
		if _, err := b.Api.ForwardMessage(userID, payload.ForwardChatID, payload.ForwardMessageID, nil); err != nil {
			return fmt.Errorf("failed to forward evidence: %w", err)
		}
	}
	return b.Send(userID, RenderPayload(payload), nil)
}
