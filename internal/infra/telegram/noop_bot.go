package telegram

import (
	"context"

	"github.com/rs/zerolog"

	"telegram-pix-subscription/internal/domain/ports/adapter"
)

// NoopBot satisfies adapter.MessengerBot without talking to Telegram.
// Used in tests and headless dev runs.
type NoopBot struct {
	log *zerolog.Logger
}

var _ adapter.MessengerBot = (*NoopBot)(nil)

func NewNoopBot(logger *zerolog.Logger) *NoopBot {
	l := logger.With().Str("component", "NoopBot").Logger()
	return &NoopBot{log: &l}
}

func (b *NoopBot) SendMessage(ctx context.Context, chatID int64, text string) error {
	b.log.Debug().Int64("chat_id", chatID).Str("text", text).Msg("message dropped")
	return nil
}
