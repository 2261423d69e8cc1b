package telegram

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func (r *RealBot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	// Always answer the callback so the client stops the spinner.
	defer func() {
		if _, err := r.bot.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
			r.log.Warn().Err(err).Msg("callback answer failed")
		}
	}()

	if cb.From == nil || cb.Message == nil {
		return nil
	}
	tgUser := cb.From
	chatID := cb.Message.Chat.ID
	data := cb.Data

	switch {
	case strings.HasPrefix(data, "buy:"):
		planID := strings.TrimPrefix(data, "buy:")
		if !r.allowBuy(ctx, tgUser.ID) {
			return r.SendMessage(ctx, chatID, "Calma! 😅 Aguarde um pouco antes de gerar outro Pix.")
		}
		reply, err := r.facade.HandleBuy(ctx, tgUser.ID, displayName(tgUser), planID)
		if err != nil {
			r.log.Error().Err(err).Int64("tg_id", tgUser.ID).Str("plan", planID).Msg("buy failed")
			return r.SendMessage(ctx, chatID, "Não consegui gerar o Pix agora. Tente novamente.")
		}
		return r.sendMarkdown(chatID, reply, checkStatusKeyboard())

	case data == "check_payment_status":
		reply, err := r.facade.HandleStatus(ctx, tgUser.ID)
		if err != nil {
			r.log.Error().Err(err).Int64("tg_id", tgUser.ID).Msg("status check failed")
			return r.SendMessage(ctx, chatID, "Não consegui consultar agora. Tente novamente.")
		}
		return r.SendMessage(ctx, chatID, reply)

	default:
		return nil
	}
}

func checkStatusKeyboard() *tgbotapi.InlineKeyboardMarkup {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Já paguei", "check_payment_status"),
		),
	)
	return &kb
}
