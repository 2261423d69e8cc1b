package telegram

import (
	"context"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"telegram-pix-subscription/internal/infra/redis"
)

const (
	buyRateLimit  = 5
	buyRateWindow = time.Minute
)

func (r *RealBot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	tgUser := msg.From
	chatID := msg.Chat.ID
	text := strings.TrimSpace(msg.Text)

	if !strings.HasPrefix(text, "/") {
		return r.SendMessage(ctx, chatID, "Não entendi. 🤔\nUse /planos para assinar ou /status para conferir seu acesso.")
	}

	cmd := text
	if i := strings.IndexAny(cmd, " @"); i > 0 {
		cmd = cmd[:i]
	}

	switch cmd {
	case "/start":
		reply, err := r.facade.HandleStart(ctx, tgUser.ID, displayName(tgUser))
		if err != nil {
			r.log.Error().Err(err).Int64("tg_id", tgUser.ID).Msg("/start failed")
			return r.SendMessage(ctx, chatID, "Algo deu errado. Tente novamente.")
		}
		return r.SendMessage(ctx, chatID, reply)

	case "/planos", "/plans":
		reply, err := r.facade.HandlePlans(ctx)
		if err != nil {
			r.log.Error().Err(err).Msg("/planos failed")
			return r.SendMessage(ctx, chatID, "Algo deu errado. Tente novamente.")
		}
		return r.sendMarkdown(chatID, reply, r.plansKeyboard())

	case "/status":
		reply, err := r.facade.HandleStatus(ctx, tgUser.ID)
		if err != nil {
			r.log.Error().Err(err).Int64("tg_id", tgUser.ID).Msg("/status failed")
			return r.SendMessage(ctx, chatID, "Algo deu errado. Tente novamente.")
		}
		return r.SendMessage(ctx, chatID, reply)

	case "/stats":
		if !r.isAdmin(tgUser.ID) {
			return r.SendMessage(ctx, chatID, "Comando restrito.")
		}
		reply, err := r.facade.HandleStats(ctx)
		if err != nil {
			r.log.Error().Err(err).Msg("/stats failed")
			return r.SendMessage(ctx, chatID, "Falha ao obter estatísticas.")
		}
		return r.SendMessage(ctx, chatID, reply)

	default:
		return r.SendMessage(ctx, chatID, "Comando desconhecido.\nUse /planos para assinar ou /status para conferir seu acesso.")
	}
}

// plansKeyboard renders one buy button per catalog plan.
func (r *RealBot) plansKeyboard() *tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, p := range r.facade.Catalog.List() {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(p.Title, "buy:"+p.ID),
		))
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &kb
}

// allowBuy rate-limits charge creation per user. A nil limiter (dev mode)
// allows everything; limiter errors fail open.
func (r *RealBot) allowBuy(ctx context.Context, tgID int64) bool {
	if r.limiter == nil {
		return true
	}
	ok, err := r.limiter.Allow(ctx, redis.UserCommandKey(tgID, "buy"), buyRateLimit, buyRateWindow)
	if err != nil {
		r.log.Warn().Err(err).Int64("tg_id", tgID).Msg("rate limiter unavailable")
		return true
	}
	return ok
}
