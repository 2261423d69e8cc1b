package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"telegram-pix-subscription/internal/application"
	"telegram-pix-subscription/internal/config"
	"telegram-pix-subscription/internal/domain/ports/adapter"
	"telegram-pix-subscription/internal/infra/redis"
)

// RealBot implements adapter.MessengerBot with tgbotapi and routes updates
// to the facade. Updates arrive either from long polling or, in webhook
// mode, through HandleRaw.
type RealBot struct {
	bot     *tgbotapi.BotAPI
	cfg     *config.BotConfig
	facade  *application.BotFacade
	limiter *redis.RateLimiter
	admins  map[int64]struct{}
	log     *zerolog.Logger

	// updateWorkers is how many goroutines process updates concurrently.
	updateWorkers int
	cancelPolling context.CancelFunc
}

var _ adapter.MessengerBot = (*RealBot)(nil)

func NewRealBot(cfg *config.BotConfig, facade *application.BotFacade, limiter *redis.RateLimiter, logger *zerolog.Logger) (*RealBot, error) {
	if cfg == nil {
		return nil, errors.New("bot config is nil")
	}
	if facade == nil {
		return nil, errors.New("bot facade is nil")
	}

	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, err
	}

	admins := make(map[int64]struct{}, len(cfg.AdminIDs))
	for _, id := range cfg.AdminIDs {
		admins[id] = struct{}{}
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = 5
	}

	botLog := logger.With().Str("component", "TelegramBot").Logger()
	return &RealBot{
		bot:           bot,
		cfg:           cfg,
		facade:        facade,
		limiter:       limiter,
		admins:        admins,
		log:           &botLog,
		updateWorkers: workers,
	}, nil
}

// StartPolling consumes updates until ctx is canceled, fanning them out to
// updateWorkers goroutines.
func (r *RealBot) StartPolling(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := r.bot.GetUpdatesChan(u)

	ctx, cancel := context.WithCancel(ctx)
	r.cancelPolling = cancel

	var wg sync.WaitGroup
	updateChan := make(chan tgbotapi.Update, 100)

	for i := 0; i < r.updateWorkers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for {
				select {
				case update, ok := <-updateChan:
					if !ok {
						return
					}
					if err := r.handleUpdate(ctx, update); err != nil {
						r.log.Error().Err(err).Int("worker", workerID).Msg("update handling failed")
					}
				case <-ctx.Done():
					return
				}
			}
		}(i + 1)
	}

	go func() {
		defer close(updateChan)
		for {
			select {
			case update := <-updates:
				select {
				case updateChan <- update:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	r.log.Info().Int("workers", r.updateWorkers).Msg("polling started")
	<-ctx.Done()
	r.bot.StopReceivingUpdates()
	wg.Wait()
	return nil
}

// StopPolling stops the polling loop gracefully.
func (r *RealBot) StopPolling() {
	if r.cancelPolling != nil {
		r.cancelPolling()
	}
}

// HandleRaw decodes a webhook update body and processes it. Satisfies the
// web server's update sink in webhook mode.
func (r *RealBot) HandleRaw(ctx context.Context, body []byte) error {
	var update tgbotapi.Update
	if err := json.Unmarshal(body, &update); err != nil {
		return err
	}
	return r.handleUpdate(ctx, update)
}

// SendMessage implements adapter.MessengerBot.
func (r *RealBot) SendMessage(ctx context.Context, chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	_, err := r.bot.Send(msg)
	return err
}

func (r *RealBot) sendMarkdown(chatID int64, text string, keyboard *tgbotapi.InlineKeyboardMarkup) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if keyboard != nil {
		msg.ReplyMarkup = keyboard
	}
	_, err := r.bot.Send(msg)
	return err
}

func (r *RealBot) handleUpdate(ctx context.Context, update tgbotapi.Update) error {
	switch {
	case update.CallbackQuery != nil:
		return r.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil && update.Message.From != nil:
		return r.handleMessage(ctx, update.Message)
	default:
		return nil
	}
}

func (r *RealBot) isAdmin(tgID int64) bool {
	_, ok := r.admins[tgID]
	return ok
}

func displayName(u *tgbotapi.User) string {
	if u.UserName != "" {
		return u.UserName
	}
	return u.FirstName
}
