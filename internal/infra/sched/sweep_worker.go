package sched

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"telegram-pix-subscription/internal/domain"
	"telegram-pix-subscription/internal/infra/metrics"
	"telegram-pix-subscription/internal/infra/redis"
	"telegram-pix-subscription/internal/usecase"
)

const sweepLockKey = "sweep:leader"

// SweepWorker is the periodic safety net behind the webhook path. Each tick
// runs four passes:
//  1. converge lapsed subscriptions from active to expired;
//  2. activate subscriptions for confirmed payments no subscription consumed
//     yet (missed or still-in-flight webhooks);
//  3. flag overdue pending payments as expired;
//  4. remind users whose charge is still payable.
//
// Convergence runs first so activations in the same tick never stack onto a
// window that already ended.
//
// A Redis lock keeps concurrent instances from working the same tick; losing
// the lock skips the tick, it never blocks.
type SweepWorker struct {
	interval     time.Duration
	maxReminders int
	paymentUC    usecase.PaymentUseCase
	reconcileUC  usecase.ReconcileUseCase
	subUC        usecase.SubscriptionUseCase
	notifUC      usecase.NotificationUseCase
	locker       redis.Locker
	log          *zerolog.Logger
}

func NewSweepWorker(
	interval time.Duration,
	maxReminders int,
	paymentUC usecase.PaymentUseCase,
	reconcileUC usecase.ReconcileUseCase,
	subUC usecase.SubscriptionUseCase,
	notifUC usecase.NotificationUseCase,
	locker redis.Locker,
	logger *zerolog.Logger,
) *SweepWorker {
	compLog := logger.With().Str("component", "SweepWorker").Logger()
	return &SweepWorker{
		interval:     interval,
		maxReminders: maxReminders,
		paymentUC:    paymentUC,
		reconcileUC:  reconcileUC,
		subUC:        subUC,
		notifUC:      notifUC,
		locker:       locker,
		log:          &compLog,
	}
}

func (w *SweepWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("Starting sweep worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping sweep worker")
			return ctx.Err()
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *SweepWorker) tick(ctx context.Context) {
	token, err := w.locker.TryLock(ctx, sweepLockKey, w.interval)
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			metrics.IncSweepRun("skipped")
			return
		}
		w.log.Error().Err(err).Msg("sweep lock error")
		metrics.IncSweepRun("error")
		return
	}
	defer func() {
		if err := w.locker.Unlock(ctx, sweepLockKey, token); err != nil {
			w.log.Warn().Err(err).Msg("sweep unlock failed")
		}
	}()

	w.expireLapsedSubscriptions(ctx)
	w.processConfirmed(ctx)
	w.flagExpired(ctx)
	w.sendReminders(ctx)
	metrics.IncSweepRun("ok")
}

// expireLapsedSubscriptions flips active rows whose window has ended. Until
// this runs, /status and the plan counters would keep reporting them.
func (w *SweepWorker) expireLapsedSubscriptions(ctx context.Context) {
	n, err := w.subUC.ExpireLapsed(ctx)
	if err != nil {
		w.log.Error().Err(err).Msg("sweep: expire lapsed subscriptions failed")
		metrics.IncSweepItem("expire_subscription", "error")
		return
	}
	if n > 0 {
		metrics.IncSweepItem("expire_subscription", "ok")
		w.log.Info().Int("count", n).Msg("sweep: lapsed subscriptions expired")
	}
}

// processConfirmed re-drives reconciliation for confirmed payments without a
// subscription row. Activation is idempotent, so racing a live webhook for
// the same payment is harmless.
func (w *SweepWorker) processConfirmed(ctx context.Context) {
	items, err := w.paymentUC.ListConfirmedUnprocessed(ctx)
	if err != nil {
		w.log.Error().Err(err).Msg("sweep: list confirmed unprocessed failed")
		return
	}
	for _, p := range items {
		if _, err := w.reconcileUC.ActivateSubscriptionFromPayment(ctx, p.ID); err != nil {
			w.log.Error().Err(err).Str("payment_id", p.ID).Msg("sweep: activation failed")
			metrics.IncSweepItem("activate", "error")
			continue
		}
		metrics.IncSweepItem("activate", "ok")
	}
	if len(items) > 0 {
		w.log.Info().Int("count", len(items)).Msg("sweep: confirmed payments processed")
	}
}

// flagExpired marks overdue pending payments as expired. The flag is
// recoverable: a late approval still confirms the payment, expiry only stops
// the charge from being offered or reminded about.
func (w *SweepWorker) flagExpired(ctx context.Context) {
	items, err := w.paymentUC.ListExpiredPending(ctx)
	if err != nil {
		w.log.Error().Err(err).Msg("sweep: list expired pending failed")
		return
	}
	for _, p := range items {
		if _, err := w.paymentUC.ApplyGatewayStatus(ctx, p.ID, "expired"); err != nil {
			w.log.Error().Err(err).Str("payment_id", p.ID).Msg("sweep: expire failed")
			metrics.IncSweepItem("expire", "error")
			continue
		}
		metrics.IncSweepItem("expire", "ok")
	}
	if len(items) > 0 {
		w.log.Info().Int("count", len(items)).Msg("sweep: overdue pending payments expired")
	}
}

func (w *SweepWorker) sendReminders(ctx context.Context) {
	sent, err := w.notifUC.SendPendingReminders(ctx, w.maxReminders)
	if err != nil {
		w.log.Error().Err(err).Msg("sweep: reminders failed")
		return
	}
	if sent > 0 {
		metrics.IncSweepItem("remind", "ok")
		w.log.Info().Int("count", sent).Msg("sweep: reminders sent")
	}
}
