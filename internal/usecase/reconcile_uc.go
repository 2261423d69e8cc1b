package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"telegram-pix-subscription/internal/domain"
	"telegram-pix-subscription/internal/domain/model"
	"telegram-pix-subscription/internal/domain/ports/repository"
	"telegram-pix-subscription/internal/infra/metrics"
)

// Compile-time check
var _ ReconcileUseCase = (*reconcileUC)(nil)

// ReconcileUseCase converts confirmed payments into subscription windows.
// It is invoked from both the webhook path and the periodic sweep, possibly
// for the same payment at the same time.
type ReconcileUseCase interface {
	// ActivateSubscriptionFromPayment grants or extends the subscription paid
	// for by paymentID. Calling it N times for one payment yields the same
	// single subscription row.
	ActivateSubscriptionFromPayment(ctx context.Context, paymentID string) (*model.Subscription, error)
}

type reconcileUC struct {
	payments repository.PaymentRepository
	subs     repository.SubscriptionRepository
	catalog  *model.Catalog
	tm       repository.TransactionManager
	log      *zerolog.Logger
}

func NewReconcileUseCase(
	payments repository.PaymentRepository,
	subs repository.SubscriptionRepository,
	catalog *model.Catalog,
	tm repository.TransactionManager,
	logger *zerolog.Logger,
) *reconcileUC {
	l := logger.With().Str("component", "ReconcileUC").Logger()
	return &reconcileUC{payments: payments, subs: subs, catalog: catalog, tm: tm, log: &l}
}

func (uc *reconcileUC) ActivateSubscriptionFromPayment(ctx context.Context, paymentID string) (*model.Subscription, error) {
	var out *model.Subscription
	var created, stacked bool

	txOpt := pgx.TxOptions{IsoLevel: pgx.Serializable}
	err := uc.tm.WithTx(ctx, txOpt, func(ctx context.Context, tx repository.Tx) error {
		payment, err := uc.payments.FindByID(ctx, tx, paymentID)
		if err != nil {
			return err
		}
		if payment.Status != model.PaymentStatusConfirmed {
			return fmt.Errorf("payment %s has status %s: %w", payment.ID, payment.Status, domain.ErrInvalidState)
		}

		// Primary idempotency check: the payment may already be consumed by
		// a subscription created from a concurrent webhook or sweep call.
		existing, err := uc.subs.FindByPaymentID(ctx, tx, paymentID)
		if err == nil {
			out = existing
			return nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return err
		}

		plan, err := uc.catalog.Get(payment.PlanID)
		if err != nil {
			return err
		}

		// Serialize activations per user before reading the current window.
		if err := uc.subs.LockUser(ctx, tx, payment.UserID); err != nil {
			return err
		}

		now := time.Now().UTC()
		startsAt, baseEnd := now, now
		current, err := uc.subs.FindActiveByUser(ctx, tx, payment.UserID)
		switch {
		case err == nil:
			// Stacking: the renewal keeps the original start and appends to
			// the remaining entitlement. Stored status decides, not the clock.
			startsAt = current.StartsAt
			baseEnd = current.EndsAt
			stacked = true
		case errors.Is(err, domain.ErrNotFound):
			// fresh start
		default:
			return err
		}

		if stacked {
			if err := uc.subs.MarkExpired(ctx, tx, current.ID); err != nil {
				return err
			}
		}

		sub := &model.Subscription{
			ID:        newID(),
			UserID:    payment.UserID,
			PaymentID: payment.ID,
			PlanID:    payment.PlanID,
			Status:    model.SubscriptionStatusActive,
			StartsAt:  startsAt,
			EndsAt:    baseEnd.Add(plan.Duration()),
			CreatedAt: now,
		}
		if err := uc.subs.Save(ctx, tx, sub); err != nil {
			return err
		}
		out = sub
		created = true
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			// Lost the race on subscriptions.payment_id: the concurrent
			// caller committed first, so its row is the answer.
			uc.log.Info().Str("payment_id", paymentID).Msg("activation race lost; returning existing subscription")
			return uc.subs.FindByPaymentID(ctx, repository.NoTX, paymentID)
		}
		return nil, err
	}

	if created {
		uc.log.Info().
			Str("payment_id", paymentID).
			Str("subscription_id", out.ID).
			Str("user_id", out.UserID).
			Time("starts_at", out.StartsAt).
			Time("ends_at", out.EndsAt).
			Bool("stacked", stacked).
			Msg("subscription activated")
		metrics.IncSubscriptionActivated(stacked)
		if stacked {
			metrics.IncSubscriptionExpired()
		}
	}
	return out, nil
}
