package repository

import (
	"context"
	"time"

	"telegram-pix-subscription/internal/domain/model"
)

type SubscriptionRepository interface {
	// Save inserts a subscription. A duplicate payment_id returns
	// ErrConflict; that constraint is the correctness backstop against
	// double activation of one payment.
	Save(ctx context.Context, tx Tx, s *model.Subscription) error

	FindByPaymentID(ctx context.Context, tx Tx, paymentID string) (*model.Subscription, error)

	// FindActiveByUser checks stored status only, not the clock; the
	// stacking rule in the reconciliation engine depends on that.
	FindActiveByUser(ctx context.Context, tx Tx, userID string) (*model.Subscription, error)

	MarkExpired(ctx context.Context, tx Tx, id string) error

	// ListLapsedActive returns active rows whose window ended at or before
	// now. The sweep converges them to expired.
	ListLapsedActive(ctx context.Context, tx Tx, now time.Time) ([]*model.Subscription, error)

	// LockUser takes a per-user advisory lock scoped to the surrounding
	// transaction. Serializes activations for one user across processes.
	LockUser(ctx context.Context, tx Tx, userID string) error

	CountActiveByPlan(ctx context.Context, tx Tx) (map[string]int64, error)
}
