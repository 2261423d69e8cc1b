package repository

import (
	"context"
	"time"

	"telegram-pix-subscription/internal/domain/model"
)

type PaymentRepository interface {
	// Save inserts a payment row. A second unexpired pending payment for the
	// same user trips the partial unique index and returns ErrConflict;
	// callers recover by re-reading the surviving pending row.
	Save(ctx context.Context, tx Tx, p *model.Payment) error

	FindByID(ctx context.Context, tx Tx, id string) (*model.Payment, error)
	FindByGatewayID(ctx context.Context, tx Tx, gatewayPaymentID string) (*model.Payment, error)

	// FindPendingByUser returns the most recent payment with status=pending
	// and expires_at > now for the user, or ErrNotFound.
	FindPendingByUser(ctx context.Context, tx Tx, userID string, now time.Time) (*model.Payment, error)
	FindLastByUser(ctx context.Context, tx Tx, userID string) (*model.Payment, error)

	// UpdateStatus sets the status; confirmed_at is written only when the new
	// status is confirmed, and never overwritten once set.
	UpdateStatus(ctx context.Context, tx Tx, id string, status model.PaymentStatus, now time.Time) error

	// ExpirePendingByUser marks every pending payment of the user as expired.
	// Used by the plan-switch invalidation path.
	ExpirePendingByUser(ctx context.Context, tx Tx, userID string) error

	IncrementReminders(ctx context.Context, tx Tx, id string) error

	// Sweep-job work queues.
	ListExpiredPending(ctx context.Context, tx Tx, now time.Time) ([]*model.Payment, error)
	ListPendingForReminder(ctx context.Context, tx Tx, now time.Time, maxReminders int) ([]*model.Payment, error)
	ListConfirmedUnprocessed(ctx context.Context, tx Tx) ([]*model.Payment, error)

	SumConfirmedByPeriod(ctx context.Context, tx Tx, period string) (int64, error)
}
