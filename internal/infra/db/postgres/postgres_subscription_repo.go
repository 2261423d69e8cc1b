package postgres

import (
	"context"
	"errors"
	"hash/fnv"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-pix-subscription/internal/domain"
	"telegram-pix-subscription/internal/domain/model"
	"telegram-pix-subscription/internal/domain/ports/repository"
)

var _ repository.SubscriptionRepository = (*subscriptionRepo)(nil)

type subscriptionRepo struct{ pool *pgxpool.Pool }

func NewSubscriptionRepo(pool *pgxpool.Pool) *subscriptionRepo {
	return &subscriptionRepo{pool: pool}
}

const subscriptionColumns = `id, user_id, payment_id, plan_id, status, starts_at, ends_at, created_at`

func (r *subscriptionRepo) Save(ctx context.Context, tx repository.Tx, s *model.Subscription) error {
	const q = `
INSERT INTO subscriptions (` + subscriptionColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8);`

	_, err := execSQL(ctx, r.pool, tx, q,
		s.ID, s.UserID, s.PaymentID, s.PlanID, s.Status, s.StartsAt, s.EndsAt, s.CreatedAt)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			// payment_id is unique: a second activation for the same
			// payment lost the race, the caller re-reads the winner.
			return domain.ErrConflict
		case errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, domain.ErrInvalidExecContext):
			return err
		default:
			return domain.ErrOperationFailed
		}
	}
	return nil
}

func (r *subscriptionRepo) FindByPaymentID(ctx context.Context, tx repository.Tx, paymentID string) (*model.Subscription, error) {
	const q = `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE payment_id=$1;`
	return r.queryOne(ctx, tx, q, paymentID)
}

func (r *subscriptionRepo) FindActiveByUser(ctx context.Context, tx repository.Tx, userID string) (*model.Subscription, error) {
	// Stored status decides; the sweep flips rows past their window.
	q := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE user_id=$1 AND status='active' ORDER BY created_at DESC LIMIT 1`
	if _, ok := tx.(pgx.Tx); ok {
		q += ` FOR UPDATE`
	}
	return r.queryOne(ctx, tx, q+`;`, userID)
}

func (r *subscriptionRepo) MarkExpired(ctx context.Context, tx repository.Tx, id string) error {
	const q = `UPDATE subscriptions SET status='expired' WHERE id=$1 AND status='active';`
	cmd, err := execSQL(ctx, r.pool, tx, q, id)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return err
		}
		return domain.ErrOperationFailed
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *subscriptionRepo) ListLapsedActive(ctx context.Context, tx repository.Tx, now time.Time) ([]*model.Subscription, error) {
	const q = `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE status='active' AND ends_at <= $1 ORDER BY ends_at ASC;`
	rows, err := queryRows(ctx, r.pool, tx, q, now)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return nil, err
		}
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.Subscription
	for rows.Next() {
		s := &model.Subscription{}
		if err := rows.Scan(&s.ID, &s.UserID, &s.PaymentID, &s.PlanID, &s.Status, &s.StartsAt, &s.EndsAt, &s.CreatedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

// LockUser takes a transaction-scoped advisory lock keyed on the user id,
// serialising activations for a single user. Only valid inside a transaction.
func (r *subscriptionRepo) LockUser(ctx context.Context, tx repository.Tx, userID string) error {
	t, ok := tx.(pgx.Tx)
	if !ok {
		return domain.ErrInvalidExecContext
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(userID))
	if _, err := t.Exec(ctx, `SELECT pg_advisory_xact_lock($1);`, int64(h.Sum64())); err != nil {
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *subscriptionRepo) CountActiveByPlan(ctx context.Context, tx repository.Tx) (map[string]int64, error) {
	rows, err := queryRows(ctx, r.pool, tx, `SELECT plan_id, COUNT(*) FROM subscriptions WHERE status='active' GROUP BY plan_id;`)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return nil, err
		}
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var planID string
		var n int64
		if err := rows.Scan(&planID, &n); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out[planID] = n
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func (r *subscriptionRepo) queryOne(ctx context.Context, tx repository.Tx, q string, args ...interface{}) (*model.Subscription, error) {
	row, err := pickRow(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, err
	}
	s := &model.Subscription{}
	if err := row.Scan(&s.ID, &s.UserID, &s.PaymentID, &s.PlanID, &s.Status, &s.StartsAt, &s.EndsAt, &s.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return s, nil
}
