package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-pix-subscription/internal/domain"
	"telegram-pix-subscription/internal/domain/model"
	"telegram-pix-subscription/internal/domain/ports/repository"
)

var _ repository.PaymentRepository = (*paymentRepo)(nil)

type paymentRepo struct{ pool *pgxpool.Pool }

func NewPaymentRepo(pool *pgxpool.Pool) *paymentRepo {
	return &paymentRepo{pool: pool}
}

const paymentColumns = `id, user_id, gateway, gateway_payment_id, external_reference, idempotency_key, plan_id, amount_cents, status, qr_code, qr_code_base64, expires_at, created_at, confirmed_at, reminders_sent`

func (r *paymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	const q = `
INSERT INTO payments (` + paymentColumns + `)
VALUES ($1,$2,$3,NULLIF($4,''),$5,NULLIF($6,''),$7,$8,$9,$10,$11,$12,$13,$14,$15);`

	_, err := execSQL(ctx, r.pool, tx, q,
		p.ID, p.UserID, p.Gateway, p.GatewayPaymentID, p.ExternalRef, p.IdempotencyKey,
		p.PlanID, p.AmountCents, p.Status, p.QRCode, p.QRCodeBase64,
		p.ExpiresAt, p.CreatedAt, p.ConfirmedAt, p.RemindersSent)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return domain.ErrConflict
		case errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, domain.ErrInvalidExecContext):
			return err
		default:
			return domain.ErrOperationFailed
		}
	}
	return nil
}

func (r *paymentRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Payment, error) {
	q := `SELECT ` + paymentColumns + ` FROM payments WHERE id=$1`
	if _, ok := tx.(pgx.Tx); ok {
		q += ` FOR UPDATE`
	}
	return r.queryOne(ctx, tx, q+`;`, id)
}

func (r *paymentRepo) FindByGatewayID(ctx context.Context, tx repository.Tx, gatewayPaymentID string) (*model.Payment, error) {
	q := `SELECT ` + paymentColumns + ` FROM payments WHERE gateway_payment_id=$1`
	if _, ok := tx.(pgx.Tx); ok {
		q += ` FOR UPDATE`
	}
	return r.queryOne(ctx, tx, q+`;`, gatewayPaymentID)
}

func (r *paymentRepo) FindPendingByUser(ctx context.Context, tx repository.Tx, userID string, now time.Time) (*model.Payment, error) {
	const q = `
SELECT ` + paymentColumns + `
  FROM payments
 WHERE user_id=$1 AND status='pending' AND expires_at > $2
 ORDER BY created_at DESC
 LIMIT 1;`
	return r.queryOne(ctx, tx, q, userID, now)
}

func (r *paymentRepo) FindLastByUser(ctx context.Context, tx repository.Tx, userID string) (*model.Payment, error) {
	const q = `
SELECT ` + paymentColumns + `
  FROM payments
 WHERE user_id=$1
 ORDER BY created_at DESC
 LIMIT 1;`
	return r.queryOne(ctx, tx, q, userID)
}

func (r *paymentRepo) UpdateStatus(ctx context.Context, tx repository.Tx, id string, status model.PaymentStatus, now time.Time) error {
	// confirmed_at is written once, only on the transition to confirmed.
	const q = `
UPDATE payments
   SET status=$2,
       confirmed_at = CASE WHEN $2 = 'confirmed' THEN COALESCE(confirmed_at, $3) ELSE confirmed_at END
 WHERE id=$1;`
	cmd, err := execSQL(ctx, r.pool, tx, q, id, status, now)
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

func (r *paymentRepo) ExpirePendingByUser(ctx context.Context, tx repository.Tx, userID string) error {
	const q = `UPDATE payments SET status='expired' WHERE user_id=$1 AND status='pending';`
	_, err := execSQL(ctx, r.pool, tx, q, userID)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *paymentRepo) IncrementReminders(ctx context.Context, tx repository.Tx, id string) error {
	const q = `UPDATE payments SET reminders_sent = reminders_sent + 1 WHERE id=$1;`
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

func (r *paymentRepo) ListExpiredPending(ctx context.Context, tx repository.Tx, now time.Time) ([]*model.Payment, error) {
	const q = `
SELECT ` + paymentColumns + `
  FROM payments
 WHERE status='pending' AND expires_at <= $1
 ORDER BY created_at ASC;`
	return r.queryMany(ctx, tx, q, now)
}

func (r *paymentRepo) ListPendingForReminder(ctx context.Context, tx repository.Tx, now time.Time, maxReminders int) ([]*model.Payment, error) {
	const q = `
SELECT ` + paymentColumns + `
  FROM payments
 WHERE status='pending' AND expires_at > $1 AND reminders_sent < $2
 ORDER BY created_at ASC;`
	return r.queryMany(ctx, tx, q, now, maxReminders)
}

func (r *paymentRepo) ListConfirmedUnprocessed(ctx context.Context, tx repository.Tx) ([]*model.Payment, error) {
	// Left anti-join against subscriptions: confirmed payments no
	// subscription row has consumed yet. This is the sweep work queue.
	const q = `
SELECT p.id, p.user_id, p.gateway, p.gateway_payment_id, p.external_reference, p.idempotency_key, p.plan_id, p.amount_cents, p.status, p.qr_code, p.qr_code_base64, p.expires_at, p.created_at, p.confirmed_at, p.reminders_sent
  FROM payments p
  LEFT JOIN subscriptions s ON s.payment_id = p.id
 WHERE p.status='confirmed' AND s.id IS NULL
 ORDER BY p.confirmed_at ASC;`
	return r.queryMany(ctx, tx, q)
}

func (r *paymentRepo) SumConfirmedByPeriod(ctx context.Context, tx repository.Tx, period string) (int64, error) {
	const q = `SELECT COALESCE(SUM(amount_cents),0) FROM payments WHERE status='confirmed' AND confirmed_at >= DATE_TRUNC($1, NOW());`
	row, err := pickRow(ctx, r.pool, tx, q, period)
	if err != nil {
		return 0, err
	}
	var sum int64
	if err := row.Scan(&sum); err != nil {
		return 0, domain.ErrReadDatabaseRow
	}
	return sum, nil
}

func (r *paymentRepo) queryOne(ctx context.Context, tx repository.Tx, q string, args ...interface{}) (*model.Payment, error) {
	row, err := pickRow(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, err
	}
	p, err := scanPayment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return p, nil
}

func (r *paymentRepo) queryMany(ctx context.Context, tx repository.Tx, q string, args ...interface{}) ([]*model.Payment, error) {
	rows, err := queryRows(ctx, r.pool, tx, q, args...)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return nil, err
		}
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func scanPayment(row pgx.Row) (*model.Payment, error) {
	p := &model.Payment{}
	var gatewayID, idemKey *string
	if err := row.Scan(
		&p.ID, &p.UserID, &p.Gateway, &gatewayID, &p.ExternalRef, &idemKey,
		&p.PlanID, &p.AmountCents, &p.Status, &p.QRCode, &p.QRCodeBase64,
		&p.ExpiresAt, &p.CreatedAt, &p.ConfirmedAt, &p.RemindersSent,
	); err != nil {
		return nil, err
	}
	if gatewayID != nil {
		p.GatewayPaymentID = *gatewayID
	}
	if idemKey != nil {
		p.IdempotencyKey = *idemKey
	}
	return p, nil
}
