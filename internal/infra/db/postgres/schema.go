package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
)

// schemaDDL defines the three relations. All timestamps are TIMESTAMPTZ and
// written in UTC. Two constraints carry the core invariants:
//   - payments_one_pending_per_user: at most one pending payment per user;
//   - subscriptions.payment_id UNIQUE: a payment activates at most one
//     subscription, the backstop for idempotent reconciliation.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS users (
    id           TEXT PRIMARY KEY,
    telegram_id  BIGINT UNIQUE NOT NULL,
    display_name TEXT NOT NULL DEFAULT '',
    created_at   TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS payments (
    id                 TEXT PRIMARY KEY,
    user_id            TEXT NOT NULL REFERENCES users(id),
    gateway            TEXT NOT NULL,
    gateway_payment_id TEXT UNIQUE,
    external_reference TEXT NOT NULL DEFAULT '',
    idempotency_key    TEXT,
    plan_id            TEXT NOT NULL,
    amount_cents       BIGINT NOT NULL,
    status             TEXT NOT NULL DEFAULT 'pending',
    qr_code            TEXT NOT NULL DEFAULT '',
    qr_code_base64     TEXT NOT NULL DEFAULT '',
    expires_at         TIMESTAMPTZ NOT NULL,
    created_at         TIMESTAMPTZ NOT NULL,
    confirmed_at       TIMESTAMPTZ,
    reminders_sent     INT NOT NULL DEFAULT 0
);

CREATE UNIQUE INDEX IF NOT EXISTS payments_one_pending_per_user
    ON payments (user_id) WHERE status = 'pending';
CREATE INDEX IF NOT EXISTS payments_status_expires_idx
    ON payments (status, expires_at);

CREATE TABLE IF NOT EXISTS subscriptions (
    id         TEXT PRIMARY KEY,
    user_id    TEXT NOT NULL REFERENCES users(id),
    payment_id TEXT NOT NULL UNIQUE REFERENCES payments(id),
    plan_id    TEXT NOT NULL,
    status     TEXT NOT NULL DEFAULT 'active',
    starts_at  TIMESTAMPTZ NOT NULL,
    ends_at    TIMESTAMPTZ NOT NULL,
    created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS subscriptions_user_status_idx
    ON subscriptions (user_id, status);
`

// InitSchema creates the tables and indexes if they do not exist.
func InitSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schemaDDL); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}
