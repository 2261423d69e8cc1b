package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-pix-subscription/internal/domain"
	"telegram-pix-subscription/internal/domain/model"
	"telegram-pix-subscription/internal/domain/ports/repository"
)

var _ repository.UserRepository = (*userRepo)(nil)

type userRepo struct{ pool *pgxpool.Pool }

func NewUserRepo(pool *pgxpool.Pool) *userRepo {
	return &userRepo{pool: pool}
}

func (r *userRepo) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	// Upsert on id so a re-register only refreshes the display name.
	// A duplicate telegram_id from a concurrent first-registration still
	// trips the unique constraint and surfaces as ErrConflict.
	const q = `
INSERT INTO users (id, telegram_id, display_name, created_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (id) DO UPDATE SET display_name = EXCLUDED.display_name;`

	_, err := execSQL(ctx, r.pool, tx, q, u.ID, u.TelegramID, u.DisplayName, u.CreatedAt)
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

func (r *userRepo) FindByTelegramID(ctx context.Context, tx repository.Tx, telegramID int64) (*model.User, error) {
	const q = `SELECT id, telegram_id, display_name, created_at FROM users WHERE telegram_id=$1;`
	return r.queryOne(ctx, tx, q, telegramID)
}

func (r *userRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	const q = `SELECT id, telegram_id, display_name, created_at FROM users WHERE id=$1;`
	return r.queryOne(ctx, tx, q, id)
}

func (r *userRepo) CountUsers(ctx context.Context, tx repository.Tx) (int64, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT COUNT(*) FROM users;`)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := row.Scan(&n); err != nil {
		return 0, domain.ErrReadDatabaseRow
	}
	return n, nil
}

func (r *userRepo) queryOne(ctx context.Context, tx repository.Tx, q string, args ...interface{}) (*model.User, error) {
	row, err := pickRow(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, err
	}
	u := &model.User{}
	if err := row.Scan(&u.ID, &u.TelegramID, &u.DisplayName, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return u, nil
}
