package repository

import (
	"context"

	"telegram-pix-subscription/internal/domain/model"
)

type UserRepository interface {
	Save(ctx context.Context, tx Tx, u *model.User) error
	FindByTelegramID(ctx context.Context, tx Tx, tgID int64) (*model.User, error)
	FindByID(ctx context.Context, tx Tx, id string) (*model.User, error)
	CountUsers(ctx context.Context, tx Tx) (int64, error)
}
