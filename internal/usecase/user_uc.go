package usecase

import (
	"context"
	"errors"

	"telegram-pix-subscription/internal/domain"
	"telegram-pix-subscription/internal/domain/model"
	"telegram-pix-subscription/internal/domain/ports/repository"
)

// Compile-time check
var _ UserUseCase = (*userUC)(nil)

type UserUseCase interface {
	// RegisterOrFetch returns the user for the Telegram id, creating the row
	// on first contact.
	RegisterOrFetch(ctx context.Context, tgID int64, displayName string) (*model.User, error)
	GetByTelegramID(ctx context.Context, tgID int64) (*model.User, error)
	Count(ctx context.Context) (int64, error)
}

type userUC struct {
	users repository.UserRepository
}

func NewUserUseCase(users repository.UserRepository) *userUC {
	return &userUC{users: users}
}

func (u *userUC) RegisterOrFetch(ctx context.Context, tgID int64, displayName string) (*model.User, error) {
	existing, err := u.users.FindByTelegramID(ctx, repository.NoTX, tgID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	user, err := model.NewUser(newID(), tgID, displayName)
	if err != nil {
		return nil, err
	}
	if err := u.users.Save(ctx, repository.NoTX, user); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			// concurrent first contact; the other insert won
			return u.users.FindByTelegramID(ctx, repository.NoTX, tgID)
		}
		return nil, err
	}
	return user, nil
}

func (u *userUC) GetByTelegramID(ctx context.Context, tgID int64) (*model.User, error) {
	return u.users.FindByTelegramID(ctx, repository.NoTX, tgID)
}

func (u *userUC) Count(ctx context.Context) (int64, error) {
	return u.users.CountUsers(ctx, repository.NoTX)
}
