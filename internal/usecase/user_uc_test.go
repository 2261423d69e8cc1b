package usecase

import (
	"context"
	"testing"

	"telegram-pix-subscription/internal/domain"
	"telegram-pix-subscription/internal/domain/model"
	"telegram-pix-subscription/internal/domain/ports/repository"
)

func TestRegisterOrFetch(t *testing.T) {
	ctx := context.Background()

	t.Run("first contact creates the user", func(t *testing.T) {
		users := newMemUserRepo()
		uc := NewUserUseCase(users)

		u, err := uc.RegisterOrFetch(ctx, 111, "alice")
		if err != nil {
			t.Fatalf("register: %v", err)
		}
		if u.TelegramID != 111 || u.DisplayName != "alice" {
			t.Fatalf("unexpected user: %+v", u)
		}
		if u.ID == "" {
			t.Fatalf("id not assigned")
		}
	})

	t.Run("second contact returns the same user", func(t *testing.T) {
		users := newMemUserRepo()
		uc := NewUserUseCase(users)

		first, err := uc.RegisterOrFetch(ctx, 111, "alice")
		if err != nil {
			t.Fatalf("register: %v", err)
		}
		second, err := uc.RegisterOrFetch(ctx, 111, "alice-renamed")
		if err != nil {
			t.Fatalf("refetch: %v", err)
		}
		if second.ID != first.ID {
			t.Fatalf("got a new user on refetch: %s vs %s", second.ID, first.ID)
		}
	})

	t.Run("concurrent first contact recovers via re-read", func(t *testing.T) {
		users := newMemUserRepo()
		uc := NewUserUseCase(users)

		// The other instance wins the insert between our miss and our save.
		winner, err := model.NewUser("u-winner", 111, "alice")
		if err != nil {
			t.Fatalf("new user: %v", err)
		}
		users.saveHook = func(u *model.User) error {
			if u.ID == winner.ID {
				return nil
			}
			users.saveHook = nil
			if err := users.Save(ctx, repository.NoTX, winner); err != nil {
				return err
			}
			return domain.ErrConflict
		}

		got, err := uc.RegisterOrFetch(ctx, 111, "alice")
		if err != nil {
			t.Fatalf("conflicted register: %v", err)
		}
		if got.ID != winner.ID {
			t.Fatalf("conflict recovery returned %s, want %s", got.ID, winner.ID)
		}
	})
}

func TestUserCount(t *testing.T) {
	ctx := context.Background()
	users := newMemUserRepo()
	uc := NewUserUseCase(users)

	for i := int64(1); i <= 3; i++ {
		if _, err := uc.RegisterOrFetch(ctx, i, "u"); err != nil {
			t.Fatalf("register %d: %v", i, err)
		}
	}
	n, err := uc.Count(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 3 {
		t.Fatalf("count = %d, want 3", n)
	}
}
