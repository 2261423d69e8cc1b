package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"telegram-pix-subscription/internal/domain"
	"telegram-pix-subscription/internal/domain/model"
	"telegram-pix-subscription/internal/domain/ports/repository"
)

func seedSub(t *testing.T, subs *memSubRepo, id, userID, planID string, endsAt time.Time) *model.Subscription {
	t.Helper()
	s := &model.Subscription{
		ID: id, UserID: userID, PaymentID: "pay-" + id, PlanID: planID,
		Status:    model.SubscriptionStatusActive,
		StartsAt:  endsAt.Add(-7 * 24 * time.Hour),
		EndsAt:    endsAt,
		CreatedAt: endsAt.Add(-7 * 24 * time.Hour),
	}
	if err := subs.Save(context.Background(), repository.NoTX, s); err != nil {
		t.Fatalf("seed subscription %s: %v", id, err)
	}
	return s
}

func TestExpireLapsed(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	t.Run("flips only rows past their window", func(t *testing.T) {
		subs := newMemSubRepo()
		uc := NewSubscriptionUseCase(subs, testLogger())

		seedSub(t, subs, "s-lapsed", "u1", "semanal", now.Add(-60*24*time.Hour))
		seedSub(t, subs, "s-live", "u2", "mensal", now.Add(3*24*time.Hour))

		n, err := uc.ExpireLapsed(ctx)
		if err != nil {
			t.Fatalf("expire lapsed: %v", err)
		}
		if n != 1 {
			t.Fatalf("expired = %d, want 1", n)
		}

		if _, err := uc.GetActive(ctx, "u1"); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("lapsed row still reported active: err = %v", err)
		}
		live, err := uc.GetActive(ctx, "u2")
		if err != nil {
			t.Fatalf("live lookup: %v", err)
		}
		if live.ID != "s-live" {
			t.Fatalf("active = %s, want s-live", live.ID)
		}

		byPlan, err := uc.CountActiveByPlan(ctx)
		if err != nil {
			t.Fatalf("count: %v", err)
		}
		if byPlan["semanal"] != 0 || byPlan["mensal"] != 1 {
			t.Fatalf("counts after convergence = %v", byPlan)
		}
	})

	t.Run("second run finds nothing", func(t *testing.T) {
		subs := newMemSubRepo()
		uc := NewSubscriptionUseCase(subs, testLogger())
		seedSub(t, subs, "s1", "u1", "semanal", now.Add(-time.Hour))

		if n, err := uc.ExpireLapsed(ctx); err != nil || n != 1 {
			t.Fatalf("first run = (%d, %v), want (1, nil)", n, err)
		}
		if n, err := uc.ExpireLapsed(ctx); err != nil || n != 0 {
			t.Fatalf("second run = (%d, %v), want (0, nil)", n, err)
		}
	})

	t.Run("activation after convergence starts a fresh window", func(t *testing.T) {
		uc, payments, subs := newReconcileFixture()
		subUC := NewSubscriptionUseCase(subs, testLogger())

		// A 7-day window that ended 60 days ago, still stored as active.
		seedSub(t, subs, "s-old", "u1", "semanal", now.Add(-60*24*time.Hour))
		if err := payments.Save(ctx, repository.NoTX, confirmedPayment("p1", "u1", "mensal")); err != nil {
			t.Fatalf("seed payment: %v", err)
		}

		if _, err := subUC.ExpireLapsed(ctx); err != nil {
			t.Fatalf("expire lapsed: %v", err)
		}
		sub, err := uc.ActivateSubscriptionFromPayment(ctx, "p1")
		if err != nil {
			t.Fatalf("activate: %v", err)
		}

		// The paid 30 days must lie ahead of now, not be swallowed by the
		// long-lapsed window.
		if !sub.EndsAt.After(now.Add(29 * 24 * time.Hour)) {
			t.Fatalf("ends_at = %v, want ~30 days ahead of %v", sub.EndsAt, now)
		}
	})
}
