package usecase

import (
	"context"

	"github.com/rs/zerolog"

	"telegram-pix-subscription/internal/domain/ports/repository"
)

// Compile-time check
var _ StatsUseCase = (*statsUC)(nil)

// StatsUseCase aggregates the numbers served by the admin stats endpoint.
type StatsUseCase interface {
	// Totals returns the user count and active subscriptions per plan.
	Totals(ctx context.Context) (users int64, activeByPlan map[string]int64, err error)

	// Revenue returns confirmed revenue in cents for the current week,
	// month and year.
	Revenue(ctx context.Context) (week, month, year int64, err error)
}

type statsUC struct {
	users    repository.UserRepository
	payments repository.PaymentRepository
	subs     repository.SubscriptionRepository
	log      *zerolog.Logger
}

func NewStatsUseCase(
	users repository.UserRepository,
	payments repository.PaymentRepository,
	subs repository.SubscriptionRepository,
	logger *zerolog.Logger,
) *statsUC {
	l := logger.With().Str("component", "StatsUC").Logger()
	return &statsUC{users: users, payments: payments, subs: subs, log: &l}
}

func (u *statsUC) Totals(ctx context.Context) (int64, map[string]int64, error) {
	users, err := u.users.CountUsers(ctx, repository.NoTX)
	if err != nil {
		return 0, nil, err
	}
	byPlan, err := u.subs.CountActiveByPlan(ctx, repository.NoTX)
	if err != nil {
		return 0, nil, err
	}
	return users, byPlan, nil
}

func (u *statsUC) Revenue(ctx context.Context) (int64, int64, int64, error) {
	week, err := u.payments.SumConfirmedByPeriod(ctx, repository.NoTX, "week")
	if err != nil {
		return 0, 0, 0, err
	}
	month, err := u.payments.SumConfirmedByPeriod(ctx, repository.NoTX, "month")
	if err != nil {
		return 0, 0, 0, err
	}
	year, err := u.payments.SumConfirmedByPeriod(ctx, repository.NoTX, "year")
	if err != nil {
		return 0, 0, 0, err
	}
	return week, month, year, nil
}
