package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"telegram-pix-subscription/internal/domain"
	"telegram-pix-subscription/internal/domain/model"
	"telegram-pix-subscription/internal/domain/ports/repository"
	"telegram-pix-subscription/internal/infra/metrics"
)

// Compile-time check
var _ SubscriptionUseCase = (*subscriptionUC)(nil)

type SubscriptionUseCase interface {
	// GetActive returns the user's current subscription by stored status,
	// or ErrNotFound.
	GetActive(ctx context.Context, userID string) (*model.Subscription, error)

	// ExpireLapsed converges active subscriptions whose window has ended to
	// expired. Returns how many rows were flipped.
	ExpireLapsed(ctx context.Context) (int, error)

	CountActiveByPlan(ctx context.Context) (map[string]int64, error)
}

type subscriptionUC struct {
	subs repository.SubscriptionRepository
	log  *zerolog.Logger
}

func NewSubscriptionUseCase(subs repository.SubscriptionRepository, logger *zerolog.Logger) *subscriptionUC {
	l := logger.With().Str("component", "SubscriptionUC").Logger()
	return &subscriptionUC{subs: subs, log: &l}
}

func (u *subscriptionUC) GetActive(ctx context.Context, userID string) (*model.Subscription, error) {
	return u.subs.FindActiveByUser(ctx, repository.NoTX, userID)
}

func (u *subscriptionUC) ExpireLapsed(ctx context.Context) (int, error) {
	items, err := u.subs.ListLapsedActive(ctx, repository.NoTX, time.Now().UTC())
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, s := range items {
		if err := u.subs.MarkExpired(ctx, repository.NoTX, s.ID); err != nil {
			// Not found means a concurrent activation already flipped it.
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			u.log.Error().Err(err).Str("subscription_id", s.ID).Msg("expire lapsed subscription failed")
			continue
		}
		metrics.IncSubscriptionExpired()
		expired++
	}
	if expired > 0 {
		u.log.Info().Int("count", expired).Msg("lapsed subscriptions expired")
	}
	return expired, nil
}

func (u *subscriptionUC) CountActiveByPlan(ctx context.Context) (map[string]int64, error) {
	return u.subs.CountActiveByPlan(ctx, repository.NoTX)
}
