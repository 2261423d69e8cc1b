package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"telegram-pix-subscription/internal/domain"
	"telegram-pix-subscription/internal/domain/model"
	"telegram-pix-subscription/internal/domain/ports/adapter"
	"telegram-pix-subscription/internal/domain/ports/repository"
	"telegram-pix-subscription/internal/infra/metrics"
)

// Compile-time check
var _ PaymentUseCase = (*paymentUC)(nil)

type PaymentUseCase interface {
	// CreatePixCharge returns the payable charge for the plan, reusing an
	// unexpired pending payment for the same plan and invalidating it on a
	// plan switch.
	CreatePixCharge(ctx context.Context, userID, planID string) (*model.Payment, error)

	// GetPendingPayment returns the user's most recent unexpired pending
	// payment, or ErrNotFound.
	GetPendingPayment(ctx context.Context, userID string) (*model.Payment, error)

	// GetByGatewayID resolves a payment by the id the gateway assigned.
	GetByGatewayID(ctx context.Context, gatewayPaymentID string) (*model.Payment, error)

	// ConfirmPayment is idempotent: a confirmed payment is returned unchanged.
	ConfirmPayment(ctx context.Context, gatewayPaymentID string) (*model.Payment, error)

	// ApplyGatewayStatus maps a provider status string onto the payment and
	// persists the transition. Non-terminal provider statuses are a no-op.
	ApplyGatewayStatus(ctx context.Context, paymentID, gatewayStatus string) (*model.Payment, error)

	// CheckPendingStatus queries the gateway for the user's pending charge
	// without mutating local state.
	CheckPendingStatus(ctx context.Context, userID string) (string, error)

	ListExpiredPending(ctx context.Context) ([]*model.Payment, error)
	ListPendingForReminder(ctx context.Context, maxReminders int) ([]*model.Payment, error)
	ListConfirmedUnprocessed(ctx context.Context) ([]*model.Payment, error)
	SumConfirmedByPeriod(ctx context.Context, period string) (int64, error)
}

type paymentUC struct {
	payments  repository.PaymentRepository
	catalog   *model.Catalog
	gateway   adapter.PaymentGateway
	chargeTTL time.Duration
	log       *zerolog.Logger
}

func NewPaymentUseCase(
	payments repository.PaymentRepository,
	catalog *model.Catalog,
	gateway adapter.PaymentGateway,
	chargeTTL time.Duration,
	logger *zerolog.Logger,
) *paymentUC {
	if chargeTTL <= 0 {
		chargeTTL = 30 * time.Minute
	}
	l := logger.With().Str("component", "PaymentUC").Logger()
	return &paymentUC{payments: payments, catalog: catalog, gateway: gateway, chargeTTL: chargeTTL, log: &l}
}

func (u *paymentUC) CreatePixCharge(ctx context.Context, userID, planID string) (*model.Payment, error) {
	plan, err := u.catalog.Get(planID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	pending, err := u.payments.FindPendingByUser(ctx, repository.NoTX, userID, now)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if pending != nil {
		if pending.PlanID == planID {
			u.log.Info().Str("payment_id", pending.ID).Msg("reusing pending charge for same plan")
			return pending, nil
		}
		// Plan switch: the old charge must stop being payable before a new
		// one exists, so the user never holds two live QR codes.
		u.log.Info().Str("payment_id", pending.ID).Str("old_plan", pending.PlanID).Str("new_plan", planID).
			Msg("plan switch; expiring pending charge")
		if err := u.payments.ExpirePendingByUser(ctx, repository.NoTX, userID); err != nil {
			return nil, err
		}
		metrics.IncPayment(string(model.PaymentStatusExpired))
	}

	externalRef := uuid.NewString()
	expiresAt := now.Add(u.chargeTTL)
	charge, err := u.gateway.CreateCharge(ctx, plan.PriceCents, plan.Title, userID, externalRef, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("create charge: %w", err)
	}

	p := &model.Payment{
		ID:               newID(),
		UserID:           userID,
		Gateway:          u.gateway.Name(),
		GatewayPaymentID: charge.GatewayPaymentID,
		ExternalRef:      externalRef,
		PlanID:           planID,
		AmountCents:      plan.PriceCents,
		Status:           model.PaymentStatusPending,
		QRCode:           charge.QRCode,
		QRCodeBase64:     charge.QRCodeBase64,
		ExpiresAt:        expiresAt,
		CreatedAt:        now,
	}
	if err := u.payments.Save(ctx, repository.NoTX, p); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			// A concurrent request created the pending row first; return it
			// instead of surfacing the conflict.
			u.log.Warn().Str("user_id", userID).Msg("pending charge conflict; reusing winner")
			return u.payments.FindPendingByUser(ctx, repository.NoTX, userID, now)
		}
		return nil, err
	}
	metrics.IncPayment(string(model.PaymentStatusPending))
	u.log.Info().Str("payment_id", p.ID).Str("gateway_id", p.GatewayPaymentID).Str("plan", planID).
		Msg("pix charge created")
	return p, nil
}

func (u *paymentUC) GetPendingPayment(ctx context.Context, userID string) (*model.Payment, error) {
	return u.payments.FindPendingByUser(ctx, repository.NoTX, userID, time.Now().UTC())
}

func (u *paymentUC) GetByGatewayID(ctx context.Context, gatewayPaymentID string) (*model.Payment, error) {
	return u.payments.FindByGatewayID(ctx, repository.NoTX, gatewayPaymentID)
}

func (u *paymentUC) ConfirmPayment(ctx context.Context, gatewayPaymentID string) (*model.Payment, error) {
	p, err := u.payments.FindByGatewayID(ctx, repository.NoTX, gatewayPaymentID)
	if err != nil {
		return nil, err
	}
	if p.Status == model.PaymentStatusConfirmed {
		return p, nil
	}
	// Only pending and expired charges can confirm; expired covers the
	// late-approval recovery after a sweep flag. Cancelled and rejected
	// stay where they are.
	if p.Status.IsTerminal() && p.Status != model.PaymentStatusExpired {
		return nil, fmt.Errorf("payment %s has status %s: %w", p.ID, p.Status, domain.ErrInvalidState)
	}

	now := time.Now().UTC()
	if err := u.payments.UpdateStatus(ctx, repository.NoTX, p.ID, model.PaymentStatusConfirmed, now); err != nil {
		return nil, err
	}
	p.Status = model.PaymentStatusConfirmed
	p.ConfirmedAt = &now
	metrics.IncPayment(string(model.PaymentStatusConfirmed))
	metrics.AddPaymentRevenue(p.AmountCents)
	u.log.Info().Str("payment_id", p.ID).Str("gateway_id", gatewayPaymentID).Msg("payment confirmed")
	return p, nil
}

func (u *paymentUC) ApplyGatewayStatus(ctx context.Context, paymentID, gatewayStatus string) (*model.Payment, error) {
	p, err := u.payments.FindByID(ctx, repository.NoTX, paymentID)
	if err != nil {
		return nil, err
	}

	status, terminal := MapGatewayStatus(gatewayStatus)
	if !terminal {
		return p, nil
	}
	if p.Status == status {
		return p, nil
	}
	if p.Status.IsTerminal() {
		// Terminal states admit one transition: expired -> confirmed, the
		// recovery for a charge the sweep flagged before a late approval
		// arrived. Everything else is sticky — a confirmed payment must stay
		// in the activation queue until reconciliation consumes it.
		if p.Status != model.PaymentStatusExpired || status != model.PaymentStatusConfirmed {
			u.log.Warn().Str("payment_id", p.ID).Str("current", string(p.Status)).
				Str("gateway_status", gatewayStatus).Msg("ignoring gateway status for settled payment")
			return p, nil
		}
	}
	if status == model.PaymentStatusConfirmed {
		return u.ConfirmPayment(ctx, p.GatewayPaymentID)
	}

	now := time.Now().UTC()
	if err := u.payments.UpdateStatus(ctx, repository.NoTX, p.ID, status, now); err != nil {
		return nil, err
	}
	p.Status = status
	metrics.IncPayment(string(status))
	u.log.Info().Str("payment_id", p.ID).Str("status", string(status)).Msg("payment status updated")
	return p, nil
}

func (u *paymentUC) CheckPendingStatus(ctx context.Context, userID string) (string, error) {
	pending, err := u.GetPendingPayment(ctx, userID)
	if err != nil {
		return "", err
	}
	status, err := u.gateway.GetStatus(ctx, pending.GatewayPaymentID)
	if err != nil {
		return "", fmt.Errorf("gateway status check: %w", domain.ErrUpstreamUnavailable)
	}
	return status, nil
}

func (u *paymentUC) ListExpiredPending(ctx context.Context) ([]*model.Payment, error) {
	return u.payments.ListExpiredPending(ctx, repository.NoTX, time.Now().UTC())
}

func (u *paymentUC) ListPendingForReminder(ctx context.Context, maxReminders int) ([]*model.Payment, error) {
	return u.payments.ListPendingForReminder(ctx, repository.NoTX, time.Now().UTC(), maxReminders)
}

func (u *paymentUC) ListConfirmedUnprocessed(ctx context.Context) ([]*model.Payment, error) {
	return u.payments.ListConfirmedUnprocessed(ctx, repository.NoTX)
}

func (u *paymentUC) SumConfirmedByPeriod(ctx context.Context, period string) (int64, error) {
	return u.payments.SumConfirmedByPeriod(ctx, repository.NoTX, period)
}

// MapGatewayStatus translates a provider status string into our payment
// status. The second return reports whether the provider status is terminal;
// "pending"/"in_process" leave the row untouched.
func MapGatewayStatus(gatewayStatus string) (model.PaymentStatus, bool) {
	switch gatewayStatus {
	case "approved":
		return model.PaymentStatusConfirmed, true
	case "cancelled":
		return model.PaymentStatusCancelled, true
	case "rejected":
		return model.PaymentStatusRejected, true
	case "expired":
		return model.PaymentStatusExpired, true
	default:
		return model.PaymentStatusPending, false
	}
}
