package web

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"telegram-pix-subscription/internal/domain"
	"telegram-pix-subscription/internal/domain/model"
	"telegram-pix-subscription/internal/domain/ports/adapter"
)

// stubPaymentUC implements usecase.PaymentUseCase with overridable funcs.
type stubPaymentUC struct {
	GetByGatewayIDFunc     func(ctx context.Context, gatewayPaymentID string) (*model.Payment, error)
	ApplyGatewayStatusFunc func(ctx context.Context, paymentID, gatewayStatus string) (*model.Payment, error)

	appliedStatuses []string
}

func (s *stubPaymentUC) CreatePixCharge(ctx context.Context, userID, planID string) (*model.Payment, error) {
	return nil, domain.ErrOperationFailed
}
func (s *stubPaymentUC) GetPendingPayment(ctx context.Context, userID string) (*model.Payment, error) {
	return nil, domain.ErrNotFound
}
func (s *stubPaymentUC) GetByGatewayID(ctx context.Context, gatewayPaymentID string) (*model.Payment, error) {
	if s.GetByGatewayIDFunc != nil {
		return s.GetByGatewayIDFunc(ctx, gatewayPaymentID)
	}
	return nil, domain.ErrNotFound
}
func (s *stubPaymentUC) ConfirmPayment(ctx context.Context, gatewayPaymentID string) (*model.Payment, error) {
	return nil, domain.ErrNotFound
}
func (s *stubPaymentUC) ApplyGatewayStatus(ctx context.Context, paymentID, gatewayStatus string) (*model.Payment, error) {
	s.appliedStatuses = append(s.appliedStatuses, gatewayStatus)
	if s.ApplyGatewayStatusFunc != nil {
		return s.ApplyGatewayStatusFunc(ctx, paymentID, gatewayStatus)
	}
	return nil, domain.ErrNotFound
}
func (s *stubPaymentUC) CheckPendingStatus(ctx context.Context, userID string) (string, error) {
	return "", domain.ErrNotFound
}
func (s *stubPaymentUC) ListExpiredPending(ctx context.Context) ([]*model.Payment, error) {
	return nil, nil
}
func (s *stubPaymentUC) ListPendingForReminder(ctx context.Context, maxReminders int) ([]*model.Payment, error) {
	return nil, nil
}
func (s *stubPaymentUC) ListConfirmedUnprocessed(ctx context.Context) ([]*model.Payment, error) {
	return nil, nil
}
func (s *stubPaymentUC) SumConfirmedByPeriod(ctx context.Context, period string) (int64, error) {
	return 0, nil
}

type stubReconcileUC struct {
	ActivateFunc func(ctx context.Context, paymentID string) (*model.Subscription, error)
	activated    []string
}

func (s *stubReconcileUC) ActivateSubscriptionFromPayment(ctx context.Context, paymentID string) (*model.Subscription, error) {
	s.activated = append(s.activated, paymentID)
	if s.ActivateFunc != nil {
		return s.ActivateFunc(ctx, paymentID)
	}
	return &model.Subscription{ID: "s1", PaymentID: paymentID}, nil
}

type stubNotifUC struct {
	approved []string
}

func (s *stubNotifUC) SendPendingReminders(ctx context.Context, maxReminders int) (int, error) {
	return 0, nil
}
func (s *stubNotifUC) NotifyPaymentApproved(ctx context.Context, payment *model.Payment) error {
	s.approved = append(s.approved, payment.ID)
	return nil
}

type stubStatsUC struct {
	TotalsFunc func(ctx context.Context) (int64, map[string]int64, error)
}

func (s *stubStatsUC) Totals(ctx context.Context) (int64, map[string]int64, error) {
	if s.TotalsFunc != nil {
		return s.TotalsFunc(ctx)
	}
	return 2, map[string]int64{"semanal": 1}, nil
}
func (s *stubStatsUC) Revenue(ctx context.Context) (int64, int64, int64, error) {
	return 199, 398, 597, nil
}

type stubGateway struct {
	status    string
	statusErr error
}

func (g *stubGateway) Name() string { return "stub" }
func (g *stubGateway) CreateCharge(ctx context.Context, amountCents int64, description, payerRef, externalRef string, expiresAt time.Time) (*adapter.Charge, error) {
	return nil, domain.ErrOperationFailed
}
func (g *stubGateway) GetStatus(ctx context.Context, gatewayPaymentID string) (string, error) {
	if g.statusErr != nil {
		return "", g.statusErr
	}
	return g.status, nil
}
func (g *stubGateway) SearchByReference(ctx context.Context, externalRef string) (string, error) {
	return "", domain.ErrNotFound
}

func testLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}
