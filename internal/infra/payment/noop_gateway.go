package payment

import (
	"context"
	"fmt"
	"time"

	"telegram-pix-subscription/internal/domain/ports/adapter"
)

// NoOpGateway fakes charges for development mode. Every charge is created
// with a canned QR payload and reports approved on the first status poll.
type NoOpGateway struct{}

var _ adapter.PaymentGateway = (*NoOpGateway)(nil)

func NewNoOpGateway() *NoOpGateway { return &NoOpGateway{} }

func (g *NoOpGateway) Name() string { return "noop" }

func (g *NoOpGateway) CreateCharge(ctx context.Context, amountCents int64, description, payerRef, externalRef string, expiresAt time.Time) (*adapter.Charge, error) {
	return &adapter.Charge{
		GatewayPaymentID: "noop-" + externalRef,
		QRCode:           fmt.Sprintf("00020126-noop-pix-%s-%d", externalRef, amountCents),
	}, nil
}

func (g *NoOpGateway) GetStatus(ctx context.Context, gatewayPaymentID string) (string, error) {
	return "approved", nil
}

func (g *NoOpGateway) SearchByReference(ctx context.Context, externalRef string) (string, error) {
	return "noop-" + externalRef, nil
}
