package adapter

import (
	"context"
	"time"
)

// Charge is the externally-visible artifact of a created PIX charge.
type Charge struct {
	GatewayPaymentID string
	QRCode           string // copy-and-paste payload
	QRCodeBase64     string // optional rendered image
}

// PaymentGateway is the hex port for the PIX payment provider.
type PaymentGateway interface {
	Name() string

	// CreateCharge issues a PIX charge with a fixed expiry. amountCents is
	// converted to the provider's decimal representation at the wire.
	CreateCharge(ctx context.Context, amountCents int64, description, payerRef, externalRef string, expiresAt time.Time) (*Charge, error)

	// GetStatus returns the provider status string for a charge:
	// approved | pending | in_process | cancelled | rejected | expired.
	GetStatus(ctx context.Context, gatewayPaymentID string) (string, error)

	// SearchByReference looks a charge up by the external_reference we
	// supplied at creation time.
	SearchByReference(ctx context.Context, externalRef string) (string, error)
}
