package model

import "time"

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"   // charge issued; awaiting gateway confirmation
	PaymentStatusConfirmed PaymentStatus = "confirmed" // gateway reported approved
	PaymentStatusExpired   PaymentStatus = "expired"   // TTL lapsed or invalidated by a plan switch
	PaymentStatusCancelled PaymentStatus = "cancelled" // cancelled at the gateway
	PaymentStatusRejected  PaymentStatus = "rejected"  // rejected at the gateway
)

// IsTerminal reports whether no further status transition is valid.
func (s PaymentStatus) IsTerminal() bool {
	switch s {
	case PaymentStatusConfirmed, PaymentStatusExpired, PaymentStatusCancelled, PaymentStatusRejected:
		return true
	}
	return false
}

// Payment records a PIX charge issued through the gateway.
type Payment struct {
	ID               string // ULID
	UserID           string // ULID -> User
	Gateway          string // e.g. "mercadopago"
	GatewayPaymentID string // gateway-issued id; canonical correlation key for webhooks ("" until set)
	ExternalRef      string // UUID we send to the gateway as external_reference
	IdempotencyKey   string // optional caller-supplied key
	PlanID           string
	AmountCents      int64 // stored in cents (integer), to avoid float errors
	Status           PaymentStatus
	QRCode           string // PIX copy-and-paste payload
	QRCodeBase64     string // rendered QR image, if the gateway returned one
	ExpiresAt        time.Time
	CreatedAt        time.Time
	ConfirmedAt      *time.Time // set once, on pending -> confirmed
	RemindersSent    int
}

// Payable reports whether the charge can still be paid at instant now.
// Stored status alone is not enough: expiry is lazy, so pending-ness is
// always evaluated against the clock.
func (p *Payment) Payable(now time.Time) bool {
	return p != nil && p.Status == PaymentStatusPending && p.ExpiresAt.After(now)
}
