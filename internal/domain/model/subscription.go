package model

import "time"

type SubscriptionStatus string

const (
	SubscriptionStatusActive  SubscriptionStatus = "active"
	SubscriptionStatusExpired SubscriptionStatus = "expired"
)

// Subscription is one granted validity window. Each row is linked to exactly
// one confirmed payment; the payment_id uniqueness is what makes activation
// idempotent under concurrent retries.
type Subscription struct {
	ID        string // ULID
	UserID    string // ULID -> User
	PaymentID string // ULID -> Payment, unique
	PlanID    string
	Status    SubscriptionStatus
	StartsAt  time.Time
	EndsAt    time.Time
	CreatedAt time.Time
}

func (s *Subscription) IsZero() bool { return s == nil || s.ID == "" }
