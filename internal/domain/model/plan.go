package model

import (
	"time"

	"telegram-pix-subscription/internal/domain"
)

// Plan is a purchasable subscription plan with a fixed duration and a price
// in cents. Plans have no lifecycle: the catalog is built at startup and
// never mutated.
type Plan struct {
	ID           string
	Title        string
	PriceCents   int64
	DurationDays int
}

func (p *Plan) Duration() time.Duration {
	return time.Duration(p.DurationDays) * 24 * time.Hour
}

// NewPlan validates and constructs a plan.
func NewPlan(id, title string, priceCents int64, durationDays int) (*Plan, error) {
	if id == "" || title == "" || priceCents <= 0 || durationDays <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	return &Plan{ID: id, Title: title, PriceCents: priceCents, DurationDays: durationDays}, nil
}

// Catalog is the process-wide static plan lookup.
type Catalog struct {
	plans map[string]*Plan
	order []string
}

// NewCatalog builds an immutable catalog from the given plans.
func NewCatalog(plans []*Plan) (*Catalog, error) {
	if len(plans) == 0 {
		return nil, domain.ErrInvalidArgument
	}
	c := &Catalog{plans: make(map[string]*Plan, len(plans))}
	for _, p := range plans {
		if p == nil || p.ID == "" {
			return nil, domain.ErrInvalidArgument
		}
		if _, dup := c.plans[p.ID]; dup {
			return nil, domain.ErrInvalidArgument
		}
		cp := *p
		c.plans[p.ID] = &cp
		c.order = append(c.order, p.ID)
	}
	return c, nil
}

// Get returns the plan for id, or ErrUnknownPlan.
func (c *Catalog) Get(id string) (*Plan, error) {
	p, ok := c.plans[id]
	if !ok {
		return nil, domain.ErrUnknownPlan
	}
	cp := *p
	return &cp, nil
}

// List returns the plans in catalog order.
func (c *Catalog) List() []*Plan {
	out := make([]*Plan, 0, len(c.order))
	for _, id := range c.order {
		cp := *c.plans[id]
		out = append(out, &cp)
	}
	return out
}
