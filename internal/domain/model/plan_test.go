package model

import (
	"errors"
	"testing"
	"time"

	"telegram-pix-subscription/internal/domain"
)

func TestNewPlanValidation(t *testing.T) {
	if _, err := NewPlan("", "t", 100, 7); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("empty id: err = %v", err)
	}
	if _, err := NewPlan("p", "t", 0, 7); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("zero price: err = %v", err)
	}
	if _, err := NewPlan("p", "t", 100, 0); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("zero duration: err = %v", err)
	}
	p, err := NewPlan("semanal", "Plano Semanal", 199, 7)
	if err != nil {
		t.Fatalf("valid plan: %v", err)
	}
	if p.Duration() != 7*24*time.Hour {
		t.Errorf("duration = %v, want 168h", p.Duration())
	}
}

func TestCatalog(t *testing.T) {
	weekly, _ := NewPlan("semanal", "Plano Semanal", 199, 7)
	monthly, _ := NewPlan("mensal", "Plano Mensal", 199, 30)

	if _, err := NewCatalog(nil); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("empty catalog: err = %v", err)
	}
	if _, err := NewCatalog([]*Plan{weekly, weekly}); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("duplicate ids: err = %v", err)
	}

	c, err := NewCatalog([]*Plan{weekly, monthly})
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}

	got, err := c.Get("semanal")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "Plano Semanal" {
		t.Errorf("title = %s", got.Title)
	}
	// Returned plans are copies; mutating one must not poison the catalog.
	got.PriceCents = 1
	again, _ := c.Get("semanal")
	if again.PriceCents != 199 {
		t.Errorf("catalog mutated through Get")
	}

	if _, err := c.Get("anual"); !errors.Is(err, domain.ErrUnknownPlan) {
		t.Errorf("unknown plan: err = %v", err)
	}

	list := c.List()
	if len(list) != 2 || list[0].ID != "semanal" || list[1].ID != "mensal" {
		t.Errorf("list order wrong: %+v", list)
	}
}
