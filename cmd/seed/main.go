package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"telegram-pix-subscription/internal/config"
	"telegram-pix-subscription/internal/domain/model"
	pg "telegram-pix-subscription/internal/infra/db/postgres"
)

// Seeds a demo user with a confirmed payment so a locally running instance
// has something for the sweep to reconcile. Safe to run repeatedly: an
// existing demo user short-circuits.
func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, true)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 4)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	if err := pg.InitSchema(ctx, pool); err != nil {
		log.Fatalf("schema: %v", err)
	}

	const demoTgID = int64(999_000_001)
	userRepo := pg.NewUserRepo(pool)
	payRepo := pg.NewPaymentRepo(pool)

	if existing, err := userRepo.FindByTelegramID(ctx, nil, demoTgID); err == nil {
		fmt.Printf("demo user already present (id=%s). No changes.\n", existing.ID)
		return
	}

	user, err := model.NewUser(ulid.Make().String(), demoTgID, "demo")
	if err != nil {
		log.Fatalf("build user: %v", err)
	}
	if err := userRepo.Save(ctx, nil, user); err != nil {
		log.Fatalf("save user: %v", err)
	}

	plans := cfg.Plans
	now := time.Now().UTC()
	confirmedAt := now.Add(-time.Minute)
	p := &model.Payment{
		ID:               ulid.Make().String(),
		UserID:           user.ID,
		Gateway:          "seed",
		GatewayPaymentID: uuid.NewString(),
		ExternalRef:      uuid.NewString(),
		PlanID:           plans[0].ID,
		AmountCents:      plans[0].PriceCents,
		Status:           model.PaymentStatusConfirmed,
		ExpiresAt:        now.Add(30 * time.Minute),
		CreatedAt:        now.Add(-2 * time.Minute),
		ConfirmedAt:      &confirmedAt,
	}
	if err := payRepo.Save(ctx, nil, p); err != nil {
		log.Fatalf("save payment: %v", err)
	}

	fmt.Printf("seeded: user %s (tg=%d) with confirmed payment %s for plan %s\n", user.ID, demoTgID, p.ID, p.PlanID)
	fmt.Println("✅ Seeding complete. The next sweep tick will activate the subscription.")
}
