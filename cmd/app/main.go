package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"telegram-pix-subscription/internal/application"
	"telegram-pix-subscription/internal/config"
	"telegram-pix-subscription/internal/domain/model"
	"telegram-pix-subscription/internal/domain/ports/adapter"
	pg "telegram-pix-subscription/internal/infra/db/postgres"
	"telegram-pix-subscription/internal/infra/logging"
	"telegram-pix-subscription/internal/infra/metrics"
	pay "telegram-pix-subscription/internal/infra/payment"
	red "telegram-pix-subscription/internal/infra/redis"
	"telegram-pix-subscription/internal/infra/sched"
	tele "telegram-pix-subscription/internal/infra/telegram"
	"telegram-pix-subscription/internal/infra/web"
	"telegram-pix-subscription/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (noop gateway, console logs)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("developer mode enabled")
	}
	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 10)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connect failed")
	}
	defer pool.Close()
	if err := pg.InitSchema(ctx, pool); err != nil {
		logger.Fatal().Err(err).Msg("schema init failed")
	}

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connect failed")
	}
	defer redisClient.Close()
	rateLimiter := red.NewRateLimiter(redisClient)
	locker := red.NewLocker(redisClient)

	// ---- Repositories ----
	userRepo := pg.NewUserRepo(pool)
	payRepo := pg.NewPaymentRepo(pool)
	subRepo := pg.NewSubscriptionRepo(pool)
	txManager := pg.NewTxManager(pool)

	// ---- Plan catalog ----
	plans := make([]*model.Plan, 0, len(cfg.Plans))
	for _, pc := range cfg.Plans {
		p, err := model.NewPlan(pc.ID, pc.Title, pc.PriceCents, pc.DurationDays)
		if err != nil {
			logger.Fatal().Str("plan", pc.ID).Msg("invalid plan config")
		}
		plans = append(plans, p)
	}
	catalog, err := model.NewCatalog(plans)
	if err != nil {
		logger.Fatal().Err(err).Msg("catalog build failed")
	}

	// ---- Payment gateway ----
	var gateway adapter.PaymentGateway
	if cfg.Runtime.Dev && cfg.Payment.MercadoPago.AccessToken == "" {
		gateway = pay.NewNoOpGateway()
		logger.Warn().Msg("payment gateway: noop (dev)")
	} else {
		gateway = pay.NewMercadoPagoGateway(cfg.Payment.MercadoPago.AccessToken, cfg.Payment.MercadoPago.BaseURL)
		logger.Info().Str("base_url", cfg.Payment.MercadoPago.BaseURL).Msg("payment gateway: mercadopago")
	}

	// ---- Use cases ----
	chargeTTL := time.Duration(cfg.Payment.ChargeTTLMinutes) * time.Minute
	userUC := usecase.NewUserUseCase(userRepo)
	paymentUC := usecase.NewPaymentUseCase(payRepo, catalog, gateway, chargeTTL, logger)
	subUC := usecase.NewSubscriptionUseCase(subRepo, logger)
	reconcileUC := usecase.NewReconcileUseCase(payRepo, subRepo, catalog, txManager, logger)
	statsUC := usecase.NewStatsUseCase(userRepo, payRepo, subRepo, logger)

	// ---- Facade + Telegram ----
	facade := application.NewBotFacade(userUC, subUC, paymentUC, statsUC, catalog)
	bot, err := tele.NewRealBot(&cfg.Bot, facade, rateLimiter, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("telegram bot init failed")
	}
	notifUC := usecase.NewNotificationUseCase(payRepo, userRepo, bot, logger)

	webhookMode := strings.ToLower(cfg.Bot.Mode) == "webhook"
	if !webhookMode {
		go func() {
			if err := bot.StartPolling(ctx); err != nil && err != context.Canceled {
				logger.Error().Err(err).Msg("telegram polling stopped")
			}
		}()
	}

	// ---- HTTP server ----
	auth := web.NewAuthManager(cfg.HTTP.AdminSecret, !cfg.Runtime.Dev, "", 30*time.Minute)
	var updates web.UpdateSink
	if webhookMode {
		updates = bot
	}
	srv := web.NewServer(paymentUC, reconcileUC, notifUC, statsUC, gateway, updates, auth, cfg.HTTP.AdminPassword, logger)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server error")
		}
	}()

	// ---- Sweep worker ----
	sweep := sched.NewSweepWorker(cfg.Sweep.Interval, cfg.Sweep.MaxReminders, paymentUC, reconcileUC, subUC, notifUC, locker, logger)
	go func() { _ = sweep.Run(ctx) }()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")
	cancel()
	bot.StopPolling()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown failed")
	}
}
