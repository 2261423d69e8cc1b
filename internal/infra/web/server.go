package web

import (
	"context"
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"telegram-pix-subscription/internal/domain/ports/adapter"
	"telegram-pix-subscription/internal/usecase"
)

// UpdateSink receives raw Telegram webhook update bodies. The bot implements
// it in webhook mode; polling deployments leave it nil.
type UpdateSink interface {
	HandleRaw(ctx context.Context, body []byte) error
}

type Server struct {
	paymentUC   usecase.PaymentUseCase
	reconcileUC usecase.ReconcileUseCase
	notifUC     usecase.NotificationUseCase
	statsUC     usecase.StatsUseCase
	gateway     adapter.PaymentGateway
	updates     UpdateSink

	auth          *AuthManager
	adminPassword string
	log           *zerolog.Logger
}

func NewServer(
	paymentUC usecase.PaymentUseCase,
	reconcileUC usecase.ReconcileUseCase,
	notifUC usecase.NotificationUseCase,
	statsUC usecase.StatsUseCase,
	gateway adapter.PaymentGateway,
	updates UpdateSink,
	auth *AuthManager,
	adminPassword string,
	logger *zerolog.Logger,
) *Server {
	srvLog := logger.With().Str("component", "WebServer").Logger()
	return &Server{
		paymentUC:     paymentUC,
		reconcileUC:   reconcileUC,
		notifUC:       notifUC,
		statsUC:       statsUC,
		gateway:       gateway,
		updates:       updates,
		auth:          auth,
		adminPassword: adminPassword,
		log:           &srvLog,
	}
}

// Router builds the HTTP surface: gateway and Telegram webhooks, health,
// Prometheus metrics, and the cookie-guarded admin stats API.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Post("/webhook/payment-gateway", s.gatewayWebhookHandler())
	if s.updates != nil {
		r.Post("/webhook/telegram", s.telegramWebhookHandler())
	}

	r.Get("/health", s.healthHandler())
	r.Head("/health", s.healthHandler())
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Post("/admin/login", s.loginHandler())
	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Get("/admin/stats", s.statsHandler())
		r.Post("/admin/logout", s.logoutHandler())
	})

	return r
}

// authMiddleware admits requests carrying a valid admin session token.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.auth == nil || s.adminPassword == "" {
			s.log.Error().Msg("admin auth is not configured")
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		if _, err := s.auth.ParseFromRequest(r); err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) checkAdminPassword(candidate string) bool {
	if s.adminPassword == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(s.adminPassword)) == 1
}
