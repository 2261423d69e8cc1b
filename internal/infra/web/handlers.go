package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"telegram-pix-subscription/internal/domain"
	"telegram-pix-subscription/internal/domain/model"
	"telegram-pix-subscription/internal/infra/metrics"
)

// gatewayNotification is the body Mercado Pago posts on payment events.
// Only the payment id is taken from it; the status is always re-fetched
// from the gateway, never trusted from the notification.
type gatewayNotification struct {
	Type string `json:"type"`
	Data struct {
		ID json.Number `json:"id"`
	} `json:"data"`
}

type webhookResponse struct {
	Status string `json:"status"`
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) gatewayWebhookHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var note gatewayNotification
		if err := json.NewDecoder(r.Body).Decode(&note); err != nil {
			metrics.IncWebhookEvent("ignored")
			writeJSON(w, http.StatusOK, webhookResponse{Status: "ignored"})
			return
		}
		gatewayID := note.Data.ID.String()
		if note.Type != "payment" || gatewayID == "" {
			metrics.IncWebhookEvent("ignored")
			writeJSON(w, http.StatusOK, webhookResponse{Status: "ignored"})
			return
		}

		payment, err := s.paymentUC.GetByGatewayID(ctx, gatewayID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				// Unknown charge: possibly created by another environment
				// sharing the gateway account. Acknowledge so the gateway
				// stops retrying.
				metrics.IncWebhookEvent("not_found")
				writeJSON(w, http.StatusOK, webhookResponse{Status: "not_found"})
				return
			}
			s.log.Error().Err(err).Str("gateway_id", gatewayID).Msg("webhook: payment lookup failed")
			http.Error(w, "lookup failed", http.StatusInternalServerError)
			return
		}

		status, err := s.gateway.GetStatus(ctx, gatewayID)
		if err != nil {
			// No mutation without a verified status; 5xx makes the gateway
			// retry later.
			s.log.Error().Err(err).Str("gateway_id", gatewayID).Msg("webhook: status fetch failed")
			metrics.IncWebhookEvent("error")
			http.Error(w, "status fetch failed", http.StatusBadGateway)
			return
		}

		updated, err := s.paymentUC.ApplyGatewayStatus(ctx, payment.ID, status)
		if err != nil {
			s.log.Error().Err(err).Str("payment_id", payment.ID).Msg("webhook: status apply failed")
			metrics.IncWebhookEvent("error")
			http.Error(w, "status apply failed", http.StatusInternalServerError)
			return
		}

		if updated.Status == model.PaymentStatusConfirmed {
			if err := s.notifUC.NotifyPaymentApproved(ctx, updated); err != nil {
				// Notification is best-effort; activation must still run.
				s.log.Warn().Err(err).Str("payment_id", updated.ID).Msg("webhook: approval notice failed")
			}
			if _, err := s.reconcileUC.ActivateSubscriptionFromPayment(ctx, updated.ID); err != nil {
				// The sweep will retry; the confirmed status is durable.
				s.log.Error().Err(err).Str("payment_id", updated.ID).Msg("webhook: activation failed")
			}
		}

		metrics.IncWebhookEvent("ok")
		writeJSON(w, http.StatusOK, webhookResponse{Status: "ok"})
	}
}

func (s *Server) telegramWebhookHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "read failed", http.StatusBadRequest)
			return
		}
		if err := s.updates.HandleRaw(r.Context(), body); err != nil {
			s.log.Error().Err(err).Msg("telegram webhook: update handling failed")
		}
		// Telegram only needs a 200; errors are dealt with internally.
		w.WriteHeader(http.StatusOK)
	}
}

func (s *Server) healthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusOK)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

type loginRequest struct {
	Password string `json:"password"`
}

func (s *Server) loginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if !s.checkAdminPassword(req.Password) {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		if _, err := s.auth.Mint(w); err != nil {
			http.Error(w, "Failed to create session", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func (s *Server) logoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.auth.Clear(w)
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func (s *Server) statsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		users, activeByPlan, err := s.statsUC.Totals(ctx)
		if err != nil {
			http.Error(w, "Failed to get totals", http.StatusInternalServerError)
			return
		}
		week, month, year, err := s.statsUC.Revenue(ctx)
		if err != nil {
			http.Error(w, "Failed to get revenue", http.StatusInternalServerError)
			return
		}

		response := struct {
			TotalUsers       int64            `json:"total_users"`
			ActiveSubsByPlan map[string]int64 `json:"active_subs_by_plan"`
			RevenueCents     struct {
				Week  int64 `json:"week"`
				Month int64 `json:"month"`
				Year  int64 `json:"year"`
			} `json:"revenue_cents"`
		}{
			TotalUsers:       users,
			ActiveSubsByPlan: activeByPlan,
		}
		response.RevenueCents.Week = week
		response.RevenueCents.Month = month
		response.RevenueCents.Year = year

		writeJSON(w, http.StatusOK, response)
	}
}
