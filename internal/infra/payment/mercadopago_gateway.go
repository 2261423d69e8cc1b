package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"telegram-pix-subscription/internal/domain"
	"telegram-pix-subscription/internal/domain/ports/adapter"
)

// MercadoPagoGateway implements adapter.PaymentGateway against the Mercado
// Pago payments API using direct HTTP calls.
type MercadoPagoGateway struct {
	accessToken string
	baseURL     string
	client      *http.Client
}

var _ adapter.PaymentGateway = (*MercadoPagoGateway)(nil)

func NewMercadoPagoGateway(accessToken, baseURL string) *MercadoPagoGateway {
	if baseURL == "" {
		baseURL = "https://api.mercadopago.com"
	}
	return &MercadoPagoGateway{
		accessToken: accessToken,
		baseURL:     baseURL,
		client:      &http.Client{Timeout: 15 * time.Second},
	}
}

func (g *MercadoPagoGateway) Name() string { return "mercadopago" }

type mpCreateResponse struct {
	ID                int64  `json:"id"`
	Status            string `json:"status"`
	PointOfInteraction struct {
		TransactionData struct {
			QRCode       string `json:"qr_code"`
			QRCodeBase64 string `json:"qr_code_base64"`
		} `json:"transaction_data"`
	} `json:"point_of_interaction"`
}

type mpPaymentResponse struct {
	ID     int64  `json:"id"`
	Status string `json:"status"`
}

type mpSearchResponse struct {
	Results []mpPaymentResponse `json:"results"`
}

// CreateCharge issues a PIX payment. amountCents is rendered as a decimal
// string at the wire; the external reference carries our payment id, and the
// same id doubles as the X-Idempotency-Key so a retried request cannot mint a
// second charge.
func (g *MercadoPagoGateway) CreateCharge(ctx context.Context, amountCents int64, description, payerRef, externalRef string, expiresAt time.Time) (*adapter.Charge, error) {
	body := map[string]interface{}{
		"transaction_amount": json.Number(fmt.Sprintf("%d.%02d", amountCents/100, amountCents%100)),
		"description":        description,
		"payment_method_id":  "pix",
		"external_reference": externalRef,
		"date_of_expiration": expiresAt.UTC().Format("2006-01-02T15:04:05.000-07:00"),
		"payer": map[string]interface{}{
			"email": payerRef,
		},
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal charge request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", g.baseURL+"/v1/payments", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.accessToken)
	req.Header.Set("X-Idempotency-Key", externalRef)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("%w: status %d", domain.ErrUpstreamUnavailable, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("mercadopago error: status %d, body: %s", resp.StatusCode, string(raw))
	}

	var out mpCreateResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w, body: %s", err, string(raw))
	}
	if out.ID == 0 {
		return nil, fmt.Errorf("mercadopago error: response without payment id, body: %s", string(raw))
	}

	return &adapter.Charge{
		GatewayPaymentID: strconv.FormatInt(out.ID, 10),
		QRCode:           out.PointOfInteraction.TransactionData.QRCode,
		QRCodeBase64:     out.PointOfInteraction.TransactionData.QRCodeBase64,
	}, nil
}

// GetStatus fetches the provider status string for a charge.
func (g *MercadoPagoGateway) GetStatus(ctx context.Context, gatewayPaymentID string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", g.baseURL+"/v1/payments/"+url.PathEscape(gatewayPaymentID), nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.accessToken)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response body: %w", err)
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", domain.ErrNotFound
	case resp.StatusCode >= 500:
		return "", fmt.Errorf("%w: status %d", domain.ErrUpstreamUnavailable, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("mercadopago error: status %d, body: %s", resp.StatusCode, string(raw))
	}

	var out mpPaymentResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("unmarshal response: %w, body: %s", err, string(raw))
	}
	return out.Status, nil
}

// SearchByReference resolves a charge by the external_reference we supplied
// at creation time. Used to recover the gateway id when a create call timed
// out after the provider accepted it.
func (g *MercadoPagoGateway) SearchByReference(ctx context.Context, externalRef string) (string, error) {
	u := g.baseURL + "/v1/payments/search?external_reference=" + url.QueryEscape(externalRef)
	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.accessToken)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response body: %w", err)
	}
	if resp.StatusCode >= 500 {
		return "", fmt.Errorf("%w: status %d", domain.ErrUpstreamUnavailable, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("mercadopago error: status %d, body: %s", resp.StatusCode, string(raw))
	}

	var out mpSearchResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("unmarshal response: %w, body: %s", err, string(raw))
	}
	if len(out.Results) == 0 {
		return "", domain.ErrNotFound
	}
	return strconv.FormatInt(out.Results[0].ID, 10), nil
}
