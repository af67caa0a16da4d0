package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"storefront-service/internal/util"

	"github.com/google/uuid"
)

// Client talks to the hosted payment processor. It is constructed explicitly
// and injected into the services that need it.
type Client struct {
	baseURL         string
	accessToken     string
	notificationURL string
	webhookSecret   string
	httpClient      *http.Client
}

// NewClient creates a gateway client. The per-call timeout prevents a hung
// gateway request from stalling a poll tick or a checkout submission.
func NewClient(baseURL, accessToken, notificationURL, webhookSecret string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL:         baseURL,
		accessToken:     accessToken,
		notificationURL: notificationURL,
		webhookSecret:   webhookSecret,
		httpClient:      &http.Client{Timeout: timeout},
	}
}

// Identification carries the payer tax id (e.g. CPF for pix)
type Identification struct {
	Type   string `json:"type,omitempty"`
	Number string `json:"number,omitempty"`
}

// Payer identifies who is paying
type Payer struct {
	Email          string          `json:"email,omitempty"`
	Identification *Identification `json:"identification,omitempty"`
}

// CreatePaymentRequest is the payment-creation payload. Amounts are in
// currency units on the wire; callers convert from centavos.
type CreatePaymentRequest struct {
	TransactionAmount float64 `json:"transaction_amount"`
	PaymentMethodID   string  `json:"payment_method_id"`
	Description       string  `json:"description,omitempty"`
	ExternalReference string  `json:"external_reference"`
	NotificationURL   string  `json:"notification_url,omitempty"`
	Token             string  `json:"token,omitempty"`
	Installments      int     `json:"installments,omitempty"`
	Payer             *Payer  `json:"payer,omitempty"`
}

// TransactionData carries instant-payment presentation data (pix)
type TransactionData struct {
	QRCode       string `json:"qr_code,omitempty"`
	QRCodeBase64 string `json:"qr_code_base64,omitempty"`
	TicketURL    string `json:"ticket_url,omitempty"`
}

// PointOfInteraction wraps instant-payment data when the method produces it
type PointOfInteraction struct {
	Type            string           `json:"type,omitempty"`
	TransactionData *TransactionData `json:"transaction_data,omitempty"`
}

// Payment is the gateway's view of a payment attempt
type Payment struct {
	ID                 string              `json:"id"`
	Status             string              `json:"status"`
	StatusDetail       string              `json:"status_detail,omitempty"`
	PaymentMethodID    string              `json:"payment_method_id,omitempty"`
	ExternalReference  string              `json:"external_reference,omitempty"`
	TransactionAmount  float64             `json:"transaction_amount,omitempty"`
	PointOfInteraction *PointOfInteraction `json:"point_of_interaction,omitempty"`
}

// PreferenceItem is a checkout line sent when opening a preference
type PreferenceItem struct {
	Title     string  `json:"title"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

// CreatePreferenceRequest opens a checkout preference correlated to an order
type CreatePreferenceRequest struct {
	ExternalReference string           `json:"external_reference"`
	NotificationURL   string           `json:"notification_url,omitempty"`
	Items             []PreferenceItem `json:"items"`
}

// Preference is the gateway's checkout session handle
type Preference struct {
	ID        string `json:"id"`
	InitPoint string `json:"init_point,omitempty"`
}

// Error is a failed gateway call. Message carries the gateway's own message
// when the response included one.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("gateway: %s (status %d)", e.Message, e.StatusCode)
	}
	return fmt.Sprintf("gateway: request failed with status %d", e.StatusCode)
}

// CreatePayment creates a payment attempt. An idempotency key guards against
// the gateway seeing network retries as distinct attempts.
func (c *Client) CreatePayment(ctx context.Context, req *CreatePaymentRequest) (*Payment, error) {
	if req.NotificationURL == "" {
		req.NotificationURL = c.notificationURL
	}

	start := time.Now()
	defer func() {
		util.PaymentGatewayLatency.Observe(time.Since(start).Seconds())
	}()

	var payment Payment
	headers := map[string]string{"X-Idempotency-Key": uuid.New().String()}
	if err := c.do(ctx, http.MethodPost, "/v1/payments", req, &payment, headers); err != nil {
		return nil, err
	}
	return &payment, nil
}

// GetPayment fetches the current state of a payment attempt
func (c *Client) GetPayment(ctx context.Context, paymentID string) (*Payment, error) {
	var payment Payment
	path := fmt.Sprintf("/v1/payments/%s", paymentID)
	if err := c.do(ctx, http.MethodGet, path, nil, &payment, nil); err != nil {
		return nil, err
	}
	return &payment, nil
}

// CreatePreference opens a checkout preference whose id becomes the order's
// gateway correlation token.
func (c *Client) CreatePreference(ctx context.Context, req *CreatePreferenceRequest) (*Preference, error) {
	if req.NotificationURL == "" {
		req.NotificationURL = c.notificationURL
	}

	var pref Preference
	if err := c.do(ctx, http.MethodPost, "/checkout/preferences", req, &pref, nil); err != nil {
		return nil, err
	}
	return &pref, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}, headers map[string]string) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal gateway request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build gateway request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		util.PaymentGatewayErrorsTotal.Inc()
		return fmt.Errorf("gateway call failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read gateway response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		util.PaymentGatewayErrorsTotal.Inc()
		var apiErr struct {
			Message string `json:"message"`
			Error   string `json:"error"`
		}
		_ = json.Unmarshal(respBody, &apiErr)
		msg := apiErr.Message
		if msg == "" {
			msg = apiErr.Error
		}
		return &Error{StatusCode: resp.StatusCode, Message: msg}
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to decode gateway response: %w", err)
		}
	}
	return nil
}
