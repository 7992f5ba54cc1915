// Package gateway talks to the card payment gateway's REST API.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"genieq-api/internal/core/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CodeUnavailable is reported when the gateway could not be reached in time
const CodeUnavailable = "GATEWAY_UNAVAILABLE"

// Config holds gateway connection settings
type Config struct {
	BaseURL   string
	SecretKey string
	Timeout   time.Duration
}

// TossClient is a client for the Toss Payments v1 API
type TossClient struct {
	baseURL   string
	secretKey string
	timeout   time.Duration
	client    *http.Client
}

// NewTossClient creates a new gateway client
func NewTossClient(cfg Config) *TossClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &TossClient{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		secretKey: cfg.SecretKey,
		timeout:   timeout,
		client:    &http.Client{},
	}
}

type confirmRequest struct {
	PaymentKey string      `json:"paymentKey"`
	OrderID    string      `json:"orderId"`
	Amount     json.Number `json:"amount"`
}

type cancelRequest struct {
	CancelReason string      `json:"cancelReason"`
	CancelAmount json.Number `json:"cancelAmount,omitempty"`
}

// paymentResponse is the subset of the gateway Payment object we keep
type paymentResponse struct {
	PaymentKey  string          `json:"paymentKey"`
	OrderID     string          `json:"orderId"`
	Status      string          `json:"status"`
	Method      string          `json:"method"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	RequestedAt string          `json:"requestedAt"`
	ApprovedAt  string          `json:"approvedAt"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Confirm captures an authorized payment
func (c *TossClient) Confirm(ctx context.Context, paymentKey, orderID string, amount decimal.Decimal) (*domain.PaymentApproval, error) {
	body, err := c.do(ctx, http.MethodPost, "/v1/payments/confirm", confirmRequest{
		PaymentKey: paymentKey,
		OrderID:    orderID,
		Amount:     json.Number(amount.String()),
	})
	if err != nil {
		return nil, err
	}
	return parseApproval(body)
}

// Cancel voids a captured payment for the given amount
func (c *TossClient) Cancel(ctx context.Context, paymentKey, reason string, amount decimal.Decimal) error {
	req := cancelRequest{CancelReason: reason}
	if amount.IsPositive() {
		req.CancelAmount = json.Number(amount.String())
	}
	_, err := c.do(ctx, http.MethodPost, "/v1/payments/"+url.PathEscape(paymentKey)+"/cancel", req)
	return err
}

// Lookup fetches the gateway's view of an order
func (c *TossClient) Lookup(ctx context.Context, orderID string) (*domain.PaymentApproval, error) {
	body, err := c.do(ctx, http.MethodGet, "/v1/payments/orders/"+url.PathEscape(orderID), nil)
	if err != nil {
		return nil, err
	}
	return parseApproval(body)
}

func (c *TossClient) do(ctx context.Context, method, path string, payload interface{}) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(c.secretKey, "")
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method == http.MethodPost {
		req.Header.Set("Idempotency-Key", uuid.NewString())
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		log.Printf("❌ Gateway %s %s failed after %s: %v", method, path, time.Since(start).Round(time.Millisecond), err)
		message := "payment gateway unreachable"
		if errors.Is(err, context.DeadlineExceeded) {
			message = "payment gateway timed out"
		}
		return nil, &domain.GatewayError{Code: CodeUnavailable, Message: message}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.GatewayError{Code: CodeUnavailable, Message: "payment gateway response unreadable", StatusCode: resp.StatusCode}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e errorResponse
		if err := json.Unmarshal(body, &e); err != nil || e.Code == "" {
			e = errorResponse{Code: "UNKNOWN_ERROR", Message: http.StatusText(resp.StatusCode)}
		}
		return nil, &domain.GatewayError{Code: e.Code, Message: e.Message, StatusCode: resp.StatusCode}
	}

	return body, nil
}

// parseApproval decodes a 2xx payment body. A body that cannot be decoded is
// ErrGatewayResponse, never a *GatewayError: the gateway did act on the request.
func parseApproval(body []byte) (*domain.PaymentApproval, error) {
	var p paymentResponse
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrGatewayResponse, err)
	}

	approval := &domain.PaymentApproval{
		PaymentKey:  p.PaymentKey,
		OrderID:     p.OrderID,
		Status:      p.Status,
		Method:      p.Method,
		TotalAmount: p.TotalAmount,
		Raw:         body,
	}
	approval.RequestedAt = parseTime(p.RequestedAt)
	approval.ApprovedAt = parseTime(p.ApprovedAt)
	return approval, nil
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}
	}
	return t
}
