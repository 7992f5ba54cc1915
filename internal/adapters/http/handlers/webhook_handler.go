package handlers

import (
	"encoding/json"
	"errors"

	"genieq-api/internal/core/domain"
	"genieq-api/internal/core/services"
	"genieq-api/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// Webhook signature headers
const (
	HeaderWebhookTimestamp = "X-Toss-Timestamp"
	HeaderWebhookSignature = "X-Toss-Signature"
)

// WebhookHandler receives gateway status notifications
type WebhookHandler struct {
	webhookService *services.WebhookService
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(webhookService *services.WebhookService) *WebhookHandler {
	return &WebhookHandler{webhookService: webhookService}
}

// webhookPayload accepts the gateway envelope and the flat {orderId, gatewayStatus} form
type webhookPayload struct {
	EventType     string `json:"eventType"`
	CreatedAt     string `json:"createdAt"`
	OrderID       string `json:"orderId"`
	GatewayStatus string `json:"gatewayStatus"`
	Data          struct {
		OrderID    string `json:"orderId"`
		PaymentKey string `json:"paymentKey"`
		Status     string `json:"status"`
	} `json:"data"`
}

func (p *webhookPayload) notification() *domain.WebhookNotification {
	n := &domain.WebhookNotification{
		EventType:     p.EventType,
		OrderID:       p.Data.OrderID,
		PaymentKey:    p.Data.PaymentKey,
		GatewayStatus: p.Data.Status,
	}
	if n.OrderID == "" {
		n.OrderID = p.OrderID
		n.GatewayStatus = p.GatewayStatus
	}
	if n.EventType == "" {
		n.EventType = services.EventPaymentStatusChanged
	}
	return n
}

// Handle applies a payment status change
// @Summary Gateway webhook
// @Tags Payments
// @Accept json
// @Produce json
// @Param X-Toss-Timestamp header string false "Signature timestamp"
// @Param X-Toss-Signature header string false "hex HMAC-SHA256 of timestamp.body"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /payments/webhook [post]
func (h *WebhookHandler) Handle(c *fiber.Ctx) error {
	body := c.Body()
	if err := h.webhookService.VerifySignature(c.Get(HeaderWebhookTimestamp), c.Get(HeaderWebhookSignature), body); err != nil {
		return response.Unauthorized(c, "Invalid webhook signature")
	}

	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return response.BadRequest(c, "Invalid webhook payload")
	}

	n := payload.notification()
	if n.EventType != services.EventPaymentStatusChanged {
		return response.Success(c, "Event ignored", nil)
	}
	if n.OrderID == "" {
		return response.BadRequest(c, "orderId is required")
	}

	if err := h.webhookService.Handle(c.Context(), n); err != nil {
		if errors.Is(err, domain.ErrUnknownPayment) {
			return response.NotFound(c, "Unknown order")
		}
		return respondError(c, err, "Failed to process webhook")
	}

	return response.Success(c, "Webhook processed", nil)
}
