package handlers

import (
	"genieq-api/internal/adapters/http/middleware"
	"genieq-api/internal/core/services"
	"genieq-api/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// PaymentHandler handles ticket purchase endpoints
type PaymentHandler struct {
	paymentService *services.PaymentService
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(paymentService *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

// StageRequest is sent before the checkout widget opens
type StageRequest struct {
	OrderID  string          `json:"orderId"`
	Amount   decimal.Decimal `json:"amount" swaggertype:"string"`
	TicketID uint            `json:"ticketId"`
}

// VerifyRequest checks an amount against a staged order
type VerifyRequest struct {
	OrderID string          `json:"orderId"`
	Amount  decimal.Decimal `json:"amount" swaggertype:"string"`
}

// ConfirmRequest carries the gateway's success redirect parameters
type ConfirmRequest struct {
	OrderID    string          `json:"orderId"`
	PaymentKey string          `json:"paymentKey"`
	Amount     decimal.Decimal `json:"amount" swaggertype:"string"`
}

// ListTickets returns the ticket catalog
// @Summary Ticket catalog
// @Tags Payments
// @Produce json
// @Success 200 {object} response.Response
// @Router /tickets [get]
func (h *PaymentHandler) ListTickets(c *fiber.Ctx) error {
	tickets, err := h.paymentService.Tickets(c.Context())
	if err != nil {
		return respondError(c, err, "Failed to load tickets")
	}
	return response.Success(c, "Tickets retrieved successfully", tickets)
}

// Stage records a purchase intent
// @Summary Stage a payment
// @Tags Payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body StageRequest true "Order"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /payments/stage [post]
func (h *PaymentHandler) Stage(c *fiber.Ctx) error {
	principal, ok := middleware.PrincipalFrom(c)
	if !ok {
		return response.Unauthorized(c, "Authentication required")
	}

	var req StageRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.OrderID == "" || req.TicketID == 0 {
		return response.BadRequest(c, "orderId and ticketId are required")
	}

	rec, err := h.paymentService.Stage(c.Context(), principal.MemberID, services.StageInput{
		OrderID:  req.OrderID,
		Amount:   req.Amount,
		TicketID: req.TicketID,
	})
	if err != nil {
		return respondError(c, err, "Failed to stage payment")
	}

	return response.Created(c, "Payment staged", rec)
}

// Verify checks the amount the client is about to pay
// @Summary Verify a staged amount
// @Tags Payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body VerifyRequest true "Order"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /payments/verify [post]
func (h *PaymentHandler) Verify(c *fiber.Ctx) error {
	principal, ok := middleware.PrincipalFrom(c)
	if !ok {
		return response.Unauthorized(c, "Authentication required")
	}

	var req VerifyRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.paymentService.Verify(c.Context(), principal.MemberID, req.OrderID, req.Amount); err != nil {
		return respondError(c, err, "Failed to verify payment")
	}

	return response.Success(c, "Amount verified", fiber.Map{"valid": true})
}

// Confirm captures a staged payment and credits the tickets
// @Summary Confirm a payment
// @Tags Payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body ConfirmRequest true "Gateway redirect parameters"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 409 {object} response.Response
// @Failure 500 {object} response.Response
// @Router /payments/confirm [post]
func (h *PaymentHandler) Confirm(c *fiber.Ctx) error {
	principal, ok := middleware.PrincipalFrom(c)
	if !ok {
		return response.Unauthorized(c, "Authentication required")
	}

	var req ConfirmRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.OrderID == "" || req.PaymentKey == "" {
		return response.BadRequest(c, "orderId and paymentKey are required")
	}

	payment, err := h.paymentService.Confirm(c.Context(), principal.MemberID, services.ConfirmInput{
		OrderID:    req.OrderID,
		PaymentKey: req.PaymentKey,
		Amount:     req.Amount,
	})
	if err != nil {
		return respondError(c, err, "Failed to confirm payment")
	}

	return response.Success(c, "Payment completed", payment)
}

// ListPayments returns the caller's payments
// @Summary My payments
// @Tags Payments
// @Produce json
// @Security BearerAuth
// @Param from query string false "From date (YYYY-MM-DD)"
// @Param to query string false "To date (YYYY-MM-DD, inclusive)"
// @Success 200 {object} response.Response
// @Router /payments [get]
func (h *PaymentHandler) ListPayments(c *fiber.Ctx) error {
	principal, ok := middleware.PrincipalFrom(c)
	if !ok {
		return response.Unauthorized(c, "Authentication required")
	}

	from, to, err := parseDateRange(c)
	if err != nil {
		return response.BadRequest(c, err.Error())
	}

	payments, err := h.paymentService.ListPayments(c.Context(), principal.MemberID, from, to)
	if err != nil {
		return respondError(c, err, "Failed to load payments")
	}

	return response.Success(c, "Payments retrieved successfully", payments)
}
