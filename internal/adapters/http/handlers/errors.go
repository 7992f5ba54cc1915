package handlers

import (
	"errors"
	"log"

	"genieq-api/internal/core/domain"
	"genieq-api/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// respondError maps service errors onto the response envelope. Anything
// unrecognised is logged and reported as fallback with a 500.
func respondError(c *fiber.Ctx, err error, fallback string) error {
	var gwErr *domain.GatewayError

	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return response.ErrorWithCode(c, fiber.StatusBadRequest, "INVALID_INPUT", err.Error())
	case errors.Is(err, domain.ErrStagingNotFound):
		return response.ErrorWithCode(c, fiber.StatusBadRequest, "STAGING_NOT_FOUND", "No pending payment for this order")
	case errors.Is(err, domain.ErrStagingExpired):
		return response.ErrorWithCode(c, fiber.StatusBadRequest, "STAGING_EXPIRED", "Payment session expired, please start again")
	case errors.Is(err, domain.ErrAmountMismatch):
		return response.ErrorWithCode(c, fiber.StatusBadRequest, "AMOUNT_MISMATCH", "Amount does not match the order")
	case errors.Is(err, domain.ErrOwnership):
		return response.ErrorWithCode(c, fiber.StatusForbidden, "NOT_OWNER", "This order belongs to another member")
	case errors.Is(err, domain.ErrStagingConflict):
		return response.ErrorWithCode(c, fiber.StatusConflict, "PAYMENT_IN_PROGRESS", "Payment is already being processed")
	case errors.Is(err, domain.ErrDuplicateEntry):
		return response.ErrorWithCode(c, fiber.StatusConflict, "DUPLICATE", "Already exists")
	case errors.Is(err, domain.ErrTicketNotFound):
		return response.NotFound(c, "Ticket not found")
	case errors.Is(err, domain.ErrUnknownPayment):
		return response.NotFound(c, "Payment not found")
	case errors.Is(err, domain.ErrMemberNotFound):
		return response.NotFound(c, "Member not found")
	case errors.Is(err, domain.ErrInsufficientBalance):
		return response.ErrorWithCode(c, fiber.StatusPaymentRequired, "INSUFFICIENT_BALANCE", "Not enough tickets")
	case errors.Is(err, domain.ErrMemberAlreadyExists):
		return response.Conflict(c, "Email already registered")
	case errors.Is(err, domain.ErrInvalidCredentials):
		return response.Unauthorized(c, "Invalid email or password")
	case errors.Is(err, domain.ErrMemberDeleted):
		return response.Forbidden(c, "Account is no longer active")
	case errors.Is(err, domain.ErrTokenExpired),
		errors.Is(err, domain.ErrTokenInvalid),
		errors.Is(err, domain.ErrTokenParse),
		errors.Is(err, domain.ErrTokenTypeMismatch):
		return response.Unauthorized(c, "Authentication required")
	case errors.As(err, &gwErr):
		return response.ErrorWithCode(c, fiber.StatusInternalServerError, gwErr.Code, "Payment could not be completed")
	case errors.Is(err, domain.ErrPaymentPersistence):
		return response.ErrorWithCode(c, fiber.StatusInternalServerError, "PAYMENT_NOT_RECORDED", "Payment could not be recorded and was canceled")
	}

	log.Printf("❌ %s: %v", fallback, err)
	return response.InternalServerError(c, fallback)
}
