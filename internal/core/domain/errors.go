package domain

import (
	"errors"
	"fmt"
)

// Common domain errors
var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrConfiguration      = errors.New("invalid configuration")
	ErrDuplicateEntry     = errors.New("duplicate entry")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Token errors
var (
	ErrTokenParse        = errors.New("token could not be parsed")
	ErrTokenExpired      = errors.New("token expired")
	ErrTokenInvalid      = errors.New("token invalid")
	ErrTokenTypeMismatch = errors.New("token type mismatch")
)

// Member errors
var (
	ErrMemberNotFound      = errors.New("member not found")
	ErrMemberAlreadyExists = errors.New("member already exists")
	ErrMemberDeleted       = errors.New("member account is deleted")
)

// Staging errors
var (
	ErrStagingNotFound = errors.New("staged payment not found")
	ErrStagingExpired  = errors.New("staged payment expired")
	ErrStagingConflict = errors.New("staged payment status changed concurrently")
	ErrAmountMismatch  = errors.New("amount does not match staged amount")
	ErrOwnership       = errors.New("staged payment belongs to another member")
)

// Payment and ledger errors
var (
	ErrTicketNotFound      = errors.New("ticket not found")
	ErrUnknownPayment      = errors.New("payment not found")
	ErrPaymentPersistence  = errors.New("payment could not be recorded")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrGateway             = errors.New("payment gateway error")
	ErrGatewayResponse     = errors.New("gateway accepted the request but its reply could not be read")
	ErrInvalidSignature    = errors.New("invalid webhook signature")
)

// GatewayError carries the code and message reported by the card gateway.
// StatusCode is zero when the gateway could not be reached.
type GatewayError struct {
	Code       string
	Message    string
	StatusCode int
}

func (e *GatewayError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("gateway %s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("gateway %s (%d): %s", e.Code, e.StatusCode, e.Message)
}

func (e *GatewayError) Unwrap() error {
	return ErrGateway
}
