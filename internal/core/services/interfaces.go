package services

import (
	"context"

	"genieq-api/internal/core/domain"

	"github.com/shopspring/decimal"
)

// StagingStore holds pre-confirmation purchase intents keyed by order id.
// Fetch returns nil, nil for a missing or expired record.
type StagingStore interface {
	Stage(ctx context.Context, orderID string, amount decimal.Decimal, ticketID, memberID uint) (*domain.StagingRecord, error)
	Fetch(ctx context.Context, orderID string) (*domain.StagingRecord, error)
	Inspect(ctx context.Context, orderID string, amount decimal.Decimal, memberID uint) error
	Verify(ctx context.Context, orderID string, amount decimal.Decimal, memberID uint) bool
	SetStatus(ctx context.Context, orderID string, status domain.StagingStatus) error
	TransitionStatus(ctx context.Context, orderID string, from, to domain.StagingStatus) error
	Remove(ctx context.Context, orderID string) (bool, error)
	ListByStatus(ctx context.Context, status domain.StagingStatus) ([]*domain.StagingRecord, error)
	Ping(ctx context.Context) error
}

// PaymentGateway is the external card gateway. A *domain.GatewayError means
// the gateway did not act; domain.ErrGatewayResponse means it answered 2xx
// with a body that could not be read.
type PaymentGateway interface {
	Confirm(ctx context.Context, paymentKey, orderID string, amount decimal.Decimal) (*domain.PaymentApproval, error)
	Cancel(ctx context.Context, paymentKey, reason string, amount decimal.Decimal) error
	Lookup(ctx context.Context, orderID string) (*domain.PaymentApproval, error)
}
