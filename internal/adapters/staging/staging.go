// Package staging holds the short-lived records that bind an order id to the
// amount, ticket and member a purchase was started with.
package staging

import (
	"time"

	"genieq-api/internal/core/domain"

	"github.com/shopspring/decimal"
)

const (
	// KeyPrefix namespaces staging records in the key/value store
	KeyPrefix = "payment:temp:"
	// DefaultTTL is how long an abandoned purchase stays staged
	DefaultTTL = 30 * time.Minute
	// MinStatusTTL keeps a record alive while a confirm is in flight
	MinStatusTTL = 5 * time.Minute
)

// Key returns the store key for an order id
func Key(orderID string) string {
	return KeyPrefix + orderID
}

// Option configures a store
type Option func(*options)

type options struct {
	ttl time.Duration
	now func() time.Time
}

// WithTTL overrides DefaultTTL
func WithTTL(ttl time.Duration) Option {
	return func(o *options) { o.ttl = ttl }
}

// WithClock replaces time.Now, for tests
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func buildOptions(opts []Option) options {
	o := options{ttl: DefaultTTL, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func newRecord(orderID string, amount decimal.Decimal, ticketID, memberID uint, now time.Time, ttl time.Duration) *domain.StagingRecord {
	return &domain.StagingRecord{
		OrderID:   orderID,
		Amount:    amount,
		TicketID:  ticketID,
		MemberID:  memberID,
		Status:    domain.StagingPending,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

// check compares a live record against what the caller claims. Expiry is
// handled by the caller because it mutates the store.
func check(rec *domain.StagingRecord, amount decimal.Decimal, memberID uint) error {
	if rec.MemberID != memberID {
		return domain.ErrOwnership
	}
	if !rec.Amount.Equal(amount) {
		return domain.ErrAmountMismatch
	}
	return nil
}

// statusTTL is the lifetime left on a record being rewritten with a new status
func statusTTL(rec *domain.StagingRecord, now time.Time) time.Duration {
	remaining := rec.ExpiresAt.Sub(now)
	if remaining < MinStatusTTL {
		return MinStatusTTL
	}
	return remaining
}
