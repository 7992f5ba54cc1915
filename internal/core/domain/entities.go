package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Roles carried in access tokens
const (
	RoleUser  = "ROLE_USER"
	RoleAdmin = "ROLE_ADMIN"
)

// NormalizeRole maps a bare or empty role onto the ROLE_ form.
func NormalizeRole(role string) string {
	role = strings.TrimSpace(role)
	if role == "" {
		return RoleUser
	}
	if !strings.HasPrefix(role, "ROLE_") {
		return "ROLE_" + strings.ToUpper(role)
	}
	return role
}

// Principal is the authenticated identity attached to a request.
type Principal struct {
	MemberID uint
	Role     string
}

// StagingStatus is the lifecycle state of a staged payment.
// PENDING -> PROCESSING -> COMPLETED | FAILED. RECONCILING marks a
// PROCESSING record claimed by the reconcile sweep.
type StagingStatus string

const (
	StagingPending     StagingStatus = "PENDING"
	StagingProcessing  StagingStatus = "PROCESSING"
	StagingReconciling StagingStatus = "RECONCILING"
	StagingCompleted   StagingStatus = "COMPLETED"
	StagingFailed      StagingStatus = "FAILED"
)

// StagingRecord is the amount a member committed to before the card flow.
type StagingRecord struct {
	OrderID   string          `json:"orderId"`
	Amount    decimal.Decimal `json:"amount"`
	TicketID  uint            `json:"ticketId"`
	MemberID  uint            `json:"memberId"`
	Status    StagingStatus   `json:"status"`
	CreatedAt time.Time       `json:"createdAt"`
	ExpiresAt time.Time       `json:"expiresAt"`
	// ProcessingAt is when a confirm first moved the record to PROCESSING
	ProcessingAt time.Time `json:"processingAt"`
}

// IsExpired reports whether the record is past its expiry at now.
func (r *StagingRecord) IsExpired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// PaymentStatus is the persisted state of a payment record. Records are
// written only after a capture, so they start PAID.
type PaymentStatus string

const (
	PaymentPaid     PaymentStatus = "PAID"
	PaymentCanceled PaymentStatus = "CANCELED"
)

// Gateway-side payment states
const (
	GatewayStatusDone     = "DONE"
	GatewayStatusCanceled = "CANCELED"
)

// PaymentApproval is what the gateway reports for a captured payment.
type PaymentApproval struct {
	PaymentKey  string
	OrderID     string
	Status      string
	Method      string
	TotalAmount decimal.Decimal
	RequestedAt time.Time
	ApprovedAt  time.Time
	Raw         []byte
}

// WebhookNotification is a gateway status change for one order.
type WebhookNotification struct {
	EventType     string
	OrderID       string
	PaymentKey    string
	GatewayStatus string
}

// Ledger reasons
const (
	ReasonTicketPurchase      = "ticket purchase"
	ReasonPaymentCancellation = "payment cancellation"
	ReasonGeneration          = "generation"
	ReasonManualGrant         = "manual grant"
)
