package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"time"

	"genieq-api/internal/adapters/persistence/models"
	"genieq-api/internal/adapters/persistence/repositories"
	"genieq-api/internal/core/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// orderIDPattern matches the order ids the gateway accepts
var orderIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{6,64}$`)

const compensationReason = "payment could not be recorded"

// PaymentService runs the ticket purchase saga: stage, confirm against the
// gateway, record the payment and credit the ledger, cancel on failure.
type PaymentService struct {
	store   repositories.Store
	staging StagingStore
	gateway PaymentGateway
}

// NewPaymentService creates a new payment service
func NewPaymentService(store repositories.Store, staging StagingStore, gateway PaymentGateway) *PaymentService {
	return &PaymentService{
		store:   store,
		staging: staging,
		gateway: gateway,
	}
}

// StageInput represents a purchase intent
type StageInput struct {
	OrderID  string
	Amount   decimal.Decimal
	TicketID uint
}

// ConfirmInput represents the gateway's redirect back after card auth
type ConfirmInput struct {
	OrderID    string
	PaymentKey string
	Amount     decimal.Decimal
}

// Tickets returns the purchasable ticket catalog
func (s *PaymentService) Tickets(ctx context.Context) ([]*models.Ticket, error) {
	return s.store.Tickets().ListActive(ctx)
}

// Stage records what the member is about to pay for. The amount must be the
// ticket's list price.
func (s *PaymentService) Stage(ctx context.Context, memberID uint, in StageInput) (*domain.StagingRecord, error) {
	if !orderIDPattern.MatchString(in.OrderID) {
		return nil, fmt.Errorf("%w: orderId must be 6-64 characters of letters, digits, - or _", domain.ErrInvalidInput)
	}
	if !in.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", domain.ErrInvalidInput)
	}

	ticket, err := s.store.Tickets().GetByID(ctx, in.TicketID)
	if err != nil {
		return nil, err
	}
	if !ticket.IsActive {
		return nil, domain.ErrTicketNotFound
	}
	if !ticket.Price.Equal(in.Amount) {
		return nil, fmt.Errorf("%w: ticket %d costs %s", domain.ErrAmountMismatch, ticket.ID, ticket.Price.String())
	}

	exists, err := s.store.Payments().ExistsByOrderID(ctx, in.OrderID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: order %s is already paid", domain.ErrDuplicateEntry, in.OrderID)
	}

	return s.staging.Stage(ctx, in.OrderID, in.Amount, ticket.ID, memberID)
}

// Verify checks a claimed amount against the staged record
func (s *PaymentService) Verify(ctx context.Context, memberID uint, orderID string, amount decimal.Decimal) error {
	return s.staging.Inspect(ctx, orderID, amount, memberID)
}

// Confirm captures a staged payment. A second confirm for the same order
// after success fails with ErrStagingNotFound because the staged record is
// consumed on success.
func (s *PaymentService) Confirm(ctx context.Context, memberID uint, in ConfirmInput) (*models.Payment, error) {
	if in.PaymentKey == "" {
		return nil, fmt.Errorf("%w: paymentKey is required", domain.ErrInvalidInput)
	}

	// 1-2. Staged record must exist, be live, belong to the caller and match the amount
	if err := s.staging.Inspect(ctx, in.OrderID, in.Amount, memberID); err != nil {
		return nil, err
	}
	rec, err := s.staging.Fetch(ctx, in.OrderID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, domain.ErrStagingNotFound
	}

	ticket, err := s.store.Tickets().GetByID(ctx, rec.TicketID)
	if err != nil {
		return nil, err
	}

	// 3. Only one confirm per order may reach the gateway
	if err := s.staging.TransitionStatus(ctx, in.OrderID, domain.StagingPending, domain.StagingProcessing); err != nil {
		return nil, err
	}

	// The capture is in flight from here on; a dropped client must not
	// abandon the saga halfway.
	ctx = context.WithoutCancel(ctx)

	// 4. Gateway capture
	approval, err := s.gateway.Confirm(ctx, in.PaymentKey, in.OrderID, rec.Amount)
	if err != nil {
		var gwErr *domain.GatewayError
		if errors.As(err, &gwErr) {
			log.Printf("❌ Gateway confirm failed orderId=%s member=%d: %v", in.OrderID, memberID, err)
			if serr := s.staging.SetStatus(ctx, in.OrderID, domain.StagingFailed); serr != nil {
				log.Printf("⚠️ Failed to mark staging FAILED orderId=%s: %v", in.OrderID, serr)
			}
			return nil, err
		}

		// 2xx with an unreadable body: the charge went through
		s.compensate(ctx, rec, &domain.PaymentApproval{PaymentKey: in.PaymentKey, TotalAmount: rec.Amount}, err)
		return nil, fmt.Errorf("%w: %v", domain.ErrPaymentPersistence, err)
	}
	if approval.PaymentKey == "" {
		approval.PaymentKey = in.PaymentKey
	}

	// 5. Record payment, credit units, consume staging
	payment, err := s.complete(ctx, rec, ticket, approval)
	if errors.Is(err, domain.ErrDuplicateEntry) {
		// the reconcile sweep may have recorded this capture first
		return s.alreadyRecorded(ctx, rec, approval)
	}
	if err != nil {
		// 6. Compensate
		s.compensate(ctx, rec, approval, err)
		return nil, fmt.Errorf("%w: %v", domain.ErrPaymentPersistence, err)
	}

	log.Printf("✅ Payment COMPLETED orderId=%s member=%d units=%d", in.OrderID, memberID, payment.Units)
	return payment, nil
}

// complete persists the payment and the ledger credit in one transaction and
// then drops the staged record.
func (s *PaymentService) complete(ctx context.Context, rec *domain.StagingRecord, ticket *models.Ticket, approval *domain.PaymentApproval) (*models.Payment, error) {
	payment := &models.Payment{
		OrderID:         rec.OrderID,
		MemberID:        rec.MemberID,
		TicketID:        ticket.ID,
		Units:           ticket.Units,
		Amount:          rec.Amount,
		Status:          domain.PaymentPaid,
		PaymentKey:      approval.PaymentKey,
		Method:          approval.Method,
		TotalAmount:     approval.TotalAmount,
		RequestedAt:     timePtr(approval.RequestedAt),
		ApprovedAt:      timePtr(approval.ApprovedAt),
		GatewayResponse: datatypes.JSON(approval.Raw),
	}
	if payment.TotalAmount.IsZero() {
		payment.TotalAmount = rec.Amount
	}

	err := s.store.WithinTransaction(ctx, func(tx repositories.Store) error {
		if err := tx.Payments().Create(ctx, payment); err != nil {
			return err
		}
		_, err := tx.Ledger().Append(ctx, rec.MemberID, ticket.Units, domain.ReasonTicketPurchase)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.consume(ctx, rec.OrderID)
	return payment, nil
}

// alreadyRecorded answers a confirm whose order is already in the payments
// table. The same capture is a success; a different one is compensated.
func (s *PaymentService) alreadyRecorded(ctx context.Context, rec *domain.StagingRecord, approval *domain.PaymentApproval) (*models.Payment, error) {
	payment, err := s.store.Payments().GetByOrderID(ctx, rec.OrderID)
	if err == nil && payment.PaymentKey != approval.PaymentKey {
		err = fmt.Errorf("%w: order %s was paid with another payment key", domain.ErrDuplicateEntry, rec.OrderID)
	}
	if err != nil {
		s.compensate(ctx, rec, approval, err)
		return nil, fmt.Errorf("%w: %v", domain.ErrPaymentPersistence, err)
	}
	s.consume(ctx, rec.OrderID)
	log.Printf("✅ Payment already recorded orderId=%s member=%d", rec.OrderID, rec.MemberID)
	return payment, nil
}

// consume marks the staged record COMPLETED and deletes it. A record left
// behind is COMPLETED, so the reconcile sweep ignores it until it expires.
func (s *PaymentService) consume(ctx context.Context, orderID string) {
	if err := s.staging.SetStatus(ctx, orderID, domain.StagingCompleted); err != nil && !errors.Is(err, domain.ErrStagingNotFound) {
		log.Printf("⚠️ Failed to mark staging COMPLETED orderId=%s: %v", orderID, err)
	}
	if _, err := s.staging.Remove(ctx, orderID); err != nil {
		log.Printf("⚠️ Payment recorded but staging not removed orderId=%s: %v", orderID, err)
	}
}

// compensate voids the capture after a local failure. It is attempted once;
// a failed cancel is left for reconciliation.
func (s *PaymentService) compensate(ctx context.Context, rec *domain.StagingRecord, approval *domain.PaymentApproval, cause error) {
	log.Printf("❌ Recording payment failed orderId=%s member=%d: %v", rec.OrderID, rec.MemberID, cause)

	amount := approval.TotalAmount
	if !amount.IsPositive() {
		amount = rec.Amount
	}
	if err := s.gateway.Cancel(ctx, approval.PaymentKey, compensationReason, amount); err != nil {
		log.Printf("❌ Compensating cancel FAILED orderId=%s amount=%s: %v (manual reconciliation required)", rec.OrderID, amount.String(), err)
	} else {
		log.Printf("↩️ Capture canceled orderId=%s amount=%s", rec.OrderID, amount.String())
	}

	if err := s.staging.SetStatus(ctx, rec.OrderID, domain.StagingFailed); err != nil {
		log.Printf("⚠️ Failed to mark staging FAILED orderId=%s: %v", rec.OrderID, err)
	}
}

// ListPayments returns the member's own payments in [from, to)
func (s *PaymentService) ListPayments(ctx context.Context, memberID uint, from, to time.Time) ([]*models.Payment, error) {
	if !from.IsZero() && !to.IsZero() && !from.Before(to) {
		return nil, fmt.Errorf("%w: from must be before to", domain.ErrInvalidInput)
	}
	return s.store.Payments().ListByMember(ctx, memberID, from, to)
}

// StorageCheck reports each step of the staging self-test
type StorageCheck struct {
	Available bool   `json:"available"`
	Staged    bool   `json:"staged"`
	Fetched   bool   `json:"fetched"`
	Verified  bool   `json:"verified"`
	Removed   bool   `json:"removed"`
	Error     string `json:"error,omitempty"`
}

// CheckStorage runs a stage, fetch, verify, remove round on a throwaway order
func (s *PaymentService) CheckStorage(ctx context.Context) *StorageCheck {
	result := &StorageCheck{}
	if err := s.staging.Ping(ctx); err != nil {
		result.Error = err.Error()
		return result
	}
	result.Available = true

	orderID := "storage-test-" + uuid.NewString()
	amount := decimal.NewFromInt(1)
	if _, err := s.staging.Stage(ctx, orderID, amount, 0, 0); err != nil {
		result.Error = err.Error()
		return result
	}
	result.Staged = true

	rec, err := s.staging.Fetch(ctx, orderID)
	result.Fetched = err == nil && rec != nil
	result.Verified = s.staging.Verify(ctx, orderID, amount, 0)

	removed, err := s.staging.Remove(ctx, orderID)
	result.Removed = err == nil && removed
	if err != nil {
		result.Error = err.Error()
	}
	return result
}

// Healthy reports whether the staging store answers
func (s *PaymentService) Healthy(ctx context.Context) error {
	return s.staging.Ping(ctx)
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
