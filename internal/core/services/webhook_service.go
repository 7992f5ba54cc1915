package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log"
	"strings"

	"genieq-api/internal/adapters/persistence/repositories"
	"genieq-api/internal/core/domain"
)

// EventPaymentStatusChanged is the only webhook event that can change local state
const EventPaymentStatusChanged = "PAYMENT_STATUS_CHANGED"

// WebhookService applies gateway status notifications to local payments.
// Redelivery of the same notification never changes state twice.
type WebhookService struct {
	store  repositories.Store
	secret []byte
}

// NewWebhookService creates a new webhook service. An empty secret disables
// signature checks.
func NewWebhookService(store repositories.Store, secret string) *WebhookService {
	if secret == "" {
		log.Println("⚠️ TOSS_WEBHOOK_SECRET is not set: webhook signatures will not be verified")
	}
	return &WebhookService{
		store:  store,
		secret: []byte(secret),
	}
}

// VerifySignature checks hex(HMAC-SHA256(secret, timestamp + "." + body))
func (s *WebhookService) VerifySignature(timestamp, signature string, body []byte) error {
	if len(s.secret) == 0 {
		return nil
	}
	if timestamp == "" || signature == "" {
		return domain.ErrInvalidSignature
	}

	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(body)
	expected := mac.Sum(nil)

	got, err := hex.DecodeString(strings.TrimPrefix(signature, "v1="))
	if err != nil || !hmac.Equal(got, expected) {
		return domain.ErrInvalidSignature
	}
	return nil
}

// Handle applies one notification. Only CANCELED is actionable: the payment
// flips to CANCELED and the credited units are debited in one transaction.
func (s *WebhookService) Handle(ctx context.Context, n *domain.WebhookNotification) error {
	if n.OrderID == "" {
		return domain.ErrInvalidInput
	}

	payment, err := s.store.Payments().GetByOrderID(ctx, n.OrderID)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownPayment) {
			log.Printf("⚠️ Webhook for unknown order orderId=%s status=%s", n.OrderID, n.GatewayStatus)
		}
		return err
	}

	if n.GatewayStatus != domain.GatewayStatusCanceled {
		log.Printf("📨 Webhook orderId=%s status=%s (no action)", n.OrderID, n.GatewayStatus)
		return nil
	}

	changed := false
	err = s.store.WithinTransaction(ctx, func(tx repositories.Store) error {
		ok, err := tx.Payments().MarkCanceled(ctx, n.OrderID)
		if err != nil || !ok {
			return err
		}
		changed = true
		_, err = tx.Ledger().Append(ctx, payment.MemberID, -payment.Units, domain.ReasonPaymentCancellation)
		return err
	})
	if err != nil {
		log.Printf("❌ Webhook cancellation failed orderId=%s member=%d: %v", n.OrderID, payment.MemberID, err)
		return err
	}

	if changed {
		log.Printf("↩️ Payment CANCELED orderId=%s member=%d units=-%d", n.OrderID, payment.MemberID, payment.Units)
	} else {
		log.Printf("📨 Webhook orderId=%s already CANCELED", n.OrderID)
	}
	return nil
}
