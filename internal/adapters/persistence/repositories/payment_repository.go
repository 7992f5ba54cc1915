package repositories

import (
	"context"
	"time"

	"genieq-api/internal/adapters/persistence/models"
	"genieq-api/internal/core/domain"

	"gorm.io/gorm"
)

// paymentRepository implements PaymentRepository interface
type paymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository creates a new payment repository
func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

// Create inserts a payment; a second insert for the same order id fails with ErrDuplicateEntry
func (r *paymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	return translate(r.db.WithContext(ctx).Omit("Ticket").Create(payment).Error, domain.ErrUnknownPayment)
}

// GetByOrderID gets a payment by its merchant order id
func (r *paymentRepository) GetByOrderID(ctx context.Context, orderID string) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&payment).Error
	if err != nil {
		return nil, translate(err, domain.ErrUnknownPayment)
	}
	return &payment, nil
}

func (r *paymentRepository) ExistsByOrderID(ctx context.Context, orderID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("order_id = ?", orderID).
		Count(&count).Error
	return count > 0, err
}

// ListByMember returns the member's payments, newest first. Zero bounds are open.
func (r *paymentRepository) ListByMember(ctx context.Context, memberID uint, from, to time.Time) ([]*models.Payment, error) {
	query := r.db.WithContext(ctx).
		Preload("Ticket").
		Where("member_id = ?", memberID)
	if !from.IsZero() {
		query = query.Where("created_at >= ?", from)
	}
	if !to.IsZero() {
		query = query.Where("created_at < ?", to)
	}

	var payments []*models.Payment
	err := query.Order("created_at DESC, id DESC").Find(&payments).Error
	return payments, err
}

// MarkCanceled is a conditional update so that concurrent deliveries of the
// same cancellation only change the row once.
func (r *paymentRepository) MarkCanceled(ctx context.Context, orderID string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("order_id = ?", orderID).
		Where("status <> ?", domain.PaymentCanceled).
		Update("status", domain.PaymentCanceled)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
