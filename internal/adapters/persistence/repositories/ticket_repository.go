package repositories

import (
	"context"

	"genieq-api/internal/adapters/persistence/models"
	"genieq-api/internal/core/domain"

	"gorm.io/gorm"
)

type ticketRepository struct {
	db *gorm.DB
}

// NewTicketRepository creates a new ticket repository
func NewTicketRepository(db *gorm.DB) TicketRepository {
	return &ticketRepository{db: db}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *models.Ticket) error {
	return translate(r.db.WithContext(ctx).Create(ticket).Error, domain.ErrTicketNotFound)
}

func (r *ticketRepository) GetByID(ctx context.Context, id uint) (*models.Ticket, error) {
	var ticket models.Ticket
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&ticket).Error
	if err != nil {
		return nil, translate(err, domain.ErrTicketNotFound)
	}
	return &ticket, nil
}

// ListActive returns purchasable tickets, cheapest first
func (r *ticketRepository) ListActive(ctx context.Context) ([]*models.Ticket, error) {
	var tickets []*models.Ticket
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("price ASC, id ASC").
		Find(&tickets).Error
	return tickets, err
}

func (r *ticketRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Ticket{}).Count(&count).Error
	return count, err
}
