package repositories

import (
	"context"
	"time"

	"genieq-api/internal/adapters/persistence/models"
)

// Store groups the repositories that share one database handle. Repositories
// obtained from the Store passed to WithinTransaction run inside that
// transaction.
type Store interface {
	Members() MemberRepository
	Tickets() TicketRepository
	Payments() PaymentRepository
	Ledger() LedgerRepository
	WithinTransaction(ctx context.Context, fn func(tx Store) error) error
	Ping(ctx context.Context) error
}

// MemberRepository defines member repository interface
type MemberRepository interface {
	Create(ctx context.Context, member *models.Member) error
	GetByID(ctx context.Context, id uint) (*models.Member, error)
	GetByEmail(ctx context.Context, email string) (*models.Member, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

// TicketRepository defines the ticket catalog interface
type TicketRepository interface {
	Create(ctx context.Context, ticket *models.Ticket) error
	GetByID(ctx context.Context, id uint) (*models.Ticket, error)
	ListActive(ctx context.Context) ([]*models.Ticket, error)
	Count(ctx context.Context) (int64, error)
}

// PaymentRepository defines payment record interface
type PaymentRepository interface {
	Create(ctx context.Context, payment *models.Payment) error
	GetByOrderID(ctx context.Context, orderID string) (*models.Payment, error)
	ExistsByOrderID(ctx context.Context, orderID string) (bool, error)
	ListByMember(ctx context.Context, memberID uint, from, to time.Time) ([]*models.Payment, error)
	// MarkCanceled flips a payment to CANCELED and reports whether this call
	// made the change.
	MarkCanceled(ctx context.Context, orderID string) (bool, error)
}

// LedgerRepository defines the append-only balance ledger
type LedgerRepository interface {
	Append(ctx context.Context, memberID uint, delta int, reason string) (*models.LedgerEntry, error)
	CurrentBalance(ctx context.Context, memberID uint) (int, error)
	TotalCredited(ctx context.Context, memberID uint) (int, error)
	History(ctx context.Context, memberID uint, from, to time.Time) ([]*models.LedgerEntry, error)
}
