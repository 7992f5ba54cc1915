package repositories

import (
	"context"
	"errors"
	"fmt"

	"genieq-api/internal/core/domain"

	"gorm.io/gorm"
)

// gormStore implements Store over a single *gorm.DB (either the pool or a tx)
type gormStore struct {
	db *gorm.DB
}

// NewStore creates a store backed by db
func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Members() MemberRepository   { return NewMemberRepository(s.db) }
func (s *gormStore) Tickets() TicketRepository   { return NewTicketRepository(s.db) }
func (s *gormStore) Payments() PaymentRepository { return NewPaymentRepository(s.db) }
func (s *gormStore) Ledger() LedgerRepository    { return NewLedgerRepository(s.db) }

// WithinTransaction runs fn in one database transaction. Any error returned
// by fn rolls the whole unit back.
func (s *gormStore) WithinTransaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}

// Ping checks the underlying connection
func (s *gormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// translate maps driver errors onto domain errors where a caller can act on them
func translate(err error, notFound error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return notFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %v", domain.ErrDuplicateEntry, err)
	default:
		return err
	}
}
