package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"genieq-api/internal/adapters/persistence/models"
	"genieq-api/internal/adapters/persistence/repositories"
	"genieq-api/internal/core/domain"
)

// LedgerService exposes the member balance ledger
type LedgerService struct {
	ledger repositories.LedgerRepository
}

// NewLedgerService creates a new ledger service
func NewLedgerService(ledger repositories.LedgerRepository) *LedgerService {
	return &LedgerService{ledger: ledger}
}

// CurrentBalance returns the member's spendable units
func (s *LedgerService) CurrentBalance(ctx context.Context, memberID uint) (int, error) {
	return s.ledger.CurrentBalance(ctx, memberID)
}

// TotalCredited returns every unit ever credited to the member
func (s *LedgerService) TotalCredited(ctx context.Context, memberID uint) (int, error) {
	return s.ledger.TotalCredited(ctx, memberID)
}

// Apply appends a signed change; a change that would overdraw fails with ErrInsufficientBalance
func (s *LedgerService) Apply(ctx context.Context, memberID uint, delta int, reason string) (*models.LedgerEntry, error) {
	entry, err := s.ledger.Append(ctx, memberID, delta, reason)
	if err != nil {
		return nil, err
	}
	log.Printf("💰 Ledger member=%d delta=%+d balance=%d reason=%q", memberID, delta, entry.ResultingBalance, reason)
	return entry, nil
}

// Summary returns {balance, lifetimeCredited} for one member
func (s *LedgerService) Summary(ctx context.Context, memberID uint) (*models.BalanceSummary, error) {
	balance, err := s.ledger.CurrentBalance(ctx, memberID)
	if err != nil {
		return nil, err
	}
	credited, err := s.ledger.TotalCredited(ctx, memberID)
	if err != nil {
		return nil, err
	}
	return &models.BalanceSummary{Balance: balance, LifetimeCredited: credited}, nil
}

// History lists entries in [from, to)
func (s *LedgerService) History(ctx context.Context, memberID uint, from, to time.Time) ([]*models.LedgerEntry, error) {
	if !from.IsZero() && !to.IsZero() && !from.Before(to) {
		return nil, fmt.Errorf("%w: from must be before to", domain.ErrInvalidInput)
	}
	return s.ledger.History(ctx, memberID, from, to)
}

// Consume spends units for a generation run
func (s *LedgerService) Consume(ctx context.Context, memberID uint, units int) (*models.LedgerEntry, error) {
	if units <= 0 {
		return nil, fmt.Errorf("%w: units must be positive", domain.ErrInvalidInput)
	}
	return s.Apply(ctx, memberID, -units, domain.ReasonGeneration)
}

// Grant records a manual correction entered by an administrator
func (s *LedgerService) Grant(ctx context.Context, memberID uint, delta int, note string) (*models.LedgerEntry, error) {
	reason := domain.ReasonManualGrant
	if note != "" {
		reason = reason + ": " + note
	}
	if r := []rune(reason); len(r) > 100 {
		reason = string(r[:100])
	}
	return s.Apply(ctx, memberID, delta, reason)
}
