package repositories

import (
	"context"
	"fmt"
	"time"

	"genieq-api/internal/adapters/persistence/models"
	"genieq-api/internal/core/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ledgerRepository implements LedgerRepository over the ledger_entries table
type ledgerRepository struct {
	db *gorm.DB
}

// NewLedgerRepository creates a new ledger repository
func NewLedgerRepository(db *gorm.DB) LedgerRepository {
	return &ledgerRepository{db: db}
}

// Append records a balance change. The member row is locked for the duration
// of the read-compute-insert so appends for one member are serialized.
func (r *ledgerRepository) Append(ctx context.Context, memberID uint, delta int, reason string) (*models.LedgerEntry, error) {
	if delta == 0 {
		return nil, fmt.Errorf("%w: ledger delta must be non-zero", domain.ErrInvalidInput)
	}

	var entry *models.LedgerEntry
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var member models.Member
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id").
			Where("id = ?", memberID).
			First(&member).Error; err != nil {
			return translate(err, domain.ErrMemberNotFound)
		}

		balance, err := latestBalance(tx, memberID)
		if err != nil {
			return err
		}

		next := balance + delta
		if next < 0 {
			return fmt.Errorf("%w: balance %d, change %d", domain.ErrInsufficientBalance, balance, delta)
		}

		entry = &models.LedgerEntry{
			MemberID:         memberID,
			Delta:            delta,
			ResultingBalance: next,
			Reason:           reason,
		}
		return tx.Create(entry).Error
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// CurrentBalance returns the resulting balance of the member's newest entry, or 0
func (r *ledgerRepository) CurrentBalance(ctx context.Context, memberID uint) (int, error) {
	return latestBalance(r.db.WithContext(ctx), memberID)
}

// TotalCredited sums all positive deltas ever recorded for the member
func (r *ledgerRepository) TotalCredited(ctx context.Context, memberID uint) (int, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.LedgerEntry{}).
		Select("COALESCE(SUM(delta), 0)").
		Where("member_id = ?", memberID).
		Where("delta > 0").
		Scan(&total).Error
	return int(total), err
}

// History returns entries in [from, to), newest first. Zero bounds are open.
func (r *ledgerRepository) History(ctx context.Context, memberID uint, from, to time.Time) ([]*models.LedgerEntry, error) {
	query := r.db.WithContext(ctx).Where("member_id = ?", memberID)
	if !from.IsZero() {
		query = query.Where("created_at >= ?", from)
	}
	if !to.IsZero() {
		query = query.Where("created_at < ?", to)
	}

	var entries []*models.LedgerEntry
	err := query.Order("id DESC").Find(&entries).Error
	return entries, err
}

func latestBalance(db *gorm.DB, memberID uint) (int, error) {
	var entries []models.LedgerEntry
	err := db.Where("member_id = ?", memberID).
		Order("id DESC").
		Limit(1).
		Find(&entries).Error
	if err != nil {
		return 0, err
	}
	if len(entries) == 0 {
		return 0, nil
	}
	return entries[0].ResultingBalance, nil
}
