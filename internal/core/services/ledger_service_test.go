package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"genieq-api/internal/core/domain"

	"github.com/stretchr/testify/require"
)

func TestLedgerScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	entry, err := f.ledger.Apply(ctx, f.member.ID, 5, "signup")
	require.NoError(t, err)
	require.Equal(t, 5, entry.ResultingBalance)

	_, err = f.ledger.Apply(ctx, f.member.ID, -6, "generate")
	require.ErrorIs(t, err, domain.ErrInsufficientBalance)
	require.Equal(t, 5, f.balance(t, f.member.ID))

	summary, err := f.ledger.Summary(ctx, f.member.ID)
	require.NoError(t, err)
	require.Equal(t, 5, summary.Balance)
	require.Equal(t, 5, summary.LifetimeCredited)
}

func TestLedgerConsume(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.ledger.Consume(ctx, f.member.ID, 0)
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.ledger.Apply(ctx, f.member.ID, 3, domain.ReasonTicketPurchase)
	require.NoError(t, err)

	entry, err := f.ledger.Consume(ctx, f.member.ID, 2)
	require.NoError(t, err)
	require.Equal(t, -2, entry.Delta)
	require.Equal(t, 1, entry.ResultingBalance)
	require.Equal(t, domain.ReasonGeneration, entry.Reason)

	_, err = f.ledger.Consume(ctx, f.member.ID, 2)
	require.ErrorIs(t, err, domain.ErrInsufficientBalance)

	summary, err := f.ledger.Summary(ctx, f.member.ID)
	require.NoError(t, err)
	require.Equal(t, 1, summary.Balance)
	require.Equal(t, 3, summary.LifetimeCredited)
}

func TestLedgerGrantReason(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	entry, err := f.ledger.Grant(ctx, f.member.ID, 4, "")
	require.NoError(t, err)
	require.Equal(t, domain.ReasonManualGrant, entry.Reason)

	entry, err = f.ledger.Grant(ctx, f.member.ID, 1, strings.Repeat("보상", 80))
	require.NoError(t, err)
	require.Equal(t, 100, len([]rune(entry.Reason)))
	require.True(t, strings.HasPrefix(entry.Reason, domain.ReasonManualGrant+": "))
}

func TestLedgerHistoryRange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.ledger.Apply(ctx, f.member.ID, 1, "one")
	require.NoError(t, err)

	now := time.Now()
	_, err = f.ledger.History(ctx, f.member.ID, now, now.Add(-time.Hour))
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	entries, err := f.ledger.History(ctx, f.member.ID, now.Add(-time.Hour), now.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, entries, 1)
}
