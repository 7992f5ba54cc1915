package repositories_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"genieq-api/internal/adapters/persistence/models"
	"genieq-api/internal/adapters/persistence/repositories"
	"genieq-api/internal/core/domain"
	"genieq-api/internal/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func newPayment(memberID uint, ticket *models.Ticket, orderID string) *models.Payment {
	return &models.Payment{
		OrderID:    orderID,
		MemberID:   memberID,
		TicketID:   ticket.ID,
		Units:      ticket.Units,
		Amount:     ticket.Price,
		Status:     domain.PaymentPaid,
		PaymentKey: "pk_" + orderID,
	}
}

func TestPaymentCreateAndLookup(t *testing.T) {
	db := testutil.NewDB(t)
	member := testutil.CreateMember(t, db, "buyer@example.com")
	ticket := testutil.CreateTicket(t, db, "T10", 10, "9900")
	payments := repositories.NewPaymentRepository(db)
	ctx := context.Background()

	require.NoError(t, payments.Create(ctx, newPayment(member.ID, ticket, "order_1")))

	got, err := payments.GetByOrderID(ctx, "order_1")
	require.NoError(t, err)
	require.Equal(t, domain.PaymentPaid, got.Status)
	require.True(t, decimal.NewFromInt(9900).Equal(got.Amount))

	err = payments.Create(ctx, newPayment(member.ID, ticket, "order_1"))
	require.ErrorIs(t, err, domain.ErrDuplicateEntry)

	_, err = payments.GetByOrderID(ctx, "missing")
	require.ErrorIs(t, err, domain.ErrUnknownPayment)

	exists, err := payments.ExistsByOrderID(ctx, "order_1")
	require.NoError(t, err)
	require.True(t, exists)
}

func TestPaymentMarkCanceledOnce(t *testing.T) {
	db := testutil.NewDB(t)
	member := testutil.CreateMember(t, db, "cancel@example.com")
	ticket := testutil.CreateTicket(t, db, "T10", 10, "9900")
	payments := repositories.NewPaymentRepository(db)
	ctx := context.Background()

	require.NoError(t, payments.Create(ctx, newPayment(member.ID, ticket, "order_2")))

	changed, err := payments.MarkCanceled(ctx, "order_2")
	require.NoError(t, err)
	require.True(t, changed)

	changed, err = payments.MarkCanceled(ctx, "order_2")
	require.NoError(t, err)
	require.False(t, changed)

	got, err := payments.GetByOrderID(ctx, "order_2")
	require.NoError(t, err)
	require.Equal(t, domain.PaymentCanceled, got.Status)
}

func TestPaymentListByMember(t *testing.T) {
	db := testutil.NewDB(t)
	member := testutil.CreateMember(t, db, "list@example.com")
	other := testutil.CreateMember(t, db, "else@example.com")
	ticket := testutil.CreateTicket(t, db, "T10", 10, "9900")
	payments := repositories.NewPaymentRepository(db)
	ctx := context.Background()

	require.NoError(t, payments.Create(ctx, newPayment(member.ID, ticket, "a")))
	require.NoError(t, payments.Create(ctx, newPayment(member.ID, ticket, "b")))
	require.NoError(t, payments.Create(ctx, newPayment(other.ID, ticket, "c")))

	list, err := payments.ListByMember(ctx, member.ID, time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "b", list[0].OrderID)
	require.NotNil(t, list[0].Ticket)
	require.Equal(t, "T10", list[0].Ticket.Code)
}

func TestStoreTransactionRollsBack(t *testing.T) {
	db := testutil.NewDB(t)
	member := testutil.CreateMember(t, db, "tx@example.com")
	ticket := testutil.CreateTicket(t, db, "T10", 10, "9900")
	store := repositories.NewStore(db)
	ctx := context.Background()

	boom := errors.New("boom")
	err := store.WithinTransaction(ctx, func(tx repositories.Store) error {
		if err := tx.Payments().Create(ctx, newPayment(member.ID, ticket, "rolled")); err != nil {
			return err
		}
		if _, err := tx.Ledger().Append(ctx, member.ID, 10, domain.ReasonTicketPurchase); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	exists, err := store.Payments().ExistsByOrderID(ctx, "rolled")
	require.NoError(t, err)
	require.False(t, exists)

	balance, err := store.Ledger().CurrentBalance(ctx, member.ID)
	require.NoError(t, err)
	require.Zero(t, balance)

	require.NoError(t, store.Ping(ctx))
}
