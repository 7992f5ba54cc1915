package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"genieq-api/internal/adapters/persistence/models"
	"genieq-api/internal/adapters/persistence/repositories"
	"genieq-api/internal/adapters/staging"
	"genieq-api/internal/core/domain"
	"genieq-api/internal/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type cancelCall struct {
	PaymentKey string
	Reason     string
	Amount     decimal.Decimal
}

// fakeGateway approves every confirm unless confirmErr is set
type fakeGateway struct {
	mu         sync.Mutex
	confirmErr error
	delay      time.Duration
	lookups    map[string]*domain.PaymentApproval
	lookupErrs map[string]error
	confirms   []string
	cancels    []cancelCall
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		lookups:    make(map[string]*domain.PaymentApproval),
		lookupErrs: make(map[string]error),
	}
}

func (g *fakeGateway) Confirm(_ context.Context, paymentKey, orderID string, amount decimal.Decimal) (*domain.PaymentApproval, error) {
	if g.delay > 0 {
		time.Sleep(g.delay)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.confirms = append(g.confirms, orderID)
	if g.confirmErr != nil {
		return nil, g.confirmErr
	}
	now := time.Now()
	return &domain.PaymentApproval{
		PaymentKey:  paymentKey,
		OrderID:     orderID,
		Status:      domain.GatewayStatusDone,
		Method:      "CARD",
		TotalAmount: amount,
		RequestedAt: now.Add(-time.Second),
		ApprovedAt:  now,
		Raw:         []byte(`{"status":"DONE"}`),
	}, nil
}

func (g *fakeGateway) Cancel(_ context.Context, paymentKey, reason string, amount decimal.Decimal) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cancels = append(g.cancels, cancelCall{PaymentKey: paymentKey, Reason: reason, Amount: amount})
	return nil
}

func (g *fakeGateway) Lookup(_ context.Context, orderID string) (*domain.PaymentApproval, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err, ok := g.lookupErrs[orderID]; ok {
		return nil, err
	}
	if approval, ok := g.lookups[orderID]; ok {
		return approval, nil
	}
	return nil, &domain.GatewayError{Code: "NOT_FOUND_PAYMENT", Message: "not found", StatusCode: 404}
}

func (g *fakeGateway) confirmCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.confirms)
}

func (g *fakeGateway) cancelCalls() []cancelCall {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]cancelCall(nil), g.cancels...)
}

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type fixture struct {
	db       *gorm.DB
	store    repositories.Store
	staging  *staging.MemoryStore
	gateway  *fakeGateway
	clock    *testClock
	payments *PaymentService
	ledger   *LedgerService
	member   *models.Member
	ticket   *models.Ticket
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.NewDB(t)
	clock := &testClock{t: time.Date(2024, 2, 13, 12, 0, 0, 0, time.UTC)}
	stagingStore := staging.NewMemoryStore(staging.WithClock(clock.Now))
	t.Cleanup(stagingStore.Close)

	store := repositories.NewStore(db)
	gateway := newFakeGateway()
	return &fixture{
		db:       db,
		store:    store,
		staging:  stagingStore,
		gateway:  gateway,
		clock:    clock,
		payments: NewPaymentService(store, stagingStore, gateway),
		ledger:   NewLedgerService(store.Ledger()),
		member:   testutil.CreateMember(t, db, "member@genieq.test"),
		ticket:   testutil.CreateTicket(t, db, "PACK_10", 10, "9900"),
	}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func (f *fixture) balance(t *testing.T, memberID uint) int {
	t.Helper()
	balance, err := f.ledger.CurrentBalance(context.Background(), memberID)
	require.NoError(t, err)
	return balance
}
