package staging

import (
	"context"
	"sync"
	"testing"
	"time"

	"genieq-api/internal/core/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type store interface {
	Stage(ctx context.Context, orderID string, amount decimal.Decimal, ticketID, memberID uint) (*domain.StagingRecord, error)
	Fetch(ctx context.Context, orderID string) (*domain.StagingRecord, error)
	Inspect(ctx context.Context, orderID string, amount decimal.Decimal, memberID uint) error
	Verify(ctx context.Context, orderID string, amount decimal.Decimal, memberID uint) bool
	SetStatus(ctx context.Context, orderID string, status domain.StagingStatus) error
	TransitionStatus(ctx context.Context, orderID string, from, to domain.StagingStatus) error
	Remove(ctx context.Context, orderID string) (bool, error)
	ListByStatus(ctx context.Context, status domain.StagingStatus) ([]*domain.StagingRecord, error)
	Ping(ctx context.Context) error
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
	store store
	clock *testClock
	// advance moves both the store clock and, for Redis, the server clock
	advance func(time.Duration)
	mr      *miniredis.Miniredis
}

func newMemoryFixture(t *testing.T) *fixture {
	clock := &testClock{t: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	s := NewMemoryStore(WithClock(clock.Now))
	t.Cleanup(s.Close)
	return &fixture{store: s, clock: clock, advance: clock.Advance}
}

func newRedisFixture(t *testing.T) *fixture {
	clock := &testClock{t: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return &fixture{
		store: NewRedisStore(client, WithClock(clock.Now)),
		clock: clock,
		advance: func(d time.Duration) {
			clock.Advance(d)
			mr.FastForward(d)
		},
		mr: mr,
	}
}

var fixtures = map[string]func(t *testing.T) *fixture{
	"memory": newMemoryFixture,
	"redis":  newRedisFixture,
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestVerify(t *testing.T) {
	for name, newFixture := range fixtures {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()

			rec, err := f.store.Stage(ctx, "order_1", dec("1000"), 5, 42)
			require.NoError(t, err)
			require.Equal(t, domain.StagingPending, rec.Status)
			require.True(t, f.clock.Now().Add(DefaultTTL).Equal(rec.ExpiresAt))

			require.True(t, f.store.Verify(ctx, "order_1", dec("1000"), 42))
			require.True(t, f.store.Verify(ctx, "order_1", dec("1000.00"), 42))
			require.False(t, f.store.Verify(ctx, "order_1", dec("999"), 42))
			require.False(t, f.store.Verify(ctx, "order_1", dec("1000"), 43))
			require.False(t, f.store.Verify(ctx, "order_9", dec("1000"), 42))

			require.ErrorIs(t, f.store.Inspect(ctx, "order_1", dec("999"), 42), domain.ErrAmountMismatch)
			require.ErrorIs(t, f.store.Inspect(ctx, "order_1", dec("1000"), 43), domain.ErrOwnership)
			require.ErrorIs(t, f.store.Inspect(ctx, "order_9", dec("1000"), 42), domain.ErrStagingNotFound)

			// failed checks leave the record untouched
			got, err := f.store.Fetch(ctx, "order_1")
			require.NoError(t, err)
			require.NotNil(t, got)
			require.Equal(t, domain.StagingPending, got.Status)
			require.Equal(t, uint(5), got.TicketID)
		})
	}
}

func TestExpiry(t *testing.T) {
	for name, newFixture := range fixtures {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()

			_, err := f.store.Stage(ctx, "order_1", dec("1000"), 5, 42)
			require.NoError(t, err)

			f.clock.Advance(DefaultTTL)

			got, err := f.store.Fetch(ctx, "order_1")
			require.NoError(t, err)
			require.Nil(t, got)
			require.False(t, f.store.Verify(ctx, "order_1", dec("1000"), 42))

			// the expired record was dropped by the failed verify
			removed, err := f.store.Remove(ctx, "order_1")
			require.NoError(t, err)
			require.False(t, removed)
		})
	}
}

func TestInspectReportsExpiry(t *testing.T) {
	for name, newFixture := range fixtures {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()

			_, err := f.store.Stage(ctx, "order_1", dec("1000"), 5, 42)
			require.NoError(t, err)
			f.clock.Advance(DefaultTTL + time.Second)

			require.ErrorIs(t, f.store.Inspect(ctx, "order_1", dec("1000"), 42), domain.ErrStagingExpired)
			require.ErrorIs(t, f.store.Inspect(ctx, "order_1", dec("1000"), 42), domain.ErrStagingNotFound)
		})
	}
}

func TestSetStatusKeepsMinimumTTL(t *testing.T) {
	for name, newFixture := range fixtures {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()

			_, err := f.store.Stage(ctx, "order_1", dec("1000"), 5, 42)
			require.NoError(t, err)

			f.advance(10 * time.Minute)
			require.NoError(t, f.store.SetStatus(ctx, "order_1", domain.StagingProcessing))
			got, err := f.store.Fetch(ctx, "order_1")
			require.NoError(t, err)
			require.Equal(t, domain.StagingProcessing, got.Status)
			require.True(t, f.clock.Now().Add(20*time.Minute).Equal(got.ExpiresAt))

			f.advance(18 * time.Minute)
			require.NoError(t, f.store.SetStatus(ctx, "order_1", domain.StagingFailed))
			got, err = f.store.Fetch(ctx, "order_1")
			require.NoError(t, err)
			require.True(t, f.clock.Now().Add(MinStatusTTL).Equal(got.ExpiresAt))

			if f.mr != nil {
				require.Equal(t, MinStatusTTL, f.mr.TTL(Key("order_1")))
			}

			f.advance(4 * time.Minute)
			got, err = f.store.Fetch(ctx, "order_1")
			require.NoError(t, err)
			require.NotNil(t, got)
			require.Equal(t, domain.StagingFailed, got.Status)

			require.ErrorIs(t, f.store.SetStatus(ctx, "missing", domain.StagingFailed), domain.ErrStagingNotFound)
		})
	}
}

func TestTransitionStatus(t *testing.T) {
	for name, newFixture := range fixtures {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()

			_, err := f.store.Stage(ctx, "order_1", dec("1000"), 5, 42)
			require.NoError(t, err)

			require.NoError(t, f.store.TransitionStatus(ctx, "order_1", domain.StagingPending, domain.StagingProcessing))
			err = f.store.TransitionStatus(ctx, "order_1", domain.StagingPending, domain.StagingProcessing)
			require.ErrorIs(t, err, domain.ErrStagingConflict)

			err = f.store.TransitionStatus(ctx, "missing", domain.StagingPending, domain.StagingProcessing)
			require.ErrorIs(t, err, domain.ErrStagingNotFound)
		})
	}
}

func TestTransitionStampsProcessingAt(t *testing.T) {
	for name, newFixture := range fixtures {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()

			_, err := f.store.Stage(ctx, "order_1", dec("1000"), 5, 42)
			require.NoError(t, err)

			f.advance(12 * time.Minute)
			started := f.clock.Now()
			require.NoError(t, f.store.TransitionStatus(ctx, "order_1", domain.StagingPending, domain.StagingProcessing))

			rec, err := f.store.Fetch(ctx, "order_1")
			require.NoError(t, err)
			require.True(t, started.Equal(rec.ProcessingAt))
			require.True(t, rec.ProcessingAt.After(rec.CreatedAt))

			// a claim and release keeps the original start
			f.advance(time.Minute)
			require.NoError(t, f.store.TransitionStatus(ctx, "order_1", domain.StagingProcessing, domain.StagingReconciling))
			require.NoError(t, f.store.TransitionStatus(ctx, "order_1", domain.StagingReconciling, domain.StagingProcessing))

			rec, err = f.store.Fetch(ctx, "order_1")
			require.NoError(t, err)
			require.Equal(t, domain.StagingProcessing, rec.Status)
			require.True(t, started.Equal(rec.ProcessingAt))
		})
	}
}

func TestTransitionStatusIsExclusive(t *testing.T) {
	for name, newFixture := range fixtures {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()

			_, err := f.store.Stage(ctx, "order_1", dec("1000"), 5, 42)
			require.NoError(t, err)

			const racers = 10
			var wg sync.WaitGroup
			results := make(chan error, racers)
			for i := 0; i < racers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					results <- f.store.TransitionStatus(ctx, "order_1", domain.StagingPending, domain.StagingProcessing)
				}()
			}
			wg.Wait()
			close(results)

			won := 0
			for err := range results {
				if err == nil {
					won++
					continue
				}
				require.ErrorIs(t, err, domain.ErrStagingConflict)
			}
			require.Equal(t, 1, won)
		})
	}
}

func TestStageOverwritesAndRemove(t *testing.T) {
	for name, newFixture := range fixtures {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()

			_, err := f.store.Stage(ctx, "order_1", dec("1000"), 5, 42)
			require.NoError(t, err)
			require.NoError(t, f.store.SetStatus(ctx, "order_1", domain.StagingProcessing))

			_, err = f.store.Stage(ctx, "order_1", dec("2000"), 6, 42)
			require.NoError(t, err)
			got, err := f.store.Fetch(ctx, "order_1")
			require.NoError(t, err)
			require.Equal(t, domain.StagingPending, got.Status)
			require.True(t, dec("2000").Equal(got.Amount))

			removed, err := f.store.Remove(ctx, "order_1")
			require.NoError(t, err)
			require.True(t, removed)
			removed, err = f.store.Remove(ctx, "order_1")
			require.NoError(t, err)
			require.False(t, removed)
		})
	}
}

func TestListByStatus(t *testing.T) {
	for name, newFixture := range fixtures {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()

			for _, id := range []string{"a", "b", "c"} {
				_, err := f.store.Stage(ctx, id, dec("1000"), 5, 42)
				require.NoError(t, err)
			}
			require.NoError(t, f.store.SetStatus(ctx, "b", domain.StagingProcessing))

			processing, err := f.store.ListByStatus(ctx, domain.StagingProcessing)
			require.NoError(t, err)
			require.Len(t, processing, 1)
			require.Equal(t, "b", processing[0].OrderID)

			pending, err := f.store.ListByStatus(ctx, domain.StagingPending)
			require.NoError(t, err)
			require.Len(t, pending, 2)

			require.NoError(t, f.store.Ping(ctx))
		})
	}
}

func TestRedisKeyLayout(t *testing.T) {
	f := newRedisFixture(t)
	ctx := context.Background()

	_, err := f.store.Stage(ctx, "order_1", dec("1000"), 5, 42)
	require.NoError(t, err)

	require.True(t, f.mr.Exists("payment:temp:order_1"))
	require.Equal(t, DefaultTTL, f.mr.TTL("payment:temp:order_1"))

	f.mr.FastForward(DefaultTTL)
	require.False(t, f.mr.Exists("payment:temp:order_1"))
}

func TestMemoryPurgeExpired(t *testing.T) {
	clock := &testClock{t: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	s := NewMemoryStore(WithClock(clock.Now), WithTTL(time.Minute))
	defer s.Close()

	_, err := s.Stage(context.Background(), "order_1", dec("1"), 1, 1)
	require.NoError(t, err)
	require.Zero(t, s.purgeExpired())

	clock.Advance(time.Minute)
	require.Equal(t, 1, s.purgeExpired())
}
