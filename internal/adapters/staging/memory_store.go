package staging

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"genieq-api/internal/core/domain"

	"github.com/shopspring/decimal"
)

// MemoryStore is a single-process staging store for development without Redis.
// Records are not shared between instances.
type MemoryStore struct {
	opts     options
	store    map[string]domain.StagingRecord // key = orderId
	mu       sync.RWMutex
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewMemoryStore creates an in-process store and starts its cleanup loop
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		opts:     buildOptions(opts),
		store:    make(map[string]domain.StagingRecord),
		stopChan: make(chan struct{}),
	}
	go s.cleanupLoop(time.Minute)
	return s
}

// Close stops the cleanup loop
func (s *MemoryStore) Close() {
	s.stopOnce.Do(func() { close(s.stopChan) })
}

func (s *MemoryStore) Stage(_ context.Context, orderID string, amount decimal.Decimal, ticketID, memberID uint) (*domain.StagingRecord, error) {
	rec := newRecord(orderID, amount, ticketID, memberID, s.opts.now(), s.opts.ttl)

	s.mu.Lock()
	s.store[orderID] = *rec
	s.mu.Unlock()

	log.Printf("📝 Payment staged orderId=%s member=%d amount=%s", orderID, memberID, amount.String())
	return rec, nil
}

func (s *MemoryStore) Fetch(_ context.Context, orderID string) (*domain.StagingRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.store[orderID]
	if !ok || rec.IsExpired(s.opts.now()) {
		return nil, nil
	}
	return &rec, nil
}

func (s *MemoryStore) Inspect(_ context.Context, orderID string, amount decimal.Decimal, memberID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.store[orderID]
	if !ok {
		return domain.ErrStagingNotFound
	}
	if rec.IsExpired(s.opts.now()) {
		delete(s.store, orderID)
		return domain.ErrStagingExpired
	}
	return check(&rec, amount, memberID)
}

func (s *MemoryStore) Verify(ctx context.Context, orderID string, amount decimal.Decimal, memberID uint) bool {
	return s.Inspect(ctx, orderID, amount, memberID) == nil
}

func (s *MemoryStore) SetStatus(_ context.Context, orderID string, status domain.StagingStatus) error {
	return s.update(orderID, func(rec *domain.StagingRecord) error {
		rec.Status = status
		return nil
	})
}

func (s *MemoryStore) TransitionStatus(_ context.Context, orderID string, from, to domain.StagingStatus) error {
	return s.update(orderID, func(rec *domain.StagingRecord) error {
		if rec.Status != from {
			return fmt.Errorf("%w: status is %s, expected %s", domain.ErrStagingConflict, rec.Status, from)
		}
		rec.Status = to
		if to == domain.StagingProcessing && rec.ProcessingAt.IsZero() {
			rec.ProcessingAt = s.opts.now()
		}
		return nil
	})
}

func (s *MemoryStore) update(orderID string, mutate func(*domain.StagingRecord) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.opts.now()
	rec, ok := s.store[orderID]
	if !ok || rec.IsExpired(now) {
		return domain.ErrStagingNotFound
	}
	if err := mutate(&rec); err != nil {
		return err
	}
	rec.ExpiresAt = now.Add(statusTTL(&rec, now))
	s.store[orderID] = rec
	return nil
}

func (s *MemoryStore) Remove(_ context.Context, orderID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.store[orderID]
	delete(s.store, orderID)
	return ok, nil
}

func (s *MemoryStore) ListByStatus(_ context.Context, status domain.StagingStatus) ([]*domain.StagingRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.opts.now()
	var records []*domain.StagingRecord
	for _, rec := range s.store {
		if rec.Status == status && !rec.IsExpired(now) {
			rec := rec
			records = append(records, &rec)
		}
	}
	return records, nil
}

func (s *MemoryStore) Ping(context.Context) error {
	return nil
}

// cleanupLoop periodically removes expired records
func (s *MemoryStore) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.purgeExpired()
		case <-s.stopChan:
			return
		}
	}
}

func (s *MemoryStore) purgeExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.opts.now()
	purged := 0
	for key, rec := range s.store {
		if rec.IsExpired(now) {
			delete(s.store, key)
			purged++
		}
	}
	return purged
}
