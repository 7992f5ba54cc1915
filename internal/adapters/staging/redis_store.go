package staging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"genieq-api/internal/core/domain"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// RedisStore keeps staging records as JSON values under payment:temp:{orderId}
// with a native key TTL, so records are shared by every API instance.
type RedisStore struct {
	client redis.UniversalClient
	opts   options
}

// NewRedisStore creates a Redis backed staging store
func NewRedisStore(client redis.UniversalClient, opts ...Option) *RedisStore {
	return &RedisStore{client: client, opts: buildOptions(opts)}
}

// Stage writes a fresh PENDING record, replacing any previous one for the order
func (s *RedisStore) Stage(ctx context.Context, orderID string, amount decimal.Decimal, ticketID, memberID uint) (*domain.StagingRecord, error) {
	rec := newRecord(orderID, amount, ticketID, memberID, s.opts.now(), s.opts.ttl)
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode staging record: %w", err)
	}
	if err := s.client.Set(ctx, Key(orderID), data, s.opts.ttl).Err(); err != nil {
		return nil, fmt.Errorf("stage %s: %w", orderID, err)
	}
	log.Printf("📝 Payment staged orderId=%s member=%d amount=%s", orderID, memberID, amount.String())
	return rec, nil
}

// Fetch returns nil when the record is missing or past its expiry
func (s *RedisStore) Fetch(ctx context.Context, orderID string) (*domain.StagingRecord, error) {
	rec, err := s.get(ctx, s.client, orderID)
	if err != nil || rec == nil {
		return nil, err
	}
	if rec.IsExpired(s.opts.now()) {
		return nil, nil
	}
	return rec, nil
}

// Inspect explains why a verify would fail. Expired records are deleted.
func (s *RedisStore) Inspect(ctx context.Context, orderID string, amount decimal.Decimal, memberID uint) error {
	rec, err := s.get(ctx, s.client, orderID)
	if err != nil {
		return err
	}
	if rec == nil {
		return domain.ErrStagingNotFound
	}
	if rec.IsExpired(s.opts.now()) {
		if _, err := s.Remove(ctx, orderID); err != nil {
			log.Printf("⚠️ Failed to drop expired staging record orderId=%s: %v", orderID, err)
		}
		return domain.ErrStagingExpired
	}
	return check(rec, amount, memberID)
}

// Verify reports whether amount and member match a live record
func (s *RedisStore) Verify(ctx context.Context, orderID string, amount decimal.Decimal, memberID uint) bool {
	return s.Inspect(ctx, orderID, amount, memberID) == nil
}

// SetStatus rewrites the status keeping the remaining TTL (never below MinStatusTTL)
func (s *RedisStore) SetStatus(ctx context.Context, orderID string, status domain.StagingStatus) error {
	return s.update(ctx, orderID, func(rec *domain.StagingRecord) error {
		rec.Status = status
		return nil
	})
}

// TransitionStatus moves the record from one status to another only if it is
// still in the expected status. Concurrent writers lose with ErrStagingConflict.
func (s *RedisStore) TransitionStatus(ctx context.Context, orderID string, from, to domain.StagingStatus) error {
	return s.update(ctx, orderID, func(rec *domain.StagingRecord) error {
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

func (s *RedisStore) update(ctx context.Context, orderID string, mutate func(*domain.StagingRecord) error) error {
	key := Key(orderID)
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		rec, err := s.get(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if rec == nil || rec.IsExpired(s.opts.now()) {
			return domain.ErrStagingNotFound
		}
		if err := mutate(rec); err != nil {
			return err
		}

		now := s.opts.now()
		ttl := statusTTL(rec, now)
		rec.ExpiresAt = now.Add(ttl)
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encode staging record: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, ttl)
			return nil
		})
		return err
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		return fmt.Errorf("%w: %s modified during update", domain.ErrStagingConflict, orderID)
	}
	return err
}

// Remove deletes the record and reports whether one existed
func (s *RedisStore) Remove(ctx context.Context, orderID string) (bool, error) {
	n, err := s.client.Del(ctx, Key(orderID)).Result()
	if err != nil {
		return false, fmt.Errorf("remove %s: %w", orderID, err)
	}
	return n > 0, nil
}

// ListByStatus scans every staged record. Only the reconciliation sweep uses
// it, so a full SCAN is acceptable.
func (s *RedisStore) ListByStatus(ctx context.Context, status domain.StagingStatus) ([]*domain.StagingRecord, error) {
	var records []*domain.StagingRecord
	iter := s.client.Scan(ctx, 0, KeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		orderID := iter.Val()[len(KeyPrefix):]
		rec, err := s.get(ctx, s.client, orderID)
		if err != nil {
			return nil, err
		}
		if rec != nil && rec.Status == status {
			records = append(records, rec)
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan staging records: %w", err)
	}
	return records, nil
}

// Ping checks Redis connectivity
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) get(ctx context.Context, c getter, orderID string) (*domain.StagingRecord, error) {
	data, err := c.Get(ctx, Key(orderID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", orderID, err)
	}

	var rec domain.StagingRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode staging record %s: %w", orderID, err)
	}
	return &rec, nil
}

// getter is satisfied by both *redis.Client and *redis.Tx
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

// NewRedisClient opens a client and checks it answers within timeout
func NewRedisClient(ctx context.Context, addr, password string, db int, timeout time.Duration) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis %s: %w", addr, err)
	}
	return client, nil
}
