package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"genieq-api/internal/adapters/persistence/repositories"
	"genieq-api/internal/core/domain"

	"github.com/robfig/cron/v3"
)

// ReconcileService finds captures that never made it into the payments table.
// A confirm that died between the gateway call and the database write leaves
// its staged record in PROCESSING; the sweep asks the gateway what happened.
type ReconcileService struct {
	payments *PaymentService
	store    repositories.Store
	staging  StagingStore
	gateway  PaymentGateway
	minAge   time.Duration
	now      func() time.Time
	cron     *cron.Cron
}

// SweepResult counts what one sweep did
type SweepResult struct {
	Checked   int
	Recovered int
	Cleared   int
	Failed    int
	Skipped   int
}

// NewReconcileService creates a new reconcile service
func NewReconcileService(payments *PaymentService, minAge time.Duration) *ReconcileService {
	return &ReconcileService{
		payments: payments,
		store:    payments.store,
		staging:  payments.staging,
		gateway:  payments.gateway,
		minAge:   minAge,
		now:      time.Now,
	}
}

// Start schedules Sweep with a cron spec such as "@every 5m"
func (s *ReconcileService) Start(schedule string) error {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	_, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if _, err := s.Sweep(ctx); err != nil {
			log.Printf("❌ Reconcile sweep error: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("%w: reconcile schedule %q: %v", domain.ErrConfiguration, schedule, err)
	}

	s.cron = c
	c.Start()
	log.Printf("🚀 ReconcileService started (%s)", schedule)
	return nil
}

// Stop waits for a running sweep to finish
func (s *ReconcileService) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
	log.Println("🛑 ReconcileService stopped")
}

// Sweep checks every record that has been PROCESSING for longer than the
// minimum age. Each one is claimed (PROCESSING -> RECONCILING) before the
// gateway is asked, so a confirm still in flight and a second sweep cannot
// both act on it.
func (s *ReconcileService) Sweep(ctx context.Context) (*SweepResult, error) {
	records, err := s.staging.ListByStatus(ctx, domain.StagingProcessing)
	if err != nil {
		return nil, err
	}

	result := &SweepResult{}
	cutoff := s.now().Add(-s.minAge)
	for _, rec := range records {
		if processingSince(rec).After(cutoff) {
			continue
		}
		result.Checked++
		if err := s.staging.TransitionStatus(ctx, rec.OrderID, domain.StagingProcessing, domain.StagingReconciling); err != nil {
			log.Printf("⚠️ Reconcile could not claim orderId=%s: %v", rec.OrderID, err)
			result.Skipped++
			continue
		}
		s.reconcile(ctx, rec, result)
	}

	if result.Checked > 0 {
		log.Printf("🔁 Reconcile sweep: checked=%d recovered=%d cleared=%d failed=%d skipped=%d",
			result.Checked, result.Recovered, result.Cleared, result.Failed, result.Skipped)
	}
	return result, nil
}

// processingSince falls back to CreatedAt for records written before
// ProcessingAt existed
func processingSince(rec *domain.StagingRecord) time.Time {
	if rec.ProcessingAt.IsZero() {
		return rec.CreatedAt
	}
	return rec.ProcessingAt
}

func (s *ReconcileService) reconcile(ctx context.Context, rec *domain.StagingRecord, result *SweepResult) {
	approval, err := s.gateway.Lookup(ctx, rec.OrderID)
	if err != nil {
		var gwErr *domain.GatewayError
		if !errors.As(err, &gwErr) || gwErr.StatusCode == 0 {
			// gateway unreachable or unreadable, try again next sweep
			log.Printf("⚠️ Reconcile lookup unavailable orderId=%s: %v", rec.OrderID, err)
			s.release(ctx, rec, result)
			return
		}
		s.markFailed(ctx, rec, result)
		return
	}
	if approval.Status != domain.GatewayStatusDone {
		s.markFailed(ctx, rec, result)
		return
	}

	exists, err := s.store.Payments().ExistsByOrderID(ctx, rec.OrderID)
	if err != nil {
		log.Printf("❌ Reconcile payment lookup failed orderId=%s: %v", rec.OrderID, err)
		s.release(ctx, rec, result)
		return
	}
	if exists {
		s.clear(ctx, rec, result)
		return
	}

	ticket, err := s.store.Tickets().GetByID(ctx, rec.TicketID)
	if err != nil {
		log.Printf("❌ Reconcile ticket lookup failed orderId=%s ticket=%d: %v", rec.OrderID, rec.TicketID, err)
		s.release(ctx, rec, result)
		return
	}
	if _, err := s.payments.complete(ctx, rec, ticket, approval); err != nil {
		if errors.Is(err, domain.ErrDuplicateEntry) {
			// the live confirm recorded it meanwhile
			s.clear(ctx, rec, result)
			return
		}
		log.Printf("❌ Reconcile could not record captured payment orderId=%s: %v", rec.OrderID, err)
		s.release(ctx, rec, result)
		return
	}

	log.Printf("✅ Reconcile recovered payment orderId=%s member=%d units=%d", rec.OrderID, rec.MemberID, ticket.Units)
	result.Recovered++
}

func (s *ReconcileService) clear(ctx context.Context, rec *domain.StagingRecord, result *SweepResult) {
	if _, err := s.staging.Remove(ctx, rec.OrderID); err != nil {
		log.Printf("⚠️ Reconcile could not remove staging orderId=%s: %v", rec.OrderID, err)
	}
	result.Cleared++
}

// release hands the record back to PROCESSING for the next sweep
func (s *ReconcileService) release(ctx context.Context, rec *domain.StagingRecord, result *SweepResult) {
	if err := s.staging.TransitionStatus(ctx, rec.OrderID, domain.StagingReconciling, domain.StagingProcessing); err != nil {
		log.Printf("⚠️ Reconcile could not release orderId=%s: %v", rec.OrderID, err)
	}
	result.Skipped++
}

func (s *ReconcileService) markFailed(ctx context.Context, rec *domain.StagingRecord, result *SweepResult) {
	if err := s.staging.TransitionStatus(ctx, rec.OrderID, domain.StagingReconciling, domain.StagingFailed); err != nil {
		log.Printf("⚠️ Reconcile could not mark FAILED orderId=%s: %v", rec.OrderID, err)
		result.Skipped++
		return
	}
	log.Printf("🧹 Reconcile marked FAILED orderId=%s", rec.OrderID)
	result.Failed++
}
