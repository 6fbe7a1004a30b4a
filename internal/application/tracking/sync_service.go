package tracking

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cashtrack/backend/internal/domain/shared"
	"github.com/cashtrack/backend/internal/domain/shared/valueobject"
	"github.com/cashtrack/backend/internal/domain/tracking"
	"github.com/cashtrack/backend/internal/infrastructure/telemetry"
)

// SyncService reconciles trackers against the external payment request
// and payment entry feeds. It creates missing trackers and refreshes the
// paid/remaining pair from posted settlements.
type SyncService struct {
	trackerRepo   tracking.TrackerRepository
	requestReader tracking.PaymentRequestReader
	entryReader   tracking.PaymentEntryReader
	publisher     shared.EventPublisher
	logger        *zap.Logger
}

// NewSyncService creates a new SyncService
func NewSyncService(
	trackerRepo tracking.TrackerRepository,
	requestReader tracking.PaymentRequestReader,
	entryReader tracking.PaymentEntryReader,
	publisher shared.EventPublisher,
	logger *zap.Logger,
) *SyncService {
	return &SyncService{
		trackerRepo:   trackerRepo,
		requestReader: requestReader,
		entryReader:   entryReader,
		publisher:     publisher,
		logger:        logger,
	}
}

// SyncResult reports what a reconciliation pass touched
type SyncResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}

// SyncAll reconciles every category in one pass
func (s *SyncService) SyncAll(ctx context.Context) (*SyncResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "tracking", "sync_all")
	defer span.End()

	total := &SyncResult{}
	for _, category := range []tracking.ReferenceCategory{
		tracking.CategorySalesOrder,
		tracking.CategoryPurchaseOrder,
		tracking.CategoryOther,
	} {
		result, err := s.SyncCategory(ctx, category)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
		total.Created += result.Created
		total.Updated += result.Updated
		total.Skipped += result.Skipped
	}

	s.logger.Info("tracker sync finished",
		zap.Int("created", total.Created),
		zap.Int("updated", total.Updated),
		zap.Int("skipped", total.Skipped))
	return total, nil
}

// SyncCategory reconciles the trackers of one reference category
func (s *SyncService) SyncCategory(ctx context.Context, category tracking.ReferenceCategory) (*SyncResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "tracking", "sync_category")
	defer span.End()
	telemetry.SetAttribute(span, "tracking.category", string(category))

	spec, err := tracking.Spec(category)
	if err != nil {
		return nil, err
	}

	requests, err := s.requestReader.List(ctx, category, tracking.EntryFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list payment requests: %w", err)
	}

	result := &SyncResult{}
	for _, request := range requests {
		changed, err := s.syncOne(ctx, spec, request)
		if err != nil {
			s.logger.Warn("skipping payment request during sync",
				zap.String("payment_request", request.ID),
				zap.Error(err))
			result.Skipped++
			continue
		}
		switch changed {
		case syncCreated:
			result.Created++
		case syncUpdated:
			result.Updated++
		default:
			result.Skipped++
		}
	}
	return result, nil
}

type syncOutcome int

const (
	syncUnchanged syncOutcome = iota
	syncCreated
	syncUpdated
)

func (s *SyncService) syncOne(ctx context.Context, spec tracking.CategorySpec, request tracking.PaymentRequestRecord) (syncOutcome, error) {
	tracker, err := s.trackerRepo.FindByPaymentRequest(ctx, request.ID)
	created := false
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			return syncUnchanged, err
		}
		tracker, err = tracking.NewTracker(request.ID, valueobject.NewMoneyFromDecimal(request.GrandTotal))
		if err != nil {
			return syncUnchanged, err
		}
		created = true
	}

	paid, err := s.entryReader.SumByPaymentRequest(ctx, request.ID)
	if err != nil {
		return syncUnchanged, err
	}

	beforePaid := tracker.TotalAmountPaid
	beforeRemaining := tracker.TotalAmountRemaining
	beforeEntry := tracker.PaymentEntryID
	if err := tracker.ApplySettlement(
		valueobject.NewMoneyFromDecimal(paid),
		valueobject.NewMoneyFromDecimal(request.GrandTotal),
	); err != nil {
		return syncUnchanged, err
	}
	if spec.Direction == tracking.DirectionInward && request.Status == "Paid" {
		tracker.MarkSettled()
	}

	settlements, err := s.entryReader.ListByPaymentRequest(ctx, request.ID)
	if err != nil {
		return syncUnchanged, err
	}
	if len(settlements) > 0 {
		tracker.PaymentEntryID = settlements[0].ID
	}

	if !created &&
		tracker.TotalAmountPaid.Equal(beforePaid) &&
		tracker.TotalAmountRemaining.Equal(beforeRemaining) &&
		tracker.PaymentEntryID == beforeEntry {
		return syncUnchanged, nil
	}

	if err := s.trackerRepo.Save(ctx, tracker); err != nil {
		return syncUnchanged, err
	}
	s.publishEvents(ctx, tracker)

	if created {
		return syncCreated, nil
	}
	return syncUpdated, nil
}

func (s *SyncService) publishEvents(ctx context.Context, tracker *tracking.Tracker) {
	events := tracker.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("failed to publish tracker events", zap.Error(err))
	}
	tracker.ClearDomainEvents()
}

// TrackerDetail is a tracker joined with its settlement progress split
// and the posted payment entries against its payment request
type TrackerDetail struct {
	Tracker        *tracking.Tracker             `json:"tracker"`
	Progress       tracking.ProgressSplit        `json:"progress"`
	PaymentEntries []tracking.PaymentEntryRecord `json:"payment_entries"`
}

// GetTrackerDetail loads one tracker with its ledger and derived progress.
// When no posted entries reference the payment request, the single entry
// recorded on the tracker is surfaced instead.
func (s *SyncService) GetTrackerDetail(ctx context.Context, trackerID uuid.UUID) (*TrackerDetail, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "tracking", "get_tracker_detail")
	defer span.End()

	tracker, err := s.trackerRepo.FindByID(ctx, trackerID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	entries, err := s.entryReader.ListByPaymentRequest(ctx, tracker.PaymentRequestID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to load payment entries: %w", err)
	}
	if len(entries) == 0 && tracker.PaymentEntryID != "" {
		entries = []tracking.PaymentEntryRecord{{
			ID:         tracker.PaymentEntryID,
			PaidAmount: tracker.TotalAmountPaid,
		}}
	}

	return &TrackerDetail{
		Tracker: tracker,
		Progress: tracking.NewProgressSplit(
			tracker.TotalAmountRemaining.InexactFloat64(),
			tracker.GrandTotal().InexactFloat64(),
		),
		PaymentEntries: entries,
	}, nil
}
