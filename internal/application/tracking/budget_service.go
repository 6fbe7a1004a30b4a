package tracking

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/cashtrack/backend/internal/domain/shared"
	"github.com/cashtrack/backend/internal/domain/shared/valueobject"
	"github.com/cashtrack/backend/internal/domain/tracking"
	"github.com/cashtrack/backend/internal/infrastructure/telemetry"
)

// BudgetNotifier delivers a budget position to stakeholders. The engine
// only decides when a notification is due; delivery lives behind this port.
type BudgetNotifier interface {
	NotifyBudget(ctx context.Context, recipients []string, category tracking.ReferenceCategory, summary tracking.BudgetSummary) error
}

// BudgetService maintains tracker budgets, folds them into category
// summaries and triggers stakeholder notifications at most once per day.
type BudgetService struct {
	trackerRepo  tracking.TrackerRepository
	entryService *EntryService
	idempotency  shared.IdempotencyStore
	notifier     BudgetNotifier
	publisher    shared.EventPublisher
	logger       *zap.Logger
	dedupTTL     time.Duration
}

// NewBudgetService creates a new BudgetService
func NewBudgetService(
	trackerRepo tracking.TrackerRepository,
	entryService *EntryService,
	idempotency shared.IdempotencyStore,
	notifier BudgetNotifier,
	publisher shared.EventPublisher,
	logger *zap.Logger,
) *BudgetService {
	return &BudgetService{
		trackerRepo:  trackerRepo,
		entryService: entryService,
		idempotency:  idempotency,
		notifier:     notifier,
		publisher:    publisher,
		logger:       logger,
		dedupTTL:     shared.DefaultIdempotencyConfig().TTL,
	}
}

// WithDedupTTL overrides the notification de-dup window
func (s *BudgetService) WithDedupTTL(ttl time.Duration) *BudgetService {
	if ttl > 0 {
		s.dedupTTL = ttl
	}
	return s
}

// SetTrackerBudget assigns a budget target to one tracker
func (s *BudgetService) SetTrackerBudget(ctx context.Context, trackerID uuid.UUID, amount decimal.Decimal) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "tracking", "set_tracker_budget")
	defer span.End()

	tracker, err := s.trackerRepo.FindByID(ctx, trackerID)
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}

	money, err := valueobject.NewMoney(amount, valueobject.DefaultCurrency)
	if err != nil {
		telemetry.RecordError(span, err)
		return shared.NewDomainError("INVALID_AMOUNT", err.Error())
	}
	if err := tracker.SetBudget(money); err != nil {
		telemetry.RecordError(span, err)
		return err
	}

	if err := s.trackerRepo.UpdateBudget(ctx, trackerID, amount); err != nil {
		telemetry.RecordError(span, err)
		return fmt.Errorf("%w: %v", shared.ErrPersistenceFailure, err)
	}

	if err := s.publisher.Publish(ctx, tracker.GetDomainEvents()...); err != nil {
		s.logger.Warn("failed to publish budget events", zap.Error(err))
	}
	tracker.ClearDomainEvents()
	return nil
}

// BudgetSummaryRequest selects the entries to fold and the target budget
type BudgetSummaryRequest struct {
	Category string
	Filter   tracking.EntryFilter
	Target   decimal.Decimal
}

// Summarize folds the visible entries' budgets against the target
func (s *BudgetService) Summarize(ctx context.Context, req BudgetSummaryRequest) (*tracking.BudgetSummary, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "tracking", "summarize_budget")
	defer span.End()

	result, err := s.entryService.ListEntries(ctx, ListEntriesRequest{
		Category: req.Category,
		Filter:   req.Filter,
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	summary := tracking.AccumulateBudget(result.Entries, req.Target)
	return &summary, nil
}

// NotifyRequest asks for a stakeholder notification of the budget position
type NotifyRequest struct {
	Category   string
	Filter     tracking.EntryFilter
	Target     decimal.Decimal
	Recipients []string
}

// NotifyResult reports whether a notification actually went out
type NotifyResult struct {
	Sent    bool                   `json:"sent"`
	Summary tracking.BudgetSummary `json:"summary"`
}

// NotifyStakeholders computes the budget position and notifies the
// recipients, at most once per category per day. A duplicate trigger
// returns the summary with Sent false.
func (s *BudgetService) NotifyStakeholders(ctx context.Context, req NotifyRequest) (*NotifyResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "tracking", "notify_budget_stakeholders")
	defer span.End()

	if len(req.Recipients) == 0 {
		return nil, shared.NewDomainError("INVALID_INPUT", "At least one recipient is required")
	}
	category, err := tracking.ParseCategory(req.Category)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	summary, err := s.Summarize(ctx, BudgetSummaryRequest{
		Category: req.Category,
		Filter:   req.Filter,
		Target:   req.Target,
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	key := fmt.Sprintf("budget-notify:%s:%s", category, time.Now().Format("2006-01-02"))
	fresh, err := s.idempotency.MarkProcessed(ctx, key, s.dedupTTL)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to check notification dedup: %w", err)
	}
	if !fresh {
		s.logger.Info("budget notification already sent today",
			zap.String("category", string(category)))
		return &NotifyResult{Sent: false, Summary: *summary}, nil
	}

	if err := s.notifier.NotifyBudget(ctx, req.Recipients, category, *summary); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to notify stakeholders: %w", err)
	}

	event := tracking.NewBudgetNotificationRequestedEvent(
		category, summary.TotalBudget, summary.RemainingBudget, req.Recipients)
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish notification event", zap.Error(err))
	}

	return &NotifyResult{Sent: true, Summary: *summary}, nil
}
