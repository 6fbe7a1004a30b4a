package tracking

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cashtrack/backend/internal/domain/shared"
)

// Event types for the tracking domain
const (
	EventTypeTrackerCreated              = "tracking.tracker_created"
	EventTypeTrackerRowsReplaced         = "tracking.tracker_rows_replaced"
	EventTypeTrackerSettled              = "tracking.tracker_settled"
	EventTypeTrackerBudgetUpdated        = "tracking.tracker_budget_updated"
	EventTypeBudgetNotificationRequested = "tracking.budget_notification_requested"
)

const aggregateTypeTracker = "Tracker"

// TrackerCreatedEvent is raised when a tracker is created for a payment request
type TrackerCreatedEvent struct {
	shared.BaseDomainEvent
	PaymentRequestID string          `json:"payment_request_id"`
	GrandTotal       decimal.Decimal `json:"grand_total"`
}

// NewTrackerCreatedEvent creates a TrackerCreatedEvent
func NewTrackerCreatedEvent(trackerID uuid.UUID, paymentRequestID string, grandTotal decimal.Decimal) *TrackerCreatedEvent {
	return &TrackerCreatedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypeTrackerCreated, aggregateTypeTracker, trackerID),
		PaymentRequestID: paymentRequestID,
		GrandTotal:       grandTotal,
	}
}

// TrackerRowsReplacedEvent is raised when an edit session saves a new ledger
type TrackerRowsReplacedEvent struct {
	shared.BaseDomainEvent
	PaymentRequestID string `json:"payment_request_id"`
	RowCount         int    `json:"row_count"`
}

// NewTrackerRowsReplacedEvent creates a TrackerRowsReplacedEvent
func NewTrackerRowsReplacedEvent(trackerID uuid.UUID, paymentRequestID string, rowCount int) *TrackerRowsReplacedEvent {
	return &TrackerRowsReplacedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypeTrackerRowsReplaced, aggregateTypeTracker, trackerID),
		PaymentRequestID: paymentRequestID,
		RowCount:         rowCount,
	}
}

// TrackerSettledEvent is raised when a tracker's remaining amount reaches zero
type TrackerSettledEvent struct {
	shared.BaseDomainEvent
	PaymentRequestID string `json:"payment_request_id"`
}

// NewTrackerSettledEvent creates a TrackerSettledEvent
func NewTrackerSettledEvent(trackerID uuid.UUID, paymentRequestID string) *TrackerSettledEvent {
	return &TrackerSettledEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypeTrackerSettled, aggregateTypeTracker, trackerID),
		PaymentRequestID: paymentRequestID,
	}
}

// TrackerBudgetUpdatedEvent is raised when a tracker's budget target changes
type TrackerBudgetUpdatedEvent struct {
	shared.BaseDomainEvent
	PaymentRequestID string          `json:"payment_request_id"`
	Budget           decimal.Decimal `json:"budget"`
}

// NewTrackerBudgetUpdatedEvent creates a TrackerBudgetUpdatedEvent
func NewTrackerBudgetUpdatedEvent(trackerID uuid.UUID, paymentRequestID string, budget decimal.Decimal) *TrackerBudgetUpdatedEvent {
	return &TrackerBudgetUpdatedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypeTrackerBudgetUpdated, aggregateTypeTracker, trackerID),
		PaymentRequestID: paymentRequestID,
		Budget:           budget,
	}
}

// BudgetNotificationRequestedEvent is raised when stakeholders are asked to
// review the current budget position. Delivery is handled by subscribers.
type BudgetNotificationRequestedEvent struct {
	shared.BaseDomainEvent
	Category        ReferenceCategory `json:"category"`
	TotalBudget     decimal.Decimal   `json:"total_budget"`
	RemainingBudget decimal.Decimal   `json:"remaining_budget"`
	Recipients      []string          `json:"recipients"`
}

// NewBudgetNotificationRequestedEvent creates a BudgetNotificationRequestedEvent
func NewBudgetNotificationRequestedEvent(category ReferenceCategory, total, remaining decimal.Decimal, recipients []string) *BudgetNotificationRequestedEvent {
	return &BudgetNotificationRequestedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBudgetNotificationRequested, aggregateTypeTracker, uuid.Nil),
		Category:        category,
		TotalBudget:     total,
		RemainingBudget: remaining,
		Recipients:      recipients,
	}
}
