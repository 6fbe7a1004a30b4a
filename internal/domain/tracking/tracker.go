package tracking

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cashtrack/backend/internal/domain/shared"
	"github.com/cashtrack/backend/internal/domain/shared/valueobject"
)

// LedgerRow is one installment line of a tracker. Paid and UnpaidAmount
// are derived from PaidAmount against the tracker's grand total on every
// save; client-supplied values for them are ignored.
type LedgerRow struct {
	ID              uuid.UUID       `gorm:"type:uuid;primary_key"`
	TrackerID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	Position        int             `gorm:"not null"`
	TransactionDate *time.Time      `gorm:"type:date"`
	PaidAmount      decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Paid            decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnpaidAmount    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	CreatedAt       time.Time       `gorm:"not null"`
	UpdatedAt       time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (LedgerRow) TableName() string {
	return "tracker_ledger_rows"
}

// NewLedgerRow creates a blank ledger row
func NewLedgerRow() LedgerRow {
	now := time.Now()
	return LedgerRow{
		ID:        uuid.New(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// TrackerTotals carries the paid/remaining pair that must always be
// written together.
type TrackerTotals struct {
	Paid      decimal.Decimal
	Remaining decimal.Decimal
}

// Tracker is the aggregate root recording settlement progress and the
// installment ledger for exactly one payment request.
type Tracker struct {
	shared.BaseAggregateRoot
	PaymentRequestID     string           `gorm:"type:varchar(140);not null;uniqueIndex"`
	PaymentEntryID       string           `gorm:"type:varchar(140)"`
	TotalAmountPaid      decimal.Decimal  `gorm:"type:decimal(18,4);not null"`
	TotalAmountRemaining decimal.Decimal  `gorm:"type:decimal(18,4);not null"`
	Budget               *decimal.Decimal `gorm:"type:decimal(18,4)"`
	Rows                 []LedgerRow      `gorm:"foreignKey:TrackerID;references:ID"`
}

// TableName returns the table name for GORM
func (Tracker) TableName() string {
	return "payment_trackers"
}

// NewTracker creates a tracker for a payment request with nothing paid yet
func NewTracker(paymentRequestID string, grandTotal valueobject.Money) (*Tracker, error) {
	if paymentRequestID == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Payment request ID is required")
	}
	if grandTotal.IsNegative() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Grand total cannot be negative")
	}

	t := &Tracker{
		BaseAggregateRoot:    shared.NewBaseAggregateRoot(),
		PaymentRequestID:     paymentRequestID,
		TotalAmountPaid:      decimal.Zero,
		TotalAmountRemaining: grandTotal.Amount(),
		Rows:                 make([]LedgerRow, 0),
	}
	t.AddDomainEvent(NewTrackerCreatedEvent(t.ID, paymentRequestID, grandTotal.Amount()))
	return t, nil
}

// GrandTotal returns the tracked total, always paid + remaining
func (t *Tracker) GrandTotal() decimal.Decimal {
	return t.TotalAmountPaid.Add(t.TotalAmountRemaining)
}

// IsSettled reports whether the payment request is fully paid.
// A remaining amount at or below zero counts as settled.
func (t *Tracker) IsSettled() bool {
	return t.TotalAmountRemaining.LessThanOrEqual(decimal.Zero)
}

// ApplySettlement updates the paid/remaining pair from the externally
// computed settlement state. Remaining is clamped at zero so overpayment
// never shows a negative outstanding amount.
func (t *Tracker) ApplySettlement(paid valueobject.Money, grandTotal valueobject.Money) error {
	remaining, err := grandTotal.Sub(paid)
	if err != nil {
		return err
	}
	t.TotalAmountPaid = paid.Amount()
	if remaining.IsNegative() {
		t.TotalAmountRemaining = decimal.Zero
	} else {
		t.TotalAmountRemaining = remaining.Amount()
	}
	t.rederiveRows()
	t.UpdatedAt = time.Now()

	if t.IsSettled() {
		t.AddDomainEvent(NewTrackerSettledEvent(t.ID, t.PaymentRequestID))
	}
	return nil
}

// MarkSettled forces the remaining amount to zero. Used for inward
// requests whose source reports a terminal paid status.
func (t *Tracker) MarkSettled() {
	if t.TotalAmountRemaining.IsZero() {
		return
	}
	t.TotalAmountRemaining = decimal.Zero
	t.rederiveRows()
	t.UpdatedAt = time.Now()
	t.AddDomainEvent(NewTrackerSettledEvent(t.ID, t.PaymentRequestID))
}

// ReplaceRows swaps the installment ledger and the totals pair in one
// step, then re-derives every row's percentage and unpaid amount.
func (t *Tracker) ReplaceRows(rows []LedgerRow, totals TrackerTotals) error {
	for i := range rows {
		if rows[i].PaidAmount.IsNegative() {
			return shared.NewDomainError("INVALID_AMOUNT", "Row paid amount cannot be negative")
		}
	}
	if totals.Paid.IsNegative() || totals.Remaining.IsNegative() {
		return shared.NewDomainError("INVALID_AMOUNT", "Tracker totals cannot be negative")
	}

	t.TotalAmountPaid = totals.Paid
	t.TotalAmountRemaining = totals.Remaining

	t.Rows = make([]LedgerRow, len(rows))
	copy(t.Rows, rows)
	for i := range t.Rows {
		if t.Rows[i].ID == uuid.Nil {
			t.Rows[i].ID = uuid.New()
			t.Rows[i].CreatedAt = time.Now()
		}
		t.Rows[i].TrackerID = t.ID
		t.Rows[i].Position = i
	}
	t.rederiveRows()

	t.IncrementVersion()
	t.UpdatedAt = time.Now()
	t.AddDomainEvent(NewTrackerRowsReplacedEvent(t.ID, t.PaymentRequestID, len(t.Rows)))
	return nil
}

// SetBudget assigns the target budget used by the budget accumulator
func (t *Tracker) SetBudget(amount valueobject.Money) error {
	if amount.IsNegative() {
		return shared.NewDomainError("INVALID_AMOUNT", "Budget cannot be negative")
	}
	v := amount.Amount()
	t.Budget = &v
	t.UpdatedAt = time.Now()
	t.AddDomainEvent(NewTrackerBudgetUpdatedEvent(t.ID, t.PaymentRequestID, v))
	return nil
}

// rederiveRows recomputes each row's settlement percentage and unpaid
// amount against the current grand total.
func (t *Tracker) rederiveRows() {
	grand := t.GrandTotal()
	now := time.Now()
	for i := range t.Rows {
		row := &t.Rows[i]
		if grand.IsPositive() {
			row.Paid = row.PaidAmount.Div(grand).Mul(decimal.NewFromInt(100)).Round(1)
		} else {
			row.Paid = decimal.Zero
		}
		unpaid := grand.Sub(row.PaidAmount)
		if unpaid.IsNegative() {
			unpaid = decimal.Zero
		}
		row.UnpaidAmount = unpaid
		row.UpdatedAt = now
	}
}
