package tracking

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TrackerRepository persists tracker aggregates
type TrackerRepository interface {
	// FindByID retrieves a tracker with its ledger rows
	FindByID(ctx context.Context, id uuid.UUID) (*Tracker, error)

	// FindByPaymentRequest retrieves the tracker for a payment request,
	// or shared.ErrNotFound when none exists
	FindByPaymentRequest(ctx context.Context, paymentRequestID string) (*Tracker, error)

	// FindByPaymentRequests retrieves trackers for a batch of payment
	// requests, keyed by payment request ID. Missing requests are absent
	// from the map, not an error.
	FindByPaymentRequests(ctx context.Context, paymentRequestIDs []string) (map[string]*Tracker, error)

	// Save writes the tracker's totals and replaces its ledger rows in a
	// single transaction
	Save(ctx context.Context, tracker *Tracker) error

	// UpdateBudget writes only the budget column
	UpdateBudget(ctx context.Context, id uuid.UUID, budget decimal.Decimal) error
}

// PaymentRequestReader reads the externally owned payment request feed
type PaymentRequestReader interface {
	// List returns submitted payment requests for a category's source
	// doctype, narrowed by the filter's request-level fields
	List(ctx context.Context, category ReferenceCategory, filter EntryFilter) ([]PaymentRequestRecord, error)

	// FindByID retrieves one payment request
	FindByID(ctx context.Context, id string) (*PaymentRequestRecord, error)
}

// PaymentEntryReader reads posted settlement records
type PaymentEntryReader interface {
	// ListByPaymentRequest returns posted payment entries referencing a
	// payment request, newest first
	ListByPaymentRequest(ctx context.Context, paymentRequestID string) ([]PaymentEntryRecord, error)

	// SumByPaymentRequest totals the posted paid amounts against a
	// payment request
	SumByPaymentRequest(ctx context.Context, paymentRequestID string) (decimal.Decimal, error)

	// SumByReference totals the posted paid amounts against an upstream
	// reference document
	SumByReference(ctx context.Context, referenceDoctype, referenceName string) (decimal.Decimal, error)
}

// ReferenceDocumentReader reads upstream order documents
type ReferenceDocumentReader interface {
	// GrandTotal returns the order's grand total, or nil when the
	// document is unknown
	GrandTotal(ctx context.Context, doctype, name string) (*decimal.Decimal, error)

	// PaymentTerms returns the order's payment terms template name,
	// empty when none is set
	PaymentTerms(ctx context.Context, doctype, name string) (string, error)
}
