package tracking

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentRequestRecord is the read-only snapshot of an externally owned
// payment request consumed by the aggregation pipeline.
type PaymentRequestRecord struct {
	ID               string
	GrandTotal       decimal.Decimal
	ReferenceDoctype string
	ReferenceName    string
	PartyType        string
	Party            string
	PartyName        string
	TransactionDate  time.Time
	Status           string
}

// PaymentEntryRecord is the read-only snapshot of an external settlement
// record linked to a payment request.
type PaymentEntryRecord struct {
	ID            string
	PostingDate   time.Time
	PaidAmount    decimal.Decimal
	Party         string
	ModeOfPayment string
	Status        string
}

// Entry is one denormalized row-set produced by the aggregation pipeline:
// reference document, payment request, tracker summary, supplier info and
// optional upstream-order totals joined into a single snapshot.
type Entry struct {
	ReferenceDoctype     string           `json:"reference_doctype"`
	ReferenceName        string           `json:"reference_name"`
	UpstreamGrandTotal   *decimal.Decimal `json:"upstream_grand_total,omitempty"`
	UpstreamRemaining    *decimal.Decimal `json:"upstream_remaining,omitempty"`
	PaymentRequestID     string           `json:"payment_request"`
	GrandTotal           decimal.Decimal  `json:"grand_total"`
	SupplierID           string           `json:"supplier_id,omitempty"`
	SupplierName         string           `json:"supplier_name,omitempty"`
	PaymentTerms         string           `json:"payment_terms,omitempty"`
	TransactionDate      time.Time        `json:"transaction_date"`
	TrackerID            *uuid.UUID       `json:"tracker,omitempty"`
	PaymentEntryID       string           `json:"payment_entry,omitempty"`
	TotalAmountPaid      decimal.Decimal  `json:"total_amount_paid"`
	TotalAmountRemaining decimal.Decimal  `json:"total_amount_remaining"`
	Budget               *decimal.Decimal `json:"budget,omitempty"`
}

// IsFullyPaid reports whether nothing remains to be settled on the
// payment request.
func (e Entry) IsFullyPaid() bool {
	return e.TotalAmountRemaining.LessThanOrEqual(decimal.Zero)
}

// HasTracker reports whether a tracker exists for the payment request.
// Absence renders as "NA", it is never an error.
func (e Entry) HasTracker() bool {
	return e.TrackerID != nil
}
