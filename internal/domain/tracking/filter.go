package tracking

import (
	"time"

	"github.com/cashtrack/backend/internal/domain/shared"
)

// EntryFilter narrows the aggregation pipeline's output. The zero value
// matches everything. All With* methods return a modified copy; a filter
// is never mutated in place.
type EntryFilter struct {
	PaymentRequestID string
	ReferenceDoctype string
	ReferenceName    string
	Supplier         string
	FromDate         *time.Time
	ToDate           *time.Time
	OnlyFullyPaid    bool
	OnlyUnpaid       bool
}

// WithPaymentRequest returns a copy filtering on one payment request
func (f EntryFilter) WithPaymentRequest(id string) EntryFilter {
	f.PaymentRequestID = id
	return f
}

// WithReference returns a copy filtering on a reference document
func (f EntryFilter) WithReference(doctype, name string) EntryFilter {
	f.ReferenceDoctype = doctype
	f.ReferenceName = name
	return f
}

// WithSupplier returns a copy filtering on a supplier
func (f EntryFilter) WithSupplier(supplier string) EntryFilter {
	f.Supplier = supplier
	return f
}

// WithDateRange returns a copy filtering on the transaction date range.
// Either bound may be nil for an open interval.
func (f EntryFilter) WithDateRange(from, to *time.Time) EntryFilter {
	f.FromDate = from
	f.ToDate = to
	return f
}

// WithOnlyFullyPaid returns a copy showing only fully settled entries.
// Enabling it clears the only-unpaid flag; the two are mutually exclusive.
func (f EntryFilter) WithOnlyFullyPaid(v bool) EntryFilter {
	f.OnlyFullyPaid = v
	if v {
		f.OnlyUnpaid = false
	}
	return f
}

// WithOnlyUnpaid returns a copy showing only entries with an outstanding
// amount. Enabling it clears the only-fully-paid flag.
func (f EntryFilter) WithOnlyUnpaid(v bool) EntryFilter {
	f.OnlyUnpaid = v
	if v {
		f.OnlyFullyPaid = false
	}
	return f
}

// Validate checks the filter's internal consistency
func (f EntryFilter) Validate() error {
	if f.ReferenceName != "" && f.ReferenceDoctype == "" {
		return shared.NewDomainError("VALIDATION_ERROR",
			"Reference name filter requires a reference doctype")
	}
	if f.ReferenceDoctype != "" {
		if _, ok := CategoryForDoctype(f.ReferenceDoctype); !ok {
			return ErrInvalidReferenceCategory
		}
	}
	if f.OnlyFullyPaid && f.OnlyUnpaid {
		return shared.NewDomainError("VALIDATION_ERROR",
			"Only one of the fully-paid and unpaid filters may be set")
	}
	return nil
}

// MatchesSettlement applies the post-aggregation paid-state flags
func (f EntryFilter) MatchesSettlement(e Entry) bool {
	if f.OnlyFullyPaid && !e.IsFullyPaid() {
		return false
	}
	if f.OnlyUnpaid && e.IsFullyPaid() {
		return false
	}
	return true
}
