package tracking

import (
	"fmt"

	"github.com/cashtrack/backend/internal/domain/shared"
)

// ReferenceCategory selects one of the three disjoint payment request sources.
type ReferenceCategory string

const (
	CategorySalesOrder    ReferenceCategory = "SALES_ORDER"
	CategoryPurchaseOrder ReferenceCategory = "PURCHASE_ORDER"
	CategoryOther         ReferenceCategory = "OTHER"
)

// UpstreamMode describes how the upstream-order columns of a row-set are
// derived for a category.
type UpstreamMode string

const (
	// UpstreamFromReference reads the linked order's grand total and derives
	// its remaining amount from posted payment entries.
	UpstreamFromReference UpstreamMode = "FROM_REFERENCE"
	// UpstreamMirrorsRequest repeats the payment request's own totals in the
	// upstream columns (generic requester records have no separate order).
	UpstreamMirrorsRequest UpstreamMode = "MIRRORS_REQUEST"
	// UpstreamNone leaves the upstream columns empty.
	UpstreamNone UpstreamMode = "NONE"
)

// RequestDirection distinguishes outward (pay a supplier) from inward
// (collect from a customer) payment requests.
type RequestDirection string

const (
	DirectionOutward RequestDirection = "OUTWARD"
	DirectionInward  RequestDirection = "INWARD"
)

// CategorySpec is the strategy table entry for one reference category:
// which source it queries, how upstream totals are derived, and the column
// labels the presentation layer should use.
type CategorySpec struct {
	Category       ReferenceCategory
	SourceDoctype  string
	Direction      RequestDirection
	UpstreamMode   UpstreamMode
	AmountLabel    string
	RemainingLabel string
}

var categorySpecs = map[ReferenceCategory]CategorySpec{
	CategorySalesOrder: {
		Category:       CategorySalesOrder,
		SourceDoctype:  "Sales Order",
		Direction:      DirectionInward,
		UpstreamMode:   UpstreamNone,
		AmountLabel:    "Sales Order Amount",
		RemainingLabel: "SO Remaining",
	},
	CategoryPurchaseOrder: {
		Category:       CategoryPurchaseOrder,
		SourceDoctype:  "Purchase Order",
		Direction:      DirectionOutward,
		UpstreamMode:   UpstreamFromReference,
		AmountLabel:    "Purchase Order Amount",
		RemainingLabel: "PO Remaining",
	},
	CategoryOther: {
		Category:       CategoryOther,
		SourceDoctype:  "Invoice Released Memo",
		Direction:      DirectionOutward,
		UpstreamMode:   UpstreamMirrorsRequest,
		AmountLabel:    "Reference Doctype Amount",
		RemainingLabel: "Remaining",
	},
}

// ErrInvalidReferenceCategory is returned when a category tag or reference
// doctype does not map to a known reference category.
var ErrInvalidReferenceCategory = shared.NewDomainError(
	"INVALID_REFERENCE_CATEGORY", "Unknown reference category")

// ParseCategory converts a category tag into a ReferenceCategory
func ParseCategory(s string) (ReferenceCategory, error) {
	switch ReferenceCategory(s) {
	case CategorySalesOrder, CategoryPurchaseOrder, CategoryOther:
		return ReferenceCategory(s), nil
	}
	return "", shared.NewDomainError("INVALID_REFERENCE_CATEGORY",
		fmt.Sprintf("Unknown reference category %q", s))
}

// Spec returns the strategy table entry for a category
func Spec(category ReferenceCategory) (CategorySpec, error) {
	spec, ok := categorySpecs[category]
	if !ok {
		return CategorySpec{}, ErrInvalidReferenceCategory
	}
	return spec, nil
}

// CategoryForDoctype maps a reference doctype to its category
func CategoryForDoctype(doctype string) (ReferenceCategory, bool) {
	for cat, spec := range categorySpecs {
		if spec.SourceDoctype == doctype {
			return cat, true
		}
	}
	return "", false
}
