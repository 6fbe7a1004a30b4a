package tracking

import "math"

// ComputeSplit returns numerator/denominator expressed as a percentage,
// rounded to one decimal place. ok is false when the ratio is undefined:
// a zero or non-finite denominator, or a non-finite numerator. Callers
// render an undefined split as blank, never as 0% or NaN.
func ComputeSplit(numerator, denominator float64) (pct float64, ok bool) {
	if denominator == 0 || math.IsNaN(denominator) || math.IsInf(denominator, 0) {
		return 0, false
	}
	if math.IsNaN(numerator) || math.IsInf(numerator, 0) {
		return 0, false
	}
	return math.Round(numerator/denominator*1000) / 10, true
}

// ProgressSplit is the paid/remaining percentage pair for one payment
// request. When Defined, PaidPct+RemainingPct is exactly 100.
type ProgressSplit struct {
	PaidPct      float64 `json:"paid_pct"`
	RemainingPct float64 `json:"remaining_pct"`
	Defined      bool    `json:"defined"`
}

// NewProgressSplit derives the settlement progress of a payment request.
// PaidPct is computed as the complement of RemainingPct so the pair always
// sums to 100 even after rounding.
func NewProgressSplit(remaining, total float64) ProgressSplit {
	remainingPct, ok := ComputeSplit(remaining, total)
	if !ok {
		return ProgressSplit{}
	}
	return ProgressSplit{
		PaidPct:      100 - remainingPct,
		RemainingPct: remainingPct,
		Defined:      true,
	}
}
