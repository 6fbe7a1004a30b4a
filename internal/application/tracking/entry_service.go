package tracking

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/cashtrack/backend/internal/domain/tracking"
	"github.com/cashtrack/backend/internal/infrastructure/telemetry"
)

// EntryService builds the denormalized tracking row-sets. One pipeline
// serves all reference categories; the per-category differences come from
// the strategy table, not from branching handlers.
type EntryService struct {
	trackerRepo   tracking.TrackerRepository
	requestReader tracking.PaymentRequestReader
	entryReader   tracking.PaymentEntryReader
	refReader     tracking.ReferenceDocumentReader
	logger        *zap.Logger
}

// NewEntryService creates a new EntryService
func NewEntryService(
	trackerRepo tracking.TrackerRepository,
	requestReader tracking.PaymentRequestReader,
	entryReader tracking.PaymentEntryReader,
	refReader tracking.ReferenceDocumentReader,
	logger *zap.Logger,
) *EntryService {
	return &EntryService{
		trackerRepo:   trackerRepo,
		requestReader: requestReader,
		entryReader:   entryReader,
		refReader:     refReader,
		logger:        logger,
	}
}

// ListEntriesRequest selects a reference category and narrows its rows
type ListEntriesRequest struct {
	Category string
	Filter   tracking.EntryFilter
}

// ListEntriesResult carries the row-sets plus the category's column labels
type ListEntriesResult struct {
	Category       tracking.ReferenceCategory `json:"category"`
	AmountLabel    string                     `json:"amount_label"`
	RemainingLabel string                     `json:"remaining_label"`
	Entries        []tracking.Entry           `json:"entries"`
}

// ListEntries runs the aggregation pipeline for one category
func (s *EntryService) ListEntries(ctx context.Context, req ListEntriesRequest) (*ListEntriesResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "tracking", "list_entries")
	defer span.End()

	category, err := tracking.ParseCategory(req.Category)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	spec, err := tracking.Spec(category)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := req.Filter.Validate(); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetAttribute(span, "tracking.category", string(category))

	requests, err := s.requestReader.List(ctx, category, req.Filter)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to list payment requests: %w", err)
	}

	ids := make([]string, len(requests))
	for i, r := range requests {
		ids[i] = r.ID
	}
	trackers, err := s.trackerRepo.FindByPaymentRequests(ctx, ids)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to load trackers: %w", err)
	}

	entries := make([]tracking.Entry, 0, len(requests))
	for _, request := range requests {
		entry, err := s.buildEntry(ctx, spec, request, trackers[request.ID])
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
		if !req.Filter.MatchesSettlement(entry) {
			continue
		}
		entries = append(entries, entry)
	}

	return &ListEntriesResult{
		Category:       category,
		AmountLabel:    spec.AmountLabel,
		RemainingLabel: spec.RemainingLabel,
		Entries:        entries,
	}, nil
}

// buildEntry joins one payment request with its tracker, settlement
// records and upstream order into a single row-set.
func (s *EntryService) buildEntry(
	ctx context.Context,
	spec tracking.CategorySpec,
	request tracking.PaymentRequestRecord,
	tracker *tracking.Tracker,
) (tracking.Entry, error) {
	entry := tracking.Entry{
		ReferenceDoctype: request.ReferenceDoctype,
		ReferenceName:    request.ReferenceName,
		PaymentRequestID: request.ID,
		GrandTotal:       request.GrandTotal,
		SupplierID:       request.Party,
		SupplierName:     request.PartyName,
		TransactionDate:  request.TransactionDate,
	}
	if request.TransactionDate.IsZero() {
		s.logger.Warn("payment request has no transaction date",
			zap.String("payment_request", request.ID))
	}

	paid, remaining, err := s.settlementFor(ctx, request, tracker)
	if err != nil {
		return tracking.Entry{}, err
	}
	if spec.Direction == tracking.DirectionInward && request.Status == "Paid" {
		paid = request.GrandTotal
		remaining = decimal.Zero
	}
	entry.TotalAmountPaid = paid
	entry.TotalAmountRemaining = remaining

	if tracker != nil {
		id := tracker.ID
		entry.TrackerID = &id
		entry.Budget = tracker.Budget
		entry.PaymentEntryID = tracker.PaymentEntryID
	}
	if entry.PaymentEntryID == "" {
		settlements, err := s.entryReader.ListByPaymentRequest(ctx, request.ID)
		if err != nil {
			return tracking.Entry{}, fmt.Errorf("failed to load payment entries: %w", err)
		}
		if len(settlements) > 0 {
			entry.PaymentEntryID = settlements[0].ID
		}
	}

	if err := s.applyUpstream(ctx, spec, request, &entry); err != nil {
		return tracking.Entry{}, err
	}
	return entry, nil
}

// settlementFor derives the paid/remaining pair. Posted payment entries
// are the source of truth; the tracker total is the fallback when nothing
// has been posted yet. Remaining never goes below zero.
func (s *EntryService) settlementFor(
	ctx context.Context,
	request tracking.PaymentRequestRecord,
	tracker *tracking.Tracker,
) (paid, remaining decimal.Decimal, err error) {
	paid, err = s.entryReader.SumByPaymentRequest(ctx, request.ID)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("failed to sum payment entries: %w", err)
	}
	if paid.IsZero() && tracker != nil {
		paid = tracker.TotalAmountPaid
	}
	remaining = request.GrandTotal.Sub(paid)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}
	return paid, remaining, nil
}

// applyUpstream fills the upstream-order columns per the category's
// strategy table entry.
func (s *EntryService) applyUpstream(
	ctx context.Context,
	spec tracking.CategorySpec,
	request tracking.PaymentRequestRecord,
	entry *tracking.Entry,
) error {
	switch spec.UpstreamMode {
	case tracking.UpstreamFromReference:
		grand, err := s.refReader.GrandTotal(ctx, request.ReferenceDoctype, request.ReferenceName)
		if err != nil {
			return fmt.Errorf("failed to read reference document: %w", err)
		}
		if grand == nil {
			return nil
		}
		paidAgainstRef, err := s.entryReader.SumByReference(ctx, request.ReferenceDoctype, request.ReferenceName)
		if err != nil {
			return fmt.Errorf("failed to sum reference settlements: %w", err)
		}
		remaining := grand.Sub(paidAgainstRef)
		if remaining.IsNegative() {
			remaining = decimal.Zero
		}
		entry.UpstreamGrandTotal = grand
		entry.UpstreamRemaining = &remaining

		terms, err := s.refReader.PaymentTerms(ctx, request.ReferenceDoctype, request.ReferenceName)
		if err != nil {
			return fmt.Errorf("failed to read payment terms: %w", err)
		}
		entry.PaymentTerms = terms

	case tracking.UpstreamMirrorsRequest:
		grand := entry.GrandTotal
		remaining := entry.TotalAmountRemaining
		entry.UpstreamGrandTotal = &grand
		entry.UpstreamRemaining = &remaining

	case tracking.UpstreamNone:
	}
	return nil
}
