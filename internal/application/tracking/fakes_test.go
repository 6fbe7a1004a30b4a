package tracking

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cashtrack/backend/internal/domain/shared"
	"github.com/cashtrack/backend/internal/domain/tracking"
)

type fakeTrackerRepo struct {
	mu        sync.Mutex
	trackers  map[uuid.UUID]*tracking.Tracker
	byRequest map[string]*tracking.Tracker
	saveErr   error
	saveCalls int
}

func newFakeTrackerRepo() *fakeTrackerRepo {
	return &fakeTrackerRepo{
		trackers:  make(map[uuid.UUID]*tracking.Tracker),
		byRequest: make(map[string]*tracking.Tracker),
	}
}

func (r *fakeTrackerRepo) put(t *tracking.Tracker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trackers[t.ID] = t
	r.byRequest[t.PaymentRequestID] = t
}

func (r *fakeTrackerRepo) FindByID(ctx context.Context, id uuid.UUID) (*tracking.Tracker, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.trackers[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return t, nil
}

func (r *fakeTrackerRepo) FindByPaymentRequest(ctx context.Context, paymentRequestID string) (*tracking.Tracker, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.byRequest[paymentRequestID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return t, nil
}

func (r *fakeTrackerRepo) FindByPaymentRequests(ctx context.Context, ids []string) (map[string]*tracking.Tracker, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]*tracking.Tracker)
	for _, id := range ids {
		if t, ok := r.byRequest[id]; ok {
			out[id] = t
		}
	}
	return out, nil
}

func (r *fakeTrackerRepo) Save(ctx context.Context, tracker *tracking.Tracker) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saveCalls++
	if r.saveErr != nil {
		return r.saveErr
	}
	r.trackers[tracker.ID] = tracker
	r.byRequest[tracker.PaymentRequestID] = tracker
	return nil
}

func (r *fakeTrackerRepo) UpdateBudget(ctx context.Context, id uuid.UUID, budget decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.trackers[id]
	if !ok {
		return shared.ErrNotFound
	}
	t.Budget = &budget
	return nil
}

type fakeRequestReader struct {
	records map[tracking.ReferenceCategory][]tracking.PaymentRequestRecord
}

func (r *fakeRequestReader) List(ctx context.Context, category tracking.ReferenceCategory, filter tracking.EntryFilter) ([]tracking.PaymentRequestRecord, error) {
	out := make([]tracking.PaymentRequestRecord, 0)
	for _, rec := range r.records[category] {
		if filter.PaymentRequestID != "" && rec.ID != filter.PaymentRequestID {
			continue
		}
		if filter.Supplier != "" && rec.Party != filter.Supplier {
			continue
		}
		if filter.ReferenceName != "" && rec.ReferenceName != filter.ReferenceName {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func (r *fakeRequestReader) FindByID(ctx context.Context, id string) (*tracking.PaymentRequestRecord, error) {
	for _, recs := range r.records {
		for _, rec := range recs {
			if rec.ID == id {
				return &rec, nil
			}
		}
	}
	return nil, shared.ErrNotFound
}

type fakeEntryReader struct {
	sums    map[string]decimal.Decimal
	refSums map[string]decimal.Decimal
	entries map[string][]tracking.PaymentEntryRecord
}

func newFakeEntryReader() *fakeEntryReader {
	return &fakeEntryReader{
		sums:    make(map[string]decimal.Decimal),
		refSums: make(map[string]decimal.Decimal),
		entries: make(map[string][]tracking.PaymentEntryRecord),
	}
}

func (r *fakeEntryReader) ListByPaymentRequest(ctx context.Context, paymentRequestID string) ([]tracking.PaymentEntryRecord, error) {
	return r.entries[paymentRequestID], nil
}

func (r *fakeEntryReader) SumByPaymentRequest(ctx context.Context, paymentRequestID string) (decimal.Decimal, error) {
	return r.sums[paymentRequestID], nil
}

func (r *fakeEntryReader) SumByReference(ctx context.Context, referenceDoctype, referenceName string) (decimal.Decimal, error) {
	return r.refSums[referenceDoctype+"/"+referenceName], nil
}

type fakeRefReader struct {
	grands map[string]decimal.Decimal
	terms  map[string]string
}

func newFakeRefReader() *fakeRefReader {
	return &fakeRefReader{
		grands: make(map[string]decimal.Decimal),
		terms:  make(map[string]string),
	}
}

func (r *fakeRefReader) GrandTotal(ctx context.Context, doctype, name string) (*decimal.Decimal, error) {
	g, ok := r.grands[doctype+"/"+name]
	if !ok {
		return nil, nil
	}
	return &g, nil
}

func (r *fakeRefReader) PaymentTerms(ctx context.Context, doctype, name string) (string, error) {
	return r.terms[doctype+"/"+name], nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (p *fakePublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *fakePublisher) eventTypes() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]string, len(p.events))
	for i, e := range p.events {
		types[i] = e.EventType()
	}
	return types
}

type fakeIdempotencyStore struct {
	mu   sync.Mutex
	seen map[string]bool
}

func newFakeIdempotencyStore() *fakeIdempotencyStore {
	return &fakeIdempotencyStore{seen: make(map[string]bool)}
}

func (s *fakeIdempotencyStore) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seen[key] {
		return false, nil
	}
	s.seen[key] = true
	return true, nil
}

func (s *fakeIdempotencyStore) IsProcessed(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seen[key], nil
}

func (s *fakeIdempotencyStore) Close() error { return nil }

type fakeNotifier struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (n *fakeNotifier) NotifyBudget(ctx context.Context, recipients []string, category tracking.ReferenceCategory, summary tracking.BudgetSummary) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.calls++
	return nil
}
