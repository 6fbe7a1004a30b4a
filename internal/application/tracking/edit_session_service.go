package tracking

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/cashtrack/backend/internal/domain/shared"
	"github.com/cashtrack/backend/internal/domain/tracking"
	"github.com/cashtrack/backend/internal/infrastructure/telemetry"
)

// ErrSessionNotFound is returned for an unknown or expired session ID
var ErrSessionNotFound = shared.NewDomainError("SESSION_NOT_FOUND", "Edit session not found")

// EditSessionService manages installment ledger edit sessions. Sessions
// live in process memory; only a successful save touches storage.
type EditSessionService struct {
	trackerRepo tracking.TrackerRepository
	publisher   shared.EventPublisher
	logger      *zap.Logger

	mu       sync.Mutex
	sessions map[uuid.UUID]*tracking.EditSession
}

// NewEditSessionService creates a new EditSessionService
func NewEditSessionService(
	trackerRepo tracking.TrackerRepository,
	publisher shared.EventPublisher,
	logger *zap.Logger,
) *EditSessionService {
	return &EditSessionService{
		trackerRepo: trackerRepo,
		publisher:   publisher,
		logger:      logger,
		sessions:    make(map[uuid.UUID]*tracking.EditSession),
	}
}

// SessionView is the session state handed back to callers
type SessionView struct {
	SessionID uuid.UUID            `json:"session_id"`
	TrackerID uuid.UUID            `json:"tracker_id"`
	State     tracking.SessionState `json:"state"`
	Locked    bool                 `json:"locked"`
	Rows      []tracking.LedgerRow `json:"rows"`
}

func newSessionView(s *tracking.EditSession) *SessionView {
	return &SessionView{
		SessionID: s.ID,
		TrackerID: s.TrackerID,
		State:     s.State(),
		Locked:    s.IsLocked(),
		Rows:      s.Rows(),
	}
}

// Open starts an edit session on a tracker. The session comes back locked
// when the tracker is already fully paid.
func (s *EditSessionService) Open(ctx context.Context, trackerID uuid.UUID) (*SessionView, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "tracking", "open_edit_session")
	defer span.End()

	tracker, err := s.trackerRepo.FindByID(ctx, trackerID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	session := tracking.NewEditSession(tracker)
	s.mu.Lock()
	s.sessions[session.ID] = session
	s.mu.Unlock()

	if session.IsLocked() {
		s.logger.Info("edit session opened locked, tracker fully paid",
			zap.String("tracker_id", trackerID.String()))
	}
	return newSessionView(session), nil
}

// AddRow appends a blank installment row to the session buffer
func (s *EditSessionService) AddRow(ctx context.Context, sessionID uuid.UUID) (*SessionView, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	if _, err := session.AddRow(); err != nil {
		return nil, err
	}
	return newSessionView(session), nil
}

// RowEdit carries the editable fields of one installment row
type RowEdit struct {
	TransactionDate *string         `json:"transaction_date"`
	PaidAmount      decimal.Decimal `json:"paid_amount"`
}

// EditRow replaces the buffered row at index with the submitted fields
func (s *EditSessionService) EditRow(ctx context.Context, sessionID uuid.UUID, index int, edit RowEdit) (*SessionView, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	row := tracking.NewLedgerRow()
	row.PaidAmount = edit.PaidAmount
	if edit.TransactionDate != nil && *edit.TransactionDate != "" {
		date, err := parseDate(*edit.TransactionDate)
		if err != nil {
			return nil, shared.NewDomainError("INVALID_INPUT", "Invalid transaction date")
		}
		row.TransactionDate = &date
	}
	if err := session.EditRow(index, row); err != nil {
		return nil, err
	}
	return newSessionView(session), nil
}

// RemoveRow deletes the buffered row at index. Unknown indexes are
// ignored, matching the buffer's own behavior.
func (s *EditSessionService) RemoveRow(ctx context.Context, sessionID uuid.UUID, index int) (*SessionView, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	if err := session.RemoveRow(index); err != nil {
		return nil, err
	}
	return newSessionView(session), nil
}

// Save persists the buffered ledger and totals. The totals pair comes
// from SetTotals when staged, otherwise it is derived from the buffered
// rows against the tracker's grand total. On a storage failure the
// session reopens with its buffer intact so the caller can retry.
func (s *EditSessionService) Save(ctx context.Context, sessionID uuid.UUID) (*SessionView, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "tracking", "save_edit_session")
	defer span.End()

	session, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	rows, err := session.BeginSave()
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	for i, row := range rows {
		if row.TransactionDate == nil {
			s.logger.Warn("ledger row saved without transaction date",
				zap.String("tracker_id", session.TrackerID.String()),
				zap.Int("position", i))
		}
	}

	tracker, err := s.trackerRepo.FindByID(ctx, session.TrackerID)
	if err != nil {
		session.FailSave()
		telemetry.RecordError(span, err)
		return nil, err
	}

	totals, ok := session.Totals()
	if !ok {
		paid := decimal.Zero
		for _, row := range rows {
			paid = paid.Add(row.PaidAmount)
		}
		remaining := tracker.GrandTotal().Sub(paid)
		if remaining.IsNegative() {
			remaining = decimal.Zero
		}
		totals = tracking.TrackerTotals{Paid: paid, Remaining: remaining}
	}
	if err := tracker.ReplaceRows(rows, totals); err != nil {
		session.FailSave()
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := s.trackerRepo.Save(ctx, tracker); err != nil {
		session.FailSave()
		telemetry.RecordError(span, err)
		s.logger.Error("failed to persist ledger rows",
			zap.String("tracker_id", tracker.ID.String()),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", shared.ErrPersistenceFailure, err)
	}

	session.CompleteSave()
	s.publishEvents(ctx, tracker)

	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()

	view := newSessionView(session)
	view.Rows = tracker.Rows
	return view, nil
}

// SetTotals stages a caller-supplied totals pair to persist with the
// next save instead of the row-derived pair
func (s *EditSessionService) SetTotals(ctx context.Context, sessionID uuid.UUID, totals tracking.TrackerTotals) (*SessionView, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	if err := session.SetTotals(totals); err != nil {
		return nil, err
	}
	return newSessionView(session), nil
}

// ReplaceLedger replaces a tracker's whole ledger in one shot. It runs a
// full session lifecycle internally so the settled-tracker guard and save
// semantics stay identical to interactive editing. A nil totals pair is
// derived from the submitted rows.
func (s *EditSessionService) ReplaceLedger(ctx context.Context, trackerID uuid.UUID, edits []RowEdit, totals *tracking.TrackerTotals) (*SessionView, error) {
	view, err := s.Open(ctx, trackerID)
	if err != nil {
		return nil, err
	}
	if view.Locked {
		s.Discard(ctx, view.SessionID)
		return nil, tracking.ErrTrackerLocked
	}

	for range view.Rows {
		if _, err := s.RemoveRow(ctx, view.SessionID, 0); err != nil {
			s.Discard(ctx, view.SessionID)
			return nil, err
		}
	}
	for i, edit := range edits {
		if _, err := s.AddRow(ctx, view.SessionID); err != nil {
			s.Discard(ctx, view.SessionID)
			return nil, err
		}
		if _, err := s.EditRow(ctx, view.SessionID, i, edit); err != nil {
			s.Discard(ctx, view.SessionID)
			return nil, err
		}
	}
	if totals != nil {
		if _, err := s.SetTotals(ctx, view.SessionID, *totals); err != nil {
			s.Discard(ctx, view.SessionID)
			return nil, err
		}
	}

	return s.Save(ctx, view.SessionID)
}

// Discard abandons a session's buffered edits. Discarding an unknown
// session is a no-op so repeated discards stay harmless.
func (s *EditSessionService) Discard(ctx context.Context, sessionID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if session, ok := s.sessions[sessionID]; ok {
		session.Discard()
		delete(s.sessions, sessionID)
	}
}

// Refresh reloads the session buffer from the tracker's persisted state
func (s *EditSessionService) Refresh(ctx context.Context, sessionID uuid.UUID) (*SessionView, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	tracker, err := s.trackerRepo.FindByID(ctx, session.TrackerID)
	if err != nil {
		return nil, err
	}
	if err := session.Refresh(tracker); err != nil {
		return nil, err
	}
	return newSessionView(session), nil
}

func (s *EditSessionService) session(id uuid.UUID) (*tracking.EditSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

func (s *EditSessionService) publishEvents(ctx context.Context, tracker *tracking.Tracker) {
	events := tracker.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("failed to publish tracker events", zap.Error(err))
	}
	tracker.ClearDomainEvents()
}
