package tracking

import (
	"time"

	"github.com/google/uuid"

	"github.com/cashtrack/backend/internal/domain/shared"
)

// SessionState is the lifecycle state of an edit session
type SessionState string

const (
	SessionOpen      SessionState = "OPEN"
	SessionSaving    SessionState = "SAVING"
	SessionClosed    SessionState = "CLOSED"
	SessionDiscarded SessionState = "DISCARDED"
)

// ErrTrackerLocked is returned when a mutation is attempted through a
// session opened on a fully settled tracker.
var ErrTrackerLocked = shared.NewDomainError(
	"TRACKER_LOCKED", "Tracker is fully paid and cannot be edited")

// ErrSessionNotOpen is returned when a mutation is attempted outside the
// open state.
var ErrSessionNotOpen = shared.NewDomainError(
	"INVALID_STATE", "Edit session is not open")

// EditSession buffers ledger edits for one tracker. Edits accumulate in
// the session and touch the tracker only when the session saves. A session
// opened on a settled tracker is locked: it can be viewed and discarded
// but never mutated or saved.
type EditSession struct {
	ID          uuid.UUID
	TrackerID   uuid.UUID
	state       SessionState
	locked      bool
	buffer      []LedgerRow
	totals      *TrackerTotals
	baseVersion int
	OpenedAt    time.Time
}

// NewEditSession opens a session against the tracker's current ledger.
// The session is locked when the tracker is already fully settled.
func NewEditSession(tracker *Tracker) *EditSession {
	buffer := make([]LedgerRow, len(tracker.Rows))
	copy(buffer, tracker.Rows)
	return &EditSession{
		ID:          uuid.New(),
		TrackerID:   tracker.ID,
		state:       SessionOpen,
		locked:      tracker.IsSettled(),
		buffer:      buffer,
		baseVersion: tracker.GetVersion(),
		OpenedAt:    time.Now(),
	}
}

// State returns the current lifecycle state
func (s *EditSession) State() SessionState {
	return s.state
}

// IsLocked reports whether the session is view-only
func (s *EditSession) IsLocked() bool {
	return s.locked
}

// BaseVersion returns the tracker version the session was opened against
func (s *EditSession) BaseVersion() int {
	return s.baseVersion
}

// Rows returns a copy of the buffered ledger
func (s *EditSession) Rows() []LedgerRow {
	rows := make([]LedgerRow, len(s.buffer))
	copy(rows, s.buffer)
	return rows
}

// AddRow appends a blank installment row to the buffer
func (s *EditSession) AddRow() (LedgerRow, error) {
	if err := s.ensureMutable(); err != nil {
		return LedgerRow{}, err
	}
	row := NewLedgerRow()
	row.TrackerID = s.TrackerID
	row.Position = len(s.buffer)
	s.buffer = append(s.buffer, row)
	return row, nil
}

// EditRow replaces the buffered row at index
func (s *EditSession) EditRow(index int, row LedgerRow) error {
	if err := s.ensureMutable(); err != nil {
		return err
	}
	if index < 0 || index >= len(s.buffer) {
		return shared.NewDomainError("INVALID_INPUT", "Row index out of range")
	}
	row.ID = s.buffer[index].ID
	row.TrackerID = s.TrackerID
	row.Position = index
	s.buffer[index] = row
	return nil
}

// RemoveRow deletes the buffered row at index. An out-of-range index is
// ignored so repeated removal requests stay harmless.
func (s *EditSession) RemoveRow(index int) error {
	if err := s.ensureMutable(); err != nil {
		return err
	}
	if index < 0 || index >= len(s.buffer) {
		return nil
	}
	s.buffer = append(s.buffer[:index], s.buffer[index+1:]...)
	for i := range s.buffer {
		s.buffer[i].Position = i
	}
	return nil
}

// SetTotals stages a caller-supplied paid/remaining pair to persist with
// the rows. Without it the totals are derived from the buffered rows at
// save time.
func (s *EditSession) SetTotals(totals TrackerTotals) error {
	if err := s.ensureMutable(); err != nil {
		return err
	}
	if totals.Paid.IsNegative() || totals.Remaining.IsNegative() {
		return shared.NewDomainError("INVALID_AMOUNT", "Tracker totals cannot be negative")
	}
	s.totals = &totals
	return nil
}

// Totals returns the staged totals pair, if one was set
func (s *EditSession) Totals() (TrackerTotals, bool) {
	if s.totals == nil {
		return TrackerTotals{}, false
	}
	return *s.totals, true
}

// BeginSave transitions to the saving state and hands out the buffered
// rows for persistence
func (s *EditSession) BeginSave() ([]LedgerRow, error) {
	if s.locked {
		return nil, ErrTrackerLocked
	}
	if s.state != SessionOpen {
		return nil, ErrSessionNotOpen
	}
	s.state = SessionSaving
	return s.Rows(), nil
}

// CompleteSave closes the session after a successful persist
func (s *EditSession) CompleteSave() {
	if s.state == SessionSaving {
		s.state = SessionClosed
	}
}

// FailSave reopens the session after a failed persist. The buffer is
// untouched so the user can retry or discard.
func (s *EditSession) FailSave() {
	if s.state == SessionSaving {
		s.state = SessionOpen
	}
}

// Discard abandons the buffered edits. Discarding an already discarded
// or closed session is a no-op.
func (s *EditSession) Discard() {
	if s.state == SessionOpen || s.state == SessionSaving {
		s.state = SessionDiscarded
	}
}

// Refresh reloads the buffer from the tracker's persisted ledger and
// re-evaluates the lock
func (s *EditSession) Refresh(tracker *Tracker) error {
	if tracker.ID != s.TrackerID {
		return shared.NewDomainError("INVALID_INPUT", "Tracker does not belong to this session")
	}
	if s.state != SessionOpen {
		return ErrSessionNotOpen
	}
	s.buffer = make([]LedgerRow, len(tracker.Rows))
	copy(s.buffer, tracker.Rows)
	s.totals = nil
	s.baseVersion = tracker.GetVersion()
	s.locked = tracker.IsSettled()
	return nil
}

func (s *EditSession) ensureMutable() error {
	if s.locked {
		return ErrTrackerLocked
	}
	if s.state != SessionOpen {
		return ErrSessionNotOpen
	}
	return nil
}
