package tracking

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cashtrack/backend/internal/domain/shared"
	"github.com/cashtrack/backend/internal/domain/shared/valueobject"
	"github.com/cashtrack/backend/internal/domain/tracking"
)

type sessionFixture struct {
	trackerRepo *fakeTrackerRepo
	publisher   *fakePublisher
	service     *EditSessionService
	tracker     *tracking.Tracker
}

func newSessionFixture(t *testing.T, grandTotal float64) *sessionFixture {
	t.Helper()
	f := &sessionFixture{
		trackerRepo: newFakeTrackerRepo(),
		publisher:   &fakePublisher{},
	}
	f.service = NewEditSessionService(f.trackerRepo, f.publisher, zap.NewNop())

	tracker, err := tracking.NewTracker("PR-1", valueobject.NewMoneyFromFloat(grandTotal))
	require.NoError(t, err)
	tracker.ClearDomainEvents()
	f.trackerRepo.put(tracker)
	f.tracker = tracker
	return f
}

func TestEditSessionServiceOpen(t *testing.T) {
	ctx := context.Background()

	t.Run("opens unlocked on outstanding tracker", func(t *testing.T) {
		f := newSessionFixture(t, 1000)
		view, err := f.service.Open(ctx, f.tracker.ID)
		require.NoError(t, err)
		assert.False(t, view.Locked)
		assert.Equal(t, tracking.SessionOpen, view.State)
	})

	t.Run("opens locked on settled tracker", func(t *testing.T) {
		f := newSessionFixture(t, 1000)
		f.tracker.MarkSettled()

		view, err := f.service.Open(ctx, f.tracker.ID)
		require.NoError(t, err)
		assert.True(t, view.Locked)
	})

	t.Run("unknown tracker", func(t *testing.T) {
		f := newSessionFixture(t, 1000)
		_, err := f.service.Open(ctx, uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestEditSessionServiceSave(t *testing.T) {
	ctx := context.Background()

	t.Run("save persists rows and closes the session", func(t *testing.T) {
		f := newSessionFixture(t, 1000)
		view, err := f.service.Open(ctx, f.tracker.ID)
		require.NoError(t, err)

		_, err = f.service.AddRow(ctx, view.SessionID)
		require.NoError(t, err)
		date := "2026-04-01"
		_, err = f.service.EditRow(ctx, view.SessionID, 0, RowEdit{
			TransactionDate: &date,
			PaidAmount:      decimal.NewFromInt(250),
		})
		require.NoError(t, err)

		saved, err := f.service.Save(ctx, view.SessionID)
		require.NoError(t, err)
		assert.Equal(t, tracking.SessionClosed, saved.State)

		persisted, err := f.trackerRepo.FindByID(ctx, f.tracker.ID)
		require.NoError(t, err)
		require.Len(t, persisted.Rows, 1)
		assert.True(t, persisted.Rows[0].PaidAmount.Equal(decimal.NewFromInt(250)))
		assert.True(t, persisted.Rows[0].Paid.Equal(decimal.NewFromInt(25)))
		assert.True(t, persisted.Rows[0].UnpaidAmount.Equal(decimal.NewFromInt(750)))
		// totals derived from the rows, grand total preserved
		assert.True(t, persisted.TotalAmountPaid.Equal(decimal.NewFromInt(250)))
		assert.True(t, persisted.TotalAmountRemaining.Equal(decimal.NewFromInt(750)))
		assert.True(t, persisted.GrandTotal().Equal(decimal.NewFromInt(1000)))
		assert.Contains(t, f.publisher.eventTypes(), tracking.EventTypeTrackerRowsReplaced)
	})

	t.Run("staged totals override the row-derived pair", func(t *testing.T) {
		f := newSessionFixture(t, 1000)
		view, err := f.service.Open(ctx, f.tracker.ID)
		require.NoError(t, err)

		_, err = f.service.AddRow(ctx, view.SessionID)
		require.NoError(t, err)
		_, err = f.service.EditRow(ctx, view.SessionID, 0, RowEdit{PaidAmount: decimal.NewFromInt(250)})
		require.NoError(t, err)
		_, err = f.service.SetTotals(ctx, view.SessionID, tracking.TrackerTotals{
			Paid:      decimal.NewFromInt(300),
			Remaining: decimal.NewFromInt(700),
		})
		require.NoError(t, err)

		_, err = f.service.Save(ctx, view.SessionID)
		require.NoError(t, err)

		persisted, err := f.trackerRepo.FindByID(ctx, f.tracker.ID)
		require.NoError(t, err)
		assert.True(t, persisted.TotalAmountPaid.Equal(decimal.NewFromInt(300)))
		assert.True(t, persisted.TotalAmountRemaining.Equal(decimal.NewFromInt(700)))
	})

	t.Run("rows without a transaction date are flagged", func(t *testing.T) {
		core, logs := observer.New(zapcore.WarnLevel)
		f := newSessionFixture(t, 1000)
		f.service = NewEditSessionService(f.trackerRepo, f.publisher, zap.New(core))

		view, err := f.service.Open(ctx, f.tracker.ID)
		require.NoError(t, err)
		_, err = f.service.AddRow(ctx, view.SessionID)
		require.NoError(t, err)
		_, err = f.service.EditRow(ctx, view.SessionID, 0, RowEdit{PaidAmount: decimal.NewFromInt(100)})
		require.NoError(t, err)

		_, err = f.service.Save(ctx, view.SessionID)
		require.NoError(t, err)
		assert.Equal(t, 1, logs.FilterMessage("ledger row saved without transaction date").Len())
	})

	t.Run("failed persist keeps the session and buffer", func(t *testing.T) {
		f := newSessionFixture(t, 1000)
		view, err := f.service.Open(ctx, f.tracker.ID)
		require.NoError(t, err)
		_, err = f.service.AddRow(ctx, view.SessionID)
		require.NoError(t, err)

		f.trackerRepo.saveErr = errors.New("connection reset")
		_, err = f.service.Save(ctx, view.SessionID)
		require.Error(t, err)
		assert.ErrorIs(t, err, shared.ErrPersistenceFailure)

		// retry succeeds with the same buffer
		f.trackerRepo.saveErr = nil
		saved, err := f.service.Save(ctx, view.SessionID)
		require.NoError(t, err)
		assert.Len(t, saved.Rows, 1)
	})

	t.Run("save on a locked session is rejected", func(t *testing.T) {
		f := newSessionFixture(t, 1000)
		f.tracker.MarkSettled()
		view, err := f.service.Open(ctx, f.tracker.ID)
		require.NoError(t, err)

		_, err = f.service.Save(ctx, view.SessionID)
		assert.ErrorIs(t, err, tracking.ErrTrackerLocked)
	})

	t.Run("saved session id expires", func(t *testing.T) {
		f := newSessionFixture(t, 1000)
		view, err := f.service.Open(ctx, f.tracker.ID)
		require.NoError(t, err)
		_, err = f.service.Save(ctx, view.SessionID)
		require.NoError(t, err)

		_, err = f.service.AddRow(ctx, view.SessionID)
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})
}

func TestEditSessionServiceMutations(t *testing.T) {
	ctx := context.Background()

	t.Run("locked session rejects add", func(t *testing.T) {
		f := newSessionFixture(t, 1000)
		f.tracker.MarkSettled()
		view, err := f.service.Open(ctx, f.tracker.ID)
		require.NoError(t, err)

		_, err = f.service.AddRow(ctx, view.SessionID)
		assert.ErrorIs(t, err, tracking.ErrTrackerLocked)
	})

	t.Run("remove ignores an invalid index", func(t *testing.T) {
		f := newSessionFixture(t, 1000)
		view, err := f.service.Open(ctx, f.tracker.ID)
		require.NoError(t, err)
		_, err = f.service.AddRow(ctx, view.SessionID)
		require.NoError(t, err)

		after, err := f.service.RemoveRow(ctx, view.SessionID, 7)
		require.NoError(t, err)
		assert.Len(t, after.Rows, 1)
	})

	t.Run("malformed date is rejected", func(t *testing.T) {
		f := newSessionFixture(t, 1000)
		view, err := f.service.Open(ctx, f.tracker.ID)
		require.NoError(t, err)
		_, err = f.service.AddRow(ctx, view.SessionID)
		require.NoError(t, err)

		bad := "04/01/2026"
		_, err = f.service.EditRow(ctx, view.SessionID, 0, RowEdit{TransactionDate: &bad})
		assert.Error(t, err)
	})
}

func TestEditSessionServiceDiscard(t *testing.T) {
	ctx := context.Background()

	f := newSessionFixture(t, 1000)
	view, err := f.service.Open(ctx, f.tracker.ID)
	require.NoError(t, err)
	_, err = f.service.AddRow(ctx, view.SessionID)
	require.NoError(t, err)

	f.service.Discard(ctx, view.SessionID)
	// repeated discards and discards of unknown ids are no-ops
	f.service.Discard(ctx, view.SessionID)
	f.service.Discard(ctx, uuid.New())

	persisted, err := f.trackerRepo.FindByID(ctx, f.tracker.ID)
	require.NoError(t, err)
	assert.Empty(t, persisted.Rows)
}

func TestEditSessionServiceRefresh(t *testing.T) {
	ctx := context.Background()

	f := newSessionFixture(t, 1000)
	view, err := f.service.Open(ctx, f.tracker.ID)
	require.NoError(t, err)
	_, err = f.service.AddRow(ctx, view.SessionID)
	require.NoError(t, err)

	require.NoError(t, f.tracker.ApplySettlement(
		valueobject.NewMoneyFromFloat(1000),
		valueobject.NewMoneyFromFloat(1000),
	))

	refreshed, err := f.service.Refresh(ctx, view.SessionID)
	require.NoError(t, err)
	assert.Empty(t, refreshed.Rows)
	assert.True(t, refreshed.Locked)
}

func TestEditSessionServiceReplaceLedger(t *testing.T) {
	ctx := context.Background()

	t.Run("replaces existing rows and derives the totals", func(t *testing.T) {
		f := newSessionFixture(t, 1000)
		require.NoError(t, f.tracker.ReplaceRows([]tracking.LedgerRow{
			tracking.NewLedgerRow(),
		}, tracking.TrackerTotals{Paid: decimal.Zero, Remaining: decimal.NewFromInt(1000)}))
		f.tracker.ClearDomainEvents()

		date := "2026-04-01"
		view, err := f.service.ReplaceLedger(ctx, f.tracker.ID, []RowEdit{
			{TransactionDate: &date, PaidAmount: decimal.NewFromInt(400)},
			{PaidAmount: decimal.NewFromInt(600)},
		}, nil)
		require.NoError(t, err)
		assert.Equal(t, tracking.SessionClosed, view.State)
		require.Len(t, f.tracker.Rows, 2)
		assert.True(t, decimal.NewFromInt(400).Equal(f.tracker.Rows[0].PaidAmount))
		assert.True(t, decimal.NewFromInt(600).Equal(f.tracker.Rows[1].PaidAmount))
		assert.True(t, f.tracker.TotalAmountPaid.Equal(decimal.NewFromInt(1000)))
		assert.True(t, f.tracker.TotalAmountRemaining.Equal(decimal.Zero))

		// fully settled now, so a fresh session opens locked
		reopened, err := f.service.Open(ctx, f.tracker.ID)
		require.NoError(t, err)
		assert.True(t, reopened.Locked)
	})

	t.Run("caller-supplied totals are persisted verbatim", func(t *testing.T) {
		f := newSessionFixture(t, 1000)

		_, err := f.service.ReplaceLedger(ctx, f.tracker.ID, []RowEdit{
			{PaidAmount: decimal.NewFromInt(400)},
		}, &tracking.TrackerTotals{
			Paid:      decimal.NewFromInt(450),
			Remaining: decimal.NewFromInt(550),
		})
		require.NoError(t, err)
		assert.True(t, f.tracker.TotalAmountPaid.Equal(decimal.NewFromInt(450)))
		assert.True(t, f.tracker.TotalAmountRemaining.Equal(decimal.NewFromInt(550)))
	})

	t.Run("settled tracker is rejected", func(t *testing.T) {
		f := newSessionFixture(t, 1000)
		f.tracker.MarkSettled()

		_, err := f.service.ReplaceLedger(ctx, f.tracker.ID, nil, nil)
		assert.ErrorIs(t, err, tracking.ErrTrackerLocked)
	})
}

func TestEditSessionServiceOverlappingSessions(t *testing.T) {
	ctx := context.Background()

	// No version token on the save path: two sessions can edit the same
	// tracker and the later save silently overwrites the earlier one.
	t.Run("later save wins", func(t *testing.T) {
		f := newSessionFixture(t, 1000)

		first, err := f.service.Open(ctx, f.tracker.ID)
		require.NoError(t, err)
		second, err := f.service.Open(ctx, f.tracker.ID)
		require.NoError(t, err)

		_, err = f.service.AddRow(ctx, first.SessionID)
		require.NoError(t, err)
		_, err = f.service.EditRow(ctx, first.SessionID, 0, RowEdit{PaidAmount: decimal.NewFromInt(400)})
		require.NoError(t, err)

		_, err = f.service.AddRow(ctx, second.SessionID)
		require.NoError(t, err)
		_, err = f.service.EditRow(ctx, second.SessionID, 0, RowEdit{PaidAmount: decimal.NewFromInt(250)})
		require.NoError(t, err)

		_, err = f.service.Save(ctx, first.SessionID)
		require.NoError(t, err)
		_, err = f.service.Save(ctx, second.SessionID)
		require.NoError(t, err)

		persisted, err := f.trackerRepo.FindByID(ctx, f.tracker.ID)
		require.NoError(t, err)
		require.Len(t, persisted.Rows, 1)
		assert.True(t, persisted.Rows[0].PaidAmount.Equal(decimal.NewFromInt(250)))
		assert.True(t, persisted.TotalAmountPaid.Equal(decimal.NewFromInt(250)))
		assert.True(t, persisted.TotalAmountRemaining.Equal(decimal.NewFromInt(750)))
	})
}
