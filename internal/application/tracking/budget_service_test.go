package tracking

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cashtrack/backend/internal/domain/shared/valueobject"
	"github.com/cashtrack/backend/internal/domain/tracking"
)

type budgetFixture struct {
	*entryFixture
	idempotency *fakeIdempotencyStore
	notifier    *fakeNotifier
	publisher   *fakePublisher
	service     *BudgetService
}

func newBudgetFixture() *budgetFixture {
	ef := newEntryFixture()
	f := &budgetFixture{
		entryFixture: ef,
		idempotency:  newFakeIdempotencyStore(),
		notifier:     &fakeNotifier{},
		publisher:    &fakePublisher{},
	}
	f.service = NewBudgetService(
		ef.trackerRepo, ef.service, f.idempotency, f.notifier, f.publisher, zap.NewNop())
	return f
}

func (f *budgetFixture) addTrackedRequest(t *testing.T, id string, total int64, budget int64) {
	t.Helper()
	f.addRequest(tracking.CategoryPurchaseOrder, poRequest(id, total))

	tracker, err := tracking.NewTracker(id, valueobject.NewMoneyFromFloat(float64(total)))
	require.NoError(t, err)
	require.NoError(t, tracker.SetBudget(valueobject.NewMoneyFromFloat(float64(budget))))
	tracker.ClearDomainEvents()
	f.trackerRepo.put(tracker)
}

func TestSetTrackerBudget(t *testing.T) {
	ctx := context.Background()

	t.Run("persists the budget", func(t *testing.T) {
		f := newBudgetFixture()
		tracker, err := tracking.NewTracker("PR-1", valueobject.NewMoneyFromFloat(100))
		require.NoError(t, err)
		f.trackerRepo.put(tracker)

		err = f.service.SetTrackerBudget(ctx, tracker.ID, decimal.NewFromInt(3000))
		require.NoError(t, err)

		persisted, err := f.trackerRepo.FindByID(ctx, tracker.ID)
		require.NoError(t, err)
		require.NotNil(t, persisted.Budget)
		assert.True(t, persisted.Budget.Equal(decimal.NewFromInt(3000)))
		assert.Contains(t, f.publisher.eventTypes(), tracking.EventTypeTrackerBudgetUpdated)
	})

	t.Run("rejects a negative budget", func(t *testing.T) {
		f := newBudgetFixture()
		tracker, err := tracking.NewTracker("PR-2", valueobject.NewMoneyFromFloat(100))
		require.NoError(t, err)
		f.trackerRepo.put(tracker)

		err = f.service.SetTrackerBudget(ctx, tracker.ID, decimal.NewFromInt(-5))
		assert.Error(t, err)
	})
}

func TestSummarize(t *testing.T) {
	ctx := context.Background()

	f := newBudgetFixture()
	f.addTrackedRequest(t, "PR-1", 1000, 1500)
	f.addTrackedRequest(t, "PR-2", 2000, 2500)
	// request without a tracker contributes no budget
	f.addRequest(tracking.CategoryPurchaseOrder, poRequest("PR-3", 300))

	summary, err := f.service.Summarize(ctx, BudgetSummaryRequest{
		Category: "PURCHASE_ORDER",
		Target:   decimal.NewFromInt(10000),
	})
	require.NoError(t, err)
	assert.True(t, summary.TotalBudget.Equal(decimal.NewFromInt(4000)))
	assert.True(t, summary.RemainingBudget.Equal(decimal.NewFromInt(6000)))
}

func TestNotifyStakeholders(t *testing.T) {
	ctx := context.Background()

	t.Run("sends once per category per day", func(t *testing.T) {
		f := newBudgetFixture()
		f.addTrackedRequest(t, "PR-1", 1000, 1500)
		req := NotifyRequest{
			Category:   "PURCHASE_ORDER",
			Target:     decimal.NewFromInt(5000),
			Recipients: []string{"cfo@example.com"},
		}

		first, err := f.service.NotifyStakeholders(ctx, req)
		require.NoError(t, err)
		assert.True(t, first.Sent)
		assert.Equal(t, 1, f.notifier.calls)

		second, err := f.service.NotifyStakeholders(ctx, req)
		require.NoError(t, err)
		assert.False(t, second.Sent)
		assert.Equal(t, 1, f.notifier.calls)
		assert.True(t, second.Summary.TotalBudget.Equal(first.Summary.TotalBudget))
	})

	t.Run("dedup is per category", func(t *testing.T) {
		f := newBudgetFixture()
		f.addTrackedRequest(t, "PR-1", 1000, 1500)

		_, err := f.service.NotifyStakeholders(ctx, NotifyRequest{
			Category:   "PURCHASE_ORDER",
			Target:     decimal.NewFromInt(5000),
			Recipients: []string{"cfo@example.com"},
		})
		require.NoError(t, err)

		result, err := f.service.NotifyStakeholders(ctx, NotifyRequest{
			Category:   "SALES_ORDER",
			Target:     decimal.NewFromInt(5000),
			Recipients: []string{"cfo@example.com"},
		})
		require.NoError(t, err)
		assert.True(t, result.Sent)
	})

	t.Run("requires recipients", func(t *testing.T) {
		f := newBudgetFixture()
		_, err := f.service.NotifyStakeholders(ctx, NotifyRequest{
			Category: "PURCHASE_ORDER",
			Target:   decimal.NewFromInt(5000),
		})
		assert.Error(t, err)
	})

	t.Run("rejects unknown category before dedup", func(t *testing.T) {
		f := newBudgetFixture()
		_, err := f.service.NotifyStakeholders(ctx, NotifyRequest{
			Category:   "BOGUS",
			Target:     decimal.NewFromInt(5000),
			Recipients: []string{"cfo@example.com"},
		})
		require.Error(t, err)

		processed, err := f.idempotency.IsProcessed(ctx,
			"budget-notify:BOGUS:"+time.Now().Format("2006-01-02"))
		require.NoError(t, err)
		assert.False(t, processed)
	})
}
