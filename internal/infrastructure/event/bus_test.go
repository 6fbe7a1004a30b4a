package event

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cashtrack/backend/internal/domain/shared"
	"github.com/cashtrack/backend/internal/domain/tracking"
)

func TestInMemoryEventBus(t *testing.T) {
	ctx := context.Background()

	t.Run("dispatches to the subscribed type only", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		require.NoError(t, bus.Start(ctx))
		defer bus.Stop(ctx)

		var settled []uuid.UUID
		bus.Subscribe(tracking.EventTypeTrackerSettled, func(ctx context.Context, e shared.DomainEvent) error {
			settled = append(settled, e.AggregateID())
			return nil
		})

		trackerID := uuid.New()
		require.NoError(t, bus.Publish(ctx,
			tracking.NewTrackerSettledEvent(trackerID, "PR-0001"),
			tracking.NewTrackerCreatedEvent(uuid.New(), "PR-0002", decimal.Zero),
		))

		require.Len(t, settled, 1)
		assert.Equal(t, trackerID, settled[0])
	})

	t.Run("failing handler does not block the others", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())

		calls := 0
		bus.Subscribe(tracking.EventTypeTrackerSettled, func(ctx context.Context, e shared.DomainEvent) error {
			return errors.New("boom")
		})
		bus.Subscribe(tracking.EventTypeTrackerSettled, func(ctx context.Context, e shared.DomainEvent) error {
			calls++
			return nil
		})

		require.NoError(t, bus.Publish(ctx, tracking.NewTrackerSettledEvent(uuid.New(), "PR-0001")))
		assert.Equal(t, 1, calls)
	})

	t.Run("panicking handler is recovered", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())

		bus.Subscribe(tracking.EventTypeTrackerSettled, func(ctx context.Context, e shared.DomainEvent) error {
			panic("handler bug")
		})

		assert.NotPanics(t, func() {
			_ = bus.Publish(ctx, tracking.NewTrackerSettledEvent(uuid.New(), "PR-0001"))
		})
	})
}
