package event

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/cashtrack/backend/internal/domain/shared"
)

// InMemoryEventBus dispatches domain events synchronously to handlers
// registered per event type
type InMemoryEventBus struct {
	mu       sync.RWMutex
	handlers map[string][]shared.EventHandlerFunc
	logger   *zap.Logger
}

// NewInMemoryEventBus creates a new in-memory event bus
func NewInMemoryEventBus(logger *zap.Logger) *InMemoryEventBus {
	return &InMemoryEventBus{
		handlers: make(map[string][]shared.EventHandlerFunc),
		logger:   logger,
	}
}

// Publish dispatches events to the handlers subscribed to their type.
// A failing or panicking handler is logged and does not block the others.
func (b *InMemoryEventBus) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	for _, event := range events {
		b.mu.RLock()
		handlers := b.handlers[event.EventType()]
		b.mu.RUnlock()

		for _, handler := range handlers {
			if err := b.dispatch(ctx, handler, event); err != nil {
				b.logger.Error("handler failed to process event",
					zap.String("event_type", event.EventType()),
					zap.String("event_id", event.EventID().String()),
					zap.Error(err),
				)
			}
		}
	}
	return nil
}

// Subscribe registers a handler for one event type
func (b *InMemoryEventBus) Subscribe(eventType string, handler shared.EventHandlerFunc) {
	b.mu.Lock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
	b.mu.Unlock()

	b.logger.Debug("handler subscribed", zap.String("event_type", eventType))
}

// Start starts the event bus
func (b *InMemoryEventBus) Start(ctx context.Context) error {
	b.logger.Info("event bus started")
	return nil
}

// Stop stops the event bus. Dispatch is synchronous so there is nothing
// in flight to drain.
func (b *InMemoryEventBus) Stop(ctx context.Context) error {
	b.logger.Info("event bus stopped")
	return nil
}

func (b *InMemoryEventBus) dispatch(ctx context.Context, handler shared.EventHandlerFunc, event shared.DomainEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("handler panicked",
				zap.String("event_type", event.EventType()),
				zap.Any("panic", r),
			)
		}
	}()

	return handler(ctx, event)
}

var _ shared.EventBus = (*InMemoryEventBus)(nil)
