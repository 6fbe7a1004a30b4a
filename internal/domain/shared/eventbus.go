package shared

import "context"

// EventHandlerFunc processes one domain event
type EventHandlerFunc func(ctx context.Context, event DomainEvent) error

// EventPublisher publishes domain events
type EventPublisher interface {
	// Publish publishes one or more domain events
	Publish(ctx context.Context, events ...DomainEvent) error
}

// EventBus combines publishing with per-type handler subscription
type EventBus interface {
	EventPublisher
	// Subscribe registers a handler for one event type
	Subscribe(eventType string, handler EventHandlerFunc)
	// Start starts the event bus
	Start(ctx context.Context) error
	// Stop gracefully stops the event bus
	Stop(ctx context.Context) error
}
