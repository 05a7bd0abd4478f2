package shared

import "context"

// EventHandler consumes delivered events. Delivery is at least once, so
// Handle must tolerate seeing the same EventID again.
type EventHandler interface {
	Handle(ctx context.Context, event DomainEvent) error
	// EventTypes lists the types to receive; empty means every type
	EventTypes() []string
}

// EventPublisher hands events to their handlers. The outbox relay calls
// it after reading a due entry; an error leaves the entry for retry.
type EventPublisher interface {
	Publish(ctx context.Context, events ...DomainEvent) error
}
