package shared

import (
	"context"
	"sync"
)

// EventPublisher publishes domain events
type EventPublisher interface {
	Publish(ctx context.Context, events ...DomainEvent) error
}

// EventHandler handles a domain event
type EventHandler interface {
	Handle(ctx context.Context, event DomainEvent) error
	EventTypes() []string
}

// EventBus dispatches domain events to registered handlers
type EventBus interface {
	EventPublisher
	Subscribe(handler EventHandler)
}

// InProcessEventBus is a synchronous in-process event bus.
// Handler errors do not stop delivery to the remaining handlers; the caller
// only sees the first error encountered.
type InProcessEventBus struct {
	mu       sync.RWMutex
	handlers map[string][]EventHandler
}

// NewInProcessEventBus creates a new InProcessEventBus
func NewInProcessEventBus() *InProcessEventBus {
	return &InProcessEventBus{
		handlers: make(map[string][]EventHandler),
	}
}

// Subscribe registers a handler for all its declared event types
func (b *InProcessEventBus) Subscribe(handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, eventType := range handler.EventTypes() {
		b.handlers[eventType] = append(b.handlers[eventType], handler)
	}
}

// Publish dispatches each event to the handlers registered for its type
func (b *InProcessEventBus) Publish(ctx context.Context, events ...DomainEvent) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var firstErr error
	for _, event := range events {
		for _, handler := range b.handlers[event.EventType()] {
			if err := handler.Handle(ctx, event); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

var _ EventBus = (*InProcessEventBus)(nil)
