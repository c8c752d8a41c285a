package infrastructure

import (
	"context"
	"sync"

	"slotbridge/domain/events"
	"slotbridge/infrastructure/metrics"

	log "github.com/sirupsen/logrus"
)

type subscription struct {
	id      int
	handler func(context.Context, events.Event) error
}

// EventBus is an in-process event publisher with a per-type handler registry.
// The bridge and engine share one bus per session; each Subscribe call returns
// its own unsubscribe function so arbitrary listener counts are supported.
type EventBus struct {
	mu       sync.Mutex
	nextID   int
	handlers map[events.EventType][]subscription
}

// NewEventBus creates an empty event bus
func NewEventBus() *EventBus {
	return &EventBus{
		handlers: make(map[events.EventType][]subscription),
	}
}

// Publish delivers the event to every current subscriber of its type. Handler
// errors are logged and do not stop delivery to other handlers.
func (b *EventBus) Publish(event events.Event) error {
	eventType := event.Type()

	b.mu.Lock()
	subs := make([]subscription, len(b.handlers[eventType]))
	copy(subs, b.handlers[eventType])
	b.mu.Unlock()

	ctx := context.Background()
	for _, sub := range subs {
		if err := sub.handler(ctx, event); err != nil {
			log.WithFields(log.Fields{
				"eventType": eventType,
				"error":     err,
			}).Error("Event handler failed")
		}
	}

	metrics.EventsPublished.WithLabelValues(string(eventType)).Inc()
	return nil
}

// Subscribe registers a handler for the given event type and returns an
// unsubscribe function. Unsubscribing twice is a no-op.
func (b *EventBus) Subscribe(eventType events.EventType, handler func(context.Context, events.Event) error) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.handlers[eventType] = append(b.handlers[eventType], subscription{id: id, handler: handler})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.handlers[eventType]
		for i, sub := range subs {
			if sub.id == id {
				b.handlers[eventType] = append(subs[:i], subs[i+1:]...)
				return
			}
		}
	}
}
