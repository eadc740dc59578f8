// Package events provides in-process pub/sub for scheduling domain events.
// Subscribers (cache invalidation, admin notification) react to slot and
// booking state changes without coupling the service to them.
package events

import (
	"sync"
	"time"
)

// Event types published by the scheduling service.
const (
	BookingCreated   = "booking.created"
	SlotBlocked      = "slot.blocked"
	SlotUnblocked    = "slot.unblocked"
	SlotsProvisioned = "slots.provisioned"
)

// Event is a lightweight domain event. Every slot event carries LocationID
// and Date so subscribers can scope their work.
type Event struct {
	Type       string
	LocationID int64
	Date       string // YYYY-MM-DD; empty for range events
	Time       string // HH:MM; empty when not slot-specific
	BookingID  int64
	CreatedAt  time.Time
}

// Handler reacts to an event.
type Handler func(event Event)

// Bus provides in-process pub/sub.
type Bus struct {
	subscribers map[string][]Handler
	mu          sync.RWMutex
}

// NewBus constructs an empty bus.
func NewBus() *Bus {
	return &Bus{subscribers: make(map[string][]Handler)}
}

// Subscribe registers a handler for a given event type.
func (b *Bus) Subscribe(eventType string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish notifies subscribers of the event type.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		// Handlers run synchronously; caller decides concurrency model.
		handler(event)
	}
}
