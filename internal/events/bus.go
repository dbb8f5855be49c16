// Package events is an in-process publish/subscribe bus for sensor updates.
package events

import (
	"sync"

	"github.com/thurmanmarka/suntrack/internal/telemetry"
)

// EventType enumerates event categories.
type EventType string

const (
	// EventStateChanged fires when a sensor publishes a new state.
	EventStateChanged EventType = "sensor.state_changed"
	// EventScheduled fires whenever a sensor arms its next wake-up.
	EventScheduled EventType = "sensor.scheduled"
	// EventUnreachable fires once when a threshold can not be reached.
	EventUnreachable EventType = "sensor.unreachable"
	// EventLocationChanged fires after a location's parameters change.
	EventLocationChanged EventType = "location.changed"
)

// Payload generic event payload.
type Payload map[string]any

// Subscriber receives event payloads.
type Subscriber chan Payload

// DefaultBuffer is the channel capacity Subscribe uses.
const DefaultBuffer = 32

// Bus implements a simple in-process pubsub. Slow subscribers miss events
// rather than block the publisher; misses are counted in
// suntrack_events_dropped_total.
type Bus struct {
	mu   sync.RWMutex
	subs map[EventType][]Subscriber
}

// NewBus creates an event bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[EventType][]Subscriber)}
}

// Subscribe registers a subscriber for event type.
func (b *Bus) Subscribe(eventType EventType) Subscriber {
	return b.SubscribeBuffered(eventType, DefaultBuffer)
}

// SubscribeBuffered registers a subscriber whose channel holds size events.
func (b *Bus) SubscribeBuffered(eventType EventType, size int) Subscriber {
	if size < DefaultBuffer {
		size = DefaultBuffer
	}
	ch := make(Subscriber, size)
	b.mu.Lock()
	b.subs[eventType] = append(b.subs[eventType], ch)
	b.mu.Unlock()
	return ch
}

// Publish sends payload to subscribers.
func (b *Bus) Publish(eventType EventType, payload Payload) {
	// The read lock is held while sending so Unsubscribe can not close a
	// channel underneath us.
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs[eventType] {
		select {
		case sub <- payload:
		default:
			telemetry.EventsDropped.WithLabelValues(string(eventType)).Inc()
		}
	}
}

// Unsubscribe removes the subscriber and closes it.
func (b *Bus) Unsubscribe(eventType EventType, sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subs[eventType]
	for i, candidate := range subs {
		if candidate == sub {
			subs = append(subs[:i], subs[i+1:]...)
			close(sub)
			break
		}
	}
	b.subs[eventType] = subs
}
