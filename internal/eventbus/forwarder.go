// Package eventbus forwards in-process sensor events to external brokers.
package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/thurmanmarka/suntrack/internal/events"
)

// Publisher delivers an encoded event to a broker subject or channel.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, subject string, data []byte) error
	Close() error
}

// Message is the wire format of a forwarded event.
type Message struct {
	EventType events.EventType `json:"event_type"`
	Payload   events.Payload   `json:"payload"`
	Timestamp time.Time        `json:"timestamp"`
	NodeID    string           `json:"node_id"`
	MessageID string           `json:"message_id"`
}

// Marshal encodes an event for the wire.
func Marshal(eventType events.EventType, payload events.Payload, nodeID string) ([]byte, error) {
	return json.Marshal(Message{
		EventType: eventType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
		NodeID:    nodeID,
		MessageID: uuid.NewString(),
	})
}

// Unmarshal decodes a forwarded event.
func Unmarshal(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("unmarshal event: %w", err)
	}
	return &msg, nil
}

// ForwardedTypes are the event types a Forwarder subscribes to.
var ForwardedTypes = []events.EventType{
	events.EventStateChanged,
	events.EventScheduled,
	events.EventUnreachable,
	events.EventLocationChanged,
}

// Forwarder copies bus events to every publisher as JSON. The subject is
// "<prefix>.<event type>".
type Forwarder struct {
	bus    *events.Bus
	pubs   []Publisher
	prefix string
	nodeID string
	logger zerolog.Logger
	subs   map[events.EventType]events.Subscriber

	publishTimeout time.Duration
}

// NewForwarder creates a forwarder and subscribes to the bus right away, so
// events published before Run starts are kept. backlog is the per event type
// buffer and should cover one event per sensor. nodeID tags every message;
// empty means a fresh UUID.
func NewForwarder(bus *events.Bus, prefix, nodeID string, backlog int, logger zerolog.Logger, pubs ...Publisher) *Forwarder {
	if nodeID == "" {
		nodeID = uuid.NewString()
	}
	f := &Forwarder{
		bus:            bus,
		pubs:           pubs,
		prefix:         prefix,
		nodeID:         nodeID,
		logger:         logger,
		subs:           make(map[events.EventType]events.Subscriber),
		publishTimeout: 3 * time.Second,
	}
	if len(pubs) > 0 {
		for _, et := range ForwardedTypes {
			f.subs[et] = bus.SubscribeBuffered(et, backlog)
		}
	}
	return f
}

// Run forwards events until ctx is done, then unsubscribes and closes every
// publisher.
func (f *Forwarder) Run(ctx context.Context) error {
	if len(f.pubs) == 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	var wg sync.WaitGroup
	for _, et := range ForwardedTypes {
		sub := f.subs[et]
		wg.Add(1)
		go func(et events.EventType, sub events.Subscriber) {
			defer wg.Done()
			defer f.bus.Unsubscribe(et, sub)
			for {
				select {
				case <-ctx.Done():
					return
				case payload, ok := <-sub:
					if !ok {
						return
					}
					f.forward(ctx, et, payload)
				}
			}
		}(et, sub)
	}
	wg.Wait()

	for _, p := range f.pubs {
		if err := p.Close(); err != nil {
			f.logger.Warn().Err(err).Str("publisher", p.Name()).Msg("close publisher")
		}
	}
	return ctx.Err()
}

func (f *Forwarder) forward(ctx context.Context, et events.EventType, payload events.Payload) {
	data, err := Marshal(et, payload, f.nodeID)
	if err != nil {
		f.logger.Error().Err(err).Str("event_type", string(et)).Msg("encode event")
		return
	}
	subject := f.prefix + "." + string(et)
	for _, p := range f.pubs {
		pctx, cancel := context.WithTimeout(ctx, f.publishTimeout)
		if err := p.Publish(pctx, subject, data); err != nil {
			f.logger.Warn().Err(err).Str("publisher", p.Name()).Str("subject", subject).Msg("publish event")
		}
		cancel()
	}
}
