package eventbus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thurmanmarka/suntrack/internal/events"
)

type recorder struct {
	mu       sync.Mutex
	subjects []string
	messages []*Message
	closed   bool
}

func (r *recorder) Name() string { return "recorder" }

func (r *recorder) Publish(_ context.Context, subject string, data []byte) error {
	msg, err := Unmarshal(data)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subjects = append(r.subjects, subject)
	r.messages = append(r.messages, msg)
	return nil
}

func (r *recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.messages)
}

func TestMarshalRoundTrip(t *testing.T) {
	data, err := Marshal(events.EventStateChanged, events.Payload{"sensor": "sunrise", "state": true}, "node-1")
	require.NoError(t, err)

	msg, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, events.EventStateChanged, msg.EventType)
	assert.Equal(t, "node-1", msg.NodeID)
	assert.Equal(t, "sunrise", msg.Payload["sensor"])
	assert.Equal(t, true, msg.Payload["state"])
	assert.NotEmpty(t, msg.MessageID)

	_, err = Unmarshal([]byte("{"))
	assert.Error(t, err)
}

func TestForwarderPublishesToEveryPublisher(t *testing.T) {
	bus := events.NewBus()
	a, b := &recorder{}, &recorder{}
	f := NewForwarder(bus, "suntrack", "node-1", 0, zerolog.Nop(), a, b)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.Run(ctx) }()

	// Subscriptions are made inside Run; keep publishing until one lands.
	require.Eventually(t, func() bool {
		bus.Publish(events.EventStateChanged, events.Payload{"sensor": "above_horizon", "state": true})
		return a.count() > 0 && b.count() > 0
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("forwarder did not stop")
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	assert.Equal(t, "suntrack.sensor.state_changed", a.subjects[0])
	assert.Equal(t, "above_horizon", a.messages[0].Payload["sensor"])
	assert.True(t, a.closed)
}

func TestForwarderWithoutPublishers(t *testing.T) {
	f := NewForwarder(events.NewBus(), "suntrack", "", 0, zerolog.Nop())
	assert.NotEmpty(t, f.nodeID)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, f.Run(ctx), context.Canceled)
}

func TestForwarderKeepsEventsPublishedBeforeRun(t *testing.T) {
	const sensors = 120
	bus := events.NewBus()
	rec := &recorder{}
	f := NewForwarder(bus, "suntrack", "node-1", sensors, zerolog.Nop(), rec)

	// The startup burst: one state and one schedule per sensor, all before
	// the forwarder goroutine runs.
	for i := 0; i < sensors; i++ {
		bus.Publish(events.EventStateChanged, events.Payload{"sensor": i})
		bus.Publish(events.EventScheduled, events.Payload{"sensor": i})
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = f.Run(ctx) }()

	require.Eventually(t, func() bool {
		return rec.count() == 2*sensors
	}, 2*time.Second, 10*time.Millisecond)
}
