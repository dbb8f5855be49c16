package events

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thurmanmarka/suntrack/internal/telemetry"
)

func TestBusDelivers(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(EventStateChanged)
	other := bus.Subscribe(EventScheduled)

	bus.Publish(EventStateChanged, Payload{"sensor": "sun_phase", "state": "day"})

	select {
	case p := <-sub:
		assert.Equal(t, "day", p["state"])
	default:
		t.Fatal("payload not delivered")
	}
	assert.Len(t, other, 0)
}

func TestBusDropsWhenFull(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(EventStateChanged)

	dropped := telemetry.EventsDropped.WithLabelValues(string(EventStateChanged))
	before := testutil.ToFloat64(dropped)

	for i := 0; i < cap(sub)+10; i++ {
		bus.Publish(EventStateChanged, Payload{"i": i})
	}
	assert.Len(t, sub, cap(sub))
	assert.Equal(t, before+10, testutil.ToFloat64(dropped))
}

func TestSubscribeBufferedHoldsBurst(t *testing.T) {
	bus := NewBus()
	assert.Equal(t, DefaultBuffer, cap(bus.SubscribeBuffered(EventScheduled, 1)))

	sub := bus.SubscribeBuffered(EventScheduled, 200)
	for i := 0; i < 200; i++ {
		bus.Publish(EventScheduled, Payload{"i": i})
	}
	require.Len(t, sub, 200)
	assert.Equal(t, 0, (<-sub)["i"])
}

func TestUnsubscribeCloses(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(EventUnreachable)
	bus.Unsubscribe(EventUnreachable, sub)

	_, ok := <-sub
	require.False(t, ok)

	// Publishing afterwards must not panic on the closed channel.
	bus.Publish(EventUnreachable, Payload{})
}
