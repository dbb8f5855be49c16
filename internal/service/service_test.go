package service

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thurmanmarka/suntrack/internal/config"
	"github.com/thurmanmarka/suntrack/internal/events"
	"github.com/thurmanmarka/suntrack/internal/host"
	"github.com/thurmanmarka/suntrack/internal/oracle"
	"github.com/thurmanmarka/suntrack/internal/sensor"
)

const layout = `
locations:
  - name: nyc
    latitude: 40.7128
    longitude: -74.0060
    time_zone: America/New_York
    basic_sensors: false
    sensors:
      - kind: above
        elevation: horizon
        unique_id: above-horizon
      - kind: above
        elevation: 85
        unique_id: above-85
      - kind: sun_phase
        unique_id: phase
      - kind: sunrise
        unique_id: sunrise
`

func newService(t *testing.T, start time.Time) (*Service, *host.Manual) {
	t.Helper()
	f, err := config.Parse([]byte(layout))
	require.NoError(t, err)
	cfg := &config.Config{Locations: f.Locations}
	require.NoError(t, cfg.Validate())

	m := host.NewManual(start)
	s, err := New(cfg, m, nil, zerolog.Nop())
	require.NoError(t, err)
	return s, m
}

func drain(sub events.Subscriber) []events.Payload {
	var out []events.Payload
	for {
		select {
		case p := <-sub:
			out = append(out, p)
		default:
			return out
		}
	}
}

func TestServiceStartPublishes(t *testing.T) {
	start := time.Date(2024, time.December, 1, 0, 0, 0, 0, time.UTC)
	s, m := newService(t, start)
	changes := s.Bus().Subscribe(events.EventStateChanged)
	unreachable := s.Bus().Subscribe(events.EventUnreachable)

	assert.Empty(t, s.Sensors(), "nothing is reported before Start")
	s.Start()

	snaps := s.Sensors()
	require.Len(t, snaps, 4)
	assert.Len(t, drain(changes), 4)

	un := drain(unreachable)
	require.Len(t, un, 1)
	assert.Equal(t, "above-85", un[0]["sensor_id"])

	snap, ok := s.Sensor("above-horizon")
	require.True(t, ok)
	assert.Equal(t, false, snap.State)
	assert.Equal(t, "nyc", snap.Location)
	assert.Equal(t, sensor.KindAbove, snap.Kind)
	assert.Equal(t, "Above horizon", snap.Name)
	require.NotNil(t, snap.NextChange)

	high, _ := s.Sensor("above-85")
	assert.Nil(t, high.NextChange)
	assert.Empty(t, high.Options)

	phase, _ := s.Sensor("phase")
	assert.Equal(t, sensor.SunPhase().Options(), phase.Options)
	assert.Contains(t, phase.Options, phase.State)
	assert.Equal(t, 4, s.SensorCount())

	// Above-horizon, phase and daily timers; the unreachable one has none.
	assert.Equal(t, 3, m.Pending())

	m.AdvanceTo(*snap.NextChange)
	snap, _ = s.Sensor("above-horizon")
	assert.Equal(t, true, snap.State)

	_, ok = s.Sensor("missing")
	assert.False(t, ok)
}

func TestServiceSetLocation(t *testing.T) {
	start := time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)
	s, m := newService(t, start)
	moved := s.Bus().Subscribe(events.EventLocationChanged)
	s.Start()

	before, _ := s.Sensor("above-horizon")

	// Same parameters: schedules survive untouched.
	nyc := s.Locations()[0].Params
	require.NoError(t, s.SetLocation("nyc", nyc))
	same, _ := s.Sensor("above-horizon")
	assert.Equal(t, before.NextChange, same.NextChange)
	assert.Empty(t, drain(moved))

	london := oracle.Params{Latitude: 51.5074, Longitude: -0.1278, TimeZone: "Europe/London"}
	require.NoError(t, s.SetLocation("nyc", london))
	after, _ := s.Sensor("above-horizon")
	require.NotNil(t, after.NextChange)
	assert.NotEqual(t, *before.NextChange, *after.NextChange)
	assert.Equal(t, 3, m.Pending())
	assert.Len(t, drain(moved), 1)
	assert.Equal(t, london, s.Locations()[0].Params)

	o, ok := s.Oracle("nyc")
	require.True(t, ok)
	assert.Equal(t, london, o.Params())

	assert.Error(t, s.SetLocation("nowhere", london))
	assert.Error(t, s.SetLocation("nyc", oracle.Params{Latitude: 100}))
}

func TestServiceStop(t *testing.T) {
	s, m := newService(t, time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC))
	s.Start()
	require.NotZero(t, m.Pending())
	s.Stop()
	assert.Zero(t, m.Pending())
}
