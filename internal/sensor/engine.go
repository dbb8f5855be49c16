// Package sensor holds the tracking engines that turn the solar elevation
// curve into sensor states and next-update instants.
//
// An engine is driven from outside: the host calls Advance with the current
// time, publishes the returned Update, and arms one timer for NextChange.
// Engines never start timers themselves.
package sensor

import (
	"math"
	"time"

	"github.com/thurmanmarka/suntrack/internal/oracle"
)

// FallbackDelta is how far ahead an engine schedules itself when it can not
// work out a better instant.
const FallbackDelta = 5 * time.Minute

// Attribute keys shared by every engine.
const (
	AttrNextChange = "next_change"
	AttrYesterday  = "yesterday"
	AttrToday      = "today"
	AttrTomorrow   = "tomorrow"
)

// Icons, in Material Design Icons notation.
const (
	IconNight      = "mdi:weather-night"
	IconSunny      = "mdi:weather-sunny"
	IconSunsetUp   = "mdi:weather-sunset-up"
	IconSunsetDown = "mdi:weather-sunset-down"
	IconSunAngle   = "mdi:sun-angle"
)

// Update is the result of one engine step.
type Update struct {
	State any
	Icon  string
	// NextChange is when the engine wants to run again. The zero time means
	// never, until invalidated.
	NextChange time.Time
	Attrs      map[string]any
}

// Scheduled reports whether the update asks for another run.
func (u Update) Scheduled() bool {
	return !u.NextChange.IsZero()
}

// Engine is one sensor's tracking state machine.
type Engine interface {
	Name() string
	// Advance computes the state at now and the next instant the state must
	// be recomputed. The first call is the initial computation.
	Advance(now time.Time) Update
	// Invalidate switches the engine to a new oracle and drops every cached
	// segment, tracking point and queued transition. Passing an oracle with
	// the same Params is a no-op.
	Invalidate(o oracle.Oracle)
}

// sameParams reports whether switching from a to b changes nothing.
func sameParams(a, b oracle.Oracle) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Params() == b.Params()
}

func attrs(next time.Time, kv map[string]any) map[string]any {
	out := make(map[string]any, len(kv)+1)
	for k, v := range kv {
		out[k] = v
	}
	if next.IsZero() {
		out[AttrNextChange] = nil
	} else {
		out[AttrNextChange] = next
	}
	return out
}

func roundTo(x float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(x*p) / p
}
