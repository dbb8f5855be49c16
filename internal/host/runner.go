package host

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/thurmanmarka/suntrack/internal/oracle"
	"github.com/thurmanmarka/suntrack/internal/sensor"
	"github.com/thurmanmarka/suntrack/internal/telemetry"
)

// UpdateFunc receives every update an engine produces, in order. changed
// reports whether the state differs from the previous update.
type UpdateFunc func(name string, u sensor.Update, changed bool)

// Runner drives one engine. It keeps at most one timer armed for it: every
// arm cancels the previous handle first.
//
// Start, SetOracle and Stop must be called from the goroutine the Timer runs
// callbacks on. Last may be called from anywhere.
type Runner struct {
	engine   sensor.Engine
	o        oracle.Oracle
	timer    Timer
	log      zerolog.Logger
	onUpdate UpdateFunc

	cancel func()

	mu      sync.RWMutex
	last    sensor.Update
	started bool
}

// NewRunner creates a runner for e, currently built on o.
func NewRunner(e sensor.Engine, o oracle.Oracle, t Timer, log zerolog.Logger, onUpdate UpdateFunc) *Runner {
	return &Runner{
		engine:   e,
		o:        o,
		timer:    t,
		log:      log.With().Str("sensor", e.Name()).Logger(),
		onUpdate: onUpdate,
	}
}

// Name is the engine's name.
func (r *Runner) Name() string { return r.engine.Name() }

// Start runs the initial computation and arms the first timer.
func (r *Runner) Start(now time.Time) {
	r.step(now)
}

// SetOracle switches the engine to o and recomputes from now. Parameters
// equal to the current ones change nothing, not even the armed timer.
func (r *Runner) SetOracle(o oracle.Oracle, now time.Time) {
	if r.o != nil && o != nil && r.o.Params() == o.Params() {
		r.log.Debug().Msg("location unchanged, keeping schedule")
		return
	}
	r.disarm()
	r.o = o
	r.engine.Invalidate(o)
	r.step(now)
}

// Stop cancels the pending timer.
func (r *Runner) Stop() {
	r.disarm()
	telemetry.NextChangeSeconds.DeleteLabelValues(r.engine.Name())
}

// Armed reports whether a timer is pending.
func (r *Runner) Armed() bool {
	return r.cancel != nil
}

// Last returns the most recent update.
func (r *Runner) Last() (sensor.Update, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.last, r.started
}

func (r *Runner) fire(at time.Time) {
	r.cancel = nil
	telemetry.TimerFires.WithLabelValues(r.engine.Name()).Inc()

	// A late wake-up computes for the real time; an early one for the
	// instant that was asked for.
	now := r.timer.Now()
	if now.Before(at) {
		now = at
	}
	if lag := now.Sub(at); lag > time.Second {
		r.log.Debug().Dur("lag", lag).Msg("timer fired late")
	}
	r.step(now)
}

func (r *Runner) step(now time.Time) {
	u := r.engine.Advance(now)

	r.mu.Lock()
	changed := !r.started || r.last.State != u.State
	r.last, r.started = u, true
	r.mu.Unlock()

	if changed {
		telemetry.StateChanges.WithLabelValues(r.engine.Name()).Inc()
	}
	if r.onUpdate != nil {
		r.onUpdate(r.engine.Name(), u, changed)
	}
	r.arm(now, u)
}

func (r *Runner) arm(now time.Time, u sensor.Update) {
	r.disarm()
	name := r.engine.Name()
	if !u.Scheduled() {
		r.log.Debug().Msg("no further changes scheduled")
		telemetry.NextChangeSeconds.DeleteLabelValues(name)
		return
	}
	at := u.NextChange
	telemetry.NextChangeSeconds.WithLabelValues(name).Set(at.Sub(now).Seconds())
	r.cancel = r.timer.ScheduleOnce(at, func() { r.fire(at) })
}

func (r *Runner) disarm() {
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
}
