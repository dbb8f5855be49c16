// Package service wires configured locations to oracles, engines and
// runners, and publishes every update on the event bus.
package service

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/thurmanmarka/suntrack/internal/config"
	"github.com/thurmanmarka/suntrack/internal/events"
	"github.com/thurmanmarka/suntrack/internal/host"
	"github.com/thurmanmarka/suntrack/internal/oracle"
	"github.com/thurmanmarka/suntrack/internal/sensor"
	"github.com/thurmanmarka/suntrack/internal/sun"
)

// Snapshot is the last published state of one sensor.
type Snapshot struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Location   string         `json:"location"`
	Kind       sensor.Kind    `json:"kind"`
	State      any            `json:"state"`
	Icon       string         `json:"icon,omitempty"`
	NextChange *time.Time     `json:"next_change"`
	Attributes map[string]any `json:"attributes,omitempty"`
	// Options lists every state a phase sensor can report.
	Options []string `json:"options,omitempty"`
}

// Location is a location's current parameters.
type Location struct {
	Name   string        `json:"name"`
	Params oracle.Params `json:"params"`
}

// poster is implemented by timers with their own callback goroutine.
type poster interface {
	Post(fn func()) bool
}

// Service owns every runner.
type Service struct {
	timer  host.Timer
	bus    *events.Bus
	logger zerolog.Logger

	mu        sync.RWMutex
	locations map[string]*location
	names     []string
	sensors   []*tracked
	byID      map[string]*tracked
}

type location struct {
	params  oracle.Params
	oracle  *sun.Oracle
	sensors []*tracked
}

type tracked struct {
	entry   config.Entry
	name    string
	options []string
	runner  *host.Runner
}

// New builds an oracle per location and an engine and runner per sensor.
// Nothing is computed until Start.
func New(cfg *config.Config, timer host.Timer, bus *events.Bus, logger zerolog.Logger) (*Service, error) {
	if bus == nil {
		bus = events.NewBus()
	}
	s := &Service{
		timer:     timer,
		bus:       bus,
		logger:    logger,
		locations: make(map[string]*location),
		byID:      make(map[string]*tracked),
	}

	for _, l := range cfg.Locations {
		o, err := sun.New(l.Params)
		if err != nil {
			return nil, fmt.Errorf("location %q: %w", l.Name, err)
		}
		entries, err := l.Entries()
		if err != nil {
			return nil, fmt.Errorf("location %q: %w", l.Name, err)
		}

		loc := &location{params: l.Params, oracle: o}
		llog := logger.With().Str("location", l.Name).Logger()
		for _, e := range entries {
			eng, err := sensor.New(e.Spec, o, llog)
			if err != nil {
				return nil, fmt.Errorf("location %q: %w", l.Name, err)
			}
			t := &tracked{entry: e, name: eng.Name()}
			if ps, ok := eng.(*sensor.PhaseSensor); ok {
				t.options = ps.Options()
			}
			t.runner = host.NewRunner(eng, o, timer, llog, s.publisher(t))
			loc.sensors = append(loc.sensors, t)
			s.sensors = append(s.sensors, t)
			s.byID[e.ID] = t
		}
		s.locations[l.Name] = loc
		s.names = append(s.names, l.Name)
	}

	logger.Info().Int("locations", len(s.locations)).Int("sensors", len(s.sensors)).Msg("sensors configured")
	return s, nil
}

// SensorCount is the number of configured sensors.
func (s *Service) SensorCount() int { return len(s.sensors) }

// Bus is the event bus updates are published on.
func (s *Service) Bus() *events.Bus { return s.bus }

// Start computes every sensor and arms its timer.
func (s *Service) Start() {
	s.do(func() {
		now := s.timer.Now()
		for _, t := range s.sensors {
			t.runner.Start(now)
		}
	})
}

// Stop cancels every pending timer.
func (s *Service) Stop() {
	s.do(func() {
		for _, t := range s.sensors {
			t.runner.Stop()
		}
	})
}

// SetLocation changes a location's parameters and recomputes its sensors.
// Unchanged parameters leave every schedule alone.
func (s *Service) SetLocation(name string, p oracle.Params) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.mu.RLock()
	loc, ok := s.locations[name]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("unknown location %q", name)
	}

	o, err := sun.New(p)
	if err != nil {
		return err
	}

	var changed bool
	s.do(func() {
		s.mu.Lock()
		changed = loc.params != p
		loc.params, loc.oracle = p, o
		s.mu.Unlock()

		now := s.timer.Now()
		for _, t := range loc.sensors {
			t.runner.SetOracle(o, now)
		}
	})

	if changed {
		s.logger.Info().Str("location", name).Float64("latitude", p.Latitude).Float64("longitude", p.Longitude).Msg("location changed")
		s.bus.Publish(events.EventLocationChanged, events.Payload{
			"location":  name,
			"latitude":  p.Latitude,
			"longitude": p.Longitude,
			"time_zone": p.TimeZone,
		})
	}
	return nil
}

// Locations lists every location in configuration order.
func (s *Service) Locations() []Location {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Location, 0, len(s.names))
	for _, n := range s.names {
		out = append(out, Location{Name: n, Params: s.locations[n].params})
	}
	return out
}

// Oracle returns the oracle currently used for a location.
func (s *Service) Oracle(name string) (oracle.Oracle, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	loc, ok := s.locations[name]
	if !ok {
		return nil, false
	}
	return loc.oracle, true
}

// Sensors returns a snapshot of every started sensor, ordered by location
// and name.
func (s *Service) Sensors() []Snapshot {
	out := make([]Snapshot, 0, len(s.sensors))
	for _, t := range s.sensors {
		if snap, ok := t.snapshot(); ok {
			out = append(out, snap)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Location != out[j].Location {
			return out[i].Location < out[j].Location
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Sensor returns one sensor's snapshot by ID.
func (s *Service) Sensor(id string) (Snapshot, bool) {
	t, ok := s.byID[id]
	if !ok {
		return Snapshot{}, false
	}
	return t.snapshot()
}

func (t *tracked) snapshot() (Snapshot, bool) {
	u, ok := t.runner.Last()
	if !ok {
		return Snapshot{}, false
	}
	return t.toSnapshot(u), true
}

func (t *tracked) toSnapshot(u sensor.Update) Snapshot {
	snap := Snapshot{
		ID:         t.entry.ID,
		Name:       t.name,
		Location:   t.entry.Location,
		Kind:       t.entry.Spec.Kind,
		State:      u.State,
		Icon:       u.Icon,
		Attributes: u.Attrs,
		Options:    t.options,
	}
	if u.Scheduled() {
		next := u.NextChange
		snap.NextChange = &next
	}
	return snap
}

func (s *Service) publisher(t *tracked) host.UpdateFunc {
	return func(name string, u sensor.Update, changed bool) {
		base := events.Payload{
			"sensor_id": t.entry.ID,
			"sensor":    name,
			"location":  t.entry.Location,
		}
		with := func(kv events.Payload) events.Payload {
			out := make(events.Payload, len(base)+len(kv))
			for k, v := range base {
				out[k] = v
			}
			for k, v := range kv {
				out[k] = v
			}
			return out
		}

		if changed {
			s.bus.Publish(events.EventStateChanged, with(events.Payload{
				"state":      u.State,
				"icon":       u.Icon,
				"attributes": u.Attrs,
			}))
		}
		if u.Scheduled() {
			s.bus.Publish(events.EventScheduled, with(events.Payload{"next_change": u.NextChange}))
		} else if t.entry.Spec.Kind == sensor.KindAbove {
			s.bus.Publish(events.EventUnreachable, with(events.Payload{"threshold": t.entry.Spec.Threshold}))
		}
	}
}

// do runs fn on the timer's callback goroutine when it has one, and waits.
func (s *Service) do(fn func()) {
	if p, ok := s.timer.(poster); ok {
		done := make(chan struct{})
		if p.Post(func() { defer close(done); fn() }) {
			<-done
			return
		}
		s.logger.Warn().Msg("event loop stopped, running inline")
	}
	fn()
}
