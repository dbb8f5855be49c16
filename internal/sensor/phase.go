package sensor

import (
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/thurmanmarka/suntrack/internal/curve"
	"github.com/thurmanmarka/suntrack/internal/oracle"
)

// Phase is a named state with its attributes.
type Phase struct {
	Name  string
	Attrs map[string]any
}

// Threshold is a phase boundary: the elevation -Depression, adjusted for the
// observer's horizon, and the phases entered when crossing it upward or
// downward.
type Threshold struct {
	Depression float64
	Rising     Phase
	Falling    Phase
}

// Elevation is where the boundary sits for this observer and direction.
func (t Threshold) Elevation(p oracle.Params, rising bool) float64 {
	dir := oracle.Setting
	if rising {
		dir = oracle.Rising
	}
	return p.DepressionElevation(t.Depression, dir)
}

// PhaseSet describes a family of phases over the elevation curve.
type PhaseSet struct {
	Key string
	// Thresholds in ascending elevation order.
	Thresholds []Threshold
	// Nadir is the phase below every threshold crossed so far while rising;
	// Zenith the one above every threshold crossed so far while falling.
	Nadir  Phase
	Zenith Phase
	// Tolerance for the crossing searches.
	Tolerance float64
	// ExtremumPhases makes Nadir and Zenith start at the extremum itself:
	// only thresholds crossed since the segment's left end count.
	ExtremumPhases bool
	Icon           func(p Phase, rising bool) string
}

// Options lists every phase name the set can report, sorted.
func (s PhaseSet) Options() []string {
	seen := map[string]bool{s.Nadir.Name: true, s.Zenith.Name: true}
	for _, t := range s.Thresholds {
		seen[t.Rising.Name] = true
		seen[t.Falling.Name] = true
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// phaseAt returns the phase in force at elevation elev on seg.
func (s PhaseSet) phaseAt(p oracle.Params, seg curve.Segment, elev float64) Phase {
	if seg.Rising {
		cur := s.Nadir
		for _, t := range s.Thresholds {
			e := t.Elevation(p, true)
			if e > elev {
				break
			}
			if s.ExtremumPhases && e <= seg.LeftElev {
				continue
			}
			cur = t.Rising
		}
		return cur
	}

	cur := s.Zenith
	for i := len(s.Thresholds) - 1; i >= 0; i-- {
		t := s.Thresholds[i]
		e := t.Elevation(p, false)
		if e <= elev {
			break
		}
		if s.ExtremumPhases && e >= seg.LeftElev {
			continue
		}
		cur = t.Falling
	}
	return cur
}

// Transition is one queued phase change. A nil Phase marks the end of the
// segment, where the queue is rebuilt.
type Transition struct {
	When  time.Time
	Phase *Phase
}

// PhaseSensor reports the current phase of a PhaseSet.
//
// Rather than tracking the curve step by step it computes, once per segment,
// every threshold crossing left before the segment ends and queues them in
// order, followed by a marker at the segment's end.
type PhaseSensor struct {
	name string
	set  PhaseSet
	o    oracle.Oracle
	log  zerolog.Logger

	queue   []Transition
	current Phase
	rising  bool
}

var _ Engine = (*PhaseSensor)(nil)

// NewPhase creates a phase sensor for set.
func NewPhase(name string, set PhaseSet, o oracle.Oracle, log zerolog.Logger) *PhaseSensor {
	return &PhaseSensor{name: name, set: set, o: o, log: log}
}

func (s *PhaseSensor) Name() string { return s.name }

// Options lists every phase the sensor can report.
func (s *PhaseSensor) Options() []string { return s.set.Options() }

// Pending returns a copy of the queued transitions.
func (s *PhaseSensor) Pending() []Transition {
	return append([]Transition(nil), s.queue...)
}

func (s *PhaseSensor) Advance(now time.Time) Update {
	if len(s.queue) == 0 {
		s.plan(now)
	}
	for len(s.queue) > 0 && !s.queue[0].When.After(now) {
		tr := s.queue[0]
		s.queue = s.queue[1:]
		if tr.Phase == nil {
			s.plan(now)
			continue
		}
		s.current = *tr.Phase
	}

	var next time.Time
	if len(s.queue) > 0 {
		next = s.queue[0].When
	}

	icon := ""
	if s.set.Icon != nil {
		icon = s.set.Icon(s.current, s.rising)
	}
	return Update{
		State:      s.current.Name,
		Icon:       icon,
		NextChange: next,
		Attrs:      attrs(next, s.current.Attrs),
	}
}

// plan rebuilds the queue for the segment holding now.
func (s *PhaseSensor) plan(now time.Time) {
	s.queue = s.queue[:0]

	seg, err := curve.Locate(s.o, now)
	if err != nil {
		s.log.Error().Err(err).Msg("could not locate elevation curve segment")
		s.queue = append(s.queue, Transition{When: now.Add(FallbackDelta)})
		return
	}

	p := s.o.Params()
	elev := s.o.Elevation(now)
	s.current = s.set.phaseAt(p, seg, elev)
	s.rising = seg.Rising

	s.log.Debug().
		Stringer("segment", seg).
		Float64("elevation", elev).
		Str("phase", s.current.Name).
		Msg("planning phase transitions")

	t0 := now
	add := func(t Threshold) {
		var ph Phase
		if seg.Rising {
			ph = t.Rising
		} else {
			ph = t.Falling
		}
		e := t.Elevation(p, seg.Rising)

		when, err := curve.FindCrossing(s.o, seg, t0, seg.Right, e, s.set.Tolerance)
		if err != nil {
			s.log.Warn().Err(err).Float64("elevation", e).Str("phase", ph.Name).Msg("skipping phase threshold")
			return
		}
		if when.Before(t0) {
			when = t0
		}
		s.queue = append(s.queue, Transition{When: when, Phase: &ph})
		t0 = when
	}

	if seg.Rising {
		for _, t := range s.set.Thresholds {
			if e := t.Elevation(p, true); elev < e && e < seg.RightElev {
				add(t)
			}
		}
	} else {
		for i := len(s.set.Thresholds) - 1; i >= 0; i-- {
			t := s.set.Thresholds[i]
			if e := t.Elevation(p, false); seg.RightElev < e && e <= elev {
				add(t)
			}
		}
	}

	s.queue = append(s.queue, Transition{When: seg.Right})
}

func (s *PhaseSensor) Invalidate(o oracle.Oracle) {
	if sameParams(s.o, o) {
		return
	}
	s.o = o
	s.queue = nil
}
