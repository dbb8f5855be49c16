package sensor

import (
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/thurmanmarka/suntrack/internal/curve"
	"github.com/thurmanmarka/suntrack/internal/oracle"
	"github.com/thurmanmarka/suntrack/internal/timeutil"
)

// ElevationStep is the quantum the elevation sensor schedules itself on.
const ElevationStep = 0.5

// Elevation reports the sun's elevation to a tenth of a degree, waking up
// roughly every ElevationStep degrees.
//
// Each wake extrapolates the curve through the previous wake and now to find
// when the elevation reaches the next step. The first wake of a segment has
// no previous point and falls back to FallbackDelta.
type Elevation struct {
	name string
	o    oracle.Oracle
	log  zerolog.Logger

	seg     curve.Segment
	haveSeg bool
	prev    time.Time
}

var _ Engine = (*Elevation)(nil)

// NewElevation creates an elevation tracker.
func NewElevation(name string, o oracle.Oracle, log zerolog.Logger) *Elevation {
	return &Elevation{name: name, o: o, log: log}
}

func (e *Elevation) Name() string { return e.name }

func (e *Elevation) Advance(now time.Time) Update {
	now = timeutil.NearestSecond(now)
	elev := e.o.Elevation(now)
	rnd := roundTo(elev, 1)

	if !e.haveSeg || !now.Before(e.seg.Right) {
		e.prev = time.Time{}
		seg, err := curve.Locate(e.o, now)
		if err != nil {
			e.haveSeg = false
			e.log.Error().Err(err).Msg("could not locate elevation curve segment")
			next := now.Add(FallbackDelta)
			return Update{State: rnd, Icon: IconSunny, NextChange: next, Attrs: attrs(next, nil)}
		}
		e.seg, e.haveSeg = seg, true
		e.log.Debug().Stringer("segment", seg).Float64("elevation", elev).Msg("new curve segment")
	}

	var next time.Time
	if !e.prev.IsZero() {
		target := nextStep(rnd, e.seg.Rising)
		t, err := curve.FindCrossing(e.o, e.seg, e.prev, now, target, curve.TolElevation)
		switch {
		case err != nil:
			e.log.Debug().Err(err).Float64("target", target).Msg("step crossing not found")
		case !t.After(now):
			e.log.Debug().Time("estimate", t).Float64("target", target).Msg("step crossing not in the future")
		default:
			next = t
		}
	}
	if next.IsZero() {
		if !now.Before(e.seg.Right.Add(-FallbackDelta)) {
			next = e.seg.Right
		} else {
			next = now.Add(FallbackDelta)
		}
	}
	e.prev = now

	return Update{
		State:      rnd,
		Icon:       elevationIcon(elev, e.seg.Rising),
		NextChange: next,
		Attrs:      attrs(next, nil),
	}
}

func (e *Elevation) Invalidate(o oracle.Oracle) {
	if sameParams(e.o, o) {
		return
	}
	e.o = o
	e.haveSeg = false
	e.seg = curve.Segment{}
	e.prev = time.Time{}
}

// nextStep is the next ElevationStep multiple along the curve from the
// rounded elevation. Steps across the sunrise/sunset elevation stop just past
// it instead, so the icon flips on time.
func nextStep(rnd float64, rising bool) float64 {
	const (
		sunset = oracle.SunsetElevation
		tol    = curve.TolElevation
	)
	if rising {
		elev := math.Floor((rnd+ElevationStep)/ElevationStep) * ElevationStep
		if rnd < sunset && elev > sunset+tol {
			elev = sunset + tol
		}
		return elev
	}
	elev := math.Ceil((rnd-ElevationStep)/ElevationStep) * ElevationStep
	if rnd > sunset && elev < sunset-tol {
		elev = sunset - tol
	}
	return elev
}

func elevationIcon(elev float64, rising bool) string {
	if rising {
		switch {
		case elev < -oracle.AstronomicalDepression:
			return IconNight
		case elev < oracle.SunsetElevation:
			return IconSunsetUp
		default:
			return IconSunny
		}
	}
	switch {
	case elev > oracle.SunsetElevation:
		return IconSunny
	case elev > -oracle.AstronomicalDepression:
		return IconSunsetDown
	default:
		return IconNight
	}
}
