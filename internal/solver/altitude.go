// Package solver holds the numeric building blocks used to locate instants on
// the solar elevation curve: a sampled bracket-then-bisect search, a secant
// iteration for smooth brackets, and a strict-side bisection for thresholds.
package solver

import (
	"time"
)

// ElevationFunc returns the sun's elevation in degrees at time t.
type ElevationFunc func(t time.Time) float64

// Crossing describes whether we are looking for a rising or setting event.
type Crossing int

const (
	// CrossingUp means elevation is increasing through the target value.
	CrossingUp Crossing = iota
	// CrossingDown means elevation is decreasing through the target value.
	CrossingDown
)

// Result holds the output of an elevation event search.
type Result struct {
	Time time.Time // event time, whole seconds
	OK   bool      // true if an event was found
}

// FindAltitudeEvent searches [start, end] for an instant where f crosses
// targetDeg in the given direction. The window is sampled at `steps` points to
// find the first bracket holding a sign change, which is then bisected down to
// tol. Used by the oracle for crossings where no curve segment is known yet.
func FindAltitudeEvent(f ElevationFunc, start, end time.Time, targetDeg float64, dir Crossing, steps int, tol time.Duration) Result {
	if !start.Before(end) {
		return Result{OK: false}
	}
	if steps < 2 {
		steps = 2
	}

	interval := end.Sub(start) / time.Duration(steps-1)

	var (
		prevT   = start
		prevAlt = f(prevT) - targetDeg
	)

	for i := 1; i < steps; i++ {
		t := start.Add(time.Duration(i) * interval)
		if i == steps-1 {
			t = end
		}
		alt := f(t) - targetDeg

		if hasCrossing(prevAlt, alt, dir) {
			return bisect(f, prevT, t, targetDeg, dir, tol)
		}

		prevT, prevAlt = t, alt
	}

	return Result{OK: false}
}

func hasCrossing(a1, a2 float64, dir Crossing) bool {
	switch dir {
	case CrossingUp:
		return a1 < 0 && a2 >= 0
	case CrossingDown:
		return a1 > 0 && a2 <= 0
	default:
		return a1*a2 <= 0
	}
}

func bisect(f ElevationFunc, a, b time.Time, targetDeg float64, dir Crossing, tol time.Duration) Result {
	altA := f(a) - targetDeg
	altB := f(b) - targetDeg

	if !hasCrossing(altA, altB, dir) {
		return Result{OK: false}
	}

	for b.Sub(a) > tol {
		mid := a.Add(b.Sub(a) / 2)
		altM := f(mid) - targetDeg

		if hasCrossing(altA, altM, dir) {
			b = mid
		} else {
			a = mid
			altA = altM
		}
	}

	// b is the first instant on the far side; whole seconds only.
	return Result{
		Time: b.Round(time.Second),
		OK:   true,
	}
}
