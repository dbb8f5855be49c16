package solver

import (
	"errors"
	"math"
	"time"
)

var (
	// ErrZeroSlope means the two points of the secant have equal elevation.
	ErrZeroSlope = errors.New("solver: zero slope")
	// ErrOutOfRange means an estimate left the allowed window.
	ErrOutOfRange = errors.New("solver: estimate outside window")
	// ErrNoConvergence means the iteration stalled or ran out of steps.
	ErrNoConvergence = errors.New("solver: no convergence")
)

// MaxSecantIterations caps Secant.
const MaxSecantIterations = 64

// Window bounds the instants an iteration may visit: [Lo, Hi].
type Window struct {
	Lo, Hi time.Time
}

func (w Window) contains(t time.Time) bool {
	return !t.Before(w.Lo) && !t.After(w.Hi)
}

// SecantStats reports how a Secant call went.
type SecantStats struct {
	Iterations  int
	Evaluations int
}

// Secant finds an instant where f is within tol of target, starting from the
// two points t0 and t1 and staying inside w. Estimates are taken to the
// nearest second.
//
// The bracket is narrowed toward the target after each estimate, or shifted
// forward when an estimate lands past t1. An estimate equal to one of its own
// endpoints means the iteration can not make progress at one second
// resolution; it is accepted if within 2*tol and rejected otherwise.
func Secant(f ElevationFunc, w Window, t0, t1 time.Time, target, tol float64) (time.Time, SecantStats, error) {
	var st SecantStats

	e0 := f(t0)
	e1 := f(t1)
	st.Evaluations += 2

	for st.Iterations < MaxSecantIterations {
		st.Iterations++

		if e1 == e0 {
			return time.Time{}, st, ErrZeroSlope
		}

		frac := (target - e0) / (e1 - e0)
		est := t0.Add(time.Duration(float64(t1.Sub(t0)) * frac)).Round(time.Second)
		if !w.contains(est) {
			return time.Time{}, st, ErrOutOfRange
		}

		ee := f(est)
		st.Evaluations++

		if math.Abs(ee-target) < tol {
			return est, st, nil
		}
		if est.Equal(t0) || est.Equal(t1) {
			if math.Abs(ee-target) < 2*tol {
				return est, st, nil
			}
			return time.Time{}, st, ErrNoConvergence
		}

		switch {
		case est.After(t1):
			t0, e0 = t1, e1
			t1, e1 = est, ee
		case between(target, e0, ee):
			t1, e1 = est, ee
		default:
			t0, e0 = est, ee
		}
	}

	return time.Time{}, st, ErrNoConvergence
}

func between(x, a, b float64) bool {
	return (a < x && x < b) || (a > x && x > b)
}
