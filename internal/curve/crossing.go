package curve

import (
	"errors"
	"fmt"
	"time"

	"github.com/thurmanmarka/suntrack/internal/oracle"
	"github.com/thurmanmarka/suntrack/internal/solver"
	"github.com/thurmanmarka/suntrack/internal/telemetry"
)

// Tolerances, in degrees, for the different consumers of the root finders.
const (
	TolElevation = 0.02
	TolPhase     = 0.005
	TolBinary    = 0.001
)

var (
	// ErrRootNotFound means the secant iteration could not place the target
	// inside the segment.
	ErrRootNotFound = errors.New("curve: crossing not found in segment")
	// ErrUnreachable means the sun does not reach a threshold within a year.
	ErrUnreachable = errors.New("curve: threshold not reached within a year")
)

// FindCrossing returns the instant in seg where the elevation is within tol of
// target, iterating from the points t0 and t1.
func FindCrossing(o oracle.Oracle, seg Segment, t0, t1 time.Time, target, tol float64) (time.Time, error) {
	if !seg.Reaches(target) {
		telemetry.RootFindFailures.WithLabelValues("out_of_range").Inc()
		return time.Time{}, fmt.Errorf("%w: %.3f outside [%.3f, %.3f]", ErrRootNotFound, target, seg.Min(), seg.Max())
	}

	w := solver.Window{Lo: seg.Left, Hi: seg.Right}
	t, st, err := solver.Secant(o.Elevation, w, t0, t1, target, tol)
	telemetry.RootFindIterations.Observe(float64(st.Iterations))
	if err != nil {
		telemetry.RootFindFailures.WithLabelValues(failureReason(err)).Inc()
		return time.Time{}, fmt.Errorf("%w: %.3f after %d iterations: %v", ErrRootNotFound, target, st.Iterations, err)
	}
	return t, nil
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, solver.ErrZeroSlope):
		return "zero_slope"
	case errors.Is(err, solver.ErrOutOfRange):
		return "out_of_range"
	default:
		return "no_convergence"
	}
}

// LookAhead is how far NextChange searches for a threshold crossing.
const LookAhead = 366 * 24 * time.Hour

// NextChange returns the first instant after now at which the elevation
// passes threshold: rising above it when above is true, dropping to or below
// it otherwise. The returned instant is on the new side of the threshold, to
// the second.
//
// Segments are walked forward from the one holding now until one spans the
// threshold in the wanted direction, for up to LookAhead.
func NextChange(o oracle.Oracle, now time.Time, threshold float64, above bool) (time.Time, error) {
	seg, err := Locate(o, now)
	if err != nil {
		return time.Time{}, err
	}

	t0, e0 := now, o.Elevation(now)
	limit := now.Add(LookAhead)

	for t0.Before(limit) {
		t1, e1 := seg.Right, seg.RightElev

		if (above && e0 <= threshold && threshold < e1) ||
			(!above && e1 <= threshold && threshold <= e0) {
			t, err := solver.BisectThreshold(o.Elevation, t0, t1, threshold, TolBinary, above)
			if err != nil {
				telemetry.RootFindFailures.WithLabelValues("bisect").Inc()
				return time.Time{}, fmt.Errorf("%w: threshold %.3f: %v", ErrRootNotFound, threshold, err)
			}
			return t, nil
		}

		if seg, err = Next(o, seg); err != nil {
			return time.Time{}, err
		}
		t0, e0 = t1, e1
	}

	return time.Time{}, fmt.Errorf("%w: %.3f", ErrUnreachable, threshold)
}
