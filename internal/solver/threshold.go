package solver

import (
	"errors"
	"math"
	"time"
)

// ErrWrongSide means the final one second nudge still left the result on the
// current side of the threshold.
var ErrWrongSide = errors.New("solver: could not reach far side of threshold")

// BisectThreshold finds, to the second, the instant in [t0, t1] where f
// passes threshold, given f(t0) and f(t1) lie on opposite sides.
//
// When above is true the caller is below the threshold and the result must
// satisfy f > threshold; otherwise it must satisfy f <= threshold. The search
// stops once the midpoint is on the required side and within tol of the
// threshold, or when the bracket can no longer shrink. A result on the wrong
// side is moved one second along the curve, and rejected if that is still not
// enough.
func BisectThreshold(f ElevationFunc, t0, t1 time.Time, threshold, tol float64, above bool) (time.Time, error) {
	e0 := f(t0)
	e1 := f(t1)

	slope := time.Duration(-1)
	if e1 > e0 {
		slope = 1
	}

	onSide := func(e float64) bool {
		if above {
			return e > threshold
		}
		return e <= threshold
	}

	tn := midpoint(t0, t1)
	en := f(tn)

	for !(onSide(en) && math.Abs(en-threshold) <= tol) {
		if (en-threshold)*float64(slope) > 0 {
			if t1.Equal(tn) {
				break
			}
			t1 = tn
		} else {
			if t0.Equal(tn) {
				break
			}
			t0 = tn
		}
		tn = midpoint(t0, t1)
		en = f(tn)
	}

	if !onSide(en) {
		if above {
			tn = tn.Add(slope * time.Second)
		} else {
			tn = tn.Add(-slope * time.Second)
		}
		if !onSide(f(tn)) {
			return time.Time{}, ErrWrongSide
		}
	}

	return tn, nil
}

func midpoint(a, b time.Time) time.Time {
	return a.Add(b.Sub(a) / 2).Round(time.Second)
}
