// Package curve tracks the solar elevation curve between its daily extremes.
//
// Between a solar midnight and the following solar noon the elevation only
// rises; between a solar noon and the following solar midnight it only
// falls. A Segment is one such monotonic piece, and every crossing search in
// this package is confined to one.
package curve

import (
	"errors"
	"fmt"
	"time"

	"github.com/thurmanmarka/suntrack/internal/oracle"
	"github.com/thurmanmarka/suntrack/internal/timeutil"
)

// ErrOracle wraps oracle failures met while building a segment.
var ErrOracle = errors.New("curve: oracle failed")

// maxWalk bounds how many days Locate may step away from the civil date of
// now. One step is normal near dateline zones; more means a broken oracle.
const maxWalk = 3

// Segment is the monotonic bracket of the elevation curve holding an instant:
// Left <= now < Right.
type Segment struct {
	Left      time.Time
	LeftElev  float64
	Right     time.Time
	RightElev float64
	Rising    bool
	// Mid is halfway between Left and Right; MidDate is its civil date.
	Mid     time.Time
	MidDate time.Time
	// NextNoon is the solar noon of the civil date after the one the segment
	// was found on.
	NextNoon time.Time
}

// Contains reports whether t lies in [Left, Right).
func (s Segment) Contains(t time.Time) bool {
	return !t.Before(s.Left) && t.Before(s.Right)
}

// Min and Max are the elevation range covered by the segment.
func (s Segment) Min() float64 {
	if s.Rising {
		return s.LeftElev
	}
	return s.RightElev
}

func (s Segment) Max() float64 {
	if s.Rising {
		return s.RightElev
	}
	return s.LeftElev
}

// Reaches reports whether elevation lies within the segment's range.
func (s Segment) Reaches(elevation float64) bool {
	return s.Min() <= elevation && elevation <= s.Max()
}

func (s Segment) String() string {
	dir := "falling"
	if s.Rising {
		dir = "rising"
	}
	return fmt.Sprintf("%s %s (%.3f) -> %s (%.3f)", dir,
		s.Left.Format(time.RFC3339), s.LeftElev, s.Right.Format(time.RFC3339), s.RightElev)
}

// Locate returns the segment holding now.
//
// Solar extremes do not line up with civil days: the midnight belonging to a
// date may fall on the previous day, and near the dateline even the noon may
// fall on another day. Locate therefore starts at now's civil date and steps
// to adjacent dates until midnight(d) <= now < midnight(d+1).
func Locate(o oracle.Oracle, now time.Time) (Segment, error) {
	loc := o.Location()
	d := timeutil.DateOf(now, loc)

	midnight := func(date time.Time) (time.Time, error) {
		t, err := o.Extremum(date, oracle.SolarMidnight)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: solar midnight %s: %v", ErrOracle, date.Format(time.DateOnly), err)
		}
		return t, nil
	}
	noon := func(date time.Time) (time.Time, error) {
		t, err := o.Extremum(date, oracle.SolarNoon)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: solar noon %s: %v", ErrOracle, date.Format(time.DateOnly), err)
		}
		return t, nil
	}

	m0, err := midnight(d)
	if err != nil {
		return Segment{}, err
	}
	for i := 0; now.Before(m0); i++ {
		if i == maxWalk {
			return Segment{}, fmt.Errorf("%w: no solar midnight before %s", ErrOracle, now)
		}
		d = timeutil.AddDays(d, -1)
		if m0, err = midnight(d); err != nil {
			return Segment{}, err
		}
	}

	m1, err := midnight(timeutil.AddDays(d, 1))
	if err != nil {
		return Segment{}, err
	}
	for i := 0; !now.Before(m1); i++ {
		if i == maxWalk {
			return Segment{}, fmt.Errorf("%w: no solar midnight after %s", ErrOracle, now)
		}
		d = timeutil.AddDays(d, 1)
		m0 = m1
		if m1, err = midnight(timeutil.AddDays(d, 1)); err != nil {
			return Segment{}, err
		}
	}

	n0, err := noon(d)
	if err != nil {
		return Segment{}, err
	}
	nextNoon, err := noon(timeutil.AddDays(d, 1))
	if err != nil {
		return Segment{}, err
	}

	seg := Segment{NextNoon: nextNoon}
	if now.Before(n0) {
		seg.Left, seg.Right = m0, n0
	} else {
		seg.Left, seg.Right = n0, m1
	}
	seg.LeftElev = o.Elevation(seg.Left)
	seg.RightElev = o.Elevation(seg.Right)
	seg.Rising = seg.RightElev > seg.LeftElev
	seg.Mid = seg.Left.Add(seg.Right.Sub(seg.Left) / 2)
	seg.MidDate = timeutil.DateOf(seg.Mid, loc)

	return seg, nil
}

// Next returns the segment that follows s.
func Next(o oracle.Oracle, s Segment) (Segment, error) {
	return Locate(o, s.Right)
}
