// Package sun implements oracle.Oracle on a low/medium precision solar
// position model.
package sun

import (
	"fmt"
	"time"

	"github.com/thurmanmarka/suntrack/internal/oracle"
	"github.com/thurmanmarka/suntrack/internal/solver"
	"github.com/thurmanmarka/suntrack/internal/telemetry"
	"github.com/thurmanmarka/suntrack/internal/timeutil"
)

const (
	// transitIterations refines a solar noon/midnight guess. The hour angle
	// moves 360 degrees per solar day, so each pass removes nearly all of the
	// remaining error.
	transitIterations = 3

	// crossingSteps samples a half-day window before bisecting.
	crossingSteps = 24
	crossingTol   = time.Second
)

// Oracle answers solar questions for one observer.
type Oracle struct {
	params oracle.Params
	loc    *time.Location
}

var _ oracle.Oracle = (*Oracle)(nil)

// New builds an Oracle from p.
func New(p oracle.Params) (*Oracle, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	loc, err := p.LoadLocation()
	if err != nil {
		return nil, err
	}
	return &Oracle{params: p, loc: loc}, nil
}

// NewIn builds an Oracle that takes civil dates in loc, whatever p.TimeZone
// says. It serves zones time.LoadLocation cannot resolve, such as
// time.FixedZone results.
func NewIn(p oracle.Params, loc *time.Location) (*Oracle, error) {
	if loc == nil {
		return New(p)
	}
	if err := p.ValidateObserver(); err != nil {
		return nil, err
	}
	return &Oracle{params: p, loc: loc}, nil
}

// Params returns the parameters o was built from.
func (o *Oracle) Params() oracle.Params { return o.params }

// Location is the civil zone of the observer.
func (o *Oracle) Location() *time.Location { return o.loc }

// Elevation returns the sun's elevation at t, with refraction applied when the
// oracle was built with Refraction set.
func (o *Oracle) Elevation(t time.Time) float64 {
	telemetry.OracleEvaluations.WithLabelValues("elevation").Inc()
	elev := o.geometric(t)
	if o.params.Refraction {
		elev += timeutil.ApproxRefraction(elev)
	}
	return elev
}

// Azimuth returns the sun's azimuth at t.
func (o *Oracle) Azimuth(t time.Time) float64 {
	telemetry.OracleEvaluations.WithLabelValues("azimuth").Inc()
	return HorizontalAt(o.params.Latitude, o.params.Longitude, t).Azimuth
}

func (o *Oracle) geometric(t time.Time) float64 {
	return HorizontalAt(o.params.Latitude, o.params.Longitude, t).Elevation
}

// Extremum returns the solar midnight or solar noon belonging to the civil
// date of date.
//
// The guess for the date's solar noon is 12:00 UTC shifted by longitude; solar
// midnight is guessed twelve hours earlier, so midnight always precedes noon.
// Both are refined by driving the hour angle to 0 (noon) or 180 (midnight).
func (o *Oracle) Extremum(date time.Time, kind oracle.Extremum) (time.Time, error) {
	telemetry.OracleEvaluations.WithLabelValues("extremum").Inc()

	y, m, d := date.In(o.loc).Date()
	lonShift := time.Duration(-o.params.Longitude / 15.0 * float64(time.Hour))

	t := time.Date(y, m, d, 12, 0, 0, 0, time.UTC).Add(lonShift)
	target := 0.0
	if kind == oracle.SolarMidnight {
		t = t.Add(-12 * time.Hour)
		target = 180.0
	}

	for i := 0; i < transitIterations; i++ {
		H := HorizontalAt(o.params.Latitude, o.params.Longitude, t).HourAngle
		off := timeutil.Normalize180(H - target)
		t = t.Add(-time.Duration(off / 360.0 * 24 * float64(time.Hour)))
	}

	return t.Truncate(time.Second).In(o.loc), nil
}

// CrossingTime returns when the sun's geometric elevation crosses elevation
// on the civil date of date: between that date's solar midnight and solar
// noon when rising, between its solar noon and the next date's solar midnight
// when setting.
func (o *Oracle) CrossingTime(date time.Time, elevation float64, dir oracle.Direction) (time.Time, error) {
	telemetry.OracleEvaluations.WithLabelValues("crossing").Inc()

	noon, err := o.Extremum(date, oracle.SolarNoon)
	if err != nil {
		return time.Time{}, err
	}

	var start, end time.Time
	crossing := solver.CrossingUp
	if dir == oracle.Rising {
		if start, err = o.Extremum(date, oracle.SolarMidnight); err != nil {
			return time.Time{}, err
		}
		end = noon
	} else {
		start = noon
		if end, err = o.Extremum(timeutil.AddDays(timeutil.DateOf(date, o.loc), 1), oracle.SolarMidnight); err != nil {
			return time.Time{}, err
		}
		crossing = solver.CrossingDown
	}

	res := solver.FindAltitudeEvent(o.geometric, start, end, elevation, crossing, crossingSteps, crossingTol)
	if !res.OK {
		return time.Time{}, fmt.Errorf("%s %.3f on %s: %w", dir, elevation, date.In(o.loc).Format(time.DateOnly), oracle.ErrUndefined)
	}
	return res.Time.Truncate(time.Second).In(o.loc), nil
}
