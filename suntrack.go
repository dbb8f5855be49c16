// Package suntrack tracks the sun's elevation curve for an observer and
// turns it into sensors whose states change at exactly computed instants.
//
// The building blocks are:
//   - an Oracle: sun elevation, azimuth, solar noon/midnight and crossing
//     times for one observer (NewOracle)
//   - sensor engines: elevation, azimuth, above-threshold, twilight phases
//     and daily values (NewSensor), each reporting its state and the next
//     instant it must be recomputed
//   - convenience helpers for one-off questions: SlideIntoSunset,
//     DaylightHours, TwilightFor, GoldenHourFor, BlueHourFor.
package suntrack

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/thurmanmarka/suntrack/internal/curve"
	"github.com/thurmanmarka/suntrack/internal/oracle"
	"github.com/thurmanmarka/suntrack/internal/sensor"
	"github.com/thurmanmarka/suntrack/internal/sun"
)

type (
	// Oracle answers questions about the sun for one observer.
	Oracle = oracle.Oracle
	// Params describe an observer.
	Params = oracle.Params
	// ObserverElevation describes the horizon toward one side.
	ObserverElevation = oracle.ObserverElevation
	// Direction selects a rising or setting crossing.
	Direction = oracle.Direction

	// Engine is a sensor's tracking state machine.
	Engine = sensor.Engine
	// Update is the result of one Engine step.
	Update = sensor.Update
	// SensorSpec describes a sensor to build.
	SensorSpec = sensor.Spec
	// Kind names a sensor type.
	Kind = sensor.Kind
	// PhaseSet is a family of phases over the elevation curve.
	PhaseSet = sensor.PhaseSet

	// Segment is a monotonic stretch of the elevation curve.
	Segment = curve.Segment
)

const (
	Rising  = oracle.Rising
	Setting = oracle.Setting
)

// TwilightKind identifies the type of twilight based on the Sun's altitude
// below the horizon.
type TwilightKind int

const (
	// TwilightCivil corresponds to the Sun's center at -6 degrees altitude.
	TwilightCivil TwilightKind = iota

	// TwilightNautical corresponds to the Sun's center at -12 degrees altitude.
	TwilightNautical

	// TwilightAstronomical corresponds to the Sun's center at -18 degrees altitude.
	TwilightAstronomical
)

func (k TwilightKind) depression() (float64, error) {
	switch k {
	case TwilightCivil:
		return oracle.CivilDepression, nil
	case TwilightNautical:
		return oracle.NauticalDepression, nil
	case TwilightAstronomical:
		return oracle.AstronomicalDepression, nil
	}
	return 0, fmt.Errorf("unknown TwilightKind: %d", k)
}

// Coordinates represent an observer's location.
type Coordinates struct {
	Lat float64 // degrees, north positive
	Lon float64 // degrees, east positive (west negative, e.g. -105 for 105°W)
	// Height is the observer's height above the surrounding ground in
	// metres. It lowers the apparent horizon on both sides.
	Height float64
}

// Params builds oracle parameters for these coordinates in time zone tz.
func (c Coordinates) Params(tz string) Params {
	h := ObserverElevation{Height: c.Height}
	return Params{Latitude: c.Lat, Longitude: c.Lon, TimeZone: tz, East: h, West: h}
}

// RiseSet holds rise and set times of the sun on a given date.
type RiseSet struct {
	Rise time.Time
	Set  time.Time
}

// PhaseWindow represents a continuous time interval where the Sun's altitude
// stays within a particular range (e.g. golden hour or blue hour).
type PhaseWindow struct {
	Start time.Time
	End   time.Time
}

// DaylightPhases holds the morning and evening windows for a given phase
// (e.g. golden hour or blue hour).
type DaylightPhases struct {
	Morning PhaseWindow
	Evening PhaseWindow

	// HasMorning / HasEvening indicate whether the corresponding window
	// exists on this date at this location (high latitudes can be weird).
	HasMorning bool
	HasEvening bool
}

// ErrNoRiseNoSet is returned when the sun neither rises nor sets on that
// date at that location. It matches oracle undefined-event errors.
var ErrNoRiseNoSet = fmt.Errorf("sun does not rise or set on this date: %w", oracle.ErrUndefined)

// NewOracle builds the solar oracle for p.
func NewOracle(p Params) (Oracle, error) {
	return sun.New(p)
}

// NewSensor builds a sensor engine. Drive it by calling Advance at the
// returned NextChange.
func NewSensor(spec SensorSpec, o Oracle, log zerolog.Logger) (Engine, error) {
	return sensor.New(spec, o, log)
}

// SunPhaseSet is night, astronomical/nautical/civil twilight and day, with
// blue and golden hour attributes.
func SunPhaseSet() PhaseSet { return sensor.SunPhase() }

// DeconzDaylightSet is the deCONZ daylight phase family.
func DeconzDaylightSet() PhaseSet { return sensor.DeconzDaylight() }

// CurrentSegment returns the stretch of the elevation curve holding now.
func CurrentSegment(o Oracle, now time.Time) (Segment, error) {
	return curve.Locate(o, now)
}

// oracleFor builds an oracle in the time zone of date.
func oracleFor(c Coordinates, date time.Time) (Oracle, error) {
	loc := date.Location()
	return sun.NewIn(c.Params(loc.String()), loc)
}

// pair computes the morning and evening crossings for date, tolerating one
// of them missing.
func pair(morning, evening func() (time.Time, error)) (RiseSet, error) {
	rise, rerr := morning()
	set, serr := evening()
	for _, err := range []error{rerr, serr} {
		if err != nil && !errors.Is(err, oracle.ErrUndefined) {
			return RiseSet{}, err
		}
	}
	if rerr != nil && serr != nil {
		return RiseSet{}, ErrNoRiseNoSet
	}
	return RiseSet{Rise: rise, Set: set}, nil
}

// SlideIntoSunset is your glorious convenience helper:
// it returns sunrise and sunset at the given location on the local calendar
// date. The time zone is taken from date's Location.
func SlideIntoSunset(loc Coordinates, date time.Time) (RiseSet, error) {
	o, err := oracleFor(loc, date)
	if err != nil {
		return RiseSet{}, err
	}
	return pair(
		func() (time.Time, error) { return oracle.Sunrise(o, date) },
		func() (time.Time, error) { return oracle.Sunset(o, date) },
	)
}

// DaylightHours calculates the time between sunrise and sunset in hours.
//
// If the sun does not both rise and set on the given date (e.g. polar
// regions), it returns 0 and ErrNoRiseNoSet.
func DaylightHours(loc Coordinates, date time.Time) (float64, error) {
	rs, err := SlideIntoSunset(loc, date)
	if err != nil {
		return 0, err
	}
	if rs.Rise.IsZero() || rs.Set.IsZero() {
		return 0, ErrNoRiseNoSet
	}
	return rs.Set.Sub(rs.Rise).Hours(), nil
}

// TwilightFor computes dawn (Rise) and dusk (Set) of the given kind for a
// location and local calendar date.
func TwilightFor(loc Coordinates, date time.Time, kind TwilightKind) (RiseSet, error) {
	dep, err := kind.depression()
	if err != nil {
		return RiseSet{}, err
	}
	o, err := oracleFor(loc, date)
	if err != nil {
		return RiseSet{}, err
	}
	return pair(
		func() (time.Time, error) { return oracle.Dawn(o, date, dep) },
		func() (time.Time, error) { return oracle.Dusk(o, date, dep) },
	)
}

// GoldenHourFor computes the golden hour intervals, when the Sun's center is
// between -4° and +6°.
func GoldenHourFor(loc Coordinates, date time.Time) (DaylightPhases, error) {
	return windowsFor(loc, date, -4, 6)
}

// BlueHourFor computes the blue hour intervals, when the Sun's center is
// between -6° and -4°.
func BlueHourFor(loc Coordinates, date time.Time) (DaylightPhases, error) {
	return windowsFor(loc, date, -6, -4)
}

// windowsFor finds the morning climb from low to high and the evening descent
// from high to low.
func windowsFor(loc Coordinates, date time.Time, low, high float64) (DaylightPhases, error) {
	o, err := oracleFor(loc, date)
	if err != nil {
		return DaylightPhases{}, err
	}
	at := func(elev float64, dir Direction) (time.Time, bool) {
		t, err := o.CrossingTime(date, elev, dir)
		return t, err == nil
	}

	var phases DaylightPhases
	if start, ok := at(low, Rising); ok {
		if end, ok := at(high, Rising); ok && end.After(start) {
			phases.Morning = PhaseWindow{Start: start, End: end}
			phases.HasMorning = true
		}
	}
	if start, ok := at(high, Setting); ok {
		if end, ok := at(low, Setting); ok && end.After(start) {
			phases.Evening = PhaseWindow{Start: start, End: end}
			phases.HasEvening = true
		}
	}

	if !phases.HasMorning && !phases.HasEvening {
		return DaylightPhases{}, ErrNoRiseNoSet
	}
	return phases, nil
}
