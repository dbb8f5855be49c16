// Package oracle defines the solar oracle the tracking engines consume.
//
// An Oracle answers a closed set of questions about the sun for one observer:
// its elevation and azimuth at an instant, the solar noon and solar midnight of
// a civil date, and the instant the sun crosses a given elevation on a date.
package oracle

import (
	"errors"
	"time"
)

// ErrUndefined is returned when the sun never reaches the requested elevation
// on the requested date (polar day or night, or an elevation above the
// day's maximum).
var ErrUndefined = errors.New("oracle: event undefined on this date")

// Extremum selects one of the two daily extremes of the elevation curve.
type Extremum int

const (
	SolarMidnight Extremum = iota
	SolarNoon
)

func (e Extremum) String() string {
	if e == SolarNoon {
		return "solar_noon"
	}
	return "solar_midnight"
}

// Direction selects the morning (Rising) or evening (Setting) crossing.
type Direction int

const (
	Rising Direction = iota
	Setting
)

func (d Direction) String() string {
	if d == Setting {
		return "setting"
	}
	return "rising"
}

// ParseDirection accepts "rising" or "setting".
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "rising":
		return Rising, nil
	case "setting":
		return Setting, nil
	}
	return Rising, errors.New("oracle: direction must be rising or setting")
}

// Oracle is the solar model used by the curve segmenter, the root finder and
// the sensors. All returned instants are whole seconds.
type Oracle interface {
	// Location is the zone civil dates are taken in.
	Location() *time.Location
	// Elevation returns the sun's elevation in degrees at t.
	Elevation(t time.Time) float64
	// Azimuth returns the sun's azimuth in degrees, 0 = north, clockwise.
	Azimuth(t time.Time) float64
	// Extremum returns solar midnight or solar noon for the civil date of
	// date. For any date the midnight precedes the noon; either may fall on
	// an adjacent calendar day.
	Extremum(date time.Time, kind Extremum) (time.Time, error)
	// CrossingTime returns when the sun crosses elevation on the civil date
	// of date in the given direction, or ErrUndefined.
	CrossingTime(date time.Time, elevation float64, dir Direction) (time.Time, error)
	// Params returns the parameters the oracle was built from.
	Params() Params
}

// Depression angles of the twilight boundaries, in degrees below the horizon.
const (
	CivilDepression        = 6.0
	NauticalDepression     = 12.0
	AstronomicalDepression = 18.0
)

// SunsetElevation is the elevation of the sun's centre at apparent sunrise and
// sunset: refraction plus the solar semi-diameter.
const SunsetElevation = -0.833

// Sunrise returns the sunrise of date.
func Sunrise(o Oracle, date time.Time) (time.Time, error) {
	return o.CrossingTime(date, o.Params().HorizonElevation(Rising), Rising)
}

// Sunset returns the sunset of date.
func Sunset(o Oracle, date time.Time) (time.Time, error) {
	return o.CrossingTime(date, o.Params().HorizonElevation(Setting), Setting)
}

// Dawn returns the morning crossing of the given depression (6, 12 or 18).
func Dawn(o Oracle, date time.Time, depression float64) (time.Time, error) {
	return o.CrossingTime(date, o.Params().DepressionElevation(depression, Rising), Rising)
}

// Dusk returns the evening crossing of the given depression.
func Dusk(o Oracle, date time.Time, depression float64) (time.Time, error) {
	return o.CrossingTime(date, o.Params().DepressionElevation(depression, Setting), Setting)
}
