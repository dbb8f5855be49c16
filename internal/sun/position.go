package sun

import (
	"math"
	"time"

	"github.com/thurmanmarka/suntrack/internal/timeutil"
)

// Equatorial represents equatorial coordinates in degrees. RA is 0..360.
type Equatorial struct {
	RA  float64 // right ascension, degrees
	Dec float64 // declination, degrees
}

// Horizontal is the sun's position as seen by an observer.
type Horizontal struct {
	Elevation float64 // geometric elevation, degrees
	Azimuth   float64 // degrees from north, clockwise
	HourAngle float64 // local hour angle, degrees in [-180, 180)
}

// GeocentricEquatorialApprox returns an approximate geocentric RA/Dec for the
// Sun at t.
//
// This is a standard low/medium-precision solar position model, good to
// arcminute-level accuracy in RA/Dec for many applications.
//
// Based on a simplified NOAA / Meeus-style algorithm:
//
//	g  = mean anomaly of the Sun
//	q  = mean longitude of the Sun
//	L  = ecliptic longitude of the Sun
//	eps = obliquity of the ecliptic
func GeocentricEquatorialApprox(t time.Time) Equatorial {
	d := timeutil.DaysSinceJ2000(t)

	// Mean anomaly of the Sun (deg)
	g := timeutil.Deg2Rad(357.529 + 0.98560028*d)

	// Mean longitude of the Sun (deg)
	q := timeutil.Deg2Rad(280.459 + 0.98564736*d)

	// Ecliptic longitude with equation of center
	L := q +
		timeutil.Deg2Rad(1.915)*math.Sin(g) +
		timeutil.Deg2Rad(0.020)*math.Sin(2*g)

	// Obliquity of the ecliptic (deg)
	eps := timeutil.Deg2Rad(23.439 - 0.00000036*d)

	// Convert to equatorial
	x := math.Cos(L)
	y := math.Cos(eps) * math.Sin(L)
	z := math.Sin(eps) * math.Sin(L)

	ra := math.Atan2(y, x)
	if ra < 0 {
		ra += 2 * math.Pi
	}
	dec := math.Asin(z)

	return Equatorial{
		RA:  timeutil.Rad2Deg(ra),
		Dec: timeutil.Rad2Deg(dec),
	}
}

// hourAngle returns the sun's local hour angle in degrees, [-180, 180), using
// a simple sidereal time approximation.
func hourAngle(lon float64, t time.Time, eq Equatorial) float64 {
	d := timeutil.DaysSinceJ2000(t)
	gmst := 280.46061837 + 360.98564736629*d
	lst := timeutil.Normalize360(gmst + lon)
	return timeutil.Normalize180(lst - eq.RA)
}

// HorizontalAt computes the sun's geometric elevation and azimuth at t for an
// observer at (lat, lon).
func HorizontalAt(lat, lon float64, t time.Time) Horizontal {
	eq := GeocentricEquatorialApprox(t)
	H := hourAngle(lon, t, eq)

	latRad := timeutil.Deg2Rad(lat)
	decRad := timeutil.Deg2Rad(eq.Dec)
	hRad := timeutil.Deg2Rad(H)

	sinAlt := math.Sin(latRad)*math.Sin(decRad) + math.Cos(latRad)*math.Cos(decRad)*math.Cos(hRad)
	if sinAlt > 1 {
		sinAlt = 1
	} else if sinAlt < -1 {
		sinAlt = -1
	}
	alt := math.Asin(sinAlt)

	// Azimuth measured from south, westward, then rotated to north-based.
	az := math.Atan2(math.Sin(hRad), math.Cos(hRad)*math.Sin(latRad)-math.Tan(decRad)*math.Cos(latRad))

	return Horizontal{
		Elevation: timeutil.Rad2Deg(alt),
		Azimuth:   timeutil.Normalize360(timeutil.Rad2Deg(az) + 180.0),
		HourAngle: H,
	}
}
