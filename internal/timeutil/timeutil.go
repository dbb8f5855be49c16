package timeutil

import (
	"fmt"
	"math"
	"time"
)

// -----------------------------
// Civil dates and whole seconds
// -----------------------------

// NearestSecond rounds t to the nearest whole second. The solar model works
// at one second resolution, so anything finer is noise.
func NearestSecond(t time.Time) time.Time {
	return t.Round(time.Second)
}

// DateOf returns local midnight of t's calendar date in loc.
func DateOf(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = t.Location()
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// AddDays shifts a calendar date by n days, keeping it at local midnight
// even across DST changes (which a plain Add(24h) would not).
func AddDays(date time.Time, n int) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d+n, 0, 0, 0, 0, date.Location())
}

// NextMidnight returns the first local midnight strictly after t, in t's zone.
func NextMidnight(t time.Time) time.Time {
	return AddDays(DateOf(t, t.Location()), 1)
}

// HoursToHMS formats fractional hours as H:MM:SS, truncating to whole
// seconds.
func HoursToHMS(hours float64) string {
	total := int64(hours * 3600)
	sign := ""
	if total < 0 {
		sign = "-"
		total = -total
	}
	return fmt.Sprintf("%s%d:%02d:%02d", sign, total/3600, (total/60)%60, total%60)
}

// -----------------------------
// Time relative to J2000
// -----------------------------

// j2000 is the J2000.0 epoch: 2000-01-01 12:00:00 UTC.
var j2000 = time.Date(2000, time.January, 1, 12, 0, 0, 0, time.UTC)

// DaysSinceJ2000 returns the number of (UTC) days since the J2000.0 epoch.
//
// This is an approximation suitable for low/medium-precision astronomy.
func DaysSinceJ2000(t time.Time) float64 {
	return t.UTC().Sub(j2000).Hours() / 24.0
}

// -----------------------------
// Basic degree/radian helpers.
// -----------------------------

func Deg2Rad(d float64) float64 {
	return d * math.Pi / 180.0
}

func Rad2Deg(r float64) float64 {
	return r * 180.0 / math.Pi
}

func Normalize360(d float64) float64 {
	d = math.Mod(d, 360.0)
	if d < 0 {
		d += 360.0
	}
	return d
}

// Normalize180 folds an angle into [-180, 180).
func Normalize180(d float64) float64 {
	return Normalize360(d+180.0) - 180.0
}

// ApproxRefraction returns an approximation of atmospheric refraction (in
// degrees) at a given geometric altitude altDeg (degrees) under standard
// conditions.
//
// Positive return means "add this to the geometric altitude to get apparent
// altitude". Saemundsson-style:
//
//	R (arcmin) ≈ 1.02 / tan( (alt + 10.3 / (alt + 5.11)) in degrees )
func ApproxRefraction(altDeg float64) float64 {
	// Below -1° refraction isn't meaningfully defined for our purposes.
	if altDeg < -1.0 {
		return 0
	}

	// Keep clear of the pole in the denominator near -5.11.
	alt := altDeg
	if alt < -0.5 {
		alt = -0.5
	}

	t := math.Tan(Deg2Rad(alt + 10.3/(alt+5.11)))
	if t == 0 {
		return 0
	}

	return 1.02 / t / 60.0
}
