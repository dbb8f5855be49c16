package sensor

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/thurmanmarka/suntrack/internal/logging"
	"github.com/thurmanmarka/suntrack/internal/oracle"
)

// Kind names a sensor type.
type Kind string

const (
	KindElevation Kind = "elevation"
	KindAzimuth   Kind = "azimuth"
	KindAbove     Kind = "above"

	KindSunPhase       Kind = "sun_phase"
	KindDeconzDaylight Kind = "deconz_daylight"

	KindSolarMidnight    Kind = "solar_midnight"
	KindAstronomicalDawn Kind = "astronomical_dawn"
	KindNauticalDawn     Kind = "nautical_dawn"
	KindDawn             Kind = "dawn"
	KindSunrise          Kind = "sunrise"
	KindSolarNoon        Kind = "solar_noon"
	KindSunset           Kind = "sunset"
	KindDusk             Kind = "dusk"
	KindNauticalDusk     Kind = "nautical_dusk"
	KindAstronomicalDusk Kind = "astronomical_dusk"

	KindDaylight             Kind = "daylight"
	KindCivilDaylight        Kind = "civil_daylight"
	KindNauticalDaylight     Kind = "nautical_daylight"
	KindAstronomicalDaylight Kind = "astronomical_daylight"
	KindNight                Kind = "night"
	KindCivilNight           Kind = "civil_night"
	KindNauticalNight        Kind = "nautical_night"
	KindAstronomicalNight    Kind = "astronomical_night"

	KindMinElevation   Kind = "min_elevation"
	KindMaxElevation   Kind = "max_elevation"
	KindSunriseAzimuth Kind = "sunrise_azimuth"
	KindSunsetAzimuth  Kind = "sunset_azimuth"

	KindTimeAtElevation Kind = "time_at_elevation"
	KindElevationAtTime Kind = "elevation_at_time"
)

// BasicKinds are the sensors every location gets without configuration.
var BasicKinds = []Kind{
	KindSolarMidnight, KindAstronomicalDawn, KindNauticalDawn, KindDawn, KindSunrise,
	KindSolarNoon, KindSunset, KindDusk, KindNauticalDusk, KindAstronomicalDusk,
	KindDaylight, KindCivilDaylight, KindNauticalDaylight, KindAstronomicalDaylight,
	KindNight, KindCivilNight, KindNauticalNight, KindAstronomicalNight,
	KindMinElevation, KindMaxElevation,
	KindAzimuth, KindSunriseAzimuth, KindSunsetAzimuth,
	KindElevation, KindSunPhase, KindDeconzDaylight,
}

var dailyIcons = map[Kind]string{
	KindSolarMidnight:        IconNight,
	KindAstronomicalDawn:     IconSunsetUp,
	KindNauticalDawn:         IconSunsetUp,
	KindDawn:                 IconSunsetUp,
	KindSunrise:              IconSunsetUp,
	KindSolarNoon:            IconSunny,
	KindSunset:               IconSunsetDown,
	KindDusk:                 IconSunsetDown,
	KindNauticalDusk:         IconSunsetDown,
	KindAstronomicalDusk:     IconSunsetDown,
	KindDaylight:             IconSunny,
	KindCivilDaylight:        IconSunny,
	KindNauticalDaylight:     IconSunny,
	KindAstronomicalDaylight: IconSunny,
	KindNight:                IconNight,
	KindCivilNight:           IconNight,
	KindNauticalNight:        IconNight,
	KindAstronomicalNight:    IconNight,
	KindMinElevation:         IconNight,
	KindMaxElevation:         IconSunny,
	KindSunriseAzimuth:       IconSunAngle,
	KindSunsetAzimuth:        IconSunAngle,
	KindTimeAtElevation:      IconSunsetUp,
	KindElevationAtTime:      IconSunny,
}

// IsDaily reports whether the kind is recomputed once per civil day.
func (k Kind) IsDaily() bool {
	_, ok := dailyIcons[k]
	return ok
}

// Valid reports whether k names a known sensor type.
func (k Kind) Valid() bool {
	switch k {
	case KindElevation, KindAzimuth, KindAbove, KindSunPhase, KindDeconzDaylight:
		return true
	}
	return k.IsDaily()
}

func (k Kind) icon() string {
	return dailyIcons[k]
}

func (k Kind) isPeriod() bool {
	switch k {
	case KindDaylight, KindCivilDaylight, KindNauticalDaylight, KindAstronomicalDaylight,
		KindNight, KindCivilNight, KindNauticalNight, KindAstronomicalNight:
		return true
	}
	return false
}

// depression of a period kind; zero means sunrise/sunset.
func (k Kind) depression() float64 {
	switch {
	case strings.HasPrefix(string(k), "civil_"):
		return oracle.CivilDepression
	case strings.HasPrefix(string(k), "nautical_"):
		return oracle.NauticalDepression
	case strings.HasPrefix(string(k), "astronomical_"):
		return oracle.AstronomicalDepression
	}
	return 0
}

// DisplayName turns a kind into a title, e.g. "Civil Daylight".
func (k Kind) DisplayName() string {
	words := strings.Split(string(k), "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

// Spec describes one sensor to build.
type Spec struct {
	Kind Kind
	Name string
	// Threshold is the raw "above" elevation: degrees or "horizon".
	Threshold string
	// Elevation and Direction configure time_at_elevation.
	Elevation float64
	Direction oracle.Direction
	// At configures elevation_at_time, as an offset from local midnight.
	At time.Duration
}

// DefaultName fills in a name from the spec's kind and parameters.
func (s Spec) DefaultName() string {
	if s.Name != "" {
		return s.Name
	}
	switch s.Kind {
	case KindAbove:
		return BinaryName(s.Threshold)
	case KindTimeAtElevation:
		verb := "Rising"
		if s.Direction == oracle.Setting {
			verb = "Setting"
		}
		return fmt.Sprintf("%s at %g deg", verb, s.Elevation)
	case KindElevationAtTime:
		return "Elevation at " + formatClock(s.At)
	}
	return s.Kind.DisplayName()
}

// ParseClock parses a local time of day, HH:MM or HH:MM:SS, into an offset
// from midnight.
func ParseClock(s string) (time.Duration, error) {
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Duration(t.Hour())*time.Hour +
				time.Duration(t.Minute())*time.Minute +
				time.Duration(t.Second())*time.Second, nil
		}
	}
	return 0, fmt.Errorf("time of day %q: want HH:MM or HH:MM:SS", s)
}

func formatClock(d time.Duration) string {
	s := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", s/3600, (s/60)%60, s%60)
}

// New builds the engine for spec.
func New(spec Spec, o oracle.Oracle, log zerolog.Logger) (Engine, error) {
	name := spec.DefaultName()
	log = logging.ForSensor(log, name)

	switch spec.Kind {
	case KindElevation:
		return NewElevation(name, o, log), nil
	case KindAzimuth:
		return NewAzimuth(name, o, log), nil
	case KindAbove:
		thr, err := ParseThreshold(spec.Threshold)
		if err != nil {
			return nil, err
		}
		return NewBinary(name, o, thr, log), nil
	case KindSunPhase, KindDeconzDaylight:
		set, _ := PhaseSetByKey(string(spec.Kind))
		return NewPhase(name, set, o, log), nil
	case KindTimeAtElevation:
		return NewTimeAtElevation(name, spec.Elevation, spec.Direction, o, log), nil
	case KindElevationAtTime:
		return NewElevationAtTime(name, spec.At, o, log), nil
	}
	if spec.Kind.IsDaily() {
		return NewDaily(name, spec.Kind, o, log), nil
	}
	return nil, fmt.Errorf("unknown sensor kind %q", spec.Kind)
}
