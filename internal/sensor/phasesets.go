package sensor

import (
	"github.com/thurmanmarka/suntrack/internal/curve"
	"github.com/thurmanmarka/suntrack/internal/oracle"
)

// horizonDepression puts a threshold at the sunrise/sunset elevation.
const horizonDepression = -oracle.SunsetElevation

func sunPhase(name string, blue, golden, rising bool) Phase {
	return Phase{Name: name, Attrs: map[string]any{
		"blue_hour":   blue,
		"golden_hour": golden,
		"rising":      rising,
	}}
}

// SunPhase is night, the three twilights and day, with blue hour (-6 to -4
// degrees) and golden hour (-4 to 6 degrees) flagged as attributes.
func SunPhase() PhaseSet {
	return PhaseSet{
		Key: "sun_phase",
		Thresholds: []Threshold{
			{oracle.AstronomicalDepression,
				sunPhase("astronomical_twilight", false, false, true),
				sunPhase("night", false, false, false)},
			{oracle.NauticalDepression,
				sunPhase("nautical_twilight", false, false, true),
				sunPhase("astronomical_twilight", false, false, false)},
			{oracle.CivilDepression,
				sunPhase("civil_twilight", true, false, true),
				sunPhase("nautical_twilight", false, false, false)},
			{4,
				sunPhase("civil_twilight", false, true, true),
				sunPhase("civil_twilight", true, false, false)},
			{horizonDepression,
				sunPhase("day", false, true, true),
				sunPhase("civil_twilight", false, true, false)},
			{-6,
				sunPhase("day", false, false, true),
				sunPhase("day", false, true, false)},
		},
		Nadir:     sunPhase("night", false, false, true),
		Zenith:    sunPhase("day", false, false, false),
		Tolerance: curve.TolPhase,
		Icon: func(p Phase, rising bool) string {
			switch {
			case p.Name == "night":
				return IconNight
			case p.Name == "day":
				return IconSunny
			case rising:
				return IconSunsetUp
			default:
				return IconSunsetDown
			}
		},
	}
}

func deconzPhase(name string, daylight bool) Phase {
	return Phase{Name: name, Attrs: map[string]any{"daylight": daylight}}
}

// DeconzDaylight mirrors the deCONZ daylight sensor. Its nadir and solar_noon
// phases begin at the extremum itself.
func DeconzDaylight() PhaseSet {
	return PhaseSet{
		Key: "deconz_daylight",
		Thresholds: []Threshold{
			{oracle.AstronomicalDepression, deconzPhase("night_end", false), deconzPhase("night_start", false)},
			{oracle.NauticalDepression, deconzPhase("nautical_dawn", false), deconzPhase("nautical_dusk", false)},
			{oracle.CivilDepression, deconzPhase("dawn", false), deconzPhase("dusk", false)},
			{horizonDepression, deconzPhase("sunrise_start", true), deconzPhase("sunset_end", false)},
			{0.3, deconzPhase("sunrise_end", true), deconzPhase("sunset_start", true)},
			{-6, deconzPhase("golden_hour_1", true), deconzPhase("golden_hour_2", true)},
		},
		Nadir:          deconzPhase("nadir", false),
		Zenith:         deconzPhase("solar_noon", true),
		Tolerance:      curve.TolPhase,
		ExtremumPhases: true,
		Icon: func(p Phase, _ bool) string {
			switch p.Name {
			case "nadir", "night_start":
				return IconNight
			case "night_end", "nautical_dawn", "dawn":
				return IconSunsetUp
			}
			if d, _ := p.Attrs["daylight"].(bool); d {
				return IconSunny
			}
			return IconSunsetDown
		},
	}
}

// PhaseSetByKey returns the named phase set.
func PhaseSetByKey(key string) (PhaseSet, bool) {
	switch key {
	case "sun_phase":
		return SunPhase(), true
	case "deconz_daylight":
		return DeconzDaylight(), true
	}
	return PhaseSet{}, false
}
