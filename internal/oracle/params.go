package oracle

import (
	"fmt"
	"math"
	"time"
)

// earthRadius in metres, used for the dip of the horizon seen from a height.
const earthRadius = 6356900.0

// ObserverElevation describes what the observer sees toward one horizon.
//
// With Distance zero, Height is the observer's height above the surrounding
// ground in metres and the horizon dips below zero. With Distance set, Height
// is the height of an obstruction (a ridge, a building) relative to the
// observer at that distance, and the apparent horizon is raised (or lowered
// for a negative height).
type ObserverElevation struct {
	Height   float64 `yaml:"height" json:"height"`
	Distance float64 `yaml:"distance,omitempty" json:"distance,omitempty"`
}

// Dip returns how far the apparent horizon sits below zero elevation, in
// degrees. Negative values mean the horizon is raised.
func (e ObserverElevation) Dip() float64 {
	if e.Distance == 0 {
		if e.Height <= 0 {
			return 0
		}
		return radToDeg(math.Acos(earthRadius / (earthRadius + e.Height)))
	}
	return -radToDeg(math.Atan(e.Height / e.Distance))
}

// Params is everything an oracle is built from. Params is comparable, and two
// oracles with equal Params produce identical results.
type Params struct {
	Latitude   float64           `yaml:"latitude" json:"latitude"`
	Longitude  float64           `yaml:"longitude" json:"longitude"`
	TimeZone   string            `yaml:"time_zone" json:"time_zone"`
	East       ObserverElevation `yaml:"east,omitempty" json:"east"`
	West       ObserverElevation `yaml:"west,omitempty" json:"west"`
	Refraction bool              `yaml:"refraction,omitempty" json:"refraction"`
}

// Validate checks ranges and resolves the time zone.
func (p Params) Validate() error {
	if err := p.ValidateObserver(); err != nil {
		return err
	}
	_, err := p.LoadLocation()
	return err
}

// ValidateObserver checks everything but the time zone.
func (p Params) ValidateObserver() error {
	if p.Latitude < -90 || p.Latitude > 90 {
		return fmt.Errorf("oracle: latitude %v out of range", p.Latitude)
	}
	if p.Longitude < -180 || p.Longitude > 180 {
		return fmt.Errorf("oracle: longitude %v out of range", p.Longitude)
	}
	for _, e := range []ObserverElevation{p.East, p.West} {
		if e.Distance < 0 {
			return fmt.Errorf("oracle: obstruction distance %v must be positive", e.Distance)
		}
	}
	return nil
}

// LoadLocation resolves TimeZone, defaulting to UTC.
func (p Params) LoadLocation() (*time.Location, error) {
	if p.TimeZone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(p.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("oracle: time zone %q: %w", p.TimeZone, err)
	}
	return loc, nil
}

// HorizonElevation is the sun elevation of sunrise (Rising, east) or sunset
// (Setting, west) once the observer's horizon is taken into account.
func (p Params) HorizonElevation(dir Direction) float64 {
	return SunsetElevation - p.dip(dir)
}

// DepressionElevation is the elevation of a twilight boundary seen from this
// observer.
func (p Params) DepressionElevation(depression float64, dir Direction) float64 {
	return -depression - p.dip(dir)
}

func (p Params) dip(dir Direction) float64 {
	if dir == Setting {
		return p.West.Dip()
	}
	return p.East.Dip()
}

func radToDeg(r float64) float64 {
	return r * 180.0 / math.Pi
}
