// Package config loads process settings from the environment and the
// location/sensor layout from a YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/thurmanmarka/suntrack/internal/oracle"
	"github.com/thurmanmarka/suntrack/internal/sensor"
)

// idNamespace seeds generated sensor IDs so they are stable across restarts.
var idNamespace = uuid.MustParse("6f1c7a52-3b0e-4d59-9a57-0c2d5e8b1f43")

// Config covers process level configuration.
type Config struct {
	Environment string
	ConfigPath  string
	HTTPBind    string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	NATSURL       string
	EventsPrefix  string

	Locations []Location
}

// File is the layout of the YAML configuration file.
type File struct {
	Locations []Location `yaml:"locations"`
}

// Location is one observer and the sensors computed for it.
type Location struct {
	Name          string `yaml:"name"`
	oracle.Params `yaml:",inline"`
	// BasicSensors adds every sensor.BasicKinds sensor. Defaults to true.
	BasicSensors *bool          `yaml:"basic_sensors,omitempty"`
	Sensors      []SensorConfig `yaml:"sensors"`
}

// SensorConfig is one configured sensor.
type SensorConfig struct {
	Kind      string    `yaml:"kind"`
	Name      string    `yaml:"name,omitempty"`
	UniqueID  string    `yaml:"unique_id,omitempty"`
	Elevation Elevation `yaml:"elevation,omitempty"`
	Direction string    `yaml:"direction,omitempty"`
	TimeAt    string    `yaml:"time_at,omitempty"`
}

// Elevation is a configured elevation: a number of degrees, or "horizon"
// where an above-elevation sensor accepts it.
type Elevation string

func (e *Elevation) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: elevation must be a scalar", n.Line)
	}
	*e = Elevation(strings.TrimSpace(n.Value))
	return nil
}

// Degrees parses e as a plain number.
func (e Elevation) Degrees() (float64, error) {
	v, err := strconv.ParseFloat(string(e), 64)
	if err != nil {
		return 0, fmt.Errorf("elevation %q is not a number", string(e))
	}
	if v < -90 || v > 90 {
		return 0, fmt.Errorf("elevation %v out of range", v)
	}
	return v, nil
}

// Entry is a validated sensor ready to build.
type Entry struct {
	ID       string
	Location string
	Spec     sensor.Spec
}

// Load reads environment variables, then the YAML file named by
// SUNTRACK_CONFIG if any, and validates the result. Without a file a single
// location named "home" is read from SUNTRACK_LATITUDE, SUNTRACK_LONGITUDE
// and SUNTRACK_TIME_ZONE.
func Load() (*Config, error) {
	cfg := &Config{
		Environment:   getEnvAny([]string{"SUNTRACK_ENV"}, "development"),
		ConfigPath:    getEnvAny([]string{"SUNTRACK_CONFIG"}, ""),
		HTTPBind:      getEnvAny([]string{"SUNTRACK_HTTP_BIND"}, "127.0.0.1:8080"),
		RedisAddr:     getEnvAny([]string{"SUNTRACK_REDIS_ADDR"}, ""),
		RedisPassword: getEnvAny([]string{"SUNTRACK_REDIS_PASSWORD"}, ""),
		RedisDB:       getEnvIntAny([]string{"SUNTRACK_REDIS_DB"}, 0),
		NATSURL:       getEnvAny([]string{"SUNTRACK_NATS_URL"}, ""),
		EventsPrefix:  getEnvAny([]string{"SUNTRACK_EVENTS_PREFIX"}, "suntrack"),
	}

	if cfg.ConfigPath != "" {
		f, err := LoadFile(cfg.ConfigPath)
		if err != nil {
			return nil, err
		}
		cfg.Locations = f.Locations
	} else {
		cfg.Locations = []Location{{
			Name: "home",
			Params: oracle.Params{
				Latitude:  getEnvFloatAny([]string{"SUNTRACK_LATITUDE"}, 0),
				Longitude: getEnvFloatAny([]string{"SUNTRACK_LONGITUDE"}, 0),
				TimeZone:  getEnvAny([]string{"SUNTRACK_TIME_ZONE", "TZ"}, "UTC"),
			},
		}}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile parses a YAML configuration file.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &f, nil
}

// Validate checks every location and sensor.
func (c *Config) Validate() error {
	if len(c.Locations) == 0 {
		return errors.New("no locations configured")
	}
	seen := make(map[string]bool)
	for _, l := range c.Locations {
		if l.Name == "" {
			return errors.New("location without a name")
		}
		if seen[l.Name] {
			return fmt.Errorf("duplicate location %q", l.Name)
		}
		seen[l.Name] = true
		if err := l.Params.Validate(); err != nil {
			return fmt.Errorf("location %q: %w", l.Name, err)
		}
		if _, err := l.Entries(); err != nil {
			return fmt.Errorf("location %q: %w", l.Name, err)
		}
	}
	return nil
}

// Location returns the named location.
func (c *Config) Location(name string) (Location, bool) {
	for _, l := range c.Locations {
		if l.Name == name {
			return l, true
		}
	}
	return Location{}, false
}

// WantsBasic reports whether the basic sensor set is enabled.
func (l Location) WantsBasic() bool {
	return l.BasicSensors == nil || *l.BasicSensors
}

// Entries expands the location into the sensors to build: the basic set
// (unless disabled) followed by the configured sensors.
func (l Location) Entries() ([]Entry, error) {
	var out []Entry
	ids := make(map[string]bool)
	add := func(id string, spec sensor.Spec) error {
		if id == "" {
			id = uuid.NewSHA1(idNamespace, []byte(l.Name+"/"+string(spec.Kind)+"/"+spec.DefaultName())).String()
		}
		if ids[id] {
			return fmt.Errorf("duplicate sensor %q (%s)", spec.DefaultName(), id)
		}
		ids[id] = true
		out = append(out, Entry{ID: id, Location: l.Name, Spec: spec})
		return nil
	}

	if l.WantsBasic() {
		for _, k := range sensor.BasicKinds {
			if err := add("", sensor.Spec{Kind: k}); err != nil {
				return nil, err
			}
		}
	}
	for i, sc := range l.Sensors {
		spec, err := sc.Spec()
		if err != nil {
			return nil, fmt.Errorf("sensor %d: %w", i, err)
		}
		if err := add(sc.UniqueID, spec); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Spec validates the sensor and converts it.
func (s SensorConfig) Spec() (sensor.Spec, error) {
	kind := sensor.Kind(strings.TrimSpace(s.Kind))
	if !kind.Valid() {
		return sensor.Spec{}, fmt.Errorf("unknown sensor kind %q", s.Kind)
	}
	spec := sensor.Spec{Kind: kind, Name: s.Name}

	switch kind {
	case sensor.KindAbove:
		if s.Elevation == "" {
			return spec, errors.New("above sensor needs an elevation")
		}
		if _, err := sensor.ParseThreshold(string(s.Elevation)); err != nil {
			return spec, err
		}
		spec.Threshold = string(s.Elevation)
	case sensor.KindTimeAtElevation:
		v, err := s.Elevation.Degrees()
		if err != nil {
			return spec, err
		}
		dir := oracle.Rising
		if s.Direction != "" {
			if dir, err = oracle.ParseDirection(s.Direction); err != nil {
				return spec, err
			}
		}
		spec.Elevation, spec.Direction = v, dir
	case sensor.KindElevationAtTime:
		at, err := sensor.ParseClock(s.TimeAt)
		if err != nil {
			return spec, err
		}
		spec.At = at
	}
	return spec, nil
}

// getEnvAny returns the first non-empty environment variable value from keys, or def if none set.
func getEnvAny(keys []string, def string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return def
}

// getEnvIntAny returns the first set integer environment variable value from keys, or def.
func getEnvIntAny(keys []string, def int) int {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			if parsed, err := strconv.Atoi(v); err == nil {
				return parsed
			}
		}
	}
	return def
}

// getEnvFloatAny returns the first set float environment variable value from keys, or def.
func getEnvFloatAny(keys []string, def float64) float64 {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			if parsed, err := strconv.ParseFloat(v, 64); err == nil {
				return parsed
			}
		}
	}
	return def
}
