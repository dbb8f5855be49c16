package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/thurmanmarka/suntrack/internal/oracle"
)

// locationFlags selects an observer either from the config file or from
// explicit coordinates.
type locationFlags struct {
	name       string
	lat, lon   float64
	tz         string
	refraction bool
}

func (f *locationFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "location", "", "location name from the config file")
	cmd.Flags().Float64Var(&f.lat, "lat", 0, "latitude in degrees (north positive)")
	cmd.Flags().Float64Var(&f.lon, "lon", 0, "longitude in degrees (east positive, west negative)")
	cmd.Flags().StringVar(&f.tz, "tz", "UTC", "IANA time zone name (e.g. America/Phoenix)")
	cmd.Flags().BoolVar(&f.refraction, "refraction", false, "add atmospheric refraction to reported elevations")
}

func (f *locationFlags) params() (oracle.Params, error) {
	if f.name != "" {
		if err := loadConfig(); err != nil {
			return oracle.Params{}, err
		}
		l, ok := cfg.Location(f.name)
		if !ok {
			return oracle.Params{}, fmt.Errorf("no location %q in config", f.name)
		}
		return l.Params, nil
	}
	if f.lat == 0 && f.lon == 0 {
		fmt.Println("warning: lat=0 lon=0 (Gulf of Guinea). Use --lat and --lon to set a real location.")
	}
	p := oracle.Params{Latitude: f.lat, Longitude: f.lon, TimeZone: f.tz, Refraction: f.refraction}
	return p, p.Validate()
}

// parseInstant accepts RFC3339 or a local "YYYY-MM-DDTHH:MM" / date; empty
// means now.
func parseInstant(s string, loc *time.Location) (time.Time, error) {
	if s == "" {
		return time.Now().In(loc), nil
	}
	layouts := []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02T15:04",
		"2006-01-02 15:04",
		"2006-01-02",
	}
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, strings.TrimSpace(s), loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("could not parse time %q", s)
}
