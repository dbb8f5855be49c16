package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/thurmanmarka/suntrack/internal/sensor"
	"github.com/thurmanmarka/suntrack/internal/sun"
)

var (
	stateLoc     locationFlags
	stateTime    string
	stateJSON    bool
	stateAbove   []string
	stateVerbose bool
)

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Print every sensor's state at one instant",
	Long: `Compute every basic sensor (plus any --above thresholds) for one location at
one instant and print the states with their next change.

Examples:
  suntrack state --lat 33.4484 --lon -112.0740 --tz America/Phoenix
  suntrack state --location home --time 2025-06-21T05:00 --above horizon --above -6 --json
`,
	RunE: runState,
}

func init() {
	stateLoc.register(stateCmd)
	stateCmd.Flags().StringVar(&stateTime, "time", "", "instant (RFC3339 or YYYY-MM-DDTHH:MM local), defaults to now")
	stateCmd.Flags().BoolVar(&stateJSON, "json", false, "output result as JSON")
	stateCmd.Flags().StringSliceVar(&stateAbove, "above", nil, "extra above-elevation thresholds (degrees or horizon)")
	stateCmd.Flags().BoolVarP(&stateVerbose, "verbose", "v", false, "also print attributes")
	rootCmd.AddCommand(stateCmd)
}

type stateRow struct {
	Name       string         `json:"name"`
	Kind       sensor.Kind    `json:"kind"`
	State      any            `json:"state"`
	NextChange *time.Time     `json:"next_change"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

func runState(cmd *cobra.Command, args []string) error {
	p, err := stateLoc.params()
	if err != nil {
		return err
	}
	o, err := sun.New(p)
	if err != nil {
		return err
	}
	at, err := parseInstant(stateTime, o.Location())
	if err != nil {
		return err
	}

	specs := make([]sensor.Spec, 0, len(sensor.BasicKinds)+len(stateAbove))
	for _, k := range sensor.BasicKinds {
		specs = append(specs, sensor.Spec{Kind: k})
	}
	for _, thr := range stateAbove {
		specs = append(specs, sensor.Spec{Kind: sensor.KindAbove, Threshold: thr})
	}

	quiet := zerolog.New(os.Stderr).Level(zerolog.WarnLevel)
	rows := make([]stateRow, 0, len(specs))
	for _, spec := range specs {
		e, err := sensor.New(spec, o, quiet)
		if err != nil {
			return err
		}
		u := e.Advance(at)
		row := stateRow{Name: e.Name(), Kind: spec.Kind, State: u.State}
		if u.Scheduled() {
			next := u.NextChange.In(o.Location())
			row.NextChange = &next
		}
		if stateVerbose || stateJSON {
			row.Attributes = u.Attrs
		}
		rows = append(rows, row)
	}

	if stateJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"latitude":  p.Latitude,
			"longitude": p.Longitude,
			"timezone":  o.Location().String(),
			"time":      at,
			"sensors":   rows,
		})
	}

	fmt.Printf("Sun sensors for lat=%.6f lon=%.6f\n", p.Latitude, p.Longitude)
	fmt.Printf("At: %s (%s)\n\n", at.Format(time.RFC3339), o.Location())
	for _, r := range rows {
		next := "never"
		if r.NextChange != nil {
			next = r.NextChange.Format(time.RFC3339)
		}
		fmt.Printf("%-24s %-28s next %s\n", r.Name, formatState(r.State), next)
		if stateVerbose {
			keys := make([]string, 0, len(r.Attributes))
			for k := range r.Attributes {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Printf("    %-20s %s\n", k, formatState(r.Attributes[k]))
			}
		}
	}
	return nil
}

func formatState(v any) string {
	switch x := v.(type) {
	case nil:
		return "unknown"
	case time.Time:
		return x.Format(time.RFC3339)
	case float64:
		return fmt.Sprintf("%g", x)
	default:
		return fmt.Sprint(x)
	}
}
