package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/thurmanmarka/suntrack/internal/config"
	"github.com/thurmanmarka/suntrack/internal/events"
	"github.com/thurmanmarka/suntrack/internal/host"
	"github.com/thurmanmarka/suntrack/internal/service"
)

var (
	simLoc   locationFlags
	simFrom  string
	simFor   time.Duration
	simKinds []string
	simAbove []string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Replay the sensor schedule on a virtual clock",
	Long: `Run the sensors of one location on a virtual clock and print every state
change, exactly as the server would publish them, without waiting.

Examples:
  suntrack simulate --lat 40.7128 --lon -74.0060 --tz America/New_York --from 2024-12-01 --for 48h
  suntrack simulate --location home --kinds sun_phase,above --above -6
`,
	RunE: runSimulate,
}

func init() {
	simLoc.register(simulateCmd)
	simulateCmd.Flags().StringVar(&simFrom, "from", "", "start instant (RFC3339 or YYYY-MM-DD local), defaults to now")
	simulateCmd.Flags().DurationVar(&simFor, "for", 24*time.Hour, "how long to simulate")
	simulateCmd.Flags().StringSliceVar(&simKinds, "kinds", []string{"sun_phase", "deconz_daylight", "above"}, "sensor kinds to print")
	simulateCmd.Flags().StringSliceVar(&simAbove, "above", []string{"horizon"}, "above-elevation thresholds to simulate")
	rootCmd.AddCommand(simulateCmd)
}

func runSimulate(cmd *cobra.Command, args []string) error {
	p, err := simLoc.params()
	if err != nil {
		return err
	}
	loc, err := p.LoadLocation()
	if err != nil {
		return err
	}
	start, err := parseInstant(simFrom, loc)
	if err != nil {
		return err
	}
	end := start.Add(simFor)

	l := config.Location{Name: "sim", Params: p}
	for _, thr := range simAbove {
		l.Sensors = append(l.Sensors, config.SensorConfig{Kind: "above", Elevation: config.Elevation(thr)})
	}
	simCfg := &config.Config{Locations: []config.Location{l}}
	if err := simCfg.Validate(); err != nil {
		return err
	}

	want := make(map[string]bool, len(simKinds))
	for _, k := range simKinds {
		want[k] = true
	}

	clock := host.NewManual(start)
	log := zerolog.New(os.Stderr).Level(zerolog.WarnLevel)
	svc, err := service.New(simCfg, clock, nil, log)
	if err != nil {
		return err
	}
	kinds := make(map[string]string)
	changes := svc.Bus().Subscribe(events.EventStateChanged)

	svc.Start()
	for _, s := range svc.Sensors() {
		kinds[s.ID] = string(s.Kind)
	}

	flush := func() {
		for {
			select {
			case ev := <-changes:
				id, _ := ev["sensor_id"].(string)
				if !want[kinds[id]] {
					continue
				}
				fmt.Printf("%s  %-24s %s\n", clock.Now().In(loc).Format(time.RFC3339), ev["sensor"], formatState(ev["state"]))
			default:
				return
			}
		}
	}

	flush()
	fires := 0
	for {
		next, ok := clock.Next()
		if !ok || next.After(end) {
			break
		}
		clock.Step()
		fires++
		flush()
	}
	fmt.Printf("\n%d wake-ups over %s\n", fires, simFor)
	return nil
}
