package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/thurmanmarka/suntrack/internal/curve"
	"github.com/thurmanmarka/suntrack/internal/sensor"
	"github.com/thurmanmarka/suntrack/internal/sun"
)

var (
	segLoc        locationFlags
	segTime       string
	segThresholds []string
	segPhases     string
	segCount      int
)

var segmentCmd = &cobra.Command{
	Use:   "segment",
	Short: "Show the elevation curve segment around an instant",
	Long: `Print the monotonic segment of the elevation curve holding an instant and
the following ones, the next crossing of each --threshold, and the queued
transitions of a phase set.

Examples:
  suntrack segment --lat 69.6492 --lon 18.9553 --tz Europe/Oslo --threshold horizon
  suntrack segment --location home --phases deconz_daylight --count 4
`,
	RunE: runSegment,
}

func init() {
	segLoc.register(segmentCmd)
	segmentCmd.Flags().StringVar(&segTime, "time", "", "instant (RFC3339 or YYYY-MM-DDTHH:MM local), defaults to now")
	segmentCmd.Flags().StringSliceVar(&segThresholds, "threshold", nil, "elevations to find the next crossing of (degrees or horizon)")
	segmentCmd.Flags().StringVar(&segPhases, "phases", "sun_phase", "phase set to plan: sun_phase or deconz_daylight")
	segmentCmd.Flags().IntVar(&segCount, "count", 2, "number of segments to print")
	rootCmd.AddCommand(segmentCmd)
}

func runSegment(cmd *cobra.Command, args []string) error {
	p, err := segLoc.params()
	if err != nil {
		return err
	}
	o, err := sun.New(p)
	if err != nil {
		return err
	}
	now, err := parseInstant(segTime, o.Location())
	if err != nil {
		return err
	}
	loc := o.Location()

	fmt.Printf("Elevation at %s: %.3f°\n\n", now.Format(time.RFC3339), o.Elevation(now))

	seg, err := curve.Locate(o, now)
	if err != nil {
		return err
	}
	for i := 0; i < segCount; i++ {
		dir := "falling"
		if seg.Rising {
			dir = "rising"
		}
		fmt.Printf("Segment %d (%s)\n", i, dir)
		fmt.Printf("  left : %s  %8.3f°\n", seg.Left.In(loc).Format(time.RFC3339), seg.LeftElev)
		fmt.Printf("  right: %s  %8.3f°\n", seg.Right.In(loc).Format(time.RFC3339), seg.RightElev)
		if seg, err = curve.Next(o, seg); err != nil {
			return err
		}
	}

	if len(segThresholds) > 0 {
		fmt.Println("\nNext threshold changes:")
	}
	for _, raw := range segThresholds {
		thr, err := sensor.ParseThreshold(raw)
		if err != nil {
			return err
		}
		above := o.Elevation(now) > thr
		next, err := curve.NextChange(o, now, thr, !above)
		switch {
		case errors.Is(err, curve.ErrUnreachable):
			fmt.Printf("  %8.3f°: never within %v\n", thr, curve.LookAhead)
		case err != nil:
			return err
		default:
			fmt.Printf("  %8.3f°: %s (%s)\n", thr, next.In(loc).Format(time.RFC3339), next.Sub(now).Round(time.Second))
		}
	}

	set, ok := sensor.PhaseSetByKey(segPhases)
	if !ok {
		return fmt.Errorf("unknown phase set %q", segPhases)
	}
	ps := sensor.NewPhase(set.Key, set, o, zerolog.New(os.Stderr).Level(zerolog.WarnLevel))
	u := ps.Advance(now)
	fmt.Printf("\nPhase (%s): %v\n", set.Key, u.State)
	for _, tr := range ps.Pending() {
		if tr.Phase == nil {
			fmt.Printf("  %s  replan at extremum\n", tr.When.In(loc).Format(time.RFC3339))
			continue
		}
		fmt.Printf("  %s  %-22s %.3f°\n", tr.When.In(loc).Format(time.RFC3339), tr.Phase.Name, o.Elevation(tr.When))
	}
	return nil
}
