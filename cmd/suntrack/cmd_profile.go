package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"log"
	"math"
	"os"
	"strings"
	"time"

	"github.com/nathan-osman/go-sunrise"
	"github.com/spf13/cobra"

	"github.com/thurmanmarka/suntrack/internal/oracle"
	"github.com/thurmanmarka/suntrack/internal/sun"
	"github.com/thurmanmarka/suntrack/internal/timeutil"
)

var (
	profLoc      locationFlags
	profYear     int
	profRefCSV   string
	profTwilight string
	profOutCSV   string
	profVerbose  bool
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Compare the solar model against reference rise/set times",
	Long: `Compare computed sunrise/sunset (or dawn/dusk) against a reference ephemeris
and print error statistics in minutes.

Without --refcsv the reference is the go-sunrise model for every day of --year.

CSV format:

  date,rise,set
  2025-01-01,07:32,17:12
  2025-01-02,07:32,17:13

date is YYYY-MM-DD; rise/set are local HH:MM or HH:MM:SS in --tz.
`,
	RunE: runProfile,
}

func init() {
	profLoc.register(profileCmd)
	profileCmd.Flags().IntVar(&profYear, "year", time.Now().Year(), "year to profile when no reference CSV is given")
	profileCmd.Flags().StringVar(&profRefCSV, "refcsv", "", "path to reference ephemeris CSV file (date,rise,set)")
	profileCmd.Flags().StringVar(&profTwilight, "twilight", "", "compare dawn/dusk instead: civil, nautical or astronomical")
	profileCmd.Flags().StringVar(&profOutCSV, "outcsv", "", "optional path to write per-row error CSV")
	profileCmd.Flags().BoolVar(&profVerbose, "verbose", false, "print per-day errors instead of only the summary")
	rootCmd.AddCommand(profileCmd)
}

type stats struct {
	count int
	sum   float64
	min   float64
	max   float64
}

func (s *stats) add(v float64) {
	if math.IsNaN(v) {
		return
	}
	if s.count == 0 {
		s.min, s.max = v, v
	} else {
		s.min = math.Min(s.min, v)
		s.max = math.Max(s.max, v)
	}
	s.sum += v
	s.count++
}

func (s *stats) mean() float64 {
	if s.count == 0 {
		return math.NaN()
	}
	return s.sum / float64(s.count)
}

func (s *stats) print(title, meanLabel string) {
	fmt.Printf("\n%s:\n", title)
	fmt.Printf("  count: %d\n", s.count)
	fmt.Printf("  min:   %.3f\n", s.min)
	fmt.Printf("  max:   %.3f\n", s.max)
	fmt.Printf("  %-5s  %.3f\n", meanLabel+":", s.mean())
}

// diffMinutes is a - b in minutes, NaN when either is missing.
func diffMinutes(a, b time.Time) float64 {
	if a.IsZero() || b.IsZero() {
		return math.NaN()
	}
	return a.Sub(b).Minutes()
}

// refDay is one reference row.
type refDay struct {
	date      time.Time
	rise, set time.Time
}

func runProfile(cmd *cobra.Command, args []string) error {
	p, err := profLoc.params()
	if err != nil {
		return err
	}
	o, err := sun.New(p)
	if err != nil {
		return err
	}
	loc := o.Location()

	depression := 0.0
	mode := "SUNRISE/SUNSET"
	if profTwilight != "" {
		switch strings.ToLower(profTwilight) {
		case "civil":
			depression = oracle.CivilDepression
		case "nautical":
			depression = oracle.NauticalDepression
		case "astronomical":
			depression = oracle.AstronomicalDepression
		default:
			return fmt.Errorf("unknown twilight kind %q (use civil, nautical, or astronomical)", profTwilight)
		}
		mode = "SUN (" + strings.ToUpper(profTwilight) + " TWILIGHT)"
	}

	var days []refDay
	var skipped int
	source := profRefCSV
	if profRefCSV != "" {
		days, skipped, err = readReference(profRefCSV, loc)
		if err != nil {
			return err
		}
	} else {
		if depression != 0 {
			return errors.New("--twilight needs a --refcsv reference")
		}
		source = fmt.Sprintf("go-sunrise %d", profYear)
		days = goSunriseReference(p, profYear, loc)
	}

	var outWriter *csv.Writer
	if profOutCSV != "" {
		outFile, err := os.Create(profOutCSV)
		if err != nil {
			return fmt.Errorf("create outcsv %q: %w", profOutCSV, err)
		}
		defer outFile.Close()
		outWriter = csv.NewWriter(outFile)
		defer outWriter.Flush()
		if err := outWriter.Write([]string{"date", "mode", "rise_err", "set_err"}); err != nil {
			return fmt.Errorf("write outcsv header: %w", err)
		}
	}

	var riseAbs, setAbs, riseSigned, setSigned stats
	for _, d := range days {
		var rise, set time.Time
		var rerr, serr error
		if depression == 0 {
			rise, rerr = oracle.Sunrise(o, d.date)
			set, serr = oracle.Sunset(o, d.date)
		} else {
			rise, rerr = oracle.Dawn(o, d.date, depression)
			set, serr = oracle.Dusk(o, d.date, depression)
		}
		if rerr != nil || serr != nil {
			// Polar days and nights: compare what exists.
			if profVerbose {
				log.Printf("%s: %v %v", d.date.Format(time.DateOnly), rerr, serr)
			}
		}

		re := diffMinutes(rise, d.rise)
		se := diffMinutes(set, d.set)
		riseSigned.add(re)
		setSigned.add(se)
		riseAbs.add(math.Abs(re))
		setAbs.add(math.Abs(se))

		if profVerbose {
			fmt.Printf("%s %s: rise err=%.2f min (got=%s ref=%s), set err=%.2f min (got=%s ref=%s)\n",
				d.date.Format(time.DateOnly), mode,
				re, clock(rise, loc), clock(d.rise, loc),
				se, clock(set, loc), clock(d.set, loc))
		}
		if outWriter != nil {
			if err := outWriter.Write([]string{
				d.date.Format(time.DateOnly), mode,
				fmt.Sprintf("%.6f", re), fmt.Sprintf("%.6f", se),
			}); err != nil {
				log.Printf("%s: failed to write outcsv: %v", d.date.Format(time.DateOnly), err)
			}
		}
	}

	fmt.Println("=== suntrack profiler summary ===")
	fmt.Printf("Mode:    %s\n", mode)
	fmt.Printf("Ref:     %s\n", source)
	fmt.Printf("Lat/Lon: %.4f / %.4f\n", p.Latitude, p.Longitude)
	fmt.Printf("TZ:      %s\n", loc.String())
	fmt.Printf("Rows:    %d (processed), %d skipped\n", len(days), skipped)

	if riseAbs.count == 0 && setAbs.count == 0 {
		fmt.Println("No valid rows to compute stats.")
		return nil
	}
	riseAbs.print("Rise error (minutes)", "avg")
	setAbs.print("Set error (minutes)", "avg")
	riseSigned.print("Rise signed error (minutes, ours - ref)", "mean")
	setSigned.print("Set signed error (minutes, ours - ref)", "mean")
	return nil
}

func clock(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return "--:--"
	}
	return t.In(loc).Format("15:04")
}

func readReference(path string, loc *time.Location) ([]refDay, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open refcsv %q: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // variable, validated per row
	records, err := r.ReadAll()
	if err != nil {
		return nil, 0, fmt.Errorf("read CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, 0, errors.New("empty CSV file")
	}

	startIdx := 0
	if len(records[0]) >= 1 && strings.EqualFold(records[0][0], "date") {
		startIdx = 1
	}

	var days []refDay
	skipped := 0
	for i := startIdx; i < len(records); i++ {
		row := records[i]
		if len(row) < 3 {
			log.Printf("row %d: expected at least 3 columns (date,rise,set), got %d, skipping", i+1, len(row))
			skipped++
			continue
		}
		date, err := time.ParseInLocation(time.DateOnly, strings.TrimSpace(row[0]), loc)
		if err != nil {
			log.Printf("row %d: invalid date %q: %v, skipping", i+1, row[0], err)
			skipped++
			continue
		}
		rise, err := parseLocalTime(date, strings.TrimSpace(row[1]), loc)
		if err != nil {
			log.Printf("row %d: invalid rise time %q: %v, skipping", i+1, row[1], err)
			skipped++
			continue
		}
		set, err := parseLocalTime(date, strings.TrimSpace(row[2]), loc)
		if err != nil {
			log.Printf("row %d: invalid set time %q: %v, skipping", i+1, row[2], err)
			skipped++
			continue
		}
		days = append(days, refDay{date: date, rise: rise, set: set})
	}
	return days, skipped, nil
}

// goSunriseReference builds a reference for every local date of year.
func goSunriseReference(p oracle.Params, year int, loc *time.Location) []refDay {
	var days []refDay
	first := time.Date(year, time.January, 1, 0, 0, 0, 0, loc)
	for d := first; d.Year() == year; d = timeutil.AddDays(d, 1) {
		rise, set := sunrise.SunriseSunset(p.Latitude, p.Longitude, d.Year(), d.Month(), d.Day())
		days = append(days, refDay{date: d, rise: rise, set: set})
	}
	return days
}

// parseLocalTime combines a date with an HH:MM[:SS] clock reading.
func parseLocalTime(date time.Time, hhmm string, loc *time.Location) (time.Time, error) {
	layout := "15:04"
	if strings.Count(hhmm, ":") == 2 {
		layout = "15:04:05"
	}
	parsed, err := time.ParseInLocation(layout, hhmm, loc)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(date.Year(), date.Month(), date.Day(),
		parsed.Hour(), parsed.Minute(), parsed.Second(), 0, loc), nil
}
