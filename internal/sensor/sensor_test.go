package sensor

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thurmanmarka/suntrack/internal/curve"
	"github.com/thurmanmarka/suntrack/internal/oracle"
	"github.com/thurmanmarka/suntrack/internal/sun"
	"github.com/thurmanmarka/suntrack/internal/timeutil"
)

var nycParams = oracle.Params{Latitude: 40.7128, Longitude: -74.0060, TimeZone: "America/New_York"}

func newYork(t *testing.T) *sun.Oracle {
	t.Helper()
	o, err := sun.New(nycParams)
	require.NoError(t, err)
	return o
}

func testLogger() (zerolog.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return zerolog.New(buf).Level(zerolog.DebugLevel), buf
}

// wakes drives e from start until end the way a host would, returning every
// instant Advance ran at.
func wakes(t *testing.T, e Engine, start, end time.Time) []time.Time {
	t.Helper()
	var out []time.Time
	now := start
	for now.Before(end) {
		out = append(out, now)
		u := e.Advance(now)
		require.True(t, u.Scheduled(), "%s stopped scheduling at %s", e.Name(), now)
		require.True(t, u.NextChange.After(now), "%s: next change %s not after %s", e.Name(), u.NextChange, now)
		now = u.NextChange
	}
	return out
}

func TestBinaryAboveHorizonScenario(t *testing.T) {
	o := newYork(t)
	log, _ := testLogger()
	b := NewBinary("above_horizon", o, oracle.SunsetElevation, log)

	midnight := time.Date(2024, time.December, 1, 0, 0, 0, 0, time.UTC)
	u := b.Advance(midnight)
	assert.Equal(t, false, u.State)
	assert.Equal(t, IconNight, u.Icon)

	noon, err := o.Extremum(time.Date(2024, time.December, 1, 0, 0, 0, 0, o.Location()), oracle.SolarNoon)
	require.NoError(t, err)

	require.True(t, u.Scheduled())
	assert.True(t, u.NextChange.After(midnight), "next change %s", u.NextChange)
	assert.True(t, u.NextChange.Before(noon), "next change %s not before solar noon %s", u.NextChange, noon)
	assert.Equal(t, u.NextChange, u.Attrs[AttrNextChange])

	u2 := b.Advance(u.NextChange)
	assert.Equal(t, true, u2.State)
	assert.Equal(t, IconSunny, u2.Icon)
	assert.True(t, u2.NextChange.After(noon), "sunset %s should follow noon", u2.NextChange)
}

func TestBinaryUnreachable(t *testing.T) {
	o := newYork(t)
	log, buf := testLogger()
	b := NewBinary("above_85", o, 85, log)

	now := time.Date(2024, time.December, 1, 0, 0, 0, 0, time.UTC)
	u := b.Advance(now)
	assert.Equal(t, false, u.State)
	assert.False(t, u.Scheduled())
	assert.Nil(t, u.Attrs[AttrNextChange])
	assert.True(t, b.Unreachable())

	// A forced resample must not repeat the diagnostic.
	u = b.Advance(now.Add(time.Hour))
	assert.False(t, u.Scheduled())
	assert.Equal(t, 1, strings.Count(buf.String(), "never reaches threshold"))
}

func TestBinaryFarAwayWarns(t *testing.T) {
	o, err := sun.New(oracle.Params{Latitude: 69.6492, Longitude: 18.9553, TimeZone: "Europe/Oslo"})
	require.NoError(t, err)
	log, buf := testLogger()
	b := NewBinary("above_horizon", o, oracle.SunsetElevation, log)

	u := b.Advance(time.Date(2024, time.December, 10, 12, 0, 0, 0, time.UTC))
	assert.Equal(t, false, u.State)
	assert.True(t, u.Scheduled())
	assert.Contains(t, buf.String(), "will not reach threshold again")
}

func TestParseThreshold(t *testing.T) {
	v, err := ParseThreshold("horizon")
	require.NoError(t, err)
	assert.Equal(t, oracle.SunsetElevation, v)

	v, err = ParseThreshold(" -6 ")
	require.NoError(t, err)
	assert.Equal(t, -6.0, v)

	_, err = ParseThreshold("high")
	assert.Error(t, err)
	_, err = ParseThreshold("91")
	assert.Error(t, err)

	assert.Equal(t, "Above horizon", BinaryName("horizon"))
	assert.Equal(t, "Above minus 6 deg", BinaryName("-6"))
	assert.Equal(t, "Above 10.5 deg", BinaryName("10.5"))
}

func TestNextStep(t *testing.T) {
	tests := []struct {
		rnd    float64
		rising bool
		want   float64
	}{
		{10.0, true, 10.5},
		{10.2, true, 10.5},
		{-3.0, true, -2.5},
		{-1.2, true, -1.0},
		{-0.9, true, oracle.SunsetElevation + curve.TolElevation},
		{-0.8, true, -0.5},
		{10.0, false, 9.5},
		{10.3, false, 10.0},
		{0.0, false, -0.5},
		{-0.5, false, oracle.SunsetElevation - curve.TolElevation},
		{-0.9, false, -1.0},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, nextStep(tt.rnd, tt.rising), 1e-9, "rnd %v rising %v", tt.rnd, tt.rising)
	}
}

func TestElevationWakeSpacingAdapts(t *testing.T) {
	o := newYork(t)
	log, _ := testLogger()
	e := NewElevation("elevation", o, log)

	date := time.Date(2024, time.March, 20, 0, 0, 0, 0, o.Location())
	sunrise, err := oracle.Sunrise(o, date)
	require.NoError(t, err)
	noon, err := o.Extremum(date, oracle.SolarNoon)
	require.NoError(t, err)

	all := wakes(t, e, sunrise.Add(-3*time.Hour), noon.Add(time.Hour))

	meanInterval := func(from, to time.Time) time.Duration {
		var sum time.Duration
		n := 0
		for i := 1; i < len(all); i++ {
			if !all[i-1].Before(from) && all[i].Before(to) {
				sum += all[i].Sub(all[i-1])
				n++
			}
		}
		require.NotZero(t, n)
		return sum / time.Duration(n)
	}

	nearSunrise := meanInterval(sunrise.Add(-30*time.Minute), sunrise.Add(30*time.Minute))
	nearNoon := meanInterval(noon.Add(-45*time.Minute), noon.Add(45*time.Minute))
	t.Logf("mean wake interval: sunrise %v, noon %v", nearSunrise, nearNoon)

	assert.Less(t, nearSunrise, FallbackDelta)
	assert.Less(t, nearSunrise, nearNoon)

	// The segment boundary itself is always visited.
	visited := false
	for _, w := range all {
		visited = visited || w.Equal(noon)
	}
	assert.True(t, visited, "solar noon %s never visited", noon)
}

func TestElevationTracksSteps(t *testing.T) {
	o := newYork(t)
	log, _ := testLogger()
	e := NewElevation("elevation", o, log)

	start := time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC) // 08:00 EDT, climbing
	u1 := e.Advance(start)
	u2 := e.Advance(u1.NextChange)
	u3 := e.Advance(u2.NextChange)

	// With a tracking point the wake lands on a half-degree step.
	target := nextStep(u2.State.(float64), true)
	assert.InDelta(t, target, o.Elevation(u2.NextChange), 2*curve.TolElevation)
	assert.InDelta(t, target, u3.State.(float64), 0.051)
	assert.Equal(t, IconSunny, u3.Icon)
}

func TestPhaseBatchCompleteness(t *testing.T) {
	o := newYork(t)
	log, _ := testLogger()

	for _, set := range []PhaseSet{SunPhase(), DeconzDaylight()} {
		t.Run(set.Key, func(t *testing.T) {
			s := NewPhase(set.Key, set, o, log)

			seg, err := curve.Locate(o, time.Date(2024, time.March, 20, 6, 0, 0, 0, time.UTC))
			require.NoError(t, err)
			require.True(t, seg.Rising)

			u := s.Advance(seg.Left)
			assert.Equal(t, set.Nadir.Name, u.State)

			check := func(rising bool) {
				q := s.Pending()
				require.Len(t, q, len(set.Thresholds)+1)
				assert.Nil(t, q[len(q)-1].Phase, "last entry must be the resegment marker")

				for i, tr := range q[:len(q)-1] {
					th := set.Thresholds[i]
					want := th.Rising
					if !rising {
						th = set.Thresholds[len(set.Thresholds)-1-i]
						want = th.Falling
					}
					require.NotNil(t, tr.Phase)
					assert.Equal(t, want, *tr.Phase, "entry %d", i)
					assert.InDelta(t, th.Elevation(o.Params(), rising), o.Elevation(tr.When), 2*set.Tolerance)
					if i > 0 {
						assert.True(t, tr.When.After(q[i-1].When), "entry %d out of order", i)
					}
				}
			}
			check(true)

			// Walk to the marker at solar noon and replan for the falling side.
			var states []Phase
			now := seg.Left
			states = append(states, s.current)
			for now.Before(seg.Right) {
				u = s.Advance(now)
				if states[len(states)-1].Name != s.current.Name || !equalAttrs(states[len(states)-1].Attrs, s.current.Attrs) {
					states = append(states, s.current)
				}
				now = u.NextChange
			}
			u = s.Advance(now)
			assert.Equal(t, set.Zenith.Name, u.State)
			check(false)

			for i := 1; i < len(states); i++ {
				assert.False(t, states[i].Name == states[i-1].Name && equalAttrs(states[i].Attrs, states[i-1].Attrs),
					"duplicate consecutive phase %s", states[i].Name)
			}
		})
	}
}

func equalAttrs(a, b map[string]any) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}

func TestPhaseAtMidday(t *testing.T) {
	o := newYork(t)
	log, _ := testLogger()

	now := time.Date(2024, time.March, 20, 16, 0, 0, 0, time.UTC) // noon EDT, before solar noon
	s := NewPhase("sun_phase", SunPhase(), o, log)
	u := s.Advance(now)
	assert.Equal(t, "day", u.State)
	assert.Equal(t, true, u.Attrs["rising"])
	assert.Equal(t, false, u.Attrs["golden_hour"])
	assert.Equal(t, IconSunny, u.Icon)

	// Only the marker is left before solar noon.
	require.Len(t, s.Pending(), 1)

	d := NewPhase("deconz_daylight", DeconzDaylight(), o, log)
	assert.Equal(t, "golden_hour_1", d.Advance(now).State)
}

func TestPhaseLateFireCatchesUp(t *testing.T) {
	o := newYork(t)
	log, _ := testLogger()
	s := NewPhase("sun_phase", SunPhase(), o, log)

	start := time.Date(2024, time.March, 20, 8, 0, 0, 0, time.UTC)
	s.Advance(start)

	// Skip straight past several queued crossings, as after a suspend.
	u := s.Advance(time.Date(2024, time.March, 20, 11, 30, 0, 0, time.UTC))
	assert.Equal(t, "day", u.State)
	assert.True(t, u.NextChange.After(time.Date(2024, time.March, 20, 11, 30, 0, 0, time.UTC)))
}

func TestNoOpInvalidateIsIdempotent(t *testing.T) {
	log, _ := testLogger()
	t0 := time.Date(2024, time.March, 20, 10, 30, 0, 0, time.UTC)

	build := map[string]func(o oracle.Oracle) Engine{
		"binary":    func(o oracle.Oracle) Engine { return NewBinary("b", o, oracle.SunsetElevation, log) },
		"elevation": func(o oracle.Oracle) Engine { return NewElevation("e", o, log) },
		"phase":     func(o oracle.Oracle) Engine { return NewPhase("p", SunPhase(), o, log) },
		"deconz":    func(o oracle.Oracle) Engine { return NewPhase("d", DeconzDaylight(), o, log) },
		"azimuth":   func(o oracle.Oracle) Engine { return NewAzimuth("a", o, log) },
		"daily":     func(o oracle.Oracle) Engine { return NewDaily("s", KindSunrise, o, log) },
	}

	for name, mk := range build {
		t.Run(name, func(t *testing.T) {
			plain := mk(newYork(t))
			touched := mk(newYork(t))

			u1 := plain.Advance(t0)
			v1 := touched.Advance(t0)
			require.Equal(t, u1.NextChange, v1.NextChange)

			touched.Invalidate(newYork(t))

			t1 := u1.NextChange
			u2 := plain.Advance(t1)
			v2 := touched.Advance(t1)
			assert.Equal(t, u2.State, v2.State)
			assert.Equal(t, u2.NextChange, v2.NextChange)
		})
	}
}

func TestInvalidateClearsQueue(t *testing.T) {
	log, _ := testLogger()
	s := NewPhase("p", SunPhase(), newYork(t), log)
	s.Advance(time.Date(2024, time.March, 20, 6, 0, 0, 0, time.UTC))
	require.NotEmpty(t, s.Pending())

	moved := nycParams
	moved.Latitude = 51.5
	other, err := sun.New(moved)
	require.NoError(t, err)

	s.Invalidate(other)
	assert.Empty(t, s.Pending())
}

func TestAzimuthDelta(t *testing.T) {
	assert.Equal(t, 4*time.Minute, azimuthDelta(45))
	assert.Equal(t, 2*time.Minute, azimuthDelta(5))
	assert.Equal(t, 4*time.Minute, azimuthDelta(-3))
	assert.Equal(t, 8*time.Minute, azimuthDelta(-12))
	assert.Equal(t, 20*time.Minute, azimuthDelta(-40))

	o := newYork(t)
	log, _ := testLogger()
	noon, err := o.Extremum(time.Date(2024, time.March, 20, 0, 0, 0, 0, o.Location()), oracle.SolarNoon)
	require.NoError(t, err)

	a := NewAzimuth("azimuth", o, log)
	u := a.Advance(noon)
	assert.InDelta(t, 180, u.State.(float64), 0.5)
	assert.Equal(t, 4*time.Minute, u.NextChange.Sub(noon))
}

func TestDailySensors(t *testing.T) {
	log, _ := testLogger()
	o := newYork(t)
	loc := o.Location()
	now := time.Date(2024, time.June, 20, 10, 0, 0, 0, loc)
	today := time.Date(2024, time.June, 20, 0, 0, 0, 0, loc)
	tomorrow := today.AddDate(0, 0, 1)

	sunrise, err := oracle.Sunrise(o, today)
	require.NoError(t, err)
	sunset, err := oracle.Sunset(o, today)
	require.NoError(t, err)
	nextSunrise, err := oracle.Sunrise(o, tomorrow)
	require.NoError(t, err)

	tests := []struct {
		name  string
		eng   *Daily
		check func(t *testing.T, u Update)
	}{
		{"sunrise", NewDaily("s", KindSunrise, o, log), func(t *testing.T, u Update) {
			want := time.Date(2024, time.June, 20, 5, 25, 0, 0, loc)
			assert.WithinDuration(t, want, u.State.(time.Time), 3*time.Minute)
		}},
		{"sunset", NewDaily("s", KindSunset, o, log), func(t *testing.T, u Update) {
			want := time.Date(2024, time.June, 20, 20, 31, 0, 0, loc)
			assert.WithinDuration(t, want, u.State.(time.Time), 3*time.Minute)
		}},
		{"daylight", NewDaily("d", KindDaylight, o, log), func(t *testing.T, u Update) {
			h := u.State.(float64)
			assert.InDelta(t, 15.1, h, 0.1)
			assert.InDelta(t, sunset.Sub(sunrise).Hours(), h, 1e-9)
			assert.Equal(t, timeutil.HoursToHMS(h), u.Attrs[AttrToday+"_hms"])
			assert.NotNil(t, u.Attrs[AttrYesterday+"_hms"])
		}},
		{"civil daylight is longer", NewDaily("d", KindCivilDaylight, o, log), func(t *testing.T, u Update) {
			assert.Greater(t, u.State.(float64), sunset.Sub(sunrise).Hours())
		}},
		{"night spans into the next date", NewDaily("n", KindNight, o, log), func(t *testing.T, u Update) {
			h := u.State.(float64)
			assert.InDelta(t, 8.9, h, 0.1)
			assert.InDelta(t, nextSunrise.Sub(sunset).Hours(), h, 1e-9)
		}},
		{"min elevation", NewDaily("m", KindMinElevation, o, log), func(t *testing.T, u Update) {
			assert.InDelta(t, -25.85, u.State.(float64), 0.3)
		}},
		{"max elevation", NewDaily("m", KindMaxElevation, o, log), func(t *testing.T, u Update) {
			assert.InDelta(t, 72.7, u.State.(float64), 0.3)
		}},
		{"sunrise azimuth", NewDaily("a", KindSunriseAzimuth, o, log), func(t *testing.T, u Update) {
			assert.InDelta(t, 58, u.State.(float64), 1.5)
		}},
		{"sunset azimuth", NewDaily("a", KindSunsetAzimuth, o, log), func(t *testing.T, u Update) {
			assert.InDelta(t, 302, u.State.(float64), 1.5)
		}},
		{"time at elevation", NewTimeAtElevation("t", 10, oracle.Rising, o, log), func(t *testing.T, u Update) {
			at := u.State.(time.Time)
			assert.InDelta(t, 10, o.Elevation(at), 0.05)
			assert.True(t, at.After(sunrise))
			assert.Equal(t, IconSunsetUp, u.Icon)
		}},
		{"elevation at time", NewElevationAtTime("e", 12*time.Hour, o, log), func(t *testing.T, u Update) {
			noonish := time.Date(2024, time.June, 20, 12, 0, 0, 0, loc)
			assert.Equal(t, roundTo(o.Elevation(noonish), 2), u.State)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := tt.eng.Advance(now)
			require.NotNil(t, u.State)
			tt.check(t, u)
			assert.Equal(t, u.State, u.Attrs[AttrToday])
			assert.Contains(t, u.Attrs, AttrYesterday)
			assert.Contains(t, u.Attrs, AttrTomorrow)
			assert.True(t, tomorrow.Equal(u.NextChange), "next change %s", u.NextChange)
		})
	}
}

func TestDailyYesterdayTomorrow(t *testing.T) {
	log, _ := testLogger()
	o := newYork(t)
	now := time.Date(2024, time.June, 20, 23, 59, 0, 0, o.Location())

	u := NewDaily("s", KindSunrise, o, log).Advance(now)
	yesterday := u.Attrs[AttrYesterday].(time.Time)
	today := u.Attrs[AttrToday].(time.Time)
	tomorrow := u.Attrs[AttrTomorrow].(time.Time)

	assert.InDelta(t, 24, today.Sub(yesterday).Hours(), 0.05)
	assert.InDelta(t, 24, tomorrow.Sub(today).Hours(), 0.05)

	// The wake-up at local midnight shifts every value by one day.
	next := NewDaily("s", KindSunrise, o, log).Advance(u.NextChange)
	assert.True(t, today.Equal(next.Attrs[AttrYesterday].(time.Time)))
	assert.True(t, tomorrow.Equal(next.State.(time.Time)))
	assert.True(t, time.Date(2024, time.June, 22, 0, 0, 0, 0, o.Location()).Equal(next.NextChange))
}

func TestDailyAzimuthIgnoresObserverHorizon(t *testing.T) {
	log, _ := testLogger()
	hilly := nycParams
	hilly.East = oracle.ObserverElevation{Height: 500, Distance: 2000}
	obstructed, err := sun.New(hilly)
	require.NoError(t, err)
	o := newYork(t)
	now := time.Date(2024, time.June, 20, 10, 0, 0, 0, o.Location())

	plain := NewDaily("a", KindSunriseAzimuth, o, log).Advance(now)
	shaded := NewDaily("a", KindSunriseAzimuth, obstructed, log).Advance(now)
	assert.Equal(t, plain.State, shaded.State)

	rise := NewDaily("s", KindSunrise, o, log).Advance(now)
	late := NewDaily("s", KindSunrise, obstructed, log).Advance(now)
	assert.True(t, late.State.(time.Time).After(rise.State.(time.Time)))
}

func TestDailyPolarDates(t *testing.T) {
	log, buf := testLogger()
	o, err := sun.New(oracle.Params{Latitude: 69.6492, Longitude: 18.9553, TimeZone: "Europe/Oslo"})
	require.NoError(t, err)
	winter := time.Date(2024, time.December, 21, 10, 0, 0, 0, o.Location())
	summer := time.Date(2024, time.June, 21, 10, 0, 0, 0, o.Location())

	tests := []struct {
		name    string
		kind    Kind
		now     time.Time
		defined bool
	}{
		{"no sunrise in polar night", KindSunrise, winter, false},
		{"no daylight in polar night", KindDaylight, winter, false},
		{"no sunrise azimuth in polar night", KindSunriseAzimuth, winter, false},
		{"civil twilight still happens", KindCivilDaylight, winter, true},
		{"max elevation below horizon", KindMaxElevation, winter, true},
		{"no sunset under midnight sun", KindSunset, summer, false},
		{"no night under midnight sun", KindNight, summer, false},
		{"min elevation above horizon", KindMinElevation, summer, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := NewDaily("p", tt.kind, o, log).Advance(tt.now)
			if !tt.defined {
				assert.Nil(t, u.State)
				assert.Nil(t, u.Attrs[AttrToday])
				if tt.kind.isPeriod() {
					assert.Nil(t, u.Attrs[AttrToday+"_hms"])
				}
			} else {
				assert.NotNil(t, u.State)
			}
			assert.True(t, u.Scheduled(), "daily sensors keep waking at midnight")
		})
	}

	maxElev := NewDaily("m", KindMaxElevation, o, log).Advance(winter).State.(float64)
	assert.InDelta(t, -3.1, maxElev, 0.5)
	minElev := NewDaily("m", KindMinElevation, o, log).Advance(summer).State.(float64)
	assert.InDelta(t, 3.1, minElev, 0.5)

	assert.NotContains(t, buf.String(), `"level":"error"`, "undefined events are not errors")
}
