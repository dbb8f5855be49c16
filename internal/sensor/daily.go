package sensor

import (
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/thurmanmarka/suntrack/internal/oracle"
	"github.com/thurmanmarka/suntrack/internal/timeutil"
)

// Daily is a sensor whose value is a property of a civil date: an event time,
// a duration, an extreme elevation. It recomputes yesterday, today and
// tomorrow at every local midnight.
type Daily struct {
	name string
	kind Kind
	o    oracle.Oracle
	log  zerolog.Logger

	// time_at_elevation
	elevation float64
	dir       oracle.Direction
	// elevation_at_time, as an offset from local midnight
	at time.Duration
}

var _ Engine = (*Daily)(nil)

// NewDaily creates a daily sensor of a daily kind.
func NewDaily(name string, kind Kind, o oracle.Oracle, log zerolog.Logger) *Daily {
	return &Daily{name: name, kind: kind, o: o, log: log}
}

// NewTimeAtElevation creates a daily sensor for the instant the sun passes
// elevation in direction dir.
func NewTimeAtElevation(name string, elevation float64, dir oracle.Direction, o oracle.Oracle, log zerolog.Logger) *Daily {
	d := NewDaily(name, KindTimeAtElevation, o, log)
	d.elevation, d.dir = elevation, dir
	return d
}

// NewElevationAtTime creates a daily sensor for the elevation at a fixed
// local time of day.
func NewElevationAtTime(name string, at time.Duration, o oracle.Oracle, log zerolog.Logger) *Daily {
	d := NewDaily(name, KindElevationAtTime, o, log)
	d.at = at
	return d
}

func (d *Daily) Name() string { return d.name }

func (d *Daily) Advance(now time.Time) Update {
	loc := d.o.Location()
	today := timeutil.DateOf(now, loc)

	yesterday := d.value(timeutil.AddDays(today, -1))
	cur := d.value(today)
	tomorrow := d.value(timeutil.AddDays(today, 1))

	kv := map[string]any{
		AttrYesterday: yesterday,
		AttrToday:     cur,
		AttrTomorrow:  tomorrow,
	}
	if d.kind.isPeriod() {
		kv[AttrYesterday+"_hms"] = hms(yesterday)
		kv[AttrToday+"_hms"] = hms(cur)
		kv[AttrTomorrow+"_hms"] = hms(tomorrow)
	}

	next := timeutil.NextMidnight(now.In(loc))
	return Update{
		State:      cur,
		Icon:       d.icon(),
		NextChange: next,
		Attrs:      attrs(next, kv),
	}
}

func (d *Daily) Invalidate(o oracle.Oracle) {
	d.o = o
}

// value computes the sensor's value for a civil date; nil when the event does
// not happen that day.
func (d *Daily) value(date time.Time) any {
	v, err := d.compute(date)
	if err != nil {
		if !errors.Is(err, oracle.ErrUndefined) {
			d.log.Error().Err(err).Str("date", date.Format(time.DateOnly)).Msg("daily value")
		}
		return nil
	}
	return v
}

func (d *Daily) compute(date time.Time) (any, error) {
	o := d.o
	switch d.kind {
	case KindSolarMidnight:
		return o.Extremum(date, oracle.SolarMidnight)
	case KindSolarNoon:
		return o.Extremum(date, oracle.SolarNoon)
	case KindSunrise:
		return oracle.Sunrise(o, date)
	case KindSunset:
		return oracle.Sunset(o, date)
	case KindDawn:
		return oracle.Dawn(o, date, oracle.CivilDepression)
	case KindDusk:
		return oracle.Dusk(o, date, oracle.CivilDepression)
	case KindNauticalDawn:
		return oracle.Dawn(o, date, oracle.NauticalDepression)
	case KindNauticalDusk:
		return oracle.Dusk(o, date, oracle.NauticalDepression)
	case KindAstronomicalDawn:
		return oracle.Dawn(o, date, oracle.AstronomicalDepression)
	case KindAstronomicalDusk:
		return oracle.Dusk(o, date, oracle.AstronomicalDepression)

	case KindDaylight, KindCivilDaylight, KindNauticalDaylight, KindAstronomicalDaylight:
		return d.period(date, date, d.kind.depression(), true)
	case KindNight, KindCivilNight, KindNauticalNight, KindAstronomicalNight:
		return d.period(date, timeutil.AddDays(date, 1), d.kind.depression(), false)

	case KindMinElevation, KindMaxElevation:
		kind := oracle.SolarMidnight
		if d.kind == KindMaxElevation {
			kind = oracle.SolarNoon
		}
		t, err := o.Extremum(date, kind)
		if err != nil {
			return nil, err
		}
		return roundTo(o.Elevation(t), 3), nil

	case KindSunriseAzimuth, KindSunsetAzimuth:
		// The observer's horizon is ignored here, so the value stays usable
		// for deciding what that horizon should be.
		dir := oracle.Rising
		if d.kind == KindSunsetAzimuth {
			dir = oracle.Setting
		}
		t, err := o.CrossingTime(date, oracle.SunsetElevation, dir)
		if err != nil {
			return nil, err
		}
		return roundTo(o.Azimuth(t), 2), nil

	case KindTimeAtElevation:
		return o.CrossingTime(date, d.elevation, d.dir)

	case KindElevationAtTime:
		y, m, day := date.Date()
		at := time.Date(y, m, day, 0, 0, 0, 0, date.Location()).Add(d.at)
		return roundTo(o.Elevation(at), 2), nil
	}
	return nil, errors.New("unknown daily sensor kind " + string(d.kind))
}

// period is the length in hours from the morning crossing of startDate to
// the evening crossing of the same date (daylight), or from the evening
// crossing of startDate to the morning crossing of endDate (night).
func (d *Daily) period(startDate, endDate time.Time, depression float64, daylight bool) (any, error) {
	morning := func(date time.Time) (time.Time, error) {
		if depression == 0 {
			return oracle.Sunrise(d.o, date)
		}
		return oracle.Dawn(d.o, date, depression)
	}
	evening := func(date time.Time) (time.Time, error) {
		if depression == 0 {
			return oracle.Sunset(d.o, date)
		}
		return oracle.Dusk(d.o, date, depression)
	}

	var start, end time.Time
	var err error
	if daylight {
		if start, err = morning(startDate); err != nil {
			return nil, err
		}
		end, err = evening(endDate)
	} else {
		if start, err = evening(startDate); err != nil {
			return nil, err
		}
		end, err = morning(endDate)
	}
	if err != nil {
		return nil, err
	}
	return end.Sub(start).Hours(), nil
}

func hms(v any) any {
	if h, ok := v.(float64); ok {
		return timeutil.HoursToHMS(h)
	}
	return nil
}

func (d *Daily) icon() string {
	switch d.kind {
	case KindTimeAtElevation:
		if d.dir == oracle.Setting {
			return IconSunsetDown
		}
		return IconSunsetUp
	case KindElevationAtTime:
		return IconSunny
	}
	return d.kind.icon()
}
