package sensor

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/thurmanmarka/suntrack/internal/oracle"
	"github.com/thurmanmarka/suntrack/internal/timeutil"
)

// Azimuth reports the sun's azimuth, polling faster while the sun is low and
// its azimuth swings quickly.
type Azimuth struct {
	name string
	o    oracle.Oracle
	log  zerolog.Logger
}

var _ Engine = (*Azimuth)(nil)

// NewAzimuth creates an azimuth sensor.
func NewAzimuth(name string, o oracle.Oracle, log zerolog.Logger) *Azimuth {
	return &Azimuth{name: name, o: o, log: log}
}

func (a *Azimuth) Name() string { return a.name }

func (a *Azimuth) Advance(now time.Time) Update {
	now = timeutil.NearestSecond(now)
	az := a.o.Azimuth(now)
	next := now.Add(azimuthDelta(a.o.Elevation(now)))

	return Update{
		State:      roundTo(az, 2),
		Icon:       IconSunAngle,
		NextChange: next,
		Attrs:      attrs(next, nil),
	}
}

func (a *Azimuth) Invalidate(o oracle.Oracle) {
	a.o = o
}

func azimuthDelta(elev float64) time.Duration {
	switch {
	case elev >= 10:
		return 4 * time.Minute
	case elev >= 0:
		return 2 * time.Minute
	case elev >= -6:
		return 4 * time.Minute
	case elev >= -18:
		return 8 * time.Minute
	default:
		return 20 * time.Minute
	}
}
