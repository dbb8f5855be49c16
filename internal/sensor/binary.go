package sensor

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/thurmanmarka/suntrack/internal/curve"
	"github.com/thurmanmarka/suntrack/internal/oracle"
)

// Horizon is the threshold keyword for apparent sunrise/sunset elevation.
const Horizon = "horizon"

// ParseThreshold accepts a number of degrees or the keyword "horizon".
func ParseThreshold(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, Horizon) {
		return oracle.SunsetElevation, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("threshold %q: want degrees or %q", s, Horizon)
	}
	if v < -90 || v > 90 {
		return 0, fmt.Errorf("threshold %v out of range", v)
	}
	return v, nil
}

// BinaryName is the default name of an above-elevation sensor.
func BinaryName(raw string) string {
	if strings.EqualFold(strings.TrimSpace(raw), Horizon) {
		return "Above horizon"
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return "Above " + raw
	}
	if v < 0 {
		return fmt.Sprintf("Above minus %s deg", strconv.FormatFloat(-v, 'f', -1, 64))
	}
	return fmt.Sprintf("Above %s deg", strconv.FormatFloat(v, 'f', -1, 64))
}

// Binary reports whether the sun is above a fixed elevation and schedules
// itself for the exact second that changes.
type Binary struct {
	name      string
	threshold float64
	o         oracle.Oracle
	log       zerolog.Logger

	on          bool
	unreachable bool
}

var _ Engine = (*Binary)(nil)

// NewBinary creates an above-threshold sensor.
func NewBinary(name string, o oracle.Oracle, threshold float64, log zerolog.Logger) *Binary {
	return &Binary{
		name:      name,
		threshold: threshold,
		o:         o,
		log:       log,
	}
}

func (b *Binary) Name() string { return b.name }

func (b *Binary) Advance(now time.Time) Update {
	elev := b.o.Elevation(now)
	b.on = elev > b.threshold
	b.log.Debug().Float64("threshold", b.threshold).Float64("elevation", elev).Msg("binary update")

	next, err := curve.NextChange(b.o, now, b.threshold, !b.on)
	switch {
	case err == nil:
		b.unreachable = false
		if next.Sub(now) > 24*time.Hour {
			b.log.Warn().
				Float64("threshold", b.threshold).
				Str("date", next.In(b.o.Location()).Format(time.DateOnly)).
				Msg("sun elevation will not reach threshold again until date")
		}
	case errors.Is(err, curve.ErrUnreachable):
		if !b.unreachable {
			b.log.Error().Float64("threshold", b.threshold).Msg("sun elevation never reaches threshold at this location")
			b.unreachable = true
		}
		next = time.Time{}
	default:
		b.log.Error().Err(err).Msg("could not find next change")
		next = now.Add(FallbackDelta)
	}

	icon := IconNight
	if b.on {
		icon = IconSunny
	}
	return Update{
		State:      b.on,
		Icon:       icon,
		NextChange: next,
		Attrs:      attrs(next, map[string]any{"elevation": b.threshold}),
	}
}

// Unreachable reports whether the last Advance found the threshold out of
// reach for a year.
func (b *Binary) Unreachable() bool { return b.unreachable }

func (b *Binary) Invalidate(o oracle.Oracle) {
	if sameParams(b.o, o) {
		return
	}
	b.o = o
	b.unreachable = false
}
