package timeutil

import (
	"testing"
	"time"
)

func TestNearestSecond(t *testing.T) {
	base := time.Date(2024, time.March, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{"exact", base, base},
		{"round down", base.Add(499 * time.Millisecond), base},
		{"round up", base.Add(500 * time.Millisecond), base.Add(time.Second)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NearestSecond(tt.in); !got.Equal(tt.want) {
				t.Errorf("NearestSecond(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestAddDaysAcrossDST(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("load tz: %v", err)
	}

	// DST starts 2024-03-10 in New York; that day is 23 hours long.
	date := time.Date(2024, time.March, 10, 0, 0, 0, 0, ny)
	next := AddDays(date, 1)

	if next.Hour() != 0 || next.Day() != 11 {
		t.Fatalf("AddDays = %v, want local midnight of March 11", next)
	}
	if got := next.Sub(date); got != 23*time.Hour {
		t.Fatalf("day length = %v, want 23h", got)
	}
}

func TestDateOfUsesLocation(t *testing.T) {
	ny, _ := time.LoadLocation("America/New_York")

	// 02:00 UTC on Dec 1 is still Nov 30 in New York.
	utc := time.Date(2024, time.December, 1, 2, 0, 0, 0, time.UTC)
	got := DateOf(utc, ny)

	if got.Day() != 30 || got.Month() != time.November {
		t.Fatalf("DateOf = %v, want 2024-11-30", got)
	}
}

func TestNextMidnight(t *testing.T) {
	ny, _ := time.LoadLocation("America/New_York")
	now := time.Date(2024, time.June, 1, 23, 59, 59, 0, ny)

	got := NextMidnight(now)
	want := time.Date(2024, time.June, 2, 0, 0, 0, 0, ny)
	if !got.Equal(want) {
		t.Fatalf("NextMidnight = %v, want %v", got, want)
	}
}

func TestHoursToHMS(t *testing.T) {
	tests := map[float64]string{
		0:         "0:00:00",
		1.5:       "1:30:00",
		14.25:     "14:15:00",
		9.999999:  "9:59:59",
		-0.502778: "-0:30:10",
	}
	for in, want := range tests {
		if got := HoursToHMS(in); got != want {
			t.Errorf("HoursToHMS(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalize180(t *testing.T) {
	tests := map[float64]float64{
		0:    0,
		190:  -170,
		-190: 170,
		540:  -180,
	}
	for in, want := range tests {
		if got := Normalize180(in); got != want {
			t.Errorf("Normalize180(%v) = %v, want %v", in, got, want)
		}
	}
}
