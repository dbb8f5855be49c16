package main

import (
	"math"
	"testing"
	"time"
)

func TestParseInstant(t *testing.T) {
	loc, _ := time.LoadLocation("America/Phoenix")

	tests := []struct {
		in   string
		want time.Time
	}{
		{"2025-11-28T06:45", time.Date(2025, time.November, 28, 6, 45, 0, 0, loc)},
		{"2025-11-28 06:45", time.Date(2025, time.November, 28, 6, 45, 0, 0, loc)},
		{"2025-11-28", time.Date(2025, time.November, 28, 0, 0, 0, 0, loc)},
		{"2025-11-28T13:45:00Z", time.Date(2025, time.November, 28, 13, 45, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, err := parseInstant(tt.in, loc)
		if err != nil {
			t.Fatalf("parseInstant(%q) error = %v", tt.in, err)
		}
		if !got.Equal(tt.want) {
			t.Errorf("parseInstant(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}

	if _, err := parseInstant("yesterday", loc); err == nil {
		t.Error("expected an error for an unparsable time")
	}
}

func TestParseLocalTime(t *testing.T) {
	loc, _ := time.LoadLocation("America/Phoenix")
	date := time.Date(2025, time.January, 2, 0, 0, 0, 0, loc)

	got, err := parseLocalTime(date, "07:32:15", loc)
	if err != nil {
		t.Fatal(err)
	}
	if want := time.Date(2025, time.January, 2, 7, 32, 15, 0, loc); !got.Equal(want) {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestStats(t *testing.T) {
	var s stats
	if !math.IsNaN(s.mean()) {
		t.Error("empty stats should have NaN mean")
	}
	for _, v := range []float64{2, math.NaN(), -1, 5} {
		s.add(v)
	}
	if s.count != 3 || s.min != -1 || s.max != 5 || s.mean() != 2 {
		t.Errorf("stats = %+v mean %v", s, s.mean())
	}
	if !math.IsNaN(diffMinutes(time.Time{}, time.Now())) {
		t.Error("diffMinutes with a zero time should be NaN")
	}
}
