package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestSetupLevels(t *testing.T) {
	if got := Setup("production").GetLevel(); got != zerolog.InfoLevel {
		t.Fatalf("production level = %v, want info", got)
	}
	if got := Setup("development").GetLevel(); got != zerolog.DebugLevel {
		t.Fatalf("development level = %v, want debug", got)
	}
}

func TestSetupWithWriterAndSensorField(t *testing.T) {
	var buf bytes.Buffer
	logger := SetupWithWriter("production", &buf)

	sensorLogger := ForSensor(logger, "above_horizon")
	sensorLogger.Info().Msg("scheduled")
	logger.Debug().Msg("hidden")

	out := buf.String()
	if !strings.Contains(out, `"sensor":"above_horizon"`) {
		t.Fatalf("missing sensor field: %s", out)
	}
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug line leaked at info level: %s", out)
	}
}
