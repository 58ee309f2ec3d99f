package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	testCases := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		" WARN ":  zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"":        zerolog.InfoLevel,
		"verbose": zerolog.InfoLevel,
	}
	for in, want := range testCases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

type countingHook struct{ n int }

func (h *countingHook) Run(*zerolog.Event, zerolog.Level, string) { h.n++ }

func TestBuild_JSONWithLevelAndHooks(t *testing.T) {
	var buf bytes.Buffer
	hook := &countingHook{}
	logger := build(&buf, "warn", nil, hook)

	logger.Info().Msg("dropped")
	logger.Warn().Str("component", "auth_gateway").Msg("kept")

	var line map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line); err != nil {
		t.Fatalf("output is not a single JSON line: %q (%v)", buf.String(), err)
	}
	if line["message"] != "kept" || line["component"] != "auth_gateway" || line["level"] != "warn" {
		t.Errorf("line = %v", line)
	}
	if _, ok := line["time"]; !ok {
		t.Error("timestamp missing")
	}
	if hook.n != 1 {
		t.Errorf("hook ran %d times, want 1", hook.n)
	}
}

func TestIsDevelopment(t *testing.T) {
	for _, env := range []string{"", "development", "Dev"} {
		if !isDevelopment(env) {
			t.Errorf("isDevelopment(%q) = false", env)
		}
	}
	if isDevelopment("production") {
		t.Error("production treated as development")
	}
}
