package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
		"":        slog.LevelInfo,
	}

	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestConfigureJSON(t *testing.T) {
	var buf bytes.Buffer
	Configure(&buf, "info", "json")

	Info("cohort built", "customers", 42)
	Debug("hidden")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("Expected exactly one log line, got %d: %q", len(lines), buf.String())
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("Log line is not JSON: %v", err)
	}
	if entry["msg"] != "cohort built" {
		t.Errorf("Unexpected msg: %v", entry["msg"])
	}
	if entry["customers"] != float64(42) {
		t.Errorf("Unexpected customers attribute: %v", entry["customers"])
	}
}

func TestConfigureTextWithError(t *testing.T) {
	var buf bytes.Buffer
	Configure(&buf, "debug", "text")

	Error("load failed", errTest("boom"), "table", "orders")

	out := buf.String()
	if !strings.Contains(out, "error=boom") || !strings.Contains(out, "table=orders") {
		t.Errorf("Unexpected text output: %q", out)
	}
}

type errTest string

func (e errTest) Error() string { return string(e) }
