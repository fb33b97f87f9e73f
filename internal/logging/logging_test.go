package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"":          slog.LevelInfo,
		"INFO":      slog.LevelInfo,
		" debug ":   slog.LevelDebug,
		"Warning":   slog.LevelWarn,
		"warn":      slog.LevelWarn,
		"err":       slog.LevelError,
		"E-R-R-O-R": slog.LevelError,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		if err != nil {
			t.Fatalf("ParseLevel(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
	if _, err := ParseLevel("verbose"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	lg, level, err := New(Options{Level: "warn", JSON: true, Writer: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if level != slog.LevelWarn {
		t.Fatalf("unexpected level %v", level)
	}
	lg.Info("dropped")
	lg.Warn("kept", "k", 1)

	var rec map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &rec); err != nil {
		t.Fatalf("expected exactly one JSON record, got %q: %v", buf.String(), err)
	}
	if rec["msg"] != "kept" || rec["app"] != "infocomp" {
		t.Fatalf("unexpected record: %v", rec)
	}
}
