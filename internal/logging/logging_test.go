package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
		ok   bool
	}{
		{"", slog.LevelInfo, true},
		{"debug", slog.LevelDebug, true},
		{"WARN", slog.LevelWarn, true},
		{" error ", slog.LevelError, true},
		{"loud", slog.LevelInfo, false},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err == nil) != tt.ok || got != tt.want {
			t.Fatalf("ParseLevel(%q) = %v, %v", tt.in, got, err)
		}
	}
}

func TestNewFormats(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, FormatJSON, slog.LevelInfo).Info("pass issued", "serial", "S1")
	var m map[string]any
	if err := json.Unmarshal(buf.Bytes(), &m); err != nil || m["serial"] != "S1" {
		t.Fatalf("json line = %s (%v)", buf.String(), err)
	}

	buf.Reset()
	l := New(&buf, FormatText, slog.LevelWarn)
	l.Info("hidden")
	l.Warn("shown", "serial", "S2")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "serial=S2") {
		t.Fatalf("text output = %q", buf.String())
	}
}
