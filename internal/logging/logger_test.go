package logging

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
		valid bool
	}{
		{"info", slog.LevelInfo, true},
		{"debug", slog.LevelDebug, true},
		{"trace", LevelTrace, true},
		{"DEBUG", slog.LevelDebug, true},
		{"Trace", LevelTrace, true},
		{"", slog.LevelInfo, true},
		{"verbose", slog.LevelInfo, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
			if got := ValidLevel(tt.input); got != tt.valid {
				t.Errorf("ValidLevel(%q) = %v, want %v", tt.input, got, tt.valid)
			}
		})
	}
}

func TestValidFormat(t *testing.T) {
	for _, s := range []string{"", "text", "json", "JSON"} {
		if !ValidFormat(s) {
			t.Errorf("ValidFormat(%q) = false, want true", s)
		}
	}
	if ValidFormat("xml") {
		t.Error("ValidFormat(\"xml\") = true, want false")
	}
}

func TestNewLogger_Levels(t *testing.T) {
	tests := []struct {
		level     string
		wantDebug bool
		wantTrace bool
	}{
		{"info", false, false},
		{"debug", true, false},
		{"trace", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLogger(&buf, tt.level, "")

			logger.Debug("debug message")
			if got := strings.Contains(buf.String(), "debug message"); got != tt.wantDebug {
				t.Errorf("debug visible = %v, want %v (%q)", got, tt.wantDebug, buf.String())
			}

			buf.Reset()
			logger.Log(context.Background(), LevelTrace, "trace message")
			if got := strings.Contains(buf.String(), "trace message"); got != tt.wantTrace {
				t.Errorf("trace visible = %v, want %v (%q)", got, tt.wantTrace, buf.String())
			}
			if tt.wantTrace && !strings.Contains(buf.String(), "level=TRACE") {
				t.Errorf("trace level not labelled: %q", buf.String())
			}
		})
	}
}

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "trace", FormatJSON)
	logger.Log(context.Background(), LevelTrace, "simulated hour", "hour", 2.0)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if entry["level"] != "TRACE" {
		t.Errorf("level = %v, want TRACE", entry["level"])
	}
	if entry["msg"] != "simulated hour" {
		t.Errorf("msg = %v, want simulated hour", entry["msg"])
	}
	if entry["hour"] != 2.0 {
		t.Errorf("hour = %v, want 2", entry["hour"])
	}
}

func readDecisions(t *testing.T, dir string) []map[string]any {
	t.Helper()
	f, err := os.Open(filepath.Join(dir, "decisions.jsonl"))
	if err != nil {
		t.Fatalf("opening decisions.jsonl: %v", err)
	}
	defer f.Close()

	var out []map[string]any
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var e map[string]any
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			t.Fatalf("decoding %q: %v", sc.Text(), err)
		}
		out = append(out, e)
	}
	return out
}

func TestNewDecisionLogger(t *testing.T) {
	tests := []struct {
		level       string
		wantNil     bool
		wantTracing bool
	}{
		{"info", true, false},
		{"", true, false},
		{"debug", false, false},
		{"trace", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			dir := t.TempDir()
			dl := NewDecisionLogger(dir, tt.level)
			defer dl.Close()

			if (dl == nil) != tt.wantNil {
				t.Fatalf("NewDecisionLogger(%q) nil = %v, want %v", tt.level, dl == nil, tt.wantNil)
			}
			if dl.Tracing() != tt.wantTracing {
				t.Errorf("Tracing() = %v, want %v", dl.Tracing(), tt.wantTracing)
			}
			_, err := os.Stat(filepath.Join(dir, "decisions.jsonl"))
			if exists := err == nil; exists == tt.wantNil {
				t.Errorf("decisions.jsonl exists = %v, want %v", exists, !tt.wantNil)
			}
		})
	}
}

func TestDecisionLogger_NilSafe(t *testing.T) {
	var dl *DecisionLogger
	dl.Record("division", 1, "LTo", "radius", 1)
	if dl.Written() != 0 {
		t.Errorf("Written() = %d, want 0", dl.Written())
	}
	if err := dl.Close(); err != nil {
		t.Errorf("Close() = %v, want nil", err)
	}
}

func TestDecisionLogger_Record(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "baseline", "Results", "1")
	dl := NewDecisionLogger(dir, "debug")
	if dl == nil {
		t.Fatal("NewDecisionLogger() = nil")
	}

	dl.Record("division", 720, "LTo", "mode", "convert", "radius", 1)
	dl.Record("removal", 1440, "LTin", "reason", "exit", "dangling")
	// The reserved keys win over fields.
	dl.Record("admission", 5, "LTi", "event", "other", "step", 99)

	if got := dl.Written(); got != 3 {
		t.Errorf("Written() = %d, want 3", got)
	}
	if err := dl.Close(); err != nil {
		t.Fatalf("Close() = %v", err)
	}
	dl.Record("after_close", 1, "LTo")

	entries := readDecisions(t, dir)
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}

	first := entries[0]
	for key, want := range map[string]any{
		"event": "division", "step": 720.0, "class": "LTo", "mode": "convert", "radius": 1.0,
	} {
		if first[key] != want {
			t.Errorf("entry[%q] = %v, want %v", key, first[key], want)
		}
	}
	if _, ok := first["time"]; ok {
		t.Error("entry carries wall-clock time")
	}
	if _, ok := entries[1]["dangling"]; ok {
		t.Error("dangling key was recorded")
	}
	if entries[2]["event"] != "admission" || entries[2]["step"] != 5.0 {
		t.Errorf("reserved keys overwritten: %v", entries[2])
	}

	info, err := os.Stat(filepath.Join(dir, "decisions.jsonl"))
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("permissions = %o, want 0600", perm)
	}
}
