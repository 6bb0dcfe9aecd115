// Package logging builds the operational logger and the per-run decision
// trace.
//
// Operational output goes to a slog.Logger on stderr. Decisions (admissions,
// divisions, removals and, at trace level, every chemotaxis choice) go to
// <results>/decisions.jsonl.
package logging

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/kalden/ppsim/internal/constants"
)

// LevelTrace sits below Debug and enables per-decision chemotaxis events.
const LevelTrace = slog.LevelDebug - 4

// Output formats for NewLogger.
const (
	FormatText = "text"
	FormatJSON = "json"
)

var levels = map[string]slog.Level{
	"":      slog.LevelInfo,
	"info":  slog.LevelInfo,
	"debug": slog.LevelDebug,
	"trace": LevelTrace,
}

// ParseLevel maps a level name to a slog.Level, case-insensitively.
// Unknown names map to info.
func ParseLevel(s string) slog.Level {
	if lvl, ok := levels[strings.ToLower(s)]; ok {
		return lvl
	}
	return slog.LevelInfo
}

// ValidLevel reports whether s names a supported level.
func ValidLevel(s string) bool {
	_, ok := levels[strings.ToLower(s)]
	return ok
}

// ValidFormat reports whether s names a supported output format.
func ValidFormat(s string) bool {
	switch strings.ToLower(s) {
	case "", FormatText, FormatJSON:
		return true
	}
	return false
}

// NewLogger returns a logger writing to w at level in the given format.
// An empty format means text.
func NewLogger(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:       ParseLevel(level),
		ReplaceAttr: labelTrace,
	}
	if strings.EqualFold(format, FormatJSON) {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func labelTrace(_ []string, a slog.Attr) slog.Attr {
	if a.Key != slog.LevelKey {
		return a
	}
	if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == LevelTrace {
		a.Value = slog.StringValue("TRACE")
	}
	return a
}

// DecisionLogger appends decision events to a JSONL file. It is safe for
// concurrent use, and a nil *DecisionLogger discards everything.
//
// Events carry the simulated step, never wall-clock time, so runs with the
// same seed produce identical traces.
type DecisionLogger struct {
	mu      sync.Mutex
	w       io.WriteCloser
	trace   bool
	written int
}

// NewDecisionLogger opens dir/decisions.jsonl for append when level is debug
// or trace. It returns nil at info level or when the file cannot be opened.
func NewDecisionLogger(dir, level string) *DecisionLogger {
	lvl := ParseLevel(level)
	if lvl > slog.LevelDebug {
		return nil
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil
	}
	f, err := os.OpenFile(filepath.Join(dir, constants.DecisionsFile), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil
	}
	return &DecisionLogger{w: f, trace: lvl <= LevelTrace}
}

// Tracing reports whether per-step chemotaxis events are wanted.
func (dl *DecisionLogger) Tracing() bool {
	return dl != nil && dl.trace
}

// Record writes one event. Fields are alternating key/value pairs, as with
// slog; a trailing key without a value is dropped.
func (dl *DecisionLogger) Record(event string, step int64, class string, fields ...any) {
	if dl == nil {
		return
	}

	entry := make(map[string]any, 3+len(fields)/2)
	for i := 0; i+1 < len(fields); i += 2 {
		if key, ok := fields[i].(string); ok {
			entry[key] = fields[i+1]
		}
	}
	entry["event"] = event
	entry["step"] = step
	entry["class"] = class

	line, err := json.Marshal(entry)
	if err != nil {
		return
	}
	line = append(line, '\n')

	dl.mu.Lock()
	defer dl.mu.Unlock()
	if dl.w == nil {
		return
	}
	if _, err := dl.w.Write(line); err == nil {
		dl.written++
	}
}

// Written returns the number of events recorded so far.
func (dl *DecisionLogger) Written() int {
	if dl == nil {
		return 0
	}
	dl.mu.Lock()
	defer dl.mu.Unlock()
	return dl.written
}

// Close closes the file. Later calls to Record are ignored.
func (dl *DecisionLogger) Close() error {
	if dl == nil {
		return nil
	}
	dl.mu.Lock()
	defer dl.mu.Unlock()
	if dl.w == nil {
		return nil
	}
	err := dl.w.Close()
	dl.w = nil
	return err
}
