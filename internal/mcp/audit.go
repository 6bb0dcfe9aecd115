package mcp

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/kalden/ppsim/internal/constants"
)

// Audit entry statuses.
const (
	auditSuccess = "success"
	auditError   = "error"
)

// AuditEntry records one tool call. Params holds only values that are safe
// to persist; paths and range lists are reduced to "(set)".
type AuditEntry struct {
	Timestamp  time.Time         `json:"timestamp"`
	Tool       string            `json:"tool"`
	DurationMs int64             `json:"duration_ms"`
	Status     string            `json:"status"`
	Error      string            `json:"error,omitempty"`
	RunID      string            `json:"run_id,omitempty"`
	Params     map[string]string `json:"params,omitempty"`
}

// AuditLogger appends entries to <dir>/audit.jsonl. A nil *AuditLogger
// discards everything.
type AuditLogger struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
}

// NewAuditLogger opens the audit log under dir. Failures are reported to
// logger and yield nil, so auditing never blocks the server from starting.
func NewAuditLogger(dir string, logger *slog.Logger) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		logger.Warn("audit log disabled", "dir", dir, "error", err)
		return nil
	}
	f, err := os.OpenFile(filepath.Join(dir, constants.AuditFile), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		logger.Warn("audit log disabled", "dir", dir, "error", err)
		return nil
	}
	return &AuditLogger{file: f, enc: json.NewEncoder(f)}
}

// Log appends entry as one JSON line.
func (a *AuditLogger) Log(entry AuditEntry) {
	if a == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.file != nil {
		_ = a.enc.Encode(entry)
	}
}

// Close closes the log file.
func (a *AuditLogger) Close() error {
	if a == nil {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.file == nil {
		return nil
	}
	err := a.file.Close()
	a.file, a.enc = nil, nil
	return err
}

type paramPolicy int

const (
	// logValue records the argument verbatim.
	logValue paramPolicy = iota + 1
	// logPresence records only that the argument was given.
	logPresence
)

// auditParams lists the tool arguments that may appear in the audit log.
// Anything else is counted but not recorded.
var auditParams = map[string]paramPolicy{
	"seed":              logValue,
	"hours":             logValue,
	"replicate":         logValue,
	"description":       logValue,
	"status":            logValue,
	"limit":             logValue,
	"run_id":            logValue,
	"output_path":       logPresence,
	"tracking_hours":    logPresence,
	"patch_stats_hours": logPresence,
}

// sanitizeToolParams reduces tool arguments to auditable metadata. Unset
// arguments are skipped; "_param_count" holds how many were set.
func sanitizeToolParams(params map[string]any) map[string]string {
	if params == nil {
		return nil
	}

	out := make(map[string]string, len(params)+1)
	set := 0
	for key, val := range params {
		if unset(val) {
			continue
		}
		set++
		switch auditParams[key] {
		case logValue:
			out[key] = fmt.Sprint(val)
		case logPresence:
			out[key] = "(set)"
		}
	}
	out["_param_count"] = strconv.Itoa(set)
	return out
}

func unset(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	case int:
		return x == 0
	case uint64:
		return x == 0
	case float64:
		return x == 0
	}
	return false
}

// auditTool records a finished tool call.
func (s *Server) auditTool(tool string, start time.Time, err error, runID string, params map[string]string) {
	entry := AuditEntry{
		Timestamp:  start,
		Tool:       tool,
		DurationMs: time.Since(start).Milliseconds(),
		Status:     auditSuccess,
		RunID:      runID,
		Params:     params,
	}
	if err != nil {
		entry.Status = auditError
		entry.Error = err.Error()
	}
	s.auditLogger.Log(entry)
}
