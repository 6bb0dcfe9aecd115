// Package ratelimit throttles MCP tool calls with one token bucket per tool.
package ratelimit

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// ErrRateLimited is returned when a tool's bucket is empty.
var ErrRateLimited = errors.New("rate limit exceeded")

// ToolLimiters maps tool names to their limiters. Tools without an entry are
// unlimited.
type ToolLimiters map[string]*rate.Limiter

// NewToolLimiters returns the default limits. Runs are expensive and allow
// one in flight every 30s; queries are cheap.
func NewToolLimiters() ToolLimiters {
	return ToolLimiters{
		"ppsim_run":         rate.NewLimiter(rate.Every(30*time.Second), 1),
		"ppsim_runs":        rate.NewLimiter(rate.Every(time.Second), 10),
		"ppsim_run_summary": rate.NewLimiter(rate.Every(time.Second), 10),
		"ppsim_export":      rate.NewLimiter(rate.Every(12*time.Second), 2),
	}
}

// CheckLimit takes a token for tool, or returns ErrRateLimited with the time
// until one is available.
func CheckLimit(limiters ToolLimiters, tool string) error {
	limiter, ok := limiters[tool]
	if !ok {
		return nil
	}
	r := limiter.Reserve()
	if !r.OK() {
		return fmt.Errorf("%w for %s", ErrRateLimited, tool)
	}
	if wait := r.Delay(); wait > 0 {
		r.Cancel()
		return fmt.Errorf("%w for %s, retry in %s", ErrRateLimited, tool, wait.Round(time.Second))
	}
	return nil
}
