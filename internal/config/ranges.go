package config

import (
	"slices"
	"strconv"
	"strings"

	"github.com/kalden/ppsim/internal/simerr"
)

// disabledMarker switches a list setting off.
const disabledMarker = "NULL"

// HourRange is a tracking window in whole simulated hours, [Start, End).
type HourRange struct {
	Start int
	End   int
}

// ParseRanges parses "start-end,start-end". An empty string or "NULL" yields
// no ranges. Windows may touch but not overlap; they are returned in input
// order.
func ParseRanges(s string) ([]HourRange, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, disabledMarker) {
		return nil, nil
	}

	var out []HourRange
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		lo, hi, ok := strings.Cut(part, "-")
		if !ok {
			return nil, simerr.Configf("tracking_hours", "range %q is not start-end", part)
		}
		start, err := strconv.Atoi(strings.TrimSpace(lo))
		if err != nil {
			return nil, simerr.Configf("tracking_hours", "range %q: bad start", part)
		}
		end, err := strconv.Atoi(strings.TrimSpace(hi))
		if err != nil {
			return nil, simerr.Configf("tracking_hours", "range %q: bad end", part)
		}
		if start < 0 || end <= start {
			return nil, simerr.Configf("tracking_hours", "range %q must satisfy 0 <= start < end", part)
		}
		out = append(out, HourRange{Start: start, End: end})
	}

	sorted := slices.Clone(out)
	slices.SortFunc(sorted, func(a, b HourRange) int { return a.Start - b.Start })
	for i := 1; i < len(sorted); i++ {
		if prev, cur := sorted[i-1], sorted[i]; cur.Start < prev.End {
			return nil, simerr.Configf("tracking_hours", "windows %d-%d and %d-%d overlap",
				prev.Start, prev.End, cur.Start, cur.End)
		}
	}
	return out, nil
}

// ParseHours parses a comma list of whole hours such as "24,48". An empty
// string or "NULL" disables the output and returns enabled=false.
func ParseHours(s string) (hours []int, enabled bool, err error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, disabledMarker) {
		return nil, false, nil
	}

	for _, part := range strings.Split(s, ",") {
		h, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, false, simerr.Configf("patch_stats_hours", "hour %q is not an integer", part)
		}
		if h < 0 {
			return nil, false, simerr.Configf("patch_stats_hours", "hour %d is negative", h)
		}
		hours = append(hours, h)
	}
	return hours, true, nil
}

// TrackingRanges returns the configured tracking windows, or nil when
// tracking is off.
func (c *Config) TrackingRanges() ([]HourRange, error) {
	if !c.Simulation.TrackingEnabled {
		return nil, nil
	}
	return ParseRanges(c.Simulation.TrackingHours)
}

// PatchHours returns the configured patch statistics hours and whether patch
// statistics are on at all.
func (c *Config) PatchHours() ([]int, bool, error) {
	if !c.Simulation.PatchStatsEnabled {
		return nil, false, nil
	}
	hours, _, err := ParseHours(c.Simulation.PatchStatsHours)
	if err != nil {
		return nil, false, err
	}
	// End-of-run statistics are written whenever patch stats are on.
	return hours, true, nil
}
