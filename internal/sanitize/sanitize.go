// Package sanitize cleans user and agent supplied text before it becomes a
// results path component or is rendered into markdown for an agent.
package sanitize

import (
	"regexp"
	"strings"
)

// MaxLabelLength is the maximum allowed length for run labels.
const MaxLabelLength = 64

// MaxCellLength is the maximum allowed length for a markdown table cell.
const MaxCellLength = 120

var (
	// reXMLTag matches XML/HTML tags including those with attributes and self-closing tags.
	// It also matches XML processing instructions like <?xml ...?>.
	reXMLTag = regexp.MustCompile(`<[/?!]?[a-zA-Z][a-zA-Z0-9]*(?:\s+[^>]*)?/?>|<\?[^?]*\?>`)

	// reBackticks matches one or more backticks.
	reBackticks = regexp.MustCompile("`+")

	// reRepeatedHyphens matches 2 or more consecutive hyphens.
	reRepeatedHyphens = regexp.MustCompile(`-{2,}`)

	// reRepeatedUnderscores matches 2 or more consecutive underscores.
	reRepeatedUnderscores = regexp.MustCompile(`_{2,}`)

	// reWhitespace matches runs of whitespace.
	reWhitespace = regexp.MustCompile(`\s+`)
)

// Label reduces an experiment description or replicate name to characters
// that are safe as a single path component: [a-zA-Z0-9._-]. Repeated
// hyphens and underscores are collapsed, leading dots are dropped so the
// result can never be "." or "..", and the result is at most
// MaxLabelLength characters.
func Label(input string) string {
	if input == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(input))
	for _, r := range input {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || r == '-' || r == '_' || r == '.' {
			b.WriteRune(r)
		}
	}
	s := b.String()

	s = reRepeatedHyphens.ReplaceAllString(s, "-")
	s = reRepeatedUnderscores.ReplaceAllString(s, "_")
	s = strings.TrimLeft(s, ".")

	if len(s) > MaxLabelLength {
		s = s[:MaxLabelLength]
	}
	return s
}

// IsLabel reports whether s is already a clean, non-empty label.
func IsLabel(s string) bool {
	return s != "" && Label(s) == s
}

// MarkdownCell makes text safe for one cell of a markdown table: control
// characters and tags are stripped, whitespace collapses to single spaces,
// backtick runs become a single quote and pipes are escaped.
//
// The pipeline runs in this order:
//  1. Strip ASCII control characters, newlines and tabs become spaces
//  2. Strip XML/HTML tags
//  3. Replace backtick runs with '
//  4. Collapse whitespace and trim
//  5. Truncate to MaxCellLength
//  6. Escape |
func MarkdownCell(input string) string {
	if input == "" {
		return ""
	}

	s := stripControlChars(input)
	s = reXMLTag.ReplaceAllString(s, "")
	s = reBackticks.ReplaceAllString(s, "'")
	s = strings.TrimSpace(reWhitespace.ReplaceAllString(s, " "))

	if len(s) > MaxCellLength {
		s = s[:MaxCellLength] + "..."
	}
	return strings.ReplaceAll(s, "|", `\|`)
}

// stripControlChars removes ASCII control characters (0x00-0x1F, 0x7F) from
// the string. Newline and tab are kept as a space.
func stripControlChars(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\n' || r == '\t':
			b.WriteByte(' ')
		case r < 0x20 || r == 0x7f:
			continue
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
