// Package timeparsing turns user-supplied time expressions into timestamps.
// It backs the --at flag of add-result, where a result may be recorded for a
// moment other than now.
//
// ParseRelativeTime tries, in order:
//  1. Compact duration (+6h, -1d, +2w)
//  2. Absolute timestamp (RFC3339, then date-only)
//  3. Natural language (yesterday 3pm, 2 hours ago, last friday)
package timeparsing

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

// compactDurationRe matches [+-]?(\d+)([hdwmy]), e.g. +6h, -1d, 3m.
var compactDurationRe = regexp.MustCompile(`^([+-]?)(\d+)([hdwmy])$`)

// ParseCompactDuration applies a compact duration to now. Units are h
// (hours), d (days), w (weeks), m (months) and y (years); no sign means
// forward.
func ParseCompactDuration(s string, now time.Time) (time.Time, error) {
	matches := compactDurationRe.FindStringSubmatch(s)
	if matches == nil {
		return time.Time{}, fmt.Errorf("not a compact duration: %q", s)
	}

	amount, err := strconv.Atoi(matches[2])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid duration amount: %q", matches[2])
	}
	if matches[1] == "-" {
		amount = -amount
	}

	switch matches[3] {
	case "h":
		return now.Add(time.Duration(amount) * time.Hour), nil
	case "d":
		return now.AddDate(0, 0, amount), nil
	case "w":
		return now.AddDate(0, 0, amount*7), nil
	case "m":
		return now.AddDate(0, amount, 0), nil
	default:
		return now.AddDate(amount, 0, 0), nil
	}
}

// IsCompactDuration reports whether s uses compact duration syntax.
func IsCompactDuration(s string) bool {
	return compactDurationRe.MatchString(s)
}

var (
	parserOnce sync.Once
	parser     *when.Parser
)

func nlp() *when.Parser {
	parserOnce.Do(func() {
		parser = when.New(nil)
		parser.Add(en.All...)
		parser.Add(common.All...)
	})
	return parser
}

// ParseNaturalLanguage parses English expressions such as "tomorrow",
// "in 3 days" or "2 hours ago" relative to now. The whole expression does
// not have to be consumed, but something in it must be recognised.
func ParseNaturalLanguage(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty time expression")
	}
	r, err := nlp().Parse(s, now)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing %q: %w", s, err)
	}
	if r == nil {
		return time.Time{}, fmt.Errorf("no date or time found in %q", s)
	}
	return r.Time, nil
}

// ParseRelativeTime parses s using every supported layer in turn.
func ParseRelativeTime(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty time expression")
	}
	if IsCompactDuration(s) {
		return ParseCompactDuration(s, now)
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("2006-01-02", s, now.Location()); err == nil {
		return t, nil
	}
	t, err := ParseNaturalLanguage(s, now)
	if err != nil {
		return time.Time{}, fmt.Errorf("unrecognised time %q (try +2h, -1d, 2025-01-31, RFC3339 or \"yesterday 3pm\")", s)
	}
	return t, nil
}
