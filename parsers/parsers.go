// Package parsers converts raw query-string values into typed values. All
// functions are pure; every failure is an apierr.ParamError carrying the
// parameter name and the offending value.
package parsers

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"linkedevents/apierr"
)

// ParseHours parses "HH" or "HH:MM" into an hour/minute pair. The minute
// defaults to 0.
func ParseHours(val, param string) (int, int, error) {
	parts := strings.Split(val, ":")
	if len(parts) > 2 {
		return 0, 0, apierr.Param(param, val, "expected HH or HH:MM")
	}
	hour, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, apierr.Param(param, val, "hour must be an integer between 0 and 23")
	}
	minute := 0
	if len(parts) == 2 {
		minute, err = strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil || minute < 0 || minute > 59 {
			return 0, 0, apierr.Param(param, val, "minute must be an integer between 0 and 59")
		}
	}
	return hour, minute, nil
}

// ParseBool accepts case-insensitive "true" and "false" only.
func ParseBool(val, param string) (bool, error) {
	switch strings.ToLower(val) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	return false, apierr.Param(param, val, `expected "true" or "false"`)
}

// ParseDigit parses an integer.
func ParseDigit(val, param string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(val))
	if err != nil {
		return 0, apierr.Param(param, val, "expected an integer")
	}
	return n, nil
}

// ParseDurationString parses "<N>[d|h|m|s]" into seconds. A bare number is
// taken as seconds.
func ParseDurationString(val, param string) (int64, error) {
	s := strings.TrimSpace(strings.ToLower(val))
	if s == "" {
		return 0, apierr.Param(param, val, "expected <number>[d|h|m|s]")
	}
	mult := int64(1)
	switch s[len(s)-1] {
	case 'd':
		mult = 86400
		s = s[:len(s)-1]
	case 'h':
		mult = 3600
		s = s[:len(s)-1]
	case 'm':
		mult = 60
		s = s[:len(s)-1]
	case 's':
		s = s[:len(s)-1]
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return 0, apierr.Param(param, val, "expected <number>[d|h|m|s]")
	}
	return n * mult, nil
}

// ParseTime accepts an ISO 8601 timestamp, a plain yyyy-mm-dd date, or the
// literal "today"/"now". A plain date used as an end bound resolves to the
// following midnight so the whole day is covered.
func ParseTime(val, param string, isStart bool, now time.Time) (time.Time, error) {
	switch strings.ToLower(val) {
	case "now":
		return now.UTC(), nil
	case "today":
		midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		if !isStart {
			midnight = midnight.AddDate(0, 0, 1)
		}
		return midnight, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, val); err == nil {
			return t.UTC(), nil
		}
	}
	if t, err := time.Parse("2006-01-02", val); err == nil {
		if !isStart {
			t = t.AddDate(0, 0, 1)
		}
		return t.UTC(), nil
	}
	return time.Time{}, apierr.Param(param, val, "expected ISO 8601 timestamp, yyyy-mm-dd or today")
}

// Fuzzy term matching for the ongoing-event filters. Short terms must match
// exactly, mid-length terms tolerate one character substitution, long terms
// two. Matching is case-insensitive and anywhere in the text blob.

func editDistanceFor(term string) int {
	n := len([]rune(term))
	switch {
	case n < 5:
		return 0
	case n <= 8:
		return 1
	default:
		return 2
	}
}

func substitutionVariants(runes []rune, positions []int) string {
	var b strings.Builder
	for i, r := range runes {
		wild := false
		for _, p := range positions {
			if p == i {
				wild = true
				break
			}
		}
		if wild {
			b.WriteString(".")
		} else {
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	return b.String()
}

// FuzzyPattern returns an (unanchored) alternation matching the term with up
// to its tolerated number of single-character substitutions.
func FuzzyPattern(term string) string {
	runes := []rune(term)
	edits := editDistanceFor(term)
	if edits == 0 {
		return regexp.QuoteMeta(term)
	}

	var alts []string
	alts = append(alts, regexp.QuoteMeta(term))
	for i := range runes {
		alts = append(alts, substitutionVariants(runes, []int{i}))
	}
	if edits == 2 {
		for i := range runes {
			for j := i + 1; j < len(runes); j++ {
				alts = append(alts, substitutionVariants(runes, []int{i, j}))
			}
		}
	}
	return "(?:" + strings.Join(alts, "|") + ")"
}

// TermsToRegexp compiles search terms into one case-insensitive fuzzy
// regexp; the result matches when any of the terms does.
func TermsToRegexp(terms []string) (*regexp.Regexp, error) {
	patterns := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.TrimSpace(strings.ToLower(t))
		if t == "" {
			continue
		}
		patterns = append(patterns, FuzzyPattern(t))
	}
	if len(patterns) == 0 {
		return nil, nil
	}
	return regexp.Compile("(?i)(?:" + strings.Join(patterns, "|") + ")")
}
