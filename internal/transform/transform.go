// Package transform normalizes raw cell values into the canonical
// representations the remote API expects.
//
// Every function here is total: unparseable input degrades to a best-effort
// passthrough of the original value instead of an error. Downstream
// validation is responsible for rejecting values that are still malformed
// after normalization, so a bad cell produces a row diagnostic rather than
// a silently dropped field.
package transform

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// compactDate is the canonical 8-digit date form, e.g. "20250305".
var compactDate = regexp.MustCompile(`^\d{8}$`)

// hhmm matches an already-canonical zero-padded time.
var hhmm = regexp.MustCompile(`^\d{2}:\d{2}$`)

// clockPattern extracts the first H:MM or HH:MM fragment from a string.
var clockPattern = regexp.MustCompile(`(\d{1,2}):(\d{2})`)

// dateLayouts are tried in order when parsing a cell as a calendar date.
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"01-02-2006",
	"1-2-2006",
	"2006.01.02",
	"Jan 2, 2006",
	"2 Jan 2006",
	"20060102",
}

// ToCompactDate normalizes a date cell to YYYYMMDD.
// Already-canonical 8-digit input is returned unchanged; anything that
// cannot be parsed as a date is returned as-is.
func ToCompactDate(value string) string {
	s := strings.TrimSpace(value)
	if s == "" {
		return value
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("20060102")
		}
	}

	if compactDate.MatchString(s) {
		return s
	}

	return value
}

// ToHHMM normalizes a time cell to zero-padded HH:MM.
// Input already in that form is returned unchanged; otherwise the first
// clock fragment is extracted and the hour zero-padded. Unparseable input
// is returned as-is.
func ToHHMM(value string) string {
	s := strings.TrimSpace(value)
	if hhmm.MatchString(s) {
		return s
	}

	if m := clockPattern.FindStringSubmatch(s); m != nil {
		hour := m[1]
		if len(hour) == 1 {
			hour = "0" + hour
		}
		return hour + ":" + m[2]
	}

	return value
}

// ToNumber coerces a numeric cell to a float64.
// Non-numeric input is passed through unchanged so required-field checks
// still see a present-but-wrong-type value instead of nothing.
func ToNumber(value string) any {
	s := strings.TrimSpace(value)
	if s == "" {
		return value
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return n
	}
	return value
}
