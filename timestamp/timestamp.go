// Package timestamp converts between the wire representations of an instant
// (a UTC ISO-8601 string or epoch milliseconds) and time.Time.
package timestamp

import (
	"errors"
	"fmt"
	"time"

	"github.com/samber/mo"
)

const (
	// Layout is the only accepted string pattern, e.g. 2024-01-31T09:30:00.000Z.
	Layout = "2006-01-02T15:04:05.000Z"
	// RuleLayout is the pattern of an RRULE UNTIL value.
	RuleLayout = "20060102T150405Z"
	// ruleDateLayout is the date-only UNTIL form allowed by RFC 5545.
	ruleDateLayout = "20060102"
)

// ErrMalformedTimestamp is returned when a string does not match Layout.
var ErrMalformedTimestamp = errors.New("malformed timestamp")

// Value is either an ISO string (left) or epoch milliseconds (right).
type Value = mo.Either[string, int64]

// FromString wraps an ISO string.
func FromString(s string) Value {
	return mo.Left[string, int64](s)
}

// FromMillis wraps epoch milliseconds.
func FromMillis(ms int64) Value {
	return mo.Right[string, int64](ms)
}

// FromTime wraps t as epoch milliseconds.
func FromTime(t time.Time) Value {
	return FromMillis(t.UnixMilli())
}

// Parse normalizes v to an absolute instant. When skipZone is set a string
// value is read as wall time in the process's local zone instead of UTC.
func Parse(v Value, skipZone bool) (time.Time, error) {
	return ParseInLocation(v, skipZone, time.Local)
}

// ParseInLocation is Parse with an explicit zone for the skipZone case.
func ParseInLocation(v Value, skipZone bool, loc *time.Location) (time.Time, error) {
	if ms, ok := v.Right(); ok {
		return time.UnixMilli(ms).UTC(), nil
	}

	s, _ := v.Left()
	anchor := time.UTC
	if skipZone && loc != nil {
		anchor = loc
	}

	t, err := time.ParseInLocation(Layout, s, anchor)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrMalformedTimestamp, s)
	}
	return t.UTC(), nil
}

// Format renders t as a canonical UTC string. It never applies a local zone.
func Format(t time.Time) string {
	return t.UTC().Format(Layout)
}

// FormatMillis renders epoch milliseconds as a canonical UTC string.
func FormatMillis(ms int64) string {
	return Format(time.UnixMilli(ms))
}

// FormatRuleTime renders t in the RRULE UNTIL pattern.
func FormatRuleTime(t time.Time) string {
	return t.UTC().Format(RuleLayout)
}

// ParseRuleTime reads an RRULE UNTIL value. A date-only value is taken as
// midnight UTC.
func ParseRuleTime(s string) (time.Time, error) {
	if t, err := time.Parse(RuleLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(ruleDateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrMalformedTimestamp, s)
	}
	return t, nil
}
