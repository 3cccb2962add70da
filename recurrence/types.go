package recurrence

import (
	"errors"
	"strings"
	"time"

	"github.com/samber/mo"
)

// ErrMalformedRecurrence is returned when a rule clause cannot be decoded.
var ErrMalformedRecurrence = errors.New("malformed recurrence rule")

// ErrExpansionLimit is returned when expanding a series would exceed the
// engine's configured range or occurrence cap.
var ErrExpansionLimit = errors.New("recurrence expansion limit exceeded")

// Frequency is the lower-case FREQ token of a rule.
type Frequency string

const (
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
	Yearly  Frequency = "yearly"
)

// Valid reports whether f is one of the four supported frequencies.
func (f Frequency) Valid() bool {
	switch f {
	case Daily, Weekly, Monthly, Yearly:
		return true
	}
	return false
}

// Rule is the structured form of the RRULE subset the store reads and writes.
//
// DaysOfWeek alone is meaningful for weekly rules. DaysOfWeek together with
// WeekPositionInMonth describes an "Nth weekday of the month" monthly rule.
// EndDate and Occurrences are mutually exclusive on encode; EndDate wins.
type Rule struct {
	Frequency           Frequency
	Interval            mo.Option[uint32]
	EndDate             mo.Option[time.Time]
	Occurrences         mo.Option[uint32]
	DaysOfWeek          mo.Option[[]string]
	WeekStart           mo.Option[string]
	WeekPositionInMonth mo.Option[int32]
}

// FromLegacy builds the minimal rule for a bare frequency token such as
// "weekly". The token is matched case-insensitively.
func FromLegacy(freq string) Rule {
	return Rule{Frequency: Frequency(strings.ToLower(freq))}
}

// Occurrence is one expanded instance of a series.
type Occurrence struct {
	Start time.Time
	End   time.Time
}
