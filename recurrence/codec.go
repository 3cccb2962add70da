package recurrence

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cyp0633/libcalevents/timestamp"
	"github.com/samber/mo"
)

// Encode renders r as RRULE text. Clauses are emitted in a fixed order:
// FREQ, BYSETPOS, BYDAY, WKST, INTERVAL, then UNTIL or COUNT.
// It returns mo.None when the frequency is not recognized.
func Encode(r Rule) mo.Option[string] {
	if !r.Frequency.Valid() {
		return mo.None[string]()
	}

	clauses := []string{"FREQ=" + strings.ToUpper(string(r.Frequency))}

	days := r.DaysOfWeek.OrEmpty()
	position, hasPosition := r.WeekPositionInMonth.Get()

	switch r.Frequency {
	case Weekly:
		if len(days) > 0 {
			clauses = append(clauses, "BYDAY="+strings.Join(days, ","))
		}
	case Monthly:
		if len(days) > 0 && hasPosition {
			clauses = append(clauses,
				"BYSETPOS="+strconv.FormatInt(int64(position), 10),
				"BYDAY="+strings.Join(days, ","))
		}
	}

	if wkst, ok := r.WeekStart.Get(); ok && wkst != "" {
		clauses = append(clauses, "WKST="+wkst)
	}
	if interval, ok := r.Interval.Get(); ok {
		clauses = append(clauses, "INTERVAL="+strconv.FormatUint(uint64(interval), 10))
	}

	if until, ok := r.EndDate.Get(); ok {
		clauses = append(clauses, "UNTIL="+timestamp.FormatRuleTime(until))
	} else if count, ok := r.Occurrences.Get(); ok {
		clauses = append(clauses, "COUNT="+strconv.FormatUint(uint64(count), 10))
	}

	return mo.Some(strings.Join(clauses, ";"))
}

// Decode parses RRULE text into a Rule. Clause order does not matter and
// unknown keys are ignored. An unrecognized FREQ value is kept as-is so the
// caller can still inspect it; a missing FREQ is an error.
func Decode(text string) (Rule, error) {
	var (
		rule    Rule
		hasFreq bool
	)

	text = strings.TrimPrefix(strings.TrimSpace(text), "RRULE:")
	for _, clause := range strings.Split(text, ";") {
		if clause == "" {
			continue
		}
		key, value, found := strings.Cut(clause, "=")
		if !found {
			continue
		}

		switch strings.ToUpper(strings.TrimSpace(key)) {
		case "FREQ":
			rule.Frequency = Frequency(strings.ToLower(value))
			hasFreq = true
		case "INTERVAL":
			n, err := parseUint32("INTERVAL", value)
			if err != nil {
				return Rule{}, err
			}
			rule.Interval = mo.Some(n)
		case "COUNT":
			n, err := parseUint32("COUNT", value)
			if err != nil {
				return Rule{}, err
			}
			rule.Occurrences = mo.Some(n)
		case "UNTIL":
			until, err := timestamp.ParseRuleTime(value)
			if err != nil {
				return Rule{}, fmt.Errorf("%w: UNTIL: %v", ErrMalformedRecurrence, err)
			}
			rule.EndDate = mo.Some(until)
		case "BYDAY":
			var days []string
			for _, d := range strings.Split(value, ",") {
				if d = strings.TrimSpace(d); d != "" {
					days = append(days, strings.ToLower(d))
				}
			}
			rule.DaysOfWeek = mo.Some(days)
		case "WKST":
			rule.WeekStart = mo.Some(strings.ToLower(value))
		case "BYSETPOS":
			n, err := strconv.ParseInt(value, 10, 32)
			if err != nil {
				return Rule{}, fmt.Errorf("%w: BYSETPOS %q: %v", ErrMalformedRecurrence, value, err)
			}
			rule.WeekPositionInMonth = mo.Some(int32(n))
		}
	}

	if !hasFreq {
		return Rule{}, fmt.Errorf("%w: missing FREQ in %q", ErrMalformedRecurrence, text)
	}
	return rule, nil
}

func parseUint32(key, value string) (uint32, error) {
	n, err := strconv.ParseUint(value, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q: %v", ErrMalformedRecurrence, key, value, err)
	}
	return uint32(n), nil
}
