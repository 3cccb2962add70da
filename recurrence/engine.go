package recurrence

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/teambition/rrule-go"
)

// Engine expands rules into concrete occurrences.
type Engine struct {
	cache  *Cache
	config EngineConfig
}

// NewEngine creates an engine with DefaultEngineConfig.
func NewEngine() *Engine {
	return NewEngineWithConfig(DefaultEngineConfig)
}

// Close releases the engine's cache, if any.
func (e *Engine) Close() {
	if e.cache != nil {
		e.cache.Close()
	}
}

// CacheStats reports cache occupancy. It is zero when caching is disabled.
func (e *Engine) CacheStats() CacheStats {
	if e.cache == nil {
		return CacheStats{}
	}
	return e.cache.Stats()
}

// Occurrences returns the instances of a series starting at dtstart whose
// span [start, start+duration] overlaps the half-open range
// [rangeStart, rangeEnd): start < rangeEnd and end >= rangeStart.
//
// The rule is evaluated in dtstart's location, so BYDAY and WKST follow the
// event's wall clock. Expansions that would exceed MaxRange or
// MaxOccurrences fail with ErrExpansionLimit instead of being cut short.
func (e *Engine) Occurrences(dtstart time.Time, duration time.Duration, rule Rule, rangeStart, rangeEnd time.Time) ([]Occurrence, error) {
	if !rangeStart.Before(rangeEnd) {
		return nil, nil
	}

	if e.cache != nil {
		if cached, ok := e.cache.Get(dtstart, duration, rule, rangeStart, rangeEnd); ok {
			return cached, nil
		}
	}

	opt, err := ToROption(dtstart, rule)
	if err != nil {
		return nil, err
	}
	r, err := rrule.NewRRule(opt)
	if err != nil {
		return nil, fmt.Errorf("failed to build rule: %w", err)
	}

	limitEnd := rangeEnd
	if e.config.MaxRange > 0 && rangeEnd.Sub(rangeStart) > e.config.MaxRange {
		limitEnd = rangeStart.Add(e.config.MaxRange)
	}

	var occurrences []Occurrence
	for _, start := range r.Between(rangeStart.Add(-duration), limitEnd, true) {
		if !start.Before(limitEnd) {
			continue
		}
		if e.config.MaxOccurrences > 0 && len(occurrences) >= e.config.MaxOccurrences {
			return nil, fmt.Errorf("%w: more than %d occurrences in range", ErrExpansionLimit, e.config.MaxOccurrences)
		}
		occurrences = append(occurrences, Occurrence{Start: start.UTC(), End: start.Add(duration).UTC()})
	}

	// Only a series that actually continues past the cap is an error.
	if limitEnd.Before(rangeEnd) {
		if next := r.After(limitEnd, true); !next.IsZero() && next.Before(rangeEnd) {
			return nil, fmt.Errorf("%w: range of %s exceeds %s", ErrExpansionLimit, rangeEnd.Sub(rangeStart), e.config.MaxRange)
		}
	}

	if e.cache != nil {
		e.cache.Set(dtstart, duration, rule, rangeStart, rangeEnd, occurrences)
	}
	return occurrences, nil
}

// HasOccurrenceInRange reports whether any instance overlaps the range.
func (e *Engine) HasOccurrenceInRange(dtstart time.Time, duration time.Duration, rule Rule, rangeStart, rangeEnd time.Time) (bool, error) {
	occurrences, err := e.Occurrences(dtstart, duration, rule, rangeStart, rangeEnd)
	if err != nil {
		return false, err
	}
	return len(occurrences) > 0, nil
}

// ToROption converts a Rule anchored at dtstart into rrule-go options. The
// location of dtstart is kept; UNTIL is compared as an absolute instant.
func ToROption(dtstart time.Time, rule Rule) (rrule.ROption, error) {
	freq, err := toFrequency(rule.Frequency)
	if err != nil {
		return rrule.ROption{}, err
	}

	opt := rrule.ROption{
		Freq:    freq,
		Dtstart: dtstart,
	}
	if interval, ok := rule.Interval.Get(); ok {
		opt.Interval = int(interval)
	}
	if until, ok := rule.EndDate.Get(); ok {
		opt.Until = until.UTC()
	} else if count, ok := rule.Occurrences.Get(); ok {
		opt.Count = int(count)
	}
	if wkst, ok := rule.WeekStart.Get(); ok && wkst != "" {
		wd, err := parseWeekday(wkst)
		if err != nil {
			return rrule.ROption{}, err
		}
		opt.Wkst = wd
	}

	days := rule.DaysOfWeek.OrEmpty()
	position, hasPosition := rule.WeekPositionInMonth.Get()
	// Days are only honored where Encode would emit them.
	if rule.Frequency == Weekly || (rule.Frequency == Monthly && hasPosition) {
		for _, token := range days {
			wd, err := parseWeekday(token)
			if err != nil {
				return rrule.ROption{}, err
			}
			opt.Byweekday = append(opt.Byweekday, wd)
		}
	}
	if rule.Frequency == Monthly && hasPosition && len(days) > 0 {
		opt.Bysetpos = []int{int(position)}
	}

	return opt, nil
}

func toFrequency(f Frequency) (rrule.Frequency, error) {
	switch f {
	case Daily:
		return rrule.DAILY, nil
	case Weekly:
		return rrule.WEEKLY, nil
	case Monthly:
		return rrule.MONTHLY, nil
	case Yearly:
		return rrule.YEARLY, nil
	}
	return 0, fmt.Errorf("%w: unsupported frequency %q", ErrMalformedRecurrence, string(f))
}

var weekdays = map[string]rrule.Weekday{
	"mo": rrule.MO,
	"tu": rrule.TU,
	"we": rrule.WE,
	"th": rrule.TH,
	"fr": rrule.FR,
	"sa": rrule.SA,
	"su": rrule.SU,
}

// parseWeekday reads a BYDAY token with an optional ordinal prefix, e.g.
// "mo", "2tu" or "-1su".
func parseWeekday(token string) (rrule.Weekday, error) {
	token = strings.ToLower(strings.TrimSpace(token))
	if len(token) < 2 {
		return rrule.Weekday{}, fmt.Errorf("%w: weekday %q", ErrMalformedRecurrence, token)
	}

	wd, ok := weekdays[token[len(token)-2:]]
	if !ok {
		return rrule.Weekday{}, fmt.Errorf("%w: weekday %q", ErrMalformedRecurrence, token)
	}

	prefix := token[:len(token)-2]
	if prefix == "" {
		return wd, nil
	}
	n, err := strconv.Atoi(prefix)
	if err != nil || n == 0 {
		return rrule.Weekday{}, fmt.Errorf("%w: weekday ordinal %q", ErrMalformedRecurrence, token)
	}
	return wd.Nth(n), nil
}
