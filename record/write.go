package record

import (
	"fmt"
	"time"

	"github.com/cyp0633/libcalevents/model"
	"github.com/cyp0633/libcalevents/recurrence"
	"github.com/cyp0633/libcalevents/timestamp"
	"github.com/samber/mo"
)

// DefaultFallbackCalendarID is used for inserts whose calendar is missing or
// cannot be resolved.
const DefaultFallbackCalendarID = "1"

// RuleInput is a structured recurrence rule on write. EndDate accepts the
// same representations as an event start.
type RuleInput struct {
	Frequency           string
	Interval            mo.Option[uint32]
	EndDate             mo.Option[timestamp.Value]
	Occurrences         mo.Option[uint32]
	DaysOfWeek          mo.Option[[]string]
	WeekStart           mo.Option[string]
	WeekPositionInMonth mo.Option[int32]
}

// EventDetails is a save request. Absent fields leave their column untouched.
type EventDetails struct {
	ID             mo.Option[string]
	Description    mo.Option[string]
	Location       mo.Option[string]
	StartDate      mo.Option[timestamp.Value]
	EndDate        mo.Option[timestamp.Value]
	Duration       mo.Option[string]
	Recurrence     mo.Option[string]
	RecurrenceRule mo.Option[RuleInput]
	AllDay         mo.Option[bool]
	TimeZone       mo.Option[string]
	EndTimeZone    mo.Option[string]
	Alarms         mo.Option[[]ReminderInput]
	Attendees      mo.Option[[]AttendeeInput]
	Availability   mo.Option[model.Availability]
	CalendarID     mo.Option[string]

	// SkipZoneAdjustment reads string instants as local wall time.
	SkipZoneAdjustment bool
}

// SaveOptions modify how a save or delete is performed.
type SaveOptions struct {
	// ExceptionDate turns a write against an existing id into a detached
	// exception for the instance starting at that time.
	ExceptionDate mo.Option[timestamp.Value]
	// Sync performs the write as the calendar's sync adapter.
	Sync bool
}

// WriteContext is what the caller resolved before building a write.
type WriteContext struct {
	// Existing is the event named by details.ID, if it still exists.
	Existing mo.Option[model.Event]
	// Calendar is the calendar named by details.CalendarID, if it exists.
	Calendar mo.Option[model.Calendar]
	// LocalZone names the default event time zone.
	LocalZone string
	// Location anchors string instants when SkipZoneAdjustment is set.
	Location *time.Location
	// FallbackCalendarID defaults to DefaultFallbackCalendarID.
	FallbackCalendarID string
}

// WriteKind says which provider call a plan maps to.
type WriteKind int

const (
	WriteNoop WriteKind = iota
	WriteInsert
	WriteUpdate
	WriteExceptionInsert
)

func (k WriteKind) String() string {
	switch k {
	case WriteInsert:
		return "insert"
	case WriteUpdate:
		return "update"
	case WriteExceptionInsert:
		return "exception-insert"
	}
	return "noop"
}

// WritePlan is the outcome of BuildWriteColumns.
type WritePlan struct {
	Kind    WriteKind
	Columns Columns
	// TargetID is the event updated, or the series an exception belongs to.
	TargetID string
	// CalendarID is the calendar the write lands in.
	CalendarID string
	// Attendees and Reminders, when present, replace the event's lists once
	// the resulting id is known.
	Attendees mo.Option[[]AttendeeInput]
	Reminders mo.Option[[]ReminderInput]
}

// IsInsert reports whether the plan creates a new event row.
func (p WritePlan) IsInsert() bool {
	return p.Kind == WriteInsert || p.Kind == WriteExceptionInsert
}

// IsException reports whether the plan creates a detached exception.
func (p WritePlan) IsException() bool {
	return p.Kind == WriteExceptionInsert
}

// BuildWriteColumns maps a save request to a provider write.
func BuildWriteColumns(title mo.Option[string], details EventDetails, opts SaveOptions, wctx WriteContext) (WritePlan, error) {
	loc := wctx.Location
	if loc == nil {
		loc = time.Local
	}
	parse := func(v timestamp.Value) (time.Time, error) {
		return timestamp.ParseInLocation(v, details.SkipZoneAdjustment, loc)
	}

	cols := Columns{}

	if t, ok := title.Get(); ok {
		cols[ColTitle] = t
	}
	if d, ok := details.Description.Get(); ok {
		cols[ColDescription] = d
	}
	if l, ok := details.Location.Get(); ok {
		cols[ColLocation] = l
	}
	if v, ok := details.StartDate.Get(); ok {
		t, err := parse(v)
		if err != nil {
			return WritePlan{}, fmt.Errorf("startDate: %w", err)
		}
		cols[ColDTStart] = t.UnixMilli()
	}
	if v, ok := details.EndDate.Get(); ok {
		t, err := parse(v)
		if err != nil {
			return WritePlan{}, fmt.Errorf("endDate: %w", err)
		}
		cols[ColDTEnd] = t.UnixMilli()
	}
	if d, ok := details.Duration.Get(); ok && d != "" {
		cols[ColDuration] = d
	}

	// The structured rule is applied last and wins over the legacy token.
	if freq, ok := details.Recurrence.Get(); ok {
		if text, ok := recurrence.Encode(recurrence.FromLegacy(freq)).Get(); ok {
			cols[ColRRule] = text
		}
	}
	if in, ok := details.RecurrenceRule.Get(); ok && in.Frequency != "" {
		rule, err := ruleFromInput(in, parse)
		if err != nil {
			return WritePlan{}, err
		}
		if text, ok := recurrence.Encode(rule).Get(); ok {
			cols[ColRRule] = text
		}
	}

	if allDay, ok := details.AllDay.Get(); ok {
		cols[ColAllDay] = boolColumn(allDay)
	}
	cols[ColTimeZone] = details.TimeZone.OrElse(wctx.LocalZone)
	cols[ColEndTimeZone] = details.EndTimeZone.OrElse(wctx.LocalZone)

	if alarms, ok := details.Alarms.Get(); ok {
		cols[ColHasAlarm] = boolColumn(len(ReminderColumns("", alarms)) > 0)
	}
	if a, ok := details.Availability.Get(); ok {
		cols[ColAvailability] = int64(a)
	}

	plan := WritePlan{
		Columns:   cols,
		Attendees: details.Attendees,
		Reminders: details.Alarms,
	}

	if id, ok := details.ID.Get(); ok {
		existing, found := wctx.Existing.Get()
		if !found {
			return WritePlan{Kind: WriteNoop, TargetID: id}, nil
		}
		plan.TargetID = id
		plan.CalendarID = existing.CalendarID

		exception, ok := opts.ExceptionDate.Get()
		if !ok {
			plan.Kind = WriteUpdate
			return plan, nil
		}
		t, err := parse(exception)
		if err != nil {
			return WritePlan{}, fmt.Errorf("exceptionDate: %w", err)
		}
		cols[ColOriginalInstanceTime] = t.UnixMilli()
		plan.Kind = WriteExceptionInsert
		return plan, nil
	}

	calendarID := wctx.FallbackCalendarID
	if calendarID == "" {
		calendarID = DefaultFallbackCalendarID
	}
	if cal, ok := wctx.Calendar.Get(); ok && details.CalendarID.IsPresent() {
		calendarID = cal.ID
	}
	cols[ColCalendarID] = calendarID
	plan.CalendarID = calendarID
	plan.Kind = WriteInsert
	return plan, nil
}

func ruleFromInput(in RuleInput, parse func(timestamp.Value) (time.Time, error)) (recurrence.Rule, error) {
	rule := recurrence.Rule{
		Frequency:           recurrence.FromLegacy(in.Frequency).Frequency,
		Interval:            in.Interval,
		Occurrences:         in.Occurrences,
		DaysOfWeek:          in.DaysOfWeek,
		WeekStart:           in.WeekStart,
		WeekPositionInMonth: in.WeekPositionInMonth,
	}
	if v, ok := in.EndDate.Get(); ok {
		until, err := parse(v)
		if err != nil {
			return recurrence.Rule{}, fmt.Errorf("recurrenceRule.endDate: %w", err)
		}
		rule.EndDate = mo.Some(until)
	}
	return rule, nil
}

func boolColumn(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// DeleteKind says how an event is removed.
type DeleteKind int

const (
	// DeleteHard removes the event row.
	DeleteHard DeleteKind = iota
	// DeleteCancelInstance inserts a canceled exception for one instance.
	DeleteCancelInstance
)

// DeleteRequest is the outcome of BuildDeleteRequest.
type DeleteRequest struct {
	Kind    DeleteKind
	EventID string
	// Columns is set for DeleteCancelInstance.
	Columns Columns
}

// BuildDeleteRequest maps a remove request to a provider call. Exception
// dates are always read as UTC.
func BuildDeleteRequest(id string, opts SaveOptions) (DeleteRequest, error) {
	exception, ok := opts.ExceptionDate.Get()
	if !ok {
		return DeleteRequest{Kind: DeleteHard, EventID: id}, nil
	}

	t, err := timestamp.Parse(exception, false)
	if err != nil {
		return DeleteRequest{}, fmt.Errorf("exceptionDate: %w", err)
	}
	return DeleteRequest{
		Kind:    DeleteCancelInstance,
		EventID: id,
		Columns: Columns{
			ColOriginalInstanceTime: t.UnixMilli(),
			ColStatus:               int64(model.StatusCanceled),
		},
	}, nil
}
