package record

import (
	"fmt"
	"strings"
	"time"

	"github.com/cyp0633/libcalevents/model"
	"github.com/cyp0633/libcalevents/recurrence"
	"github.com/samber/mo"
)

// Projection selects how much of an event is materialized.
type Projection int

const (
	// ProjectionFull embeds the calendar, attendees, availability and alarms.
	ProjectionFull Projection = iota
	// ProjectionLite attaches only the calendar id and performs no lookups.
	ProjectionLite
)

func (p Projection) String() string {
	if p == ProjectionLite {
		return "lite"
	}
	return "full"
}

// InstanceColumns are the columns requested from an instance query.
var InstanceColumns = []string{
	ColEventID, ColTitle, ColDescription, ColBegin, ColEnd, ColAllDay,
	ColLocation, ColRRule, ColCalendarID, ColAvailability, ColHasAlarm,
	ColOriginalID, ColDuration, ColOriginalSyncID, ColOriginalInstanceTime,
	ColTimeZone, ColEndTimeZone, ColStatus,
}

// EventColumns are the columns requested from an event-by-id query.
var EventColumns = []string{
	ColID, ColTitle, ColDescription, ColDTStart, ColDTEnd, ColAllDay,
	ColLocation, ColRRule, ColCalendarID, ColAvailability, ColHasAlarm,
	ColOriginalID, ColDuration, ColOriginalSyncID, ColOriginalInstanceTime,
	ColTimeZone, ColEndTimeZone, ColStatus,
}

// Related carries the sub-records a full projection embeds. A lite
// projection ignores it.
type Related struct {
	Calendar  mo.Option[Row]
	Attendees []Row
	Reminders []Row
}

// EventID returns the id of an event or instance row.
func EventID(row Row) (string, bool) {
	if id, ok := row.String(ColEventID); ok {
		return id, true
	}
	return row.String(ColID)
}

// Materialize builds an Event from an event or instance row.
func Materialize(row Row, projection Projection, related Related) (model.Event, error) {
	event := model.Event{
		ID:          firstString(row, ColEventID, ColID),
		Title:       row.StringOr(ColTitle, ""),
		Description: row.StringOr(ColDescription, ""),
		Location:    row.StringOr(ColLocation, ""),
		AllDay:      row.Bool(ColAllDay),
		TimeZone:    row.StringOr(ColTimeZone, ""),
		EndTimeZone: row.StringOr(ColEndTimeZone, ""),
		HasAlarm:    row.Bool(ColHasAlarm),
		Attendees:   []model.Attendee{},
		Alarms:      []model.Alarm{},
	}

	if start, ok := firstMillis(row, ColBegin, ColDTStart); ok {
		event.Start = start
	}
	if end, ok := firstMillis(row, ColEnd, ColDTEnd); ok {
		event.End = end
	}

	if text, ok := row.String(ColRRule); ok && strings.TrimSpace(text) != "" {
		rule, err := recurrence.Decode(text)
		if err != nil {
			return model.Event{}, fmt.Errorf("event %s: %w", event.ID, err)
		}
		event.Recurrence = mo.Some(rule)
	}
	if d, ok := row.String(ColDuration); ok && d != "" {
		event.Duration = mo.Some(d)
	}
	if t, ok := row.Millis(ColOriginalInstanceTime); ok {
		event.OriginalInstanceTime = mo.Some(t)
	}
	if id, ok := row.String(ColOriginalID); ok {
		event.OriginalID = mo.Some(id)
	}
	if id, ok := row.String(ColOriginalSyncID); ok {
		event.SyncID = mo.Some(id)
	}

	event.CalendarID = row.StringOr(ColCalendarID, "")
	if projection == ProjectionLite {
		return event, nil
	}

	if calRow, ok := related.Calendar.Get(); ok {
		event.Calendar = mo.Some(CalendarFromRow(calRow))
	}
	event.Attendees = AttendeesFromRows(related.Attendees)

	availability, _ := row.Int64(ColAvailability)
	switch a := model.Availability(availability); a {
	case model.AvailabilityFree, model.AvailabilityTentative:
		event.Availability = a
	default:
		event.Availability = model.AvailabilityBusy
	}

	if event.HasAlarm {
		event.Alarms = AlarmsFromRows(related.Reminders, event.Start)
	}
	return event, nil
}

func firstString(row Row, keys ...string) string {
	for _, k := range keys {
		if s, ok := row.String(k); ok {
			return s
		}
	}
	return ""
}

func firstMillis(row Row, keys ...string) (time.Time, bool) {
	for _, k := range keys {
		if t, ok := row.Millis(k); ok {
			return t, true
		}
	}
	return time.Time{}, false
}
