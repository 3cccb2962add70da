package record

import (
	"time"

	"github.com/cyp0633/libcalevents/model"
	"github.com/samber/mo"
)

// AttendeeInput is an attendee on write. Email is required.
type AttendeeInput struct {
	Email mo.Option[string]
	Name  mo.Option[string]
}

// ReminderInput is a reminder on write, in minutes relative to the start.
type ReminderInput struct {
	Minutes mo.Option[int64]
}

// AttendeeColumns builds the attendee rows to insert for eventID. Entries
// without an email are skipped.
func AttendeeColumns(eventID string, inputs []AttendeeInput) []Columns {
	out := []Columns{}
	for _, in := range inputs {
		email, ok := in.Email.Get()
		if !ok || email == "" {
			continue
		}
		cols := Columns{
			ColAttendeeEventID:      eventID,
			ColAttendeeEmail:        email,
			ColAttendeeRelationship: int64(model.RelationshipAttendee),
		}
		if name, ok := in.Name.Get(); ok {
			cols[ColAttendeeName] = name
		}
		out = append(out, cols)
	}
	return out
}

// ReminderColumns builds the reminder rows to insert for eventID. Entries
// without an offset are skipped.
func ReminderColumns(eventID string, inputs []ReminderInput) []Columns {
	out := []Columns{}
	for _, in := range inputs {
		minutes, ok := in.Minutes.Get()
		if !ok {
			continue
		}
		out = append(out, Columns{
			ColReminderEventID: eventID,
			ColMinutes:         minutes,
			ColMethod:          int64(MethodAlert),
		})
	}
	return out
}

// AttendeesFromRows reads attendee rows.
func AttendeesFromRows(rows []Row) []model.Attendee {
	out := make([]model.Attendee, 0, len(rows))
	for _, row := range rows {
		typ, _ := row.Int64(ColAttendeeType)
		rel, _ := row.Int64(ColAttendeeRelationship)
		status, _ := row.Int64(ColAttendeeStatus)
		out = append(out, model.Attendee{
			Name:         row.StringOr(ColAttendeeName, ""),
			Email:        row.StringOr(ColAttendeeEmail, ""),
			Type:         int(typ),
			Relationship: int(rel),
			Status:       int(status),
			Identity:     row.StringOr(ColAttendeeIdentity, ""),
			IDNamespace:  row.StringOr(ColAttendeeIDNamespace, ""),
		})
	}
	return out
}

// AlarmsFromRows resolves reminder rows against the event start. Rows without
// a readable offset are skipped.
func AlarmsFromRows(rows []Row, start time.Time) []model.Alarm {
	out := make([]model.Alarm, 0, len(rows))
	for _, row := range rows {
		minutes, ok := row.Int64(ColMinutes)
		if !ok {
			continue
		}
		out = append(out, model.Alarm{Date: start.Add(time.Duration(minutes) * time.Minute).UTC()})
	}
	return out
}
