package model

import (
	"strings"
	"time"

	"github.com/cyp0633/libcalevents/recurrence"
	"github.com/samber/mo"
)

// Availability of an event, using the provider's column values.
type Availability int

const (
	AvailabilityBusy      Availability = 0
	AvailabilityFree      Availability = 1
	AvailabilityTentative Availability = 2
)

func (a Availability) String() string {
	switch a {
	case AvailabilityFree:
		return "free"
	case AvailabilityTentative:
		return "tentative"
	}
	return "busy"
}

// ParseAvailability maps "busy", "free" or "tentative" to a value.
func ParseAvailability(name string) (Availability, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "busy":
		return AvailabilityBusy, true
	case "free":
		return AvailabilityFree, true
	case "tentative":
		return AvailabilityTentative, true
	}
	return AvailabilityBusy, false
}

// Status is the eventStatus column.
type Status int

const (
	StatusTentative Status = 0
	StatusConfirmed Status = 1
	StatusCanceled  Status = 2
)

// Event is a materialized event or event instance.
type Event struct {
	ID          string
	Title       string
	Description string
	Location    string
	Start       time.Time
	End         time.Time
	AllDay      bool
	TimeZone    string
	EndTimeZone string

	Duration   mo.Option[string]
	Recurrence mo.Option[recurrence.Rule]

	Availability Availability
	HasAlarm     bool

	CalendarID string
	Calendar   mo.Option[Calendar]

	OriginalID           mo.Option[string]
	OriginalInstanceTime mo.Option[time.Time]
	SyncID               mo.Option[string]

	Attendees []Attendee
	Alarms    []Alarm
}

// IsException reports whether the event overrides one instance of a series.
func (e Event) IsException() bool {
	return e.OriginalID.IsPresent() && e.OriginalInstanceTime.IsPresent()
}

// Attendee as read back from the attendee table.
type Attendee struct {
	Name         string
	Email        string
	Type         int
	Relationship int
	Status       int
	Identity     string
	IDNamespace  string
}

// Relationship values of the attendee table.
const (
	RelationshipNone      = 0
	RelationshipAttendee  = 1
	RelationshipOrganizer = 2
)

// Alarm is a reminder resolved to an absolute instant.
type Alarm struct {
	Date time.Time
}
