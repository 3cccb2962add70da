// Package export renders materialized events as iCalendar (RFC 5545) and
// xCal (RFC 6321) documents.
package export

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/cyp0633/libcalevents/model"
	"github.com/cyp0633/libcalevents/recurrence"
	"github.com/emersion/go-ical"
	"github.com/google/uuid"
	"github.com/samber/mo"
)

// DefaultProductID identifies the generator in PRODID.
const DefaultProductID = "-//libcalevents//Calendar Events Export//EN"

// Options control document generation.
type Options struct {
	// ProductID overrides DefaultProductID.
	ProductID string
	// Now supplies DTSTAMP. Defaults to time.Now.
	Now func() time.Time
	// UIDDomain is appended to event ids to form UIDs, e.g. "1@example.com".
	// Empty keeps the bare id.
	UIDDomain string
	// Instances marks events as expanded instances of a window query. An
	// instance of a series is written as a single occurrence carrying
	// RECURRENCE-ID instead of the series RRULE, so every VEVENT has a
	// distinct UID and RECURRENCE-ID pair.
	Instances bool
}

func (o Options) productID() string {
	if o.ProductID == "" {
		return DefaultProductID
	}
	return o.ProductID
}

func (o Options) now() time.Time {
	if o.Now == nil {
		return time.Now().UTC()
	}
	return o.Now().UTC()
}

// BuildCalendar converts events to a VCALENDAR. Without opts.Instances a
// series is written once, as its first occurrence in events.
func BuildCalendar(events []model.Event, opts Options) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropProductID, opts.productID())
	cal.Props.SetText(ical.PropVersion, "2.0")

	stamp := opts.now()
	masters := make(map[string]bool)
	for _, event := range events {
		if !opts.Instances && event.Recurrence.IsPresent() && event.ID != "" {
			if masters[event.ID] {
				continue
			}
			masters[event.ID] = true
		}
		cal.Children = append(cal.Children, buildEvent(event, stamp, opts).Component)
	}
	return cal
}

// ICS encodes events as an iCalendar document.
func ICS(events []model.Event, opts Options) ([]byte, error) {
	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(BuildCalendar(events, opts)); err != nil {
		return nil, fmt.Errorf("failed to encode calendar: %w", err)
	}
	return buf.Bytes(), nil
}

func buildEvent(event model.Event, stamp time.Time, opts Options) *ical.Event {
	vevent := ical.NewEvent()
	props := vevent.Props

	// Exceptions share the UID of their series.
	props.SetText(ical.PropUID, uid(event.OriginalID.OrElse(event.ID), opts.UIDDomain))
	props.SetDateTime(ical.PropDateTimeStamp, stamp)

	if event.Title != "" {
		props.SetText(ical.PropSummary, event.Title)
	}
	if event.Description != "" {
		props.SetText(ical.PropDescription, event.Description)
	}
	if event.Location != "" {
		props.SetText(ical.PropLocation, event.Location)
	}

	setTime(props, ical.PropDateTimeStart, event.Start, event.AllDay)
	if !event.End.IsZero() {
		setTime(props, ical.PropDateTimeEnd, event.End, event.AllDay)
	} else if d, ok := event.Duration.Get(); ok && d != "" {
		prop := ical.NewProp(ical.PropDuration)
		prop.Value = d
		props.Set(prop)
	}

	if opts.Instances && event.Recurrence.IsPresent() {
		setTime(props, ical.PropRecurrenceID, event.Start, event.AllDay)
	} else if rule, ok := event.Recurrence.Get(); ok {
		if text, ok := recurrence.Encode(canonicalRule(rule)).Get(); ok {
			// Set the raw value; SetText would escape the separators.
			prop := ical.NewProp(ical.PropRecurrenceRule)
			prop.Value = text
			props.Set(prop)
		}
	}
	if original, ok := event.OriginalInstanceTime.Get(); ok {
		setTime(props, ical.PropRecurrenceID, original, event.AllDay)
	}

	if event.Availability == model.AvailabilityFree {
		props.SetText(ical.PropTransparency, "TRANSPARENT")
	} else {
		props.SetText(ical.PropTransparency, "OPAQUE")
	}

	for _, attendee := range event.Attendees {
		if attendee.Email == "" {
			continue
		}
		name := ical.PropAttendee
		if attendee.Relationship == model.RelationshipOrganizer {
			name = ical.PropOrganizer
		}
		prop := ical.NewProp(name)
		prop.Value = "mailto:" + attendee.Email
		if attendee.Name != "" {
			prop.Params.Set(ical.ParamCommonName, attendee.Name)
		}
		props.Add(prop)
	}

	for _, alarm := range event.Alarms {
		valarm := ical.NewComponent(ical.CompAlarm)
		valarm.Props.SetText(ical.PropAction, "DISPLAY")
		valarm.Props.SetText(ical.PropDescription, alarmDescription(event))
		trigger := ical.NewProp(ical.PropTrigger)
		trigger.SetDateTime(alarm.Date.UTC())
		valarm.Props.Set(trigger)
		vevent.Children = append(vevent.Children, valarm)
	}

	return vevent
}

func setTime(props ical.Props, name string, t time.Time, allDay bool) {
	prop := ical.NewProp(name)
	if allDay {
		prop.SetDate(t.UTC())
	} else {
		prop.SetDateTime(t.UTC())
	}
	props.Set(prop)
}

// canonicalRule upper-cases the day tokens, which the store keeps in the
// host's lower-case form.
func canonicalRule(rule recurrence.Rule) recurrence.Rule {
	if days, ok := rule.DaysOfWeek.Get(); ok {
		upper := make([]string, len(days))
		for i, d := range days {
			upper[i] = strings.ToUpper(d)
		}
		rule.DaysOfWeek = mo.Some(upper)
	}
	if wkst, ok := rule.WeekStart.Get(); ok {
		rule.WeekStart = mo.Some(strings.ToUpper(wkst))
	}
	return rule
}

func uid(id, domain string) string {
	if id == "" {
		id = uuid.New().String()
	}
	if domain == "" {
		return id
	}
	return id + "@" + domain
}

func alarmDescription(event model.Event) string {
	if event.Title != "" {
		return event.Title
	}
	return "Reminder"
}
