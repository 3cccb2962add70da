package main

import (
	"github.com/cyp0633/libcalevents/model"
	"github.com/cyp0633/libcalevents/recurrence"
	"github.com/cyp0633/libcalevents/timestamp"
)

type ruleView struct {
	Frequency           string   `json:"frequency"`
	Interval            *uint32  `json:"interval,omitempty"`
	EndDate             string   `json:"endDate,omitempty"`
	Occurrences         *uint32  `json:"occurrence,omitempty"`
	DaysOfWeek          []string `json:"daysOfTheWeek,omitempty"`
	WeekStart           string   `json:"weekStart,omitempty"`
	WeekPositionInMonth *int32   `json:"weekPositionInMonth,omitempty"`
}

func newRuleView(r recurrence.Rule) ruleView {
	v := ruleView{
		Frequency:  string(r.Frequency),
		DaysOfWeek: r.DaysOfWeek.OrEmpty(),
		WeekStart:  r.WeekStart.OrEmpty(),
	}
	if n, ok := r.Interval.Get(); ok {
		v.Interval = &n
	}
	if t, ok := r.EndDate.Get(); ok {
		v.EndDate = timestamp.Format(t)
	}
	if n, ok := r.Occurrences.Get(); ok {
		v.Occurrences = &n
	}
	if n, ok := r.WeekPositionInMonth.Get(); ok {
		v.WeekPositionInMonth = &n
	}
	return v
}

type calendarView struct {
	ID                    string   `json:"id"`
	Title                 string   `json:"title"`
	Source                string   `json:"source"`
	Type                  string   `json:"type"`
	Color                 string   `json:"color"`
	IsPrimary             bool     `json:"isPrimary"`
	AccessLevel           string   `json:"accessLevel"`
	AllowsModifications   bool     `json:"allowsModifications"`
	AllowedAvailabilities []string `json:"allowedAvailabilities"`
}

func newCalendarView(c model.Calendar) calendarView {
	availabilities := make([]string, len(c.AllowedAvailabilities))
	for i, a := range c.AllowedAvailabilities {
		availabilities[i] = a.String()
	}
	return calendarView{
		ID:                    c.ID,
		Title:                 c.Title,
		Source:                c.Source,
		Type:                  c.Type,
		Color:                 c.Color.String(),
		IsPrimary:             c.IsPrimary,
		AccessLevel:           c.AccessLevel.String(),
		AllowsModifications:   c.AllowsModifications(),
		AllowedAvailabilities: availabilities,
	}
}

type attendeeView struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}

type eventView struct {
	ID                   string         `json:"id"`
	URI                  string         `json:"uri"`
	CalendarID           string         `json:"calendarId,omitempty"`
	Title                string         `json:"title"`
	Description          string         `json:"description,omitempty"`
	Location             string         `json:"location,omitempty"`
	StartDate            string         `json:"startDate"`
	EndDate              string         `json:"endDate"`
	AllDay               bool           `json:"allDay"`
	TimeZone             string         `json:"timeZone,omitempty"`
	Availability         string         `json:"availability"`
	Recurrence           string         `json:"recurrence,omitempty"`
	RecurrenceRule       *ruleView      `json:"recurrenceRule,omitempty"`
	OriginalID           string         `json:"originalId,omitempty"`
	OriginalInstanceTime string         `json:"originalInstanceTime,omitempty"`
	Calendar             *calendarView  `json:"calendar,omitempty"`
	Attendees            []attendeeView `json:"attendees,omitempty"`
	Alarms               []string       `json:"alarms,omitempty"`
}

func newEventView(e model.Event, uri string) eventView {
	v := eventView{
		ID:           e.ID,
		URI:          uri,
		CalendarID:   e.CalendarID,
		Title:        e.Title,
		Description:  e.Description,
		Location:     e.Location,
		StartDate:    timestamp.Format(e.Start),
		EndDate:      timestamp.Format(e.End),
		AllDay:       e.AllDay,
		TimeZone:     e.TimeZone,
		Availability: e.Availability.String(),
		OriginalID:   e.OriginalID.OrEmpty(),
	}
	if rule, ok := e.Recurrence.Get(); ok {
		rv := newRuleView(rule)
		v.RecurrenceRule = &rv
		v.Recurrence = recurrence.Encode(rule).OrEmpty()
	}
	if t, ok := e.OriginalInstanceTime.Get(); ok {
		v.OriginalInstanceTime = timestamp.Format(t)
	}
	if cal, ok := e.Calendar.Get(); ok {
		cv := newCalendarView(cal)
		v.Calendar = &cv
	}
	for _, a := range e.Attendees {
		v.Attendees = append(v.Attendees, attendeeView{Name: a.Name, Email: a.Email})
	}
	for _, a := range e.Alarms {
		v.Alarms = append(v.Alarms, timestamp.Format(a.Date))
	}
	return v
}
