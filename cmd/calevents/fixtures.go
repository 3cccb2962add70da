package main

import (
	"context"
	"fmt"
	"os"

	calevents "github.com/cyp0633/libcalevents"
	"github.com/cyp0633/libcalevents/model"
	"github.com/cyp0633/libcalevents/record"
	"github.com/cyp0633/libcalevents/timestamp"
	"github.com/samber/mo"
	"gopkg.in/yaml.v3"
)

// Fixtures is the YAML file format seeded into the in-memory provider.
type Fixtures struct {
	Calendars []CalendarFixture `yaml:"calendars"`
	Events    []EventFixture    `yaml:"events"`
}

type SourceFixture struct {
	Name  string `yaml:"name"`
	Type  string `yaml:"type"`
	Local bool   `yaml:"local"`
}

type CalendarFixture struct {
	// Key is how events refer to the calendar.
	Key          string        `yaml:"key"`
	Name         string        `yaml:"name"`
	Title        string        `yaml:"title"`
	Color        string        `yaml:"color"`
	AccessLevel  string        `yaml:"access_level"`
	OwnerAccount string        `yaml:"owner_account"`
	Source       SourceFixture `yaml:"source"`
}

type RuleFixture struct {
	Frequency string   `yaml:"frequency"`
	Interval  uint32   `yaml:"interval"`
	Count     uint32   `yaml:"count"`
	Until     string   `yaml:"until"`
	Days      []string `yaml:"days"`
	WeekStart string   `yaml:"week_start"`
	Position  int32    `yaml:"position"`
}

type AttendeeFixture struct {
	Name  string `yaml:"name"`
	Email string `yaml:"email"`
}

// ExceptionFixture overrides or cancels one instance of a series.
type ExceptionFixture struct {
	Date     string `yaml:"date"`
	Canceled bool   `yaml:"canceled"`
	Title    string `yaml:"title"`
	Start    string `yaml:"start"`
	End      string `yaml:"end"`
}

type EventFixture struct {
	Calendar     string             `yaml:"calendar"`
	Title        string             `yaml:"title"`
	Description  string             `yaml:"description"`
	Location     string             `yaml:"location"`
	Start        string             `yaml:"start"`
	End          string             `yaml:"end"`
	AllDay       bool               `yaml:"all_day"`
	Availability string             `yaml:"availability"`
	Recurrence   string             `yaml:"recurrence"`
	Rule         *RuleFixture       `yaml:"rule"`
	Alarms       []int64            `yaml:"alarms"`
	Attendees    []AttendeeFixture  `yaml:"attendees"`
	Exceptions   []ExceptionFixture `yaml:"exceptions"`
}

// LoadFixtures reads a fixtures file.
func LoadFixtures(path string) (*Fixtures, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f Fixtures
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse fixtures %s: %w", path, err)
	}
	return &f, nil
}

// Seed writes the fixtures through store.
func (f *Fixtures) Seed(ctx context.Context, store *calevents.Store) error {
	calendarIDs := make(map[string]string, len(f.Calendars))
	for _, cf := range f.Calendars {
		input, err := cf.input()
		if err != nil {
			return err
		}
		id, err := store.SaveCalendar(ctx, input)
		if err != nil {
			return fmt.Errorf("calendar %q: %w", cf.Key, err)
		}
		calendarIDs[cf.Key] = id
	}

	for i, ef := range f.Events {
		details, err := ef.details(calendarIDs)
		if err != nil {
			return fmt.Errorf("event %d (%s): %w", i, ef.Title, err)
		}
		id, err := store.SaveEvent(ctx, optional(ef.Title), details, record.SaveOptions{})
		if err != nil {
			return fmt.Errorf("event %d (%s): %w", i, ef.Title, err)
		}
		seriesID, ok := id.Get()
		if !ok {
			return fmt.Errorf("event %d (%s): no id returned", i, ef.Title)
		}

		for _, ex := range ef.Exceptions {
			opts := record.SaveOptions{ExceptionDate: mo.Some(timestamp.FromString(ex.Date))}
			if ex.Canceled {
				if _, err := store.RemoveEvent(ctx, seriesID, opts); err != nil {
					return fmt.Errorf("event %s: cancel %s: %w", seriesID, ex.Date, err)
				}
				continue
			}
			override := record.EventDetails{
				ID:        mo.Some(seriesID),
				StartDate: optionalTimestamp(ex.Start),
				EndDate:   optionalTimestamp(ex.End),
			}
			if _, err := store.SaveEvent(ctx, optional(ex.Title), override, opts); err != nil {
				return fmt.Errorf("event %s: exception %s: %w", seriesID, ex.Date, err)
			}
		}
	}
	return nil
}

func (cf CalendarFixture) input() (record.CalendarInput, error) {
	input := record.CalendarInput{
		Source: mo.Some(record.CalendarSource{
			Name:           optional(cf.Source.Name),
			Type:           optional(cf.Source.Type),
			IsLocalAccount: cf.Source.Local,
		}),
		Name:         optional(cf.Name),
		Title:        optional(cf.Title),
		AccessLevel:  optional(cf.AccessLevel),
		OwnerAccount: optional(cf.OwnerAccount),
	}
	if cf.Color != "" {
		color, err := model.ParseColor(cf.Color)
		if err != nil {
			return input, fmt.Errorf("calendar %q: %w", cf.Key, err)
		}
		input.Color = mo.Some(color)
	}
	return input, nil
}

func (ef EventFixture) details(calendarIDs map[string]string) (record.EventDetails, error) {
	details := record.EventDetails{
		Description: optional(ef.Description),
		Location:    optional(ef.Location),
		StartDate:   optionalTimestamp(ef.Start),
		EndDate:     optionalTimestamp(ef.End),
		Recurrence:  optional(ef.Recurrence),
		AllDay:      mo.Some(ef.AllDay),
	}

	if ef.Calendar != "" {
		id, ok := calendarIDs[ef.Calendar]
		if !ok {
			return details, fmt.Errorf("unknown calendar %q", ef.Calendar)
		}
		details.CalendarID = mo.Some(id)
	}
	if ef.Availability != "" {
		a, ok := model.ParseAvailability(ef.Availability)
		if !ok {
			return details, fmt.Errorf("unknown availability %q", ef.Availability)
		}
		details.Availability = mo.Some(a)
	}
	if r := ef.Rule; r != nil {
		in := record.RuleInput{
			Frequency:   r.Frequency,
			EndDate:     optionalTimestamp(r.Until),
			WeekStart:   optional(r.WeekStart),
			Interval:    optionalPositive(r.Interval),
			Occurrences: optionalPositive(r.Count),
		}
		if len(r.Days) > 0 {
			in.DaysOfWeek = mo.Some(r.Days)
		}
		if r.Position != 0 {
			in.WeekPositionInMonth = mo.Some(r.Position)
		}
		details.RecurrenceRule = mo.Some(in)
	}
	if len(ef.Alarms) > 0 {
		alarms := make([]record.ReminderInput, len(ef.Alarms))
		for i, m := range ef.Alarms {
			alarms[i] = record.ReminderInput{Minutes: mo.Some(m)}
		}
		details.Alarms = mo.Some(alarms)
	}
	if len(ef.Attendees) > 0 {
		attendees := make([]record.AttendeeInput, len(ef.Attendees))
		for i, a := range ef.Attendees {
			attendees[i] = record.AttendeeInput{Email: optional(a.Email), Name: optional(a.Name)}
		}
		details.Attendees = mo.Some(attendees)
	}
	return details, nil
}

func optional(s string) mo.Option[string] {
	if s == "" {
		return mo.None[string]()
	}
	return mo.Some(s)
}

func optionalTimestamp(s string) mo.Option[timestamp.Value] {
	if s == "" {
		return mo.None[timestamp.Value]()
	}
	return mo.Some(timestamp.FromString(s))
}

func optionalPositive(n uint32) mo.Option[uint32] {
	if n == 0 {
		return mo.None[uint32]()
	}
	return mo.Some(n)
}
