package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/cyp0633/libcalevents/export"
	"github.com/cyp0633/libcalevents/query"
	"github.com/cyp0633/libcalevents/recurrence"
	"github.com/cyp0633/libcalevents/timestamp"
	"github.com/samber/mo"
	"github.com/urfave/cli/v2"
)

const defaultWindow = 7 * 24 * time.Hour

func rruleCommand() *cli.Command {
	return &cli.Command{
		Name:  "rrule",
		Usage: "Encode or decode recurrence rules.",
		Subcommands: []*cli.Command{
			{
				Name:  "encode",
				Usage: "Build RRULE text from flags.",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "freq", Usage: "daily, weekly, monthly or yearly.", Required: true},
					&cli.UintFlag{Name: "interval", Usage: "Repeat every N periods."},
					&cli.UintFlag{Name: "count", Usage: "Number of occurrences. Ignored when --until is set."},
					&cli.StringFlag{Name: "until", Usage: "Last occurrence, e.g. 2024-12-31T00:00:00.000Z."},
					&cli.StringSliceFlag{Name: "days", Usage: "Weekdays, e.g. mo,we."},
					&cli.StringFlag{Name: "wkst", Usage: "First day of the week."},
					&cli.IntFlag{Name: "position", Usage: "Week position in month for monthly rules, -1 for last."},
				},
				Action: func(c *cli.Context) error {
					rule, err := ruleFromFlags(c)
					if err != nil {
						return err
					}
					text, ok := recurrence.Encode(rule).Get()
					if !ok {
						return fmt.Errorf("unsupported frequency %q", c.String("freq"))
					}
					fmt.Fprintln(c.App.Writer, text)
					return nil
				},
			},
			{
				Name:      "decode",
				Usage:     "Print RRULE text as JSON.",
				ArgsUsage: "<rrule>",
				Action: func(c *cli.Context) error {
					if c.NArg() != 1 {
						return errors.New("expected exactly one rrule argument")
					}
					rule, err := recurrence.Decode(c.Args().First())
					if err != nil {
						return err
					}
					return writeJSON(c.App.Writer, newRuleView(rule))
				},
			},
		},
	}
}

func ruleFromFlags(c *cli.Context) (recurrence.Rule, error) {
	rule := recurrence.FromLegacy(c.String("freq"))
	if c.IsSet("interval") {
		rule.Interval = mo.Some(uint32(c.Uint("interval")))
	}
	if c.IsSet("count") {
		rule.Occurrences = mo.Some(uint32(c.Uint("count")))
	}
	if until := c.String("until"); until != "" {
		t, err := timestamp.Parse(timestamp.FromString(until), false)
		if err != nil {
			return rule, fmt.Errorf("invalid --until: %w", err)
		}
		rule.EndDate = mo.Some(t)
	}
	if days := c.StringSlice("days"); len(days) > 0 {
		rule.DaysOfWeek = mo.Some(days)
	}
	if wkst := c.String("wkst"); wkst != "" {
		rule.WeekStart = mo.Some(wkst)
	}
	if c.IsSet("position") {
		rule.WeekPositionInMonth = mo.Some(int32(c.Int("position")))
	}
	return rule, nil
}

func calendarsCommand() *cli.Command {
	return &cli.Command{
		Name:  "calendars",
		Usage: "List calendars.",
		Action: func(c *cli.Context) error {
			s, err := openSession(c.Context, c)
			if err != nil {
				return err
			}
			defer s.close()

			calendars, err := s.store.FindCalendars(c.Context)
			if err != nil {
				return fmt.Errorf("failed to list calendars: %w", err)
			}
			views := make([]calendarView, len(calendars))
			for i, cal := range calendars {
				views[i] = newCalendarView(cal)
			}
			return writeJSON(c.App.Writer, views)
		},
	}
}

func eventsCommand() *cli.Command {
	return &cli.Command{
		Name:  "events",
		Usage: "List event instances in a time window.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "start", Usage: "Window start. Defaults to now."},
			&cli.StringFlag{Name: "end", Usage: "Window end. Defaults to a week after start."},
			&cli.BoolFlag{Name: "local", Usage: "Read --start and --end as wall time in the configured timezone."},
			&cli.StringSliceFlag{Name: "calendar", Usage: "Restrict to these calendar ids."},
			&cli.BoolFlag{Name: "lite", Usage: "Skip calendars, attendees and alarms."},
			&cli.StringFlag{Name: "format", Usage: "json, ics or xcal.", Value: "json"},
			&cli.StringFlag{Name: "uid-domain", Usage: "Domain appended to exported UIDs."},
		},
		Action: func(c *cli.Context) error {
			s, err := openSession(c.Context, c)
			if err != nil {
				return err
			}
			defer s.close()

			loc, err := s.cfg.Location()
			if err != nil {
				return err
			}
			w, err := windowFromFlags(c, loc, time.Now())
			if err != nil {
				return err
			}

			events, err := s.store.FindAllEvents(c.Context, w)
			if err != nil {
				return fmt.Errorf("failed to list events: %w", err)
			}
			s.logger.Debug("listing events", "count", len(events), "format", c.String("format"))

			opts := export.Options{UIDDomain: c.String("uid-domain"), Instances: true}
			switch strings.ToLower(c.String("format")) {
			case "json":
				views := make([]eventView, len(events))
				for i, e := range events {
					views[i] = newEventView(e, s.store.EventURI(e.ID))
				}
				return writeJSON(c.App.Writer, views)
			case "ics":
				data, err := export.ICS(events, opts)
				if err != nil {
					return fmt.Errorf("failed to encode ics: %w", err)
				}
				_, err = c.App.Writer.Write(data)
				return err
			case "xcal":
				data, err := export.XCal(events, opts)
				if err != nil {
					return fmt.Errorf("failed to encode xcal: %w", err)
				}
				_, err = c.App.Writer.Write(data)
				return err
			default:
				return fmt.Errorf("unknown format %q", c.String("format"))
			}
		},
	}
}

func windowFromFlags(c *cli.Context, loc *time.Location, now time.Time) (query.Window, error) {
	start := now
	if v := c.String("start"); v != "" {
		t, err := timestamp.ParseInLocation(timestamp.FromString(v), c.Bool("local"), loc)
		if err != nil {
			return query.Window{}, fmt.Errorf("invalid --start: %w", err)
		}
		start = t
	}
	end := start.Add(defaultWindow)
	if v := c.String("end"); v != "" {
		t, err := timestamp.ParseInLocation(timestamp.FromString(v), c.Bool("local"), loc)
		if err != nil {
			return query.Window{}, fmt.Errorf("invalid --end: %w", err)
		}
		end = t
	}
	if !end.After(start) {
		return query.Window{}, fmt.Errorf("window end %s is not after start %s", timestamp.Format(end), timestamp.Format(start))
	}

	w := query.NewWindow(start, end)
	if ids := c.StringSlice("calendar"); len(ids) > 0 {
		w = w.Calendars(ids...)
	}
	if c.Bool("lite") {
		w = w.Lite()
	}
	return w, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
