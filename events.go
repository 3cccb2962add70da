package calevents

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cyp0633/libcalevents/model"
	"github.com/cyp0633/libcalevents/provider"
	"github.com/cyp0633/libcalevents/query"
	"github.com/cyp0633/libcalevents/record"
	"github.com/samber/mo"
)

// SaveEvent creates or updates an event and returns its id. With
// opts.ExceptionDate an existing series gets a detached exception, whose new
// id is returned. Saving against an id that no longer exists does nothing and
// returns mo.None.
func (s *Store) SaveEvent(ctx context.Context, title mo.Option[string], details record.EventDetails, opts record.SaveOptions) (mo.Option[string], error) {
	if err := s.authorize(ctx, "save event", false); err != nil {
		return mo.None[string](), err
	}

	wctx := record.WriteContext{
		LocalZone:          zoneName(s.location),
		Location:           s.location,
		FallbackCalendarID: s.fallbackCalendarID,
	}

	if id, ok := details.ID.Get(); ok {
		row, err := s.provider.QueryEventByID(ctx, id)
		if err != nil {
			return mo.None[string](), fmt.Errorf("failed to query event %s: %w", id, err)
		}
		if r, ok := row.Get(); ok {
			wctx.Existing = mo.Some(model.Event{ID: id, CalendarID: r.StringOr(record.ColCalendarID, "")})
		}
	} else if calID, ok := details.CalendarID.Get(); ok {
		row, err := s.provider.QueryCalendarByID(ctx, calID)
		if err != nil {
			return mo.None[string](), fmt.Errorf("failed to query calendar %s: %w", calID, err)
		}
		if r, ok := row.Get(); ok {
			wctx.Calendar = mo.Some(record.CalendarFromRow(r))
		}
	}

	plan, err := record.BuildWriteColumns(title, details, opts, wctx)
	if err != nil {
		return mo.None[string](), err
	}
	if plan.Kind == record.WriteNoop {
		s.logger.Info("event vanished, nothing saved", "id", plan.TargetID)
		return mo.None[string](), nil
	}

	writeOpts, err := s.writeOptions(ctx, plan.CalendarID, opts.Sync)
	if err != nil {
		return mo.None[string](), err
	}

	var id mo.Option[string]
	switch plan.Kind {
	case record.WriteInsert:
		id, err = s.provider.InsertEvent(ctx, plan.Columns, writeOpts)
	case record.WriteUpdate:
		var n int
		n, err = s.provider.UpdateEvent(ctx, plan.TargetID, plan.Columns, writeOpts)
		if n > 0 {
			id = mo.Some(plan.TargetID)
		}
	case record.WriteExceptionInsert:
		id, err = s.provider.InsertEventException(ctx, plan.TargetID, plan.Columns, writeOpts)
	}
	if err != nil {
		return mo.None[string](), fmt.Errorf("failed to %s event: %w", plan.Kind, err)
	}

	eventID, ok := id.Get()
	if !ok {
		s.logger.Info("provider returned no event id", "kind", plan.Kind, "target", plan.TargetID)
		return id, nil
	}

	if attendees, ok := plan.Attendees.Get(); ok {
		if err := s.provider.ReplaceAttendees(ctx, eventID, record.AttendeeColumns(eventID, attendees)); err != nil {
			return id, fmt.Errorf("failed to replace attendees of %s: %w", eventID, err)
		}
	}
	if reminders, ok := plan.Reminders.Get(); ok {
		if err := s.provider.ReplaceReminders(ctx, eventID, record.ReminderColumns(eventID, reminders)); err != nil {
			return id, fmt.Errorf("failed to replace reminders of %s: %w", eventID, err)
		}
	}

	s.logger.Info("event saved", "id", eventID, "kind", plan.Kind, "calendar_id", plan.CalendarID)
	return id, nil
}

// RemoveEvent deletes an event, or with opts.ExceptionDate cancels the single
// instance at that date. It reports whether anything changed.
func (s *Store) RemoveEvent(ctx context.Context, id string, opts record.SaveOptions) (bool, error) {
	if err := s.authorize(ctx, "remove event", false); err != nil {
		return false, err
	}

	req, err := record.BuildDeleteRequest(id, opts)
	if err != nil {
		return false, err
	}

	var writeOpts provider.WriteOptions
	if opts.Sync {
		row, err := s.provider.QueryEventByID(ctx, id)
		if err != nil {
			return false, fmt.Errorf("failed to query event %s: %w", id, err)
		}
		r, ok := row.Get()
		if !ok {
			return false, nil
		}
		if writeOpts, err = s.writeOptions(ctx, r.StringOr(record.ColCalendarID, ""), true); err != nil {
			return false, err
		}
	}

	switch req.Kind {
	case record.DeleteCancelInstance:
		created, err := s.provider.InsertEventException(ctx, id, req.Columns, writeOpts)
		if err != nil {
			return false, fmt.Errorf("failed to cancel instance of %s: %w", id, err)
		}
		s.logger.Info("event instance canceled", "id", id, "exception_id", created.OrEmpty())
		return created.IsPresent(), nil
	default:
		n, err := s.provider.DeleteEvent(ctx, id, writeOpts)
		if err != nil {
			return false, fmt.Errorf("failed to delete event %s: %w", id, err)
		}
		s.logger.Info("event removed", "id", id, "rows", n)
		return n > 0, nil
	}
}

// writeOptions returns sync-adapter options for the calendar's account after
// marking the calendar syncable, or plain options when sync is false.
func (s *Store) writeOptions(ctx context.Context, calendarID string, sync bool) (provider.WriteOptions, error) {
	if !sync {
		return provider.WriteOptions{}, nil
	}

	var account record.SyncAccount
	row, err := s.provider.QueryCalendarByID(ctx, calendarID)
	if err != nil {
		return provider.WriteOptions{}, fmt.Errorf("failed to query calendar %s: %w", calendarID, err)
	}
	if r, ok := row.Get(); ok {
		account = record.SyncAccount{
			Name: r.StringOr(record.ColAccountName, ""),
			Type: r.StringOr(record.ColAccountType, ""),
		}
	}
	if err := s.provider.MarkCalendarSyncable(ctx, calendarID); err != nil {
		return provider.WriteOptions{}, fmt.Errorf("failed to mark calendar %s syncable: %w", calendarID, err)
	}
	return provider.SyncAdapter(account), nil
}

// FindAllEvents lists the event instances in w.
func (s *Store) FindAllEvents(ctx context.Context, w query.Window) ([]model.Event, error) {
	if err := s.authorize(ctx, "find events", true); err != nil {
		return nil, err
	}

	rows, err := s.provider.QueryEventInstances(ctx, query.BuildInstanceQuery(w))
	if err != nil {
		return nil, fmt.Errorf("failed to query event instances: %w", err)
	}

	calendars := make(map[string]mo.Option[record.Row])
	events := make([]model.Event, 0, len(rows))
	for _, row := range rows {
		related, err := s.related(ctx, row, w.Projection, calendars)
		if err != nil {
			return nil, err
		}
		event, err := record.Materialize(row, w.Projection, related)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}

	s.logger.Debug("events found", "start", w.Start, "end", w.End, "count", len(events), "projection", w.Projection)
	return events, nil
}

// FindByID finds one event.
func (s *Store) FindByID(ctx context.Context, id string) (mo.Option[model.Event], error) {
	if err := s.authorize(ctx, "find event", true); err != nil {
		return mo.None[model.Event](), err
	}

	row, err := s.provider.QueryEventByID(ctx, id)
	if err != nil {
		return mo.None[model.Event](), fmt.Errorf("failed to query event %s: %w", id, err)
	}
	return s.materializeFull(ctx, row)
}

// FindInstanceByID finds one instance of an event. The result carries the
// instance's start and end and the owning event's id.
func (s *Store) FindInstanceByID(ctx context.Context, instanceID string) (mo.Option[model.Event], error) {
	if err := s.authorize(ctx, "find event instance", true); err != nil {
		return mo.None[model.Event](), err
	}

	row, err := s.provider.QueryInstanceByID(ctx, instanceID)
	if err != nil {
		return mo.None[model.Event](), fmt.Errorf("failed to query instance %s: %w", instanceID, err)
	}
	return s.materializeFull(ctx, row)
}

func (s *Store) materializeFull(ctx context.Context, row mo.Option[record.Row]) (mo.Option[model.Event], error) {
	r, ok := row.Get()
	if !ok {
		return mo.None[model.Event](), nil
	}
	related, err := s.related(ctx, r, record.ProjectionFull, nil)
	if err != nil {
		return mo.None[model.Event](), err
	}
	event, err := record.Materialize(r, record.ProjectionFull, related)
	if err != nil {
		return mo.None[model.Event](), err
	}
	return mo.Some(event), nil
}

// related loads what a full projection embeds. calendars caches calendar
// rows across calls and may be nil.
func (s *Store) related(ctx context.Context, row record.Row, projection record.Projection, calendars map[string]mo.Option[record.Row]) (record.Related, error) {
	if projection == record.ProjectionLite {
		return record.Related{}, nil
	}

	var related record.Related
	if calID, ok := row.String(record.ColCalendarID); ok {
		cal, cached := calendars[calID]
		if !cached {
			var err error
			if cal, err = s.provider.QueryCalendarByID(ctx, calID); err != nil {
				return related, fmt.Errorf("failed to query calendar %s: %w", calID, err)
			}
			if calendars != nil {
				calendars[calID] = cal
			}
		}
		related.Calendar = cal
	}

	eventID, ok := record.EventID(row)
	if !ok {
		return related, nil
	}
	attendees, err := s.provider.QueryAttendees(ctx, eventID)
	if err != nil {
		return related, fmt.Errorf("failed to query attendees of %s: %w", eventID, err)
	}
	related.Attendees = attendees

	if row.Bool(record.ColHasAlarm) {
		reminders, err := s.provider.QueryReminders(ctx, eventID)
		if err != nil {
			return related, fmt.Errorf("failed to query reminders of %s: %w", eventID, err)
		}
		related.Reminders = reminders
	}
	return related, nil
}

// zoneName returns the IANA zone name written to event rows for loc.
func zoneName(loc *time.Location) string {
	if name := loc.String(); name != "Local" {
		return name
	}
	return localZoneName()
}

// localtimePath is where the system zone is linked from.
var localtimePath = "/etc/localtime"

// localZoneName resolves time.Local to an IANA name from $TZ or the
// /etc/localtime link target, falling back to UTC.
func localZoneName() string {
	if tz, ok := os.LookupEnv("TZ"); ok {
		tz = strings.TrimPrefix(tz, ":")
		if tz == "" {
			return "UTC"
		}
		if _, name, ok := strings.Cut(tz, "zoneinfo/"); ok {
			tz = name
		}
		if _, err := time.LoadLocation(tz); err == nil {
			return tz
		}
	}
	if target, err := filepath.EvalSymlinks(localtimePath); err == nil {
		if _, name, ok := strings.Cut(target, "zoneinfo/"); ok {
			if _, err := time.LoadLocation(name); err == nil {
				return name
			}
		}
	}
	return "UTC"
}
