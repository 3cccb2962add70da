package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cyp0633/libcalevents/query"
	"github.com/cyp0633/libcalevents/record"
	"github.com/cyp0633/libcalevents/recurrence"
	"github.com/samber/mo"
)

// instanceID identifies one occurrence of an event.
func instanceID(eventID string, beginMillis int64) string {
	return fmt.Sprintf("%s:%d", eventID, beginMillis)
}

func parseInstanceID(id string) (string, int64, bool) {
	eventID, begin, ok := strings.Cut(id, ":")
	if !ok {
		return "", 0, false
	}
	ms, err := strconv.ParseInt(begin, 10, 64)
	if err != nil {
		return "", 0, false
	}
	return eventID, ms, true
}

// QueryEventInstances expands every live event over q.Begin..q.End, drops
// series instances that have a detached exception, and returns the instances
// matching q.Where projected onto q.Columns, ordered by begin.
func (s *Store) QueryEventInstances(ctx context.Context, q query.InstanceQuery) ([]record.Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	overridden := s.overriddenInstances()

	var rows []record.Row
	for id, event := range s.events {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if event.Bool(record.ColDeleted) {
			continue
		}

		instances, err := s.expand(id, event, q.Begin, q.End)
		if errors.Is(err, recurrence.ErrExpansionLimit) {
			return nil, fmt.Errorf("event %s: %w", id, err)
		}
		if err != nil {
			s.logger.Warn("skipping event with unexpandable recurrence", "id", id, "error", err)
			continue
		}
		for _, inst := range instances {
			if overridden[instanceKey(id, inst.Start)] {
				continue
			}
			row := s.instanceRow(id, event, inst)
			if q.Where != nil && !q.Where.Match(row) {
				continue
			}
			rows = append(rows, project(row, q.Columns))
		}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		a, _ := rows[i].Int64(record.ColBegin)
		b, _ := rows[j].Int64(record.ColBegin)
		if a != b {
			return a < b
		}
		return rows[i].StringOr(record.ColEventID, "") < rows[j].StringOr(record.ColEventID, "")
	})

	s.logger.Debug("instances queried", "begin", q.Begin, "end", q.End, "count", len(rows))
	return rows, nil
}

// QueryInstanceByID resolves an instance id produced by QueryEventInstances.
func (s *Store) QueryInstanceByID(_ context.Context, id string) (mo.Option[record.Row], error) {
	eventID, beginMillis, ok := parseInstanceID(id)
	if !ok {
		return mo.None[record.Row](), nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	event, ok := s.liveEvent(eventID)
	if !ok {
		return mo.None[record.Row](), nil
	}

	begin := time.UnixMilli(beginMillis).UTC()
	instances, err := s.expand(eventID, event, begin, begin.Add(time.Millisecond))
	if err != nil {
		return mo.None[record.Row](), err
	}
	for _, inst := range instances {
		if inst.Start.Equal(begin) {
			return mo.Some(s.instanceRow(eventID, event, inst)), nil
		}
	}
	return mo.None[record.Row](), nil
}

func instanceKey(seriesID string, start time.Time) string {
	return instanceID(seriesID, start.UnixMilli())
}

// overriddenInstances collects the series instances replaced by a live
// exception. Caller holds a lock.
func (s *Store) overriddenInstances() map[string]bool {
	out := make(map[string]bool)
	for _, event := range s.events {
		if event.Bool(record.ColDeleted) {
			continue
		}
		seriesID, ok := event.String(record.ColOriginalID)
		if !ok {
			continue
		}
		if original, ok := event.Millis(record.ColOriginalInstanceTime); ok {
			out[instanceKey(seriesID, original)] = true
		}
	}
	return out
}

// expand returns the occurrences of one event overlapping [begin, end).
func (s *Store) expand(id string, event record.Row, begin, end time.Time) ([]recurrence.Occurrence, error) {
	start, ok := event.Millis(record.ColDTStart)
	if !ok {
		return nil, nil
	}
	span := eventSpan(event)

	text, _ := event.String(record.ColRRule)
	if strings.TrimSpace(text) == "" {
		occ := recurrence.Occurrence{Start: start, End: start.Add(span)}
		if occ.Start.Before(end) && !occ.End.Before(begin) {
			return []recurrence.Occurrence{occ}, nil
		}
		return nil, nil
	}

	rule, err := recurrence.Decode(text)
	if err != nil {
		return nil, fmt.Errorf("event %s: %w", id, err)
	}
	return s.engine.Occurrences(start.In(eventLocation(event)), span, rule, begin, end)
}

// eventLocation is the zone a series is expanded in: the row's
// eventTimezone, or UTC when it is missing or unknown.
func eventLocation(event record.Row) *time.Location {
	name, ok := event.String(record.ColTimeZone)
	if !ok || name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// instanceRow builds the instance view of an event occurrence. Caller holds
// a lock.
func (s *Store) instanceRow(eventID string, event record.Row, inst recurrence.Occurrence) record.Row {
	row := copyRow(event)
	row[record.ColID] = instanceID(eventID, inst.Start.UnixMilli())
	row[record.ColEventID] = eventID
	row[record.ColBegin] = inst.Start.UnixMilli()
	row[record.ColEnd] = inst.End.UnixMilli()

	visible := int64(1)
	if cal, ok := s.calendars[event.StringOr(record.ColCalendarID, "")]; ok {
		if v, ok := cal.Int64(record.ColCalendarVisible); ok {
			visible = v
		}
	}
	row[record.ColVisible] = visible
	return row
}

// project keeps only the requested columns. An empty list keeps everything.
func project(row record.Row, columns []string) record.Row {
	if len(columns) == 0 {
		return row
	}
	out := make(record.Row, len(columns))
	for _, col := range columns {
		if v, ok := row[col]; ok {
			out[col] = v
		}
	}
	return out
}
