package query

import (
	"fmt"
	"testing"
	"time"

	"github.com/cyp0633/libcalevents/record"
	"github.com/stretchr/testify/assert"
)

var (
	winStart = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	winEnd   = time.Date(2024, 6, 8, 0, 0, 0, 0, time.UTC)
)

func instance(begin, end time.Time) record.Row {
	return record.Row{
		record.ColBegin:      begin.UnixMilli(),
		record.ColEnd:        end.UnixMilli(),
		record.ColVisible:    int64(1),
		record.ColStatus:     int64(1),
		record.ColCalendarID: "2",
	}
}

func TestBuildWindowPredicateString(t *testing.T) {
	p := BuildWindowPredicate(NewWindow(winStart, winEnd).Calendars("2", "5"))

	want := fmt.Sprintf(
		"((begin < %d) AND (end > %d) AND (visible = 1) AND (eventStatus IS NOT 2) AND (calendar_id = 2 OR calendar_id = 5))",
		winEnd.UnixMilli(), winStart.UnixMilli())
	assert.Equal(t, want, p.String())

	noCalendars := BuildWindowPredicate(NewWindow(winStart, winEnd))
	assert.NotContains(t, noCalendars.String(), "calendar_id")
}

func TestWindowBoundaries(t *testing.T) {
	p := BuildWindowPredicate(NewWindow(winStart, winEnd))
	hour := time.Hour

	tests := []struct {
		name  string
		row   record.Row
		match bool
	}{
		{"inside", instance(winStart.Add(hour), winStart.Add(2*hour)), true},
		{"begins exactly at window end", instance(winEnd, winEnd.Add(hour)), false},
		{"ends exactly at window start", instance(winStart.Add(-hour), winStart), false},
		{"ends just after window start", instance(winStart.Add(-hour), winStart.Add(time.Millisecond)), true},
		{"ends before window start", instance(winStart.Add(-2*hour), winStart.Add(-hour)), false},
		{"spans the whole window", instance(winStart.Add(-hour), winEnd.Add(hour)), true},
		{"begins just before window end", instance(winEnd.Add(-time.Millisecond), winEnd.Add(hour)), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.match, p.Match(tt.row))
		})
	}
}

func TestWindowStatusAndVisibility(t *testing.T) {
	p := BuildWindowPredicate(NewWindow(winStart, winEnd))
	at := winStart.Add(time.Hour)

	canceled := instance(at, at.Add(time.Hour))
	canceled[record.ColStatus] = int64(2)
	assert.False(t, p.Match(canceled))

	nullStatus := instance(at, at.Add(time.Hour))
	delete(nullStatus, record.ColStatus)
	assert.True(t, p.Match(nullStatus))

	hidden := instance(at, at.Add(time.Hour))
	hidden[record.ColVisible] = int64(0)
	assert.False(t, p.Match(hidden))
}

func TestWindowCalendarFilter(t *testing.T) {
	at := winStart.Add(time.Hour)
	row := instance(at, at.Add(time.Hour))

	assert.True(t, BuildWindowPredicate(NewWindow(winStart, winEnd).Calendars("1", "2")).Match(row))
	assert.False(t, BuildWindowPredicate(NewWindow(winStart, winEnd).Calendars("3")).Match(row))

	row[record.ColCalendarID] = int64(3)
	assert.True(t, BuildWindowPredicate(NewWindow(winStart, winEnd).Calendars("3")).Match(row))
}

func TestBuildInstanceQuery(t *testing.T) {
	q := BuildInstanceQuery(NewWindow(winStart, winEnd).Lite())

	assert.Equal(t, winStart, q.Begin)
	assert.Equal(t, winEnd, q.End)
	assert.Equal(t, record.ProjectionLite, q.Projection)
	assert.Equal(t, record.InstanceColumns, q.Columns)
	assert.NotNil(t, q.Where)
}

func TestPredicateCombinators(t *testing.T) {
	row := record.Row{"a": int64(5), "b": "x'y"}

	assert.True(t, Or{Compare{"a", OpGt, int64(10)}, Compare{"a", OpLe, int64(5)}}.Match(row))
	assert.False(t, And{Compare{"a", OpGt, int64(1)}, Compare{"b", OpEq, "z"}}.Match(row))
	assert.True(t, Compare{"b", OpEq, "x'y"}.Match(row))
	assert.Equal(t, "(b = 'x''y')", Compare{"b", OpEq, "x'y"}.String())
	assert.False(t, Compare{"missing", OpEq, int64(1)}.Match(row))
	assert.True(t, Compare{"missing", OpIsNot, int64(1)}.Match(row))
}
