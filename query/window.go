package query

import (
	"time"

	"github.com/cyp0633/libcalevents/model"
	"github.com/cyp0633/libcalevents/record"
)

// Window selects the instances overlapping [Start, End) on the given
// calendars. An empty CalendarIDs means every calendar.
type Window struct {
	Start       time.Time
	End         time.Time
	CalendarIDs []string
	Projection  record.Projection
}

// NewWindow returns a full-projection window over every calendar.
func NewWindow(start, end time.Time) Window {
	return Window{Start: start, End: end}
}

// Calendars restricts the window to the given calendar ids.
func (w Window) Calendars(ids ...string) Window {
	w.CalendarIDs = ids
	return w
}

// Lite switches the window to the lite projection.
func (w Window) Lite() Window {
	w.Projection = record.ProjectionLite
	return w
}

// BuildWindowPredicate returns the selection for w: the instance begins
// before End and ends after Start, is visible and not canceled, and
// belongs to one of the requested calendars.
func BuildWindowPredicate(w Window) Predicate {
	terms := And{
		Compare{Column: record.ColBegin, Op: OpLt, Value: w.End.UnixMilli()},
		Compare{Column: record.ColEnd, Op: OpGt, Value: w.Start.UnixMilli()},
		Compare{Column: record.ColVisible, Op: OpEq, Value: int64(1)},
		Compare{Column: record.ColStatus, Op: OpIsNot, Value: int64(model.StatusCanceled)},
	}
	if len(w.CalendarIDs) > 0 {
		terms = append(terms, In{Column: record.ColCalendarID, Values: w.CalendarIDs})
	}
	return terms
}

// InstanceQuery is what a provider needs to list instances: the range to
// expand recurring series over, the selection, and the columns to return.
type InstanceQuery struct {
	Begin      time.Time
	End        time.Time
	Where      Predicate
	Columns    []string
	Projection record.Projection
}

// BuildInstanceQuery bundles w into an InstanceQuery.
func BuildInstanceQuery(w Window) InstanceQuery {
	return InstanceQuery{
		Begin:      w.Start,
		End:        w.End,
		Where:      BuildWindowPredicate(w),
		Columns:    record.InstanceColumns,
		Projection: w.Projection,
	}
}
