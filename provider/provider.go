// Package provider defines the calendar database the Store reads and writes.
package provider

import (
	"context"
	"fmt"

	"github.com/cyp0633/libcalevents/query"
	"github.com/cyp0633/libcalevents/record"
	"github.com/samber/mo"
)

// Provider connects the Store with a calendar database. Lookups of ids that
// do not exist return mo.None rather than an error.
type Provider interface {
	// QueryCalendars lists every calendar row.
	QueryCalendars(ctx context.Context) ([]record.Row, error)
	// QueryCalendarByID finds one calendar row.
	QueryCalendarByID(ctx context.Context, id string) (mo.Option[record.Row], error)
	// InsertCalendar creates a calendar and returns its id.
	InsertCalendar(ctx context.Context, columns record.Columns, opts WriteOptions) (string, error)
	// DeleteCalendar removes a calendar and returns the number of rows removed.
	DeleteCalendar(ctx context.Context, id string) (int, error)

	// QueryEventInstances expands recurring events over q.Begin..q.End and
	// returns the instance rows matching q.Where.
	QueryEventInstances(ctx context.Context, q query.InstanceQuery) ([]record.Row, error)
	// QueryInstanceByID finds one instance row by instance id.
	QueryInstanceByID(ctx context.Context, instanceID string) (mo.Option[record.Row], error)
	// QueryEventByID finds one event row that is not marked deleted.
	QueryEventByID(ctx context.Context, id string) (mo.Option[record.Row], error)

	// InsertEvent creates an event and returns its id if the insert produced one.
	InsertEvent(ctx context.Context, columns record.Columns, opts WriteOptions) (mo.Option[string], error)
	// UpdateEvent changes the given columns of an event.
	UpdateEvent(ctx context.Context, id string, columns record.Columns, opts WriteOptions) (int, error)
	// InsertEventException creates a detached exception of the series baseID.
	InsertEventException(ctx context.Context, baseID string, columns record.Columns, opts WriteOptions) (mo.Option[string], error)
	// DeleteEvent removes an event.
	DeleteEvent(ctx context.Context, id string, opts WriteOptions) (int, error)

	QueryAttendees(ctx context.Context, eventID string) ([]record.Row, error)
	// ReplaceAttendees deletes every attendee of eventID, then inserts list.
	ReplaceAttendees(ctx context.Context, eventID string, list []record.Columns) error
	QueryReminders(ctx context.Context, eventID string) ([]record.Row, error)
	// ReplaceReminders deletes every reminder of eventID, then inserts list.
	ReplaceReminders(ctx context.Context, eventID string, list []record.Columns) error

	// MarkCalendarSyncable enables sync and visibility on a calendar before a
	// sync-adapter write.
	MarkCalendarSyncable(ctx context.Context, calendarID string) error

	// EventsURI is the base address of single events, e.g.
	// "content://com.android.calendar/events".
	EventsURI() string
}

// WriteOptions describe the privilege a write is performed with.
type WriteOptions struct {
	// AsSyncAdapter bypasses per-account sync restrictions.
	AsSyncAdapter bool
	// Account is the account the sync adapter acts for.
	Account record.SyncAccount
}

// SyncAdapter returns options for a sync-adapter write on behalf of account.
func SyncAdapter(account record.SyncAccount) WriteOptions {
	return WriteOptions{AsSyncAdapter: true, Account: account}
}

// Error types
type ErrorType string

const (
	ErrNotFound     ErrorType = "not_found"
	ErrInvalidInput ErrorType = "invalid_input"
)

// Error lets an ErrorType be used as an errors.Is target.
func (t ErrorType) Error() string {
	return string(t)
}

// Error represents a provider-related error
type Error struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches an ErrorType target, so errors.Is(err, ErrNotFound) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(ErrorType)
	return ok && t == e.Type
}

// NewError creates a provider error of the given type.
func NewError(t ErrorType, format string, args ...any) *Error {
	return &Error{Type: t, Message: fmt.Sprintf(format, args...)}
}
