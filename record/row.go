// Package record converts between provider rows and the domain model.
//
// A Row is what a provider query returns for one record; Columns is what a
// write hands to the provider. Both are keyed by the provider column names
// declared below.
package record

import (
	"strconv"
	"time"
)

// Event and instance columns.
const (
	ColID                   = "_id"
	ColEventID              = "event_id"
	ColTitle                = "title"
	ColDescription          = "description"
	ColDTStart              = "dtstart"
	ColDTEnd                = "dtend"
	ColBegin                = "begin"
	ColEnd                  = "end"
	ColAllDay               = "allDay"
	ColLocation             = "eventLocation"
	ColRRule                = "rrule"
	ColCalendarID           = "calendar_id"
	ColAvailability         = "availability"
	ColHasAlarm             = "hasAlarm"
	ColOriginalID           = "original_id"
	ColDuration             = "duration"
	ColOriginalSyncID       = "original_sync_id"
	ColOriginalInstanceTime = "originalInstanceTime"
	ColTimeZone             = "eventTimezone"
	ColEndTimeZone          = "eventEndTimezone"
	ColStatus               = "eventStatus"
	ColVisible              = "visible"
	ColDeleted              = "deleted"
)

// Calendar columns.
const (
	ColCalendarDisplayName = "calendar_displayName"
	ColAccountName         = "account_name"
	ColAccountType         = "account_type"
	ColIsPrimary           = "isPrimary"
	ColAccessLevel         = "calendar_access_level"
	ColAllowedAvailability = "allowedAvailability"
	ColCalendarColor       = "calendar_color"
	ColOwnerAccount        = "ownerAccount"
	ColName                = "name"
	ColSyncEvents          = "sync_events"
	ColCalendarVisible     = "visible"

	// AccountTypeLocal is used for calendars that belong to no sync account.
	AccountTypeLocal = "LOCAL"
)

// Attendee and reminder columns.
const (
	ColAttendeeEventID      = "event_id"
	ColAttendeeName         = "attendeeName"
	ColAttendeeEmail        = "attendeeEmail"
	ColAttendeeType         = "attendeeType"
	ColAttendeeRelationship = "attendeeRelationship"
	ColAttendeeStatus       = "attendeeStatus"
	ColAttendeeIdentity     = "attendeeIdentity"
	ColAttendeeIDNamespace  = "attendeeIdNamespace"

	ColReminderEventID = "event_id"
	ColMinutes         = "minutes"
	ColMethod          = "method"

	// MethodAlert is the only reminder method written.
	MethodAlert = 1
)

// Row is one record as a provider returns it. Values are strings, integers,
// floats, booleans or nil.
type Row map[string]any

// Columns is a set of column assignments for a write.
type Columns map[string]any

// Has reports whether the row carries a non-nil value for key.
func (r Row) Has(key string) bool {
	v, ok := r[key]
	return ok && v != nil
}

// String returns the value of key rendered as a string.
func (r Row) String(key string) (string, bool) {
	switch v := r[key].(type) {
	case nil:
		return "", false
	case string:
		return v, true
	case int:
		return strconv.Itoa(v), true
	case int32:
		return strconv.FormatInt(int64(v), 10), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case bool:
		if v {
			return "1", true
		}
		return "0", true
	}
	return "", false
}

// StringOr returns the string value of key or def.
func (r Row) StringOr(key, def string) string {
	if s, ok := r.String(key); ok {
		return s
	}
	return def
}

// Int64 returns the value of key as an integer. Numeric strings are parsed.
func (r Row) Int64(key string) (int64, bool) {
	switch v := r[key].(type) {
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case float64:
		return int64(v), true
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

// Bool treats any non-zero integer as true.
func (r Row) Bool(key string) bool {
	n, ok := r.Int64(key)
	return ok && n != 0
}

// Millis reads an epoch-milliseconds column as a UTC instant.
func (r Row) Millis(key string) (time.Time, bool) {
	ms, ok := r.Int64(key)
	if !ok {
		return time.Time{}, false
	}
	return time.UnixMilli(ms).UTC(), true
}

// Row views the columns as a row, e.g. for a provider that stores them.
func (c Columns) Row() Row {
	row := make(Row, len(c))
	for k, v := range c {
		row[k] = v
	}
	return row
}

// SyncAccount identifies the account a sync-adapter write acts for.
type SyncAccount struct {
	Name string
	Type string
}
