// Package permission decides whether the host may read or write the user's
// calendars.
package permission

import (
	"context"
	"errors"
	"fmt"
)

// Status is the answer to a permission check.
type Status string

const (
	StatusAuthorized   Status = "authorized"
	StatusDenied       Status = "denied"
	StatusRestricted   Status = "restricted"
	StatusUndetermined Status = "undetermined"
)

// Platform permission names.
const (
	ReadCalendar  = "READ_CALENDAR"
	WriteCalendar = "WRITE_CALENDAR"
)

// ErrNotAuthorized is returned by Store operations attempted without the
// required permission.
var ErrNotAuthorized = errors.New("calendar permission not granted")

// ErrorType represents the type of permission error
type ErrorType string

const (
	ErrUnknownResult  ErrorType = "unknown_result"
	ErrUnknownRequest ErrorType = "unknown_request"
	ErrNoPrompter     ErrorType = "no_prompter"
)

func (t ErrorType) Error() string {
	return string(t)
}

// Error represents a permission-related error
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

func (e *Error) Is(target error) bool {
	t, ok := target.(ErrorType)
	return ok && t == e.Type
}

// Gate is the permission collaborator of the Store.
type Gate interface {
	// HasPermission reports whether read (readOnly) or read-write access is
	// currently granted.
	HasPermission(ctx context.Context, readOnly bool) bool

	// CheckPermission reports the status without prompting.
	CheckPermission(ctx context.Context, readOnly bool) Status

	// RequestPermission prompts the user if needed and waits for the answer
	// or for ctx to be done.
	RequestPermission(ctx context.Context, readOnly bool) (Status, error)
}

// Permissions lists the platform permissions a mode needs.
func Permissions(readOnly bool) []string {
	if readOnly {
		return []string{ReadCalendar}
	}
	return []string{WriteCalendar, ReadCalendar}
}

// RequestedKey is the preference key remembering that a mode was requested.
// Read-write keeps the older key name.
func RequestedKey(readOnly bool) string {
	if readOnly {
		return "permissionRequestedRead"
	}
	return "permissionRequested"
}

// Evaluate derives the status of a check. has is whether the permission is
// granted, requested whether it was ever requested in this mode, and
// rationale whether the platform suggests explaining the request again.
func Evaluate(has, requested, rationale bool) Status {
	switch {
	case has:
		return StatusAuthorized
	case !requested:
		return StatusUndetermined
	case rationale:
		return StatusDenied
	default:
		return StatusRestricted
	}
}
