// Package calevents reads and writes calendar events, calendars, attendees and
// reminders through a Provider, after checking a permission Gate.
//
// Every operation checks the gate first and fails with
// permission.ErrNotAuthorized without touching the provider when access is
// missing. Finds need read access; everything else needs read-write access.
package calevents

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/cyp0633/libcalevents/model"
	"github.com/cyp0633/libcalevents/permission"
	"github.com/cyp0633/libcalevents/provider"
	"github.com/cyp0633/libcalevents/record"
)

// Store is the calendar events facade.
type Store struct {
	provider           provider.Provider
	gate               permission.Gate
	logger             *slog.Logger
	location           *time.Location
	fallbackCalendarID string
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger for the store
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithLocation sets the zone used for zone-less timestamps and as the default
// event time zone. Defaults to time.Local.
func WithLocation(loc *time.Location) Option {
	return func(s *Store) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithFallbackCalendarID sets the calendar new events go to when none is
// given.
func WithFallbackCalendarID(id string) Option {
	return func(s *Store) {
		if id != "" {
			s.fallbackCalendarID = id
		}
	}
}

// New creates a Store over p, gated by gate.
func New(p provider.Provider, gate permission.Gate, opts ...Option) *Store {
	s := &Store{
		provider:           p,
		gate:               gate,
		logger:             slog.New(slog.NewTextHandler(io.Discard, nil)),
		location:           time.Local,
		fallbackCalendarID: record.DefaultFallbackCalendarID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) authorize(ctx context.Context, op string, readOnly bool) error {
	if s.gate.HasPermission(ctx, readOnly) {
		return nil
	}
	s.logger.Warn("operation not authorized", "op", op, "read_only", readOnly)
	return fmt.Errorf("%s: %w", op, permission.ErrNotAuthorized)
}

// CheckPermissions reports the permission status without prompting.
func (s *Store) CheckPermissions(ctx context.Context, readOnly bool) permission.Status {
	return s.gate.CheckPermission(ctx, readOnly)
}

// RequestPermissions prompts for permission if needed.
func (s *Store) RequestPermissions(ctx context.Context, readOnly bool) (permission.Status, error) {
	return s.gate.RequestPermission(ctx, readOnly)
}

// EventURI returns the address of a single event.
func (s *Store) EventURI(id string) string {
	return strings.TrimSuffix(s.provider.EventsURI(), "/") + "/" + id
}

// CalendarURI returns the base address of events.
func (s *Store) CalendarURI() string {
	return s.provider.EventsURI()
}

// Calendars

// FindCalendars lists every calendar.
func (s *Store) FindCalendars(ctx context.Context) ([]model.Calendar, error) {
	if err := s.authorize(ctx, "find calendars", true); err != nil {
		return nil, err
	}

	rows, err := s.provider.QueryCalendars(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query calendars: %w", err)
	}
	calendars := make([]model.Calendar, 0, len(rows))
	for _, row := range rows {
		calendars = append(calendars, record.CalendarFromRow(row))
	}
	return calendars, nil
}

// SaveCalendar creates a calendar as a sync adapter for its source account
// and returns the new id.
func (s *Store) SaveCalendar(ctx context.Context, input record.CalendarInput) (string, error) {
	if err := s.authorize(ctx, "save calendar", false); err != nil {
		return "", err
	}

	cols, account, err := record.BuildCalendarColumns(input)
	if err != nil {
		return "", err
	}
	id, err := s.provider.InsertCalendar(ctx, cols, provider.SyncAdapter(account))
	if err != nil {
		return "", fmt.Errorf("failed to insert calendar: %w", err)
	}

	s.logger.Info("calendar saved", "id", id, "account_name", account.Name, "account_type", account.Type)
	return id, nil
}

// RemoveCalendar deletes a calendar and reports whether it existed.
func (s *Store) RemoveCalendar(ctx context.Context, id string) (bool, error) {
	if err := s.authorize(ctx, "remove calendar", false); err != nil {
		return false, err
	}

	n, err := s.provider.DeleteCalendar(ctx, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete calendar %s: %w", id, err)
	}
	s.logger.Info("calendar removed", "id", id, "rows", n)
	return n > 0, nil
}
