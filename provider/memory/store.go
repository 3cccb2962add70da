// Package memory is an in-memory Provider, used by tests and the CLI.
package memory

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cyp0633/libcalevents/model"
	"github.com/cyp0633/libcalevents/provider"
	"github.com/cyp0633/libcalevents/record"
	"github.com/cyp0633/libcalevents/recurrence"
	"github.com/emersion/go-ical"
	"github.com/samber/mo"
)

// DefaultEventsURI mirrors the Android calendar provider's events address.
const DefaultEventsURI = "content://com.android.calendar/events"

// SyncWrite records a write performed as a sync adapter.
type SyncWrite struct {
	Op      string
	ID      string
	Account record.SyncAccount
}

// Store implements provider.Provider using in-memory maps
type Store struct {
	mu        sync.RWMutex
	nextID    int64
	calendars map[string]record.Row
	events    map[string]record.Row
	attendees map[string][]record.Row // key: event id
	reminders map[string][]record.Row // key: event id
	syncLog   []SyncWrite

	engine    *recurrence.Engine
	ownEngine bool
	logger    *slog.Logger
	eventsURI string
}

var _ provider.Provider = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithEngine sets the engine used to expand recurring events. The caller
// keeps ownership and must close it.
func WithEngine(engine *recurrence.Engine) Option {
	return func(s *Store) {
		s.engine = engine
	}
}

// WithEventsURI overrides DefaultEventsURI.
func WithEventsURI(uri string) Option {
	return func(s *Store) {
		s.eventsURI = uri
	}
}

// New creates a new in-memory provider
func New(opts ...Option) *Store {
	s := &Store{
		calendars: make(map[string]record.Row),
		events:    make(map[string]record.Row),
		attendees: make(map[string][]record.Row),
		reminders: make(map[string][]record.Row),
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		eventsURI: DefaultEventsURI,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.engine == nil {
		s.engine = recurrence.NewEngine()
		s.ownEngine = true
	}
	return s
}

// Close releases the expansion engine if the Store created it.
func (s *Store) Close() {
	if s.ownEngine {
		s.engine.Close()
	}
}

// SyncWrites returns the sync-adapter writes performed so far.
func (s *Store) SyncWrites() []SyncWrite {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]SyncWrite, len(s.syncLog))
	copy(out, s.syncLog)
	return out
}

func (s *Store) EventsURI() string {
	return s.eventsURI
}

// newID returns the next row id. Caller holds the write lock.
func (s *Store) newID() string {
	s.nextID++
	return strconv.FormatInt(s.nextID, 10)
}

// recordSync logs a sync-adapter write. Caller holds the write lock.
func (s *Store) recordSync(op, id string, opts provider.WriteOptions) {
	if !opts.AsSyncAdapter {
		return
	}
	s.syncLog = append(s.syncLog, SyncWrite{Op: op, ID: id, Account: opts.Account})
	s.logger.Debug("sync adapter write",
		"op", op,
		"id", id,
		"account_name", opts.Account.Name,
		"account_type", opts.Account.Type)
}

func copyRow(row record.Row) record.Row {
	out := make(record.Row, len(row))
	for k, v := range row {
		out[k] = v
	}
	return out
}

// Calendar operations

func (s *Store) QueryCalendars(_ context.Context) ([]record.Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := make([]record.Row, 0, len(s.calendars))
	for _, row := range s.calendars {
		rows = append(rows, copyRow(row))
	}
	sortByID(rows, record.ColID)
	return rows, nil
}

func (s *Store) QueryCalendarByID(_ context.Context, id string) (mo.Option[record.Row], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row, ok := s.calendars[id]
	if !ok {
		return mo.None[record.Row](), nil
	}
	return mo.Some(copyRow(row)), nil
}

func (s *Store) InsertCalendar(_ context.Context, columns record.Columns, opts provider.WriteOptions) (string, error) {
	if !opts.AsSyncAdapter {
		return "", provider.NewError(provider.ErrInvalidInput, "calendars can only be inserted by a sync adapter")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.newID()
	row := record.Row{
		record.ColCalendarVisible:     int64(1),
		record.ColSyncEvents:          int64(1),
		record.ColIsPrimary:           int64(0),
		record.ColAllowedAvailability: record.FormatAllowedAvailabilities([]model.Availability{model.AvailabilityBusy, model.AvailabilityFree}),
	}
	for k, v := range columns {
		row[k] = v
	}
	row[record.ColID] = id
	s.calendars[id] = row

	s.recordSync("insert_calendar", id, opts)
	s.logger.Debug("calendar inserted", "id", id)
	return id, nil
}

// DeleteCalendar removes the calendar and every event in it.
func (s *Store) DeleteCalendar(_ context.Context, id string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.calendars[id]; !ok {
		return 0, nil
	}
	delete(s.calendars, id)

	removed := 0
	for eventID, row := range s.events {
		if row.StringOr(record.ColCalendarID, "") == id {
			s.dropEvent(eventID)
			removed++
		}
	}
	s.logger.Debug("calendar deleted", "id", id, "events", removed)
	return 1, nil
}

// MarkCalendarSyncable sets sync_events and visible on a calendar.
func (s *Store) MarkCalendarSyncable(_ context.Context, calendarID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.calendars[calendarID]
	if !ok {
		return provider.NewError(provider.ErrNotFound, "calendar %s not found", calendarID)
	}
	row[record.ColSyncEvents] = int64(1)
	row[record.ColCalendarVisible] = int64(1)
	return nil
}

// Event operations

func (s *Store) QueryEventByID(_ context.Context, id string) (mo.Option[record.Row], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row, ok := s.liveEvent(id)
	if !ok {
		return mo.None[record.Row](), nil
	}
	return mo.Some(copyRow(row)), nil
}

// liveEvent finds an event that is not marked deleted. Caller holds a lock.
func (s *Store) liveEvent(id string) (record.Row, bool) {
	row, ok := s.events[id]
	if !ok || row.Bool(record.ColDeleted) {
		return nil, false
	}
	return row, true
}

func (s *Store) InsertEvent(_ context.Context, columns record.Columns, opts provider.WriteOptions) (mo.Option[string], error) {
	calendarID, ok := columns[record.ColCalendarID]
	if !ok {
		return mo.None[string](), provider.NewError(provider.ErrInvalidInput, "event insert without %s", record.ColCalendarID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.calendars[fmt.Sprint(calendarID)]; !ok {
		return mo.None[string](), provider.NewError(provider.ErrNotFound, "calendar %v not found", calendarID)
	}

	id := s.newID()
	row := columns.Row()
	row[record.ColID] = id
	row[record.ColDeleted] = int64(0)
	s.events[id] = row

	s.recordSync("insert_event", id, opts)
	s.logger.Debug("event inserted", "id", id, "calendar_id", calendarID)
	return mo.Some(id), nil
}

func (s *Store) UpdateEvent(_ context.Context, id string, columns record.Columns, opts provider.WriteOptions) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.liveEvent(id)
	if !ok {
		return 0, nil
	}
	for k, v := range columns {
		if k == record.ColID {
			continue
		}
		row[k] = v
	}

	s.recordSync("update_event", id, opts)
	s.logger.Debug("event updated", "id", id, "columns", len(columns))
	return 1, nil
}

// InsertEventException copies the series row, applies columns on top and
// detaches the copy as an exception of baseID.
func (s *Store) InsertEventException(_ context.Context, baseID string, columns record.Columns, opts provider.WriteOptions) (mo.Option[string], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	base, ok := s.liveEvent(baseID)
	if !ok {
		return mo.None[string](), nil
	}
	originalMillis, ok := columns.Row().Int64(record.ColOriginalInstanceTime)
	if !ok {
		return mo.None[string](), provider.NewError(provider.ErrInvalidInput, "exception without %s", record.ColOriginalInstanceTime)
	}

	row := copyRow(base)
	delete(row, record.ColRRule)
	delete(row, record.ColDuration)

	span := eventSpan(base)
	for k, v := range columns {
		row[k] = v
	}

	// The exception replaces a single instance; anchor it there unless the
	// caller moved it.
	if _, moved := columns[record.ColDTStart]; !moved {
		row[record.ColDTStart] = originalMillis
	}
	if _, ok := columns[record.ColDTEnd]; !ok {
		start, _ := row.Int64(record.ColDTStart)
		row[record.ColDTEnd] = start + span.Milliseconds()
	}

	id := s.newID()
	row[record.ColID] = id
	row[record.ColOriginalID] = baseID
	row[record.ColDeleted] = int64(0)
	if syncID, ok := base.String(record.ColOriginalSyncID); ok {
		row[record.ColOriginalSyncID] = syncID
	}
	s.events[id] = row

	s.recordSync("insert_exception", id, opts)
	s.logger.Debug("event exception inserted", "id", id, "original_id", baseID)
	return mo.Some(id), nil
}

// DeleteEvent marks an event and its exceptions deleted. A sync adapter
// removes them outright.
func (s *Store) DeleteEvent(_ context.Context, id string, opts provider.WriteOptions) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.liveEvent(id); !ok {
		return 0, nil
	}

	targets := []string{id}
	for eventID, row := range s.events {
		if row.StringOr(record.ColOriginalID, "") == id {
			targets = append(targets, eventID)
		}
	}
	for _, eventID := range targets {
		if opts.AsSyncAdapter {
			s.dropEvent(eventID)
		} else {
			s.events[eventID][record.ColDeleted] = int64(1)
		}
	}

	s.recordSync("delete_event", id, opts)
	s.logger.Debug("event deleted", "id", id, "rows", len(targets))
	return 1, nil
}

// dropEvent physically removes an event. Caller holds the write lock.
func (s *Store) dropEvent(id string) {
	delete(s.events, id)
	delete(s.attendees, id)
	delete(s.reminders, id)
}

// Attendees and reminders

func (s *Store) QueryAttendees(_ context.Context, eventID string) ([]record.Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyRows(s.attendees[eventID]), nil
}

func (s *Store) ReplaceAttendees(_ context.Context, eventID string, list []record.Columns) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.attendees[eventID] = s.subRows(eventID, record.ColAttendeeEventID, list)
	return nil
}

func (s *Store) QueryReminders(_ context.Context, eventID string) ([]record.Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyRows(s.reminders[eventID]), nil
}

func (s *Store) ReplaceReminders(_ context.Context, eventID string, list []record.Columns) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reminders[eventID] = s.subRows(eventID, record.ColReminderEventID, list)
	return nil
}

// subRows assigns ids to a replacement list. Caller holds the write lock.
func (s *Store) subRows(eventID, eventCol string, list []record.Columns) []record.Row {
	rows := make([]record.Row, 0, len(list))
	for _, cols := range list {
		row := cols.Row()
		row[record.ColID] = s.newID()
		row[eventCol] = eventID
		rows = append(rows, row)
	}
	return rows
}

func copyRows(rows []record.Row) []record.Row {
	out := make([]record.Row, len(rows))
	for i, row := range rows {
		out[i] = copyRow(row)
	}
	return out
}

func sortByID(rows []record.Row, col string) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, _ := rows[i].Int64(col)
		b, _ := rows[j].Int64(col)
		return a < b
	})
}

// eventSpan is dtend-dtstart, or the RFC 5545 duration column for series
// stored without an end.
func eventSpan(row record.Row) time.Duration {
	start, okStart := row.Int64(record.ColDTStart)
	end, okEnd := row.Int64(record.ColDTEnd)
	if okStart && okEnd && end >= start {
		return time.Duration(end-start) * time.Millisecond
	}
	if text, ok := row.String(record.ColDuration); ok && text != "" {
		prop := ical.NewProp(ical.PropDuration)
		prop.Value = strings.TrimSpace(text)
		if d, err := prop.Duration(); err == nil && d > 0 {
			return d
		}
	}
	return 0
}
