package provider

import (
	"context"

	"github.com/cyp0633/libcalevents/query"
	"github.com/cyp0633/libcalevents/record"
	"github.com/samber/mo"
	"github.com/stretchr/testify/mock"
)

// MockProvider implements the Provider interface for testing
type MockProvider struct {
	mock.Mock
}

var _ Provider = (*MockProvider)(nil)

func (m *MockProvider) QueryCalendars(ctx context.Context) ([]record.Row, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]record.Row), args.Error(1)
}

func (m *MockProvider) QueryCalendarByID(ctx context.Context, id string) (mo.Option[record.Row], error) {
	args := m.Called(ctx, id)
	return args.Get(0).(mo.Option[record.Row]), args.Error(1)
}

func (m *MockProvider) InsertCalendar(ctx context.Context, columns record.Columns, opts WriteOptions) (string, error) {
	args := m.Called(ctx, columns, opts)
	return args.String(0), args.Error(1)
}

func (m *MockProvider) DeleteCalendar(ctx context.Context, id string) (int, error) {
	args := m.Called(ctx, id)
	return args.Int(0), args.Error(1)
}

func (m *MockProvider) QueryEventInstances(ctx context.Context, q query.InstanceQuery) ([]record.Row, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]record.Row), args.Error(1)
}

func (m *MockProvider) QueryInstanceByID(ctx context.Context, instanceID string) (mo.Option[record.Row], error) {
	args := m.Called(ctx, instanceID)
	return args.Get(0).(mo.Option[record.Row]), args.Error(1)
}

func (m *MockProvider) QueryEventByID(ctx context.Context, id string) (mo.Option[record.Row], error) {
	args := m.Called(ctx, id)
	return args.Get(0).(mo.Option[record.Row]), args.Error(1)
}

func (m *MockProvider) InsertEvent(ctx context.Context, columns record.Columns, opts WriteOptions) (mo.Option[string], error) {
	args := m.Called(ctx, columns, opts)
	return args.Get(0).(mo.Option[string]), args.Error(1)
}

func (m *MockProvider) UpdateEvent(ctx context.Context, id string, columns record.Columns, opts WriteOptions) (int, error) {
	args := m.Called(ctx, id, columns, opts)
	return args.Int(0), args.Error(1)
}

func (m *MockProvider) InsertEventException(ctx context.Context, baseID string, columns record.Columns, opts WriteOptions) (mo.Option[string], error) {
	args := m.Called(ctx, baseID, columns, opts)
	return args.Get(0).(mo.Option[string]), args.Error(1)
}

func (m *MockProvider) DeleteEvent(ctx context.Context, id string, opts WriteOptions) (int, error) {
	args := m.Called(ctx, id, opts)
	return args.Int(0), args.Error(1)
}

func (m *MockProvider) QueryAttendees(ctx context.Context, eventID string) ([]record.Row, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]record.Row), args.Error(1)
}

func (m *MockProvider) ReplaceAttendees(ctx context.Context, eventID string, list []record.Columns) error {
	args := m.Called(ctx, eventID, list)
	return args.Error(0)
}

func (m *MockProvider) QueryReminders(ctx context.Context, eventID string) ([]record.Row, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]record.Row), args.Error(1)
}

func (m *MockProvider) ReplaceReminders(ctx context.Context, eventID string, list []record.Columns) error {
	args := m.Called(ctx, eventID, list)
	return args.Error(0)
}

func (m *MockProvider) MarkCalendarSyncable(ctx context.Context, calendarID string) error {
	args := m.Called(ctx, calendarID)
	return args.Error(0)
}

func (m *MockProvider) EventsURI() string {
	args := m.Called()
	return args.String(0)
}

// --- Helper methods for creating test data ---

// NewMockCalendarRow creates a calendar row with the given id and access level.
func NewMockCalendarRow(id, title string, accessLevel int64) record.Row {
	return record.Row{
		record.ColID:                  id,
		record.ColCalendarDisplayName: title,
		record.ColAccountName:         "user@example.com",
		record.ColAccountType:         "com.example",
		record.ColIsPrimary:           int64(0),
		record.ColAccessLevel:         accessLevel,
		record.ColAllowedAvailability: "0,1",
		record.ColCalendarColor:       int64(0x2196F3),
	}
}

// NewMockEventRow creates an event row starting at startMillis and lasting
// one hour.
func NewMockEventRow(id, calendarID, title string, startMillis int64) record.Row {
	return record.Row{
		record.ColID:         id,
		record.ColTitle:      title,
		record.ColDTStart:    startMillis,
		record.ColDTEnd:      startMillis + 60*60*1000,
		record.ColCalendarID: calendarID,
		record.ColHasAlarm:   int64(0),
	}
}
