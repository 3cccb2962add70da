package recurrence

import (
	"testing"
	"time"

	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teambition/rrule-go"
)

func starts(occurrences []Occurrence) []time.Time {
	out := make([]time.Time, len(occurrences))
	for i, o := range occurrences {
		out[i] = o.Start
	}
	return out
}

func TestEngine_Occurrences(t *testing.T) {
	engine := NewEngineWithConfig(DisabledCacheConfig)
	defer engine.Close()

	// Daily stand-up 9-10 AM starting Monday Jan 1, 2024
	dtstart := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	hour := time.Hour

	tests := []struct {
		name       string
		rule       Rule
		rangeStart time.Time
		rangeEnd   time.Time
		want       []time.Time
	}{
		{
			name:       "daily with count",
			rule:       Rule{Frequency: Daily, Occurrences: mo.Some[uint32](3)},
			rangeStart: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			rangeEnd:   time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
			want: []time.Time{
				time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
				time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC),
				time.Date(2024, 1, 3, 9, 0, 0, 0, time.UTC),
			},
		},
		{
			name:       "range end is exclusive",
			rule:       Rule{Frequency: Daily},
			rangeStart: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
			rangeEnd:   time.Date(2024, 1, 3, 9, 0, 0, 0, time.UTC),
			want: []time.Time{
				time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC),
			},
		},
		{
			name:       "instance ending exactly at range start is included",
			rule:       Rule{Frequency: Daily},
			rangeStart: time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC),
			rangeEnd:   time.Date(2024, 1, 2, 12, 0, 0, 0, time.UTC),
			want: []time.Time{
				time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC),
			},
		},
		{
			name: "weekly on two days",
			rule: Rule{
				Frequency:  Weekly,
				DaysOfWeek: mo.Some([]string{"mo", "we"}),
			},
			rangeStart: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			rangeEnd:   time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC),
			want: []time.Time{
				time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
				time.Date(2024, 1, 3, 9, 0, 0, 0, time.UTC),
			},
		},
		{
			name: "last sunday of month",
			rule: Rule{
				Frequency:           Monthly,
				DaysOfWeek:          mo.Some([]string{"su"}),
				WeekPositionInMonth: mo.Some[int32](-1),
				Occurrences:         mo.Some[uint32](2),
			},
			rangeStart: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			rangeEnd:   time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
			want: []time.Time{
				time.Date(2024, 1, 28, 9, 0, 0, 0, time.UTC),
				time.Date(2024, 2, 25, 9, 0, 0, 0, time.UTC),
			},
		},
		{
			name: "until bound",
			rule: Rule{
				Frequency: Weekly,
				EndDate:   mo.Some(time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)),
			},
			rangeStart: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			rangeEnd:   time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			want: []time.Time{
				time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
				time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC),
				time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := engine.Occurrences(dtstart, hour, tt.rule, tt.rangeStart, tt.rangeEnd)
			require.NoError(t, err)
			assert.Equal(t, tt.want, starts(got))
			for _, o := range got {
				assert.Equal(t, hour, o.End.Sub(o.Start))
			}
		})
	}
}

func TestEngine_HasOccurrenceInRange(t *testing.T) {
	engine := NewEngine()
	defer engine.Close()

	dtstart := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	rule := Rule{Frequency: Daily, Occurrences: mo.Some[uint32](3)}

	ok, err := engine.HasOccurrenceInRange(dtstart, time.Hour, rule,
		time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = engine.HasOccurrenceInRange(dtstart, time.Hour, rule,
		time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), time.Date(2024, 1, 11, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEngine_UnsupportedFrequency(t *testing.T) {
	engine := NewEngineWithConfig(DisabledCacheConfig)

	_, err := engine.Occurrences(time.Now(), time.Hour, Rule{Frequency: "hourly"},
		time.Now(), time.Now().Add(time.Hour))
	assert.ErrorIs(t, err, ErrMalformedRecurrence)
}

func TestEngine_MaxOccurrences(t *testing.T) {
	config := DisabledCacheConfig
	config.MaxOccurrences = 5
	engine := NewEngineWithConfig(config)

	dtstart := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	_, err := engine.Occurrences(dtstart, time.Hour, Rule{Frequency: Daily},
		dtstart, dtstart.AddDate(1, 0, 0))
	assert.ErrorIs(t, err, ErrExpansionLimit)

	got, err := engine.Occurrences(dtstart, time.Hour, Rule{Frequency: Daily, Occurrences: mo.Some[uint32](5)},
		dtstart, dtstart.AddDate(1, 0, 0))
	require.NoError(t, err)
	assert.Len(t, got, 5)
}

func TestEngine_MaxRange(t *testing.T) {
	config := DisabledCacheConfig
	config.MaxRange = 2 * 365 * 24 * time.Hour
	engine := NewEngineWithConfig(config)

	dtstart := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	rangeStart := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rangeEnd := time.Date(2028, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := engine.Occurrences(dtstart, time.Hour, Rule{Frequency: Yearly}, rangeStart, rangeEnd)
	assert.ErrorIs(t, err, ErrExpansionLimit)

	// A series that ends inside the cap is expanded in full.
	got, err := engine.Occurrences(dtstart, time.Hour, Rule{Frequency: Yearly, Occurrences: mo.Some[uint32](2)},
		rangeStart, rangeEnd)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{
		time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
		time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC),
	}, starts(got))
}

func TestEngine_ExpandsInEventZone(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)
	engine := NewEngineWithConfig(DisabledCacheConfig)

	// Tuesday 00:30 in Berlin is still Monday in UTC.
	dtstart := time.Date(2024, 4, 2, 0, 30, 0, 0, berlin)
	rule := Rule{Frequency: Weekly, DaysOfWeek: mo.Some([]string{"tu"})}

	got, err := engine.Occurrences(dtstart, time.Hour, rule,
		time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 4, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, got, 2)
	for _, o := range got {
		local := o.Start.In(berlin)
		assert.Equal(t, time.Tuesday, local.Weekday())
		assert.Equal(t, 0, local.Hour())
		assert.Equal(t, 30, local.Minute())
		assert.Equal(t, time.UTC, o.Start.Location())
	}
	assert.Equal(t, dtstart.UTC(), got[0].Start)
}

func TestEngine_CacheKeepsZone(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)
	engine := NewEngine()
	defer engine.Close()

	rule := Rule{Frequency: Weekly, DaysOfWeek: mo.Some([]string{"tu"})}
	utcStart := time.Date(2024, 4, 1, 22, 30, 0, 0, time.UTC)
	rangeStart := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	rangeEnd := time.Date(2024, 4, 15, 0, 0, 0, 0, time.UTC)

	inUTC, err := engine.Occurrences(utcStart, time.Hour, rule, rangeStart, rangeEnd)
	require.NoError(t, err)
	inBerlin, err := engine.Occurrences(utcStart.In(berlin), time.Hour, rule, rangeStart, rangeEnd)
	require.NoError(t, err)

	assert.NotEqual(t, starts(inUTC), starts(inBerlin))
	assert.Equal(t, 2, engine.CacheStats().TotalEntries)
}

func TestEngine_UsesCache(t *testing.T) {
	engine := NewEngine()
	defer engine.Close()

	dtstart := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	rule := Rule{Frequency: Weekly}
	rangeStart := dtstart
	rangeEnd := dtstart.AddDate(0, 1, 0)

	first, err := engine.Occurrences(dtstart, time.Hour, rule, rangeStart, rangeEnd)
	require.NoError(t, err)
	assert.Equal(t, 1, engine.CacheStats().TotalEntries)

	second, err := engine.Occurrences(dtstart, time.Hour, rule, rangeStart, rangeEnd)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, engine.CacheStats().TotalEntries)
}

func TestParseWeekday(t *testing.T) {
	tests := []struct {
		token   string
		want    rrule.Weekday
		wantErr bool
	}{
		{token: "mo", want: rrule.MO},
		{token: "SU", want: rrule.SU},
		{token: "-1su", want: rrule.SU.Nth(-1)},
		{token: "2tu", want: rrule.TU.Nth(2)},
		{token: "+3fr", want: rrule.FR.Nth(3)},
		{token: "xx", wantErr: true},
		{token: "0mo", wantErr: true},
		{token: "m", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			got, err := parseWeekday(tt.token)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMalformedRecurrence)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
