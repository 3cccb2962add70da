package recurrence

import (
	"strings"
	"testing"
	"time"

	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	tests := []struct {
		name string
		rule Rule
		want string
	}{
		{
			name: "weekly with days and week start",
			rule: Rule{
				Frequency:  Weekly,
				Interval:   mo.Some[uint32](2),
				DaysOfWeek: mo.Some([]string{"mo", "we"}),
				WeekStart:  mo.Some("mo"),
			},
			want: "FREQ=WEEKLY;BYDAY=mo,we;WKST=mo;INTERVAL=2",
		},
		{
			name: "monthly nth weekday",
			rule: Rule{
				Frequency:           Monthly,
				DaysOfWeek:          mo.Some([]string{"su"}),
				WeekPositionInMonth: mo.Some[int32](-1),
				Occurrences:         mo.Some[uint32](5),
			},
			want: "FREQ=MONTHLY;BYSETPOS=-1;BYDAY=su;COUNT=5",
		},
		{
			name: "monthly position without days",
			rule: Rule{
				Frequency:           Monthly,
				WeekPositionInMonth: mo.Some[int32](2),
			},
			want: "FREQ=MONTHLY",
		},
		{
			name: "monthly days without position",
			rule: Rule{
				Frequency:  Monthly,
				DaysOfWeek: mo.Some([]string{"tu"}),
			},
			want: "FREQ=MONTHLY",
		},
		{
			name: "daily ignores days",
			rule: Rule{
				Frequency:  Daily,
				DaysOfWeek: mo.Some([]string{"mo"}),
			},
			want: "FREQ=DAILY",
		},
		{
			name: "empty day list emits no BYDAY",
			rule: Rule{
				Frequency:  Weekly,
				DaysOfWeek: mo.Some([]string{}),
			},
			want: "FREQ=WEEKLY",
		},
		{
			name: "end date wins over count",
			rule: Rule{
				Frequency:   Yearly,
				EndDate:     mo.Some(time.Date(2025, 12, 31, 23, 0, 0, 0, time.UTC)),
				Occurrences: mo.Some[uint32](3),
			},
			want: "FREQ=YEARLY;UNTIL=20251231T230000Z",
		},
		{
			name: "end date rendered in UTC",
			rule: Rule{
				Frequency: Daily,
				EndDate:   mo.Some(time.Date(2025, 1, 1, 1, 0, 0, 0, time.FixedZone("CET", 3600))),
			},
			want: "FREQ=DAILY;UNTIL=20250101T000000Z",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Encode(tt.rule).Get()
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncodeUnknownFrequency(t *testing.T) {
	assert.True(t, Encode(Rule{Frequency: "hourly"}).IsAbsent())
	assert.True(t, Encode(Rule{}).IsAbsent())
}

func TestEncodeClauseOrder(t *testing.T) {
	rule := Rule{
		Frequency:   Weekly,
		Interval:    mo.Some[uint32](3),
		DaysOfWeek:  mo.Some([]string{"fr"}),
		WeekStart:   mo.Some("su"),
		Occurrences: mo.Some[uint32](10),
	}
	text := Encode(rule).MustGet()
	clauses := strings.Split(text, ";")

	assert.True(t, strings.HasPrefix(clauses[0], "FREQ="))
	assert.True(t, strings.HasPrefix(clauses[len(clauses)-1], "COUNT="))
	assert.Equal(t, 1, strings.Count(text, "COUNT=")+strings.Count(text, "UNTIL="))
}

func TestDecode(t *testing.T) {
	rule, err := Decode("FREQ=MONTHLY;BYSETPOS=-1;BYDAY=su;COUNT=5")
	require.NoError(t, err)

	assert.Equal(t, Monthly, rule.Frequency)
	assert.Equal(t, mo.Some[int32](-1), rule.WeekPositionInMonth)
	assert.Equal(t, mo.Some([]string{"su"}), rule.DaysOfWeek)
	assert.Equal(t, mo.Some[uint32](5), rule.Occurrences)
	assert.True(t, rule.Interval.IsAbsent())
	assert.True(t, rule.EndDate.IsAbsent())
}

func TestDecodeOrderIndependent(t *testing.T) {
	canonical := "FREQ=WEEKLY;BYDAY=MO,WE;WKST=SU;INTERVAL=2;UNTIL=20240301T000000Z"
	shuffled := "UNTIL=20240301T000000Z;interval=2;BYDAY=MO,WE;wkst=SU;freq=weekly"

	want, err := Decode(canonical)
	require.NoError(t, err)
	got, err := Decode(shuffled)
	require.NoError(t, err)

	assert.Equal(t, want, got)
	assert.Equal(t, []string{"mo", "we"}, got.DaysOfWeek.MustGet())
	assert.Equal(t, "su", got.WeekStart.MustGet())
}

func TestDecodeIgnoresUnknownKeys(t *testing.T) {
	rule, err := Decode("FREQ=DAILY;BYHOUR=9;X-NAME=foo;COUNT=2")
	require.NoError(t, err)
	assert.Equal(t, Rule{Frequency: Daily, Occurrences: mo.Some[uint32](2)}, rule)
}

func TestDecodeMalformed(t *testing.T) {
	for _, text := range []string{
		"FREQ=DAILY;COUNT=abc",
		"FREQ=DAILY;COUNT=-1",
		"FREQ=DAILY;INTERVAL=4294967296",
		"FREQ=MONTHLY;BYSETPOS=x;BYDAY=mo",
		"FREQ=DAILY;UNTIL=tomorrow",
		"COUNT=3",
		"",
	} {
		t.Run(text, func(t *testing.T) {
			_, err := Decode(text)
			assert.ErrorIs(t, err, ErrMalformedRecurrence)
		})
	}
}

func TestRoundTrip(t *testing.T) {
	rules := []Rule{
		{Frequency: Daily},
		{Frequency: Daily, Interval: mo.Some[uint32](4), Occurrences: mo.Some[uint32](12)},
		{
			Frequency:  Weekly,
			DaysOfWeek: mo.Some([]string{"tu", "th", "sa"}),
			WeekStart:  mo.Some("su"),
			EndDate:    mo.Some(time.Date(2026, 5, 1, 12, 30, 0, 0, time.UTC)),
		},
		{
			Frequency:           Monthly,
			Interval:            mo.Some[uint32](1),
			DaysOfWeek:          mo.Some([]string{"fr"}),
			WeekPositionInMonth: mo.Some[int32](2),
			Occurrences:         mo.Some[uint32](6),
		},
		{Frequency: Yearly, Interval: mo.Some[uint32](2)},
	}

	for _, rule := range rules {
		text := Encode(rule).MustGet()
		t.Run(text, func(t *testing.T) {
			got, err := Decode(text)
			require.NoError(t, err)
			assert.Equal(t, rule, got)
		})
	}
}

func TestFromLegacy(t *testing.T) {
	assert.Equal(t, Rule{Frequency: Weekly}, FromLegacy("WEEKLY"))
	assert.Equal(t, "FREQ=MONTHLY", Encode(FromLegacy("monthly")).MustGet())
	assert.True(t, Encode(FromLegacy("fortnightly")).IsAbsent())
}
