package timestamp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)

	tests := []struct {
		name     string
		value    Value
		skipZone bool
		want     time.Time
		wantErr  bool
	}{
		{
			name:  "string anchored to UTC",
			value: FromString("2024-03-10T09:30:00.000Z"),
			want:  time.Date(2024, 3, 10, 9, 30, 0, 0, time.UTC),
		},
		{
			name:  "milliseconds kept",
			value: FromString("2024-03-10T09:30:00.250Z"),
			want:  time.Date(2024, 3, 10, 9, 30, 0, 250_000_000, time.UTC),
		},
		{
			name:     "string anchored to local zone",
			value:    FromString("2024-03-10T09:30:00.000Z"),
			skipZone: true,
			want:     time.Date(2024, 3, 10, 0, 30, 0, 0, time.UTC),
		},
		{
			name:  "epoch millis",
			value: FromMillis(1710063000000),
			want:  time.Date(2024, 3, 10, 9, 30, 0, 0, time.UTC),
		},
		{
			name:     "epoch millis ignore skip flag",
			value:    FromMillis(1710063000000),
			skipZone: true,
			want:     time.Date(2024, 3, 10, 9, 30, 0, 0, time.UTC),
		},
		{
			name:    "missing millis",
			value:   FromString("2024-03-10T09:30:00Z"),
			wantErr: true,
		},
		{
			name:    "offset instead of Z",
			value:   FromString("2024-03-10T09:30:00.000+02:00"),
			wantErr: true,
		},
		{
			name:    "empty",
			value:   FromString(""),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseInLocation(tt.value, tt.skipZone, tokyo)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrMalformedTimestamp)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s, want %s", got, tt.want)
			assert.Equal(t, time.UTC, got.Location())
		})
	}
}

func TestFormatRoundTrip(t *testing.T) {
	for _, s := range []string{
		"2024-03-10T09:30:00.000Z",
		"1999-12-31T23:59:59.999Z",
		"1970-01-01T00:00:00.000Z",
		"2030-02-28T12:00:00.001Z",
	} {
		got, err := Parse(FromString(s), false)
		require.NoError(t, err)
		assert.Equal(t, s, Format(got))
	}
}

func TestFormatAlwaysUTC(t *testing.T) {
	loc := time.FixedZone("X", -5*60*60)
	instant := time.Date(2024, 1, 1, 19, 0, 0, 0, loc)
	assert.Equal(t, "2024-01-02T00:00:00.000Z", Format(instant))
	assert.Equal(t, "2024-01-02T00:00:00.000Z", FormatMillis(instant.UnixMilli()))
}

func TestRuleTime(t *testing.T) {
	at := time.Date(2024, 6, 30, 22, 0, 0, 0, time.UTC)
	assert.Equal(t, "20240630T220000Z", FormatRuleTime(at))

	got, err := ParseRuleTime("20240630T220000Z")
	require.NoError(t, err)
	assert.True(t, at.Equal(got))

	got, err = ParseRuleTime("20240630")
	require.NoError(t, err)
	assert.True(t, time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC).Equal(got))

	_, err = ParseRuleTime("2024-06-30")
	assert.ErrorIs(t, err, ErrMalformedTimestamp)
}
