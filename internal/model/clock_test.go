package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeOfDay(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected TimeOfDay
		wantErr  bool
	}{
		{name: "hours and minutes", input: "18:30", expected: 18*60 + 30},
		{name: "with seconds", input: "10:00:00", expected: 600},
		{name: "midnight", input: "00:00", expected: 0},
		{name: "surrounding spaces", input: " 09:15 ", expected: 9*60 + 15},
		{name: "empty", input: "", wantErr: true},
		{name: "hour out of range", input: "24:00", wantErr: true},
		{name: "minute out of range", input: "10:60", wantErr: true},
		{name: "garbage", input: "ten", wantErr: true},
		{name: "too many parts", input: "10:00:00:00", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTimeOfDay(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestTimeOfDay_StringAndOn(t *testing.T) {
	tod := MustTimeOfDay("07:05:00")
	assert.Equal(t, "07:05", tod.String())

	date, err := ParseDate("2026-03-10")
	require.NoError(t, err)

	at := tod.On(date)
	assert.Equal(t, time.Date(2026, 3, 10, 7, 5, 0, 0, Almaty), at)
	assert.Equal(t, "07:05", at.Format(ClockLayout))
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2026-03-10")
	require.NoError(t, err)
	assert.Equal(t, Almaty, d.Location())
	// 2026-03-10 is a Tuesday.
	assert.Equal(t, 1, WeekdayIndex(d))

	for _, bad := range []string{"2026-13-50", "2026-02-30", "10.03.2026", ""} {
		_, err := ParseDate(bad)
		assert.Error(t, err, bad)
	}
}

func TestWeekdayIndex(t *testing.T) {
	monday := time.Date(2026, 3, 9, 0, 0, 0, 0, Almaty)
	for i := 0; i < 7; i++ {
		assert.Equal(t, i, WeekdayIndex(monday.AddDate(0, 0, i)))
	}
}
