package schedule

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextOccurrence(t *testing.T) {
	// 2025-05-07 is a Wednesday.
	now := time.Date(2025, 5, 7, 15, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		day  time.Weekday
		want string
	}{
		{name: "later this week", day: time.Friday, want: "2025-05-09"},
		{name: "wraps to next week", day: time.Monday, want: "2025-05-12"},
		{name: "same weekday is a week out", day: time.Wednesday, want: "2025-05-14"},
		{name: "tomorrow", day: time.Thursday, want: "2025-05-08"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextOccurrence(tt.day, now)
			assert.Equal(t, tt.want, got.Format(DateLayout))
		})
	}
}

func TestGenerateWeeklyTemplate(t *testing.T) {
	slots := GenerateWeeklyTemplate("doc-1")
	require.Len(t, slots, 108)

	first := slots[0]
	assert.Equal(t, "Monday", first.DayOfWeek)
	assert.Equal(t, "09:00", first.StartTime)
	assert.Equal(t, "09:30", first.EndTime)

	last := slots[len(slots)-1]
	assert.Equal(t, "Saturday", last.DayOfWeek)
	assert.Equal(t, "17:30", last.StartTime)
	assert.Equal(t, "18:00", last.EndTime)

	seen := make(map[string]bool)
	for _, s := range slots {
		assert.Equal(t, "doc-1", s.DoctorID)
		assert.NotEqual(t, "Sunday", s.DayOfWeek)
		key := s.DayOfWeek + s.StartTime
		assert.False(t, seen[key], "duplicate template row %s", key)
		seen[key] = true
	}
}

func TestWeekdayOf(t *testing.T) {
	day, err := WeekdayOf("2025-05-05")
	require.NoError(t, err)
	assert.Equal(t, "Monday", day)

	_, err = WeekdayOf("05/05/2025")
	assert.True(t, errors.Is(err, ErrInvalidDate))
}

func TestParseWeekdayIsCaseInsensitive(t *testing.T) {
	d, err := ParseWeekday(" saturday")
	require.NoError(t, err)
	assert.Equal(t, time.Saturday, d)

	_, err = ParseWeekday("Funday")
	assert.True(t, errors.Is(err, ErrInvalidWeekday))
}

func TestParseClock(t *testing.T) {
	got, err := ParseClock("9:00")
	require.NoError(t, err)
	assert.Equal(t, "09:00", got)

	_, err = ParseClock("nine")
	assert.Error(t, err)
}
