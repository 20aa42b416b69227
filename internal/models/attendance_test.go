package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDayNormalizesToUTCMidnight(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	in := time.Date(2026, 3, 9, 23, 45, 0, 0, ist)

	day := Day(in)
	assert.Equal(t, time.UTC, day.Location())
	assert.Equal(t, 0, day.Hour())
	assert.Equal(t, in.UTC().Year(), day.Year())
	assert.Equal(t, in.UTC().YearDay(), day.YearDay())

	// Normalizing twice is a no-op.
	assert.Equal(t, day, Day(day))
}

func TestDayWindowContains(t *testing.T) {
	w := NewDayWindow(time.Date(2026, 3, 9, 15, 0, 0, 0, time.UTC))

	assert.True(t, w.Contains(time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)))
	assert.True(t, w.Contains(time.Date(2026, 3, 9, 23, 59, 59, 0, time.UTC)))
	assert.False(t, w.Contains(time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)))
	assert.False(t, w.Contains(time.Date(2026, 3, 8, 23, 59, 59, 0, time.UTC)))
}

func TestNewAttendanceStatRounding(t *testing.T) {
	assert.Equal(t, 67, NewAttendanceStat("s", 2, 3).Percentage)
	assert.Equal(t, 13, NewAttendanceStat("s", 1, 8).Percentage)
	assert.Equal(t, 0, NewAttendanceStat("s", 0, 0).Percentage)
	assert.Equal(t, 100, NewAttendanceStat("s", 5, 5).Percentage)
}

func TestAttendanceStatusValid(t *testing.T) {
	assert.True(t, AttendanceStatusPresent.Valid())
	assert.True(t, AttendanceStatusAbsent.Valid())
	assert.False(t, AttendanceStatus("Late").Valid())
}
