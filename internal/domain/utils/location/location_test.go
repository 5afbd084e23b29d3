package location

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToUTCShortTag(t *testing.T) {
	wall := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	instant, err := ToUTC(wall, "WIB")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 10, 2, 0, 0, 0, time.UTC), instant)
	assert.Equal(t, time.UTC, instant.Location())
}

func TestRoundTripAcrossZones(t *testing.T) {
	instant, err := ParseLocal("2006-01-02 15:04", "2025-03-10 09:00", "WIB")
	require.NoError(t, err)

	back := In(instant, "WIB")
	assert.Equal(t, "2025-03-10 09:00", back.Format("2006-01-02 15:04"))

	// Tokyo is two hours ahead of Jakarta
	tokyo := In(instant, "JST")
	assert.Equal(t, "2025-03-10 11:00", tokyo.Format("2006-01-02 15:04"))
	assert.True(t, tokyo.Equal(back))
}

func TestLoadAcceptsIANAAndRejectsUnknown(t *testing.T) {
	loc, err := Load("Europe/Berlin")
	require.NoError(t, err)
	assert.Equal(t, "Europe/Berlin", loc.String())

	_, err = Load("")
	assert.Error(t, err)
	_, err = Load("Mars/Olympus")
	assert.Error(t, err)
	assert.False(t, Known("XYZ"))
	assert.True(t, Known("wib"))
}

func TestDayBounds(t *testing.T) {
	loc, err := Load("WIB")
	require.NoError(t, err)

	// 2025-03-10 20:00 UTC is already 2025-03-11 03:00 in Jakarta
	now := time.Date(2025, 3, 10, 20, 0, 0, 0, time.UTC)
	start, end := DayBounds(now, loc)

	assert.Equal(t, time.Date(2025, 3, 10, 17, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2025, 3, 11, 16, 59, 59, 999999999, time.UTC), end)
}

func TestWeekBounds(t *testing.T) {
	// Wednesday
	now := time.Date(2025, 3, 12, 12, 0, 0, 0, time.UTC)
	start, end := WeekBounds(now, time.UTC)

	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Monday, start.Weekday())
	assert.Equal(t, time.Date(2025, 3, 16, 23, 59, 59, 999999999, time.UTC), end)

	// Sunday belongs to the week that started six days earlier
	sunday := time.Date(2025, 3, 16, 8, 0, 0, 0, time.UTC)
	start, _ = WeekBounds(sunday, time.UTC)
	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), start)
}
