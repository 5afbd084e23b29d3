package location

import (
	"fmt"
	"strings"
	"sync"
	"time"

	_ "time/tzdata"
)

// aliases maps the short zone tags the app collects to IANA names.
var aliases = map[string]string{
	"UTC":  "UTC",
	"GMT":  "UTC",
	"WIB":  "Asia/Jakarta",
	"WITA": "Asia/Makassar",
	"WIT":  "Asia/Jayapura",
	"SGT":  "Asia/Singapore",
	"JST":  "Asia/Tokyo",
	"KST":  "Asia/Seoul",
	"IST":  "Asia/Kolkata",
	"MSK":  "Europe/Moscow",
	"CET":  "Europe/Paris",
	"EET":  "Europe/Athens",
	"BST":  "Europe/London",
	"ET":   "America/New_York",
	"CT":   "America/Chicago",
	"MT":   "America/Denver",
	"PT":   "America/Los_Angeles",
	"AEST": "Australia/Sydney",
}

var (
	cacheMu sync.RWMutex
	cache   = map[string]*time.Location{}
)

// Load resolves a timezone tag (short code such as "WIB" or an IANA name) to a location.
func Load(tag string) (*time.Location, error) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return nil, fmt.Errorf("timezone is empty")
	}

	cacheMu.RLock()
	loc, ok := cache[tag]
	cacheMu.RUnlock()
	if ok {
		return loc, nil
	}

	name := tag
	if alias, found := aliases[strings.ToUpper(tag)]; found {
		name = alias
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("unknown timezone %q: %w", tag, err)
	}

	cacheMu.Lock()
	cache[tag] = loc
	cacheMu.Unlock()
	return loc, nil
}

// Known reports whether tag resolves to a location.
func Known(tag string) bool {
	_, err := Load(tag)
	return err == nil
}

// ToUTC reads the wall clock of local (its own location is ignored) as a time in the
// zone named by tag and returns the matching UTC instant.
func ToUTC(local time.Time, tag string) (time.Time, error) {
	loc, err := Load(tag)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(
		local.Year(), local.Month(), local.Day(),
		local.Hour(), local.Minute(), local.Second(), local.Nanosecond(),
		loc,
	).UTC(), nil
}

// ParseLocal parses value with layout as wall-clock time in the zone named by tag
// and returns the UTC instant.
func ParseLocal(layout, value, tag string) (time.Time, error) {
	loc, err := Load(tag)
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.ParseInLocation(layout, value, loc)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// In renders instant in the zone named by tag, falling back to UTC for unknown tags.
func In(instant time.Time, tag string) time.Time {
	loc, err := Load(tag)
	if err != nil {
		return instant.UTC()
	}
	return instant.In(loc)
}

// DayBounds returns the first and last instant (inclusive) of the calendar day that
// contains now in loc, both in UTC.
func DayBounds(now time.Time, loc *time.Location) (time.Time, time.Time) {
	local := now.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	end := start.AddDate(0, 0, 1)
	return start.UTC(), end.Add(-time.Nanosecond).UTC()
}

// WeekBounds returns the first and last instant (inclusive) of the Monday-based calendar
// week that contains now in loc, both in UTC.
func WeekBounds(now time.Time, loc *time.Location) (time.Time, time.Time) {
	local := now.In(loc)
	offset := (int(local.Weekday()) + 6) % 7
	start := time.Date(local.Year(), local.Month(), local.Day()-offset, 0, 0, 0, 0, loc)
	end := start.AddDate(0, 0, 7)
	return start.UTC(), end.Add(-time.Nanosecond).UTC()
}
