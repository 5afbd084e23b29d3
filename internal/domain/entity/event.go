package entity

import (
	"strconv"
	"time"
)

type EventType string

const (
	EventTypeRelease        EventType = "release"
	EventTypeConcert        EventType = "concert"
	EventTypeListeningParty EventType = "listening_party"
	EventTypeAlbumLaunch    EventType = "album_launch"
	EventTypeRecordStoreDay EventType = "record_store_day"
	EventTypeFair           EventType = "fair"
	EventTypeFestival       EventType = "festival"
	EventTypeOther          EventType = "other"
)

var EventTypes = []EventType{
	EventTypeRelease,
	EventTypeConcert,
	EventTypeListeningParty,
	EventTypeAlbumLaunch,
	EventTypeRecordStoreDay,
	EventTypeFair,
	EventTypeFestival,
	EventTypeOther,
}

func (t EventType) Valid() bool {
	for _, known := range EventTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Event is a scheduled happening. EventDateTime is always stored in UTC; Timezone keeps
// the tag the author picked so the original wall clock can be shown again.
type Event struct {
	ID            int64     `gorm:"primaryKey;autoIncrement"`
	Title         string    `gorm:"not null"`
	Description   string    `gorm:"not null;default:''"`
	EventType     EventType `gorm:"column:event_type;not null;index:idx_events_type"`
	EventDateTime time.Time `gorm:"column:event_date_time;type:text;not null;serializer:instant;index:idx_events_date_time"`
	Timezone      string    `gorm:"not null"`
	Location      string    `gorm:"not null;default:''"`
	CreatedBy     int64     `gorm:"column:created_by;not null;index:idx_events_created_by"`
	CreatedAt     time.Time `gorm:"column:created_at;type:text;not null;serializer:instant"`
	ImageURL      string    `gorm:"column:image_url;not null;default:''"`
}

func (Event) TableName() string {
	return "events"
}

// NotificationKey is the backend key of the reminder for this event.
func (e *Event) NotificationKey() string {
	return NotificationKey(e.ID)
}

// IsPast reports whether the event time is strictly before now; an event at exactly now is not past.
func (e *Event) IsPast(now time.Time) bool {
	return e.EventDateTime.Before(now)
}

// IsSoon reports whether the event has not started and starts within window.
func (e *Event) IsSoon(now time.Time, window time.Duration) bool {
	if e.IsPast(now) {
		return false
	}
	return !e.EventDateTime.After(now.Add(window))
}

// IsToday reports whether the event falls on the calendar day of now in loc.
func (e *Event) IsToday(now time.Time, loc *time.Location) bool {
	a := e.EventDateTime.In(loc)
	b := now.In(loc)
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}

// NotificationKey formats an event id as a backend key.
func NotificationKey(eventID int64) string {
	return strconv.FormatInt(eventID, 10)
}

// ParseNotificationKey is the inverse of NotificationKey.
func ParseNotificationKey(key string) (int64, bool) {
	id, err := strconv.ParseInt(key, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
