package dto

import (
	"time"

	"github.com/vinylhub/eventsync/internal/domain/entity"
)

// EventView is an event as seen by one viewer: the shared row plus that viewer's
// subscription flags. Viewers without a subscription get both flags false.
type EventView struct {
	entity.Event
	IsSubscribed        bool `gorm:"column:is_subscribed"`
	NotificationEnabled bool `gorm:"column:notification_enabled"`
}

// EventInput is what the UI submits: a wall-clock time plus the zone it was picked in.
type EventInput struct {
	Title       string           `validate:"required,max=200"`
	Description string           `validate:"max=2000"`
	EventType   entity.EventType `validate:"required,event_type"`
	LocalTime   time.Time        `validate:"required"`
	Timezone    string           `validate:"required,timezone_tag"`
	Location    string           `validate:"max=300"`
	ImageURL    string           `validate:"omitempty,url"`
}

// EventPatch carries optional changes; nil fields are left untouched.
type EventPatch struct {
	Title       *string
	Description *string
	EventType   *entity.EventType
	LocalTime   *time.Time
	Timezone    *string
	Location    *string
	ImageURL    *string
}

// EventFilter narrows a listing query. Zero values mean "no constraint".
// To is an inclusive upper bound, Before an exclusive one.
type EventFilter struct {
	From      *time.Time
	To        *time.Time
	Before    *time.Time
	Type      entity.EventType
	CreatedBy int64
	Query     string
	Desc      bool
	Limit     int
}
