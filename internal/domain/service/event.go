package service

import (
	"context"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/vinylhub/eventsync/internal/domain/common/errorz"
	"github.com/vinylhub/eventsync/internal/domain/dto"
	"github.com/vinylhub/eventsync/internal/domain/entity"
	"github.com/vinylhub/eventsync/internal/domain/utils/location"
	"github.com/vinylhub/eventsync/internal/domain/utils/validator"
)

const (
	// DefaultSoonWindow is the lookahead used by IsSoon when none is configured.
	DefaultSoonWindow = time.Hour
	// DefaultUpcomingLimit caps GetUpcoming when the caller passes no limit.
	DefaultUpcomingLimit = 20
)

type EventStorage interface {
	Create(ctx context.Context, event *entity.Event) (*entity.Event, error)
	Get(ctx context.Context, id int64) (*entity.Event, error)
	GetView(ctx context.Context, id int64, viewerID int64) (*dto.EventView, error)
	Update(ctx context.Context, event *entity.Event) (*entity.Event, error)
	Delete(ctx context.Context, id int64) (int64, error)
	Count(ctx context.Context) (int64, error)
	Find(ctx context.Context, filter dto.EventFilter, viewerID int64) ([]dto.EventView, error)
	GetAll(ctx context.Context, viewerID int64) ([]dto.EventView, error)
	GetUpcoming(ctx context.Context, now time.Time, limit int, viewerID int64) ([]dto.EventView, error)
	GetPast(ctx context.Context, now time.Time, limit int, viewerID int64) ([]dto.EventView, error)
	GetByType(ctx context.Context, eventType entity.EventType, viewerID int64) ([]dto.EventView, error)
	GetByCreator(ctx context.Context, userID int64, viewerID int64) ([]dto.EventView, error)
	GetByDateRange(ctx context.Context, from, to time.Time, viewerID int64) ([]dto.EventView, error)
	Search(ctx context.Context, q string, viewerID int64) ([]dto.EventView, error)
	GetToday(ctx context.Context, now time.Time, loc *time.Location, viewerID int64) ([]dto.EventView, error)
	GetThisWeek(ctx context.Context, now time.Time, loc *time.Location, viewerID int64) ([]dto.EventView, error)
	GetSubscribed(ctx context.Context, userID int64) ([]dto.EventView, error)
	GetAlerting(ctx context.Context, userID int64, now time.Time) ([]entity.Event, error)
}

// EventService is the catalog: validated writes and the query surface over the event store.
type EventService struct {
	storage       EventStorage
	soonWindow    time.Duration
	upcomingLimit int
}

func NewEventService(storage EventStorage, soonWindow time.Duration, upcomingLimit int) *EventService {
	if soonWindow <= 0 {
		soonWindow = DefaultSoonWindow
	}
	if upcomingLimit <= 0 {
		upcomingLimit = DefaultUpcomingLimit
	}
	return &EventService{
		storage:       storage,
		soonWindow:    soonWindow,
		upcomingLimit: upcomingLimit,
	}
}

// Create validates input against now and stores the event with its UTC instant.
func (s *EventService) Create(ctx context.Context, input dto.EventInput, createdBy int64, now time.Time) (*entity.Event, error) {
	instant, err := validator.EventInput(input, now)
	if err != nil {
		return nil, err
	}
	event := &entity.Event{
		Title:         strings.TrimSpace(input.Title),
		Description:   input.Description,
		EventType:     input.EventType,
		EventDateTime: instant,
		Timezone:      strings.TrimSpace(input.Timezone),
		Location:      input.Location,
		CreatedBy:     createdBy,
		CreatedAt:     now.UTC(),
		ImageURL:      input.ImageURL,
	}
	return s.storage.Create(ctx, event)
}

func (s *EventService) Get(ctx context.Context, id int64) (*entity.Event, error) {
	return s.storage.Get(ctx, id)
}

func (s *EventService) GetView(ctx context.Context, id int64, viewerID int64) (*dto.EventView, error) {
	return s.storage.GetView(ctx, id, viewerID)
}

// Update applies patch to an event. A new wall-clock time or zone is re-anchored to UTC:
// a zone change alone keeps the wall clock the author saw and moves the instant.
func (s *EventService) Update(ctx context.Context, id int64, patch dto.EventPatch, now time.Time) (*entity.Event, error) {
	event, err := s.storage.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Title != nil {
		if err := validator.Title(*patch.Title); err != nil {
			return nil, err
		}
		event.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Description != nil {
		event.Description = *patch.Description
	}
	if patch.EventType != nil {
		if err := validator.EventType(*patch.EventType); err != nil {
			return nil, err
		}
		event.EventType = *patch.EventType
	}
	if patch.Location != nil {
		event.Location = *patch.Location
	}
	if patch.ImageURL != nil {
		event.ImageURL = *patch.ImageURL
	}

	if patch.LocalTime != nil || patch.Timezone != nil {
		tag := event.Timezone
		if patch.Timezone != nil {
			tag = strings.TrimSpace(*patch.Timezone)
			if err := validator.Timezone(tag); err != nil {
				return nil, err
			}
		}
		local := location.In(event.EventDateTime, event.Timezone)
		if patch.LocalTime != nil {
			local = *patch.LocalTime
		}
		instant, err := location.ToUTC(local, tag)
		if err != nil {
			return nil, errorz.Invalid("timezone", err.Error())
		}
		if err := validator.EventTime(instant, event.EventDateTime, now); err != nil {
			return nil, err
		}
		event.EventDateTime = instant
		event.Timezone = tag
	}

	return s.storage.Update(ctx, event)
}

// Delete removes the event and its subscriptions, returning how many subscriptions went with it.
func (s *EventService) Delete(ctx context.Context, id int64) (int64, error) {
	return s.storage.Delete(ctx, id)
}

func (s *EventService) Count(ctx context.Context) (int64, error) {
	return s.storage.Count(ctx)
}

func (s *EventService) GetAll(ctx context.Context, viewerID int64) ([]dto.EventView, error) {
	return s.storage.GetAll(ctx, viewerID)
}

// GetUpcoming lists events at or after now, soonest first. A limit of zero or less
// falls back to the configured upcoming limit.
func (s *EventService) GetUpcoming(ctx context.Context, now time.Time, limit int, viewerID int64) ([]dto.EventView, error) {
	if limit <= 0 {
		limit = s.upcomingLimit
	}
	return s.storage.GetUpcoming(ctx, now, limit, viewerID)
}

func (s *EventService) GetPast(ctx context.Context, now time.Time, limit int, viewerID int64) ([]dto.EventView, error) {
	return s.storage.GetPast(ctx, now, limit, viewerID)
}

func (s *EventService) GetByType(ctx context.Context, eventType entity.EventType, viewerID int64) ([]dto.EventView, error) {
	if err := validator.EventType(eventType); err != nil {
		return nil, err
	}
	return s.storage.GetByType(ctx, eventType, viewerID)
}

func (s *EventService) GetByCreator(ctx context.Context, userID int64, viewerID int64) ([]dto.EventView, error) {
	return s.storage.GetByCreator(ctx, userID, viewerID)
}

// GetByDateRange lists events in [from, to].
func (s *EventService) GetByDateRange(ctx context.Context, from, to time.Time, viewerID int64) ([]dto.EventView, error) {
	if to.Before(from) {
		return nil, errorz.Invalid("date_range", "end is before start")
	}
	return s.storage.GetByDateRange(ctx, from, to, viewerID)
}

// GetToday lists events on now's calendar day in the zone named by tag.
func (s *EventService) GetToday(ctx context.Context, now time.Time, tag string, viewerID int64) ([]dto.EventView, error) {
	loc, err := zone(tag)
	if err != nil {
		return nil, err
	}
	return s.storage.GetToday(ctx, now, loc, viewerID)
}

// GetThisWeek lists events in now's Monday-to-Sunday week in the zone named by tag.
func (s *EventService) GetThisWeek(ctx context.Context, now time.Time, tag string, viewerID int64) ([]dto.EventView, error) {
	loc, err := zone(tag)
	if err != nil {
		return nil, err
	}
	return s.storage.GetThisWeek(ctx, now, loc, viewerID)
}

func (s *EventService) Search(ctx context.Context, q string, viewerID int64) ([]dto.EventView, error) {
	q, err := validator.SearchQuery(q)
	if err != nil {
		return nil, err
	}
	return s.storage.Search(ctx, q, viewerID)
}

func (s *EventService) GetSubscribed(ctx context.Context, userID int64) ([]dto.EventView, error) {
	return s.storage.GetSubscribed(ctx, userID)
}

func (s *EventService) GetAlerting(ctx context.Context, userID int64, now time.Time) ([]entity.Event, error) {
	return s.storage.GetAlerting(ctx, userID, now)
}

func (s *EventService) IsPast(event *entity.Event, now time.Time) bool {
	return event.IsPast(now)
}

func (s *EventService) IsSoon(event *entity.Event, now time.Time) bool {
	return event.IsSoon(now, s.soonWindow)
}

// IsToday reports whether event falls on now's calendar day in the zone named by tag.
// Unknown tags fall back to UTC.
func (s *EventService) IsToday(event *entity.Event, now time.Time, tag string) bool {
	loc, err := location.Load(tag)
	if err != nil {
		loc = time.UTC
	}
	return event.IsToday(now, loc)
}

// RelativeTime describes at relative to now, e.g. "in 3 days" or "2 hours ago".
func RelativeTime(at, now time.Time) string {
	if !at.After(now) {
		return humanize.RelTime(at, now, "ago", "")
	}
	rel := strings.TrimSpace(humanize.RelTime(at, now, "", ""))
	if rel == "now" {
		return rel
	}
	return "in " + rel
}

// FormatInZone renders instant as wall-clock time in the zone named by tag, followed by the tag.
func FormatInZone(instant time.Time, tag, layout string) string {
	if layout == "" {
		layout = "2006-01-02 15:04"
	}
	return location.In(instant, tag).Format(layout) + " " + tag
}

func zone(tag string) (*time.Location, error) {
	loc, err := location.Load(tag)
	if err != nil {
		return nil, errorz.Invalid("timezone", err.Error())
	}
	return loc, nil
}
