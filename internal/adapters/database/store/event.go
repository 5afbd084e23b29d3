package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/vinylhub/eventsync/internal/domain/common/errorz"
	"github.com/vinylhub/eventsync/internal/domain/dto"
	"github.com/vinylhub/eventsync/internal/domain/entity"
	"github.com/vinylhub/eventsync/internal/domain/utils/location"
)

// viewSelect exposes the viewer's subscription flags next to every event column.
const viewSelect = "events.*, " +
	"CASE WHEN event_subscriptions.id IS NULL THEN 0 ELSE 1 END AS is_subscribed, " +
	"CASE WHEN event_subscriptions.notification_enabled THEN 1 ELSE 0 END AS notification_enabled"

type EventStorage struct {
	db *gorm.DB
}

func NewEventStorage(db *gorm.DB) *EventStorage {
	return &EventStorage{
		db: db,
	}
}

// Create is a function that creates a new event in the database.
func (s *EventStorage) Create(ctx context.Context, event *entity.Event) (*entity.Event, error) {
	err := s.db.WithContext(ctx).Create(event).Error
	return event, wrap("create event", err)
}

// Get is a function that gets an event from the database by id.
func (s *EventStorage) Get(ctx context.Context, id int64) (*entity.Event, error) {
	var event entity.Event
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&event).Error
	if err != nil {
		return nil, wrap(fmt.Sprintf("get event %d", id), err)
	}
	return &event, nil
}

// GetView gets one event together with the viewer's subscription flags.
func (s *EventStorage) GetView(ctx context.Context, id int64, viewerID int64) (*dto.EventView, error) {
	var views []dto.EventView
	err := s.views(ctx, viewerID).Where("events.id = ?", id).Limit(1).Scan(&views).Error
	if err != nil {
		return nil, wrap(fmt.Sprintf("get event %d", id), err)
	}
	if len(views) == 0 {
		return nil, fmt.Errorf("get event %d: %w", id, errorz.ErrNotFound)
	}
	return &views[0], nil
}

// Update writes the mutable columns of an event. CreatedBy and CreatedAt are never touched.
func (s *EventStorage) Update(ctx context.Context, event *entity.Event) (*entity.Event, error) {
	res := s.db.WithContext(ctx).
		Model(event).
		Select("title", "description", "event_type", "event_date_time", "timezone", "location", "image_url").
		Where("id = ?", event.ID).
		Updates(event)
	if res.Error != nil {
		return nil, wrap(fmt.Sprintf("update event %d", event.ID), res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("update event %d: %w", event.ID, errorz.ErrNotFound)
	}
	return event, nil
}

// Delete removes the event's subscriptions and then the event itself. The two
// statements are not wrapped in a transaction: a failure between them leaves an
// event without subscribers, which every read path tolerates.
func (s *EventStorage) Delete(ctx context.Context, id int64) (int64, error) {
	subs := s.db.WithContext(ctx).Where("event_id = ?", id).Delete(&entity.Subscription{})
	if subs.Error != nil {
		return 0, wrap(fmt.Sprintf("delete subscriptions of event %d", id), subs.Error)
	}

	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.Event{})
	if res.Error != nil {
		return subs.RowsAffected, wrap(fmt.Sprintf("delete event %d", id), res.Error)
	}
	if res.RowsAffected == 0 {
		return subs.RowsAffected, fmt.Errorf("delete event %d: %w", id, errorz.ErrNotFound)
	}
	return subs.RowsAffected, nil
}

// Count is a function that gets the count of events from the database.
func (s *EventStorage) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&entity.Event{}).Count(&count).Error
	return count, wrap("count events", err)
}

// Find lists events matching filter, personalised for viewerID (0 for an anonymous viewer).
func (s *EventStorage) Find(ctx context.Context, filter dto.EventFilter, viewerID int64) ([]dto.EventView, error) {
	var views []dto.EventView
	err := s.views(ctx, viewerID).Scopes(withFilter(filter)).Scan(&views).Error
	if err != nil {
		return nil, wrap("find events", err)
	}
	return views, nil
}

func (s *EventStorage) GetAll(ctx context.Context, viewerID int64) ([]dto.EventView, error) {
	return s.Find(ctx, dto.EventFilter{}, viewerID)
}

// GetUpcoming returns events at or after now, soonest first.
func (s *EventStorage) GetUpcoming(ctx context.Context, now time.Time, limit int, viewerID int64) ([]dto.EventView, error) {
	return s.Find(ctx, dto.EventFilter{From: &now, Limit: limit}, viewerID)
}

// GetPast returns events strictly before now, most recent first.
func (s *EventStorage) GetPast(ctx context.Context, now time.Time, limit int, viewerID int64) ([]dto.EventView, error) {
	return s.Find(ctx, dto.EventFilter{Before: &now, Desc: true, Limit: limit}, viewerID)
}

func (s *EventStorage) GetByType(ctx context.Context, eventType entity.EventType, viewerID int64) ([]dto.EventView, error) {
	return s.Find(ctx, dto.EventFilter{Type: eventType}, viewerID)
}

func (s *EventStorage) GetByCreator(ctx context.Context, userID int64, viewerID int64) ([]dto.EventView, error) {
	return s.Find(ctx, dto.EventFilter{CreatedBy: userID}, viewerID)
}

// GetByDateRange returns events in [from, to], both ends inclusive.
func (s *EventStorage) GetByDateRange(ctx context.Context, from, to time.Time, viewerID int64) ([]dto.EventView, error) {
	return s.Find(ctx, dto.EventFilter{From: &from, To: &to}, viewerID)
}

// Search matches q as a case-insensitive substring of title, description or location.
func (s *EventStorage) Search(ctx context.Context, q string, viewerID int64) ([]dto.EventView, error) {
	return s.Find(ctx, dto.EventFilter{Query: q}, viewerID)
}

// GetToday returns events on now's calendar day in loc.
func (s *EventStorage) GetToday(ctx context.Context, now time.Time, loc *time.Location, viewerID int64) ([]dto.EventView, error) {
	from, to := location.DayBounds(now, loc)
	return s.GetByDateRange(ctx, from, to, viewerID)
}

// GetThisWeek returns events in now's Monday-based week in loc.
func (s *EventStorage) GetThisWeek(ctx context.Context, now time.Time, loc *time.Location, viewerID int64) ([]dto.EventView, error) {
	from, to := location.WeekBounds(now, loc)
	return s.GetByDateRange(ctx, from, to, viewerID)
}

// GetSubscribed lists the events userID is subscribed to, soonest first.
func (s *EventStorage) GetSubscribed(ctx context.Context, userID int64) ([]dto.EventView, error) {
	var views []dto.EventView
	err := s.views(ctx, userID).
		Where("event_subscriptions.id IS NOT NULL").
		Order("events.event_date_time ASC, events.id ASC").
		Scan(&views).Error
	if err != nil {
		return nil, wrap("get subscribed events", err)
	}
	return views, nil
}

// GetAlerting returns the events userID wants a reminder for that start at or after now.
// Subscriptions whose event no longer exists drop out of the inner join.
func (s *EventStorage) GetAlerting(ctx context.Context, userID int64, now time.Time) ([]entity.Event, error) {
	var events []entity.Event
	err := s.db.WithContext(ctx).
		Model(&entity.Event{}).
		Select("events.*").
		Joins("INNER JOIN event_subscriptions ON event_subscriptions.event_id = events.id").
		Where("event_subscriptions.user_id = ? AND event_subscriptions.notification_enabled = ?", userID, true).
		Where("events.event_date_time >= ?", entity.FormatInstant(now)).
		Order("events.event_date_time ASC, events.id ASC").
		Find(&events).Error
	if err != nil {
		return nil, wrap("get alerting events", err)
	}
	return events, nil
}

func (s *EventStorage) views(ctx context.Context, viewerID int64) *gorm.DB {
	return s.db.WithContext(ctx).
		Table("events").
		Select(viewSelect).
		Joins("LEFT JOIN event_subscriptions ON event_subscriptions.event_id = events.id AND event_subscriptions.user_id = ?", viewerID)
}

func withFilter(f dto.EventFilter) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB {
		if f.From != nil {
			q = q.Where("events.event_date_time >= ?", entity.FormatInstant(*f.From))
		}
		if f.To != nil {
			q = q.Where("events.event_date_time <= ?", entity.FormatInstant(*f.To))
		}
		if f.Before != nil {
			q = q.Where("events.event_date_time < ?", entity.FormatInstant(*f.Before))
		}
		if f.Type != "" {
			q = q.Where("events.event_type = ?", f.Type)
		}
		if f.CreatedBy != 0 {
			q = q.Where("events.created_by = ?", f.CreatedBy)
		}
		if f.Query != "" {
			pattern := "%" + escapeLike(strings.ToLower(f.Query)) + "%"
			q = q.Where(
				"(LOWER(events.title) LIKE ? ESCAPE '\\' OR LOWER(events.description) LIKE ? ESCAPE '\\' OR LOWER(events.location) LIKE ? ESCAPE '\\')",
				pattern, pattern, pattern,
			)
		}
		if f.Desc {
			q = q.Order("events.event_date_time DESC, events.id DESC")
		} else {
			q = q.Order("events.event_date_time ASC, events.id ASC")
		}
		if f.Limit > 0 {
			q = q.Limit(f.Limit)
		}
		return q
	}
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
