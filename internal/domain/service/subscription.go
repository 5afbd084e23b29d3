package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vinylhub/eventsync/internal/domain/common/errorz"
	"github.com/vinylhub/eventsync/internal/domain/dto"
	"github.com/vinylhub/eventsync/internal/domain/entity"
	"github.com/vinylhub/eventsync/internal/domain/utils/calendar"
	"github.com/vinylhub/eventsync/pkg/logger/types"
)

// Session supplies the active user. ok is false when nobody is signed in.
type Session interface {
	UserID() (id int64, ok bool)
}

type SubscriptionStorage interface {
	Upsert(ctx context.Context, sub *entity.Subscription) (*entity.Subscription, error)
	Get(ctx context.Context, eventID int64, userID int64) (*entity.Subscription, error)
	SetNotification(ctx context.Context, eventID int64, userID int64, enabled bool) error
	Delete(ctx context.Context, eventID int64, userID int64) (bool, error)
	GetByUserID(ctx context.Context, userID int64) ([]entity.Subscription, error)
	CountByEventID(ctx context.Context, eventID int64) (int64, error)
}

// SubscriptionService ties user actions to the store and the notification scheduler.
// Each action writes the store first and, only when that succeeds, applies the
// scheduler transition. The caller sees the store outcome alone.
//
// Actions on the same event are serialized so the backend ends in the state of the
// last store write.
type SubscriptionService struct {
	session       Session
	events        *EventService
	subscriptions SubscriptionStorage
	scheduler     *NotificationScheduler
	logger        *types.Logger

	locks *keyedMutex
}

func NewSubscriptionService(
	session Session,
	events *EventService,
	subscriptions SubscriptionStorage,
	scheduler *NotificationScheduler,
	logger *types.Logger,
) *SubscriptionService {
	if logger == nil {
		logger = types.Nop()
	}
	return &SubscriptionService{
		session:       session,
		events:        events,
		subscriptions: subscriptions,
		scheduler:     scheduler,
		logger:        logger,
		locks:         newKeyedMutex(),
	}
}

// Subscribe subscribes the active user to an event, replacing an existing
// subscription's alert flag and time.
func (s *SubscriptionService) Subscribe(ctx context.Context, eventID int64, enableAlerts bool, now time.Time) (*entity.Subscription, error) {
	userID, err := s.user()
	if err != nil {
		return nil, err
	}
	unlock := s.locks.Lock(eventID)
	defer unlock()

	event, err := s.events.Get(ctx, eventID)
	if err != nil {
		return nil, err
	}

	sub, err := s.subscriptions.Upsert(ctx, &entity.Subscription{
		EventID:             eventID,
		UserID:              userID,
		NotificationEnabled: enableAlerts,
		SubscribedAt:        now.UTC(),
	})
	if err != nil {
		return nil, err
	}

	state := s.apply(ctx, event, enableAlerts, now)
	s.logger.Infof("User subscribed to event (user_id=%d, event_id=%d, state=%s)", userID, eventID, state)
	return sub, nil
}

// Unsubscribe removes the active user's subscription. Removing a missing subscription succeeds.
func (s *SubscriptionService) Unsubscribe(ctx context.Context, eventID int64) error {
	userID, err := s.user()
	if err != nil {
		return err
	}
	unlock := s.locks.Lock(eventID)
	defer unlock()

	existed, err := s.subscriptions.Delete(ctx, eventID, userID)
	if err != nil {
		return err
	}

	s.scheduler.Remove(ctx, eventID)
	s.logger.Infof("User unsubscribed from event (user_id=%d, event_id=%d, existed=%t)", userID, eventID, existed)
	return nil
}

// ToggleNotifications flips alerts on an existing subscription. Without a
// subscription it fails with ErrNotFound: enabling alerts requires subscribing first.
func (s *SubscriptionService) ToggleNotifications(ctx context.Context, eventID int64, enabled bool, now time.Time) error {
	userID, err := s.user()
	if err != nil {
		return err
	}
	unlock := s.locks.Lock(eventID)
	defer unlock()

	if err := s.subscriptions.SetNotification(ctx, eventID, userID, enabled); err != nil {
		return err
	}

	event, err := s.events.Get(ctx, eventID)
	switch {
	case errors.Is(err, errorz.ErrNotFound):
		s.scheduler.Remove(ctx, eventID)
		return nil
	case err != nil:
		s.logger.Errorf("failed to load event %d after toggling notifications: %v", eventID, err)
		return nil
	}

	state := s.apply(ctx, event, enabled, now)
	s.logger.Infof("User toggled notifications (user_id=%d, event_id=%d, state=%s)", userID, eventID, state)
	return nil
}

// CreateEvent stores a new event authored by the active user.
func (s *SubscriptionService) CreateEvent(ctx context.Context, input dto.EventInput, now time.Time) (*entity.Event, error) {
	userID, err := s.user()
	if err != nil {
		return nil, err
	}
	event, err := s.events.Create(ctx, input, userID, now)
	if err != nil {
		return nil, err
	}
	s.logger.Infof("Event created (event_id=%d, user_id=%d, at=%s)", event.ID, userID, entity.FormatInstant(event.EventDateTime))
	return event, nil
}

// UpdateEvent edits an event and moves the active user's reminder with it.
func (s *SubscriptionService) UpdateEvent(ctx context.Context, eventID int64, patch dto.EventPatch, now time.Time) (*entity.Event, error) {
	userID, err := s.user()
	if err != nil {
		return nil, err
	}
	unlock := s.locks.Lock(eventID)
	defer unlock()

	event, err := s.events.Update(ctx, eventID, patch, now)
	if err != nil {
		return nil, err
	}

	sub, err := s.subscriptions.Get(ctx, eventID, userID)
	switch {
	case errors.Is(err, errorz.ErrNotFound):
	case err != nil:
		s.logger.Errorf("failed to load subscription after updating event %d: %v", eventID, err)
	case sub.NotificationEnabled:
		s.scheduler.Enable(ctx, event, now)
	}
	s.logger.Infof("Event updated (event_id=%d, user_id=%d)", eventID, userID)
	return event, nil
}

// DeleteEvent removes an event with its subscriptions and cancels its reminder.
func (s *SubscriptionService) DeleteEvent(ctx context.Context, eventID int64) error {
	userID, err := s.user()
	if err != nil {
		return err
	}
	unlock := s.locks.Lock(eventID)
	defer unlock()

	removed, err := s.events.Delete(ctx, eventID)
	if err != nil {
		return err
	}

	s.scheduler.Remove(ctx, eventID)
	s.logger.Infof("Event deleted (event_id=%d, user_id=%d, subscriptions=%d)", eventID, userID, removed)
	return nil
}

// GetSubscription returns the active user's subscription to an event.
func (s *SubscriptionService) GetSubscription(ctx context.Context, eventID int64) (*entity.Subscription, error) {
	userID, err := s.user()
	if err != nil {
		return nil, err
	}
	return s.subscriptions.Get(ctx, eventID, userID)
}

// State reports the reminder state of the active user's pair for an event.
func (s *SubscriptionService) State(ctx context.Context, eventID int64, now time.Time) (NotificationState, error) {
	userID, err := s.user()
	if err != nil {
		return StateNone, err
	}
	sub, err := s.subscriptions.Get(ctx, eventID, userID)
	if errors.Is(err, errorz.ErrNotFound) {
		return StateNone, nil
	}
	if err != nil {
		return StateNone, err
	}
	event, err := s.events.Get(ctx, eventID)
	if err != nil && !errors.Is(err, errorz.ErrNotFound) {
		return StateNone, err
	}
	return StateOf(sub, event, now), nil
}

// ListSubscribed lists the active user's subscribed events, soonest first.
func (s *SubscriptionService) ListSubscribed(ctx context.Context) ([]dto.EventView, error) {
	userID, err := s.user()
	if err != nil {
		return nil, err
	}
	return s.events.GetSubscribed(ctx, userID)
}

// ListUpcoming lists upcoming events with the active user's subscription flags.
// Without an active user the listing is anonymous.
func (s *SubscriptionService) ListUpcoming(ctx context.Context, now time.Time) ([]dto.EventView, error) {
	var viewerID int64
	if s.session != nil {
		viewerID, _ = s.session.UserID()
	}
	return s.events.GetUpcoming(ctx, now, 0, viewerID)
}

func (s *SubscriptionService) SubscriberCount(ctx context.Context, eventID int64) (int64, error) {
	return s.subscriptions.CountByEventID(ctx, eventID)
}

// Reconcile rebuilds the active user's reminders from store state.
func (s *SubscriptionService) Reconcile(ctx context.Context, now time.Time) (dto.ReconcileReport, error) {
	userID, err := s.user()
	if err != nil {
		return dto.ReconcileReport{}, err
	}
	return s.scheduler.RescheduleAll(ctx, userID, now)
}

// OnLogin rebuilds the reminders of the user who just signed in. Failures are logged.
func (s *SubscriptionService) OnLogin(ctx context.Context, userID int64, now time.Time) {
	if _, err := s.scheduler.RescheduleAll(ctx, userID, now); err != nil {
		s.logger.Errorf("failed to reconcile notifications on login (user_id=%d): %v", userID, err)
	}
}

// OnLogout drops every pending reminder of the user who signed out.
func (s *SubscriptionService) OnLogout(ctx context.Context, userID int64) {
	cancelled := s.scheduler.CancelAll(ctx)
	s.logger.Infof("Cleared notifications on logout (user_id=%d, cancelled=%d)", userID, cancelled)
}

// ExportCalendar renders the active user's subscribed events as iCalendar data.
func (s *SubscriptionService) ExportCalendar(ctx context.Context, now time.Time) ([]byte, error) {
	events, err := s.ListSubscribed(ctx)
	if err != nil {
		return nil, err
	}
	data, err := calendar.ExportEventsToICS(events, now)
	if err != nil {
		return nil, fmt.Errorf("export calendar: %w", err)
	}
	return data, nil
}

func (s *SubscriptionService) apply(ctx context.Context, event *entity.Event, enabled bool, now time.Time) NotificationState {
	if enabled {
		return s.scheduler.Enable(ctx, event, now)
	}
	return s.scheduler.Disable(ctx, event.ID)
}

func (s *SubscriptionService) user() (int64, error) {
	if s.session == nil {
		return 0, errorz.ErrUnauthenticated
	}
	userID, ok := s.session.UserID()
	if !ok {
		return 0, errorz.ErrUnauthenticated
	}
	return userID, nil
}
