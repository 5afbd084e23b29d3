package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vinylhub/eventsync/internal/domain/common/errorz"
	"github.com/vinylhub/eventsync/internal/domain/dto"
	"github.com/vinylhub/eventsync/internal/domain/entity"
	"github.com/vinylhub/eventsync/pkg/logger/types"
)

// DefaultCallTimeout bounds a single backend call when none is configured.
const DefaultCallTimeout = 5 * time.Second

// TestNotificationKey is the backend key used by SendTestNotification. It never
// collides with an event key because event keys are decimal ids.
const TestNotificationKey = "test"

// NotificationBackend is the platform that holds and fires reminders. Keys are
// decimal event ids and scheduling an existing key replaces it.
type NotificationBackend interface {
	ScheduleAt(ctx context.Context, key string, firesAt time.Time, title, body string) error
	Cancel(ctx context.Context, key string) error
	ListPending(ctx context.Context) ([]dto.PendingNotification, error)
}

// ImmediateNotifier is implemented by backends that can show a notification right away.
type ImmediateNotifier interface {
	Show(ctx context.Context, key, title, body string) error
}

type alertingEvents interface {
	GetAlerting(ctx context.Context, userID int64, now time.Time) ([]entity.Event, error)
}

// NotificationState is the reminder state of one (event, user) pair.
type NotificationState int

const (
	StateNone NotificationState = iota
	StateSubscribedSilent
	StateSubscribedAlerting
	StateAlertedPast
)

func (s NotificationState) String() string {
	switch s {
	case StateNone:
		return "NONE"
	case StateSubscribedSilent:
		return "SUBSCRIBED_SILENT"
	case StateSubscribedAlerting:
		return "SUBSCRIBED_ALERTING"
	case StateAlertedPast:
		return "ALERTED_PAST"
	default:
		return fmt.Sprintf("NotificationState(%d)", int(s))
	}
}

// StateOf derives the state of a pair from store rows. A nil subscription is NONE.
func StateOf(sub *entity.Subscription, event *entity.Event, now time.Time) NotificationState {
	switch {
	case sub == nil:
		return StateNone
	case !sub.NotificationEnabled:
		return StateSubscribedSilent
	case event == nil || event.IsPast(now):
		return StateAlertedPast
	default:
		return StateSubscribedAlerting
	}
}

// NotificationScheduler keeps the backend in line with subscription state.
//
// Single transitions (Enable, Disable, Remove) touch one key and may run side by
// side. RescheduleAll and CancelAll rebuild the whole backend and exclude every
// other operation while they run.
//
// Every backend call goes through call, which bounds it with a timeout and records
// failures for Status. Backend failures are never returned from transitions.
type NotificationScheduler struct {
	backend     NotificationBackend
	events      alertingEvents
	callTimeout time.Duration
	logger      *types.Logger

	guard sync.RWMutex

	statusMu sync.Mutex
	status   dto.NotificationStatus
}

func NewNotificationScheduler(
	backend NotificationBackend,
	events alertingEvents,
	callTimeout time.Duration,
	logger *types.Logger,
) *NotificationScheduler {
	if callTimeout <= 0 {
		callTimeout = DefaultCallTimeout
	}
	if logger == nil {
		logger = types.Nop()
	}
	return &NotificationScheduler{
		backend:     backend,
		events:      events,
		callTimeout: callTimeout,
		logger:      logger,
	}
}

// Enable moves a pair to SUBSCRIBED_ALERTING by scheduling the event's reminder,
// replacing any reminder under the same key. A past event ends in ALERTED_PAST and
// any stale reminder is cancelled instead.
func (s *NotificationScheduler) Enable(ctx context.Context, event *entity.Event, now time.Time) NotificationState {
	s.guard.RLock()
	defer s.guard.RUnlock()

	if event.IsPast(now) {
		_ = s.cancel(ctx, event.NotificationKey())
		return StateAlertedPast
	}
	_ = s.schedule(ctx, event)
	return StateSubscribedAlerting
}

// Disable moves a pair to SUBSCRIBED_SILENT.
func (s *NotificationScheduler) Disable(ctx context.Context, eventID int64) NotificationState {
	s.guard.RLock()
	defer s.guard.RUnlock()

	_ = s.cancel(ctx, entity.NotificationKey(eventID))
	return StateSubscribedSilent
}

// Remove moves a pair to NONE, used for unsubscribe and event deletion.
func (s *NotificationScheduler) Remove(ctx context.Context, eventID int64) NotificationState {
	s.guard.RLock()
	defer s.guard.RUnlock()

	_ = s.cancel(ctx, entity.NotificationKey(eventID))
	return StateNone
}

// RescheduleAll cancels every pending reminder that has not come due yet and then
// schedules one reminder per alerting subscription of userID whose event starts at
// or after now. Reminders already due are left for the platform to fire.
//
// This is cancel-then-rebuild on purpose. It does not diff the backend against the
// target set: reminders are briefly absent, and in exchange the result depends only
// on store state. Do not turn it into an incremental diff.
//
// Store failures are returned. Backend failures are counted in the report and make
// the call return ErrReconcileFailed; the store is never written, so retrying is safe.
func (s *NotificationScheduler) RescheduleAll(ctx context.Context, userID int64, now time.Time) (dto.ReconcileReport, error) {
	s.guard.Lock()
	defer s.guard.Unlock()

	report := dto.ReconcileReport{
		RunID:     uuid.NewString(),
		UserID:    userID,
		StartedAt: now,
	}
	started := time.Now()
	log := s.logger.With("run_id", report.RunID, "user_id", userID)
	log.Infof("Reconciling notifications")

	cancelled, kept, failed := s.cancelPending(ctx, now)
	report.Cancelled = cancelled
	report.Kept = kept
	report.Failed += failed

	var events []entity.Event
	if userID != 0 {
		var err error
		events, err = s.events.GetAlerting(ctx, userID, now)
		if err != nil {
			report.Duration = time.Since(started)
			s.setLastReconcile(report)
			log.Errorf("failed to load alerting subscriptions: %v", err)
			return report, fmt.Errorf("reconcile notifications: %w", err)
		}
	}

	report.TargetKeys = make([]string, 0, len(events))
	for i := range events {
		event := &events[i]
		report.TargetKeys = append(report.TargetKeys, event.NotificationKey())
		if err := s.schedule(ctx, event); err != nil {
			report.Failed++
			continue
		}
		report.Scheduled++
	}

	report.Duration = time.Since(started)
	s.setLastReconcile(report)
	log.Infof("Reconciled notifications (cancelled=%d, kept=%d, scheduled=%d, failed=%d)", report.Cancelled, report.Kept, report.Scheduled, report.Failed)

	if report.Failed > 0 {
		return report, fmt.Errorf("%w: %d backend calls failed", errorz.ErrReconcileFailed, report.Failed)
	}
	return report, nil
}

// CancelAll removes every pending reminder, used when the active user signs out.
func (s *NotificationScheduler) CancelAll(ctx context.Context) int {
	s.guard.Lock()
	defer s.guard.Unlock()

	cancelled, _, _ := s.cancelPending(ctx, time.Time{})
	return cancelled
}

// SendTestNotification shows a notification now, or schedules one for now when the
// backend cannot show immediately. Failures are recorded like any other backend call.
func (s *NotificationScheduler) SendTestNotification(ctx context.Context, title, body string, now time.Time) {
	s.guard.RLock()
	defer s.guard.RUnlock()

	if shower, ok := s.backend.(ImmediateNotifier); ok {
		_ = s.call(ctx, "show", TestNotificationKey, func(ctx context.Context) error {
			return shower.Show(ctx, TestNotificationKey, title, body)
		})
		return
	}
	_ = s.call(ctx, "schedule", TestNotificationKey, func(ctx context.Context) error {
		return s.backend.ScheduleAt(ctx, TestNotificationKey, now, title, body)
	})
}

// Pending lists what the backend currently holds.
func (s *NotificationScheduler) Pending(ctx context.Context) ([]dto.PendingNotification, error) {
	var pending []dto.PendingNotification
	err := s.call(ctx, "list", "", func(ctx context.Context) error {
		var err error
		pending, err = s.backend.ListPending(ctx)
		return err
	})
	return pending, err
}

// Status returns a snapshot of the diagnostics counters.
func (s *NotificationScheduler) Status() dto.NotificationStatus {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()

	status := s.status
	if s.status.LastErrorAt != nil {
		at := *s.status.LastErrorAt
		status.LastErrorAt = &at
	}
	if s.status.LastReconcile != nil {
		report := *s.status.LastReconcile
		report.TargetKeys = append([]string(nil), s.status.LastReconcile.TargetKeys...)
		status.LastReconcile = &report
	}
	return status
}

// cancelPending cancels every key the backend reports, except reminders firing at or
// before dueBy. A zero dueBy cancels everything. The caller holds the write guard.
func (s *NotificationScheduler) cancelPending(ctx context.Context, dueBy time.Time) (cancelled, kept, failed int) {
	var pending []dto.PendingNotification
	err := s.call(ctx, "list", "", func(ctx context.Context) error {
		var err error
		pending, err = s.backend.ListPending(ctx)
		return err
	})
	if err != nil {
		return 0, 0, 1
	}
	for _, p := range pending {
		if !dueBy.IsZero() && !p.FiresAt.After(dueBy) {
			kept++
			continue
		}
		if err := s.cancel(ctx, p.Key); err != nil {
			failed++
			continue
		}
		cancelled++
	}
	return cancelled, kept, failed
}

func (s *NotificationScheduler) schedule(ctx context.Context, event *entity.Event) error {
	key := event.NotificationKey()
	title, body := reminderText(event)
	err := s.call(ctx, "schedule", key, func(ctx context.Context) error {
		return s.backend.ScheduleAt(ctx, key, event.EventDateTime.UTC(), title, body)
	})
	if err == nil {
		s.statusMu.Lock()
		s.status.Scheduled++
		s.statusMu.Unlock()
	}
	return err
}

func (s *NotificationScheduler) cancel(ctx context.Context, key string) error {
	err := s.call(ctx, "cancel", key, func(ctx context.Context) error {
		return s.backend.Cancel(ctx, key)
	})
	if err == nil {
		s.statusMu.Lock()
		s.status.Cancelled++
		s.statusMu.Unlock()
	}
	return err
}

// call runs fn against the backend with a bounded timeout. A backend that ignores
// its context is abandoned when the timeout fires.
func (s *NotificationScheduler) call(ctx context.Context, op, key string, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- fn(ctx)
	}()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("timed out after %s: %w", s.callTimeout, err)
	}

	backendErr := &errorz.NotificationBackendError{Op: op, Key: key, Err: err}
	at := time.Now().UTC()
	s.statusMu.Lock()
	s.status.Failures++
	s.status.LastError = backendErr.Error()
	s.status.LastErrorAt = &at
	s.statusMu.Unlock()

	s.logger.Warnf("%v", backendErr)
	return backendErr
}

func (s *NotificationScheduler) setLastReconcile(report dto.ReconcileReport) {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	s.status.LastReconcile = &report
}

func reminderText(event *entity.Event) (string, string) {
	parts := []string{"Starts at " + FormatInZone(event.EventDateTime, event.Timezone, "15:04")}
	if event.Location != "" {
		parts = append(parts, event.Location)
	}
	return event.Title, strings.Join(parts, ", ")
}
