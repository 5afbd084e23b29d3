package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/vinylhub/eventsync/internal/adapters/database/store"
	"github.com/vinylhub/eventsync/internal/adapters/notifier/memory"
	"github.com/vinylhub/eventsync/internal/domain/dto"
	"github.com/vinylhub/eventsync/internal/domain/entity"
)

var now = time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

type testSession struct {
	mu     sync.Mutex
	userID int64
}

func (s *testSession) UserID() (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID, s.userID != 0
}

type mockBackend struct {
	mock.Mock
}

func (m *mockBackend) ScheduleAt(ctx context.Context, key string, firesAt time.Time, title, body string) error {
	return m.Called(key, firesAt).Error(0)
}

func (m *mockBackend) Cancel(ctx context.Context, key string) error {
	return m.Called(key).Error(0)
}

func (m *mockBackend) ListPending(ctx context.Context) ([]dto.PendingNotification, error) {
	args := m.Called()
	pending, _ := args.Get(0).([]dto.PendingNotification)
	return pending, args.Error(1)
}

type fixture struct {
	events        *store.EventStorage
	subscriptions *store.SubscriptionStorage
	catalog       *EventService
	scheduler     *NotificationScheduler
	coordinator   *SubscriptionService
	session       *testSession
}

func newFixture(t *testing.T, backend NotificationBackend) *fixture {
	t.Helper()
	db, err := store.Open(store.Options{Driver: store.DriverSQLite, Path: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, store.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	if backend == nil {
		backend = memory.New()
	}
	f := &fixture{
		events:        store.NewEventStorage(db),
		subscriptions: store.NewSubscriptionStorage(db),
		session:       &testSession{userID: 1},
	}
	f.catalog = NewEventService(f.events, time.Hour, 3)
	f.scheduler = NewNotificationScheduler(backend, f.catalog, 200*time.Millisecond, nil)
	f.coordinator = NewSubscriptionService(f.session, f.catalog, f.subscriptions, f.scheduler, nil)
	return f
}

// seed stores an event with a fixed id starting at the given time.
func (f *fixture) seed(t *testing.T, id int64, at time.Time) *entity.Event {
	t.Helper()
	event, err := f.events.Create(context.Background(), &entity.Event{
		ID:            id,
		Title:         "Event",
		EventType:     entity.EventTypeListeningParty,
		EventDateTime: at,
		Timezone:      "WIB",
		CreatedBy:     1,
		CreatedAt:     now,
	})
	require.NoError(t, err)
	return event
}

func pendingKeys(t *testing.T, backend NotificationBackend) []string {
	t.Helper()
	pending, err := backend.ListPending(context.Background())
	require.NoError(t, err)
	keys := make([]string, 0, len(pending))
	for _, p := range pending {
		keys = append(keys, p.Key)
	}
	return keys
}
