package notifier

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vinylhub/eventsync/internal/adapters/notifier/memory"
	"github.com/vinylhub/eventsync/internal/domain/dto"
)

type recordingSender struct {
	mu   sync.Mutex
	got  []dto.PendingNotification
	fail bool
}

func (s *recordingSender) Name() string { return "recording" }

func (s *recordingSender) Send(_ context.Context, n dto.PendingNotification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, n)
	if s.fail {
		return errors.New("unreachable")
	}
	return nil
}

func (s *recordingSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.got)
}

func TestTickDeliversDueOnce(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2025, 3, 10, 2, 0, 0, 0, time.UTC)
	backend := memory.New()
	require.NoError(t, backend.ScheduleAt(ctx, "5", at, "Listening party", "Starts at 09:00 WIB"))
	require.NoError(t, backend.ScheduleAt(ctx, "9", at.Add(time.Hour), "Swap meet", ""))

	failing := &recordingSender{fail: true}
	ok := &recordingSender{}
	d := NewDispatcher(backend, time.Minute, nil, failing, ok)

	assert.Equal(t, 0, d.Tick(ctx, at.Add(-time.Second)))
	assert.Equal(t, 1, d.Tick(ctx, at))
	assert.Equal(t, 0, d.Tick(ctx, at))

	require.Equal(t, 1, ok.count())
	assert.Equal(t, "5", ok.got[0].Key)
	assert.Equal(t, 1, failing.count())
}

func TestStartAndStop(t *testing.T) {
	ctx := context.Background()
	backend := memory.New()
	require.NoError(t, backend.ScheduleAt(ctx, "5", time.Now().Add(-time.Minute), "t", ""))

	sender := &recordingSender{}
	d := NewDispatcher(backend, 10*time.Millisecond, nil, sender)
	d.Start(ctx)
	defer d.Stop()

	assert.Eventually(t, func() bool { return sender.count() == 1 }, time.Second, 10*time.Millisecond)
	d.Stop()
}
