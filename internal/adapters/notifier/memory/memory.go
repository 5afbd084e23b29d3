package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vinylhub/eventsync/internal/domain/dto"
)

// Backend keeps pending reminders in process memory. Nothing survives a restart,
// which startup reconciliation makes up for.
type Backend struct {
	mu      sync.Mutex
	pending map[string]dto.PendingNotification
	shown   []dto.PendingNotification
}

func New() *Backend {
	return &Backend{
		pending: make(map[string]dto.PendingNotification),
	}
}

// ScheduleAt stores a reminder, replacing one with the same key.
func (b *Backend) ScheduleAt(ctx context.Context, key string, firesAt time.Time, title, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending[key] = dto.PendingNotification{Key: key, FiresAt: firesAt.UTC(), Title: title, Body: body}
	return nil
}

// Cancel drops a reminder. Unknown keys are ignored.
func (b *Backend) Cancel(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.pending, key)
	return nil
}

// ListPending returns reminders ordered by fire time, then key.
func (b *Backend) ListPending(ctx context.Context) ([]dto.PendingNotification, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]dto.PendingNotification, 0, len(b.pending))
	for _, p := range b.pending {
		out = append(out, p)
	}
	sortPending(out)
	return out, nil
}

// Show queues a notification for immediate delivery.
func (b *Backend) Show(ctx context.Context, key, title, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.shown = append(b.shown, dto.PendingNotification{Key: key, FiresAt: time.Now().UTC(), Title: title, Body: body})
	return nil
}

// Due removes and returns every reminder firing at or before now, plus anything
// queued through Show.
func (b *Backend) Due(ctx context.Context, now time.Time) ([]dto.PendingNotification, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	due := b.shown
	b.shown = nil
	for key, p := range b.pending {
		if !p.FiresAt.After(now) {
			due = append(due, p)
			delete(b.pending, key)
		}
	}
	sortPending(due)
	return due, nil
}

func sortPending(list []dto.PendingNotification) {
	sort.Slice(list, func(i, j int) bool {
		if !list[i].FiresAt.Equal(list[j].FiresAt) {
			return list[i].FiresAt.Before(list[j].FiresAt)
		}
		return list[i].Key < list[j].Key
	})
}
