package notifier

import (
	"context"
	"sync"
	"time"

	"github.com/vinylhub/eventsync/internal/domain/dto"
	"github.com/vinylhub/eventsync/pkg/logger/types"
)

// DefaultInterval is how often the dispatcher polls for due reminders.
const DefaultInterval = 30 * time.Second

// Source hands out reminders whose time has come. Each reminder is returned once.
type Source interface {
	Due(ctx context.Context, now time.Time) ([]dto.PendingNotification, error)
}

// Sender delivers a fired reminder somewhere the user will see it.
type Sender interface {
	Name() string
	Send(ctx context.Context, n dto.PendingNotification) error
}

// Dispatcher plays the part of the platform: it fires reminders the backend holds.
type Dispatcher struct {
	source   Source
	senders  []Sender
	interval time.Duration
	logger   *types.Logger

	stopOnce sync.Once
	done     chan struct{}
}

func NewDispatcher(source Source, interval time.Duration, logger *types.Logger, senders ...Sender) *Dispatcher {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = types.Nop()
	}
	return &Dispatcher{
		source:   source,
		senders:  senders,
		interval: interval,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// Start polls on a ticker until ctx is cancelled or Stop is called.
func (d *Dispatcher) Start(ctx context.Context) {
	d.logger.Infof("Starting dispatcher (interval=%s, senders=%d)", d.interval, len(d.senders))
	go func() {
		ticker := time.NewTicker(d.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-d.done:
				return
			case now := <-ticker.C:
				d.Tick(ctx, now.UTC())
			}
		}
	}()
}

func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() { close(d.done) })
}

// Tick delivers everything due at now and returns how many reminders fired.
// Delivery failures are logged; a reminder is not retried.
func (d *Dispatcher) Tick(ctx context.Context, now time.Time) int {
	due, err := d.source.Due(ctx, now)
	if err != nil {
		d.logger.Errorf("failed to collect due notifications: %v", err)
	}
	for _, n := range due {
		d.logger.Infof("Firing notification (key=%s, fires_at=%s)", n.Key, n.FiresAt.Format(time.RFC3339))
		for _, sender := range d.senders {
			if err := sender.Send(ctx, n); err != nil {
				d.logger.Errorf("failed to deliver notification %s via %s: %v", n.Key, sender.Name(), err)
			}
		}
	}
	return len(due)
}
