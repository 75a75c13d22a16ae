package store

import (
	"context"
	"errors"
	"sync"

	"github.com/fundweb/fundsync/internal/domain"
)

// ErrSubscriptionClosed indicates a subscription used after Close.
var ErrSubscriptionClosed = errors.New("subscription closed")

// subscription routes incoming change events. Targeted mode (non-empty
// id set) always takes the single-record path; general mode takes it
// when the event names a fund and falls back to a debounced full
// refetch otherwise. Edit-log appends always trigger the debounced
// refetch: an edit can change overlaid fields in ways a single-record
// fetch cannot capture.
type subscription struct {
	channel ChangeChannel
	store   *Store
	coord   *Coordinator
	ids     []string

	mu     sync.Mutex
	closed bool
}

func newSubscription(channel ChangeChannel, s *Store, coord *Coordinator, ids []string) *subscription {
	return &subscription{
		channel: channel,
		store:   s,
		coord:   coord,
		ids:     ids,
	}
}

func (sub *subscription) start(ctx context.Context) error {
	return sub.channel.Open(ctx, sub.ids, func(ev domain.ChangeEvent) {
		sub.route(ctx, ev)
	})
}

func (sub *subscription) route(ctx context.Context, ev domain.ChangeEvent) {
	sub.mu.Lock()
	if sub.closed {
		sub.mu.Unlock()
		return
	}
	sub.mu.Unlock()

	notificationsTotal.WithLabelValues(string(ev.Kind)).Inc()

	if ev.Kind == domain.ChangeKindEdit {
		sub.coord.RequestDebouncedFetch(ctx)
		return
	}

	if len(sub.ids) > 0 {
		// Targeted mode never escalates to a full refetch.
		sub.store.applyRecordEvent(ctx, ev)
		return
	}

	if ev.ID != "" {
		sub.store.applyRecordEvent(ctx, ev)
		return
	}
	sub.coord.RequestDebouncedFetch(ctx)
}

// Close tears down the channel and cancels the pending debounce timer.
// Closing twice returns ErrSubscriptionClosed.
func (sub *subscription) Close() error {
	sub.mu.Lock()
	if sub.closed {
		sub.mu.Unlock()
		return ErrSubscriptionClosed
	}
	sub.closed = true
	sub.mu.Unlock()

	sub.coord.Stop()
	return sub.channel.Close()
}
