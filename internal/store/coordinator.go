package store

import (
	"context"
	"sync"
	"time"

	"github.com/fundweb/fundsync/internal/loader"
)

// Fetcher runs one full tiered load.
type Fetcher interface {
	Load(ctx context.Context) loader.Result
}

// Coordinator guards against overlapping loads and coalesces bursts of
// change notifications into a single delayed refetch. One instance per
// store; there is no package-level fetch state.
type Coordinator struct {
	fetcher Fetcher
	publish func(loader.Result)

	minInterval    time.Duration
	debounceWindow time.Duration

	mu           sync.Mutex
	inFlight     bool
	lastFetchAt  time.Time
	pendingTimer *time.Timer
}

// NewCoordinator creates a Coordinator publishing every load result to
// publish.
func NewCoordinator(fetcher Fetcher, publish func(loader.Result), minInterval, debounceWindow time.Duration) *Coordinator {
	if fetcher == nil {
		panic("store.NewCoordinator: fetcher is nil")
	}
	if publish == nil {
		panic("store.NewCoordinator: publish is nil")
	}
	if minInterval <= 0 {
		minInterval = time.Second
	}
	if debounceWindow <= 0 {
		debounceWindow = 500 * time.Millisecond
	}
	return &Coordinator{
		fetcher:        fetcher,
		publish:        publish,
		minInterval:    minInterval,
		debounceWindow: debounceWindow,
	}
}

// RequestFetch runs one load unless another is in flight, or one
// completed within the recency window and force is unset. Returns
// whether a load actually ran. A completed stale load is harmless:
// results publish in completion order and the set is replaced whole.
func (c *Coordinator) RequestFetch(ctx context.Context, force bool) bool {
	c.mu.Lock()
	if c.inFlight {
		c.mu.Unlock()
		fetchSkipped.WithLabelValues("in_flight").Inc()
		return false
	}
	if !force && time.Since(c.lastFetchAt) < c.minInterval {
		c.mu.Unlock()
		fetchSkipped.WithLabelValues("recent").Inc()
		return false
	}
	c.inFlight = true
	c.lastFetchAt = time.Now()
	c.mu.Unlock()

	res := c.fetcher.Load(ctx)

	c.mu.Lock()
	c.inFlight = false
	c.mu.Unlock()

	fetchTotal.WithLabelValues(string(res.Status)).Inc()
	c.publish(res)
	return true
}

// RequestDebouncedFetch schedules a forced fetch after the debounce
// window, replacing any previously scheduled one so a burst of
// notifications produces a single refetch.
func (c *Coordinator) RequestDebouncedFetch(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pendingTimer != nil {
		c.pendingTimer.Stop()
		debounceCoalesced.Inc()
	}
	c.pendingTimer = time.AfterFunc(c.debounceWindow, func() {
		c.mu.Lock()
		c.pendingTimer = nil
		c.mu.Unlock()
		c.RequestFetch(ctx, true)
	})
}

// Stop cancels any pending debounced fetch so no load fires after the
// consumer has gone away.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pendingTimer != nil {
		c.pendingTimer.Stop()
		c.pendingTimer = nil
	}
}
