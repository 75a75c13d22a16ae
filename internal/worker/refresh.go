package worker

import (
	"context"
	"log/slog"
	"time"
)

// Refresher triggers a full reload of the fund set.
type Refresher interface {
	Refetch(ctx context.Context)
}

// AfterRefreshHook is called after each periodic refresh.
type AfterRefreshHook interface {
	Export(ctx context.Context) error
}

// RefreshWorker periodically forces a full reload so a recovered
// primary tier is promoted back through the normal refetch lifecycle.
type RefreshWorker struct {
	refresher Refresher
	interval  time.Duration
	hook      AfterRefreshHook // optional
}

// NewRefreshWorker creates a RefreshWorker with an optional post-refresh hook.
func NewRefreshWorker(refresher Refresher, interval time.Duration, hook AfterRefreshHook) *RefreshWorker {
	return &RefreshWorker{
		refresher: refresher,
		interval:  interval,
		hook:      hook,
	}
}

// Run starts the refresh loop. The initial load is the store's own;
// this loop only handles subsequent re-promotion. Blocks until the
// context is cancelled.
func (w *RefreshWorker) Run(ctx context.Context) {
	slog.Info("RefreshWorker: starting", "interval", w.interval)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("RefreshWorker: shutting down")
			return
		case <-ticker.C:
			w.refresher.Refetch(ctx)
			slog.Info("RefreshWorker: refresh completed")
			w.runHook(ctx)
		}
	}
}

func (w *RefreshWorker) runHook(ctx context.Context) {
	if w.hook == nil {
		return
	}
	if err := w.hook.Export(ctx); err != nil {
		slog.Error("RefreshWorker: export hook failed", "error", err)
	} else {
		slog.Info("RefreshWorker: export hook completed")
	}
}
