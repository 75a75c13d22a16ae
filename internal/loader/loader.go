// Package loader implements the tiered fund loading chain:
// primary store, then secondary gateway, then the bundled snapshot.
package loader

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/samber/lo"

	"github.com/fundweb/fundsync/internal/domain"
	"github.com/fundweb/fundsync/internal/overlay"
	"github.com/fundweb/fundsync/internal/source"
	"github.com/fundweb/fundsync/internal/transform"
)

// PrimarySource is the authoritative record store.
type PrimarySource interface {
	QueryAllFunds(ctx context.Context) ([]domain.RawRecord, error)
	QueryEditLog(ctx context.Context) ([]domain.EditEvent, error)
}

// SecondarySource is the fallback gateway view of the same data.
type SecondarySource interface {
	QueryFunds(ctx context.Context) ([]domain.RawRecord, error)
	QueryRanks(ctx context.Context) (map[string]int, error)
}

// StaticSource is the bundled snapshot of last resort.
type StaticSource interface {
	Funds() []domain.RawRecord
}

// Status is the coarse freshness indicator attached to every load.
type Status string

const (
	// StatusFresh means the primary tier answered and edits were merged.
	StatusFresh Status = "fresh"
	// StatusDegraded means a fallback path was taken but remote data
	// was still obtained.
	StatusDegraded Status = "degraded"
	// StatusStale means the bundled snapshot is being served.
	StatusStale Status = "stale"
)

// Result is the outcome of one load. Funds is always populated with the
// best available set; Status and Reason are advisory, never control flow
// for the caller.
type Result struct {
	Funds  domain.FundSet
	Status Status
	Reason string
}

// Loader walks the tier chain. It never fails: every load resolves to
// some fund set, possibly the static one.
type Loader struct {
	primary     PrimarySource
	secondary   SecondarySource
	static      StaticSource
	tierTimeout time.Duration
}

// New creates a Loader. All sources are required.
func New(primary PrimarySource, secondary SecondarySource, static StaticSource, tierTimeout time.Duration) *Loader {
	if primary == nil {
		panic("loader.New: primary is nil")
	}
	if secondary == nil {
		panic("loader.New: secondary is nil")
	}
	if static == nil {
		panic("loader.New: static is nil")
	}
	if tierTimeout <= 0 {
		tierTimeout = 10 * time.Second
	}
	return &Loader{
		primary:     primary,
		secondary:   secondary,
		static:      static,
		tierTimeout: tierTimeout,
	}
}

// Load runs the chain, stopping at the first tier that yields records.
// Each remote tier runs under its own timeout so a hung call cannot
// block progression to the next tier.
func (l *Loader) Load(ctx context.Context) Result {
	records, err := l.queryPrimary(ctx)
	switch {
	case err == nil && len(records) > 0:
		return l.finish(ctx, transformAll(records, nil), StatusFresh, "")

	case err == nil:
		// Zero records without an explicit error: treated as primary
		// failure, straight to the snapshot.
		slog.Warn("primary source returned no records, serving snapshot")
		return l.loadStatic(ctx, "primary returned no records")

	default:
		reason := "primary unavailable"
		if errors.Is(err, source.ErrUnauthorized) {
			reason = "primary authorization failed"
		}
		slog.Warn("primary source failed, trying secondary", "error", err)
		return l.loadSecondary(ctx, reason)
	}
}

func (l *Loader) loadSecondary(ctx context.Context, reason string) Result {
	sctx, cancel := context.WithTimeout(ctx, l.tierTimeout)
	defer cancel()

	records, err := l.secondary.QueryFunds(sctx)
	if err != nil {
		slog.Warn("secondary source failed, serving snapshot", "error", err)
		return l.loadStatic(ctx, reason+"; secondary unavailable")
	}

	// Rank lookup is best-effort: without it every fund is unranked.
	ranks, err := l.secondary.QueryRanks(sctx)
	if err != nil {
		slog.Warn("secondary rank lookup failed, funds unranked", "error", err)
		ranks = nil
	}

	return l.finish(ctx, transformAll(records, ranks), StatusDegraded, reason)
}

func (l *Loader) loadStatic(ctx context.Context, reason string) Result {
	funds := transformAll(l.static.Funds(), nil)
	return l.finish(ctx, funds, StatusStale, reason)
}

// finish merges the edit log (best-effort) and sorts for display. A
// failed edit-log fetch degrades to the base set without overlay.
func (l *Loader) finish(ctx context.Context, funds domain.FundSet, status Status, reason string) Result {
	ectx, cancel := context.WithTimeout(ctx, l.tierTimeout)
	defer cancel()

	edits, err := l.primary.QueryEditLog(ectx)
	if err != nil {
		slog.Warn("edit log unavailable, serving base records", "error", err)
		if status == StatusFresh {
			status = StatusDegraded
		}
		if reason == "" {
			reason = "edit log unavailable"
		} else {
			reason += "; edit log unavailable"
		}
	} else {
		funds = overlay.Apply(funds, edits)
	}

	funds.SortForDisplay()
	return Result{Funds: funds, Status: status, Reason: reason}
}

func (l *Loader) queryPrimary(ctx context.Context) ([]domain.RawRecord, error) {
	pctx, cancel := context.WithTimeout(ctx, l.tierTimeout)
	defer cancel()
	return l.primary.QueryAllFunds(pctx)
}

func transformAll(records []domain.RawRecord, ranks map[string]int) domain.FundSet {
	return lo.Map(records, func(rec domain.RawRecord, _ int) domain.Fund {
		return transform.Transform(rec, ranks[rec.ID])
	})
}
