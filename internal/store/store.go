// Package store holds the live fund set and keeps it current: initial
// tiered load, change-notification routing, debounced refetching, and
// the query surface consumed by the directory frontend.
package store

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/fundweb/fundsync/internal/domain"
	"github.com/fundweb/fundsync/internal/loader"
	"github.com/fundweb/fundsync/internal/source"
	"github.com/fundweb/fundsync/internal/transform"
)

// RecordSource fetches a single fund for incremental updates.
type RecordSource interface {
	QueryFundByID(ctx context.Context, id string) (domain.RawRecord, error)
}

// ChangeChannel is the push-notification transport. Implemented by
// source.PgListener in production and by fakes in tests.
type ChangeChannel interface {
	Open(ctx context.Context, ids []string, onEvent func(domain.ChangeEvent)) error
	Close() error
}

// Options configures a Store.
type Options struct {
	// Channel enables realtime updates when non-nil.
	Channel ChangeChannel
	// SubscribeTo restricts the subscription to a set of fund ids
	// (targeted mode). Empty means general mode.
	SubscribeTo []string
	// MinFetchInterval is the recency guard window (default 1s).
	MinFetchInterval time.Duration
	// DebounceWindow is the notification coalescing delay (default 500ms).
	DebounceWindow time.Duration
}

// Store is the externally visible fund container.
type Store struct {
	records RecordSource
	coord   *Coordinator
	sub     *subscription

	mu     sync.RWMutex
	funds  domain.FundSet
	status loader.Status
	reason string
	loaded bool
}

// New creates a Store around a tiered fetcher and a single-record source.
func New(fetcher Fetcher, records RecordSource, opts Options) *Store {
	if records == nil {
		panic("store.New: records is nil")
	}
	s := &Store{records: records}
	s.coord = NewCoordinator(fetcher, s.publish, opts.MinFetchInterval, opts.DebounceWindow)
	if opts.Channel != nil {
		s.sub = newSubscription(opts.Channel, s, s.coord, opts.SubscribeTo)
	}
	return s
}

// Start performs the initial load and, when configured, opens the
// change channel. The initial load never fails; at worst the bundled
// snapshot is published.
func (s *Store) Start(ctx context.Context) error {
	s.coord.RequestFetch(ctx, true)
	if s.sub != nil {
		if err := s.sub.start(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Close tears down the subscription and cancels pending refetches.
func (s *Store) Close() error {
	s.coord.Stop()
	if s.sub != nil {
		return s.sub.Close()
	}
	return nil
}

// publish replaces the visible set with a completed load result.
func (s *Store) publish(res loader.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.funds = res.Funds
	s.status = res.Status
	s.reason = res.Reason
	s.loaded = true
	fundCount.Set(float64(len(res.Funds)))
}

// Funds returns the current set in display order.
func (s *Store) Funds() domain.FundSet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.funds.Clone()
}

// Loading reports whether the very first load is still pending.
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.loaded
}

// Status returns the freshness of the current set.
func (s *Store) Status() loader.Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Err returns the advisory degradation reason, empty when fresh. It is
// informational: callers render the set regardless.
func (s *Store) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reason
}

// Refetch forces a full reload, bypassing the recency guard.
func (s *Store) Refetch(ctx context.Context) {
	s.coord.RequestFetch(ctx, true)
}

// Filter returns funds carrying every requested tag whose name,
// description, or manager contains the search text, case-insensitively.
func (s *Store) Filter(tags []domain.Tag, search string) domain.FundSet {
	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := strings.ToLower(strings.TrimSpace(search))
	return lo.Filter(s.funds.Clone(), func(f domain.Fund, _ int) bool {
		for _, tag := range tags {
			if !f.HasTag(tag) {
				return false
			}
		}
		if needle == "" {
			return true
		}
		return strings.Contains(strings.ToLower(f.Name), needle) ||
			strings.Contains(strings.ToLower(f.Description), needle) ||
			strings.Contains(strings.ToLower(f.Manager), needle)
	})
}

// ByID returns the fund with the given id.
func (s *Store) ByID(id string) (domain.Fund, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.funds.ByID(id)
}

// ByManager returns all funds run by the named manager. The comparison
// is case-insensitive, consistent with every other manager-name
// comparison in the system.
func (s *Store) ByManager(name string) domain.FundSet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return lo.Filter(s.funds.Clone(), func(f domain.Fund, _ int) bool {
		return strings.EqualFold(f.Manager, name)
	})
}

// applyRecordEvent performs a single-record update: fetch the changed
// fund, transform it, and splice it into the set. Deletions remove the
// record. Fetch failures are logged and leave the set untouched; a full
// refetch is never triggered from this path.
func (s *Store) applyRecordEvent(ctx context.Context, ev domain.ChangeEvent) {
	if ev.ID == "" {
		return
	}
	if ev.Deleted {
		s.removeFund(ev.ID)
		return
	}

	raw, err := s.records.QueryFundByID(ctx, ev.ID)
	if err != nil {
		if errors.Is(err, source.ErrNotFound) {
			s.removeFund(ev.ID)
			return
		}
		slog.Warn("single-record update failed, keeping current record", "id", ev.ID, "error", err)
		return
	}

	fund := transform.Transform(raw, 0)

	s.mu.Lock()
	defer s.mu.Unlock()
	replaced := false
	for i := range s.funds {
		if s.funds[i].ID == fund.ID {
			s.funds[i] = fund
			replaced = true
			break
		}
	}
	if !replaced {
		s.funds = append(s.funds, fund)
	}
	s.funds.SortForDisplay()
	fundCount.Set(float64(len(s.funds)))
}

func (s *Store) removeFund(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.funds = lo.Filter(s.funds, func(f domain.Fund, _ int) bool {
		return f.ID != id
	})
	fundCount.Set(float64(len(s.funds)))
}
