package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fundweb/fundsync/internal/domain"
)

// fakeChannel is an injectable change-channel transport.
type fakeChannel struct {
	mu      sync.Mutex
	ids     []string
	onEvent func(domain.ChangeEvent)
	opened  bool
	closed  bool
}

func (f *fakeChannel) Open(_ context.Context, ids []string, onEvent func(domain.ChangeEvent)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opened = true
	f.ids = ids
	f.onEvent = onEvent
	return nil
}

func (f *fakeChannel) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeChannel) emit(ev domain.ChangeEvent) {
	f.mu.Lock()
	onEvent := f.onEvent
	f.mu.Unlock()
	if onEvent != nil {
		onEvent(ev)
	}
}

func newSubscribedStore(t *testing.T, subscribeTo []string) (*Store, *mockFetcher, *mockRecords, *fakeChannel) {
	t.Helper()
	fetcher := &mockFetcher{funds: directoryFunds()}
	records := &mockRecords{records: map[string]domain.RawRecord{}}
	channel := &fakeChannel{}
	s := New(fetcher, records, Options{
		Channel:          channel,
		SubscribeTo:      subscribeTo,
		MinFetchInterval: time.Millisecond,
		DebounceWindow:   20 * time.Millisecond,
	})
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return s, fetcher, records, channel
}

func TestTargetedModeSingleRecordUpdateOnly(t *testing.T) {
	s, fetcher, records, channel := newSubscribedStore(t, []string{"f1"})
	records.records["f1"] = domain.RawRecord{ID: "f1", FundName: "Updated", IsVerified: true}

	channel.emit(domain.ChangeEvent{Kind: domain.ChangeKindFund, ID: "f1"})

	if got := records.callCount(); got != 1 {
		t.Errorf("record fetches = %d, want exactly 1", got)
	}
	if f, _ := s.ByID("f1"); f.Name != "Updated" {
		t.Errorf("f1.Name = %q, want Updated", f.Name)
	}

	// No full refetch, even after the debounce window
	time.Sleep(60 * time.Millisecond)
	if got := fetcher.calls.Load(); got != 1 {
		t.Errorf("full loads = %d, want 1 (initial only)", got)
	}
}

func TestGeneralModeKnownIDTakesSingleRecordPath(t *testing.T) {
	_, fetcher, records, channel := newSubscribedStore(t, nil)
	records.records["f2"] = domain.RawRecord{ID: "f2", FundName: "Harbor II"}

	channel.emit(domain.ChangeEvent{Kind: domain.ChangeKindFund, ID: "f2"})

	if got := records.callCount(); got != 1 {
		t.Errorf("record fetches = %d, want 1", got)
	}
	time.Sleep(60 * time.Millisecond)
	if got := fetcher.calls.Load(); got != 1 {
		t.Errorf("full loads = %d, want 1 (no debounced refetch for known id)", got)
	}
}

func TestGeneralModeUnknownIDFallsBackToDebouncedRefetch(t *testing.T) {
	_, fetcher, records, channel := newSubscribedStore(t, nil)

	channel.emit(domain.ChangeEvent{Kind: domain.ChangeKindFund})

	time.Sleep(60 * time.Millisecond)
	if got := fetcher.calls.Load(); got != 2 {
		t.Errorf("full loads = %d, want 2 (initial + debounced)", got)
	}
	if got := records.callCount(); got != 0 {
		t.Errorf("record fetches = %d, want 0", got)
	}
}

func TestGeneralModeEditAppendAlwaysDebounces(t *testing.T) {
	_, fetcher, _, channel := newSubscribedStore(t, nil)

	// A burst of edit-log appends coalesces into one refetch
	for range 20 {
		channel.emit(domain.ChangeEvent{Kind: domain.ChangeKindEdit})
	}

	time.Sleep(80 * time.Millisecond)
	if got := fetcher.calls.Load(); got != 2 {
		t.Errorf("full loads = %d, want 2 (initial + one coalesced)", got)
	}
}

func TestCloseTearsDownChannelAndTimer(t *testing.T) {
	s, fetcher, _, channel := newSubscribedStore(t, nil)

	channel.emit(domain.ChangeEvent{Kind: domain.ChangeKindEdit})
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !channel.closed {
		t.Error("channel should be closed")
	}

	// Pending debounce must not fire after teardown
	time.Sleep(60 * time.Millisecond)
	if got := fetcher.calls.Load(); got != 1 {
		t.Errorf("full loads = %d, want 1 (debounce cancelled by Close)", got)
	}
}

func TestCloseTwiceIsDefinedError(t *testing.T) {
	s, _, _, _ := newSubscribedStore(t, nil)
	if err := s.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := s.Close(); !errors.Is(err, ErrSubscriptionClosed) {
		t.Errorf("second Close = %v, want ErrSubscriptionClosed", err)
	}
}

func TestEventsAfterCloseIgnored(t *testing.T) {
	s, fetcher, records, channel := newSubscribedStore(t, nil)
	s.Close()

	channel.emit(domain.ChangeEvent{Kind: domain.ChangeKindFund, ID: "f1"})
	channel.emit(domain.ChangeEvent{Kind: domain.ChangeKindEdit})

	time.Sleep(60 * time.Millisecond)
	if got := fetcher.calls.Load(); got != 1 {
		t.Errorf("full loads = %d, want 1", got)
	}
	if got := records.callCount(); got != 0 {
		t.Errorf("record fetches = %d, want 0", got)
	}
}
