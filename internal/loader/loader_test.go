package loader

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/fundweb/fundsync/internal/domain"
	"github.com/fundweb/fundsync/internal/source"
)

type mockPrimary struct {
	records []domain.RawRecord
	edits   []domain.EditEvent
	err     error
	editErr error
	calls   int
}

func (m *mockPrimary) QueryAllFunds(_ context.Context) ([]domain.RawRecord, error) {
	m.calls++
	return m.records, m.err
}

func (m *mockPrimary) QueryEditLog(_ context.Context) ([]domain.EditEvent, error) {
	return m.edits, m.editErr
}

type mockSecondary struct {
	records []domain.RawRecord
	ranks   map[string]int
	err     error
	rankErr error
	calls   int
}

func (m *mockSecondary) QueryFunds(_ context.Context) ([]domain.RawRecord, error) {
	m.calls++
	return m.records, m.err
}

func (m *mockSecondary) QueryRanks(_ context.Context) (map[string]int, error) {
	if m.rankErr != nil {
		return nil, m.rankErr
	}
	return m.ranks, nil
}

type mockStatic struct {
	records []domain.RawRecord
	calls   int
}

func (m *mockStatic) Funds() []domain.RawRecord {
	m.calls++
	return m.records
}

func rawFund(id, name string) domain.RawRecord {
	return domain.RawRecord{ID: id, FundName: name}
}

func rankedRawFund(id, name string, rank int) domain.RawRecord {
	return domain.RawRecord{ID: id, FundName: name, Ranking: &domain.RawRanking{FinalRank: &rank}}
}

func TestLoadPrimaryFresh(t *testing.T) {
	primary := &mockPrimary{
		records: []domain.RawRecord{rankedRawFund("f1", "Alpha", 2), rankedRawFund("f2", "Beta", 1)},
		edits: []domain.EditEvent{
			{TargetID: "f1", Changes: map[string]any{"name": "Alpha Prime"}, AppliedAt: time.Now()},
		},
	}
	secondary := &mockSecondary{}
	static := &mockStatic{}

	res := New(primary, secondary, static, time.Second).Load(context.Background())

	if res.Status != StatusFresh {
		t.Errorf("Status = %s, want fresh", res.Status)
	}
	if len(res.Funds) != 2 {
		t.Fatalf("len(Funds) = %d, want 2", len(res.Funds))
	}
	if f, _ := res.Funds.ByID("f1"); f.Name != "Alpha Prime" {
		t.Errorf("edit not merged: f1.Name = %q", f.Name)
	}
	// Sorted by rank
	if res.Funds[0].ID != "f2" {
		t.Errorf("first fund = %s, want f2 (rank 1)", res.Funds[0].ID)
	}
	if secondary.calls != 0 || static.calls != 0 {
		t.Error("fallback tiers should not be touched on primary success")
	}
}

func TestLoadAuthorizationFailureFallsToSecondary(t *testing.T) {
	primary := &mockPrimary{err: fmt.Errorf("query: %w", source.ErrUnauthorized)}
	secondary := &mockSecondary{
		records: []domain.RawRecord{
			{ID: "f1", FundName: "Alpha", IsVerified: true},
			{ID: "f2", FundName: "Beta"},
		},
		rankErr: errors.New("rank endpoint down"),
	}
	static := &mockStatic{records: []domain.RawRecord{rawFund("fs", "Snapshot")}}

	res := New(primary, secondary, static, time.Second).Load(context.Background())

	if res.Status != StatusDegraded {
		t.Errorf("Status = %s, want degraded", res.Status)
	}
	if len(res.Funds) != 2 {
		t.Fatalf("len(Funds) = %d, want 2", len(res.Funds))
	}
	for _, f := range res.Funds {
		if f.FinalRank != domain.RankUnranked {
			t.Errorf("%s.FinalRank = %d, want %d (rank lookup failed)", f.ID, f.FinalRank, domain.RankUnranked)
		}
	}
	// Verified fund sorts first, then insertion order within equal rank
	if res.Funds[0].ID != "f1" || res.Funds[1].ID != "f2" {
		t.Errorf("order = %v, want [f1 f2]", res.Funds.IDs())
	}
	if static.calls != 0 {
		t.Error("static tier should not be touched when secondary succeeds")
	}
}

func TestLoadSecondaryRanksApplied(t *testing.T) {
	primary := &mockPrimary{err: errors.New("connection refused")}
	secondary := &mockSecondary{
		records: []domain.RawRecord{rawFund("f1", "Alpha")},
		ranks:   map[string]int{"f1": 4},
	}
	static := &mockStatic{}

	res := New(primary, secondary, static, time.Second).Load(context.Background())
	if f, _ := res.Funds.ByID("f1"); f.FinalRank != 4 {
		t.Errorf("f1.FinalRank = %d, want 4", f.FinalRank)
	}
}

func TestLoadAllRemoteTiersFailServesSnapshot(t *testing.T) {
	primary := &mockPrimary{
		err: errors.New("connection refused"),
		edits: []domain.EditEvent{
			{TargetID: "fs", Changes: map[string]any{"name": "Snapshot Edited"}, AppliedAt: time.Now()},
		},
	}
	secondary := &mockSecondary{err: errors.New("gateway timeout")}
	static := &mockStatic{records: []domain.RawRecord{rawFund("fs", "Snapshot")}}

	res := New(primary, secondary, static, time.Second).Load(context.Background())

	if primary.calls != 1 || secondary.calls != 1 || static.calls != 1 {
		t.Errorf("tier calls = %d/%d/%d, want 1/1/1", primary.calls, secondary.calls, static.calls)
	}
	if res.Status != StatusStale {
		t.Errorf("Status = %s, want stale", res.Status)
	}
	if f, _ := res.Funds.ByID("fs"); f.Name != "Snapshot Edited" {
		t.Errorf("surviving edit log not merged over snapshot: %q", f.Name)
	}
}

func TestLoadEmptyPrimaryServesSnapshot(t *testing.T) {
	primary := &mockPrimary{records: nil}
	secondary := &mockSecondary{}
	static := &mockStatic{records: []domain.RawRecord{rawFund("fs", "Snapshot")}}

	res := New(primary, secondary, static, time.Second).Load(context.Background())

	if res.Status != StatusStale {
		t.Errorf("Status = %s, want stale", res.Status)
	}
	if secondary.calls != 0 {
		t.Error("secondary should be skipped for an empty (not failed) primary")
	}
	if len(res.Funds) != 1 {
		t.Errorf("len(Funds) = %d, want 1 snapshot fund", len(res.Funds))
	}
}

func TestLoadEditLogFailureIsNonFatal(t *testing.T) {
	primary := &mockPrimary{
		records: []domain.RawRecord{rawFund("f1", "Alpha")},
		editErr: errors.New("edit log offline"),
	}
	res := New(primary, &mockSecondary{}, &mockStatic{}, time.Second).Load(context.Background())

	if len(res.Funds) != 1 {
		t.Fatalf("len(Funds) = %d, want 1", len(res.Funds))
	}
	if res.Status != StatusDegraded {
		t.Errorf("Status = %s, want degraded when overlay is missing", res.Status)
	}
	if res.Reason == "" {
		t.Error("Reason should mention the missing edit log")
	}
}

func TestLoadNeverReturnsNilFundsOnTotalFailure(t *testing.T) {
	primary := &mockPrimary{err: errors.New("down"), editErr: errors.New("down")}
	secondary := &mockSecondary{err: errors.New("down")}
	static := &mockStatic{}

	res := New(primary, secondary, static, time.Second).Load(context.Background())
	if res.Status != StatusStale {
		t.Errorf("Status = %s, want stale", res.Status)
	}
	if res.Funds == nil {
		// Empty is acceptable; the contract is "always resolve".
		t.Log("empty snapshot yields empty set")
	}
}

func TestLoadSortInvariant(t *testing.T) {
	primary := &mockPrimary{records: []domain.RawRecord{
		{ID: "u2", FundName: "U2", Ranking: &domain.RawRanking{FinalRank: intPtr(9)}},
		{ID: "v2", FundName: "V2", IsVerified: true, Ranking: &domain.RawRanking{FinalRank: intPtr(8)}},
		{ID: "u1", FundName: "U1", Ranking: &domain.RawRanking{FinalRank: intPtr(3)}},
		{ID: "v1", FundName: "V1", IsVerified: true, Ranking: &domain.RawRanking{FinalRank: intPtr(2)}},
	}}

	res := New(primary, &mockSecondary{}, &mockStatic{}, time.Second).Load(context.Background())

	want := []string{"v1", "v2", "u1", "u2"}
	for i, id := range want {
		if res.Funds[i].ID != id {
			t.Errorf("position %d = %s, want %s", i, res.Funds[i].ID, id)
		}
	}
}

func intPtr(n int) *int { return &n }
