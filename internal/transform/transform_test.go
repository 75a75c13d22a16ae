package transform

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/fundweb/fundsync/internal/domain"
)

func f64(v float64) *float64 { return &v }

func TestTransformMissingNumericsNeverNaN(t *testing.T) {
	fund := Transform(domain.RawRecord{ID: "f1"}, 0)

	if fund.ManagementFee.String() != "0" {
		t.Errorf("ManagementFee = %s, want 0", fund.ManagementFee)
	}
	if fund.PerformanceFee.String() != "0" {
		t.Errorf("PerformanceFee = %s, want 0", fund.PerformanceFee)
	}
	if fund.AUM != nil {
		t.Errorf("AUM = %v, want nil", fund.AUM)
	}
	if fund.ReturnMin != nil || fund.ReturnMax != nil {
		t.Error("return bounds should be nil when absent")
	}
}

func TestTransformNaNInputDegradesToMissing(t *testing.T) {
	nan := math.NaN()
	inf := math.Inf(1)
	fund := Transform(domain.RawRecord{ID: "f1", ManagementFee: &nan, AUM: &inf}, 0)

	if fund.ManagementFee.String() != "0" {
		t.Errorf("ManagementFee = %s, want 0 for NaN input", fund.ManagementFee)
	}
	if fund.AUM != nil {
		t.Error("AUM should be nil for infinite input")
	}
}

func TestTransformReturnTarget(t *testing.T) {
	tests := []struct {
		name     string
		min, max *float64
		want     string
	}{
		{"both equal", f64(8), f64(8), "8%"},
		{"range", f64(5), f64(12), "5–12%"},
		{"min only", f64(5), nil, "5%"},
		{"max only", nil, f64(12), "12%"},
		{"neither", nil, nil, ReturnNotSpecified},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fund := Transform(domain.RawRecord{ID: "f1", ReturnMin: tt.min, ReturnMax: tt.max}, 0)
			if fund.ReturnTarget != tt.want {
				t.Errorf("ReturnTarget = %q, want %q", fund.ReturnTarget, tt.want)
			}
		})
	}
}

func TestTransformRankResolution(t *testing.T) {
	nested := 7
	raw := domain.RawRecord{ID: "f1", Ranking: &domain.RawRanking{FinalRank: &nested}}

	if got := Transform(raw, 3).FinalRank; got != 3 {
		t.Errorf("explicit rank: FinalRank = %d, want 3", got)
	}
	if got := Transform(raw, 0).FinalRank; got != 7 {
		t.Errorf("nested rank: FinalRank = %d, want 7", got)
	}
	if got := Transform(domain.RawRecord{ID: "f1"}, 0).FinalRank; got != domain.RankUnranked {
		t.Errorf("no rank: FinalRank = %d, want %d", got, domain.RankUnranked)
	}
}

func TestTransformMalformedNestedShapes(t *testing.T) {
	raw := domain.RawRecord{
		ID:            "f1",
		Tags:          json.RawMessage(`{"not":"an array"}`),
		Team:          json.RawMessage(`"scalar"`),
		Documents:     json.RawMessage(`[{"title":1}`), // truncated
		GeoAllocation: json.RawMessage(`[1,2,3]`),
	}
	fund := Transform(raw, 0)

	if fund.Tags != nil {
		t.Errorf("Tags = %v, want nil for object-shaped input", fund.Tags)
	}
	if fund.Team != nil {
		t.Errorf("Team = %v, want nil for scalar input", fund.Team)
	}
	if fund.Documents != nil {
		t.Errorf("Documents = %v, want nil for truncated input", fund.Documents)
	}
	if fund.GeoAllocation != nil {
		t.Errorf("GeoAllocation = %v, want nil for array-shaped input", fund.GeoAllocation)
	}
}

func TestTransformWellFormedNested(t *testing.T) {
	raw := domain.RawRecord{
		ID:            "f1",
		Tags:          json.RawMessage(`["crypto"," defi ",""]`),
		Team:          json.RawMessage(`[{"name":"Ada","role":"CIO"}]`),
		GeoAllocation: json.RawMessage(`{"EU":0.6,"US":0.4}`),
	}
	fund := Transform(raw, 0)

	if len(fund.Tags) != 2 || fund.Tags[0] != "crypto" || fund.Tags[1] != "defi" {
		t.Errorf("Tags = %v, want [crypto defi]", fund.Tags)
	}
	if len(fund.Team) != 1 || fund.Team[0].Name != "Ada" {
		t.Errorf("Team = %v", fund.Team)
	}
	if fund.GeoAllocation["EU"] != 0.6 {
		t.Errorf("GeoAllocation = %v", fund.GeoAllocation)
	}
}

func TestTransformMissingDatesFallBackToNow(t *testing.T) {
	before := time.Now().UTC().Add(-time.Second)
	fund := Transform(domain.RawRecord{ID: "f1"}, 0)
	after := time.Now().UTC().Add(time.Second)

	if fund.CreatedAt.Before(before) || fund.CreatedAt.After(after) {
		t.Errorf("CreatedAt = %v, want within [%v, %v]", fund.CreatedAt, before, after)
	}
	if fund.UpdatedAt.Before(before) || fund.UpdatedAt.After(after) {
		t.Errorf("UpdatedAt = %v, want within [%v, %v]", fund.UpdatedAt, before, after)
	}
}

func TestTransformKeepsProvidedDates(t *testing.T) {
	ts := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	fund := Transform(domain.RawRecord{ID: "f1", CreatedAt: &ts, UpdatedAt: &ts}, 0)
	if !fund.CreatedAt.Equal(ts) || !fund.UpdatedAt.Equal(ts) {
		t.Errorf("dates = %v/%v, want %v", fund.CreatedAt, fund.UpdatedAt, ts)
	}
}
