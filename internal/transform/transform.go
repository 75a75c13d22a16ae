package transform

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fundweb/fundsync/internal/domain"
)

// ReturnNotSpecified is the sentinel shown when a fund declares no
// return target at all.
const ReturnNotSpecified = "Not specified"

// Transform maps a backend record into the canonical Fund shape.
// It is total: missing numerics resolve to zero or nil (never NaN),
// missing timestamps fall back to now, and malformed nested structures
// degrade to nil instead of failing the record.
func Transform(raw domain.RawRecord, rank int) domain.Fund {
	now := time.Now().UTC()

	f := domain.Fund{
		ID:             raw.ID,
		Name:           raw.FundName,
		Slug:           raw.Slug,
		Manager:        raw.ManagerName,
		Description:    raw.Description,
		Strategy:       raw.Strategy,
		ReturnMin:      decimalPtr(raw.ReturnMin),
		ReturnMax:      decimalPtr(raw.ReturnMax),
		ManagementFee:  decimalOrZero(raw.ManagementFee),
		PerformanceFee: decimalOrZero(raw.PerformanceFee),
		MinInvestment:  decimalOrZero(raw.MinInvestment),
		AUM:            decimalPtr(raw.AUM),
		Currency:       raw.Currency,
		Website:        raw.Website,
		IsVerified:     raw.IsVerified,
		FinalRank:      resolveRank(raw, rank),
		CreatedAt:      timeOrNow(raw.CreatedAt, now),
		UpdatedAt:      timeOrNow(raw.UpdatedAt, now),
	}

	f.ReturnTarget = deriveReturnTarget(f.ReturnMin, f.ReturnMax)
	f.Tags = parseTags(raw.Tags)
	f.Team = parseArray[domain.TeamMember](raw.Team)
	f.Documents = parseArray[domain.Document](raw.Documents)
	f.GeoAllocation = parseGeoAllocation(raw.GeoAllocation)

	return f
}

// resolveRank prefers the explicitly supplied rank, then the nested
// ranking sub-object, then the unranked sentinel.
func resolveRank(raw domain.RawRecord, rank int) int {
	if rank > 0 {
		return rank
	}
	if raw.Ranking != nil && raw.Ranking.FinalRank != nil && *raw.Ranking.FinalRank > 0 {
		return *raw.Ranking.FinalRank
	}
	return domain.RankUnranked
}

// deriveReturnTarget renders a human-readable target from min/max:
// equal values collapse to one, both present form a range, a single
// bound stands alone, neither yields the "not specified" sentinel.
func deriveReturnTarget(min, max *decimal.Decimal) string {
	switch {
	case min != nil && max != nil && min.Equal(*max):
		return fmt.Sprintf("%s%%", min.String())
	case min != nil && max != nil:
		return fmt.Sprintf("%s–%s%%", min.String(), max.String())
	case min != nil:
		return fmt.Sprintf("%s%%", min.String())
	case max != nil:
		return fmt.Sprintf("%s%%", max.String())
	default:
		return ReturnNotSpecified
	}
}

func decimalPtr(v *float64) *decimal.Decimal {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return nil
	}
	d := decimal.NewFromFloat(*v)
	return &d
}

func decimalOrZero(v *float64) decimal.Decimal {
	if d := decimalPtr(v); d != nil {
		return *d
	}
	return decimal.Zero
}

func timeOrNow(t *time.Time, now time.Time) time.Time {
	if t == nil || t.IsZero() {
		return now
	}
	return *t
}

// parseTags accepts only a JSON array of strings; anything else
// (object, scalar, malformed bytes) degrades to nil.
func parseTags(raw json.RawMessage) []domain.Tag {
	if !looksLikeArray(raw) {
		return nil
	}
	var names []string
	if err := json.Unmarshal(raw, &names); err != nil {
		return nil
	}
	tags := make([]domain.Tag, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n != "" {
			tags = append(tags, domain.Tag(n))
		}
	}
	if len(tags) == 0 {
		return nil
	}
	return tags
}

// parseArray decodes a JSON array of T, returning nil on any shape
// mismatch.
func parseArray[T any](raw json.RawMessage) []T {
	if !looksLikeArray(raw) {
		return nil
	}
	var out []T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// parseGeoAllocation decodes a JSON object of region -> weight,
// dropping entries whose weight is not a finite number.
func parseGeoAllocation(raw json.RawMessage) map[string]float64 {
	if !looksLikeObject(raw) {
		return nil
	}
	var m map[string]float64
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	for k, v := range m {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			delete(m, k)
		}
	}
	if len(m) == 0 {
		return nil
	}
	return m
}

func looksLikeArray(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	return strings.HasPrefix(s, "[")
}

func looksLikeObject(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	return strings.HasPrefix(s, "{")
}
