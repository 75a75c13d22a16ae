// Package overlay replays approved edit events on top of a base fund set.
package overlay

import (
	"sort"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/fundweb/fundsync/internal/domain"
)

// fieldAliases maps every accepted spelling of an editable field to its
// canonical name. Edits arrive in a superset of spellings because the
// approval tooling stores whichever shape the editor submitted.
var fieldAliases = map[string]string{
	"name":            "name",
	"fund_name":       "name",
	"fundName":        "name",
	"slug":            "slug",
	"manager":         "manager",
	"manager_name":    "manager",
	"managerName":     "manager",
	"description":     "description",
	"strategy":        "strategy",
	"managementFee":   "managementFee",
	"management_fee":  "managementFee",
	"performanceFee":  "performanceFee",
	"performance_fee": "performanceFee",
	"minInvestment":   "minInvestment",
	"min_investment":  "minInvestment",
	"aum":             "aum",
	"aum_usd":         "aum",
	"currency":        "currency",
	"website":         "website",
	"website_url":     "website",
	"isVerified":      "isVerified",
	"is_verified":     "isVerified",
	"verified":        "isVerified",
	"finalRank":       "finalRank",
	"final_rank":      "finalRank",
}

// Apply replays edits over base and returns a new set. The base is never
// mutated and the set of ids never changes: edits targeting unknown funds
// are dropped silently. Events are applied in ascending AppliedAt order
// (stable for equal timestamps) so later events win per field. Within one
// event, change keys are applied in sorted order, which makes alias
// collisions deterministic: the lexicographically last spelling wins.
func Apply(base domain.FundSet, edits []domain.EditEvent) domain.FundSet {
	if len(edits) == 0 {
		return base.Clone()
	}

	ordered := make([]domain.EditEvent, len(edits))
	copy(ordered, edits)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].AppliedAt.Before(ordered[j].AppliedAt)
	})

	out := base.Clone()
	index := lo.SliceToMap(lo.Range(len(out)), func(i int) (string, int) {
		return out[i].ID, i
	})

	for _, ev := range ordered {
		i, ok := index[ev.TargetID]
		if !ok {
			continue
		}
		keys := lo.Keys(ev.Changes)
		sort.Strings(keys)
		for _, key := range keys {
			canonical, known := fieldAliases[key]
			if !known {
				continue
			}
			applyField(&out[i], canonical, ev.Changes[key])
		}
	}

	return out
}

// applyField sets one canonical field if the value has the expected
// type; mismatched values are ignored, never coerced.
func applyField(f *domain.Fund, field string, value any) {
	switch field {
	case "name":
		setString(&f.Name, value)
	case "slug":
		setString(&f.Slug, value)
	case "manager":
		setString(&f.Manager, value)
	case "description":
		setString(&f.Description, value)
	case "strategy":
		setString(&f.Strategy, value)
	case "currency":
		setString(&f.Currency, value)
	case "website":
		setString(&f.Website, value)
	case "managementFee":
		setDecimal(&f.ManagementFee, value)
	case "performanceFee":
		setDecimal(&f.PerformanceFee, value)
	case "minInvestment":
		setDecimal(&f.MinInvestment, value)
	case "aum":
		if d, ok := asDecimal(value); ok {
			f.AUM = &d
		}
	case "isVerified":
		if b, ok := value.(bool); ok {
			f.IsVerified = b
		}
	case "finalRank":
		if n, ok := asInt(value); ok {
			f.FinalRank = n
		}
	}
}

func setString(dst *string, value any) {
	if s, ok := value.(string); ok {
		*dst = s
	}
}

func setDecimal(dst *decimal.Decimal, value any) {
	if d, ok := asDecimal(value); ok {
		*dst = d
	}
}

func asDecimal(value any) (decimal.Decimal, bool) {
	switch v := value.(type) {
	case float64:
		return decimal.NewFromFloat(v), true
	case int:
		return decimal.NewFromInt(int64(v)), true
	case int64:
		return decimal.NewFromInt(v), true
	default:
		return decimal.Decimal{}, false
	}
}

func asInt(value any) (int, bool) {
	switch v := value.(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case int64:
		return int(v), true
	default:
		return 0, false
	}
}
