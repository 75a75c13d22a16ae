package domain

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// RankUnranked is the sentinel rank for funds without a curated ranking.
// It sorts after every real rank.
const RankUnranked = 999

// Tag is a fund category label (e.g. "crypto", "real-estate").
type Tag string

// TeamMember is one member of a fund's management team.
type TeamMember struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

// Document is a downloadable fund document (prospectus, factsheet).
type Document struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Fund is the canonical fund entity served to the directory.
type Fund struct {
	ID             string             `json:"id"`
	Name           string             `json:"name"`
	Slug           string             `json:"slug"`
	Manager        string             `json:"manager"`
	Description    string             `json:"description"`
	Strategy       string             `json:"strategy"`
	ReturnTarget   string             `json:"returnTarget"`
	ReturnMin      *decimal.Decimal   `json:"returnMin,omitempty"`
	ReturnMax      *decimal.Decimal   `json:"returnMax,omitempty"`
	ManagementFee  decimal.Decimal    `json:"managementFee"`
	PerformanceFee decimal.Decimal    `json:"performanceFee"`
	MinInvestment  decimal.Decimal    `json:"minInvestment"`
	AUM            *decimal.Decimal   `json:"aum,omitempty"`
	Currency       string             `json:"currency"`
	Tags           []Tag              `json:"tags"`
	Team           []TeamMember       `json:"team,omitempty"`
	Documents      []Document         `json:"documents,omitempty"`
	GeoAllocation  map[string]float64 `json:"geoAllocation,omitempty"`
	Website        string             `json:"website,omitempty"`
	IsVerified     bool               `json:"isVerified"`
	FinalRank      int                `json:"finalRank"`
	CreatedAt      time.Time          `json:"createdAt"`
	UpdatedAt      time.Time          `json:"updatedAt"`
}

// HasTag reports whether the fund carries the given tag.
func (f Fund) HasTag(tag Tag) bool {
	for _, t := range f.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// FundSet is the current collection of funds. IDs are unique; display
// ordering is derived, never stored.
type FundSet []Fund

// SortForDisplay orders the set in place: verified funds first, then
// ascending FinalRank within each group. RankUnranked sorts last.
func (s FundSet) SortForDisplay() {
	sort.SliceStable(s, func(i, j int) bool {
		if s[i].IsVerified != s[j].IsVerified {
			return s[i].IsVerified
		}
		return s[i].FinalRank < s[j].FinalRank
	})
}

// ByID returns the fund with the given id, if present.
func (s FundSet) ByID(id string) (Fund, bool) {
	for _, f := range s {
		if f.ID == id {
			return f, true
		}
	}
	return Fund{}, false
}

// IDs returns the ids of the set in iteration order.
func (s FundSet) IDs() []string {
	ids := make([]string, 0, len(s))
	for _, f := range s {
		ids = append(ids, f.ID)
	}
	return ids
}

// Clone returns a copy of the set sharing no top-level slice with the input.
func (s FundSet) Clone() FundSet {
	if s == nil {
		return nil
	}
	out := make(FundSet, len(s))
	copy(out, s)
	return out
}
