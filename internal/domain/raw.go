package domain

import (
	"encoding/json"
	"time"
)

// RawRanking is the nested ranking sub-object as the backend stores it.
type RawRanking struct {
	FinalRank *int `json:"final_rank"`
}

// RawRecord is the backend's representation of a fund before
// canonicalization. Field names follow the remote store's snake_case
// schema; nested JSON columns arrive unparsed and may be malformed.
type RawRecord struct {
	ID             string          `json:"id"`
	FundName       string          `json:"fund_name"`
	Slug           string          `json:"slug"`
	ManagerName    string          `json:"manager_name"`
	Description    string          `json:"description"`
	Strategy       string          `json:"strategy"`
	ReturnMin      *float64        `json:"return_target_min"`
	ReturnMax      *float64        `json:"return_target_max"`
	ManagementFee  *float64        `json:"management_fee"`
	PerformanceFee *float64        `json:"performance_fee"`
	MinInvestment  *float64        `json:"min_investment"`
	AUM            *float64        `json:"aum_usd"`
	Currency       string          `json:"currency"`
	Tags           json.RawMessage `json:"tags"`
	Team           json.RawMessage `json:"team"`
	Documents      json.RawMessage `json:"documents"`
	GeoAllocation  json.RawMessage `json:"geo_allocation"`
	Website        string          `json:"website_url"`
	IsVerified     bool            `json:"is_verified"`
	Ranking        *RawRanking     `json:"ranking"`
	CreatedAt      *time.Time      `json:"created_at"`
	UpdatedAt      *time.Time      `json:"updated_at"`
}
