package domain

import "time"

// EditEvent is one approved, already-validated change to a single fund.
// Changes is a loosely-typed bag keyed by field name; both canonical and
// backend spellings may appear and are normalized before application.
type EditEvent struct {
	TargetID  string         `json:"target_id"`
	Changes   map[string]any `json:"changes"`
	AppliedAt time.Time      `json:"applied_at"`
}
