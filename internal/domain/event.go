package domain

// ChangeKind distinguishes the two push-notification streams.
type ChangeKind string

const (
	// ChangeKindFund signals that one fund record changed upstream.
	ChangeKindFund ChangeKind = "fund"
	// ChangeKindEdit signals that the approved-edit log grew.
	ChangeKindEdit ChangeKind = "edit"
)

// ChangeEvent is one push notification from the record store. ID may be
// empty when the upstream event does not identify a single fund.
type ChangeEvent struct {
	Kind    ChangeKind
	ID      string
	Deleted bool
}
