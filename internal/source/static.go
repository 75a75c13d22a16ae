package source

import (
	_ "embed"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/fundweb/fundsync/internal/domain"
)

//go:embed snapshot.json
var snapshotJSON []byte

// Static serves the snapshot bundled into the binary, the tier of last
// resort when both remote tiers fail.
type Static struct {
	once    sync.Once
	records []domain.RawRecord
}

// NewStatic creates the static snapshot source.
func NewStatic() *Static {
	return &Static{}
}

// Funds returns the bundled records. The snapshot is parsed once; a
// malformed bundle logs an error and yields an empty set rather than
// failing the caller.
func (s *Static) Funds() []domain.RawRecord {
	s.once.Do(func() {
		var parsed fundsResponse
		if err := json.Unmarshal(snapshotJSON, &parsed); err != nil {
			slog.Error("static snapshot is malformed", "error", err)
			return
		}
		s.records = parsed.Records
	})
	return s.records
}
