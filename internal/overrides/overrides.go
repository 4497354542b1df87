// Package overrides keeps, per segment, the speed observed before the first
// override and the speed currently applied, and writes every change through
// to a Persister.
package overrides

import (
	"context"
	"errors"
	"time"

	"github.com/RoadSpeedAdjuster/extension/internal/network"
)

// TableVersion is the persisted table format version.
const TableVersion = 1

var (
	// ErrNotCaptured is returned by SetCurrent for a segment with no record.
	ErrNotCaptured = errors.New("no original speed captured for segment")
	// ErrStorageUnavailable wraps persistence failures. The in-memory state
	// keeps the mutation.
	ErrStorageUnavailable = errors.New("override storage unavailable")
)

// Record is the override state of one segment. Values are km/h.
type Record struct {
	SegmentID     network.SegmentID `json:"segmentId"`
	OriginalValue float64           `json:"originalValue"`
	CurrentValue  float64           `json:"currentValue"`
	LastModified  time.Time         `json:"lastModified"`
}

// Table is the persisted form of one scope's records.
type Table struct {
	Scope     string    `json:"scope"`
	Version   int       `json:"version"`
	LastSaved time.Time `json:"lastSaved"`
	Records   []Record  `json:"records"`
}

// Persister loads and saves tables. Load of an unknown scope returns an
// empty table and no error.
type Persister interface {
	Load(ctx context.Context, scope string) (Table, error)
	Save(ctx context.Context, table Table) error
	Close() error
}

// Lister is implemented by persisters that can enumerate stored scopes.
type Lister interface {
	Scopes(ctx context.Context) ([]string, error)
}

// Deleter is implemented by persisters that can drop a scope entirely.
type Deleter interface {
	Delete(ctx context.Context, scope string) error
}
