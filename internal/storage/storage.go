// Package storage selects the persistence backend for override tables.
package storage

import "github.com/RoadSpeedAdjuster/extension/internal/overrides"

// Backend is satisfied by every persistence implementation. Besides loading
// and saving tables it can enumerate and drop scopes, which the offline CLI
// relies on.
type Backend interface {
	overrides.Persister
	overrides.Lister
	overrides.Deleter
}
