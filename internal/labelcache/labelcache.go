// Package labelcache memoizes display artifacts (rendered speed labels) per
// rounded km/h value and unit system.
//
// Invalidation bumps a generation counter. Entries remember the generation
// they were built in, and a lookup that finds an older entry rebuilds it, so
// a reader racing an invalidation never keeps serving a stale artifact once
// it has observed the new generation.
package labelcache

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/RoadSpeedAdjuster/extension/internal/units"
)

// Key identifies a cached artifact.
type Key struct {
	Kmh    int
	System units.System
}

type entry[A any] struct {
	gen      uint64
	artifact A
}

// Builder renders the artifact for a rounded km/h value in a unit system.
type Builder[A any] func(kmh int, system units.System) A

// Cache is safe for concurrent use. Reads do not take a lock.
type Cache[A any] struct {
	entries sync.Map // Key -> entry[A]
	gen     atomic.Uint64
}

// New creates an empty cache.
func New[A any]() *Cache[A] {
	return &Cache[A]{}
}

// GetOrBuild returns the artifact for kmh rounded to the nearest integer,
// building it with build on a miss or a stale hit.
func (c *Cache[A]) GetOrBuild(kmh float64, system units.System, build Builder[A]) A {
	key := Key{Kmh: int(math.Round(kmh)), System: system}
	gen := c.gen.Load()

	if v, ok := c.entries.Load(key); ok {
		if e := v.(entry[A]); e.gen == gen {
			return e.artifact
		}
	}

	artifact := build(key.Kmh, key.System)
	c.entries.Store(key, entry[A]{gen: gen, artifact: artifact})
	return artifact
}

// InvalidateAll marks every entry stale and drops them.
func (c *Cache[A]) InvalidateAll() {
	c.gen.Add(1)
	c.entries.Clear()
}

// Generation returns the current generation.
func (c *Cache[A]) Generation() uint64 {
	return c.gen.Load()
}

// Len counts entries of the current generation.
func (c *Cache[A]) Len() int {
	gen := c.gen.Load()
	n := 0
	c.entries.Range(func(_, v any) bool {
		if v.(entry[A]).gen == gen {
			n++
		}
		return true
	})
	return n
}

// Labels is the cache the tool uses for panel and overlay text.
type Labels struct {
	*Cache[units.Label]
}

// NewLabels creates a label cache.
func NewLabels() Labels {
	return Labels{New[units.Label]()}
}

// Label returns the formatted label for kmh in system.
func (c Labels) Label(kmh float64, system units.System) units.Label {
	return c.GetOrBuild(kmh, system, units.FormatLabel)
}
