package labelcache

import (
	"sync"
	"testing"

	"github.com/RoadSpeedAdjuster/extension/internal/units"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countingBuilder(calls *int) Builder[string] {
	return func(kmh int, system units.System) string {
		*calls++
		return units.FormatLabel(kmh, system).Text
	}
}

func TestGetOrBuild_Memoizes(t *testing.T) {
	c := New[string]()
	calls := 0
	build := countingBuilder(&calls)

	assert.Equal(t, "80 km/h", c.GetOrBuild(80, units.Metric, build))
	assert.Equal(t, "80 km/h", c.GetOrBuild(80.4, units.Metric, build))
	assert.Equal(t, 1, calls)

	// rounding moves to the next key
	assert.Equal(t, "81 km/h", c.GetOrBuild(80.5, units.Metric, build))
	assert.Equal(t, 2, calls)

	// same value, other system is a separate entry
	assert.Equal(t, "50 mph", c.GetOrBuild(80, units.Imperial, build))
	assert.Equal(t, 3, calls)
	assert.Equal(t, 3, c.Len())
}

func TestInvalidateAll(t *testing.T) {
	c := New[string]()
	calls := 0
	build := countingBuilder(&calls)

	c.GetOrBuild(50, units.Metric, build)
	require.Equal(t, uint64(0), c.Generation())

	c.InvalidateAll()
	assert.Equal(t, uint64(1), c.Generation())
	assert.Equal(t, 0, c.Len())

	c.GetOrBuild(50, units.Metric, build)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 1, c.Len())
}

func TestStaleEntryIsRebuilt(t *testing.T) {
	c := New[string]()
	calls := 0
	build := countingBuilder(&calls)

	// an entry stored under an old generation, as a builder racing an
	// invalidation would leave behind
	c.entries.Store(Key{Kmh: 60, System: units.Metric}, entry[string]{gen: 0, artifact: "stale"})
	c.gen.Add(1)

	assert.Equal(t, 0, c.Len())
	assert.Equal(t, "60 km/h", c.GetOrBuild(60, units.Metric, build))
	assert.Equal(t, 1, calls)
}

func TestLabels(t *testing.T) {
	l := NewLabels()

	label := l.Label(96.56, units.Imperial)
	assert.Equal(t, 97, label.Kmh)
	assert.Equal(t, units.Imperial, label.System)
	assert.Equal(t, "60 mph", label.Text)
	assert.Equal(t, 1, l.Len())
}

func TestConcurrentAccess(t *testing.T) {
	c := New[string]()
	build := func(kmh int, system units.System) string {
		return units.FormatLabel(kmh, system).Text
	}

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for v := range 50 {
				got := c.GetOrBuild(float64(v), units.Metric, build)
				assert.Equal(t, units.FormatLabel(v, units.Metric).Text, got)
				if i == 0 && v%10 == 0 {
					c.InvalidateAll()
				}
			}
		}(i)
	}
	wg.Wait()
}
