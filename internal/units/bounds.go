package units

import (
	"fmt"
	"math"
)

// Kind selects the speed bounds of a segment.
type Kind int

const (
	KindRoad Kind = iota
	KindTrack
)

func (k Kind) String() string {
	if k == KindTrack {
		return "track"
	}
	return "road"
}

// Range is an inclusive display-value interval.
type Range struct {
	Min float64
	Max float64
}

// Clamp limits v to the range.
func (r Range) Clamp(v float64) float64 {
	return math.Min(math.Max(v, r.Min), r.Max)
}

// Contains reports whether v lies inside the range.
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

var bounds = map[Kind]map[System]Range{
	KindRoad: {
		Metric:   {Min: 5, Max: 140},
		Imperial: {Min: 5, Max: 85},
	},
	KindTrack: {
		Metric:   {Min: 5, Max: 240},
		Imperial: {Min: 5, Max: 150},
	},
}

// Bounds returns the allowed display range for a segment kind.
func Bounds(k Kind, s System) Range {
	if byKind, ok := bounds[k]; ok {
		return byKind[s]
	}
	return bounds[KindRoad][s]
}

// Label is the rendered speed text for one rounded km/h value.
type Label struct {
	Kmh    int
	System System
	Text   string
}

// FormatLabel renders a km/h value as "80 km/h" or "50 mph".
func FormatLabel(kmh int, s System) Label {
	value := kmh
	if s == Imperial {
		value = int(math.Round(float64(kmh) * KmhToMph))
	}
	return Label{
		Kmh:    kmh,
		System: s,
		Text:   fmt.Sprintf("%d %s", value, s.Suffix()),
	}
}
