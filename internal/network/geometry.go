package network

import (
	"encoding/json"
	"fmt"
	"math"

	geom "github.com/peterstace/simplefeatures/geom"
)

// Position is a point in host world space. Y is height.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// ParsePath parses a JSON array of world positions into a line string on the
// ground plane, with height carried as the Z ordinate.
// Input format: "[[x1,y1,z1],[x2,y2,z2],...]"
func ParsePath(input string) (geom.LineString, error) {
	var coords [][]float64
	if err := json.Unmarshal([]byte(input), &coords); err != nil {
		return geom.LineString{}, fmt.Errorf("failed to parse path JSON: %w", err)
	}

	if len(coords) < 2 {
		return geom.LineString{}, fmt.Errorf("path must have at least 2 points, got %d", len(coords))
	}

	flat := make([]float64, 0, len(coords)*3)
	for i, c := range coords {
		if len(c) < 3 {
			return geom.LineString{}, fmt.Errorf("position %d has insufficient values", i)
		}
		// ground plane is (x, z); host height goes to the Z ordinate
		flat = append(flat, c[0], c[2], c[1])
	}

	seq := geom.NewSequence(flat, geom.DimXYZ)
	ls, err := geom.NewLineString(seq)
	if err != nil {
		return geom.LineString{}, fmt.Errorf("invalid path: %w", err)
	}
	return ls, nil
}

// Midpoint walks the path and returns the point halfway along its ground
// length.
func Midpoint(path geom.LineString) (Position, bool) {
	seq := path.Coordinates()
	n := seq.Length()
	if n == 0 {
		return Position{}, false
	}
	if n == 1 {
		return toPosition(seq.Get(0).XY, seq.Get(0).Z), true
	}

	total := 0.0
	for i := 1; i < n; i++ {
		total += dist(seq.Get(i-1).XY, seq.Get(i).XY)
	}
	half := total / 2

	walked := 0.0
	for i := 1; i < n; i++ {
		a, b := seq.Get(i-1), seq.Get(i)
		d := dist(a.XY, b.XY)
		if walked+d >= half && d > 0 {
			t := (half - walked) / d
			xy := geom.XY{
				X: a.XY.X + (b.XY.X-a.XY.X)*t,
				Y: a.XY.Y + (b.XY.Y-a.XY.Y)*t,
			}
			return toPosition(xy, a.Z+(b.Z-a.Z)*t), true
		}
		walked += d
	}

	last := seq.Get(n - 1)
	return toPosition(last.XY, last.Z), true
}

func dist(a, b geom.XY) float64 {
	return math.Hypot(b.X-a.X, b.Y-a.Y)
}

func toPosition(xy geom.XY, height float64) Position {
	return Position{X: xy.X, Y: height, Z: xy.Y}
}
