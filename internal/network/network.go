// Package network models the host's road and rail graph as seen by the
// speed tool: segments, their dependent lanes, and preview copies.
package network

import (
	"errors"
	"strconv"

	"github.com/RoadSpeedAdjuster/extension/internal/units"
)

// ErrUnknownLane is returned when writing to a lane the model has never seen.
var ErrUnknownLane = errors.New("unknown lane")

// SegmentID identifies a road or track segment. The host packs its entity
// index and version into the value; it is opaque here.
type SegmentID uint64

func (id SegmentID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// LaneID identifies a lane belonging to a segment.
type LaneID uint64

func (id LaneID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// LaneKind distinguishes car lanes from track lanes.
type LaneKind uint8

const (
	LaneCar LaneKind = iota
	LaneTrack
)

func (k LaneKind) String() string {
	if k == LaneTrack {
		return "track"
	}
	return "car"
}

// LaneFlags mirror the host's car lane option bits that matter here.
type LaneFlags uint8

const (
	FlagUnsafe LaneFlags = 1 << iota
	FlagSideConnection
)

// Lane is one dependent element of a segment. Speed is in canonical game units.
type Lane struct {
	ID      LaneID
	Segment SegmentID
	Kind    LaneKind
	Flags   LaneFlags
	Speed   float64
}

// Traversable reports whether the lane carries the segment's speed limit.
// Unsafe and side-connection car lanes are skipped; track lanes always count.
func (l Lane) Traversable() bool {
	if l.Kind == LaneTrack {
		return true
	}
	return l.Flags&(FlagUnsafe|FlagSideConnection) == 0
}

// Traversable filters lanes down to the ones that carry the speed limit.
func Traversable(lanes []Lane) []Lane {
	out := make([]Lane, 0, len(lanes))
	for _, l := range lanes {
		if l.Traversable() {
			out = append(out, l)
		}
	}
	return out
}

// KindOf classifies a segment for bounds: any track lane makes it a track.
func KindOf(lanes []Lane) units.Kind {
	for _, l := range lanes {
		if l.Kind == LaneTrack {
			return units.KindTrack
		}
	}
	return units.KindRoad
}

// Model is the view of the host network that the apply/reset engine needs.
type Model interface {
	// ResolveCanonical maps a preview copy to the segment it was copied
	// from. Canonical ids map to themselves.
	ResolveCanonical(id SegmentID) SegmentID
	Exists(id SegmentID) bool
	Lanes(id SegmentID) []Lane
	WriteSpeed(lane LaneID, canonical float64) error
	IsMetricContext() bool
}
