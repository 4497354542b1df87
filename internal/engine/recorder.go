package engine

import (
	"time"

	"github.com/RoadSpeedAdjuster/extension/internal/network"
)

// EventKind names what happened to a segment.
type EventKind string

const (
	EventApply EventKind = "apply"
	EventReset EventKind = "reset"
	EventClear EventKind = "clear"
)

// Event describes one completed per-segment change. Speeds are km/h.
type Event struct {
	Kind    EventKind
	Scope   string
	Segment network.SegmentID
	FromKmh float64
	ToKmh   float64
	Time    time.Time
}

// Recorder receives an Event for every segment the engine changes. It must
// not block.
type Recorder interface {
	RecordOverride(Event)
}

type nopRecorder struct{}

func (nopRecorder) RecordOverride(Event) {}
