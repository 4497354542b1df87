package network

import (
	"slices"
	"sync"

	geom "github.com/peterstace/simplefeatures/geom"
)

// SpeedWriter pushes a lane speed change out to the host.
type SpeedWriter interface {
	WriteLaneSpeed(segment SegmentID, lane LaneID, canonical float64) error
}

type segmentEntry struct {
	lanes []LaneID
	path  geom.LineString
	// hasPath is false until the host sends geometry
	hasPath bool
}

// Mirror keeps a copy of the host network that the host feeds through
// commands. Reads stay local so the engine never waits on the host.
type Mirror struct {
	mu       sync.RWMutex
	segments map[SegmentID]*segmentEntry
	lanes    map[LaneID]Lane
	temps    map[SegmentID]SegmentID
	metric   bool
	writer   SpeedWriter
}

// NewMirror creates an empty mirror. Lane writes are forwarded to writer,
// which may be nil.
func NewMirror(writer SpeedWriter) *Mirror {
	return &Mirror{
		segments: make(map[SegmentID]*segmentEntry),
		lanes:    make(map[LaneID]Lane),
		temps:    make(map[SegmentID]SegmentID),
		metric:   true,
		writer:   writer,
	}
}

// Reset drops everything, keeping the writer and the metric context.
func (m *Mirror) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.segments = make(map[SegmentID]*segmentEntry)
	m.lanes = make(map[LaneID]Lane)
	m.temps = make(map[SegmentID]SegmentID)
}

// UpsertSegment registers a segment. A nil path keeps any geometry already
// known.
func (m *Mirror) UpsertSegment(id SegmentID, path *geom.LineString) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seg, ok := m.segments[id]
	if !ok {
		seg = &segmentEntry{}
		m.segments[id] = seg
	}
	if path != nil {
		seg.path = *path
		seg.hasPath = true
	}
}

// UpsertLane registers or refreshes a lane, creating its segment if needed.
func (m *Mirror) UpsertLane(l Lane) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seg, ok := m.segments[l.Segment]
	if !ok {
		seg = &segmentEntry{}
		m.segments[l.Segment] = seg
	}
	if prev, known := m.lanes[l.ID]; known && prev.Segment != l.Segment {
		if old, ok := m.segments[prev.Segment]; ok {
			old.lanes = slices.DeleteFunc(old.lanes, func(id LaneID) bool { return id == l.ID })
		}
	}
	if !slices.Contains(seg.lanes, l.ID) {
		seg.lanes = append(seg.lanes, l.ID)
	}
	m.lanes[l.ID] = l
}

// MapTemp records that temp is a preview copy of original.
func (m *Mirror) MapTemp(temp, original SegmentID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if temp == original {
		delete(m.temps, temp)
		return
	}
	m.temps[temp] = original
}

// ClearTemps forgets all preview mappings.
func (m *Mirror) ClearTemps() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.temps = make(map[SegmentID]SegmentID)
}

// RemoveSegment deletes a segment, its lanes and any preview mapping to it.
func (m *Mirror) RemoveSegment(id SegmentID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if seg, ok := m.segments[id]; ok {
		for _, lane := range seg.lanes {
			delete(m.lanes, lane)
		}
		delete(m.segments, id)
	}
	delete(m.temps, id)
	for temp, orig := range m.temps {
		if orig == id {
			delete(m.temps, temp)
		}
	}
}

// SetMetricContext sets whether the current map uses metric signage.
func (m *Mirror) SetMetricContext(metric bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metric = metric
}

// SegmentCount returns the number of known segments.
func (m *Mirror) SegmentCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.segments)
}

// Anchor returns the label position for a segment, if its geometry is known.
func (m *Mirror) Anchor(id SegmentID, height float64) (Position, bool) {
	m.mu.RLock()
	seg, ok := m.segments[id]
	var path geom.LineString
	if ok && seg.hasPath {
		path = seg.path
	}
	m.mu.RUnlock()
	if !ok || path.IsEmpty() {
		return Position{}, false
	}
	pos, ok := Midpoint(path)
	if !ok {
		return Position{}, false
	}
	pos.Y += height
	return pos, true
}

func (m *Mirror) ResolveCanonical(id SegmentID) SegmentID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if orig, ok := m.temps[id]; ok {
		return orig
	}
	return id
}

func (m *Mirror) Exists(id SegmentID) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.segments[id]
	return ok
}

// Lanes returns a copy of the segment's lanes in registration order.
func (m *Mirror) Lanes(id SegmentID) []Lane {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seg, ok := m.segments[id]
	if !ok {
		return nil
	}
	out := make([]Lane, 0, len(seg.lanes))
	for _, lid := range seg.lanes {
		if l, ok := m.lanes[lid]; ok {
			out = append(out, l)
		}
	}
	return out
}

// WriteSpeed forwards the write to the host and updates the mirrored lane
// once the host accepted it.
func (m *Mirror) WriteSpeed(lane LaneID, canonical float64) error {
	m.mu.RLock()
	l, ok := m.lanes[lane]
	writer := m.writer
	m.mu.RUnlock()
	if !ok {
		return ErrUnknownLane
	}

	if writer != nil {
		if err := writer.WriteLaneSpeed(l.Segment, lane, canonical); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if l, ok := m.lanes[lane]; ok {
		l.Speed = canonical
		m.lanes[lane] = l
	}
	return nil
}

func (m *Mirror) IsMetricContext() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.metric
}
