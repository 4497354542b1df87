// Package selection turns pointer gestures into a finalized set of segments.
//
// A press starts a drag, every distinct segment under the pointer while
// dragging becomes a candidate, and the release promotes the candidates to
// the selection. Releasing over nothing clears everything. While idle with no
// selection, moving the pointer hovers the segment underneath.
//
// A Session is not safe for concurrent use; the dispatcher runs every
// pointer command under one owner.
package selection

import (
	"slices"

	"github.com/RoadSpeedAdjuster/extension/internal/network"
)

// State of a session.
type State int

const (
	Idle State = iota
	Dragging
	Finalized
)

func (s State) String() string {
	switch s {
	case Dragging:
		return "dragging"
	case Finalized:
		return "finalized"
	default:
		return "idle"
	}
}

// Highlighter draws the selection outline on the host.
type Highlighter interface {
	Highlight(id network.SegmentID)
	Unhighlight(id network.SegmentID)
	ClearHighlights()
}

// Listener is told when the selection changes.
type Listener interface {
	OnSelectionFinalized(ids []network.SegmentID)
	OnSelectionCleared()
}

// Session is the selection state machine.
type Session struct {
	state      State
	candidates []network.SegmentID
	selected   []network.SegmentID
	hovered    *network.SegmentID

	hl       Highlighter
	listener Listener
}

// NewSession creates an idle session. Either collaborator may be nil.
func NewSession(hl Highlighter, listener Listener) *Session {
	return &Session{hl: hl, listener: listener}
}

// State returns the current state.
func (s *Session) State() State {
	return s.state
}

// Selection returns a copy of the finalized selection.
func (s *Session) Selection() []network.SegmentID {
	return slices.Clone(s.selected)
}

// Candidates returns a copy of the segments collected by the current drag.
func (s *Session) Candidates() []network.SegmentID {
	return slices.Clone(s.candidates)
}

// Hovered returns the hovered segment, if any.
func (s *Session) Hovered() (network.SegmentID, bool) {
	if s.hovered == nil {
		return 0, false
	}
	return *s.hovered, true
}

// PointerDown starts a drag. Any prior selection is discarded. hit is nil
// when the press landed on nothing.
func (s *Session) PointerDown(hit *network.SegmentID) {
	s.hovered = nil
	s.clearHighlights()
	s.candidates = s.candidates[:0]
	s.selected = nil
	s.state = Dragging

	if hit != nil {
		s.addCandidate(*hit)
	}
}

// PointerMove collects hit while dragging, or hovers it while idle.
func (s *Session) PointerMove(hit *network.SegmentID) {
	switch s.state {
	case Dragging:
		if hit != nil {
			s.addCandidate(*hit)
		}
	case Idle:
		if len(s.selected) == 0 {
			s.hover(hit)
		}
	}
}

// PointerUp ends the drag. Candidates become the selection; with none, the
// session goes idle and listeners are told the selection was cleared.
func (s *Session) PointerUp() {
	if s.state != Dragging {
		return
	}

	if len(s.candidates) == 0 {
		s.reset()
		return
	}

	s.selected = slices.Clone(s.candidates)
	s.candidates = s.candidates[:0]
	s.state = Finalized
	if s.listener != nil {
		s.listener.OnSelectionFinalized(slices.Clone(s.selected))
	}
}

// Cancel abandons the drag and the selection.
func (s *Session) Cancel() {
	s.reset()
}

func (s *Session) reset() {
	s.candidates = s.candidates[:0]
	s.selected = nil
	s.hovered = nil
	s.state = Idle
	s.clearHighlights()
	if s.listener != nil {
		s.listener.OnSelectionCleared()
	}
}

func (s *Session) addCandidate(id network.SegmentID) {
	if slices.Contains(s.candidates, id) {
		return
	}
	s.candidates = append(s.candidates, id)
	if s.hl != nil {
		s.hl.Highlight(id)
	}
}

func (s *Session) hover(hit *network.SegmentID) {
	if s.hovered != nil && hit != nil && *s.hovered == *hit {
		return
	}
	if s.hovered != nil && s.hl != nil {
		s.hl.Unhighlight(*s.hovered)
	}
	s.hovered = nil
	if hit != nil {
		id := *hit
		s.hovered = &id
		if s.hl != nil {
			s.hl.Highlight(id)
		}
	}
}

func (s *Session) clearHighlights() {
	if s.hl != nil {
		s.hl.ClearHighlights()
	}
}
