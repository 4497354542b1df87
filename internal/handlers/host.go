package handlers

import (
	"log/slog"

	"github.com/RoadSpeedAdjuster/extension/internal/network"
	"github.com/RoadSpeedAdjuster/extension/internal/tool"
	"github.com/RoadSpeedAdjuster/extension/pkg/hostabi"
)

// Sender delivers outbound calls to the host.
type Sender interface {
	Send(function string, payload any) error
}

// Host turns tool and network events into outbound host calls. It is the
// selection highlighter, the lane speed writer and the panel notifier.
type Host struct {
	sender Sender
	logger *slog.Logger
}

// NewHost creates a host adapter over sender.
func NewHost(sender Sender, logger *slog.Logger) *Host {
	if logger == nil {
		logger = slog.Default()
	}
	return &Host{sender: sender, logger: logger}
}

func (h *Host) send(function string, payload any) {
	if err := h.sender.Send(function, payload); err != nil {
		h.logger.Warn("Failed to notify host", "function", function, "error", err)
	}
}

func (h *Host) Highlight(id network.SegmentID) {
	h.send(hostabi.FnHighlightAdd, []uint64{uint64(id)})
}

func (h *Host) Unhighlight(id network.SegmentID) {
	h.send(hostabi.FnHighlightRemove, []uint64{uint64(id)})
}

func (h *Host) ClearHighlights() {
	h.send(hostabi.FnHighlightClear, nil)
}

// WriteLaneSpeed implements network.SpeedWriter. Delivery failures are
// returned so the engine can report the segment.
func (h *Host) WriteLaneSpeed(segment network.SegmentID, lane network.LaneID, canonical float64) error {
	return h.sender.Send(hostabi.FnLaneSpeed, []any{uint64(segment), uint64(lane), canonical})
}

func (h *Host) SelectionFinalized(p tool.Panel) {
	h.send(hostabi.FnSelectionFinalized, p)
}

func (h *Host) SelectionCleared() {
	h.send(hostabi.FnSelectionCleared, nil)
}
