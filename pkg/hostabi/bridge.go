package hostabi

import (
	"errors"
	"fmt"
	"sync"

	"github.com/RoadSpeedAdjuster/extension/internal/queue"
)

// Outbound callback functions.
const (
	FnHighlightAdd       = ":HIGHLIGHT:ADD:"
	FnHighlightRemove    = ":HIGHLIGHT:REMOVE:"
	FnHighlightClear     = ":HIGHLIGHT:CLEAR:"
	FnSelectionFinalized = ":SELECTION:FINALIZED:"
	FnSelectionCleared   = ":SELECTION:CLEARED:"
	FnLaneSpeed          = ":LANE:SPEED:"
)

// DefaultOutboxSize bounds the messages kept for polling hosts.
const DefaultOutboxSize = 4096

// ErrOutboxFull is returned by Send when no callback is registered and the
// host has not drained the outbox. Queued messages are never evicted, so a
// lane write either reaches the host or fails visibly.
var ErrOutboxFull = errors.New("host outbox full")

// CallbackFunc delivers one message to the host. name is the extension name.
type CallbackFunc func(name, function, data string) int

// Message is one outbound call.
type Message struct {
	Function string `json:"function"`
	Data     string `json:"data"`
}

// Bridge sends messages to the host through its registered callback. Until
// the host registers one, messages wait in a bounded outbox that the host
// drains by polling.
type Bridge struct {
	mu       sync.Mutex
	name     string
	callback CallbackFunc
	outbox   *queue.Queue[Message]
}

// NewBridge creates a bridge for the named extension.
func NewBridge(name string, outboxSize int) *Bridge {
	if outboxSize <= 0 {
		outboxSize = DefaultOutboxSize
	}
	return &Bridge{name: name, outbox: queue.New[Message](outboxSize)}
}

// SetCallback registers the host callback. Queued messages stay in the
// outbox until flushed.
func (b *Bridge) SetCallback(fn CallbackFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.callback = fn
}

// HasCallback reports whether the host registered a callback.
func (b *Bridge) HasCallback() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.callback != nil
}

// Send encodes payload and delivers it. A nil payload sends an empty array.
func (b *Bridge) Send(function string, payload any) error {
	if payload == nil {
		payload = []any{}
	}
	data, err := encode(payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s payload: %w", function, err)
	}

	b.mu.Lock()
	cb := b.callback
	b.mu.Unlock()

	if cb == nil {
		if !b.outbox.TryPush(Message{Function: function, Data: data}) {
			return fmt.Errorf("%w: %s not queued", ErrOutboxFull, function)
		}
		return nil
	}
	if rc := cb(b.name, function, data); rc < 0 {
		return fmt.Errorf("host rejected %s callback (%d)", function, rc)
	}
	return nil
}

// Flush removes up to max queued messages, oldest first. max <= 0 drains
// everything.
func (b *Bridge) Flush(max int) []Message {
	return b.outbox.Drain(max)
}

// Pending returns the number of queued messages.
func (b *Bridge) Pending() int {
	return b.outbox.Len()
}

// Dropped returns how many messages were refused because the outbox was
// full.
func (b *Bridge) Dropped() int {
	return b.outbox.Dropped()
}
