package hostabi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	name, function, data string
}

func TestBridge_QueuesWithoutCallback(t *testing.T) {
	b := NewBridge("roadspeed", 2)
	assert.False(t, b.HasCallback())

	require.NoError(t, b.Send(FnLaneSpeed, []any{1, 10, 27.5}))
	require.NoError(t, b.Send(FnHighlightClear, nil))
	err := b.Send(FnSelectionCleared, nil)
	require.ErrorIs(t, err, ErrOutboxFull)
	assert.Contains(t, err.Error(), FnSelectionCleared)

	assert.Equal(t, 2, b.Pending())
	assert.Equal(t, 1, b.Dropped())

	msgs := b.Flush(1)
	require.Len(t, msgs, 1)
	assert.Equal(t, Message{Function: FnLaneSpeed, Data: "[1,10,27.5]"}, msgs[0])

	require.NoError(t, b.Send(FnSelectionCleared, nil))
	msgs = b.Flush(0)
	require.Len(t, msgs, 2)
	assert.Equal(t, FnHighlightClear, msgs[0].Function)
	assert.Equal(t, FnSelectionCleared, msgs[1].Function)
	assert.Zero(t, b.Pending())
}

func TestBridge_OverflowKeepsQueuedLaneWrites(t *testing.T) {
	b := NewBridge("roadspeed", 0)
	const extra = 10

	var refused int
	for i := 0; i < DefaultOutboxSize+extra; i++ {
		if err := b.Send(FnLaneSpeed, []any{1, i, 27.5}); err != nil {
			require.ErrorIs(t, err, ErrOutboxFull)
			refused++
		}
	}

	assert.Equal(t, extra, refused)
	assert.Equal(t, extra, b.Dropped())
	assert.Equal(t, DefaultOutboxSize, b.Pending())

	msgs := b.Flush(0)
	require.Len(t, msgs, DefaultOutboxSize)
	assert.Equal(t, "[1,0,27.5]", msgs[0].Data)
	assert.Equal(t, "[1,4095,27.5]", msgs[len(msgs)-1].Data)
}

func TestBridge_UsesCallback(t *testing.T) {
	b := NewBridge("roadspeed", 0)
	var calls []call
	b.SetCallback(func(name, function, data string) int {
		calls = append(calls, call{name, function, data})
		return 0
	})
	assert.True(t, b.HasCallback())

	require.NoError(t, b.Send(FnHighlightAdd, []uint64{42}))
	require.NoError(t, b.Send(FnSelectionFinalized, map[string]any{"value": 80}))

	require.Len(t, calls, 2)
	assert.Equal(t, call{"roadspeed", FnHighlightAdd, "[42]"}, calls[0])
	assert.Equal(t, `{"value":80}`, calls[1].data)
	assert.Zero(t, b.Pending())
}

func TestBridge_CallbackRejected(t *testing.T) {
	b := NewBridge("roadspeed", 0)
	b.SetCallback(func(string, string, string) int { return -1 })

	err := b.Send(FnLaneSpeed, []int{1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), FnLaneSpeed)
}

func TestBridge_EncodeFailure(t *testing.T) {
	b := NewBridge("roadspeed", 0)
	err := b.Send(FnLaneSpeed, func() {})
	require.Error(t, err)
	assert.Zero(t, b.Pending())
}
