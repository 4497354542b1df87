package overrides

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/RoadSpeedAdjuster/extension/internal/network"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memPersister keeps saved tables in a map and can be told to fail.
type memPersister struct {
	tables  map[string]Table
	saves   int
	loadErr error
	saveErr error
}

func newMemPersister() *memPersister {
	return &memPersister{tables: make(map[string]Table)}
}

func (p *memPersister) Load(_ context.Context, scope string) (Table, error) {
	if p.loadErr != nil {
		return Table{}, p.loadErr
	}
	t, ok := p.tables[scope]
	if !ok {
		return Table{Scope: scope, Version: TableVersion}, nil
	}
	return t, nil
}

func (p *memPersister) Save(_ context.Context, t Table) error {
	if p.saveErr != nil {
		return p.saveErr
	}
	p.saves++
	p.tables[t.Scope] = t
	return nil
}

func (p *memPersister) Close() error { return nil }

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func openTestStore(t *testing.T, p Persister) *Store {
	t.Helper()
	return Open(context.Background(), "Springfield", p, WithClock(func() time.Time { return fixedNow }))
}

func TestStore_CaptureOnce(t *testing.T) {
	s := openTestStore(t, newMemPersister())

	created, err := s.CaptureOriginal(1, 50)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = s.CaptureOriginal(1, 80)
	require.NoError(t, err)
	assert.False(t, created)

	orig, ok := s.GetOriginal(1)
	require.True(t, ok)
	assert.Equal(t, 50.0, orig)

	cur, ok := s.GetCurrent(1)
	require.True(t, ok)
	assert.Equal(t, 50.0, cur)
}

func TestStore_SetCurrentRequiresCapture(t *testing.T) {
	s := openTestStore(t, newMemPersister())

	err := s.SetCurrent(7, 80)
	assert.ErrorIs(t, err, ErrNotCaptured)
	assert.Equal(t, 0, s.Len())

	_, err = s.CaptureOriginal(7, 50)
	require.NoError(t, err)
	require.NoError(t, s.SetCurrent(7, 80))

	r, ok := s.Get(7)
	require.True(t, ok)
	assert.Equal(t, 50.0, r.OriginalValue)
	assert.Equal(t, 80.0, r.CurrentValue)
	assert.Equal(t, fixedNow, r.LastModified)
}

func TestStore_RemoveAndClear(t *testing.T) {
	p := newMemPersister()
	s := openTestStore(t, p)

	for id := network.SegmentID(1); id <= 3; id++ {
		_, err := s.CaptureOriginal(id, 40)
		require.NoError(t, err)
	}

	require.NoError(t, s.Remove(2))
	require.NoError(t, s.Remove(2))
	assert.Equal(t, 2, s.Len())
	_, ok := s.Get(2)
	assert.False(t, ok)

	require.NoError(t, s.Clear())
	assert.Equal(t, 0, s.Len())
	assert.Empty(t, p.tables["Springfield"].Records)
	assert.NotNil(t, p.tables["Springfield"].Records)
}

func TestStore_WriteThroughAndReload(t *testing.T) {
	p := newMemPersister()
	s := openTestStore(t, p)

	_, err := s.CaptureOriginal(42, 50)
	require.NoError(t, err)
	require.NoError(t, s.SetCurrent(42, 80))
	assert.Equal(t, 2, p.saves)

	saved := p.tables["Springfield"]
	assert.Equal(t, TableVersion, saved.Version)
	assert.Equal(t, fixedNow, saved.LastSaved)
	require.Len(t, saved.Records, 1)

	reopened := openTestStore(t, p)
	orig, ok := reopened.GetOriginal(42)
	require.True(t, ok)
	assert.Equal(t, 50.0, orig)
	cur, _ := reopened.GetCurrent(42)
	assert.Equal(t, 80.0, cur)
	assert.False(t, reopened.Degraded())
}

func TestStore_LoadFailureDegrades(t *testing.T) {
	p := newMemPersister()
	p.loadErr = errors.New("corrupt file")

	s := openTestStore(t, p)
	assert.True(t, s.Degraded())
	assert.Equal(t, 0, s.Len())

	// still usable
	_, err := s.CaptureOriginal(1, 30)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Len())
}

func TestStore_SaveFailureKeepsMemoryState(t *testing.T) {
	p := newMemPersister()
	p.saveErr = errors.New("disk full")
	s := openTestStore(t, p)

	created, err := s.CaptureOriginal(1, 30)
	assert.True(t, created)
	assert.ErrorIs(t, err, ErrStorageUnavailable)
	assert.Contains(t, err.Error(), "disk full")

	orig, ok := s.GetOriginal(1)
	require.True(t, ok)
	assert.Equal(t, 30.0, orig)
}

func TestStore_AllRecordsSnapshot(t *testing.T) {
	s := openTestStore(t, nil)
	for _, id := range []network.SegmentID{3, 1, 2} {
		_, err := s.CaptureOriginal(id, float64(id)*10)
		require.NoError(t, err)
	}

	seq := s.AllRecords()

	var ids []network.SegmentID
	for r := range seq {
		ids = append(ids, r.SegmentID)
		// mutation during iteration is not observed
		require.NoError(t, s.Remove(r.SegmentID))
	}
	assert.Equal(t, []network.SegmentID{1, 2, 3}, ids)
	assert.Equal(t, 0, s.Len())

	// the snapshot can be ranged again
	count := 0
	for range seq {
		count++
	}
	assert.Equal(t, 3, count)
}

func TestStore_Stats(t *testing.T) {
	s := openTestStore(t, newMemPersister())
	assert.Equal(t, "Scope: Springfield, Segments: 0, Last saved: never", s.Stats())

	_, err := s.CaptureOriginal(1, 30)
	require.NoError(t, err)
	assert.Equal(t, "Scope: Springfield, Segments: 1, Last saved: 2026-03-01T12:00:00Z", s.Stats())
}

func TestSanitizeScopeName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "Springfield", "Springfield"},
		{"spaces", "New Springfield", "New_Springfield"},
		{"invalid chars", `a<b>c:d"e/f\g|h?i*j`, "a_b_c_d_e_f_g_h_i_j"},
		{"trailing dots", "City...", "City"},
		{"empty", "", "unnamed"},
		{"only dots", "...", "unnamed"},
		{"long", strings.Repeat("x", 80), strings.Repeat("x", 50)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeScopeName(tt.input))
		})
	}
}
