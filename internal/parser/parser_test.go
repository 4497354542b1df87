package parser

import (
	"log/slog"
	"testing"

	"github.com/RoadSpeedAdjuster/extension/internal/network"
	"github.com/RoadSpeedAdjuster/extension/internal/units"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestParser() *Parser {
	return NewParser(slog.Default())
}

func TestNewParser(t *testing.T) {
	require.NotNil(t, newTestParser())
	require.NotNil(t, NewParser(nil).logger)
}

func TestParseUintFromFloat(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    uint64
		wantErr bool
	}{
		{"integer", "32", 32, false},
		{"zero", "0", 0, false},
		{"float with decimals", "32.00", 32, false},
		{"large integer", "281474976710655", 281474976710655, false},
		{"fractional rejects", "10.99", 0, true},
		{"empty string", "", 0, true},
		{"non-numeric", "abc", 0, true},
		{"negative", "-1", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseUintFromFloat(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestParseName(t *testing.T) {
	p := newTestParser()

	name, err := p.ParseName([]string{`"New Springfield"`})
	require.NoError(t, err)
	assert.Equal(t, "New Springfield", name)

	_, err = p.ParseName([]string{`""`})
	assert.Error(t, err)

	_, err = p.ParseName(nil)
	assert.Error(t, err)
}

func TestParseBool(t *testing.T) {
	p := newTestParser()
	tests := []struct {
		input   string
		want    bool
		wantErr bool
	}{
		{"true", true, false},
		{`"true"`, true, false},
		{"1", true, false},
		{"false", false, false},
		{"0", false, false},
		{"maybe", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := p.ParseBool([]string{tt.input})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseSegment(t *testing.T) {
	p := newTestParser()

	t.Run("id only", func(t *testing.T) {
		upd, err := p.ParseSegment([]string{"12"})
		require.NoError(t, err)
		assert.Equal(t, network.SegmentID(12), upd.ID)
		assert.Nil(t, upd.Path)
	})

	t.Run("with path", func(t *testing.T) {
		upd, err := p.ParseSegment([]string{"12.00", `"[[0,5,0],[100,5,0]]"`})
		require.NoError(t, err)
		require.NotNil(t, upd.Path)
		assert.Equal(t, 2, upd.Path.Coordinates().Length())
	})

	t.Run("empty path", func(t *testing.T) {
		upd, err := p.ParseSegment([]string{"12", "[]"})
		require.NoError(t, err)
		assert.Nil(t, upd.Path)
	})

	t.Run("bad path", func(t *testing.T) {
		_, err := p.ParseSegment([]string{"12", "[[0,5,0]]"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "at least 2 points")
	})

	t.Run("bad id", func(t *testing.T) {
		_, err := p.ParseSegment([]string{"abc"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "segment id")
	})
}

func TestParseLane(t *testing.T) {
	p := newTestParser()

	tests := []struct {
		name    string
		input   []string
		want    network.Lane
		wantErr string
	}{
		{
			name:  "car lane",
			input: []string{"7", "70", "car", "27.78", "0"},
			want:  network.Lane{ID: 70, Segment: 7, Kind: network.LaneCar, Speed: 27.78},
		},
		{
			name:  "numeric kind and flags",
			input: []string{"7", "71", "0", "10", "3"},
			want: network.Lane{ID: 71, Segment: 7, Kind: network.LaneCar, Speed: 10,
				Flags: network.FlagUnsafe | network.FlagSideConnection},
		},
		{
			name:  "track lane without flags",
			input: []string{"8", "80", "track", "44.4"},
			want:  network.Lane{ID: 80, Segment: 8, Kind: network.LaneTrack, Speed: 44.4},
		},
		{name: "too few", input: []string{"8", "80", "track"}, wantErr: "expected 4 args"},
		{name: "bad kind", input: []string{"8", "80", "boat", "1"}, wantErr: "unknown lane kind"},
		{name: "bad speed", input: []string{"8", "80", "car", "fast"}, wantErr: "lane speed"},
		{name: "negative speed", input: []string{"8", "80", "car", "-3"}, wantErr: "must not be negative"},
		{name: "bad lane id", input: []string{"8", "x", "car", "1"}, wantErr: "lane id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.ParseLane(tt.input)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseTemp(t *testing.T) {
	p := newTestParser()

	m, err := p.ParseTemp([]string{"900", "12"})
	require.NoError(t, err)
	assert.Equal(t, TempMapping{Temp: 900, Original: 12}, m)

	_, err = p.ParseTemp([]string{"900"})
	assert.Error(t, err)
}

func TestParseHit(t *testing.T) {
	p := newTestParser()

	for _, miss := range [][]string{nil, {""}, {"0"}, {"-1"}, {`""`}} {
		hit, err := p.ParseHit(miss)
		require.NoError(t, err)
		assert.Nil(t, hit)
	}

	hit, err := p.ParseHit([]string{"42"})
	require.NoError(t, err)
	require.NotNil(t, hit)
	assert.Equal(t, network.SegmentID(42), *hit)

	_, err = p.ParseHit([]string{"road"})
	assert.Error(t, err)
}

func TestParseIDList(t *testing.T) {
	p := newTestParser()

	tests := []struct {
		name  string
		input []string
		want  []network.SegmentID
	}{
		{"none", nil, []network.SegmentID{}},
		{"empty array", []string{"[]"}, []network.SegmentID{}},
		{"array", []string{"[1, 2,3]"}, []network.SegmentID{1, 2, 3}},
		{"args", []string{"4", "5"}, []network.SegmentID{4, 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.ParseIDList(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := p.ParseIDList([]string{"[1,x]"})
	assert.Error(t, err)
}

func TestParseApply(t *testing.T) {
	p := newTestParser()

	tests := []struct {
		name    string
		input   []string
		want    ApplyRequest
		wantErr bool
	}{
		{"value only", []string{"80"}, ApplyRequest{Value: 80}, false},
		{"metric", []string{"80", "metric"}, ApplyRequest{Value: 80, Mode: units.ModeMetric, HasMode: true}, false},
		{"imperial", []string{"62.5", "mph"}, ApplyRequest{Value: 62.5, Mode: units.ModeImperial, HasMode: true}, false},
		{"auto", []string{"50", "auto"}, ApplyRequest{Value: 50, Mode: units.ModeAuto, HasMode: true}, false},
		{"zero", []string{"0"}, ApplyRequest{}, true},
		{"nan", []string{"NaN"}, ApplyRequest{}, true},
		{"text", []string{"fast"}, ApplyRequest{}, true},
		{"bad mode", []string{"50", "knots"}, ApplyRequest{}, true},
		{"missing", nil, ApplyRequest{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.ParseApply(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseMode(t *testing.T) {
	p := newTestParser()

	m, err := p.ParseMode([]string{"Imperial"})
	require.NoError(t, err)
	assert.Equal(t, units.ModeImperial, m)

	_, err = p.ParseMode(nil)
	assert.Error(t, err)
}
