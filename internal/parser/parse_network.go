package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/RoadSpeedAdjuster/extension/internal/network"
	"github.com/RoadSpeedAdjuster/extension/internal/util"
	geom "github.com/peterstace/simplefeatures/geom"
)

// SegmentUpdate is a segment registration. Path is nil when the host sent no
// geometry.
type SegmentUpdate struct {
	ID   network.SegmentID
	Path *geom.LineString
}

// TempMapping links a preview copy to the segment it was copied from.
type TempMapping struct {
	Temp     network.SegmentID
	Original network.SegmentID
}

// ParseSegment parses [id, path?]. The path is a JSON array of [x,y,z] world
// positions.
func (p *Parser) ParseSegment(data []string) (SegmentUpdate, error) {
	var upd SegmentUpdate

	args, err := need(data, 1, "segment")
	if err != nil {
		return upd, err
	}
	if upd.ID, err = parseSegmentID(args[0], "segment id"); err != nil {
		return upd, err
	}

	if raw := util.Arg(args, 1); raw != "" && raw != "[]" {
		path, err := network.ParsePath(raw)
		if err != nil {
			return upd, fmt.Errorf("error parsing path of segment %d: %w", upd.ID, err)
		}
		upd.Path = &path
	}
	return upd, nil
}

func parseLaneKind(s string) (network.LaneKind, error) {
	switch strings.ToLower(s) {
	case "car", "0", "0.0":
		return network.LaneCar, nil
	case "track", "1", "1.0":
		return network.LaneTrack, nil
	}
	return 0, fmt.Errorf("unknown lane kind %q", s)
}

// ParseLane parses [segment, lane, kind, speed, flags?]. Speed is in
// canonical game units; flags is the bitmask of network.LaneFlags.
func (p *Parser) ParseLane(data []string) (network.Lane, error) {
	var lane network.Lane

	args, err := need(data, 4, "lane")
	if err != nil {
		return lane, err
	}

	if lane.Segment, err = parseSegmentID(args[0], "segment id"); err != nil {
		return lane, err
	}

	id, err := parseUintFromFloat(args[1])
	if err != nil {
		return lane, fmt.Errorf("error parsing lane id: %w", err)
	}
	lane.ID = network.LaneID(id)

	if lane.Kind, err = parseLaneKind(args[2]); err != nil {
		return lane, err
	}

	lane.Speed, err = strconv.ParseFloat(args[3], 64)
	if err != nil {
		return lane, fmt.Errorf("error parsing lane speed: %w", err)
	}
	if lane.Speed < 0 {
		return lane, fmt.Errorf("lane speed must not be negative, got %v", lane.Speed)
	}

	if raw := util.Arg(args, 4); raw != "" {
		flags, err := parseUintFromFloat(raw)
		if err != nil {
			return lane, fmt.Errorf("error parsing lane flags: %w", err)
		}
		lane.Flags = network.LaneFlags(flags)
	}

	p.logger.Debug("Parsed lane", "segment", lane.Segment, "lane", lane.ID, "kind", lane.Kind)
	return lane, nil
}

// ParseTemp parses [tempId, originalId].
func (p *Parser) ParseTemp(data []string) (TempMapping, error) {
	var m TempMapping

	args, err := need(data, 2, "temp mapping")
	if err != nil {
		return m, err
	}
	if m.Temp, err = parseSegmentID(args[0], "temp id"); err != nil {
		return m, err
	}
	if m.Original, err = parseSegmentID(args[1], "original id"); err != nil {
		return m, err
	}
	return m, nil
}

// ParseHit parses the segment under the pointer. An empty argument, "0" or
// "-1" means the pointer hit nothing and yields nil.
func (p *Parser) ParseHit(data []string) (*network.SegmentID, error) {
	args := util.CleanArgs(data)
	raw := util.Arg(args, 0)
	switch raw {
	case "", "0", "-1", "nil", "null":
		return nil, nil
	}
	id, err := parseSegmentID(raw, "hit")
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// ParseIDList accepts either one JSON-style array argument ("[1,2,3]") or
// one id per argument. No arguments gives an empty list.
func (p *Parser) ParseIDList(data []string) ([]network.SegmentID, error) {
	args := util.CleanArgs(data)
	if len(args) == 1 && strings.HasPrefix(args[0], "[") {
		inner := strings.TrimSuffix(strings.TrimPrefix(args[0], "["), "]")
		args = nil
		if strings.TrimSpace(inner) != "" {
			for _, part := range strings.Split(inner, ",") {
				args = append(args, strings.TrimSpace(part))
			}
		}
	}

	ids := make([]network.SegmentID, 0, len(args))
	for i, a := range args {
		if a == "" {
			continue
		}
		id, err := parseSegmentID(a, fmt.Sprintf("id %d", i))
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
