package parser

import (
	"fmt"
	"math"
	"strconv"

	"github.com/RoadSpeedAdjuster/extension/internal/units"
	"github.com/RoadSpeedAdjuster/extension/internal/util"
)

// ApplyRequest is the value typed into the panel and the unit preference it
// was typed in.
type ApplyRequest struct {
	Value float64
	Mode  units.Mode
	// HasMode is false when the host left the mode to the current preference.
	HasMode bool
}

// ParseApply parses [value, mode?].
func (p *Parser) ParseApply(data []string) (ApplyRequest, error) {
	var req ApplyRequest

	args, err := need(data, 1, "apply")
	if err != nil {
		return req, err
	}

	req.Value, err = strconv.ParseFloat(args[0], 64)
	if err != nil {
		return req, fmt.Errorf("error parsing speed value: %w", err)
	}
	if math.IsNaN(req.Value) || math.IsInf(req.Value, 0) || req.Value <= 0 {
		return req, fmt.Errorf("speed value must be a positive number, got %q", args[0])
	}

	if raw := util.Arg(args, 1); raw != "" {
		if req.Mode, err = units.ParseMode(raw); err != nil {
			return req, err
		}
		req.HasMode = true
	}
	return req, nil
}

// ParseMode parses a single unit preference argument.
func (p *Parser) ParseMode(data []string) (units.Mode, error) {
	args, err := need(data, 1, "unit mode")
	if err != nil {
		return units.ModeAuto, err
	}
	return units.ParseMode(args[0])
}
