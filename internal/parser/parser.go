// Package parser turns the raw string arguments of host commands into typed
// values. It never touches the network mirror or the store.
package parser

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/RoadSpeedAdjuster/extension/internal/network"
	"github.com/RoadSpeedAdjuster/extension/internal/util"
)

// parseUintFromFloat parses a string that may be an integer ("32") or float ("32.00") into uint64.
// The host scripting language has no integer type, so ids may arrive serialized as floats.
func parseUintFromFloat(s string) (uint64, error) {
	if v, err := strconv.ParseUint(s, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f < 0 || f != float64(uint64(f)) {
		return 0, fmt.Errorf("parseUintFromFloat: %q is not a valid uint64", s)
	}
	return uint64(f), nil
}

// parseBool accepts the spellings the host uses for booleans.
func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "true", "1", "1.0", "yes", "on":
		return true, nil
	case "false", "0", "0.0", "no", "off", "":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean %q", s)
}

// Parser provides pure []string -> typed value conversion.
// It has zero external dependencies beyond a logger.
type Parser struct {
	logger *slog.Logger
}

// NewParser creates a new parser with only a logger dependency
func NewParser(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{logger: logger}
}

// need cleans args and checks that at least n are present.
func need(data []string, n int, what string) ([]string, error) {
	args := util.CleanArgs(data)
	if len(args) < n {
		return args, fmt.Errorf("%s: expected %d args, got %d", what, n, len(args))
	}
	return args, nil
}

func parseSegmentID(s, field string) (network.SegmentID, error) {
	v, err := parseUintFromFloat(s)
	if err != nil {
		return 0, fmt.Errorf("error parsing %s: %w", field, err)
	}
	return network.SegmentID(v), nil
}

// ParseSegmentID parses a single segment id argument.
func (p *Parser) ParseSegmentID(data []string) (network.SegmentID, error) {
	args, err := need(data, 1, "segment id")
	if err != nil {
		return 0, err
	}
	return parseSegmentID(args[0], "segment id")
}

// ParseName returns the first argument, which must not be empty.
func (p *Parser) ParseName(data []string) (string, error) {
	args, err := need(data, 1, "name")
	if err != nil {
		return "", err
	}
	if args[0] == "" {
		return "", fmt.Errorf("name must not be empty")
	}
	return args[0], nil
}

// ParseBool parses a single boolean argument.
func (p *Parser) ParseBool(data []string) (bool, error) {
	args, err := need(data, 1, "flag")
	if err != nil {
		return false, err
	}
	return parseBool(args[0])
}
