// Package units converts lane speeds between the canonical game unit and the
// display systems shown to the player.
package units

import (
	"fmt"
	"math"
	"strings"
)

const (
	// GameUnitsToKmh converts a lane speed in game units to km/h.
	GameUnitsToKmh = 1.8
	// KmhToMph converts km/h to mph.
	KmhToMph = 0.621371
	// DefaultStep is the quantization step applied to display values.
	DefaultStep = 5.0
)

// System is a resolved display unit system.
type System int

const (
	Metric System = iota
	Imperial
)

func (s System) String() string {
	if s == Imperial {
		return "imperial"
	}
	return "metric"
}

// Suffix is the unit text appended to labels.
func (s System) Suffix() string {
	if s == Imperial {
		return "mph"
	}
	return "km/h"
}

// Mode is the player's unit preference. Auto follows the map context.
type Mode int

const (
	ModeAuto Mode = iota
	ModeMetric
	ModeImperial
)

func (m Mode) String() string {
	switch m {
	case ModeMetric:
		return "metric"
	case ModeImperial:
		return "imperial"
	default:
		return "auto"
	}
}

// ParseMode accepts "auto", "metric" or "imperial" (case-insensitive).
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return ModeAuto, nil
	case "metric", "kmh", "km/h":
		return ModeMetric, nil
	case "imperial", "mph":
		return ModeImperial, nil
	default:
		return ModeAuto, fmt.Errorf("unknown unit mode %q", s)
	}
}

// Next cycles Auto -> Metric -> Imperial -> Auto.
func (m Mode) Next() Mode {
	switch m {
	case ModeAuto:
		return ModeMetric
	case ModeMetric:
		return ModeImperial
	default:
		return ModeAuto
	}
}

// Resolve turns the preference into a concrete system. contextIsMetric is
// only consulted for ModeAuto.
func (m Mode) Resolve(contextIsMetric bool) System {
	switch m {
	case ModeMetric:
		return Metric
	case ModeImperial:
		return Imperial
	}
	if contextIsMetric {
		return Metric
	}
	return Imperial
}

// ToKmh converts a display value in the given system to km/h.
func ToKmh(display float64, s System) float64 {
	if s == Imperial {
		return display / KmhToMph
	}
	return display
}

// FromKmh converts km/h to a display value in the given system.
func FromKmh(kmh float64, s System) float64 {
	if s == Imperial {
		return kmh * KmhToMph
	}
	return kmh
}

// ToDisplay converts a canonical lane speed to the display system.
func ToDisplay(canonical float64, s System) float64 {
	return FromKmh(canonical*GameUnitsToKmh, s)
}

// ToCanonical converts a display value to the canonical lane speed.
func ToCanonical(display float64, s System) float64 {
	return ToKmh(display, s) / GameUnitsToKmh
}

// KmhToCanonical converts km/h to the canonical lane speed.
func KmhToCanonical(kmh float64) float64 {
	return kmh / GameUnitsToKmh
}

// CanonicalToKmh converts a canonical lane speed to km/h.
func CanonicalToKmh(canonical float64) float64 {
	return canonical * GameUnitsToKmh
}

// Quantize rounds v to the nearest multiple of step. A non-positive step
// falls back to DefaultStep.
func Quantize(v, step float64) float64 {
	if step <= 0 {
		step = DefaultStep
	}
	return math.Round(v/step) * step
}
