package main

import (
	"fmt"

	"github.com/RoadSpeedAdjuster/extension/internal/dispatcher"
	"github.com/RoadSpeedAdjuster/extension/pkg/hostabi"
)

// abiConfig is what the exported entry points route through. It is filled
// in by init before the host makes its first call.
type abiConfig struct {
	// version is returned when the host first calls the extension
	version string

	// dispatcher handles event routing
	dispatcher *dispatcher.Dispatcher

	// bridge receives the host callback
	bridge *hostabi.Bridge
}

var abi = abiConfig{version: "No version set"}

func errNoHandler(command string) error {
	return fmt.Errorf("%s: no handler registered", command)
}
