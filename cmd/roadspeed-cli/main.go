// Command roadspeed-cli inspects and maintains stored speed overrides outside
// the game.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/RoadSpeedAdjuster/extension/internal/config"
	"github.com/RoadSpeedAdjuster/extension/internal/logging"
	"github.com/RoadSpeedAdjuster/extension/internal/storage"
)

func main() {
	configDir := os.Getenv("ROADSPEED_CONFIG_DIR")
	if configDir == "" {
		if exe, err := os.Executable(); err == nil {
			configDir = filepath.Dir(exe)
		} else {
			configDir = "."
		}
	}

	if err := config.Load(configDir); err != nil {
		fmt.Fprintln(os.Stderr, DimStyle.Render("Using default config: "+err.Error()))
	}

	zlog := logging.NewZerolog(os.Stderr, "warn")
	backend, err := storage.NewBackend(config.GetStorageConfig(), zlog)
	if err != nil {
		fmt.Fprintln(os.Stderr, ErrorStyle.Render(err.Error()))
		os.Exit(1)
	}
	defer backend.Close()

	if err := run(context.Background(), os.Args[1:], backend, os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, err)
		} else {
			fmt.Fprintln(os.Stderr, ErrorStyle.Render(err.Error()))
		}
		backend.Close()
		os.Exit(1)
	}
}
