package main

import "C" // required for -buildmode=c-shared

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/RoadSpeedAdjuster/extension/internal/config"
	"github.com/RoadSpeedAdjuster/extension/internal/dispatcher"
	"github.com/RoadSpeedAdjuster/extension/internal/engine"
	"github.com/RoadSpeedAdjuster/extension/internal/handlers"
	"github.com/RoadSpeedAdjuster/extension/internal/influx"
	"github.com/RoadSpeedAdjuster/extension/internal/logging"
	"github.com/RoadSpeedAdjuster/extension/internal/network"
	"github.com/RoadSpeedAdjuster/extension/internal/scope"
	"github.com/RoadSpeedAdjuster/extension/internal/storage"
	"github.com/RoadSpeedAdjuster/extension/internal/tool"
	"github.com/RoadSpeedAdjuster/extension/internal/units"
	"github.com/RoadSpeedAdjuster/extension/pkg/hostabi"
)

// module defs - BuildDate can be set at build time via ldflags
var (
	CurrentExtensionVersion string = "0.0.1"
	BuildDate               string = "unknown"

	ExtensionName string = "roadspeed"
)

var (
	// SlogManager handles all slog-based logging
	SlogManager *logging.SlogManager

	// Logger is the slog logger (convenience reference)
	Logger *slog.Logger

	LogFile *os.File

	// logWriter is the session log, or stdout when it could not be opened
	logWriter io.Writer = os.Stdout

	SessionStartTime time.Time = time.Now()

	// Services
	scopeContext    *scope.Context
	storageBackend  storage.Backend
	influxManager   *influx.Manager
	controller      *tool.Controller
	eventDispatcher *dispatcher.Dispatcher
)

// init is run automatically when the library is loaded
func init() {
	moduleFolder := ModuleFolder()

	// console logging until the config tells us where the file goes
	SlogManager = logging.NewSlogManager()
	SlogManager.Setup(nil, "info", nil)
	Logger = SlogManager.Logger()

	if err := config.Load(moduleFolder); err != nil {
		Logger.Warn("Failed to load config, using defaults!", "error", err)
	} else {
		Logger.Info("Loaded config")
	}

	setupLogging(moduleFolder)

	if err := setupServices(moduleFolder); err != nil {
		Logger.Error("Failed to set up extension!", "error", err)
		panic(err)
	}
	Logger.Info("Extension ready", "version", CurrentExtensionVersion, "buildDate", BuildDate,
		"commands", len(eventDispatcher.Commands()))
}

// resolvePath anchors relative config paths at the module folder.
func resolvePath(moduleFolder, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(moduleFolder, p)
}

func setupLogging(moduleFolder string) {
	scopeContext = scope.NewContext()
	SlogManager.SetContextProvider(scopeContext.LogAttrs)

	logPath := logging.LogFilePath(resolvePath(moduleFolder, config.GetString("logsDir")), ExtensionName, SessionStartTime)
	var file io.Writer
	f, err := logging.OpenLogFile(logPath)
	if err != nil {
		Logger.Error("Failed to create/open log file!", "error", err, "path", logPath)
	} else {
		LogFile = f
		logWriter = f
		file = f
	}

	var remote io.Writer
	if gl := config.GetGraylogConfig(); gl.Enabled {
		w, err := logging.NewGraylogWriter(gl.Address, ExtensionName)
		if err != nil {
			Logger.Error("Failed to set up Graylog", "error", err)
		} else {
			remote = w
		}
	}

	SlogManager.Setup(file, config.GetString("logLevel"), remote)
	Logger = SlogManager.Logger()
	slog.SetDefault(Logger)
	Logger.Info("Logging to file", "path", logPath)
}

func setupServices(moduleFolder string) error {
	zlog := logging.NewZerolog(logWriter, config.GetString("logLevel"))

	var err error
	eventDispatcher, err = dispatcher.New(logging.NewDispatcherLogger(zlog))
	if err != nil {
		return fmt.Errorf("failed to create dispatcher: %w", err)
	}

	storageCfg := config.GetStorageConfig()
	storageCfg.Dir = resolvePath(moduleFolder, storageCfg.Dir)
	storageCfg.SQLite.Path = resolvePath(moduleFolder, storageCfg.SQLite.Path)
	storageBackend, err = storage.NewBackend(storageCfg, zlog)
	if err != nil {
		return fmt.Errorf("failed to set up storage: %w", err)
	}
	Logger.Info("Storage ready", "type", storageCfg.Type)

	var recorder engine.Recorder
	influxCfg := config.GetInfluxConfig()
	influxCfg.BackupPath = resolvePath(moduleFolder, influxCfg.BackupPath)
	influxManager = influx.NewManager(zlog, influxCfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := influxManager.Connect(ctx); err != nil {
		Logger.Info("Override telemetry off", "reason", err)
	} else {
		recorder = influxManager
	}

	unitsCfg := config.GetUnitsConfig()
	mode, err := units.ParseMode(unitsCfg.Preference)
	if err != nil {
		Logger.Warn("Invalid unit preference, using auto", "preference", unitsCfg.Preference)
		mode = units.ModeAuto
	}

	bridge := hostabi.NewBridge(ExtensionName, hostabi.DefaultOutboxSize)
	host := handlers.NewHost(bridge, Logger)
	mirror := network.NewMirror(host)

	controller = tool.New(tool.Dependencies{
		Network:     mirror,
		Persister:   storageBackend,
		Highlighter: host,
		Notifier:    host,
		Recorder:    recorder,
		Scope:       scopeContext,
		Logger:      Logger,
	}, tool.Settings{
		Mode:        mode,
		Step:        unitsCfg.Step,
		LabelHeight: config.GetLabelsConfig().Height,
	})

	handlers.NewService(handlers.Dependencies{
		Controller: controller,
		Network:    mirror,
		Outbox:     bridge,
		Logger:     Logger,
	}).RegisterHandlers(eventDispatcher)
	registerLifecycleHandlers(eventDispatcher)

	abi.version = CurrentExtensionVersion
	abi.dispatcher = eventDispatcher
	abi.bridge = bridge
	return nil
}

func registerLifecycleHandlers(d *dispatcher.Dispatcher) {
	d.Register(":VERSION:", func(e dispatcher.Event) (any, error) {
		return []string{CurrentExtensionVersion, BuildDate}, nil
	})

	d.Register(":COMMANDS:", func(e dispatcher.Event) (any, error) {
		return d.Commands(), nil
	})

	d.Register(":LOG:", func(e dispatcher.Event) (any, error) {
		if len(e.Args) < 2 {
			return nil, fmt.Errorf(":LOG: expects function, data and an optional level")
		}
		level := "INFO"
		if len(e.Args) > 2 {
			level = e.Args[2]
		}
		SlogManager.WriteLog(e.Args[0], e.Args[1], level)
		return nil, nil
	})

	// the host calls this before unloading the library
	d.Register(":SHUTDOWN:", func(e dispatcher.Event) (any, error) {
		if controller != nil {
			controller.CloseScope()
		}
		if influxManager != nil {
			if err := influxManager.Close(); err != nil {
				Logger.Warn("Failed to close influx", "error", err)
			}
		}
		if storageBackend != nil {
			if err := storageBackend.Close(); err != nil {
				Logger.Warn("Failed to close storage", "error", err)
			}
		}
		Logger.Info("Extension shut down")
		return "ok", nil
	}, dispatcher.Exclusive(), dispatcher.Logged())
}

func main() {}
