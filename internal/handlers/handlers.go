// Package handlers registers the host command table on the dispatcher.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/RoadSpeedAdjuster/extension/internal/dispatcher"
	"github.com/RoadSpeedAdjuster/extension/internal/engine"
	"github.com/RoadSpeedAdjuster/extension/internal/network"
	"github.com/RoadSpeedAdjuster/extension/internal/parser"
	"github.com/RoadSpeedAdjuster/extension/internal/tool"
	"github.com/RoadSpeedAdjuster/extension/internal/util"
	"github.com/RoadSpeedAdjuster/extension/pkg/hostabi"
)

// updateQueueSize bounds pending :NET:UPDATED: reapplies.
const updateQueueSize = 1024

// Outbox drains messages queued for a host without a callback.
type Outbox interface {
	Flush(max int) []hostabi.Message
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Controller *tool.Controller
	Network    *network.Mirror
	Outbox     Outbox
	Logger     *slog.Logger
}

// Service maps host commands onto the controller and the network mirror.
type Service struct {
	deps   Dependencies
	parser *parser.Parser
}

// NewService creates a new handler service
func NewService(deps Dependencies) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Service{
		deps:   deps,
		parser: parser.NewParser(deps.Logger),
	}
}

// Summary is the response to an action.
type Summary struct {
	Applied int    `json:"applied"`
	Skipped int    `json:"skipped"`
	Empty   bool   `json:"empty,omitempty"`
	Warning string `json:"warning,omitempty"`
}

func summarize(res engine.Result) Summary {
	s := Summary{Applied: res.Applied, Skipped: len(res.Skipped)}
	if errors.Is(res.Err, engine.ErrEmptySelection) {
		s.Empty = true
	} else if res.Err != nil {
		s.Warning = res.Err.Error()
	}
	return s
}

// UnitState is the response to unit preference commands.
type UnitState struct {
	Mode   string `json:"mode"`
	System string `json:"system"`
}

func (s *Service) unitState() UnitState {
	return UnitState{Mode: s.deps.Controller.Mode().String(), System: s.deps.Controller.System().String()}
}

// RegisterHandlers registers every command. Everything that touches the tool
// runs under the dispatcher's owner lock.
func (s *Service) RegisterHandlers(d *dispatcher.Dispatcher) {
	s.registerScopeHandlers(d)
	s.registerNetworkHandlers(d)
	s.registerToolHandlers(d)
	s.registerActionHandlers(d)
	s.registerQueryHandlers(d)
}

func (s *Service) registerScopeHandlers(d *dispatcher.Dispatcher) {
	d.Register(":SCOPE:OPEN:", func(e dispatcher.Event) (any, error) {
		name, err := s.parser.ParseName(e.Args)
		if err != nil {
			return nil, err
		}
		res, err := s.deps.Controller.OpenScope(context.Background(), name)
		if err != nil {
			return nil, err
		}
		return map[string]any{"scope": name, "restored": res.Applied, "skipped": len(res.Skipped)}, nil
	}, dispatcher.Exclusive(), dispatcher.Logged())

	d.Register(":SCOPE:CLOSE:", func(e dispatcher.Event) (any, error) {
		s.deps.Controller.CloseScope()
		return "ok", nil
	}, dispatcher.Exclusive(), dispatcher.Logged())

	d.Register(":CONTEXT:THEME:", func(e dispatcher.Event) (any, error) {
		theme := util.Arg(util.CleanArgs(e.Args), 0)
		changed := s.deps.Controller.SetTheme(theme)
		return map[string]any{"metric": s.deps.Network.IsMetricContext(), "changed": changed}, nil
	}, dispatcher.Exclusive(), dispatcher.Logged())
}

func (s *Service) registerNetworkHandlers(d *dispatcher.Dispatcher) {
	d.Register(":NET:SEGMENT:", func(e dispatcher.Event) (any, error) {
		upd, err := s.parser.ParseSegment(e.Args)
		if err != nil {
			return nil, err
		}
		s.deps.Network.UpsertSegment(upd.ID, upd.Path)
		return "ok", nil
	}, dispatcher.Exclusive())

	d.Register(":NET:LANE:", func(e dispatcher.Event) (any, error) {
		lane, err := s.parser.ParseLane(e.Args)
		if err != nil {
			return nil, err
		}
		s.deps.Network.UpsertLane(lane)
		return "ok", nil
	}, dispatcher.Exclusive())

	// no args clears every preview mapping
	d.Register(":NET:TEMP:", func(e dispatcher.Event) (any, error) {
		if len(e.Args) == 0 {
			s.deps.Network.ClearTemps()
			return "ok", nil
		}
		m, err := s.parser.ParseTemp(e.Args)
		if err != nil {
			return nil, err
		}
		s.deps.Network.MapTemp(m.Temp, m.Original)
		return "ok", nil
	}, dispatcher.Exclusive())

	d.Register(":NET:REMOVE:", func(e dispatcher.Event) (any, error) {
		id, err := s.parser.ParseSegmentID(e.Args)
		if err != nil {
			return nil, err
		}
		s.deps.Network.RemoveSegment(id)
		return "ok", nil
	}, dispatcher.Exclusive())

	// The host fires this after rebuilding a segment's lanes, often in
	// bursts; the reapply runs off the host thread.
	d.Register(":NET:UPDATED:", func(e dispatcher.Event) (any, error) {
		id, err := s.parser.ParseSegmentID(e.Args)
		if err != nil {
			return nil, err
		}
		if err := s.deps.Controller.Reapply(id); err != nil && !errors.Is(err, tool.ErrNoScope) {
			return nil, err
		}
		return nil, nil
	}, dispatcher.Exclusive(), dispatcher.Buffered(updateQueueSize))
}

func (s *Service) registerToolHandlers(d *dispatcher.Dispatcher) {
	d.Register(":TOOL:ACTIVATE:", func(e dispatcher.Event) (any, error) {
		active, err := s.parser.ParseBool(e.Args)
		if err != nil {
			return nil, err
		}
		s.deps.Controller.SetActive(active)
		return active, nil
	}, dispatcher.Exclusive(), dispatcher.Logged())

	d.Register(":POINTER:DOWN:", func(e dispatcher.Event) (any, error) {
		hit, err := s.parser.ParseHit(e.Args)
		if err != nil {
			return nil, err
		}
		s.deps.Controller.PointerDown(hit)
		return s.deps.Controller.Session().State().String(), nil
	}, dispatcher.Exclusive())

	d.Register(":POINTER:MOVE:", func(e dispatcher.Event) (any, error) {
		hit, err := s.parser.ParseHit(e.Args)
		if err != nil {
			return nil, err
		}
		s.deps.Controller.PointerMove(hit)
		return s.deps.Controller.Session().State().String(), nil
	}, dispatcher.Exclusive())

	d.Register(":POINTER:UP:", func(e dispatcher.Event) (any, error) {
		s.deps.Controller.PointerUp()
		return s.deps.Controller.Session().State().String(), nil
	}, dispatcher.Exclusive())

	d.Register(":POINTER:CANCEL:", func(e dispatcher.Event) (any, error) {
		s.deps.Controller.PointerCancel()
		return s.deps.Controller.Session().State().String(), nil
	}, dispatcher.Exclusive())
}

func (s *Service) registerActionHandlers(d *dispatcher.Dispatcher) {
	d.Register(":APPLY:", func(e dispatcher.Event) (any, error) {
		req, err := s.parser.ParseApply(e.Args)
		if err != nil {
			return nil, err
		}
		mode := s.deps.Controller.Mode()
		if req.HasMode {
			mode = req.Mode
		}
		res, err := s.deps.Controller.Apply(req.Value, mode)
		if err != nil {
			return nil, err
		}
		return summarize(res), nil
	}, dispatcher.Exclusive(), dispatcher.Logged())

	d.Register(":RESET:", func(e dispatcher.Event) (any, error) {
		res, err := s.deps.Controller.Reset()
		if err != nil {
			return nil, err
		}
		return summarize(res), nil
	}, dispatcher.Exclusive(), dispatcher.Logged())

	d.Register(":UNITS:TOGGLE:", func(e dispatcher.Event) (any, error) {
		s.deps.Controller.ToggleUnitMode()
		return s.unitState(), nil
	}, dispatcher.Exclusive(), dispatcher.Logged())

	d.Register(":UNITS:SET:", func(e dispatcher.Event) (any, error) {
		mode, err := s.parser.ParseMode(e.Args)
		if err != nil {
			return nil, err
		}
		s.deps.Controller.SetUnitMode(mode)
		return s.unitState(), nil
	}, dispatcher.Exclusive(), dispatcher.Logged())

	d.Register(":CLEAR:ALL:", func(e dispatcher.Event) (any, error) {
		res, err := s.deps.Controller.ClearAll()
		if err != nil {
			return nil, err
		}
		return summarize(res), nil
	}, dispatcher.Exclusive(), dispatcher.Logged())
}

func (s *Service) registerQueryHandlers(d *dispatcher.Dispatcher) {
	d.Register(":LABELS:", func(e dispatcher.Event) (any, error) {
		ids, err := s.parser.ParseIDList(e.Args)
		if err != nil {
			return nil, err
		}
		return s.deps.Controller.Labels(ids)
	}, dispatcher.Exclusive())

	d.Register(":LANE:FLUSH:", func(e dispatcher.Event) (any, error) {
		limit := 0
		if raw := util.Arg(util.CleanArgs(e.Args), 0); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				return nil, fmt.Errorf("invalid flush limit %q: %w", raw, err)
			}
			limit = n
		}
		if s.deps.Outbox == nil {
			return []hostabi.Message{}, nil
		}
		return s.deps.Outbox.Flush(limit), nil
	})

	d.Register(":STATS:", func(e dispatcher.Event) (any, error) {
		return s.deps.Controller.Stats()
	}, dispatcher.Exclusive())
}
