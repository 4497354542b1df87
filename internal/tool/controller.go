// Package tool wires the selection session, the override store and the
// engine into the four user actions of the speed tool, and manages their
// lifetime across city loads.
package tool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/RoadSpeedAdjuster/extension/internal/engine"
	"github.com/RoadSpeedAdjuster/extension/internal/labelcache"
	"github.com/RoadSpeedAdjuster/extension/internal/network"
	"github.com/RoadSpeedAdjuster/extension/internal/overrides"
	"github.com/RoadSpeedAdjuster/extension/internal/scope"
	"github.com/RoadSpeedAdjuster/extension/internal/selection"
	"github.com/RoadSpeedAdjuster/extension/internal/units"
)

// ErrNoScope is returned by actions that need an open city.
var ErrNoScope = errors.New("no city loaded")

// imperialTheme is the map theme whose cities use imperial speed signs.
const imperialTheme = "North American"

// Panel is what the host shows after a selection is finalized.
type Panel struct {
	Segments []network.SegmentID `json:"segments"`
	// Value is the speed to pre-fill, in the resolved display system.
	Value  float64 `json:"value"`
	Label  string  `json:"label"`
	System string  `json:"system"`
	Mode   string  `json:"mode"`
}

// Notifier pushes selection changes to the host UI.
type Notifier interface {
	SelectionFinalized(p Panel)
	SelectionCleared()
}

// SegmentLabel is the overlay text of one overridden segment.
type SegmentLabel struct {
	Segment  network.SegmentID `json:"segment"`
	Kmh      int               `json:"kmh"`
	Text     string            `json:"text"`
	Position *network.Position `json:"position,omitempty"`
}

// Dependencies holds the collaborators of a Controller.
type Dependencies struct {
	Network     *network.Mirror
	Persister   overrides.Persister
	Highlighter selection.Highlighter
	Notifier    Notifier
	Recorder    engine.Recorder
	Scope       *scope.Context
	Logger      *slog.Logger
}

// Settings are the configured defaults.
type Settings struct {
	Mode        units.Mode
	Step        float64
	LabelHeight float64
}

// Controller is driven by one logical owner; it is not safe for concurrent
// use.
type Controller struct {
	deps     Dependencies
	settings Settings

	session *selection.Session
	labels  labelcache.Labels

	store  *overrides.Store
	engine *engine.Engine

	mode   units.Mode
	active bool
	now    func() time.Time
}

// New creates a controller with no city loaded.
func New(deps Dependencies, settings Settings) *Controller {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Scope == nil {
		deps.Scope = scope.NewContext()
	}
	if deps.Network == nil {
		deps.Network = network.NewMirror(nil)
	}

	c := &Controller{
		deps:     deps,
		settings: settings,
		labels:   labelcache.NewLabels(),
		mode:     settings.Mode,
		now:      time.Now,
	}
	c.session = selection.NewSession(deps.Highlighter, c)
	return c
}

// OpenScope loads the named city's overrides and restores them onto the
// network, so the host feeds the network before opening the scope. An open
// scope is closed first; the mirrored network is kept.
func (c *Controller) OpenScope(ctx context.Context, name string) (engine.Result, error) {
	if c.store != nil {
		c.closeScope()
	}

	key := overrides.SanitizeScopeName(name)
	store := overrides.Open(ctx, name, c.deps.Persister, overrides.WithLogger(c.deps.Logger))
	eng, err := engine.New(c.deps.Network, store,
		engine.WithLogger(c.deps.Logger),
		engine.WithStep(c.settings.Step),
		engine.WithRecorder(c.deps.Recorder),
	)
	if err != nil {
		return engine.Result{}, fmt.Errorf("failed to create engine: %w", err)
	}

	c.store = store
	c.engine = eng
	c.deps.Scope.Open(name, key, c.now())
	c.labels.InvalidateAll()

	c.deps.Logger.Info("Opened scope", "name", name, "overrides", store.Len(), "degraded", store.Degraded())
	return eng.ReapplyAll(), nil
}

// CloseScope drops the city's state and the mirrored network. Every change
// was already persisted.
func (c *Controller) CloseScope() {
	c.closeScope()
	c.deps.Network.Reset()
}

func (c *Controller) closeScope() {
	c.session.Cancel()
	if c.store != nil {
		c.deps.Logger.Info("Closed scope", "name", c.store.Scope(), "overrides", c.store.Len())
	}
	c.store = nil
	c.engine = nil
	c.deps.Scope.Close()
	c.labels.InvalidateAll()
}

// Store returns the open city's store, or nil.
func (c *Controller) Store() *overrides.Store {
	return c.store
}

// Session returns the selection session.
func (c *Controller) Session() *selection.Session {
	return c.session
}

// SetTheme switches the Auto context by map theme. It reports whether the
// context changed; cached labels are dropped when it did.
func (c *Controller) SetTheme(theme string) bool {
	metric := theme != imperialTheme
	if metric == c.deps.Network.IsMetricContext() {
		return false
	}
	c.deps.Network.SetMetricContext(metric)
	c.labels.InvalidateAll()
	c.deps.Logger.Info("Map theme changed", "theme", theme, "metric", metric)
	return true
}

// SetActive turns the tool on or off. Turning it off drops the selection.
func (c *Controller) SetActive(active bool) {
	if c.active && !active {
		c.session.Cancel()
	}
	c.active = active
}

// Active reports whether the tool is on.
func (c *Controller) Active() bool {
	return c.active
}

// PointerDown forwards a press to the session while the tool is active.
func (c *Controller) PointerDown(hit *network.SegmentID) {
	if c.active {
		c.session.PointerDown(hit)
	}
}

// PointerMove forwards pointer motion to the session while the tool is active.
func (c *Controller) PointerMove(hit *network.SegmentID) {
	if c.active {
		c.session.PointerMove(hit)
	}
}

// PointerUp forwards a release to the session while the tool is active.
func (c *Controller) PointerUp() {
	if c.active {
		c.session.PointerUp()
	}
}

// PointerCancel abandons the current gesture.
func (c *Controller) PointerCancel() {
	c.session.Cancel()
}

// Mode returns the unit preference.
func (c *Controller) Mode() units.Mode {
	return c.mode
}

// System returns the unit system the preference currently resolves to.
func (c *Controller) System() units.System {
	return c.mode.Resolve(c.deps.Network.IsMetricContext())
}

// ToggleUnitMode advances the unit preference and returns the new one.
func (c *Controller) ToggleUnitMode() units.Mode {
	c.SetUnitMode(c.mode.Next())
	return c.mode
}

// SetUnitMode sets the unit preference and drops cached labels. A finalized
// selection is re-announced so the panel shows its value in the new unit.
func (c *Controller) SetUnitMode(m units.Mode) {
	if m == c.mode {
		return
	}
	c.mode = m
	c.labels.InvalidateAll()
	c.deps.Logger.Debug("Unit mode changed", "mode", m)
	if sel := c.session.Selection(); len(sel) > 0 {
		c.OnSelectionFinalized(sel)
	}
}

// Apply sets the finalized selection to value, typed in mode.
func (c *Controller) Apply(value float64, mode units.Mode) (engine.Result, error) {
	if c.engine == nil {
		return engine.Result{}, ErrNoScope
	}
	res := c.engine.Apply(c.session.Selection(), value, mode)
	c.refreshPanel()
	return res, nil
}

// Reset restores the finalized selection to its original speeds.
func (c *Controller) Reset() (engine.Result, error) {
	if c.engine == nil {
		return engine.Result{}, ErrNoScope
	}
	res := c.engine.Reset(c.session.Selection())
	c.refreshPanel()
	return res, nil
}

// ClearAll reverts every override in the city.
func (c *Controller) ClearAll() (engine.Result, error) {
	if c.engine == nil {
		return engine.Result{}, ErrNoScope
	}
	return c.engine.ClearAll(), nil
}

// Reapply restores the override of a segment the host just rebuilt.
func (c *Controller) Reapply(id network.SegmentID) error {
	if c.engine == nil {
		return ErrNoScope
	}
	return c.engine.Reapply(id)
}

// Stats returns the store statistics line.
func (c *Controller) Stats() (string, error) {
	if c.store == nil {
		return "", ErrNoScope
	}
	return c.store.Stats(), nil
}

// Labels returns overlay labels for the given segments, or for every
// overridden segment when ids is empty. Segments without an override are
// left out.
func (c *Controller) Labels(ids []network.SegmentID) ([]SegmentLabel, error) {
	if c.store == nil {
		return nil, ErrNoScope
	}

	if len(ids) == 0 {
		for r := range c.store.AllRecords() {
			ids = append(ids, r.SegmentID)
		}
	}

	system := c.System()
	out := make([]SegmentLabel, 0, len(ids))
	for _, id := range ids {
		id = c.deps.Network.ResolveCanonical(id)
		cur, ok := c.store.GetCurrent(id)
		if !ok {
			continue
		}
		label := c.labels.Label(cur, system)
		sl := SegmentLabel{Segment: id, Kmh: label.Kmh, Text: label.Text}
		if pos, ok := c.deps.Network.Anchor(id, c.settings.LabelHeight); ok {
			sl.Position = &pos
		}
		out = append(out, sl)
	}
	return out, nil
}

// LabelCache exposes the label cache for statistics.
func (c *Controller) LabelCache() labelcache.Labels {
	return c.labels
}

// OnSelectionFinalized implements selection.Listener.
func (c *Controller) OnSelectionFinalized(ids []network.SegmentID) {
	if c.deps.Notifier == nil {
		return
	}

	system := c.System()
	p := Panel{
		Segments: ids,
		System:   system.String(),
		Mode:     c.mode.String(),
	}
	if c.engine != nil && len(ids) > 0 {
		if kmh, ok := c.engine.CurrentValue(ids[0]); ok {
			label := c.labels.Label(kmh, system)
			p.Value = units.Quantize(units.FromKmh(kmh, system), c.settings.Step)
			p.Label = label.Text
		}
	}
	c.deps.Notifier.SelectionFinalized(p)
}

// OnSelectionCleared implements selection.Listener.
func (c *Controller) OnSelectionCleared() {
	if c.deps.Notifier != nil {
		c.deps.Notifier.SelectionCleared()
	}
}

func (c *Controller) refreshPanel() {
	if sel := c.session.Selection(); len(sel) > 0 {
		c.OnSelectionFinalized(sel)
	}
}
