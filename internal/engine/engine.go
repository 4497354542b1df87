// Package engine applies speed overrides to selected segments, resets them
// to the speeds observed before the first override, and restores stored
// overrides when a scope is reopened.
//
// All values stored in the override table are km/h. Lanes are written in the
// host's canonical unit. Operations are not transactional across segments:
// each segment succeeds or is skipped on its own and the Result lists which.
package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/RoadSpeedAdjuster/extension/internal/network"
	"github.com/RoadSpeedAdjuster/extension/internal/overrides"
	"github.com/RoadSpeedAdjuster/extension/internal/units"
	"gonum.org/v1/gonum/stat"
)

var (
	// ErrEmptySelection is reported when an action has no segments to act on.
	ErrEmptySelection = errors.New("empty selection")
	// ErrSegmentGone is reported for segments the host no longer has.
	ErrSegmentGone = errors.New("segment no longer exists")
	// ErrNoOriginal is reported when resetting a segment that was never
	// overridden.
	ErrNoOriginal = errors.New("no original speed recorded")
	// ErrNoTraversableLanes is reported for segments without a lane that
	// carries a speed limit.
	ErrNoTraversableLanes = errors.New("segment has no traversable lanes")
)

// Skip is a segment an operation did not change, and why.
type Skip struct {
	Segment network.SegmentID
	Err     error
}

// Result summarizes a multi-segment operation.
type Result struct {
	Applied int
	Skipped []Skip
	// Err is set when the operation as a whole did not run, or when its
	// final persistence step failed.
	Err error
}

func (r *Result) skip(id network.SegmentID, err error) {
	r.Skipped = append(r.Skipped, Skip{Segment: id, Err: err})
}

// Engine performs apply, reset and restore against one scope's store.
type Engine struct {
	model    network.Model
	store    *overrides.Store
	step     float64
	logger   *slog.Logger
	recorder Recorder
	now      func() time.Time
	counters counters
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine's logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithStep sets the display quantization step. Values <= 0 use
// units.DefaultStep.
func WithStep(step float64) Option {
	return func(e *Engine) {
		e.step = step
	}
}

// WithRecorder sends per-segment change events to r.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) {
		if r != nil {
			e.recorder = r
		}
	}
}

// WithClock overrides time.Now for recorded events.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// New creates an engine over model and store.
// Uses the global OTel meter for metrics (no-op if not configured).
func New(model network.Model, store *overrides.Store, opts ...Option) (*Engine, error) {
	if model == nil || store == nil {
		return nil, errors.New("engine needs a network model and a store")
	}

	e := &Engine{
		model:    model,
		store:    store,
		step:     units.DefaultStep,
		logger:   slog.Default(),
		recorder: nopRecorder{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}

	var err error
	if e.counters, err = newCounters(); err != nil {
		return nil, err
	}
	return e, nil
}

// Store returns the store the engine writes to.
func (e *Engine) Store() *overrides.Store {
	return e.store
}

// resolve maps a preview copy to the segment it stands for. Every
// per-segment operation starts here.
func (e *Engine) resolve(id network.SegmentID) network.SegmentID {
	return e.model.ResolveCanonical(id)
}

// averageKmh is the mean speed of lanes in km/h.
func averageKmh(lanes []network.Lane) float64 {
	speeds := make([]float64, len(lanes))
	for i, l := range lanes {
		speeds[i] = l.Speed
	}
	return stat.Mean(speeds, nil) * units.GameUnitsToKmh
}

// writeLanes sets every lane to canonical. All lanes are attempted.
func (e *Engine) writeLanes(lanes []network.Lane, canonical float64) error {
	var errs []error
	for _, l := range lanes {
		if err := e.model.WriteSpeed(l.ID, canonical); err != nil {
			errs = append(errs, fmt.Errorf("lane %s: %w", l.ID, err))
		}
	}
	return errors.Join(errs...)
}

// tolerate passes through everything but storage outages, which are logged.
// The in-memory table already holds the change and the next successful save
// persists it.
func (e *Engine) tolerate(err error, id network.SegmentID) error {
	if errors.Is(err, overrides.ErrStorageUnavailable) {
		e.logger.Warn("Override not persisted", "segment", id, "error", err)
		return nil
	}
	return err
}

func (e *Engine) record(kind EventKind, id network.SegmentID, from, to float64) {
	e.recorder.RecordOverride(Event{
		Kind:    kind,
		Scope:   e.store.Scope(),
		Segment: id,
		FromKmh: from,
		ToKmh:   to,
		Time:    e.now(),
	})
}

// Apply sets the speed of every selected segment to displayValue,
// interpreted in mode. The value is quantized to the step and then clamped
// to each segment's bounds. The original speed of a segment is captured the
// first time it is overridden.
func (e *Engine) Apply(selection []network.SegmentID, displayValue float64, mode units.Mode) Result {
	var res Result
	if len(selection) == 0 {
		e.logger.Info("Apply ignored, nothing selected")
		res.Err = ErrEmptySelection
		return res
	}

	system := mode.Resolve(e.model.IsMetricContext())
	display := units.Quantize(displayValue, e.step)

	seen := make(map[network.SegmentID]bool, len(selection))
	for _, raw := range selection {
		id := e.resolve(raw)
		if seen[id] {
			continue
		}
		seen[id] = true

		if err := e.applyOne(id, display, system); err != nil {
			e.logger.Warn("Skipped segment on apply", "segment", id, "error", err)
			res.skip(id, err)
			continue
		}
		res.Applied++
	}

	e.count(e.counters.applied, res.Applied)
	e.count(e.counters.skipped, len(res.Skipped))
	e.logger.Info("Applied speed override",
		"value", display, "system", system, "applied", res.Applied, "skipped", len(res.Skipped))
	return res
}

func (e *Engine) applyOne(id network.SegmentID, display float64, system units.System) error {
	if !e.model.Exists(id) {
		return ErrSegmentGone
	}
	all := e.model.Lanes(id)
	lanes := network.Traversable(all)
	if len(lanes) == 0 {
		return ErrNoTraversableLanes
	}

	value := units.Bounds(network.KindOf(all), system).Clamp(display)
	kmh := units.ToKmh(value, system)
	canonical := units.ToCanonical(value, system)

	from := averageKmh(lanes)
	if _, err := e.store.CaptureOriginal(id, from); e.tolerate(err, id) != nil {
		return err
	}
	if cur, ok := e.store.GetCurrent(id); ok {
		from = cur
	}
	if err := e.store.SetCurrent(id, kmh); e.tolerate(err, id) != nil {
		return err
	}
	if err := e.writeLanes(lanes, canonical); err != nil {
		return err
	}

	e.record(EventApply, id, from, kmh)
	return nil
}

// Reset restores every selected segment to its original speed and forgets
// its override.
func (e *Engine) Reset(selection []network.SegmentID) Result {
	var res Result
	if len(selection) == 0 {
		e.logger.Info("Reset ignored, nothing selected")
		res.Err = ErrEmptySelection
		return res
	}

	seen := make(map[network.SegmentID]bool, len(selection))
	for _, raw := range selection {
		id := e.resolve(raw)
		if seen[id] {
			continue
		}
		seen[id] = true

		if err := e.resetOne(id); err != nil {
			e.logger.Warn("Skipped segment on reset", "segment", id, "error", err)
			res.skip(id, err)
			continue
		}
		res.Applied++
	}

	e.count(e.counters.reset, res.Applied)
	e.count(e.counters.skipped, len(res.Skipped))
	e.logger.Info("Reset speed override", "reset", res.Applied, "skipped", len(res.Skipped))
	return res
}

func (e *Engine) resetOne(id network.SegmentID) error {
	if !e.model.Exists(id) {
		return ErrSegmentGone
	}
	rec, ok := e.store.Get(id)
	if !ok {
		return ErrNoOriginal
	}

	lanes := network.Traversable(e.model.Lanes(id))
	if err := e.writeLanes(lanes, units.KmhToCanonical(rec.OriginalValue)); err != nil {
		return err
	}
	if err := e.store.Remove(id); e.tolerate(err, id) != nil {
		return err
	}

	e.record(EventReset, id, rec.CurrentValue, rec.OriginalValue)
	return nil
}

// ClearAll reverts every tracked segment that still exists and empties the
// table. Segments the host no longer has, or whose lanes the host refused,
// are reported as skipped; the table is cleared regardless.
func (e *Engine) ClearAll() Result {
	var res Result

	for rec := range e.store.AllRecords() {
		if !e.model.Exists(rec.SegmentID) {
			e.logger.Warn("Skipped vanished segment on clear", "segment", rec.SegmentID)
			res.skip(rec.SegmentID, ErrSegmentGone)
			continue
		}
		lanes := network.Traversable(e.model.Lanes(rec.SegmentID))
		if err := e.writeLanes(lanes, units.KmhToCanonical(rec.OriginalValue)); err != nil {
			e.logger.Warn("Failed to revert segment on clear", "segment", rec.SegmentID, "error", err)
			res.skip(rec.SegmentID, err)
			continue
		}
		e.record(EventClear, rec.SegmentID, rec.CurrentValue, rec.OriginalValue)
		res.Applied++
	}

	if err := e.store.Clear(); err != nil {
		e.logger.Error("Failed to persist cleared table", "error", err)
		res.Err = err
	}

	e.count(e.counters.cleared, res.Applied)
	e.count(e.counters.skipped, len(res.Skipped))
	e.logger.Info("Cleared all overrides", "reverted", res.Applied, "skipped", len(res.Skipped))
	return res
}

// CurrentValue returns the speed to show for id in km/h: the override when
// one exists, otherwise the mean of its traversable lanes.
func (e *Engine) CurrentValue(id network.SegmentID) (float64, bool) {
	id = e.resolve(id)
	if cur, ok := e.store.GetCurrent(id); ok {
		return cur, true
	}
	if !e.model.Exists(id) {
		return 0, false
	}
	lanes := network.Traversable(e.model.Lanes(id))
	if len(lanes) == 0 {
		return 0, false
	}
	return averageKmh(lanes), true
}

// Reapply writes the stored override of id back to its lanes, for when the
// host rebuilt them. Segments without an override are left alone.
func (e *Engine) Reapply(id network.SegmentID) error {
	id = e.resolve(id)
	cur, ok := e.store.GetCurrent(id)
	if !ok {
		return nil
	}
	if !e.model.Exists(id) {
		return ErrSegmentGone
	}
	return e.writeLanes(network.Traversable(e.model.Lanes(id)), units.KmhToCanonical(cur))
}

// ReapplyAll restores every stored override whose segment exists.
func (e *Engine) ReapplyAll() Result {
	var res Result
	for rec := range e.store.AllRecords() {
		if err := e.Reapply(rec.SegmentID); err != nil {
			res.skip(rec.SegmentID, err)
			continue
		}
		res.Applied++
	}
	if len(res.Skipped) > 0 {
		e.logger.Warn("Some overrides could not be restored", "skipped", len(res.Skipped))
	}
	e.logger.Info("Restored overrides", "scope", e.store.Scope(), "restored", res.Applied)
	return res
}
