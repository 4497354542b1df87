package engine

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/RoadSpeedAdjuster/extension/internal/engine"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

type counters struct {
	applied metric.Int64Counter
	reset   metric.Int64Counter
	skipped metric.Int64Counter
	cleared metric.Int64Counter
}

func newCounters() (counters, error) {
	m := meter()
	var c counters
	var err error

	if c.applied, err = m.Int64Counter("overrides.applied",
		metric.WithDescription("Segments whose speed was overridden")); err != nil {
		return c, fmt.Errorf("creating applied counter: %w", err)
	}
	if c.reset, err = m.Int64Counter("overrides.reset",
		metric.WithDescription("Segments restored to their original speed")); err != nil {
		return c, fmt.Errorf("creating reset counter: %w", err)
	}
	if c.skipped, err = m.Int64Counter("overrides.skipped",
		metric.WithDescription("Segments skipped by apply, reset or clear")); err != nil {
		return c, fmt.Errorf("creating skipped counter: %w", err)
	}
	if c.cleared, err = m.Int64Counter("overrides.cleared",
		metric.WithDescription("Segments reverted by a bulk clear")); err != nil {
		return c, fmt.Errorf("creating cleared counter: %w", err)
	}
	return c, nil
}

func (e *Engine) count(c metric.Int64Counter, n int) {
	if n == 0 {
		return
	}
	c.Add(context.Background(), int64(n), metric.WithAttributes(attribute.String("scope", e.store.Scope())))
}
