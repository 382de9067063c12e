package otel_test

import (
	"context"
	"testing"

	"github.com/easyops/astrocontext-go/pkg/otel"
)

func TestInMemoryMetrics_Counter(t *testing.T) {
	ctx := context.Background()
	m := otel.NewInMemoryMetrics()

	c := m.Counter("pipeline.builds")
	c.Add(ctx, 1)
	c.Add(ctx, 2, otel.NewAttr("step", "retrieval"))

	if got := m.GetCounterValue("pipeline.builds"); got != 3 {
		t.Fatalf("expected counter value 3, got %d", got)
	}
	if got := m.GetCounterValue("unknown"); got != 0 {
		t.Fatalf("expected 0 for unknown counter, got %d", got)
	}
}

func TestInMemoryMetrics_CounterReuse(t *testing.T) {
	ctx := context.Background()
	m := otel.NewInMemoryMetrics()

	// Same name returns the same instrument
	m.Counter("x").Add(ctx, 1)
	m.Counter("x").Add(ctx, 1)

	if got := m.GetCounterValue("x"); got != 2 {
		t.Fatalf("expected accumulated value 2, got %d", got)
	}
}

func TestInMemoryMetrics_Histogram(t *testing.T) {
	ctx := context.Background()
	m := otel.NewInMemoryMetrics()

	h := m.Histogram("build.duration")
	h.Record(ctx, 12.5)
	h.Record(ctx, 7.5)

	values := m.GetHistogramValues("build.duration")
	if len(values) != 2 || values[0] != 12.5 || values[1] != 7.5 {
		t.Fatalf("expected recorded values [12.5 7.5], got %v", values)
	}
	if m.GetHistogramValues("unknown") != nil {
		t.Fatal("expected nil for unknown histogram")
	}
}

func TestInMemoryMetrics_Gauge(t *testing.T) {
	ctx := context.Background()
	m := otel.NewInMemoryMetrics()

	g := m.Gauge("memory.tokens")
	g.Set(ctx, 100)
	g.Set(ctx, 42)

	// Gauge keeps only the latest value
	if got := m.GetGaugeValue("memory.tokens"); got != 42 {
		t.Fatalf("expected gauge value 42, got %v", got)
	}
}

func TestNoopMetrics(t *testing.T) {
	ctx := context.Background()
	m := otel.NewNoopMetrics()

	// All operations are safe no-ops
	m.Counter("c").Add(ctx, 1)
	m.Histogram("h").Record(ctx, 1.0)
	m.Gauge("g").Set(ctx, 1.0)
}
