package memory_test

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/easyops/astrocontext-go/pkg/memory"
)

func entryAccessedAgo(ago time.Duration, accessCount int) memory.MemoryEntry {
	e := memory.NewMemoryEntry("fact")
	e.LastAccessed = time.Now().UTC().Add(-ago)
	e.AccessCount = accessCount
	return e
}

func almostEqual(a, b, tolerance float64) bool {
	return math.Abs(a-b) <= tolerance
}

func TestEbbinghausDecay_FreshEntry(t *testing.T) {
	d, err := memory.NewEbbinghausDecay()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	retention := d.ComputeRetention(entryAccessedAgo(0, 0))
	if retention < 0.99 {
		t.Fatalf("expected retention near 1.0 for a fresh entry, got %v", retention)
	}
}

func TestEbbinghausDecay_OneHourBaseStrength(t *testing.T) {
	d, err := memory.NewEbbinghausDecay(
		memory.WithBaseStrength(1.0),
		memory.WithReinforcementFactor(0.5),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// t=1h, S=1.0: R = e^-1 ≈ 0.3679
	retention := d.ComputeRetention(entryAccessedAgo(time.Hour, 0))
	if !almostEqual(retention, math.Exp(-1), 0.01) {
		t.Fatalf("expected retention ≈ %v, got %v", math.Exp(-1), retention)
	}
}

func TestEbbinghausDecay_AccessReinforcement(t *testing.T) {
	d, err := memory.NewEbbinghausDecay(
		memory.WithBaseStrength(1.0),
		memory.WithReinforcementFactor(0.5),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Frequently accessed entries decay slower
	cold := d.ComputeRetention(entryAccessedAgo(2*time.Hour, 0))
	warm := d.ComputeRetention(entryAccessedAgo(2*time.Hour, 4))
	if warm <= cold {
		t.Fatalf("expected reinforcement to slow decay: warm=%v cold=%v", warm, cold)
	}

	// t=2h, S=1.0+4*0.5=3.0: R = e^(-2/3)
	if !almostEqual(warm, math.Exp(-2.0/3.0), 0.01) {
		t.Fatalf("expected retention ≈ %v, got %v", math.Exp(-2.0/3.0), warm)
	}
}

func TestNewEbbinghausDecay_Invalid(t *testing.T) {
	_, err := memory.NewEbbinghausDecay(memory.WithBaseStrength(0))
	if !errors.Is(err, memory.ErrInvalidDecay) {
		t.Fatalf("expected ErrInvalidDecay for zero strength, got %v", err)
	}

	_, err = memory.NewEbbinghausDecay(memory.WithReinforcementFactor(-0.1))
	if !errors.Is(err, memory.ErrInvalidDecay) {
		t.Fatalf("expected ErrInvalidDecay for negative factor, got %v", err)
	}
}

func TestLinearDecay(t *testing.T) {
	d, err := memory.NewLinearDecay(10 * time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// At the half-life, retention is 0.5
	if got := d.ComputeRetention(entryAccessedAgo(10*time.Hour, 0)); !almostEqual(got, 0.5, 0.01) {
		t.Fatalf("expected retention ≈ 0.5 at half-life, got %v", got)
	}

	// At twice the half-life, retention reaches 0 and clamps there
	if got := d.ComputeRetention(entryAccessedAgo(20*time.Hour, 0)); !almostEqual(got, 0.0, 0.01) {
		t.Fatalf("expected retention ≈ 0.0 at 2x half-life, got %v", got)
	}
	if got := d.ComputeRetention(entryAccessedAgo(100*time.Hour, 0)); got != 0.0 {
		t.Fatalf("expected retention clamped to 0.0, got %v", got)
	}
}

func TestNewLinearDecay_Invalid(t *testing.T) {
	_, err := memory.NewLinearDecay(0)
	if !errors.Is(err, memory.ErrInvalidDecay) {
		t.Fatalf("expected ErrInvalidDecay, got %v", err)
	}
}

func TestLinearRecencyScorer(t *testing.T) {
	s, err := memory.NewLinearRecencyScorer(0.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cases := []struct {
		index, total int
		want         float64
	}{
		{0, 3, 0.5},
		{1, 3, 0.75},
		{2, 3, 1.0},
		{0, 1, 1.0}, // a single turn always scores 1.0
		{0, 0, 1.0},
	}
	for _, c := range cases {
		if got := s.Score(c.index, c.total); !almostEqual(got, c.want, 1e-9) {
			t.Fatalf("Score(%d, %d): expected %v, got %v", c.index, c.total, c.want, got)
		}
	}
}

func TestNewLinearRecencyScorer_Invalid(t *testing.T) {
	for _, minScore := range []float64{-0.1, 1.0, 1.5} {
		_, err := memory.NewLinearRecencyScorer(minScore)
		if !errors.Is(err, memory.ErrInvalidScorer) {
			t.Fatalf("minScore %v: expected ErrInvalidScorer, got %v", minScore, err)
		}
	}
}

func TestExponentialRecencyScorer(t *testing.T) {
	s, err := memory.NewExponentialRecencyScorer(2.0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Endpoints map to 0 and 1
	if got := s.Score(0, 5); !almostEqual(got, 0.0, 1e-9) {
		t.Fatalf("expected oldest to score 0.0, got %v", got)
	}
	if got := s.Score(4, 5); !almostEqual(got, 1.0, 1e-9) {
		t.Fatalf("expected newest to score 1.0, got %v", got)
	}

	// Scores increase strictly with recency
	prev := -1.0
	for i := 0; i < 5; i++ {
		got := s.Score(i, 5)
		if got <= prev {
			t.Fatalf("expected strictly increasing scores, got %v after %v", got, prev)
		}
		prev = got
	}

	// Steeper bias toward recent turns than linear interpolation
	if mid := s.Score(2, 5); mid >= 0.5 {
		t.Fatalf("expected midpoint below 0.5 for exponential bias, got %v", mid)
	}

	if got := s.Score(0, 1); got != 1.0 {
		t.Fatalf("expected single turn to score 1.0, got %v", got)
	}
}

func TestNewExponentialRecencyScorer_Invalid(t *testing.T) {
	_, err := memory.NewExponentialRecencyScorer(0)
	if !errors.Is(err, memory.ErrInvalidScorer) {
		t.Fatalf("expected ErrInvalidScorer, got %v", err)
	}
}
