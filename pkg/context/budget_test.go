package ctxcore_test

import (
	"errors"
	"testing"

	ctxcore "github.com/easyops/astrocontext-go/pkg/context"
)

func TestNewTokenBudget_Valid(t *testing.T) {
	b, err := ctxcore.NewTokenBudget(1000,
		ctxcore.WithAllocation(ctxcore.SourceRetrieval, 400, ctxcore.OverflowTruncate),
		ctxcore.WithAllocation(ctxcore.SourceConversation, 300, ctxcore.OverflowDrop),
		ctxcore.WithReserveTokens(100),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if b.TotalTokens() != 1000 {
		t.Fatalf("expected total 1000, got %d", b.TotalTokens())
	}
	if b.ReserveTokens() != 100 {
		t.Fatalf("expected reserve 100, got %d", b.ReserveTokens())
	}
	if b.SharedPool() != 200 {
		t.Fatalf("expected shared pool 200, got %d", b.SharedPool())
	}
}

func TestNewTokenBudget_InvalidTotal(t *testing.T) {
	_, err := ctxcore.NewTokenBudget(0)
	if !errors.Is(err, ctxcore.ErrInvalidBudget) {
		t.Fatalf("expected ErrInvalidBudget, got %v", err)
	}
}

func TestNewTokenBudget_NegativeReserve(t *testing.T) {
	_, err := ctxcore.NewTokenBudget(1000, ctxcore.WithReserveTokens(-1))
	if !errors.Is(err, ctxcore.ErrInvalidBudget) {
		t.Fatalf("expected ErrInvalidBudget, got %v", err)
	}
}

func TestNewTokenBudget_OverAllocated(t *testing.T) {
	_, err := ctxcore.NewTokenBudget(1000,
		ctxcore.WithAllocation(ctxcore.SourceRetrieval, 600, ""),
		ctxcore.WithAllocation(ctxcore.SourceConversation, 300, ""),
		ctxcore.WithReserveTokens(200),
	)
	if !errors.Is(err, ctxcore.ErrInvalidBudget) {
		t.Fatalf("expected ErrInvalidBudget for over-allocation, got %v", err)
	}
}

func TestNewTokenBudget_ExactAllocationAllowed(t *testing.T) {
	// allocations + reserve == total is valid
	_, err := ctxcore.NewTokenBudget(1000,
		ctxcore.WithAllocation(ctxcore.SourceRetrieval, 600, ""),
		ctxcore.WithAllocation(ctxcore.SourceConversation, 300, ""),
		ctxcore.WithReserveTokens(100),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNewTokenBudget_ZeroMaxTokensAllocation(t *testing.T) {
	_, err := ctxcore.NewTokenBudget(1000,
		ctxcore.WithAllocation(ctxcore.SourceRetrieval, 0, ""),
	)
	if !errors.Is(err, ctxcore.ErrInvalidBudget) {
		t.Fatalf("expected ErrInvalidBudget for zero allocation, got %v", err)
	}
}

func TestTokenBudget_GetAllocation(t *testing.T) {
	b, err := ctxcore.NewTokenBudget(1000,
		ctxcore.WithAllocation(ctxcore.SourceRetrieval, 400, ""),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := b.GetAllocation(ctxcore.SourceRetrieval); got != 400 {
		t.Fatalf("expected allocation 400, got %d", got)
	}

	// Unconfigured sources fall back to the shared pool
	if got := b.GetAllocation(ctxcore.SourceTool); got != 600 {
		t.Fatalf("expected shared pool 600, got %d", got)
	}
}

func TestTokenBudget_GetOverflowStrategy(t *testing.T) {
	b, err := ctxcore.NewTokenBudget(1000,
		ctxcore.WithAllocation(ctxcore.SourceConversation, 300, ctxcore.OverflowDrop),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := b.GetOverflowStrategy(ctxcore.SourceConversation); got != ctxcore.OverflowDrop {
		t.Fatalf("expected drop strategy, got %s", got)
	}
	if got := b.GetOverflowStrategy(ctxcore.SourceTool); got != ctxcore.OverflowTruncate {
		t.Fatalf("expected default truncate strategy, got %s", got)
	}
}

func TestTokenBudget_HasAllocation(t *testing.T) {
	b, err := ctxcore.NewTokenBudget(1000,
		ctxcore.WithAllocation(ctxcore.SourceRetrieval, 100, ""),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !b.HasAllocation(ctxcore.SourceRetrieval) {
		t.Fatal("expected retrieval allocation to exist")
	}
	if b.HasAllocation(ctxcore.SourceSystem) {
		t.Fatal("expected no system allocation")
	}
}

func TestTokenBudget_AllocationsSnapshot(t *testing.T) {
	b, err := ctxcore.NewTokenBudget(1000,
		ctxcore.WithAllocation(ctxcore.SourceRetrieval, 100, ""),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	allocs := b.Allocations()
	allocs[0].MaxTokens = 999999

	if b.GetAllocation(ctxcore.SourceRetrieval) != 100 {
		t.Fatal("Allocations must return a copy")
	}
}
