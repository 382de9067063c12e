package memory_test

import (
	"reflect"
	"testing"

	"github.com/easyops/astrocontext-go/pkg/memory"
)

func turn(role memory.Role, content string, tokens int) memory.ConversationTurn {
	t := memory.NewConversationTurn(role, content)
	t.TokenCount = tokens
	return t
}

func TestFIFOEviction(t *testing.T) {
	turns := []memory.ConversationTurn{
		turn(memory.RoleUser, "a", 10),
		turn(memory.RoleAssistant, "b", 10),
		turn(memory.RoleUser, "c", 10),
	}

	got := memory.FIFOEviction{}.SelectForEviction(turns, 15)
	if !reflect.DeepEqual(got, []int{0, 1}) {
		t.Fatalf("expected oldest-first [0 1], got %v", got)
	}

	got = memory.FIFOEviction{}.SelectForEviction(turns, 5)
	if !reflect.DeepEqual(got, []int{0}) {
		t.Fatalf("expected [0], got %v", got)
	}
}

func TestImportanceEviction(t *testing.T) {
	turns := []memory.ConversationTurn{
		turn(memory.RoleUser, "important", 10),
		turn(memory.RoleUser, "trivial", 10),
		turn(memory.RoleUser, "middling", 10),
	}
	importance := map[string]float64{
		"important": 0.9,
		"trivial":   0.1,
		"middling":  0.5,
	}

	policy := memory.NewImportanceEviction(func(t memory.ConversationTurn) float64 {
		return importance[t.Content]
	})

	// Lowest importance goes first
	got := policy.SelectForEviction(turns, 15)
	if !reflect.DeepEqual(got, []int{1, 2}) {
		t.Fatalf("expected ascending importance [1 2], got %v", got)
	}
}

func TestPairedEviction(t *testing.T) {
	turns := []memory.ConversationTurn{
		turn(memory.RoleUser, "q1", 10),
		turn(memory.RoleAssistant, "a1", 10),
		turn(memory.RoleUser, "q2", 10),
		turn(memory.RoleAssistant, "a2", 10),
	}

	// Evicting 5 tokens still removes the whole oldest pair
	got := memory.PairedEviction{}.SelectForEviction(turns, 5)
	if !reflect.DeepEqual(got, []int{0, 1}) {
		t.Fatalf("expected oldest pair [0 1], got %v", got)
	}

	got = memory.PairedEviction{}.SelectForEviction(turns, 25)
	if !reflect.DeepEqual(got, []int{0, 1, 2, 3}) {
		t.Fatalf("expected both pairs, got %v", got)
	}
}

func TestPairedEviction_UnpairedTurns(t *testing.T) {
	// A system turn cannot pair; it is evicted on its own.
	turns := []memory.ConversationTurn{
		turn(memory.RoleSystem, "sys", 10),
		turn(memory.RoleUser, "q1", 10),
		turn(memory.RoleAssistant, "a1", 10),
	}

	got := memory.PairedEviction{}.SelectForEviction(turns, 5)
	if !reflect.DeepEqual(got, []int{0}) {
		t.Fatalf("expected lone system turn [0], got %v", got)
	}

	got = memory.PairedEviction{}.SelectForEviction(turns, 15)
	if !reflect.DeepEqual(got, []int{0, 1, 2}) {
		t.Fatalf("expected system turn plus pair, got %v", got)
	}
}
