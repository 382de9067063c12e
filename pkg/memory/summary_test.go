package memory_test

import (
	"errors"
	"strings"
	"testing"

	ctxcore "github.com/easyops/astrocontext-go/pkg/context"
	"github.com/easyops/astrocontext-go/pkg/memory"
)

func TestNewSummaryBufferMemory_CompactorRequired(t *testing.T) {
	// No compactor at all
	_, err := memory.NewSummaryBufferMemory(100)
	if !errors.Is(err, memory.ErrCompactorRequired) {
		t.Fatalf("expected ErrCompactorRequired, got %v", err)
	}

	// Both compactor kinds at once
	_, err = memory.NewSummaryBufferMemory(100,
		memory.WithCompactor(memory.JoinCompactor{}),
		memory.WithProgressiveCompactor(memory.ProgressiveCompactorFunc(
			func(turns []memory.ConversationTurn, previous string) (string, error) {
				return previous, nil
			})),
	)
	if !errors.Is(err, memory.ErrCompactorRequired) {
		t.Fatalf("expected ErrCompactorRequired for dual compactors, got %v", err)
	}
}

func TestSummaryBufferMemory_CompactionOnEviction(t *testing.T) {
	m, err := memory.NewSummaryBufferMemory(4,
		memory.WithSummaryCounter(wordCounter{}),
		memory.WithCompactor(memory.JoinCompactor{}),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, ok := m.Summary(); ok {
		t.Fatal("expected no summary before any eviction")
	}

	m.AddTurn(memory.RoleUser, "one two")
	m.AddTurn(memory.RoleAssistant, "three four")
	m.AddTurn(memory.RoleUser, "five six") // evicts "one two"

	summary, ok := m.Summary()
	if !ok {
		t.Fatal("expected a summary after eviction")
	}
	if summary != "user: one two" {
		t.Fatalf("expected joined summary, got %q", summary)
	}
	if want := (wordCounter{}).Count(summary); m.SummaryTokens() != want {
		t.Fatalf("expected summary tokens %d, got %d", want, m.SummaryTokens())
	}
}

func TestSummaryBufferMemory_ProgressiveCompaction(t *testing.T) {
	var previousSeen []string
	progressive := memory.ProgressiveCompactorFunc(
		func(turns []memory.ConversationTurn, previous string) (string, error) {
			previousSeen = append(previousSeen, previous)
			joined, _ := memory.JoinCompactor{}.Compact(turns)
			if previous == "" {
				return joined, nil
			}
			return previous + "\n" + joined, nil
		})

	m, err := memory.NewSummaryBufferMemory(2,
		memory.WithSummaryCounter(wordCounter{}),
		memory.WithProgressiveCompactor(progressive),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	m.AddTurn(memory.RoleUser, "alpha beta")
	m.AddTurn(memory.RoleUser, "gamma delta") // evicts alpha beta
	m.AddTurn(memory.RoleUser, "epsilon")     // evicts gamma delta

	if len(previousSeen) != 2 {
		t.Fatalf("expected 2 compactions, got %d", len(previousSeen))
	}
	if previousSeen[0] != "" {
		t.Fatalf("expected empty previous summary on first compaction, got %q", previousSeen[0])
	}
	if previousSeen[1] != "user: alpha beta" {
		t.Fatalf("expected previous summary carried forward, got %q", previousSeen[1])
	}

	summary, _ := m.Summary()
	if !strings.Contains(summary, "alpha beta") || !strings.Contains(summary, "gamma delta") {
		t.Fatalf("expected merged summary, got %q", summary)
	}
}

func TestSummaryBufferMemory_CompactionFailureKeepsSummary(t *testing.T) {
	fail := false
	compactor := memory.CompactorFunc(func(turns []memory.ConversationTurn) (string, error) {
		if fail {
			return "", errors.New("model unavailable")
		}
		return memory.JoinCompactor{}.Compact(turns)
	})

	m, err := memory.NewSummaryBufferMemory(2,
		memory.WithSummaryCounter(wordCounter{}),
		memory.WithCompactor(compactor),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	m.AddTurn(memory.RoleUser, "first turn")
	m.AddTurn(memory.RoleUser, "second turn") // compacts "first turn"

	before, ok := m.Summary()
	if !ok {
		t.Fatal("expected a summary")
	}

	fail = true
	m.AddTurn(memory.RoleUser, "third turn") // compaction fails

	after, ok := m.Summary()
	if !ok || after != before {
		t.Fatalf("expected previous summary kept on failure, got %q", after)
	}
}

func TestSummaryBufferMemory_ToContextItems(t *testing.T) {
	m, err := memory.NewSummaryBufferMemory(2,
		memory.WithSummaryCounter(wordCounter{}),
		memory.WithCompactor(memory.JoinCompactor{}),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	m.AddTurn(memory.RoleUser, "old stuff")
	m.AddTurn(memory.RoleUser, "new stuff") // evicts and summarizes "old stuff"

	items := m.ToContextItems(7)
	if len(items) != 2 {
		t.Fatalf("expected summary + 1 turn, got %d items", len(items))
	}

	// Summary leads with its own priority and fixed score
	summaryItem := items[0]
	if summaryItem.Priority() != memory.DefaultSummaryPriority {
		t.Fatalf("expected summary priority %d, got %d", memory.DefaultSummaryPriority, summaryItem.Priority())
	}
	if summaryItem.Score() != 0.5 {
		t.Fatalf("expected summary score 0.5, got %v", summaryItem.Score())
	}
	if summaryItem.Source() != ctxcore.SourceConversation {
		t.Fatalf("expected conversation source, got %s", summaryItem.Source())
	}
	if role, _ := summaryItem.MetadataValue("role"); role != string(memory.RoleSystem) {
		t.Fatalf("expected system role on summary, got %v", role)
	}
	if isSummary, _ := summaryItem.MetadataValue("summary"); isSummary != true {
		t.Fatalf("expected summary=true metadata, got %v", isSummary)
	}

	if items[1].Content() != "new stuff" {
		t.Fatalf("expected window turn after summary, got %q", items[1].Content())
	}
	if items[1].Priority() != 7 {
		t.Fatalf("expected window turn priority 7, got %d", items[1].Priority())
	}
}

func TestSummaryBufferMemory_SummaryPriorityOption(t *testing.T) {
	m, err := memory.NewSummaryBufferMemory(2,
		memory.WithSummaryCounter(wordCounter{}),
		memory.WithCompactor(memory.JoinCompactor{}),
		memory.WithSummaryPriority(9),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	m.AddTurn(memory.RoleUser, "a b")
	m.AddTurn(memory.RoleUser, "c d")

	items := m.ToContextItems(7)
	if items[0].Priority() != 9 {
		t.Fatalf("expected summary priority 9, got %d", items[0].Priority())
	}
}

// compactionRecorder captures OnCompaction callbacks.
type compactionRecorder struct {
	memory.BaseMemoryCallback
	summaries []string
	previous  []string
}

func (r *compactionRecorder) OnCompaction(evicted []memory.ConversationTurn, summary, previousSummary string) {
	r.summaries = append(r.summaries, summary)
	r.previous = append(r.previous, previousSummary)
}

func TestSummaryBufferMemory_CompactionCallback(t *testing.T) {
	rec := &compactionRecorder{}
	m, err := memory.NewSummaryBufferMemory(2,
		memory.WithSummaryCounter(wordCounter{}),
		memory.WithCompactor(memory.JoinCompactor{}),
		memory.WithSummaryCallbacks(rec),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	m.AddTurn(memory.RoleUser, "a b")
	m.AddTurn(memory.RoleUser, "c d")

	if len(rec.summaries) != 1 {
		t.Fatalf("expected 1 compaction callback, got %d", len(rec.summaries))
	}
	if rec.summaries[0] != "user: a b" {
		t.Fatalf("unexpected summary %q", rec.summaries[0])
	}
	if rec.previous[0] != "" {
		t.Fatalf("expected empty previous summary, got %q", rec.previous[0])
	}
}

func TestSummaryBufferMemory_Clear(t *testing.T) {
	m, err := memory.NewSummaryBufferMemory(2,
		memory.WithSummaryCounter(wordCounter{}),
		memory.WithCompactor(memory.JoinCompactor{}),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	m.AddTurn(memory.RoleUser, "a b")
	m.AddTurn(memory.RoleUser, "c d")

	m.Clear()

	if _, ok := m.Summary(); ok {
		t.Fatal("expected summary cleared")
	}
	if m.SummaryTokens() != 0 {
		t.Fatalf("expected 0 summary tokens, got %d", m.SummaryTokens())
	}
	if len(m.Turns()) != 0 {
		t.Fatalf("expected empty window, got %d turns", len(m.Turns()))
	}
	if m.TotalTokens() != 0 {
		t.Fatalf("expected 0 total tokens, got %d", m.TotalTokens())
	}
}
