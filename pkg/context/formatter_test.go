package ctxcore_test

import (
	"strings"
	"testing"

	ctxcore "github.com/easyops/astrocontext-go/pkg/context"
)

func TestTextFormatter_Format(t *testing.T) {
	w := newWindow(t, 1000)
	w.AddItem(ctxcore.NewContextItem("be helpful", ctxcore.SourceSystem, ctxcore.WithTokenCount(3)))
	w.AddItem(ctxcore.NewContextItem("user asked about Go", ctxcore.SourceMemory, ctxcore.WithTokenCount(5)))
	w.AddItem(ctxcore.NewContextItem("retrieved doc", ctxcore.SourceRetrieval, ctxcore.WithTokenCount(3)))

	f := ctxcore.NewTextFormatter()
	out := f.Format(w)

	for _, section := range []string{"=== SYSTEM ===", "=== MEMORY ===", "=== CONTEXT ==="} {
		if !strings.Contains(out, section) {
			t.Fatalf("expected output to contain %q:\n%s", section, out)
		}
	}

	// Sections appear in fixed order
	sys := strings.Index(out, "=== SYSTEM ===")
	mem := strings.Index(out, "=== MEMORY ===")
	ctxIdx := strings.Index(out, "=== CONTEXT ===")
	if !(sys < mem && mem < ctxIdx) {
		t.Fatalf("expected SYSTEM < MEMORY < CONTEXT ordering:\n%s", out)
	}
}

func TestTextFormatter_EmptySectionsOmitted(t *testing.T) {
	w := newWindow(t, 1000)
	w.AddItem(ctxcore.NewContextItem("only content", ctxcore.SourceRetrieval, ctxcore.WithTokenCount(2)))

	f := ctxcore.NewTextFormatter()
	out := f.Format(w)

	if strings.Contains(out, "=== SYSTEM ===") {
		t.Fatalf("expected empty SYSTEM section to be omitted:\n%s", out)
	}
	if strings.Contains(out, "=== MEMORY ===") {
		t.Fatalf("expected empty MEMORY section to be omitted:\n%s", out)
	}
	if !strings.Contains(out, "=== CONTEXT ===") {
		t.Fatalf("expected CONTEXT section:\n%s", out)
	}
}

func TestTextFormatter_EmptyWindow(t *testing.T) {
	f := ctxcore.NewTextFormatter()
	if out := f.Format(newWindow(t, 100)); out != "" {
		t.Fatalf("expected empty output for empty window, got %q", out)
	}
}

func TestTextFormatter_FormatType(t *testing.T) {
	if got := ctxcore.NewTextFormatter().FormatType(); got != "text" {
		t.Fatalf("expected format type 'text', got %q", got)
	}
}

func TestTextFormatter_ConversationGoesToContext(t *testing.T) {
	w := newWindow(t, 1000)
	w.AddItem(ctxcore.NewContextItem("user: hi", ctxcore.SourceConversation, ctxcore.WithTokenCount(2)))

	f := ctxcore.NewTextFormatter()
	out := f.Format(w)

	if !strings.Contains(out, "=== CONTEXT ===") || !strings.Contains(out, "user: hi") {
		t.Fatalf("expected conversation items in CONTEXT section:\n%s", out)
	}
}
