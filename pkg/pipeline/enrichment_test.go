package pipeline_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	ctxcore "github.com/easyops/astrocontext-go/pkg/context"
	"github.com/easyops/astrocontext-go/pkg/pipeline"
)

func conversationItem(content string, createdAt time.Time) ctxcore.ContextItem {
	return ctxcore.NewContextItem(content, ctxcore.SourceConversation,
		ctxcore.WithCreatedAt(createdAt))
}

func TestNewMemoryContextEnricher_Invalid(t *testing.T) {
	_, err := pipeline.NewMemoryContextEnricher(pipeline.WithMaxEnrichItems(0))
	if !errors.Is(err, pipeline.ErrInvalidPipeline) {
		t.Fatalf("expected ErrInvalidPipeline, got %v", err)
	}
}

func TestMemoryContextEnricher_Enrich(t *testing.T) {
	e, err := pipeline.NewMemoryContextEnricher()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	now := time.Now()
	items := []ctxcore.ContextItem{
		conversationItem("talked about maps", now.Add(-2*time.Minute)),
		conversationItem("talked about slices", now.Add(-time.Minute)),
	}

	out := e.Enrich("what about arrays", items)

	if !strings.Contains(out, "what about arrays") {
		t.Fatalf("expected original query preserved, got %q", out)
	}
	if !strings.Contains(out, "talked about maps; talked about slices") {
		t.Fatalf("expected joined context snippets, got %q", out)
	}
}

func TestMemoryContextEnricher_NoItems(t *testing.T) {
	e, err := pipeline.NewMemoryContextEnricher()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if out := e.Enrich("plain query", nil); out != "plain query" {
		t.Fatalf("expected unchanged query, got %q", out)
	}
}

func TestMemoryContextEnricher_EmptyContentItems(t *testing.T) {
	e, err := pipeline.NewMemoryContextEnricher()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	items := []ctxcore.ContextItem{
		conversationItem("", time.Now()),
	}
	if out := e.Enrich("plain query", items); out != "plain query" {
		t.Fatalf("expected unchanged query for blank context, got %q", out)
	}
}

func TestMemoryContextEnricher_MaxItems(t *testing.T) {
	e, err := pipeline.NewMemoryContextEnricher(pipeline.WithMaxEnrichItems(2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	now := time.Now()
	items := []ctxcore.ContextItem{
		conversationItem("oldest", now.Add(-3*time.Minute)),
		conversationItem("middle", now.Add(-2*time.Minute)),
		conversationItem("newest", now.Add(-time.Minute)),
	}

	out := e.Enrich("q", items)

	// Only the two most recent items participate
	if strings.Contains(out, "oldest") {
		t.Fatalf("expected oldest item excluded, got %q", out)
	}
	if !strings.Contains(out, "middle") || !strings.Contains(out, "newest") {
		t.Fatalf("expected two most recent items, got %q", out)
	}
}

func TestMemoryContextEnricher_RecencyOrderIndependentOfInput(t *testing.T) {
	e, err := pipeline.NewMemoryContextEnricher(pipeline.WithMaxEnrichItems(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	now := time.Now()
	// Newest item listed first; recency is decided by creation time
	items := []ctxcore.ContextItem{
		conversationItem("newest", now),
		conversationItem("oldest", now.Add(-time.Hour)),
	}

	out := e.Enrich("q", items)
	if !strings.Contains(out, "newest") || strings.Contains(out, "oldest") {
		t.Fatalf("expected only the newest item, got %q", out)
	}
}

func TestMemoryContextEnricher_CustomTemplate(t *testing.T) {
	e, err := pipeline.NewMemoryContextEnricher(
		pipeline.WithEnrichTemplate("Q: {query} | C: {context}"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := e.Enrich("ask", []ctxcore.ContextItem{conversationItem("prior", time.Now())})
	if out != "Q: ask | C: prior" {
		t.Fatalf("expected templated output, got %q", out)
	}
}
