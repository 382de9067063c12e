package ctxcore_test

import (
	"testing"
	"time"

	ctxcore "github.com/easyops/astrocontext-go/pkg/context"
)

func TestNewContextItem_Defaults(t *testing.T) {
	item := ctxcore.NewContextItem("hello", ctxcore.SourceUser)

	if item.ID() == "" {
		t.Fatal("expected non-empty ID")
	}
	if item.Content() != "hello" {
		t.Fatalf("expected content 'hello', got %q", item.Content())
	}
	if item.Source() != ctxcore.SourceUser {
		t.Fatalf("expected source user, got %s", item.Source())
	}
	if item.Score() != 0.0 {
		t.Fatalf("expected default score 0.0, got %f", item.Score())
	}
	if item.Priority() != 5 {
		t.Fatalf("expected default priority 5, got %d", item.Priority())
	}
	if item.TokenCount() != 0 {
		t.Fatalf("expected default token count 0, got %d", item.TokenCount())
	}
	if item.CreatedAt().IsZero() {
		t.Fatal("expected non-zero created at")
	}
}

func TestNewContextItem_UniqueIDs(t *testing.T) {
	a := ctxcore.NewContextItem("a", ctxcore.SourceUser)
	b := ctxcore.NewContextItem("b", ctxcore.SourceUser)

	if a.ID() == b.ID() {
		t.Fatal("expected distinct IDs for distinct items")
	}
}

func TestWithScore_Clamped(t *testing.T) {
	cases := []struct {
		in   float64
		want float64
	}{
		{-0.5, 0.0},
		{0.0, 0.0},
		{0.42, 0.42},
		{1.0, 1.0},
		{1.5, 1.0},
	}

	for _, c := range cases {
		item := ctxcore.NewContextItem("x", ctxcore.SourceUser, ctxcore.WithScore(c.in))
		if item.Score() != c.want {
			t.Fatalf("score %f: expected %f, got %f", c.in, c.want, item.Score())
		}
	}
}

func TestWithPriority_Clamped(t *testing.T) {
	cases := []struct {
		in   int
		want int
	}{
		{-3, 1},
		{0, 1},
		{1, 1},
		{7, 7},
		{10, 10},
		{15, 10},
	}

	for _, c := range cases {
		item := ctxcore.NewContextItem("x", ctxcore.SourceUser, ctxcore.WithPriority(c.in))
		if item.Priority() != c.want {
			t.Fatalf("priority %d: expected %d, got %d", c.in, c.want, item.Priority())
		}
	}
}

func TestContextItem_Transform(t *testing.T) {
	original := ctxcore.NewContextItem("original", ctxcore.SourceRetrieval,
		ctxcore.WithScore(0.8),
		ctxcore.WithItemMetadata("key", "value"),
	)

	modified := original.Transform(
		ctxcore.WithContent("modified"),
		ctxcore.WithScore(0.3),
	)

	// Original must be untouched
	if original.Content() != "original" {
		t.Fatalf("original content changed: %q", original.Content())
	}
	if original.Score() != 0.8 {
		t.Fatalf("original score changed: %f", original.Score())
	}

	// Copy carries the changes but keeps identity
	if modified.Content() != "modified" {
		t.Fatalf("expected modified content, got %q", modified.Content())
	}
	if modified.Score() != 0.3 {
		t.Fatalf("expected modified score 0.3, got %f", modified.Score())
	}
	if modified.ID() != original.ID() {
		t.Fatal("transform must preserve the item ID")
	}
	if !modified.CreatedAt().Equal(original.CreatedAt()) {
		t.Fatal("transform must preserve the creation time")
	}
}

func TestContextItem_TransformMetadataIsolated(t *testing.T) {
	original := ctxcore.NewContextItem("x", ctxcore.SourceUser,
		ctxcore.WithItemMetadata("shared", "before"))

	modified := original.Transform(ctxcore.WithItemMetadata("shared", "after"))

	if v, _ := original.MetadataValue("shared"); v != "before" {
		t.Fatalf("original metadata changed: %v", v)
	}
	if v, _ := modified.MetadataValue("shared"); v != "after" {
		t.Fatalf("expected modified metadata, got %v", v)
	}
}

func TestContextItem_MetadataCopy(t *testing.T) {
	item := ctxcore.NewContextItem("x", ctxcore.SourceUser,
		ctxcore.WithItemMetadata("k", "v"))

	meta := item.Metadata()
	meta["k"] = "mutated"

	if v, _ := item.MetadataValue("k"); v != "v" {
		t.Fatalf("metadata accessor leaked internal map: %v", v)
	}
}

func TestWithCreatedAt(t *testing.T) {
	ts := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	item := ctxcore.NewContextItem("x", ctxcore.SourceConversation, ctxcore.WithCreatedAt(ts))

	if !item.CreatedAt().Equal(ts) {
		t.Fatalf("expected created at %v, got %v", ts, item.CreatedAt())
	}
}

func TestWithTokenCount_NegativeClamped(t *testing.T) {
	item := ctxcore.NewContextItem("x", ctxcore.SourceUser, ctxcore.WithTokenCount(-10))
	if item.TokenCount() != 0 {
		t.Fatalf("expected negative token count clamped to 0, got %d", item.TokenCount())
	}
}
