package store_test

import (
	"context"
	"errors"
	"testing"

	"github.com/easyops/astrocontext-go/pkg/memory"
	"github.com/easyops/astrocontext-go/pkg/memory/store"
)

func TestInMemoryStore_AddGet(t *testing.T) {
	ctx := context.Background()
	s := store.NewInMemoryStore()

	entry := memory.NewMemoryEntry("a fact")
	if err := s.Add(ctx, entry); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := s.Get(ctx, entry.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Content != "a fact" {
		t.Fatalf("expected stored content, got %q", got.Content)
	}
}

func TestInMemoryStore_GetMissing(t *testing.T) {
	s := store.NewInMemoryStore()

	_, err := s.Get(context.Background(), "does-not-exist")
	if !errors.Is(err, memory.ErrEntryNotFound) {
		t.Fatalf("expected ErrEntryNotFound, got %v", err)
	}
}

func TestInMemoryStore_AddUpsert(t *testing.T) {
	ctx := context.Background()
	s := store.NewInMemoryStore()

	entry := memory.NewMemoryEntry("v1", memory.WithEntryID("same-id"))
	s.Add(ctx, entry)

	entry.Content = "v2"
	s.Add(ctx, entry)

	if s.Len() != 1 {
		t.Fatalf("expected upsert to keep 1 entry, got %d", s.Len())
	}
	got, _ := s.Get(ctx, "same-id")
	if got.Content != "v2" {
		t.Fatalf("expected updated content, got %q", got.Content)
	}
}

func TestInMemoryStore_ListInsertionOrder(t *testing.T) {
	ctx := context.Background()
	s := store.NewInMemoryStore()

	for _, content := range []string{"first", "second", "third"} {
		s.Add(ctx, memory.NewMemoryEntry(content))
	}

	entries, err := s.ListAllUnfiltered(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	for i, want := range []string{"first", "second", "third"} {
		if entries[i].Content != want {
			t.Fatalf("position %d: expected %q, got %q", i, want, entries[i].Content)
		}
	}
}

func TestInMemoryStore_Delete(t *testing.T) {
	ctx := context.Background()
	s := store.NewInMemoryStore()

	entry := memory.NewMemoryEntry("x")
	s.Add(ctx, entry)

	existed, err := s.Delete(ctx, entry.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !existed {
		t.Fatal("expected delete to report existence")
	}

	existed, err = s.Delete(ctx, entry.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if existed {
		t.Fatal("expected second delete to report absence")
	}
}

func TestInMemoryStore_Clear(t *testing.T) {
	ctx := context.Background()
	s := store.NewInMemoryStore()

	s.Add(ctx, memory.NewMemoryEntry("a"))
	s.Add(ctx, memory.NewMemoryEntry("b"))

	if err := s.Clear(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Len() != 0 {
		t.Fatalf("expected empty store, got %d entries", s.Len())
	}
}
