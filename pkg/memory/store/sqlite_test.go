package store_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	corerrors "github.com/easyops/astrocontext-go/pkg/core/errors"
	"github.com/easyops/astrocontext-go/pkg/memory"
	"github.com/easyops/astrocontext-go/pkg/memory/store"
)

func newSQLiteStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNewSQLiteStore_Unavailable(t *testing.T) {
	// A database file inside a directory that does not exist cannot
	// be opened.
	dbPath := filepath.Join(t.TempDir(), "missing", "test.db")

	_, err := store.NewSQLiteStore(dbPath)
	if !errors.Is(err, corerrors.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestSQLiteStore_AddGetRoundtrip(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)

	expiry := time.Now().UTC().Add(time.Hour)
	entry := memory.NewMemoryEntry("persistent fact",
		memory.WithRelevance(0.8),
		memory.WithMemoryType(memory.MemoryTypeEpisodic),
		memory.WithTags("go", "sqlite"),
		memory.WithExpiresAt(expiry),
		memory.WithUserID("u1"),
		memory.WithSessionID("s1"),
		memory.WithEntryMetadata("origin", "test"),
	)
	entry.AccessCount = 3

	if err := s.Add(ctx, entry); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := s.Get(ctx, entry.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.Content != entry.Content {
		t.Fatalf("expected content %q, got %q", entry.Content, got.Content)
	}
	if got.RelevanceScore != 0.8 {
		t.Fatalf("expected relevance 0.8, got %v", got.RelevanceScore)
	}
	if got.AccessCount != 3 {
		t.Fatalf("expected access count 3, got %d", got.AccessCount)
	}
	if got.Type != memory.MemoryTypeEpisodic {
		t.Fatalf("expected episodic type, got %s", got.Type)
	}
	if got.UserID != "u1" || got.SessionID != "s1" {
		t.Fatalf("expected user/session IDs, got %s/%s", got.UserID, got.SessionID)
	}
	if got.ContentHash != entry.ContentHash {
		t.Fatalf("expected content hash preserved, got %s", got.ContentHash)
	}
	if len(got.Tags) != 2 || got.Tags[0] != "go" {
		t.Fatalf("expected tags round-tripped, got %v", got.Tags)
	}
	if got.Metadata["origin"] != "test" {
		t.Fatalf("expected metadata round-tripped, got %v", got.Metadata)
	}

	// Timestamps round-trip at millisecond precision
	if got.LastAccessed.UnixMilli() != entry.LastAccessed.UnixMilli() {
		t.Fatalf("expected last accessed %v, got %v", entry.LastAccessed, got.LastAccessed)
	}
	if got.ExpiresAt == nil || got.ExpiresAt.UnixMilli() != expiry.UnixMilli() {
		t.Fatalf("expected expiry %v, got %v", expiry, got.ExpiresAt)
	}
}

func TestSQLiteStore_GetMissing(t *testing.T) {
	s := newSQLiteStore(t)

	_, err := s.Get(context.Background(), "does-not-exist")
	if !errors.Is(err, memory.ErrEntryNotFound) {
		t.Fatalf("expected ErrEntryNotFound, got %v", err)
	}
}

func TestSQLiteStore_AddUpsert(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)

	entry := memory.NewMemoryEntry("v1", memory.WithEntryID("same-id"))
	if err := s.Add(ctx, entry); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entry.Content = "v2"
	entry.AccessCount = 1
	if err := s.Add(ctx, entry); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	count, err := s.Count(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected upsert to keep 1 entry, got %d", count)
	}

	got, _ := s.Get(ctx, "same-id")
	if got.Content != "v2" || got.AccessCount != 1 {
		t.Fatalf("expected updated entry, got %+v", got)
	}
}

func TestSQLiteStore_ListAllUnfiltered(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)

	// Expired entries must still be listed; the garbage collector
	// depends on seeing them.
	expired := memory.NewMemoryEntry("expired",
		memory.WithExpiresAt(time.Now().UTC().Add(-time.Hour)))
	fresh := memory.NewMemoryEntry("fresh")

	s.Add(ctx, expired)
	s.Add(ctx, fresh)

	entries, err := s.ListAllUnfiltered(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries including the expired one, got %d", len(entries))
	}
}

func TestSQLiteStore_Delete(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)

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

func TestSQLiteStore_Clear(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)

	s.Add(ctx, memory.NewMemoryEntry("a"))
	s.Add(ctx, memory.NewMemoryEntry("b"))

	if err := s.Clear(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	count, err := s.Count(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected empty store, got %d entries", count)
	}
}

func TestSQLiteStore_Persistence(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "persist.db")

	first, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	entry := memory.NewMemoryEntry("survives restarts")
	if err := first.Add(ctx, entry); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	first.Close()

	// Reopening the same file sees the entry
	second, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer second.Close()

	got, err := second.Get(ctx, entry.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Content != "survives restarts" {
		t.Fatalf("expected persisted content, got %q", got.Content)
	}
}
