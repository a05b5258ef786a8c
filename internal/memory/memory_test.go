package memory

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/gurisko/hq/internal/blobstore"
	"github.com/gurisko/hq/internal/ledger"
)

func newTestSyncer(t *testing.T) (*Syncer, *blobstore.Memory, string) {
	t.Helper()
	store := blobstore.NewMemory()
	dir := t.TempDir()
	return NewSyncer(ledger.NewWriter(store, ledger.WithBackoff(0)), dir, nil), store, dir
}

func actions(results []FileResult) map[string]Action {
	m := make(map[string]Action, len(results))
	for _, r := range results {
		m[r.File] = r.Action
	}
	return m
}

func TestPush(t *testing.T) {
	s, store, dir := newTestSyncer(t)
	ctx := context.Background()
	if err := os.WriteFile(filepath.Join(dir, "SHORT_TERM.md"), []byte("today"), 0o644); err != nil {
		t.Fatal(err)
	}

	got := actions(s.Push(ctx))
	if got["SHORT_TERM.md"] != Created || got["LONG_TERM.md"] != Missing {
		t.Errorf("Expected created/missing, got %v", got)
	}
	if msg := store.LastMessage("memory/SHORT_TERM.md"); msg != "🧠 Memory Init: SHORT_TERM.md" {
		t.Errorf("Expected init message, got %q", msg)
	}

	if got := actions(s.Push(ctx)); got["SHORT_TERM.md"] != Unchanged {
		t.Errorf("Expected unchanged on identical push, got %v", got)
	}

	if err := os.WriteFile(filepath.Join(dir, "SHORT_TERM.md"), []byte("tomorrow"), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := actions(s.Push(ctx)); got["SHORT_TERM.md"] != Updated {
		t.Errorf("Expected updated, got %v", got)
	}
	if store.Content("memory/SHORT_TERM.md") != "tomorrow" {
		t.Errorf("Expected remote content replaced, got %q", store.Content("memory/SHORT_TERM.md"))
	}
	if msg := store.LastMessage("memory/SHORT_TERM.md"); msg != "🧠 Memory Update: SHORT_TERM.md" {
		t.Errorf("Expected update message, got %q", msg)
	}
}

func TestPull(t *testing.T) {
	s, store, dir := newTestSyncer(t)
	store.Put("memory/LONG_TERM.md", "facts")

	got := actions(s.Pull(context.Background()))
	if got["LONG_TERM.md"] != Pulled || got["SHORT_TERM.md"] != Missing {
		t.Errorf("Expected pulled/missing, got %v", got)
	}
	data, err := os.ReadFile(filepath.Join(dir, "LONG_TERM.md"))
	if err != nil || string(data) != "facts" {
		t.Errorf("Expected local copy, got %q, %v", data, err)
	}
}
